package logging

// ProgressSampler thins out export progress logs. It emits when a fraction
// crosses into a new bucket, and always for the final 1.0.
type ProgressSampler struct {
	bucketSize float64
	lastBucket int
}

// NewProgressSampler constructs a sampler with buckets of bucketPercent
// (default 5%).
func NewProgressSampler(bucketPercent float64) *ProgressSampler {
	if bucketPercent <= 0 {
		bucketPercent = 5
	}
	return &ProgressSampler{bucketSize: bucketPercent / 100, lastBucket: -1}
}

// ShouldLog reports whether a progress fraction in [0, 1] should be logged.
// A nil sampler logs everything.
func (s *ProgressSampler) ShouldLog(fraction float64) bool {
	if s == nil {
		return true
	}
	if fraction < 0 {
		return false
	}
	bucket := int(fraction / s.bucketSize)
	if fraction >= 1 {
		bucket = int(1/s.bucketSize) + 1
	}
	if bucket <= s.lastBucket {
		return false
	}
	s.lastBucket = bucket
	return true
}

// Reset clears the sampler state (e.g. when a new job starts).
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastBucket = -1
}
