package job

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidTransition is returned when a state change is not allowed from the
// job's current state. Terminal states never transition.
var ErrInvalidTransition = errors.New("invalid job state transition")

// Request describes an export before it starts.
type Request struct {
	Source      string
	Destination string
	// FrameCount is the known number of frames, or 0 when the source is
	// unbounded or streaming.
	FrameCount int
	Tier       Tier
	Container  string
	PreferGPU  bool
}

// EncodeSettings is the tier resolved at job start and handed to the sink.
// PreferGPU is advisory; sinks may ignore it.
type EncodeSettings struct {
	Tier        Tier
	BitrateKbps int
	MaxWidth    int
	MaxHeight   int
	Container   string
	PreferGPU   bool
}

// Preset returns the resolution and bitrate portion of s.
func (s EncodeSettings) Preset() Preset {
	return Preset{BitrateKbps: s.BitrateKbps, MaxWidth: s.MaxWidth, MaxHeight: s.MaxHeight}
}

// Progress is one progress observation.
type Progress struct {
	FramesDone  int
	TotalFrames int
	Fraction    float64
	Timestamp   time.Duration
	UpdatedAt   time.Time
}

// Status is an immutable snapshot of an ExportJob.
type Status struct {
	ID          string
	Source      string
	Destination string
	State       State
	Tier        Tier
	Container   string
	FrameCount  int
	Progress    Progress
	Output      string
	Error       string
	CreatedAt   time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
}

// ExportJob tracks one export run. It is safe for concurrent use; the
// pipeline mutates it while callers poll Snapshot.
type ExportJob struct {
	id      string
	request Request

	mu         sync.Mutex
	state      State
	settings   EncodeSettings
	resolved   bool
	progress   Progress
	output     string
	err        error
	createdAt  time.Time
	startedAt  time.Time
	finishedAt time.Time
}

// New creates a pending job with a fresh ID.
func New(req Request) *ExportJob {
	if req.Tier == "" {
		req.Tier = DefaultTier
	}
	if req.FrameCount < 0 {
		req.FrameCount = 0
	}
	req.Container = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(req.Container), "."))
	return &ExportJob{
		id:        uuid.NewString(),
		request:   req,
		state:     StatePending,
		progress:  Progress{TotalFrames: req.FrameCount},
		createdAt: time.Now().UTC(),
	}
}

// ID returns the job identifier.
func (j *ExportJob) ID() string { return j.id }

// Request returns the parameters the job was created with.
func (j *ExportJob) Request() Request { return j.request }

// State returns the current state.
func (j *ExportJob) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Err returns the failure cause for failed or cancelled jobs.
func (j *ExportJob) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Start moves the job to running and resolves its tier into EncodeSettings.
// The settings are fixed for the rest of the job.
func (j *ExportJob) Start() (EncodeSettings, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StateRunning); err != nil {
		return EncodeSettings{}, err
	}
	preset := j.request.Tier.Preset()
	j.settings = EncodeSettings{
		Tier:        j.request.Tier,
		BitrateKbps: preset.BitrateKbps,
		MaxWidth:    preset.MaxWidth,
		MaxHeight:   preset.MaxHeight,
		Container:   j.request.Container,
		PreferGPU:   j.request.PreferGPU,
	}
	j.resolved = true
	j.startedAt = time.Now().UTC()
	return j.settings, nil
}

// Settings returns the resolved settings; ok is false before Start.
func (j *ExportJob) Settings() (EncodeSettings, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.settings, j.resolved
}

// ReportProgress records p if the job is running. Fraction never decreases
// and stays below 1 until Complete. The stored value is returned.
func (j *ExportJob) ReportProgress(p Progress) (Progress, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != StateRunning {
		return j.progress, false
	}
	if p.Fraction >= 1 {
		p.Fraction = nextBelowOne
	}
	if p.Fraction < j.progress.Fraction {
		p.Fraction = j.progress.Fraction
	}
	if p.FramesDone < j.progress.FramesDone {
		p.FramesDone = j.progress.FramesDone
	}
	if p.TotalFrames == 0 {
		p.TotalFrames = j.request.FrameCount
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	j.progress = p
	return p, true
}

// nextBelowOne is the largest float64 below 1.
const nextBelowOne = 1 - 1.0/(1<<53)

// Complete marks the job completed with progress exactly 1.
func (j *ExportJob) Complete(output string) (Progress, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StateCompleted); err != nil {
		return j.progress, err
	}
	j.output = output
	j.progress.Fraction = 1
	if j.progress.TotalFrames > 0 {
		j.progress.FramesDone = j.progress.TotalFrames
	} else {
		j.progress.TotalFrames = j.progress.FramesDone
	}
	j.progress.UpdatedAt = time.Now().UTC()
	j.finishedAt = j.progress.UpdatedAt
	return j.progress, nil
}

// Fail marks the job failed with cause preserved.
func (j *ExportJob) Fail(cause error) error {
	return j.finish(StateFailed, cause)
}

// Cancel marks the job cancelled. cause may be nil.
func (j *ExportJob) Cancel(cause error) error {
	return j.finish(StateCancelled, cause)
}

func (j *ExportJob) finish(to State, cause error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(to); err != nil {
		return err
	}
	j.err = cause
	j.finishedAt = time.Now().UTC()
	return nil
}

func (j *ExportJob) transitionLocked(to State) error {
	if !CanTransition(j.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.state, to)
	}
	j.state = to
	return nil
}

// Snapshot returns the current status.
func (j *ExportJob) Snapshot() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	status := Status{
		ID:          j.id,
		Source:      j.request.Source,
		Destination: j.request.Destination,
		State:       j.state,
		Tier:        j.request.Tier,
		Container:   j.request.Container,
		FrameCount:  j.request.FrameCount,
		Progress:    j.progress,
		Output:      j.output,
		CreatedAt:   j.createdAt,
		StartedAt:   j.startedAt,
		FinishedAt:  j.finishedAt,
	}
	if j.err != nil {
		status.Error = j.err.Error()
	}
	return status
}
