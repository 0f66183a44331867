package lut_test

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cubemix/internal/lut"
)

const sampleDelta = 1e-5

func assertRGB(t *testing.T, want, got lut.RGB) {
	t.Helper()
	assert.InDelta(t, want.R, got.R, sampleDelta, "red")
	assert.InDelta(t, want.G, got.G, sampleDelta, "green")
	assert.InDelta(t, want.B, got.B, sampleDelta, "blue")
}

func TestIdentityRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, size := range []int{2, 17, 32, 64} {
		table := lut.Identity(size)
		for i := 0; i < 500; i++ {
			in := lut.RGB{R: rng.Float32(), G: rng.Float32(), B: rng.Float32()}
			assertRGB(t, in, table.Sample(in))
		}
	}
}

func TestSampleMidpointOfUnitCube(t *testing.T) {
	table := lut.Identity(2)
	got := table.Sample(lut.RGB{R: 0.5, G: 0.5, B: 0.5})
	assert.Equal(t, lut.RGB{R: 0.5, G: 0.5, B: 0.5}, got)
}

func TestSampleHitsGridVerticesExactly(t *testing.T) {
	entries := make([]lut.RGB, 27)
	for i := range entries {
		entries[i] = lut.RGB{R: float32(i), G: float32(i) * 2, B: -float32(i)}
	}
	table, err := lut.NewTable(3, entries)
	require.NoError(t, err)

	assert.Equal(t, table.At(0, 0, 0), table.Sample(lut.RGB{}))
	assert.Equal(t, table.At(1, 2, 0), table.Sample(lut.RGB{R: 0.5, G: 1}))
	assert.Equal(t, table.At(2, 2, 2), table.Sample(lut.RGB{R: 1, G: 1, B: 1}))
}

func TestSampleClampsInput(t *testing.T) {
	table := lut.Identity(17)
	assertRGB(t, lut.RGB{R: 0, G: 1, B: 0.25}, table.Sample(lut.RGB{R: -3, G: 42, B: 0.25}))
	assertRGB(t, lut.RGB{}, table.Sample(lut.RGB{R: float32NaN(), G: -1, B: -1}))
}

func TestSampleDoesNotClampOutput(t *testing.T) {
	entries := lut.Identity(2).Entries()
	for i := range entries {
		entries[i] = entries[i].Mul(lut.RGB{R: 2, G: 2, B: 2})
		entries[i].B -= 0.5
	}
	table, err := lut.NewTable(2, entries)
	require.NoError(t, err)

	assertRGB(t, lut.RGB{R: 2, G: 2, B: 1.5}, table.Sample(lut.RGB{R: 1, G: 1, B: 1}))
	assertRGB(t, lut.RGB{R: 0, G: 0, B: -0.5}, table.Sample(lut.RGB{}))
}

func TestSampleLinearAlongEachAxis(t *testing.T) {
	// A table whose entries vary only with red interpolates exactly linearly.
	entries := make([]lut.RGB, 8)
	for b := 0; b < 2; b++ {
		for g := 0; g < 2; g++ {
			entries[lut.Index(2, 0, g, b)] = lut.RGB{R: 0.2}
			entries[lut.Index(2, 1, g, b)] = lut.RGB{R: 0.6}
		}
	}
	table, err := lut.NewTable(2, entries)
	require.NoError(t, err)

	got := table.Sample(lut.RGB{R: 0.25, G: 0.9, B: 0.1})
	assert.InDelta(t, 0.3, got.R, sampleDelta)
	assert.Equal(t, lut.Sample(table, lut.RGB{R: 0.25}), table.Sample(lut.RGB{R: 0.25}))
}

func TestSampleConcurrentReaders(t *testing.T) {
	table := lut.Identity(33)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 1000; i++ {
				in := lut.RGB{R: rng.Float32(), G: rng.Float32(), B: rng.Float32()}
				out := table.Sample(in)
				if d := out.R - in.R; d > sampleDelta || d < -sampleDelta {
					t.Errorf("sample drifted: in=%v out=%v", in, out)
					return
				}
			}
		}(int64(w))
	}
	wg.Wait()
}

func TestLerpEndpointsExact(t *testing.T) {
	a := lut.RGB{R: 0.1, G: 0.7, B: 3}
	b := lut.RGB{R: 0.9, G: -0.2, B: 0.3}
	assert.Equal(t, a, lut.Lerp(a, b, 0))
	assert.Equal(t, b, lut.Lerp(a, b, 1))
}

func TestClamp01(t *testing.T) {
	got := lut.RGB{R: -0.1, G: 1.2, B: float32NaN()}.Clamp01()
	assert.Equal(t, lut.RGB{R: 0, G: 1, B: 0}, got)
}

func float32NaN() float32 {
	var zero float32
	return zero / zero
}
