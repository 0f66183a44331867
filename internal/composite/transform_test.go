package composite_test

import (
	"math"
	"math/rand"
	"testing"

	"cubemix/internal/composite"
	"cubemix/internal/lut"
	"cubemix/internal/whitebalance"
)

// warmTable is a non-identity grade with headroom above 1.
func warmTable(t *testing.T) *lut.Table {
	t.Helper()
	const n = 5
	entries := make([]lut.RGB, n*n*n)
	for b := 0; b < n; b++ {
		for g := 0; g < n; g++ {
			for r := 0; r < n; r++ {
				fr, fg, fb := float32(r)/(n-1), float32(g)/(n-1), float32(b)/(n-1)
				entries[lut.Index(n, r, g, b)] = lut.RGB{R: fr*1.2 + 0.05, G: fg * fg, B: fb * 0.8}
			}
		}
	}
	table, err := lut.NewTable(n, entries)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return table
}

func randomColors(n int) []lut.RGB {
	rng := rand.New(rand.NewSource(42))
	out := make([]lut.RGB, n)
	for i := range out {
		out[i] = lut.RGB{R: rng.Float32(), G: rng.Float32(), B: rng.Float32()}
	}
	return out
}

func TestBuildEmptyIsIdentity(t *testing.T) {
	tr := composite.Transform{}
	if !tr.IsIdentity() {
		t.Fatal("expected empty transform to be identity")
	}
	fn := composite.Build(tr)
	for _, c := range randomColors(50) {
		if got := fn(c); got != c {
			t.Fatalf("identity changed %+v to %+v", c, got)
		}
	}
}

func TestIdentityPrimaryFullOpacityPassesThrough(t *testing.T) {
	fn := composite.Build(composite.Transform{
		Primary: &composite.Stage{Table: lut.Identity(17), Opacity: 1},
	})
	for _, c := range randomColors(200) {
		got := fn(c)
		if math.Abs(float64(got.R-c.R)) > 1e-5 || math.Abs(float64(got.G-c.G)) > 1e-5 || math.Abs(float64(got.B-c.B)) > 1e-5 {
			t.Fatalf("pass-through drifted: in=%+v out=%+v", c, got)
		}
	}
}

func TestOpacityBoundaryLaw(t *testing.T) {
	table := warmTable(t)
	for _, slot := range []string{"primary", "secondary"} {
		for _, c := range randomColors(100) {
			zero := composite.Transform{}
			one := composite.Transform{}
			switch slot {
			case "primary":
				zero.Primary = &composite.Stage{Table: table, Opacity: 0}
				one.Primary = &composite.Stage{Table: table, Opacity: 1}
			case "secondary":
				zero.Secondary = &composite.Stage{Table: table, Opacity: 0}
				one.Secondary = &composite.Stage{Table: table, Opacity: 1}
			}
			if got := composite.Build(zero)(c); got != c {
				t.Fatalf("%s opacity 0 changed %+v to %+v", slot, c, got)
			}
			if got, want := composite.Build(one)(c), table.Sample(c); got != want {
				t.Fatalf("%s opacity 1 = %+v, want %+v", slot, got, want)
			}
		}
	}
}

func TestStageOrder(t *testing.T) {
	primary := warmTable(t)
	secondary := lut.Identity(2)
	entries := secondary.Entries()
	for i := range entries {
		entries[i] = lut.RGB{R: entries[i].B, G: entries[i].G, B: entries[i].R}
	}
	swap, err := lut.NewTable(2, entries)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	tr := composite.Transform{
		Primary:      &composite.Stage{Table: primary, Opacity: 0.7},
		Secondary:    &composite.Stage{Table: swap, Opacity: 0.4},
		WhiteBalance: 3,
	}
	fn := composite.Build(tr)
	for _, c := range randomColors(50) {
		working := whitebalance.Apply(c, 3)
		working = lut.Lerp(working, primary.Sample(working), 0.7)
		working = lut.Lerp(working, swap.Sample(working), 0.4)
		if got := fn(c); got != working {
			t.Fatalf("chain mismatch for %+v: got %+v want %+v", c, got, working)
		}
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	tr := composite.Transform{
		Primary:      &composite.Stage{Table: warmTable(t), Opacity: 0.35},
		Secondary:    &composite.Stage{Table: lut.Identity(9), Opacity: 0.9},
		WhiteBalance: -6.5,
	}
	a, b := composite.Build(tr), composite.Build(tr)
	for _, c := range randomColors(200) {
		if math.Float32bits(a(c).R) != math.Float32bits(b(c).R) ||
			math.Float32bits(a(c).G) != math.Float32bits(b(c).G) ||
			math.Float32bits(a(c).B) != math.Float32bits(b(c).B) {
			t.Fatalf("outputs differ for %+v", c)
		}
	}
}

func TestBuildClampsOpacity(t *testing.T) {
	table := warmTable(t)
	over := composite.Build(composite.Transform{Primary: &composite.Stage{Table: table, Opacity: 3}})
	under := composite.Build(composite.Transform{Primary: &composite.Stage{Table: table, Opacity: -1}})
	c := lut.RGB{R: 0.2, G: 0.4, B: 0.6}
	if got := over(c); got != table.Sample(c) {
		t.Fatalf("opacity above 1 not clamped: %+v", got)
	}
	if got := under(c); got != c {
		t.Fatalf("opacity below 0 not clamped: %+v", got)
	}
}

func TestStageWithoutTableIsSkipped(t *testing.T) {
	tr := composite.Transform{Primary: &composite.Stage{Name: "empty", Opacity: 1}}
	if !tr.IsIdentity() {
		t.Fatal("stage without a table should be skipped")
	}
	if name := tr.SecondaryName(); name != "" {
		t.Fatalf("unexpected secondary name %q", name)
	}
}
