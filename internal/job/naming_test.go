package job_test

import (
	"testing"

	"cubemix/internal/job"
)

func TestOutputName(t *testing.T) {
	cases := []struct {
		name      string
		input     string
		secondary string
		opacity   float64
		ext       string
		want      string
	}{
		{"with secondary", "/videos/Beach Day.mov", "Teal Orange.cube", 0.75, "mov", "Beach Day_converted_Teal_Orange_75percent.mov"},
		{"no secondary", "clip.mp4", "", 1, ".mp4", "clip_converted_NoSecondLUT_100percent.mp4"},
		{"rounding", "clip.mp4", "film", 0.333, "mp4", "clip_converted_film_33percent.mp4"},
		{"clamped", "clip", "film", 1.7, "png", "clip_converted_film_100percent.png"},
		{"negative", "clip", "film", -0.2, "png", "clip_converted_film_0percent.png"},
		{"default ext", "frames/", "", 0.5, "", "frames_converted_NoSecondLUT_50percent.mov"},
		{"unsafe name", "clip.mov", "a:b", 0.5, "mov", "clip_converted_a-b_50percent.mov"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := job.OutputName(tc.input, tc.secondary, tc.opacity, tc.ext)
			if got != tc.want {
				t.Fatalf("OutputName = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestOutputNameIsDeterministic(t *testing.T) {
	a := job.OutputName("x/in.mov", "grade", 0.42, "mov")
	b := job.OutputName("x/in.mov", "grade", 0.42, "mov")
	if a != b {
		t.Fatalf("names differ: %q vs %q", a, b)
	}
}

func TestNameOpacity(t *testing.T) {
	cases := []struct {
		raw          string
		hasSecondary bool
		want         float64
	}{
		{"", true, 0.8},
		{"primary", true, 0.8},
		{" Secondary ", true, 0.3},
		{"secondary", false, 0.8},
	}
	for _, tc := range cases {
		which, err := job.ParseNameOpacity(tc.raw)
		if err != nil {
			t.Fatalf("ParseNameOpacity(%q): %v", tc.raw, err)
		}
		if got := which.Pick(0.8, 0.3, tc.hasSecondary); got != tc.want {
			t.Fatalf("%q (secondary=%v): got %v, want %v", tc.raw, tc.hasSecondary, got, tc.want)
		}
	}
	if _, err := job.ParseNameOpacity("both"); err == nil {
		t.Fatal("expected error for unknown value")
	}
}
