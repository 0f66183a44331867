package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"cubemix/internal/job"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// jobView is the JSON shape of a job.Status.
type jobView struct {
	ID          string  `json:"id"`
	Source      string  `json:"source"`
	Destination string  `json:"destination"`
	State       string  `json:"state"`
	Tier        string  `json:"tier"`
	Container   string  `json:"container,omitempty"`
	FrameCount  int     `json:"frame_count"`
	FramesDone  int     `json:"frames_done"`
	Progress    float64 `json:"progress"`
	Output      string  `json:"output,omitempty"`
	Error       string  `json:"error,omitempty"`
	CreatedAt   string  `json:"created_at"`
	StartedAt   string  `json:"started_at,omitempty"`
	FinishedAt  string  `json:"finished_at,omitempty"`
}

func newJobView(s job.Status) jobView {
	return jobView{
		ID:          s.ID,
		Source:      s.Source,
		Destination: s.Destination,
		State:       string(s.State),
		Tier:        string(s.Tier),
		Container:   s.Container,
		FrameCount:  s.FrameCount,
		FramesDone:  s.Progress.FramesDone,
		Progress:    s.Progress.Fraction,
		Output:      s.Output,
		Error:       s.Error,
		CreatedAt:   formatJSONTime(s.CreatedAt),
		StartedAt:   formatJSONTime(s.StartedAt),
		FinishedAt:  formatJSONTime(s.FinishedAt),
	}
}

func formatJSONTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
