package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cubemix/internal/job"
	"cubemix/internal/queue"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect the export job journal",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsStatusCommand(ctx))
	jobsCmd.AddCommand(newJobsClearCommand(ctx))
	jobsCmd.AddCommand(newJobsHealthCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var listStates []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List export jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var states []job.State
			for _, raw := range listStates {
				state, err := job.ParseState(strings.ToLower(strings.TrimSpace(raw)))
				if err != nil {
					return err
				}
				states = append(states, state)
			}
			return ctx.withStore(func(store *queue.Store) error {
				jobs, err := store.ListJobs(cmd.Context(), states...)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					views := make([]jobView, 0, len(jobs))
					for _, j := range jobs {
						views = append(views, newJobView(j))
					}
					return writeJSON(cmd, views)
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]column{
					{header: "ID"},
					{header: "Source"},
					{header: "State"},
					{header: "Tier"},
					{header: "Progress", align: alignRight},
					{header: "Created"},
				}, buildJobRows(jobs)))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&listStates, "state", "s", nil, "Only list jobs in these states (repeatable)")
	return cmd
}

func buildJobRows(jobs []job.Status) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, []string{
			shortID(j.ID),
			filepath.Base(j.Source),
			string(j.State),
			string(j.Tier),
			formatProgress(j),
			j.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return rows
}

func formatProgress(s job.Status) string {
	if s.Progress.TotalFrames > 0 {
		return fmt.Sprintf("%d/%d %3.0f%%", s.Progress.FramesDone, s.Progress.TotalFrames, s.Progress.Fraction*100)
	}
	return fmt.Sprintf("%3.0f%%", s.Progress.Fraction*100)
}

type jobDetailView struct {
	jobView
	History []progressView `json:"history"`
}

type progressView struct {
	FramesDone  int     `json:"frames_done"`
	TotalFrames int     `json:"total_frames"`
	Fraction    float64 `json:"fraction"`
	TimestampMS int64   `json:"timestamp_ms"`
	RecordedAt  string  `json:"recorded_at"`
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job and its progress history (id prefixes of 4+ characters work)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				status, err := store.FindJob(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				history, err := store.ProgressHistory(cmd.Context(), status.ID)
				if err != nil {
					return err
				}

				if ctx.JSONMode() {
					view := jobDetailView{jobView: newJobView(status), History: []progressView{}}
					for _, p := range history {
						view.History = append(view.History, progressView{
							FramesDone:  p.FramesDone,
							TotalFrames: p.TotalFrames,
							Fraction:    p.Fraction,
							TimestampMS: p.Timestamp.Milliseconds(),
							RecordedAt:  formatJSONTime(p.UpdatedAt),
						})
					}
					return writeJSON(cmd, view)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:          %s\n", status.ID)
				fmt.Fprintf(out, "State:       %s\n", status.State)
				fmt.Fprintf(out, "Source:      %s\n", status.Source)
				fmt.Fprintf(out, "Destination: %s\n", status.Destination)
				fmt.Fprintf(out, "Quality:     %s\n", status.Tier)
				fmt.Fprintf(out, "Progress:    %s\n", formatProgress(status))
				if status.Output != "" {
					fmt.Fprintf(out, "Output:      %s\n", status.Output)
				}
				if status.Error != "" {
					fmt.Fprintf(out, "Error:       %s\n", status.Error)
				}
				fmt.Fprintf(out, "Created:     %s\n", status.CreatedAt.Local().Format(time.RFC3339))
				if !status.StartedAt.IsZero() && !status.FinishedAt.IsZero() {
					fmt.Fprintf(out, "Duration:    %s\n", status.FinishedAt.Sub(status.StartedAt).Round(time.Millisecond))
				}
				fmt.Fprintf(out, "Updates:     %d recorded\n", len(history))
				return nil
			})
		},
	}
}

func newJobsStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Count jobs by state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					out := make(map[string]int, len(stats))
					for state, n := range stats {
						out[string(state)] = n
					}
					return writeJSON(cmd, out)
				}
				rows := buildStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]column{{header: "State"}, {header: "Count", align: alignRight}}, rows))
				return nil
			})
		},
	}
}

// buildStatusRows lists known states in lifecycle order, skipping zeros.
func buildStatusRows(stats map[job.State]int) [][]string {
	var rows [][]string
	for _, state := range job.AllStates() {
		if n := stats[state]; n > 0 {
			rows = append(rows, []string{string(state), strconv.Itoa(n)})
		}
	}
	return rows
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete finished jobs and their progress history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				n, err := store.ClearFinished(cmd.Context(), olderThan)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d finished jobs\n", n)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only remove jobs that finished longer ago than this, e.g. 168h")
	return cmd
}

func newJobsHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check job database health (schema, integrity, columns)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, health)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database path: %s\n", health.DBPath)
				fmt.Fprintf(out, "Database exists: %s\n", yesNo(health.DatabaseExists))
				if !health.DatabaseExists {
					return nil
				}
				fmt.Fprintf(out, "Schema version: %d\n", health.SchemaVersion)
				fmt.Fprintf(out, "Jobs table: %s\n", yesNo(health.JobsTable))
				fmt.Fprintf(out, "Progress table: %s\n", yesNo(health.ProgressTable))
				fmt.Fprintf(out, "Progress linked to jobs: %s\n", yesNo(health.ProgressLinked))
				fmt.Fprintf(out, "Foreign keys enforced: %s\n", yesNo(health.ForeignKeysEnforced))
				fmt.Fprintf(out, "Integrity check: %s\n", yesNo(health.IntegrityCheck))
				fmt.Fprintf(out, "Jobs: %d (%d running)\n", health.TotalJobs, health.RunningJobs)
				fmt.Fprintf(out, "Progress events: %d\n", health.ProgressEvents)

				colorize := isTerminal(out)
				problems := health.Problems()
				if len(problems) == 0 {
					fmt.Fprintln(out, renderStatusLine("Journal", statusOK, "healthy", colorize))
				}
				for _, p := range problems {
					fmt.Fprintln(out, renderStatusLine("Journal", statusError, p, colorize))
				}
				return nil
			})
		},
	}
}
