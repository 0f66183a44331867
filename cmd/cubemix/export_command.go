package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cubemix/internal/composite"
	"cubemix/internal/config"
	"cubemix/internal/imageseq"
	"cubemix/internal/job"
	"cubemix/internal/logging"
	"cubemix/internal/pipeline"
	"cubemix/internal/preflight"
	"cubemix/internal/queue"
)

type exportFlags struct {
	grading     gradingFlags
	output      string
	outputDir   string
	quality     string
	container   string
	nameOpacity string
	workers     int
	overwrite   bool
	gpu         bool
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   "export <sequence-dir>",
		Short: "Grade every frame of an image sequence into a new sequence",
		Long: "Grade every frame of an image sequence into a new sequence.\n\n" +
			"Without --output the result is written next to the input as\n" +
			"<input>_converted_<secondary|NoSecondLUT>_<percent>percent.<container>,\n" +
			"where percent is the primary LUT opacity, or the secondary one with\n" +
			"--name-opacity secondary (export.name_opacity in the config).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, ctx, args[0], flags)
		},
	}

	flags.grading.register(cmd)
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output sequence directory (overrides the generated name)")
	cmd.Flags().StringVar(&flags.outputDir, "output-dir", "", "Directory for the generated output name (default: next to the input)")
	cmd.Flags().StringVarP(&flags.quality, "quality", "q", "", "Quality tier: low, medium, high or maximum")
	cmd.Flags().StringVar(&flags.container, "container", "", "Frame format: png, tiff or hdr")
	cmd.Flags().StringVar(&flags.nameOpacity, "name-opacity", "", "Opacity reported in the generated name: primary or secondary")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "Frame workers (default from config)")
	cmd.Flags().BoolVar(&flags.overwrite, "overwrite", false, "Replace an existing output")
	cmd.Flags().BoolVar(&flags.gpu, "gpu", false, "Prefer GPU encoding where the sink supports it")
	return cmd
}

func runExport(cmd *cobra.Command, ctx *commandContext, input string, flags exportFlags) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	input, err = config.ExpandPath(input)
	if err != nil {
		return err
	}
	grading := flags.grading.effective(cmd, cfg)
	transform, err := ctx.buildTransform(grading)
	if err != nil {
		return err
	}

	tier := cfg.Tier()
	if strings.TrimSpace(flags.quality) != "" {
		if tier, err = job.ParseTier(flags.quality); err != nil {
			return err
		}
	}
	container := cfg.Export.Container
	if strings.TrimSpace(flags.container) != "" {
		container = flags.container
	}
	workers := cfg.Export.Workers
	if cmd.Flags().Changed("workers") {
		workers = flags.workers
	}
	overwrite := cfg.Export.Overwrite || flags.overwrite
	nameOpacity := cfg.Export.NameOpacity
	if strings.TrimSpace(flags.nameOpacity) != "" {
		nameOpacity = flags.nameOpacity
	}
	which, err := job.ParseNameOpacity(nameOpacity)
	if err != nil {
		return err
	}
	opacity := which.Pick(grading.primaryOpacity, grading.secondaryOpacity, transform.SecondaryName() != "")

	dest, err := exportDestination(input, transform, opacity, container, flags)
	if err != nil {
		return err
	}
	if check := preflight.CheckOutputParent(dest); !check.Passed {
		return fmt.Errorf("output location: %s", check.Detail)
	}

	src, err := imageseq.Open(input, imageseq.SourceOptions{FrameRate: cfg.Export.FrameRate, Logger: logger})
	if err != nil {
		return err
	}

	return ctx.withStore(func(store *queue.Store) error {
		if n, err := store.ResetInterrupted(cmd.Context()); err != nil {
			return err
		} else if n > 0 {
			logging.WarnWithContext(logger, "marked interrupted jobs as failed", "jobs_interrupted",
				logging.Int("count", int(n)),
				logging.String(logging.FieldImpact, "a previous export did not finish"),
			)
		}

		j := job.New(job.Request{
			Source:      input,
			Destination: dest,
			FrameCount:  src.FrameCount(),
			Tier:        tier,
			Container:   container,
			PreferGPU:   cfg.Export.PreferGPU || flags.gpu,
		})
		sink := imageseq.NewSink(dest, imageseq.SinkOptions{
			FrameRate: src.FrameRate(),
			Overwrite: overwrite,
			Logger:    logger,
		})

		errOut := cmd.ErrOrStderr()
		progress := newProgressPrinter(errOut, isTerminal(errOut) && !ctx.JSONMode())
		runner := pipeline.NewRunner(pipeline.Options{
			Workers:    workers,
			Logger:     logger,
			OnProgress: progress.update,
			Recorder:   store,
			Registry:   pipeline.NewRegistry(cfg.LockDir()),
		})

		runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		summary, runErr := runner.Run(runCtx, j, src, composite.Build(transform), sink)
		progress.finish()

		if ctx.JSONMode() {
			if err := writeJSON(cmd, newJobView(j.Snapshot())); err != nil {
				return err
			}
		} else {
			printExportSummary(cmd.OutOrStdout(), summary, transform, runErr)
		}
		if runErr != nil {
			if pipeline.KindOf(runErr) == pipeline.KindCancelled {
				return context.Canceled
			}
			return fmt.Errorf("export %s: %s", shortID(summary.JobID), pipeline.FailureReason(runErr))
		}
		return nil
	})
}

// exportDestination resolves --output, or builds the conventional name in
// --output-dir or next to the input.
func exportDestination(input string, transform composite.Transform, opacity float64, container string, flags exportFlags) (string, error) {
	if out := strings.TrimSpace(flags.output); out != "" {
		return config.ExpandPath(out)
	}
	dir := filepath.Dir(filepath.Clean(input))
	if d := strings.TrimSpace(flags.outputDir); d != "" {
		expanded, err := config.ExpandPath(d)
		if err != nil {
			return "", err
		}
		dir = expanded
	}
	if container == "" {
		container = "png"
	}
	name := job.OutputName(input, transform.SecondaryName(), opacity, container)
	return filepath.Join(dir, name), nil
}

func printExportSummary(out io.Writer, summary pipeline.Summary, transform composite.Transform, runErr error) {
	fmt.Fprintf(out, "Job:      %s\n", summary.JobID)
	fmt.Fprintf(out, "State:    %s\n", summary.State)
	fmt.Fprintf(out, "Frames:   %d\n", summary.Frames)
	if summary.Settings.Tier != "" {
		fmt.Fprintf(out, "Quality:  %s (%d kbps)\n", summary.Settings.Tier, summary.Settings.BitrateKbps)
	}
	fmt.Fprintf(out, "Grade:    %s\n", describeTransform(transform))
	if summary.Output != "" {
		fmt.Fprintf(out, "Output:   %s\n", summary.Output)
	}
	if summary.Elapsed > 0 {
		fmt.Fprintf(out, "Elapsed:  %s\n", summary.Elapsed.Round(time.Millisecond))
	}
	if runErr != nil {
		fmt.Fprintf(out, "Reason:   %s\n", pipeline.FailureReason(runErr))
	}
}

func describeTransform(t composite.Transform) string {
	if t.IsIdentity() {
		return "none"
	}
	var parts []string
	if !t.WhiteBalance.IsNeutral() {
		parts = append(parts, "white balance "+t.WhiteBalance.Label())
	}
	for _, st := range []*composite.Stage{t.Primary, t.Secondary} {
		if st == nil || st.Table == nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s @ %.0f%%", st.Name, float64(st.Opacity)*100))
	}
	return strings.Join(parts, " -> ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// progressPrinter redraws one status line on a terminal and stays silent
// otherwise; structured progress still goes to the log.
type progressPrinter struct {
	out     io.Writer
	enabled bool
	drawn   bool
}

func newProgressPrinter(out io.Writer, enabled bool) *progressPrinter {
	return &progressPrinter{out: out, enabled: enabled}
}

func (p *progressPrinter) update(pr job.Progress) {
	if !p.enabled {
		return
	}
	frames := fmt.Sprintf("%d", pr.FramesDone)
	if pr.TotalFrames > 0 {
		frames = fmt.Sprintf("%d/%d", pr.FramesDone, pr.TotalFrames)
	}
	fmt.Fprintf(p.out, "\r%s %5.1f%%  %s frames", renderProgressBar(pr.Fraction, 30), pr.Fraction*100, frames)
	p.drawn = true
}

func (p *progressPrinter) finish() {
	if p.drawn {
		fmt.Fprintln(p.out)
	}
}
