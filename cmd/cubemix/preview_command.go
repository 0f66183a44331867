package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cubemix/internal/composite"
	"cubemix/internal/config"
	"cubemix/internal/imageseq"
	"cubemix/internal/pipeline"
)

type previewFlags struct {
	grading    gradingFlags
	at         time.Duration
	output     string
	noFallback bool
}

type previewView struct {
	Source      string `json:"source"`
	Output      string `json:"output"`
	RequestedMS int64  `json:"requested_ms"`
	ActualMS    int64  `json:"actual_ms"`
	Attempts    int    `json:"attempts"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Grade       string `json:"grade"`
}

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var flags previewFlags

	cmd := &cobra.Command{
		Use:   "preview <sequence-dir | image>",
		Short: "Grade a single frame and write it as an image",
		Long: "Grade a single frame and write it as an image.\n\n" +
			"For a sequence the frame nearest --at is used; if it cannot be decoded\n" +
			"the configured fallback offsets are tried in order. A single image file\n" +
			"is graded as is.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, ctx, args[0], flags)
		},
	}

	flags.grading.register(cmd)
	cmd.Flags().DurationVar(&flags.at, "at", 0, "Timestamp to preview, e.g. 1.5s")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Image to write; the extension picks png, tiff or hdr (default preview.png)")
	cmd.Flags().BoolVar(&flags.noFallback, "no-fallback", false, "Fail instead of trying nearby timestamps")
	return cmd
}

func runPreview(cmd *cobra.Command, ctx *commandContext, input string, flags previewFlags) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	if flags.at < 0 {
		return errors.New("--at must not be negative")
	}

	input, err = config.ExpandPath(input)
	if err != nil {
		return err
	}
	transform, err := ctx.buildTransform(flags.grading.effective(cmd, cfg))
	if err != nil {
		return err
	}

	output := strings.TrimSpace(flags.output)
	if output == "" {
		output = "preview.png"
	}
	if output, err = config.ExpandPath(output); err != nil {
		return err
	}

	info, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("inspect %q: %w", input, err)
	}

	var result pipeline.PreviewResult
	if info.IsDir() {
		src, err := imageseq.Open(input, imageseq.SourceOptions{FrameRate: cfg.Export.FrameRate, Logger: logger})
		if err != nil {
			return err
		}
		opts := pipeline.PreviewOptions{
			Tolerance:       cfg.PreviewTolerance(),
			FallbackOffsets: cfg.PreviewFallbackOffsets(),
			Workers:         cfg.Export.Workers,
		}
		if flags.noFallback {
			opts.FallbackOffsets = []time.Duration{}
		}
		result, err = pipeline.Preview(cmd.Context(), src, flags.at, composite.Build(transform), opts)
		if err != nil {
			return fmt.Errorf("preview: %s", pipeline.FailureReason(err))
		}
	} else {
		still, err := imageseq.ReadStill(input)
		if err != nil {
			return err
		}
		result, err = pipeline.Preview(cmd.Context(), imageseq.NewStill(still), 0, composite.Build(transform),
			pipeline.PreviewOptions{FallbackOffsets: []time.Duration{}, Workers: cfg.Export.Workers})
		if err != nil {
			return fmt.Errorf("preview: %s", pipeline.FailureReason(err))
		}
	}

	if err := imageseq.WriteStill(output, result.Frame); err != nil {
		return err
	}

	view := previewView{
		Source:      input,
		Output:      output,
		RequestedMS: result.Requested.Milliseconds(),
		ActualMS:    result.Actual.Milliseconds(),
		Attempts:    result.Attempts,
		Width:       result.Frame.Width,
		Height:      result.Frame.Height,
		Grade:       describeTransform(transform),
	}
	if ctx.JSONMode() {
		return writeJSON(cmd, view)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s (%dx%d)\n", filepath.Base(output), view.Width, view.Height)
	fmt.Fprintf(out, "Frame at %s", result.Actual)
	if result.Actual != result.Requested {
		fmt.Fprintf(out, " (requested %s, %d attempts)", result.Requested, result.Attempts)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Grade: %s\n", view.Grade)
	return nil
}
