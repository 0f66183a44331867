package config

import (
	"errors"
	"fmt"
	"math"

	"cubemix/internal/job"
	"cubemix/internal/whitebalance"
)

// Containers lists the output containers the built-in frame sink can write.
var Containers = []string{"png", "tiff", "hdr"}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validatePreview(); err != nil {
		return err
	}
	if err := c.validateGrading(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateExport() error {
	if _, err := job.ParseTier(c.Export.Quality); err != nil {
		return fmt.Errorf("export.quality: %w", err)
	}
	if c.Export.Workers < 0 {
		return errors.New("export.workers must be >= 0")
	}
	if !containsString(Containers, c.Export.Container) {
		return fmt.Errorf("export.container: unsupported value %q (want png, tiff or hdr)", c.Export.Container)
	}
	if _, err := job.ParseNameOpacity(c.Export.NameOpacity); err != nil {
		return fmt.Errorf("export.name_opacity: %w", err)
	}
	if c.Export.FrameRate <= 0 || math.IsNaN(c.Export.FrameRate) || math.IsInf(c.Export.FrameRate, 0) {
		return errors.New("export.frame_rate must be positive")
	}
	return nil
}

func (c *Config) validatePreview() error {
	if c.Preview.ToleranceMS < 0 {
		return errors.New("preview.tolerance_ms must be >= 0")
	}
	if len(c.Preview.FallbackOffsetsMS) > 8 {
		return errors.New("preview.fallback_offsets_ms allows at most 8 entries")
	}
	return nil
}

func (c *Config) validateGrading() error {
	if !unitInterval(c.Grading.PrimaryOpacity) {
		return errors.New("grading.primary_opacity must be between 0 and 1")
	}
	if !unitInterval(c.Grading.SecondaryOpacity) {
		return errors.New("grading.secondary_opacity must be between 0 and 1")
	}
	wb := whitebalance.Adjustment(c.Grading.WhiteBalance)
	if math.IsNaN(c.Grading.WhiteBalance) || wb < whitebalance.Min || wb > whitebalance.Max {
		return fmt.Errorf("grading.white_balance must be between %v and %v", whitebalance.Min, whitebalance.Max)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func unitInterval(v float64) bool {
	return v >= 0 && v <= 1
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
