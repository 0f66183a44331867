package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"cubemix/internal/job"
	"cubemix/internal/whitebalance"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	CatalogDir string `toml:"catalog_dir"`
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
}

// Export contains defaults for export jobs.
type Export struct {
	Quality     string  `toml:"quality"`
	Workers     int     `toml:"workers"` // 0 uses GOMAXPROCS
	PreferGPU   bool    `toml:"prefer_gpu"`
	Container   string  `toml:"container"`
	FrameRate   float64 `toml:"frame_rate"`
	Overwrite   bool    `toml:"overwrite"`
	NameOpacity string  `toml:"name_opacity"` // primary or secondary
}

// Preview contains single-frame preview settings.
type Preview struct {
	ToleranceMS       int   `toml:"tolerance_ms"`
	FallbackOffsetsMS []int `toml:"fallback_offsets_ms"`
}

// Grading contains the default grading chain parameters.
type Grading struct {
	PrimaryOpacity   float64 `toml:"primary_opacity"`
	SecondaryOpacity float64 `toml:"secondary_opacity"`
	WhiteBalance     float64 `toml:"white_balance"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for cubemix.
//
// Configuration sections:
//   - Paths: LUT catalog, job database and log locations
//   - Export: quality tier, worker count, output container
//   - Preview: decode tolerance and fallback timestamps
//   - Grading: default opacities and white balance
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Export  Export  `toml:"export"`
	Preview Preview `toml:"preview"`
	Grading Grading `toml:"grading"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories. The catalog
// directory is left alone; it is read-only input.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.LockDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the job database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "jobs.db")
}

// LogPath returns the file the logger appends to.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "cubemix.log")
}

// LockDir returns the directory holding per-destination export locks.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.StateDir, "locks")
}

// Tier returns the configured quality tier.
func (c *Config) Tier() job.Tier {
	tier, err := job.ParseTier(c.Export.Quality)
	if err != nil {
		return job.DefaultTier
	}
	return tier
}

// WhiteBalance returns the configured default adjustment.
func (c *Config) WhiteBalance() whitebalance.Adjustment {
	return whitebalance.Adjustment(c.Grading.WhiteBalance)
}

// PreviewTolerance returns the decode tolerance window for previews.
func (c *Config) PreviewTolerance() time.Duration {
	return time.Duration(c.Preview.ToleranceMS) * time.Millisecond
}

// PreviewFallbackOffsets returns the offsets tried after a preview decode
// failure, in order.
func (c *Config) PreviewFallbackOffsets() []time.Duration {
	out := make([]time.Duration, 0, len(c.Preview.FallbackOffsetsMS))
	for _, ms := range c.Preview.FallbackOffsetsMS {
		out = append(out, time.Duration(ms)*time.Millisecond)
	}
	return out
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
