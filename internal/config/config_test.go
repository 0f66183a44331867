package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pelletier/go-toml/v2"

	"cubemix/internal/config"
	"cubemix/internal/job"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CUBEMIX_CATALOG_DIR", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "cubemix")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Paths.CatalogDir != filepath.Join(wantState, "luts") {
		t.Fatalf("unexpected catalog dir: %q", cfg.Paths.CatalogDir)
	}
	if cfg.DatabasePath() != filepath.Join(wantState, "jobs.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Tier() != job.TierHigh {
		t.Fatalf("unexpected default tier: %q", cfg.Tier())
	}
	if cfg.Export.Container != "png" {
		t.Fatalf("unexpected default container: %q", cfg.Export.Container)
	}
	wantOffsets := []time.Duration{100 * time.Millisecond, -100 * time.Millisecond, 500 * time.Millisecond, time.Second}
	if diff := cmp.Diff(wantOffsets, cfg.PreviewFallbackOffsets()); diff != "" {
		t.Fatalf("fallback offsets mismatch (-want +got):\n%s", diff)
	}
	if cfg.PreviewTolerance() != 50*time.Millisecond {
		t.Fatalf("unexpected tolerance: %v", cfg.PreviewTolerance())
	}
}

func TestLoadCatalogDirFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	envDir := t.TempDir()
	t.Setenv("CUBEMIX_CATALOG_DIR", envDir)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[paths]\ncatalog_dir = \"\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected explicit config to exist")
	}
	if cfg.Paths.CatalogDir != envDir {
		t.Fatalf("catalog dir = %q, want %q", cfg.Paths.CatalogDir, envDir)
	}
}

func TestLoadNormalizesValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[export]
quality = " Maximum "
container = ".TIF"

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tier() != job.TierMaximum {
		t.Fatalf("tier = %q", cfg.Tier())
	}
	if cfg.Export.Container != "tiff" {
		t.Fatalf("container = %q", cfg.Export.Container)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging not normalized: %+v", cfg.Logging)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"tier", "[export]\nquality = \"ultra\"\n", "export.quality"},
		{"container", "[export]\ncontainer = \"mkv\"\n", "export.container"},
		{"workers", "[export]\nworkers = -1\n", "export.workers"},
		{"name opacity", "[export]\nname_opacity = \"tertiary\"\n", "export.name_opacity"},
		{"opacity", "[grading]\nprimary_opacity = 1.5\n", "grading.primary_opacity"},
		{"white balance", "[grading]\nwhite_balance = 11.0\n", "grading.white_balance"},
		{"log format", "[logging]\nformat = \"xml\"\n", "logging.format"},
		{"unknown key", "[export]\nbitrate = 5\n", "parse config"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	var decoded config.Config
	if err := toml.Unmarshal([]byte(config.SampleConfig()), &decoded); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	want := config.Default()
	if diff := cmp.Diff(want, decoded); diff != "" {
		t.Fatalf("sample config drifted from defaults (-want +got):\n%s", diff)
	}
}

func TestCreateSampleWritesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("Load sample: exists=%v err=%v", exists, err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir, cfg.LockDir()} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
