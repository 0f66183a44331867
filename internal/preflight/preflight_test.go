package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cubemix/internal/lut"
	"cubemix/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckOutputParent(t *testing.T) {
	dir := t.TempDir()
	if result := CheckOutputParent(filepath.Join(dir, "render")); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckOutputParent(filepath.Join(dir, "missing", "render")); result.Passed {
		t.Fatal("expected failure when the parent does not exist")
	}
}

func TestCheckCatalog(t *testing.T) {
	dir := t.TempDir()
	if result := CheckCatalog(dir); !result.Passed || !strings.Contains(result.Detail, "empty") {
		t.Fatalf("empty catalog: %+v", result)
	}

	testsupport.WriteCube(t, dir, "warm.cube", lut.Identity(2))
	if result := CheckCatalog(dir); !result.Passed || result.Detail != "1 LUTs" {
		t.Fatalf("valid catalog: %+v", result)
	}

	testsupport.WriteFile(t, filepath.Join(dir, "bad.cube"), []byte("LUT_3D_SIZE 300\n"))
	result := CheckCatalog(dir)
	if result.Passed || !strings.Contains(result.Detail, "bad.cube") {
		t.Fatalf("invalid catalog: %+v", result)
	}

	if result := CheckCatalog(filepath.Join(dir, "nope")); result.Passed {
		t.Fatal("expected failure for missing catalog")
	}
}

func TestCheckJobStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	if result := CheckJobStore(ctx, cfg.DatabasePath()); !result.Passed || !strings.Contains(result.Detail, "not created") {
		t.Fatalf("missing db: %+v", result)
	}

	testsupport.MustOpenStore(t, cfg)
	if result := CheckJobStore(ctx, cfg.DatabasePath()); !result.Passed || !strings.Contains(result.Detail, "0 jobs") {
		t.Fatalf("fresh db: %+v", result)
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	results := RunAll(context.Background(), cfg)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
	if RunAll(context.Background(), nil) != nil {
		t.Fatal("nil config should yield no results")
	}
}
