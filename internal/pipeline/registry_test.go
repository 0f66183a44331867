package pipeline_test

import (
	"errors"
	"path/filepath"
	"testing"

	"cubemix/internal/pipeline"
)

func TestRegistryRejectsSecondAcquire(t *testing.T) {
	registry := pipeline.NewRegistry("")
	dest := filepath.Join(t.TempDir(), "out")

	release, err := registry.Acquire(dest, "job-a")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := registry.Acquire(dest+string(filepath.Separator), "job-b"); !errors.Is(err, pipeline.ErrDestinationBusy) {
		t.Fatalf("expected ErrDestinationBusy for the same path, got %v", err)
	}
	if holder, ok := registry.Holder(dest); !ok || holder != "job-a" {
		t.Fatalf("holder = %q, %v", holder, ok)
	}

	other, err := registry.Acquire(filepath.Join(filepath.Dir(dest), "other"), "job-c")
	if err != nil {
		t.Fatalf("unrelated destination rejected: %v", err)
	}
	other()

	release()
	release()
	again, err := registry.Acquire(dest, "job-b")
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	again()
}

func TestRegistryLockFileExcludesOtherRegistries(t *testing.T) {
	lockDir := filepath.Join(t.TempDir(), "locks")
	dest := filepath.Join(t.TempDir(), "out")
	a := pipeline.NewRegistry(lockDir)
	b := pipeline.NewRegistry(lockDir)

	release, err := a.Acquire(dest, "job-a")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := b.Acquire(dest, "job-b"); !errors.Is(err, pipeline.ErrDestinationBusy) {
		t.Fatalf("expected ErrDestinationBusy across registries, got %v", err)
	}
	if _, busy := b.Holder(dest); busy {
		t.Fatal("failed acquire must not leave an in-process claim")
	}

	release()
	releaseB, err := b.Acquire(dest, "job-b")
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	releaseB()
}

func TestRegistryRejectsEmptyDestination(t *testing.T) {
	if _, err := pipeline.NewRegistry("").Acquire("", "job"); err == nil {
		t.Fatal("expected error for empty destination")
	}
}
