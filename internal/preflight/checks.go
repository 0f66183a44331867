package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"cubemix/internal/catalog"
	"cubemix/internal/queue"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckOutputParent verifies that dest can be created: its parent must be a
// writable directory. dest itself may or may not exist.
func CheckOutputParent(dest string) Result {
	const name = "Output location"
	abs, err := filepath.Abs(dest)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", dest, err)}
	}
	parent := filepath.Dir(abs)
	check := CheckDirectoryAccess(name, parent)
	if !check.Passed {
		return check
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (parent writable)", abs)}
}

// CheckCatalog loads the LUT catalog and reports how many LUTs are usable.
// Unparseable files fail the check but do not stop the others from loading.
func CheckCatalog(dir string) Result {
	const name = "LUT catalog"
	cat, err := catalog.Load(dir, catalog.Options{})
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("error: %v", err)}
	}
	if len(cat.Problems) > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%d usable, %d invalid (first: %s)", len(cat.Entries), len(cat.Problems), cat.Problems[0])}
	}
	if len(cat.Entries) == 0 {
		return Result{Name: name, Passed: true, Detail: "empty (LUTs can still be passed by path)"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d LUTs", len(cat.Entries))}
}

// CheckJobStore opens the job database and runs its integrity checks. A
// database that does not exist yet passes; it is created on first export.
func CheckJobStore(ctx context.Context, dbPath string) Result {
	const name = "Job database"
	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (not created yet)", dbPath)}
	}
	store, err := queue.OpenPath(dbPath)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", dbPath, err)}
	}
	defer store.Close()

	health, err := store.CheckHealth(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", dbPath, err)}
	}
	if problems := health.Problems(); len(problems) > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s)", dbPath, strings.Join(problems, "; "))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d jobs)", dbPath, health.TotalJobs)}
}
