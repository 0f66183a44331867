package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"cubemix/internal/lut"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path string, content []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteCube encodes table as .cube text at dir/name and returns the path.
func WriteCube(t testing.TB, dir, name string, table *lut.Table) string {
	t.Helper()

	path := filepath.Join(dir, name)
	WriteFile(t, path, lut.Marshal(table))
	return path
}

// ScaledCube returns a size-n table that multiplies every channel by gain.
func ScaledCube(t testing.TB, n int, gain float32) *lut.Table {
	t.Helper()

	entries := lut.Identity(n).Entries()
	for i := range entries {
		entries[i] = entries[i].Mul(lut.RGB{R: gain, G: gain, B: gain})
	}
	table, err := lut.NewTable(n, entries)
	if err != nil {
		t.Fatalf("lut.NewTable: %v", err)
	}
	return table
}
