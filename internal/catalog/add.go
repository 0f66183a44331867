package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cubemix/internal/fileutil"
	"cubemix/internal/lut"
)

// AddOptions tunes Add.
type AddOptions struct {
	// Name renames the file inside the catalog; ".cube" is appended when
	// missing. Empty keeps the source file name.
	Name      string
	Overwrite bool
}

// Add validates src as a LUT and copies it into dir. The copy is verified
// and atomic, so a concurrent Load never sees a half-written file.
func Add(dir, src string, opts AddOptions) (Entry, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return Entry{}, fmt.Errorf("read %s: %w", src, err)
	}
	if _, err := lut.Parse(data); err != nil {
		return Entry{}, fmt.Errorf("%s is not a usable LUT: %w", filepath.Base(src), err)
	}

	file := strings.TrimSpace(opts.Name)
	if file == "" {
		file = filepath.Base(src)
	}
	file = filepath.Base(file)
	if !strings.EqualFold(filepath.Ext(file), ".cube") {
		file += ".cube"
	}

	info, err := os.Stat(dir)
	if err != nil {
		return Entry{}, fmt.Errorf("catalog directory: %w", err)
	}
	if !info.IsDir() {
		return Entry{}, fmt.Errorf("catalog directory %q is not a directory", dir)
	}
	if _, err := fileutil.CopyAtomic(src, filepath.Join(dir, file), fileutil.CopyOptions{Overwrite: opts.Overwrite}); err != nil {
		return Entry{}, err
	}

	m, err := loadManifest(filepath.Join(dir, ManifestName))
	if err != nil {
		return Entry{}, err
	}
	return buildEntry(dir, file, m.lookup(file))
}
