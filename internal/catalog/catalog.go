// Package catalog lists the LUTs available in a directory.
//
// Loading is explicit: Load scans one directory for *.cube files, parses
// each to make sure it is usable, and applies an optional catalog.toml
// manifest that overrides display names, categories and tint swatches.
// Files that fail to parse are reported as problems, not errors, so one bad
// LUT never hides the rest.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"cubemix/internal/logging"
	"cubemix/internal/lut"
)

// ManifestName is the optional per-directory override file.
const ManifestName = "catalog.toml"

// ErrNotFound is returned by Lookup-based helpers for unknown names.
var ErrNotFound = errors.New("lut not found in catalog")

// Entry is one usable LUT.
type Entry struct {
	// Name is the file name without extension; it is the stable key.
	Name        string
	File        string
	Path        string
	DisplayName string
	Category    Category
	Title       string
	Size        int
	// Tint is a hex swatch of what the LUT does to mid grey.
	Tint string
}

// Problem is a file that could not be catalogued.
type Problem struct {
	File string
	Err  error
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %v", p.File, p.Err)
}

// Catalog is an immutable snapshot of a directory.
type Catalog struct {
	Dir      string
	Entries  []Entry
	Problems []Problem
	byName   map[string]int
}

// Options tunes Load.
type Options struct {
	Logger *slog.Logger
	// IncludeHidden keeps entries the manifest marks hidden.
	IncludeHidden bool
}

// Load scans dir. A missing directory is an error; a missing manifest is not.
func Load(dir string, opts Options) (*Catalog, error) {
	logger := logging.NewComponentLogger(opts.Logger, "catalog")
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("catalog directory %q is not a directory", dir)
	}

	manifest, err := loadManifest(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, err
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read catalog directory: %w", err)
	}

	cat := &Catalog{Dir: dir, byName: make(map[string]int)}
	seen := make(map[string]bool)
	for _, f := range files {
		if f.IsDir() || !strings.EqualFold(filepath.Ext(f.Name()), ".cube") {
			continue
		}
		seen[strings.ToLower(f.Name())] = true
		override := manifest.lookup(f.Name())
		if override.Hidden && !opts.IncludeHidden {
			continue
		}
		entry, err := buildEntry(dir, f.Name(), override)
		if err != nil {
			cat.Problems = append(cat.Problems, Problem{File: f.Name(), Err: err})
			logging.WarnWithContext(logger, "lut skipped", "catalog_entry_invalid",
				logging.String("file", f.Name()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "this LUT is not selectable"),
			)
			continue
		}
		cat.Entries = append(cat.Entries, entry)
	}
	for _, item := range manifest.LUTs {
		if !seen[strings.ToLower(item.File)] {
			cat.Problems = append(cat.Problems, Problem{File: item.File, Err: errors.New("listed in manifest but not present")})
		}
	}

	sort.Slice(cat.Entries, func(i, j int) bool {
		a, b := cat.Entries[i], cat.Entries[j]
		if a.DisplayName != b.DisplayName {
			return a.DisplayName < b.DisplayName
		}
		return a.Name < b.Name
	})
	for i, e := range cat.Entries {
		cat.byName[strings.ToLower(e.Name)] = i
	}
	logger.Debug("catalog loaded",
		logging.String("dir", dir),
		logging.Int("entries", len(cat.Entries)),
		logging.Int("problems", len(cat.Problems)),
	)
	return cat, nil
}

func buildEntry(dir, file string, override manifestEntry) (Entry, error) {
	path := filepath.Join(dir, file)
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, err
	}
	table, err := lut.Parse(data)
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{
		Name:        stripExt(file),
		File:        file,
		Path:        path,
		DisplayName: DisplayName(file),
		Category:    InferCategory(file),
		Title:       table.Title(),
		Size:        table.Size(),
		Tint:        Tint(table),
	}
	if name := strings.TrimSpace(override.Name); name != "" {
		entry.DisplayName = name
	}
	if override.Category != "" {
		category, err := ParseCategory(override.Category)
		if err != nil {
			return Entry{}, fmt.Errorf("manifest: %w", err)
		}
		entry.Category = category
	}
	if override.Tint != "" {
		swatch, err := colorful.Hex(override.Tint)
		if err != nil {
			return Entry{}, fmt.Errorf("manifest tint %q: %w", override.Tint, err)
		}
		entry.Tint = swatch.Hex()
	}
	return entry, nil
}

// Tint samples table at mid grey and renders the result as a hex colour.
func Tint(table *lut.Table) string {
	c := table.Sample(lut.RGB{R: 0.5, G: 0.5, B: 0.5})
	return colorful.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B)}.Clamped().Hex()
}

// Lookup finds an entry by name, file name or display name, ignoring case.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if i, ok := c.byName[key]; ok {
		return c.Entries[i], true
	}
	if i, ok := c.byName[strings.ToLower(stripExt(key))]; ok && strings.EqualFold(filepath.Ext(key), ".cube") {
		return c.Entries[i], true
	}
	for _, e := range c.Entries {
		if strings.EqualFold(e.DisplayName, key) {
			return e, true
		}
	}
	return Entry{}, false
}

// ReadFile returns the raw .cube bytes for name, ready for
// composite.Slots.Load.
func (c *Catalog) ReadFile(name string) ([]byte, Entry, error) {
	entry, ok := c.Lookup(name)
	if !ok {
		return nil, Entry{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	data, err := os.ReadFile(entry.Path)
	if err != nil {
		return nil, entry, fmt.Errorf("read %s: %w", entry.File, err)
	}
	return data, entry, nil
}

// ByCategory groups entries, preserving display order within each group.
func (c *Catalog) ByCategory() map[Category][]Entry {
	out := make(map[Category][]Entry)
	for _, e := range c.Entries {
		out[e.Category] = append(out[e.Category], e)
	}
	return out
}
