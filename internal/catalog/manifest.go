package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type manifestEntry struct {
	File     string `toml:"file"`
	Name     string `toml:"name"`
	Category string `toml:"category"`
	Tint     string `toml:"tint"`
	Hidden   bool   `toml:"hidden"`
}

type manifest struct {
	LUTs []manifestEntry `toml:"lut"`
}

func loadManifest(path string) (manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return manifest{}, nil
	}
	if err != nil {
		return manifest{}, fmt.Errorf("read catalog manifest: %w", err)
	}

	var m manifest
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return manifest{}, fmt.Errorf("parse catalog manifest %s: %w", path, err)
	}
	for i, item := range m.LUTs {
		if strings.TrimSpace(item.File) == "" {
			return manifest{}, fmt.Errorf("catalog manifest %s: lut entry %d has no file", path, i+1)
		}
	}
	return m, nil
}

func (m manifest) lookup(file string) manifestEntry {
	for _, item := range m.LUTs {
		if strings.EqualFold(strings.TrimSpace(item.File), file) {
			return item
		}
	}
	return manifestEntry{}
}
