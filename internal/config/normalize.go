package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeExport()
	c.normalizePreview()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.CatalogDir) == "" {
		if value, ok := os.LookupEnv("CUBEMIX_CATALOG_DIR"); ok && strings.TrimSpace(value) != "" {
			c.Paths.CatalogDir = value
		} else {
			c.Paths.CatalogDir = defaultCatalogDir
		}
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}

	var err error
	if c.Paths.CatalogDir, err = expandPath(strings.TrimSpace(c.Paths.CatalogDir)); err != nil {
		return fmt.Errorf("paths.catalog_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeExport() {
	c.Export.Quality = strings.ToLower(strings.TrimSpace(c.Export.Quality))
	if c.Export.Quality == "" {
		c.Export.Quality = defaultQuality
	}
	c.Export.Container = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Export.Container), "."))
	if c.Export.Container == "" {
		c.Export.Container = defaultContainer
	}
	if c.Export.Container == "tif" {
		c.Export.Container = "tiff"
	}
	c.Export.NameOpacity = strings.ToLower(strings.TrimSpace(c.Export.NameOpacity))
	if c.Export.NameOpacity == "" {
		c.Export.NameOpacity = defaultNameOpacity
	}
	if c.Export.FrameRate == 0 {
		c.Export.FrameRate = defaultFrameRate
	}
}

func (c *Config) normalizePreview() {
	if c.Preview.FallbackOffsetsMS == nil {
		c.Preview.FallbackOffsetsMS = append([]int(nil), defaultFallbackOffsetsMS...)
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
