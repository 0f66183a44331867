// Package config loads, normalizes, and validates cubemix configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the CUBEMIX_CATALOG_DIR
// environment fallback. The Config type centralizes the export, preview and
// grading defaults the CLI needs.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
