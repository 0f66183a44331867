// Package fileutil copies files into place without ever exposing a partial
// destination.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrExists is returned when the destination is present and Overwrite is
// false.
var ErrExists = errors.New("destination already exists")

// CopyOptions tunes CopyAtomic.
type CopyOptions struct {
	// Mode is applied to the destination; 0 means 0o644.
	Mode      os.FileMode
	Overwrite bool
}

// CopyAtomic streams src into a temporary sibling of dst, checks the copied
// size and SHA-256 against what was read, and renames the temporary file onto
// dst. It returns the hex digest of the content.
func CopyAtomic(src, dst string, opts CopyOptions) (string, error) {
	mode := opts.Mode
	if mode == 0 {
		mode = 0o644
	}
	if !opts.Overwrite {
		if _, err := os.Lstat(dst); err == nil {
			return "", fmt.Errorf("%w: %s", ErrExists, dst)
		}
	}

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, dstHasher), io.TeeReader(in, srcHasher))
	if err != nil {
		return "", err
	}
	if written != info.Size() {
		return "", fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), written)
	}
	sum := srcHasher.Sum(nil)
	if !bytes.Equal(sum, dstHasher.Sum(nil)) {
		return "", errors.New("copy hash mismatch: file corrupted during copy")
	}
	if err := tmp.Chmod(mode); err != nil {
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if !opts.Overwrite {
		// Link fails if dst appeared since the check above.
		if err := os.Link(tmpPath, dst); err != nil {
			if errors.Is(err, os.ErrExist) {
				return "", fmt.Errorf("%w: %s", ErrExists, dst)
			}
			return "", err
		}
		_ = os.Remove(tmpPath)
	} else if err := os.Rename(tmpPath, dst); err != nil {
		return "", err
	}
	committed = true
	return hex.EncodeToString(sum), nil
}
