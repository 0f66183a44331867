package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// DefaultPoll is how often Follow checks the file for new data.
const DefaultPoll = 250 * time.Millisecond

const maxLineBytes = 1 << 20

// Matcher keeps a line when it returns true. A nil Matcher keeps everything.
type Matcher func(line string) bool

// Contains keeps lines that include substr. An empty substr matches all lines.
func Contains(substr string) Matcher {
	if substr == "" {
		return nil
	}
	return func(line string) bool { return strings.Contains(line, substr) }
}

// Last returns up to n matching lines from the end of path and the offset
// just past the last complete line. A missing file yields no lines and
// offset 0. n <= 0 returns no lines but still reports the offset.
func Last(path string, n int, match Matcher) ([]string, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if info, err := file.Stat(); err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	} else if info.IsDir() {
		return nil, 0, fmt.Errorf("log path %q is a directory", path)
	}

	var ring []string
	if n > 0 {
		ring = make([]string, 0, n)
	}
	offset, err := scanLines(file, 0, func(line string) {
		if n <= 0 || (match != nil && !match(line)) {
			return
		}
		if len(ring) == n {
			copy(ring, ring[1:])
			ring = ring[:n-1]
		}
		ring = append(ring, line)
	})
	return ring, offset, err
}

// Follow emits matching lines appended to path after offset until ctx is
// done. When the file shrinks below offset it is treated as rotated and read
// from the start. Cancellation is not an error.
func Follow(ctx context.Context, path string, offset int64, poll time.Duration, match Matcher, emit func(string)) error {
	if poll <= 0 {
		poll = DefaultPoll
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		next, err := readAppended(path, offset, match, emit)
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func readAppended(path string, offset int64, match Matcher, emit func(string)) (int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < offset {
		offset = 0
	}
	if info.Size() == offset {
		return offset, nil
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	return scanLines(file, offset, func(line string) {
		if match == nil || match(line) {
			emit(line)
		}
	})
}

// scanLines calls fn for every newline-terminated line read from r and
// returns start plus the bytes consumed. A trailing partial line is left for
// the next read.
func scanLines(r io.Reader, start int64, fn func(string)) (int64, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	offset := start
	for {
		line, err := br.ReadString('\n')
		if err == io.EOF {
			return offset, nil
		}
		if err != nil {
			return offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		line = strings.TrimRight(line, "\r\n")
		if len(line) > maxLineBytes {
			line = line[:maxLineBytes]
		}
		fn(line)
	}
}
