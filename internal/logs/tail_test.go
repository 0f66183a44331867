package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cubemix/internal/logs"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append log: %v", err)
	}
}

func TestLastReturnsFinalLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cubemix.log")
	writeLog(t, path, "a\nb\nc\npartial")

	lines, offset, err := logs.Last(path, 2, nil)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if offset != int64(len("a\nb\nc\n")) {
		t.Fatalf("offset = %d, want end of last complete line", offset)
	}
}

func TestLastFiltersByJob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cubemix.log")
	writeLog(t, path, "job_id=aaa started\njob_id=bbb started\njob_id=aaa done\n")

	lines, _, err := logs.Last(path, 10, logs.Contains("aaa"))
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if len(lines) != 2 || lines[1] != "job_id=aaa done" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
}

func TestLastMissingFile(t *testing.T) {
	lines, offset, err := logs.Last(filepath.Join(t.TempDir(), "none.log"), 5, nil)
	if err != nil || len(lines) != 0 || offset != 0 {
		t.Fatalf("missing file: lines=%v offset=%d err=%v", lines, offset, err)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cubemix.log")
	writeLog(t, path, "start\n")
	_, offset, err := logs.Last(path, 0, nil)
	if err != nil {
		t.Fatalf("last: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, 10*time.Millisecond, nil, func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
		})
	}()

	appendLog(t, path, "later\n")
	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("follow did not deliver the appended line")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("follow returned %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "later" {
		t.Fatalf("unexpected follow lines: %#v", got)
	}
}

func TestFollowRestartsAfterTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cubemix.log")
	writeLog(t, path, "old line one\nold line two\n")
	_, offset, err := logs.Last(path, 0, nil)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	writeLog(t, path, "new\n")

	ctx, cancel := context.WithCancel(context.Background())
	var got []string
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	if err := logs.Follow(ctx, path, offset, 10*time.Millisecond, nil, func(line string) {
		got = append(got, line)
	}); err != nil {
		t.Fatalf("follow: %v", err)
	}
	if len(got) != 1 || got[0] != "new" {
		t.Fatalf("unexpected lines after truncation: %#v", got)
	}
}
