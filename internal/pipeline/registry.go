package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// Registry admits at most one running export per destination. Exclusion is
// in-process through a map and, when lockDir is set, cross-process through a
// flock file per destination. A second Acquire is rejected, never queued.
type Registry struct {
	lockDir string

	mu     sync.Mutex
	active map[string]string // destination -> job id
}

// NewRegistry returns a registry. An empty lockDir disables the lock files.
func NewRegistry(lockDir string) *Registry {
	return &Registry{lockDir: lockDir, active: make(map[string]string)}
}

// Acquire claims dest for jobID. The returned release function is idempotent.
func (r *Registry) Acquire(dest, jobID string) (release func(), err error) {
	key, err := destinationKey(dest)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if holder, busy := r.active[key]; busy {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s is being written by job %s", ErrDestinationBusy, dest, holder)
	}
	r.active[key] = jobID
	r.mu.Unlock()

	var lock *flock.Flock
	if r.lockDir != "" {
		lock, err = r.lockFile(key, dest)
		if err != nil {
			r.forget(key)
			return nil, err
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if lock != nil {
				_ = lock.Unlock()
			}
			r.forget(key)
		})
	}, nil
}

// Holder returns the job currently writing dest, if any.
func (r *Registry) Holder(dest string) (string, bool) {
	key, err := destinationKey(dest)
	if err != nil {
		return "", false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.active[key]
	return id, ok
}

func (r *Registry) lockFile(key, dest string) (*flock.Flock, error) {
	if err := os.MkdirAll(r.lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	sum := sha256.Sum256([]byte(key))
	path := filepath.Join(r.lockDir, hex.EncodeToString(sum[:8])+".lock")
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire destination lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s is being written by another process", ErrDestinationBusy, dest)
	}
	return lock, nil
}

func (r *Registry) forget(key string) {
	r.mu.Lock()
	delete(r.active, key)
	r.mu.Unlock()
}

func destinationKey(dest string) (string, error) {
	if dest == "" {
		return "", fmt.Errorf("%w: empty destination", ErrSinkWrite)
	}
	abs, err := filepath.Abs(dest)
	if err != nil {
		return "", fmt.Errorf("resolve destination %q: %w", dest, err)
	}
	return filepath.Clean(abs), nil
}
