package library

import (
	"fmt"
	"path/filepath"
	"sync"
)

// PathLocks serializes mutating operations per song path, and lets a full
// rescan drain every in-flight mutation before taking its snapshot.
//
// Acquisition never blocks: a held path fails fast with ErrSongBusy so the
// caller can tell the user the song is busy instead of queueing silently.
// Unrelated paths stay fully concurrent.
type PathLocks struct {
	mu   sync.Mutex
	held map[string]struct{}

	// Read side held for the duration of every path lock; the write side is
	// the rescan barrier.
	barrier sync.RWMutex
}

// NewPathLocks creates an empty lock table.
func NewPathLocks() *PathLocks {
	return &PathLocks{held: make(map[string]struct{})}
}

// TryLock acquires the exclusive lock for path, returning a release func.
// It fails with ErrSongBusy if the path is already locked or a full rescan
// is draining.
func (l *PathLocks) TryLock(path string) (func(), error) {
	key := filepath.Clean(path)

	if !l.barrier.TryRLock() {
		return nil, fmt.Errorf("%w: library rescan in progress", ErrSongBusy)
	}

	l.mu.Lock()
	if _, busy := l.held[key]; busy {
		l.mu.Unlock()
		l.barrier.RUnlock()
		return nil, fmt.Errorf("%w: %s", ErrSongBusy, key)
	}
	l.held[key] = struct{}{}
	l.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
			l.barrier.RUnlock()
		})
	}
	return release, nil
}

// Drain blocks until all in-flight path locks are released, then holds the
// barrier so no new lock can be taken until the returned func is called.
// Used by full rescans to guarantee a self-consistent snapshot.
func (l *PathLocks) Drain() func() {
	l.barrier.Lock()
	return l.barrier.Unlock
}
