package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"crossplay/logger"
	"crossplay/metadata"
	"crossplay/types"
)

// TempPrefix marks every temp file CrossPlay stages inside the library
// directory. Anything carrying it is an orphan after a crash and is swept at
// startup, never adopted into the catalog.
const TempPrefix = ".crossplay-"

// Notifier publishes catalog change notifications to the GUI.
type Notifier interface {
	LibraryChanged(paths ...string)
}

// Engine owns the in-memory catalog for one library directory. The catalog
// is always a scan snapshot, incrementally patched after each mutation; the
// directory and the tags inside each file remain the single source of truth.
type Engine struct {
	dir      string
	codec    metadata.Codec
	scanner  *Scanner
	locks    *PathLocks
	notifier Notifier

	mu             sync.RWMutex
	songs          map[string]types.Song
	pendingRemoval map[string]struct{}
}

// NewEngine creates an engine for the library at dir.
func NewEngine(dir string, codec metadata.Codec, prober Prober, notifier Notifier) *Engine {
	return &Engine{
		dir:            dir,
		codec:          codec,
		scanner:        NewScanner(codec, prober),
		locks:          NewPathLocks(),
		notifier:       notifier,
		songs:          make(map[string]types.Song),
		pendingRemoval: make(map[string]struct{}),
	}
}

// Dir returns the library directory.
func (e *Engine) Dir() string { return e.dir }

// Start sweeps temp files orphaned by a previous crash, then loads the
// initial catalog.
func (e *Engine) Start() error {
	e.sweepOrphans()
	return e.Rescan()
}

// Rescan rebuilds the whole catalog from a fresh directory walk. It drains
// all in-flight per-path mutations first so the snapshot is self-consistent
// rather than torn.
func (e *Engine) Rescan() error {
	release := e.locks.Drain()
	defer release()

	songs, err := e.scanner.Scan(e.dir)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.songs = make(map[string]types.Song, len(songs))
	for _, song := range songs {
		e.songs[song.Path] = song
	}
	e.mu.Unlock()

	logger.Info("library scanned", zap.String("dir", e.dir), zap.Int("songs", len(songs)))
	e.notifyChanged()
	return nil
}

// Songs returns the current catalog snapshot. It never blocks on the
// per-path locks, so it may be transiently stale during a mutation; the GUI
// re-renders on the change notification that follows. Paths mid-removal are
// excluded so no row points at a file being replaced.
func (e *Engine) Songs() []types.Song {
	e.mu.RLock()
	defer e.mu.RUnlock()

	songs := make([]types.Song, 0, len(e.songs))
	for path, song := range e.songs {
		if _, removing := e.pendingRemoval[path]; removing {
			continue
		}
		songs = append(songs, song)
	}

	// Directory order: os.ReadDir enumerates by filename.
	sort.Slice(songs, func(i, j int) bool { return songs[i].Path < songs[j].Path })
	return songs
}

// WithPathLock runs fn while holding the exclusive mutation lock for path,
// failing fast with ErrSongBusy when another operation holds it.
func (e *Engine) WithPathLock(path string, fn func() error) error {
	release, err := e.locks.TryLock(path)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// PatchPath refreshes the catalog entry for one path from the filesystem:
// the entry is replaced by a fresh scan of the file, or dropped when the
// file is gone. Change notifications fire either way.
func (e *Engine) PatchPath(path string) {
	song, err := e.scanner.ScanFile(path)

	e.mu.Lock()
	if err != nil {
		delete(e.songs, path)
	} else {
		e.songs[path] = song
	}
	e.mu.Unlock()

	e.notifyChanged(path)
}

// ToggleVisibility hides a visible song or shows a hidden one by renaming
// its extension. The returned path is the song's new identity; the old
// catalog entry is replaced, never mutated in place.
func (e *Engine) ToggleVisibility(path string) (string, error) {
	var newPath string
	err := e.WithPathLock(path, func() error {
		if !e.has(path) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}

		renamed, err := ToggleHidden(path)
		if err != nil {
			return err
		}
		newPath = renamed

		song, err := e.scanner.ScanFile(newPath)
		if err != nil {
			return err
		}

		e.mu.Lock()
		delete(e.songs, path)
		e.songs[newPath] = song
		e.mu.Unlock()
		return nil
	})
	if err != nil {
		return "", err
	}

	e.notifyChanged(path, newPath)
	return newPath, nil
}

// Delete removes the song's file and its catalog entry.
func (e *Engine) Delete(path string) error {
	err := e.WithPathLock(path, func() error {
		if !e.has(path) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}

		e.mu.Lock()
		e.pendingRemoval[path] = struct{}{}
		e.mu.Unlock()

		removeErr := os.Remove(path)

		e.mu.Lock()
		delete(e.pendingRemoval, path)
		if removeErr == nil {
			delete(e.songs, path)
		}
		e.mu.Unlock()

		if removeErr != nil {
			return fmt.Errorf("delete %s: %w", path, removeErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.notifyChanged(path)
	return nil
}

// UpdateTags applies an edited title/artist/album to the song's file. The
// existing provenance map is read first and carried forward with the
// edited flag set, so provenance is never lost across an edit.
func (e *Engine) UpdateTags(path string, tags types.TagSet) error {
	err := e.WithPathLock(path, func() error {
		if !e.has(path) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}

		existing, err := e.codec.Read(path)
		if err != nil && !errors.Is(err, metadata.ErrCorruptTag) {
			return err
		}

		provenance := existing.Provenance
		if provenance == nil {
			provenance = make(map[string]string)
		}
		provenance[types.ProvenanceTagsEdited] = "1"

		merged := types.TagSet{
			Title:      tags.Title,
			Artist:     tags.Artist,
			Album:      tags.Album,
			Provenance: provenance,
		}
		if err := e.codec.Write(path, merged); err != nil {
			return err
		}

		song, err := e.scanner.ScanFile(path)
		if err != nil {
			return err
		}
		e.mu.Lock()
		e.songs[path] = song
		e.mu.Unlock()
		return nil
	})
	if err != nil {
		return err
	}

	e.notifyChanged(path)
	return nil
}

func (e *Engine) has(path string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.songs[path]
	return ok
}

func (e *Engine) notifyChanged(paths ...string) {
	if e.notifier != nil {
		e.notifier.LibraryChanged(paths...)
	}
}

// sweepOrphans deletes temp files left behind by a crashed run.
func (e *Engine) sweepOrphans() {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, TempPrefix) {
			continue
		}
		path := filepath.Join(e.dir, name)
		if err := os.Remove(path); err != nil {
			logger.Warn("could not remove orphaned temp file", zap.String("path", path), zap.Error(err))
			continue
		}
		logger.Info("removed orphaned temp file", zap.String("path", path))
	}
}
