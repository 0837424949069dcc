package library

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"crossplay/logger"
)

// Watcher schedules catalog rescans when the library directory changes
// underneath the engine, e.g. files added or removed by another program.
// Events are debounced so a burst of changes costs one rescan.
type Watcher struct {
	dir      string
	onChange func()
	fs       *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
}

const watchDebounce = 500 * time.Millisecond

// NewWatcher watches dir and calls onChange after out-of-band changes
// settle. CrossPlay's own temp files are ignored; its own completed
// mutations do trigger a rescan, which is idempotent against the patched
// catalog.
func NewWatcher(dir string, onChange func()) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return nil, err
	}

	return &Watcher{
		dir:      dir,
		onChange: onChange,
		fs:       fs,
		done:     make(chan struct{}),
	}, nil
}

// Start begins processing filesystem events.
func (w *Watcher) Start() {
	go w.loop()
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fs.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			name := filepath.Base(event.Name)
			if strings.HasPrefix(name, ".") {
				continue
			}
			if !IsAudioPath(name) && !IsHiddenPath(name) {
				continue
			}
			w.schedule()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logger.Warn("library watcher error", zap.Error(err))

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(watchDebounce, w.onChange)
}
