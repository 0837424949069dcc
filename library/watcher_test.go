package library

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherTriggersOnAudioChanges(t *testing.T) {
	dir := t.TempDir()

	var fired atomic.Int32
	watcher, err := NewWatcher(dir, func() { fired.Add(1) })
	require.NoError(t, err)
	defer watcher.Close()
	watcher.Start()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.mp3"), []byte("x"), 0644))

	require.Eventually(t, func() bool {
		return fired.Load() >= 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()

	var fired atomic.Int32
	watcher, err := NewWatcher(dir, func() { fired.Add(1) })
	require.NoError(t, err)
	defer watcher.Close()
	watcher.Start()

	// A quick burst of changes collapses into one callback
	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, "burst.mp3")
		require.NoError(t, os.WriteFile(name, []byte{byte(i)}, 0644))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return fired.Load() >= 1
	}, 5*time.Second, 20*time.Millisecond)

	time.Sleep(watchDebounce + 100*time.Millisecond)
	assert.LessOrEqual(t, fired.Load(), int32(2))
}

func TestWatcherIgnoresTempAndForeignFiles(t *testing.T) {
	dir := t.TempDir()

	var fired atomic.Int32
	watcher, err := NewWatcher(dir, func() { fired.Add(1) })
	require.NoError(t, err)
	defer watcher.Close()
	watcher.Start()

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".crossplay-dl-tmp"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	time.Sleep(watchDebounce + 200*time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}
