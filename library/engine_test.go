package library

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossplay/types"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls [][]string
}

func (n *recordingNotifier) LibraryChanged(paths ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, paths)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func newTestEngine(t *testing.T) (*Engine, string, *fakeCodec, *recordingNotifier) {
	t.Helper()
	dir := t.TempDir()
	codec := newFakeCodec()
	notifier := &recordingNotifier{}
	engine := NewEngine(dir, codec, fakeProber{}, notifier)
	return engine, dir, codec, notifier
}

func TestEngineStartSweepsOrphans(t *testing.T) {
	engine, dir, _, _ := newTestEngine(t)
	orphan := touch(t, filepath.Join(dir, ".crossplay-dl-abc123"))
	keep := touch(t, filepath.Join(dir, "song.mp3"))

	require.NoError(t, engine.Start())

	assert.NoFileExists(t, orphan)
	assert.FileExists(t, keep)
	require.Len(t, engine.Songs(), 1)
}

func TestEngineRescanReplacesCatalog(t *testing.T) {
	engine, dir, _, notifier := newTestEngine(t)
	touch(t, filepath.Join(dir, "a.mp3"))
	require.NoError(t, engine.Start())
	require.Len(t, engine.Songs(), 1)

	touch(t, filepath.Join(dir, "b.mp3"))
	require.NoError(t, engine.Rescan())

	songs := engine.Songs()
	require.Len(t, songs, 2)
	assert.Equal(t, "a.mp3", songs[0].Filename)
	assert.Equal(t, "b.mp3", songs[1].Filename)
	assert.GreaterOrEqual(t, notifier.count(), 2)
}

func TestEngineToggleVisibility(t *testing.T) {
	engine, dir, _, _ := newTestEngine(t)
	path := touch(t, filepath.Join(dir, "song.mp3"))
	require.NoError(t, engine.Start())

	hidden, err := engine.ToggleVisibility(path)
	require.NoError(t, err)
	assert.Equal(t, path+HiddenSuffix, hidden)
	assert.NoFileExists(t, path)
	assert.FileExists(t, hidden)

	songs := engine.Songs()
	require.Len(t, songs, 1)
	assert.Equal(t, hidden, songs[0].Path)
	assert.False(t, songs[0].Visible)

	// Toggling back restores the original identity
	back, err := engine.ToggleVisibility(hidden)
	require.NoError(t, err)
	assert.Equal(t, path, back)
	assert.True(t, engine.Songs()[0].Visible)
}

func TestEngineToggleVisibilityUnknownPath(t *testing.T) {
	engine, dir, _, _ := newTestEngine(t)
	require.NoError(t, engine.Start())

	_, err := engine.ToggleVisibility(filepath.Join(dir, "ghost.mp3"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEngineDelete(t *testing.T) {
	engine, dir, _, _ := newTestEngine(t)
	path := touch(t, filepath.Join(dir, "song.mp3"))
	require.NoError(t, engine.Start())

	require.NoError(t, engine.Delete(path))
	assert.NoFileExists(t, path)
	assert.Empty(t, engine.Songs())

	err := engine.Delete(path)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEngineUpdateTagsCarriesProvenance(t *testing.T) {
	engine, dir, codec, _ := newTestEngine(t)
	path := touch(t, filepath.Join(dir, "song.mp3"))
	codec.tags[path] = types.TagSet{
		Title: "Old Title",
		Provenance: map[string]string{
			types.ProvenanceSourceURL:    "https://example.com/v",
			types.ProvenanceDownloadedAt: "2024-05-01T10:00:00Z",
		},
	}
	require.NoError(t, engine.Start())

	err := engine.UpdateTags(path, types.TagSet{
		Title:  "New Title",
		Artist: "New Artist",
	})
	require.NoError(t, err)

	written := codec.tags[path]
	assert.Equal(t, "New Title", written.Title)
	assert.Equal(t, "New Artist", written.Artist)
	assert.Equal(t, "https://example.com/v", written.Provenance[types.ProvenanceSourceURL])
	assert.Equal(t, "2024-05-01T10:00:00Z", written.Provenance[types.ProvenanceDownloadedAt])
	assert.Equal(t, "1", written.Provenance[types.ProvenanceTagsEdited])

	songs := engine.Songs()
	require.Len(t, songs, 1)
	assert.True(t, songs[0].TagsEdited)
	assert.Equal(t, "New Title", songs[0].Tags.Title)
}

func TestEngineOperationsFailWhileSongBusy(t *testing.T) {
	engine, dir, _, _ := newTestEngine(t)
	path := touch(t, filepath.Join(dir, "song.mp3"))
	require.NoError(t, engine.Start())

	locked := make(chan struct{})
	unlock := make(chan struct{})
	go func() {
		_ = engine.WithPathLock(path, func() error {
			close(locked)
			<-unlock
			return nil
		})
	}()
	<-locked

	_, err := engine.ToggleVisibility(path)
	assert.ErrorIs(t, err, ErrSongBusy)
	assert.ErrorIs(t, engine.Delete(path), ErrSongBusy)
	assert.ErrorIs(t, engine.UpdateTags(path, types.TagSet{Title: "x"}), ErrSongBusy)

	close(unlock)
}

func TestEnginePatchPath(t *testing.T) {
	engine, dir, _, _ := newTestEngine(t)
	path := touch(t, filepath.Join(dir, "song.mp3"))
	require.NoError(t, engine.Start())
	require.Len(t, engine.Songs(), 1)

	// A new file patched in shows up without a full rescan
	added := touch(t, filepath.Join(dir, "new.mp3"))
	engine.PatchPath(added)
	assert.Len(t, engine.Songs(), 2)

	// A vanished file patched out disappears
	require.NoError(t, os.Remove(path))
	engine.PatchPath(path)

	songs := engine.Songs()
	require.Len(t, songs, 1)
	assert.Equal(t, added, songs[0].Path)
}
