package library

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossplay/metadata"
	"crossplay/types"
)

// fakeCodec keeps tag sets in memory, keyed by path, so library tests never
// need real MP3 containers.
type fakeCodec struct {
	mu      sync.Mutex
	tags    map[string]types.TagSet
	readErr map[string]error
}

func newFakeCodec() *fakeCodec {
	return &fakeCodec{
		tags:    make(map[string]types.TagSet),
		readErr: make(map[string]error),
	}
}

func (f *fakeCodec) Read(path string) (types.TagSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.readErr[path]; ok {
		return types.TagSet{Provenance: map[string]string{}}, err
	}
	if tags, ok := f.tags[path]; ok {
		return tags, nil
	}
	return types.TagSet{Provenance: map[string]string{}}, nil
}

func (f *fakeCodec) Write(path string, tags types.TagSet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tags[path] = tags
	return nil
}

type fakeProber struct {
	duration time.Duration
}

func (f fakeProber) Duration(string) (time.Duration, error) {
	return f.duration, nil
}

func TestScanMixedDirectory(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.mp3"))
	touch(t, filepath.Join(dir, "a.mp3"))
	touch(t, filepath.Join(dir, "c.mp3.hidden"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, ".crossplay-dl-leftover"))
	touch(t, filepath.Join(dir, ".DS_Store"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0755))

	scanner := NewScanner(newFakeCodec(), fakeProber{duration: 3 * time.Second})
	songs, err := scanner.Scan(dir)
	require.NoError(t, err)

	require.Len(t, songs, 3)
	assert.Equal(t, "a.mp3", songs[0].Filename)
	assert.Equal(t, "b.mp3", songs[1].Filename)
	assert.Equal(t, "c.mp3.hidden", songs[2].Filename)

	assert.True(t, songs[0].Visible)
	assert.False(t, songs[2].Visible)
	assert.Equal(t, int64(3000), songs[0].DurationMs)
}

func TestScanFileDerivesProvenanceFlags(t *testing.T) {
	dir := t.TempDir()
	path := touch(t, filepath.Join(dir, "song.mp3"))

	codec := newFakeCodec()
	codec.tags[path] = types.TagSet{
		Title:  "Night Drive",
		Artist: "The Signals",
		Provenance: map[string]string{
			types.ProvenanceSourceURL:    "https://example.com/v",
			types.ProvenanceDownloadedAt: "2024-05-01T10:00:00Z",
			types.ProvenanceTrimmed:      "1",
		},
	}

	scanner := NewScanner(codec, fakeProber{})
	song, err := scanner.ScanFile(path)
	require.NoError(t, err)

	assert.Equal(t, "Night Drive", song.Tags.Title)
	assert.True(t, song.Trimmed)
	assert.False(t, song.TagsEdited)
	assert.Equal(t, "2024-05-01T10:00:00Z", song.DownloadedAt)
}

func TestScanFileTitleFallsBackToFilename(t *testing.T) {
	dir := t.TempDir()
	visible := touch(t, filepath.Join(dir, "Summer Mix.mp3"))
	hidden := touch(t, filepath.Join(dir, "Winter Mix.mp3.hidden"))

	scanner := NewScanner(newFakeCodec(), fakeProber{})

	song, err := scanner.ScanFile(visible)
	require.NoError(t, err)
	assert.Equal(t, "Summer Mix", song.Tags.Title)

	song, err = scanner.ScanFile(hidden)
	require.NoError(t, err)
	assert.Equal(t, "Winter Mix", song.Tags.Title)
}

func TestScanIncludesCorruptTags(t *testing.T) {
	dir := t.TempDir()
	path := touch(t, filepath.Join(dir, "broken.mp3"))

	codec := newFakeCodec()
	codec.readErr[path] = fmt.Errorf("%w: bad frame", metadata.ErrCorruptTag)

	scanner := NewScanner(codec, fakeProber{})
	songs, err := scanner.Scan(dir)
	require.NoError(t, err)

	// Corrupt metadata degrades to the filename, it never drops the file
	require.Len(t, songs, 1)
	assert.Equal(t, "broken", songs[0].Tags.Title)
}

func TestScanSkipsVanishedFile(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "good.mp3"))
	gone := touch(t, filepath.Join(dir, "gone.mp3"))

	codec := newFakeCodec()
	codec.readErr[gone] = os.ErrNotExist

	scanner := NewScanner(codec, fakeProber{})
	songs, err := scanner.Scan(dir)
	require.NoError(t, err)

	require.Len(t, songs, 1)
	assert.Equal(t, "good.mp3", songs[0].Filename)
}
