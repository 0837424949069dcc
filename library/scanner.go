package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"crossplay/logger"
	"crossplay/metadata"
	"crossplay/types"
)

// Prober reports the playable duration of an MP3 file. Satisfied by
// tools.FrameProber.
type Prober interface {
	Duration(path string) (time.Duration, error)
}

// Scanner derives the catalog for a library directory. The directory plus
// the tags inside each file are the only source of truth; the scanner never
// reads or writes any index.
type Scanner struct {
	codec  metadata.Codec
	prober Prober
}

// NewScanner creates a scanner using the given codec and duration prober.
func NewScanner(codec metadata.Codec, prober Prober) *Scanner {
	return &Scanner{codec: codec, prober: prober}
}

// Scan enumerates dir in directory order and returns one Song per audio
// file, visible or hidden. Files whose tags cannot be parsed are included
// with empty metadata rather than dropped; the library always shows every
// audio file it manages.
func (s *Scanner) Scan(dir string) ([]types.Song, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	var songs []types.Song
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if !IsAudioPath(name) && !IsHiddenPath(name) {
			continue
		}

		song, err := s.ScanFile(filepath.Join(dir, name))
		if err != nil {
			// The file disappeared between ReadDir and Stat, or is
			// unreadable. Skip it; the next scan reconciles.
			logger.Warn("skipping unreadable file", zap.String("path", name), zap.Error(err))
			continue
		}
		songs = append(songs, song)
	}

	return songs, nil
}

// ScanFile derives a single Song from the file at path.
func (s *Scanner) ScanFile(path string) (types.Song, error) {
	info, err := os.Stat(path)
	if err != nil {
		return types.Song{}, fmt.Errorf("stat %s: %w", path, err)
	}

	tags, err := s.codec.Read(path)
	if err != nil && !errors.Is(err, metadata.ErrCorruptTag) {
		return types.Song{}, err
	}
	// A corrupt tag block reads as empty metadata.

	if tags.Title == "" {
		tags.Title = titleFromFilename(path)
	}

	song := types.Song{
		Path:         path,
		Filename:     filepath.Base(path),
		Size:         info.Size(),
		ModTime:      info.ModTime(),
		Visible:      !IsHiddenPath(path),
		Trimmed:      tags.ProvenanceValue(types.ProvenanceTrimmed) != "",
		TagsEdited:   tags.ProvenanceValue(types.ProvenanceTagsEdited) != "",
		DownloadedAt: tags.ProvenanceValue(types.ProvenanceDownloadedAt),
		Tags:         tags,
	}

	if duration, err := s.prober.Duration(path); err == nil {
		song.DurationMs = duration.Milliseconds()
	}

	return song, nil
}

// titleFromFilename strips the audio and hidden extensions from the base
// name, the fallback title for files CrossPlay did not tag.
func titleFromFilename(path string) string {
	name := filepath.Base(path)
	if IsHiddenPath(name) {
		name = name[:len(name)-len(HiddenSuffix)]
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}
