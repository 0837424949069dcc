package library

import (
	"fmt"
	"os"
	"strings"
)

// The library's canonical audio extension, and the suffix appended to mask a
// file from external players. A hidden song is still a complete MP3; only its
// name changes, so tags and provenance survive untouched.
const (
	AudioExt     = ".mp3"
	HiddenSuffix = ".hidden"
)

// IsAudioPath reports whether path names a visible library song.
func IsAudioPath(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), AudioExt)
}

// IsHiddenPath reports whether path names a hidden library song
// (x.mp3.hidden).
func IsHiddenPath(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), AudioExt+HiddenSuffix)
}

// Hide renames a visible song so external players stop picking it up.
// Hiding an already-hidden song is a no-op returning the same path.
func Hide(path string) (string, error) {
	if IsHiddenPath(path) {
		return path, nil
	}

	return renameChecked(path, path+HiddenSuffix)
}

// Show is the inverse of Hide. Showing an already-visible song is a no-op.
func Show(path string) (string, error) {
	if !IsHiddenPath(path) {
		return path, nil
	}

	return renameChecked(path, path[:len(path)-len(HiddenSuffix)])
}

// ToggleHidden flips the visibility of the song at path.
func ToggleHidden(path string) (string, error) {
	if IsHiddenPath(path) {
		return Show(path)
	}
	return Hide(path)
}

// renameChecked refuses to overwrite an existing target. The check-then-
// rename pair is not atomic, but the engine's per-path lock keeps CrossPlay's
// own operations from racing it.
func renameChecked(path, target string) (string, error) {
	if _, err := os.Lstat(target); err == nil {
		return "", fmt.Errorf("%w: %s", ErrNameCollision, target)
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("stat %s: %w", target, err)
	}

	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("rename %s: %w", path, err)
	}
	return target, nil
}
