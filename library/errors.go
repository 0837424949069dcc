package library

import "errors"

var (
	// ErrSongBusy means another operation currently holds the song's lock.
	// It is surfaced to the caller immediately, never queued silently.
	ErrSongBusy = errors.New("song is busy")

	// ErrNameCollision means the target path of a rename already exists.
	// Neither file is touched.
	ErrNameCollision = errors.New("target name already exists")

	// ErrInvalidRange means a trim range fell outside [0, duration].
	ErrInvalidRange = errors.New("invalid trim range")

	// ErrNotFound means the given path is not in the catalog.
	ErrNotFound = errors.New("song not found")
)
