package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"crossplay/library"
	"crossplay/metadata"
	"crossplay/tools"
	"crossplay/types"
)

// TrimJob cuts a song to a [start, end) range in place. The cut is written
// to a temp file, the song's full tag set including provenance is copied
// onto it with the trimmed flag added, and the temp is renamed over the
// original. The operation is transactional: on any failure the original
// file keeps its exact bytes and tags.
type TrimJob struct {
	Path       string
	Cut        tools.Range
	Transcoder tools.Transcoder
	Codec      metadata.Codec
	Library    Library
}

// Run executes the trim while holding the song's mutation lock.
func (t *TrimJob) Run(ctx context.Context, set StatusFunc) error {
	return t.Library.WithPathLock(t.Path, func() error {
		if _, err := os.Stat(t.Path); err != nil {
			return fmt.Errorf("%w: %s", library.ErrNotFound, t.Path)
		}

		tmp := filepath.Join(filepath.Dir(t.Path), library.TempPrefix+"trim-"+uuid.New().String()+library.AudioExt)
		defer os.Remove(tmp)

		set(types.JobStatusTranscoding, "cutting range")
		if err := t.Transcoder.Cut(ctx, t.Path, tmp, t.Cut); err != nil {
			return err
		}

		set(types.JobStatusTagging, "carrying tags forward")
		tags, err := t.Codec.Read(t.Path)
		if err != nil && !errors.Is(err, metadata.ErrCorruptTag) {
			return err
		}
		if tags.Provenance == nil {
			tags.Provenance = make(map[string]string)
		}
		tags.Provenance[types.ProvenanceTrimmed] = "1"

		if err := t.Codec.Write(tmp, tags); err != nil {
			return err
		}

		if err := os.Rename(tmp, t.Path); err != nil {
			return fmt.Errorf("replace %s with trimmed file: %w", t.Path, err)
		}
		return nil
	})
}
