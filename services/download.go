package services

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"crossplay/library"
	"crossplay/metadata"
	"crossplay/tools"
	"crossplay/types"
)

// DownloadJob turns a source URL into a tagged MP3 in the library directory:
// fetch raw audio to a staging temp, transcode to a normalized MP3, write
// title and provenance tags, then move into place under a collision-free
// name. Every intermediate lives under the library temp prefix so a crashed
// run is swept at startup, and any failure removes them before the error is
// surfaced; the library never gains a partial file.
type DownloadJob struct {
	LibraryDir string
	SourceURL  string
	Fetcher    tools.Fetcher
	Transcoder tools.Transcoder
	Codec      metadata.Codec
}

// Run executes the download. On success it returns the final library path
// and the title that was tagged.
func (d *DownloadJob) Run(ctx context.Context, set StatusFunc) (string, string, error) {
	staging := filepath.Join(d.LibraryDir, library.TempPrefix+"dl-"+uuid.New().String())
	encoded := filepath.Join(d.LibraryDir, library.TempPrefix+"enc-"+uuid.New().String()+library.AudioExt)
	defer os.Remove(staging)
	defer os.Remove(encoded)

	set(types.JobStatusFetching, "fetching "+d.SourceURL)
	result, err := d.Fetcher.Fetch(ctx, d.SourceURL, staging)
	if err != nil {
		return "", "", err
	}

	set(types.JobStatusTranscoding, "transcoding")
	if err := d.Transcoder.Transcode(ctx, staging, encoded); err != nil {
		return "", "", err
	}

	title := result.Title
	if title == "" {
		title = titleFromURL(d.SourceURL)
	}

	set(types.JobStatusTagging, "tagging "+title)
	tags := types.TagSet{
		Title: title,
		Provenance: map[string]string{
			types.ProvenanceSourceURL:    d.SourceURL,
			types.ProvenanceDownloadedAt: time.Now().UTC().Format(time.RFC3339),
		},
	}
	if err := d.Codec.Write(encoded, tags); err != nil {
		return "", "", err
	}

	finalPath := collisionFreePath(d.LibraryDir, sanitizeFilename(title))
	if err := os.Rename(encoded, finalPath); err != nil {
		return "", "", fmt.Errorf("move %s into library: %w", encoded, err)
	}

	return finalPath, title, nil
}

// collisionFreePath picks the first free `stem.mp3`, `stem (1).mp3`, ... in
// dir, counting a name as taken when either its visible or its hidden
// variant exists. An existing library file is never overwritten.
func collisionFreePath(dir, stem string) string {
	for n := 0; ; n++ {
		name := stem
		if n > 0 {
			name = fmt.Sprintf("%s (%d)", stem, n)
		}
		path := filepath.Join(dir, name+library.AudioExt)
		if !pathTaken(path) {
			return path
		}
	}
}

func pathTaken(path string) bool {
	if _, err := os.Lstat(path); err == nil {
		return true
	}
	if _, err := os.Lstat(path + library.HiddenSuffix); err == nil {
		return true
	}
	return false
}

var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// sanitizeFilename makes a title safe to use as a file name.
func sanitizeFilename(title string) string {
	name := unsafeFilenameChars.ReplaceAllString(title, "_")
	name = strings.Trim(name, " .")
	if name == "" {
		name = "Untitled"
	}
	return name
}

// titleFromURL derives a fallback title when the fetch tool reported none:
// the video ID for the common watch-URL shape, else the last path segment,
// else the host.
func titleFromURL(sourceURL string) string {
	parsed, err := url.Parse(sourceURL)
	if err != nil {
		return sourceURL
	}

	if id := parsed.Query().Get("v"); id != "" {
		return id
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if last := segments[len(segments)-1]; last != "" {
		return last
	}

	if parsed.Host != "" {
		return parsed.Host
	}
	return sourceURL
}
