package types

import "time"

// Provenance keys CrossPlay writes into the tag comment field.
const (
	ProvenanceSourceURL    = "source_url"
	ProvenanceDownloadedAt = "downloaded_at"
	ProvenanceTrimmed      = "trimmed"
	ProvenanceTagsEdited   = "tags_edited"
)

// TagSet is the editable metadata view of one audio file, including the
// provenance map serialized into the tag comment field.
type TagSet struct {
	Title      string            `json:"title"`
	Artist     string            `json:"artist"`
	Album      string            `json:"album"`
	Provenance map[string]string `json:"provenance,omitempty"`
}

// ProvenanceValue returns the provenance value for key, or "" when absent.
func (t TagSet) ProvenanceValue(key string) string {
	if t.Provenance == nil {
		return ""
	}
	return t.Provenance[key]
}

// Song represents one catalog row. It is derived entirely from the file at
// Path; a Song is never persisted independently of that file, and a rename
// produces a new Song rather than mutating this one.
type Song struct {
	Path         string    `json:"path"`
	Filename     string    `json:"filename"`
	Size         int64     `json:"size"`
	ModTime      time.Time `json:"modTime"`
	DurationMs   int64     `json:"durationMs,omitempty"`
	Visible      bool      `json:"visible"`
	Trimmed      bool      `json:"trimmed"`
	TagsEdited   bool      `json:"tagsEdited"`
	DownloadedAt string    `json:"downloadedAt,omitempty"`
	Tags         TagSet    `json:"tags"`
}
