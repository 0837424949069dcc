package types

import "time"

// JobType represents the kind of library mutation a job performs.
type JobType string

const (
	JobTypeDownload JobType = "download"
	JobTypeTrim     JobType = "trim"
)

// JobStatus represents the current stage of a job.
type JobStatus string

const (
	JobStatusQueued      JobStatus = "queued"
	JobStatusFetching    JobStatus = "fetching"
	JobStatusTranscoding JobStatus = "transcoding"
	JobStatusTagging     JobStatus = "tagging"
	JobStatusCompleted   JobStatus = "completed"
	JobStatusFailed      JobStatus = "failed"
	JobStatusCancelled   JobStatus = "cancelled"
)

// Terminal reports whether the status is an end state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Job represents one asynchronous mutation of the library.
type Job struct {
	ID          string     `json:"id"`
	Type        JobType    `json:"type"`
	Status      JobStatus  `json:"status"`
	SourceURL   string     `json:"sourceUrl,omitempty"`
	Path        string     `json:"path,omitempty"`
	Title       string     `json:"title,omitempty"`
	StartMs     int64      `json:"startMs,omitempty"`
	EndMs       int64      `json:"endMs,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}
