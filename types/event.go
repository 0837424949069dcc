package types

import "time"

// Event types pushed to GUI clients over a WebSocket.
const (
	EventStatus   = "status"
	EventComplete = "complete"
	EventError    = "error"
	EventLibrary  = "library"
)

// Event is one push message for the GUI: either a job status change or a
// library-changed notification telling it to re-render the catalog.
type Event struct {
	JobID     string    `json:"jobId,omitempty"`
	Type      string    `json:"type"`
	Status    string    `json:"status,omitempty"`
	Path      string    `json:"path,omitempty"`
	Paths     []string  `json:"paths,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
