package websocket

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"crossplay/logger"
	"crossplay/types"
)

// Well-known topics. Job events additionally go out on the job's own ID as
// a topic, so a client can follow a single job.
const (
	TopicJobs    = "jobs"
	TopicLibrary = "library"
)

// Hub interface defines the methods for managing WebSocket connections.
type Hub interface {
	Run()
	RegisterClient(client *Client)
	UnregisterClient(client *Client)
	JobEvent(job types.Job, message string)
	LibraryChanged(paths ...string)
}

// hub maintains the set of active clients and fans events out to them.
type hub struct {
	// Registered clients mapped by topic
	clients map[string]map[*Client]bool

	broadcast  chan types.Event
	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex
}

// NewHub creates a new WebSocket hub.
func NewHub() Hub {
	return &hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan types.Event, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's main event loop.
func (h *hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.topic] == nil {
				h.clients[client.topic] = make(map[*Client]bool)
			}
			h.clients[client.topic][client] = true
			h.mu.Unlock()
			logger.Debug("websocket client connected", zap.String("topic", client.topic))

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.topic]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.clients, client.topic)
					}
				}
			}
			h.mu.Unlock()
			logger.Debug("websocket client disconnected", zap.String("topic", client.topic))

		case event := <-h.broadcast:
			h.mu.RLock()
			for _, topic := range topicsFor(event) {
				clients, ok := h.clients[topic]
				if !ok {
					continue
				}
				for client := range clients {
					select {
					case client.send <- event:
					default:
						close(client.send)
						delete(clients, client)
					}
				}
				if len(clients) == 0 {
					delete(h.clients, topic)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// topicsFor routes an event: library events to library watchers, job events
// to both the per-job topic and the all-jobs topic.
func topicsFor(event types.Event) []string {
	if event.Type == types.EventLibrary {
		return []string{TopicLibrary}
	}
	if event.JobID != "" {
		return []string{event.JobID, TopicJobs}
	}
	return []string{TopicJobs}
}

// JobEvent publishes a job status change.
func (h *hub) JobEvent(job types.Job, message string) {
	eventType := types.EventStatus
	switch job.Status {
	case types.JobStatusCompleted:
		eventType = types.EventComplete
		if message == "" {
			message = string(job.Type) + " completed"
		}
	case types.JobStatusFailed:
		eventType = types.EventError
		message = job.Error
	}

	h.send(types.Event{
		JobID:     job.ID,
		Type:      eventType,
		Status:    string(job.Status),
		Path:      job.Path,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// LibraryChanged tells catalog watchers to re-render.
func (h *hub) LibraryChanged(paths ...string) {
	h.send(types.Event{
		Type:      types.EventLibrary,
		Paths:     paths,
		Timestamp: time.Now(),
	})
}

func (h *hub) send(event types.Event) {
	select {
	case h.broadcast <- event:
	default:
		logger.Warn("websocket broadcast channel full, dropping event", zap.String("type", event.Type))
	}
}

// RegisterClient registers a new client with the hub.
func (h *hub) RegisterClient(client *Client) {
	h.register <- client
}

// UnregisterClient unregisters a client from the hub.
func (h *hub) UnregisterClient(client *Client) {
	h.unregister <- client
}
