package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossplay/types"
)

func newTestClient(h Hub, topic string) *Client {
	client := NewClient(h, nil, topic)
	h.RegisterClient(client)
	return client
}

func receive(t *testing.T, c *Client) types.Event {
	t.Helper()
	select {
	case event := <-c.send:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return types.Event{}
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case event := <-c.send:
		t.Fatalf("unexpected event on topic %s: %+v", c.topic, event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubRoutesJobEvents(t *testing.T) {
	h := NewHub()
	go h.Run()

	allJobs := newTestClient(h, TopicJobs)
	oneJob := newTestClient(h, "job-1")
	libraryWatcher := newTestClient(h, TopicLibrary)

	h.JobEvent(types.Job{
		ID:     "job-1",
		Type:   types.JobTypeDownload,
		Status: types.JobStatusFetching,
	}, "fetching")

	event := receive(t, allJobs)
	assert.Equal(t, "job-1", event.JobID)
	assert.Equal(t, types.EventStatus, event.Type)
	assert.Equal(t, string(types.JobStatusFetching), event.Status)

	assert.Equal(t, "job-1", receive(t, oneJob).JobID)
	assertSilent(t, libraryWatcher)
}

func TestHubDoesNotCrossJobTopics(t *testing.T) {
	h := NewHub()
	go h.Run()

	otherJob := newTestClient(h, "job-2")
	h.JobEvent(types.Job{ID: "job-1", Status: types.JobStatusFetching}, "")

	assertSilent(t, otherJob)
}

func TestHubRoutesLibraryEvents(t *testing.T) {
	h := NewHub()
	go h.Run()

	libraryWatcher := newTestClient(h, TopicLibrary)
	allJobs := newTestClient(h, TopicJobs)

	h.LibraryChanged("/lib/a.mp3", "/lib/b.mp3")

	event := receive(t, libraryWatcher)
	assert.Equal(t, types.EventLibrary, event.Type)
	assert.Equal(t, []string{"/lib/a.mp3", "/lib/b.mp3"}, event.Paths)

	assertSilent(t, allJobs)
}

func TestHubEventTypeForTerminalStatuses(t *testing.T) {
	h := NewHub()
	go h.Run()

	client := newTestClient(h, TopicJobs)

	h.JobEvent(types.Job{
		ID:     "job-ok",
		Type:   types.JobTypeDownload,
		Status: types.JobStatusCompleted,
		Path:   "/lib/Song.mp3",
	}, "")
	event := receive(t, client)
	assert.Equal(t, types.EventComplete, event.Type)
	assert.Equal(t, "/lib/Song.mp3", event.Path)
	assert.NotEmpty(t, event.Message)

	h.JobEvent(types.Job{
		ID:     "job-bad",
		Status: types.JobStatusFailed,
		Error:  "encoder blew up",
	}, "")
	event = receive(t, client)
	assert.Equal(t, types.EventError, event.Type)
	assert.Equal(t, "encoder blew up", event.Message)
}

func TestHubUnregisterClosesSendChannel(t *testing.T) {
	h := NewHub()
	go h.Run()

	client := newTestClient(h, TopicJobs)
	h.UnregisterClient(client)

	require.Eventually(t, func() bool {
		select {
		case _, open := <-client.send:
			return !open
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
}
