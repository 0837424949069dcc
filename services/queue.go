package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"crossplay/library"
	"crossplay/logger"
	"crossplay/metadata"
	"crossplay/tools"
	"crossplay/types"
)

// StatusFunc lets a running job report its current stage.
type StatusFunc func(status types.JobStatus, message string)

// Events receives job status updates for push to the GUI.
type Events interface {
	JobEvent(job types.Job, message string)
}

// Library is the catalog surface jobs mutate through. Satisfied by
// library.Engine.
type Library interface {
	Dir() string
	WithPathLock(path string, fn func() error) error
	PatchPath(path string)
}

// Jobs manages the queue of download and trim jobs.
type Jobs interface {
	Start()
	SubmitDownload(sourceURL string) (types.Job, error)
	SubmitTrim(path string, start, end time.Duration) (types.Job, error)
	Get(id string) (types.Job, bool)
	All() []types.Job
	Cancel(id string) bool
}

type task struct {
	job    *types.Job
	run    func(ctx context.Context, set StatusFunc) error
	cancel context.CancelFunc
}

type jobs struct {
	lib        Library
	fetcher    tools.Fetcher
	transcoder tools.Transcoder
	prober     tools.Prober
	codec      metadata.Codec
	events     Events

	mu         sync.RWMutex
	entries    map[string]*task
	queue      chan *task
	maxWorkers int
}

// NewJobs creates a job queue running at most maxWorkers jobs in parallel.
// Jobs on different paths run concurrently; the per-path locks inside lib
// keep two jobs off the same song.
func NewJobs(lib Library, fetcher tools.Fetcher, transcoder tools.Transcoder, prober tools.Prober, codec metadata.Codec, events Events, maxWorkers int) Jobs {
	return &jobs{
		lib:        lib,
		fetcher:    fetcher,
		transcoder: transcoder,
		prober:     prober,
		codec:      codec,
		events:     events,
		entries:    make(map[string]*task),
		queue:      make(chan *task, 100),
		maxWorkers: maxWorkers,
	}
}

// Start begins processing jobs.
func (q *jobs) Start() {
	for i := 0; i < q.maxWorkers; i++ {
		go q.worker()
	}
}

// SubmitDownload queues a download of the given source URL into the library.
func (q *jobs) SubmitDownload(sourceURL string) (types.Job, error) {
	parsed, err := url.ParseRequestURI(sourceURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return types.Job{}, fmt.Errorf("invalid source URL: %q", sourceURL)
	}

	job := &types.Job{
		ID:        uuid.New().String(),
		Type:      types.JobTypeDownload,
		Status:    types.JobStatusQueued,
		SourceURL: sourceURL,
		CreatedAt: time.Now(),
	}

	dl := &DownloadJob{
		LibraryDir: q.lib.Dir(),
		SourceURL:  sourceURL,
		Fetcher:    q.fetcher,
		Transcoder: q.transcoder,
		Codec:      q.codec,
	}

	q.enqueue(job, func(ctx context.Context, set StatusFunc) error {
		finalPath, title, err := dl.Run(ctx, set)
		if err != nil {
			return err
		}
		q.setResult(job.ID, finalPath, title)
		q.lib.PatchPath(finalPath)
		return nil
	})
	return *job, nil
}

// SubmitTrim queues a trim of the song at path to [start, end). The range is
// validated against the song's playable duration before the job is queued.
func (q *jobs) SubmitTrim(path string, start, end time.Duration) (types.Job, error) {
	if _, err := os.Stat(path); err != nil {
		return types.Job{}, fmt.Errorf("%w: %s", library.ErrNotFound, path)
	}

	duration, err := q.prober.Duration(path)
	if err != nil {
		return types.Job{}, fmt.Errorf("measure %s: %w", path, err)
	}
	if start < 0 || start >= end || end > duration {
		return types.Job{}, fmt.Errorf("%w: [%s, %s) of %s", library.ErrInvalidRange, start, end, duration)
	}

	job := &types.Job{
		ID:        uuid.New().String(),
		Type:      types.JobTypeTrim,
		Status:    types.JobStatusQueued,
		Path:      path,
		StartMs:   start.Milliseconds(),
		EndMs:     end.Milliseconds(),
		CreatedAt: time.Now(),
	}

	trim := &TrimJob{
		Path:       path,
		Cut:        tools.Range{Start: start, End: end},
		Transcoder: q.transcoder,
		Codec:      q.codec,
		Library:    q.lib,
	}

	q.enqueue(job, func(ctx context.Context, set StatusFunc) error {
		if err := trim.Run(ctx, set); err != nil {
			return err
		}
		q.lib.PatchPath(path)
		return nil
	})
	return *job, nil
}

// Get retrieves a snapshot of a job by ID.
func (q *jobs) Get(id string) (types.Job, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	t, exists := q.entries[id]
	if !exists {
		return types.Job{}, false
	}
	return *t.job, true
}

// All returns snapshots of every known job.
func (q *jobs) All() []types.Job {
	q.mu.RLock()
	defer q.mu.RUnlock()

	all := make([]types.Job, 0, len(q.entries))
	for _, t := range q.entries {
		all = append(all, *t.job)
	}
	return all
}

// Cancel stops a job. A queued job is marked cancelled immediately; a
// running job has its external process terminated, and its stage cleanup
// removes any temp output. Returns false for unknown or finished jobs.
func (q *jobs) Cancel(id string) bool {
	q.mu.Lock()
	t, exists := q.entries[id]
	if !exists || t.job.Status.Terminal() {
		q.mu.Unlock()
		return false
	}

	if t.job.Status == types.JobStatusQueued {
		t.job.Status = types.JobStatusCancelled
		now := time.Now()
		t.job.CompletedAt = &now
		job := *t.job
		q.mu.Unlock()
		q.publish(job, "cancelled before start")
		return true
	}

	cancel := t.cancel
	q.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return true
}

func (q *jobs) enqueue(job *types.Job, run func(ctx context.Context, set StatusFunc) error) {
	t := &task{job: job, run: run}

	q.mu.Lock()
	q.entries[job.ID] = t
	q.mu.Unlock()

	q.queue <- t
}

// worker processes jobs from the queue.
func (q *jobs) worker() {
	for t := range q.queue {
		q.mu.Lock()
		if t.job.Status.Terminal() {
			q.mu.Unlock()
			continue
		}
		ctx, cancel := context.WithCancel(context.Background())
		t.cancel = cancel
		now := time.Now()
		t.job.StartedAt = &now
		id := t.job.ID
		q.mu.Unlock()

		err := t.run(ctx, func(status types.JobStatus, message string) {
			q.setStatus(id, status, message)
		})
		cancel()

		switch {
		case err == nil:
			q.setStatus(id, types.JobStatusCompleted, "")
			logger.Info("job completed", zap.String("job", id))
		case errors.Is(err, context.Canceled):
			q.setStatus(id, types.JobStatusCancelled, "")
			logger.Info("job cancelled", zap.String("job", id))
		default:
			q.setStatus(id, types.JobStatusFailed, err.Error())
			logger.Error("job failed", zap.String("job", id), zap.Error(err))
		}
	}
}

func (q *jobs) setStatus(id string, status types.JobStatus, message string) {
	q.mu.Lock()
	t, exists := q.entries[id]
	if !exists {
		q.mu.Unlock()
		return
	}

	t.job.Status = status
	if status == types.JobStatusFailed {
		t.job.Error = message
	}
	if status.Terminal() {
		now := time.Now()
		t.job.CompletedAt = &now
	}
	job := *t.job
	q.mu.Unlock()

	q.publish(job, message)
}

func (q *jobs) setResult(id, path, title string) {
	q.mu.Lock()
	if t, exists := q.entries[id]; exists {
		t.job.Path = path
		t.job.Title = title
	}
	q.mu.Unlock()
}

func (q *jobs) publish(job types.Job, message string) {
	if q.events != nil {
		q.events.JobEvent(job, message)
	}
}
