package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crossplay/logger"
	"crossplay/services"
	"crossplay/websocket"
)

// JobsHandler manages download/trim jobs and their progress streams.
type JobsHandler struct {
	jobs services.Jobs
	hub  websocket.Hub
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(jobs services.Jobs, hub websocket.Hub) *JobsHandler {
	return &JobsHandler{jobs: jobs, hub: hub}
}

type downloadRequest struct {
	URL string `json:"url" binding:"required"`
}

// SubmitDownload queues a download job for a source URL.
func (h *JobsHandler) SubmitDownload(c *gin.Context) {
	var req downloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	job, err := h.jobs.SubmitDownload(req.URL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "download queued",
		"job":     job,
	})
}

type trimRequest struct {
	Path    string `json:"path" binding:"required"`
	StartMs int64  `json:"startMs"`
	EndMs   int64  `json:"endMs" binding:"required"`
}

// SubmitTrim queues a trim job for an existing song.
func (h *JobsHandler) SubmitTrim(c *gin.Context) {
	var req trimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path and endMs are required"})
		return
	}

	start := time.Duration(req.StartMs) * time.Millisecond
	end := time.Duration(req.EndMs) * time.Millisecond

	job, err := h.jobs.SubmitTrim(req.Path, start, end)
	if err != nil {
		respondLibraryError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "trim queued",
		"job":     job,
	})
}

// GetAllJobs returns every known job.
func (h *JobsHandler) GetAllJobs(c *gin.Context) {
	all := h.jobs.All()
	c.JSON(http.StatusOK, gin.H{
		"jobs":  all,
		"total": len(all),
	})
}

// GetJob returns one job by ID.
func (h *JobsHandler) GetJob(c *gin.Context) {
	jobID := c.Param("jobId")
	job, exists := h.jobs.Get(jobID)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"job": job})
}

// CancelJob cancels a queued or running job.
func (h *JobsHandler) CancelJob(c *gin.Context) {
	jobID := c.Param("jobId")
	if !h.jobs.Cancel(jobID) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job cannot be cancelled (not found or already finished)",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "job cancelled"})
}

// HandleJobSocket streams progress for one job over a WebSocket.
func (h *JobsHandler) HandleJobSocket(c *gin.Context) {
	jobID := c.Param("jobId")
	if _, exists := h.jobs.Get(jobID); !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	h.serveSocket(c, jobID)
}

// HandleJobsSocket streams progress for all jobs over a WebSocket.
func (h *JobsHandler) HandleJobsSocket(c *gin.Context) {
	h.serveSocket(c, websocket.TopicJobs)
}

// HandleLibrarySocket streams catalog change notifications over a WebSocket.
func (h *JobsHandler) HandleLibrarySocket(c *gin.Context) {
	h.serveSocket(c, websocket.TopicLibrary)
}

func (h *JobsHandler) serveSocket(c *gin.Context, topic string) {
	upgrader := websocket.GetUpgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := websocket.NewClient(h.hub, conn, topic)
	h.hub.RegisterClient(client)
	client.StartPumps()
}
