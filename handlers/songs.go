package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"crossplay/library"
	"crossplay/types"
)

// SongsHandler exposes the catalog and its synchronous mutations.
type SongsHandler struct {
	engine *library.Engine
}

// NewSongsHandler creates a new songs handler.
func NewSongsHandler(engine *library.Engine) *SongsHandler {
	return &SongsHandler{engine: engine}
}

// ListSongs returns the current catalog snapshot.
func (h *SongsHandler) ListSongs(c *gin.Context) {
	songs := h.engine.Songs()
	c.JSON(http.StatusOK, gin.H{
		"songs": songs,
		"count": len(songs),
	})
}

// Rescan rebuilds the catalog from a full directory walk.
func (h *SongsHandler) Rescan(c *gin.Context) {
	if err := h.engine.Rescan(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "rescan failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "library rescanned",
		"count":   len(h.engine.Songs()),
	})
}

type pathRequest struct {
	Path string `json:"path" binding:"required"`
}

// ToggleVisibility hides or shows the song at the given path.
func (h *SongsHandler) ToggleVisibility(c *gin.Context) {
	var req pathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	newPath, err := h.engine.ToggleVisibility(req.Path)
	if err != nil {
		respondLibraryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "visibility toggled",
		"path":    newPath,
	})
}

// DeleteSong permanently removes the song's file.
func (h *SongsHandler) DeleteSong(c *gin.Context) {
	var req pathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	if err := h.engine.Delete(req.Path); err != nil {
		respondLibraryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "song deleted"})
}

type updateTagsRequest struct {
	Path   string `json:"path" binding:"required"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
}

// UpdateTags writes edited metadata fields back into the song's file,
// preserving its provenance.
func (h *SongsHandler) UpdateTags(c *gin.Context) {
	var req updateTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	tags := types.TagSet{Title: req.Title, Artist: req.Artist, Album: req.Album}
	if err := h.engine.UpdateTags(req.Path, tags); err != nil {
		respondLibraryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "tags updated"})
}

// respondLibraryError maps engine errors onto HTTP statuses.
func respondLibraryError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, library.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, library.ErrSongBusy), errors.Is(err, library.ErrNameCollision):
		status = http.StatusConflict
	case errors.Is(err, library.ErrInvalidRange):
		status = http.StatusBadRequest
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
