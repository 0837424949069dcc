package cmd

import (
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crossplay/config"
	"crossplay/handlers"
	"crossplay/library"
	"crossplay/logger"
	"crossplay/metadata"
	"crossplay/middleware"
	"crossplay/services"
	"crossplay/tools"
	"crossplay/websocket"
)

// StartWebServer starts the web server
func StartWebServer(port int, libraryDir string) {
	// Set production mode if not specified
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if libraryDir == "" {
		libraryDir = config.GetLibraryLocation()
	}
	if err := os.MkdirAll(libraryDir, 0755); err != nil {
		logger.Error("failed to create library directory", zap.String("dir", libraryDir), zap.Error(err))
		os.Exit(1)
	}

	// Initialize services
	hub := websocket.NewHub()
	go hub.Run()

	codec := metadata.NewCodec()
	prober := tools.NewProber()

	engine := library.NewEngine(libraryDir, codec, prober, hub)
	if err := engine.Start(); err != nil {
		logger.Error("failed to start library engine", zap.String("dir", libraryDir), zap.Error(err))
		os.Exit(1)
	}

	jobs := services.NewJobs(engine, tools.NewFetcher(), tools.NewTranscoder(), prober, codec, hub, 2)
	jobs.Start()

	watcher, err := library.NewWatcher(libraryDir, func() {
		if err := engine.Rescan(); err != nil {
			logger.Warn("rescan after directory change failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Warn("directory watcher unavailable", zap.Error(err))
	} else {
		watcher.Start()
		defer watcher.Close()
	}

	// Initialize handlers
	songsHandler := handlers.NewSongsHandler(engine)
	jobsHandler := handlers.NewJobsHandler(jobs, hub)
	healthHandler := handlers.NewHealthHandler()
	settingsHandler := handlers.NewSettingsHandler()

	// Setup router
	r := gin.New()
	r.Use(gin.Recovery())

	// Apply middleware
	r.Use(middleware.CORS())
	r.Use(middleware.Logging())

	// Setup routes
	setupRoutes(r, songsHandler, jobsHandler, healthHandler, settingsHandler)

	// Start server
	portStr := strconv.Itoa(port)
	if serverPort := os.Getenv("SERVER_PORT"); serverPort != "" {
		portStr = serverPort
	}

	logger.Info("CrossPlay web server starting",
		zap.String("port", portStr),
		zap.String("library", libraryDir))
	if err := r.Run(":" + portStr); err != nil {
		logger.Error("failed to start server", zap.Error(err))
		os.Exit(1)
	}
}

// setupRoutes configures all the HTTP routes
func setupRoutes(r *gin.Engine, songsHandler *handlers.SongsHandler, jobsHandler *handlers.JobsHandler, healthHandler *handlers.HealthHandler, settingsHandler *handlers.SettingsHandler) {
	// Health check endpoint
	r.GET("/health", healthHandler.HealthCheck)

	// API routes group
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/status", healthHandler.APIStatus)

		// Library catalog endpoints
		songsGroup := apiGroup.Group("/songs")
		{
			songsGroup.GET("", songsHandler.ListSongs)
			songsGroup.POST("/rescan", songsHandler.Rescan)
			songsGroup.POST("/visibility", songsHandler.ToggleVisibility)
			songsGroup.DELETE("", songsHandler.DeleteSong)
			songsGroup.PUT("/tags", songsHandler.UpdateTags)
		}

		// Job submission endpoints
		apiGroup.POST("/downloads", jobsHandler.SubmitDownload)
		apiGroup.POST("/trims", jobsHandler.SubmitTrim)

		// Job management endpoints
		jobsGroup := apiGroup.Group("/jobs")
		{
			jobsGroup.GET("", jobsHandler.GetAllJobs)
			jobsGroup.GET("/:jobId", jobsHandler.GetJob)
			jobsGroup.DELETE("/:jobId", jobsHandler.CancelJob)
		}

		// WebSocket endpoints for real-time progress
		wsGroup := apiGroup.Group("/ws")
		{
			// WebSocket endpoint for specific job progress
			wsGroup.GET("/jobs/:jobId", jobsHandler.HandleJobSocket)

			// WebSocket endpoint for all jobs progress
			wsGroup.GET("/jobs", jobsHandler.HandleJobsSocket)

			// WebSocket endpoint for catalog change notifications
			wsGroup.GET("/library", jobsHandler.HandleLibrarySocket)
		}

		// Settings endpoints
		apiGroup.GET("/settings", settingsHandler.GetSettings)
		apiGroup.POST("/settings", settingsHandler.UpdateSettings)
	}
}
