package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	"crossplay/cmd"
	"crossplay/config"
	"crossplay/logger"
	"crossplay/metadata"
	"crossplay/services"
	"crossplay/tools"
	"crossplay/types"
)

func main() {
	// .env is optional; environment variables win either way
	_ = godotenv.Load()

	logger.Init(logger.DefaultConfig())
	defer logger.Sync()

	asciiArt := `
  ____                     ____  _
 / ___|_ __ ___  ___ ___  |  _ \| | __ _ _   _
| |   | '__/ _ \/ __/ __| | |_) | |/ _` + "`" + ` | | | |
| |___| | | (_) \__ \__ \ |  __/| | (_| | |_| |
 \____|_|  \___/|___/___/ |_|   |_|\__,_|\__, |
                                         |___/
`

	var (
		server     bool
		port       int
		libraryDir string
		download   string
	)

	flag.BoolVar(&server, "server", false, "Start in web server mode")
	flag.IntVar(&port, "port", 8080, "Port for web server mode")
	flag.StringVar(&libraryDir, "library", "", "Library directory (defaults to settings, then CROSSPLAY_LIBRARY)")
	flag.StringVar(&download, "download", "", "Source URL to download into the library and exit")
	flag.Parse()

	// Server mode takes precedence
	if server {
		cmd.StartWebServer(port, libraryDir)
		return
	}

	if download == "" {
		flag.Usage()
		return
	}

	fmt.Println(asciiArt)

	if libraryDir == "" {
		libraryDir = config.GetLibraryLocation()
	}
	if err := os.MkdirAll(libraryDir, 0755); err != nil {
		log.Fatalf("Cannot create library directory %s: %s", libraryDir, err)
	}

	if err := runDownload(libraryDir, download); err != nil {
		log.Fatalf("Download failed: %s", err)
	}
}

// runDownload fetches a single song into the library, reporting each
// pipeline stage on a terminal progress bar.
func runDownload(libraryDir, sourceURL string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bar := progressbar.NewOptions(3,
		progressbar.OptionSetDescription("queued"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	job := services.DownloadJob{
		LibraryDir: libraryDir,
		SourceURL:  sourceURL,
		Fetcher:    tools.NewFetcher(),
		Transcoder: tools.NewTranscoder(),
		Codec:      metadata.NewCodec(),
	}

	path, title, err := job.Run(ctx, func(status types.JobStatus, _ string) {
		bar.Describe(string(status))
		switch status {
		case types.JobStatusTranscoding, types.JobStatusTagging:
			bar.Add(1)
		}
	})
	if err != nil {
		return err
	}

	bar.Finish()
	fmt.Printf("Downloaded %q to %s\n", title, path)
	return nil
}
