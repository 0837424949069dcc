package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"crossplay/config"
)

// FetchResult carries whatever source metadata the fetch tool reported.
type FetchResult struct {
	Title string
}

// FetchError reports a failed invocation of the external fetch tool.
type FetchError struct {
	URL    string
	Stderr string
	Err    error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher retrieves the raw audio for a source URL into a staging file.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL, destPath string) (FetchResult, error)
}

// YtdlpFetcher invokes yt-dlp. The tool writes best-quality audio to the
// given destination path and prints the source title on stdout; cancelling
// the context kills the process.
type YtdlpFetcher struct {
	Binary string
}

// NewFetcher creates a fetcher using the configured binary.
func NewFetcher() *YtdlpFetcher {
	return &YtdlpFetcher{Binary: config.GetFetchTool()}
}

func (f *YtdlpFetcher) Fetch(ctx context.Context, sourceURL, destPath string) (FetchResult, error) {
	cmd := exec.CommandContext(ctx, f.Binary,
		"--format", "bestaudio",
		"--no-playlist",
		"--no-simulate",
		"--print", "after_move:title",
		"--output", destPath,
		sourceURL,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return FetchResult{}, ctx.Err()
		}
		return FetchResult{}, &FetchError{URL: sourceURL, Stderr: lastLine(stderr.String()), Err: err}
	}

	return FetchResult{Title: lastLine(stdout.String())}, nil
}

// lastLine returns the final non-empty line of tool output.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
