package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"crossplay/config"
)

// Range is a [Start, End) cut within a song.
type Range struct {
	Start time.Duration
	End   time.Duration
}

// TranscodeError reports a failed invocation of the external transcode tool.
type TranscodeError struct {
	Src    string
	Stderr string
	Err    error
}

func (e *TranscodeError) Error() string {
	msg := fmt.Sprintf("transcode %s: %v", e.Src, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *TranscodeError) Unwrap() error { return e.Err }

// Transcoder converts staged raw audio into library MP3s and cuts ranges out
// of existing ones.
type Transcoder interface {
	Transcode(ctx context.Context, src, dest string) error
	Cut(ctx context.Context, src, dest string, cut Range) error
}

// FFmpegTranscoder invokes ffmpeg.
type FFmpegTranscoder struct {
	Binary string
}

// NewTranscoder creates a transcoder using the configured binary.
func NewTranscoder() *FFmpegTranscoder {
	return &FFmpegTranscoder{Binary: config.GetTranscodeTool()}
}

// Transcode re-encodes src into a normalized MP3 at dest.
func (t *FFmpegTranscoder) Transcode(ctx context.Context, src, dest string) error {
	return t.run(ctx, src,
		"-y",
		"-i", src,
		"-vn",
		"-codec:a", "libmp3lame",
		"-q:a", "2",
		dest,
	)
}

// Cut copies the [Start, End) range of src into dest without re-encoding,
// so the operation is lossless and fast.
func (t *FFmpegTranscoder) Cut(ctx context.Context, src, dest string, cut Range) error {
	return t.run(ctx, src,
		"-y",
		"-ss", formatSeconds(cut.Start),
		"-to", formatSeconds(cut.End),
		"-i", src,
		"-codec:a", "copy",
		dest,
	)
}

func (t *FFmpegTranscoder) run(ctx context.Context, src string, args ...string) error {
	cmd := exec.CommandContext(ctx, t.Binary, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TranscodeError{Src: src, Stderr: lastLine(stderr.String()), Err: err}
	}
	return nil
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
