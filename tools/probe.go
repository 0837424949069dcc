package tools

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tcolgate/mp3"
)

// Prober reports the playable duration of an MP3 file.
type Prober interface {
	Duration(path string) (time.Duration, error)
}

// FrameProber walks the MPEG frames of the file and sums their play time.
// ID3 blocks and other junk between frames are skipped by the decoder.
type FrameProber struct{}

// NewProber creates a frame-walking duration prober.
func NewProber() *FrameProber {
	return &FrameProber{}
}

func (p *FrameProber) Duration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", path, err)
	}
	defer f.Close()

	decoder := mp3.NewDecoder(f)

	var (
		frame   mp3.Frame
		skipped int
		total   time.Duration
	)
	for {
		if err := decoder.Decode(&frame, &skipped); err != nil {
			if err == io.EOF {
				break
			}
			return 0, fmt.Errorf("probe %s: %w", path, err)
		}
		total += frame.Duration()
	}

	return total, nil
}
