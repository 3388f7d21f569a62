package video

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

// Encoder turns a single still image into a short clip by shelling out
// to ffmpeg. Best-effort: callers treat any error as a soft failure.
type Encoder struct {
	ffmpegPath string
	duration   int
}

func NewEncoder(ffmpegPath string, durationSeconds int) *Encoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if durationSeconds <= 0 {
		durationSeconds = 5
	}
	return &Encoder{ffmpegPath: ffmpegPath, duration: durationSeconds}
}

// FromImage encodes image bytes into an mp4 of the configured duration.
func (e *Encoder) FromImage(ctx context.Context, image []byte) ([]byte, error) {
	dir, err := os.MkdirTemp("", "imagenbot-video-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	imgPath := filepath.Join(dir, "frame.jpg")
	outPath := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(imgPath, image, 0o600); err != nil {
		return nil, err
	}

	ectx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ectx, e.ffmpegPath,
		"-y",
		"-loop", "1",
		"-i", imgPath,
		"-t", strconv.Itoa(e.duration),
		"-r", "24",
		"-pix_fmt", "yuv420p",
		// Dimensions must be even for yuv420p.
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		outPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("video: ffmpeg failed: %w (%s)", err, tail(out, 300))
	}

	return os.ReadFile(outPath)
}

func tail(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[len(b)-n:])
}
