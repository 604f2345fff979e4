package thumbnail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"veobatch/internal/domain"
)

// Placeholder is a 1x1 transparent GIF returned whenever a frame cannot be
// extracted.
const Placeholder = "data:image/gif;base64,R0lGODlhAQABAAD/ACwAAAAAAQABAAACADs="

// DefaultTimeout bounds a single extraction.
const DefaultTimeout = 10 * time.Second

// Extractor produces a preview image for a playable media resource. It never
// fails: problems resolve to Placeholder.
type Extractor interface {
	Extract(ctx context.Context, mediaURL string) string
}

// runFunc executes a command and returns its stdout.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// FFmpeg grabs the frame one second into the video with the ffmpeg binary.
type FFmpeg struct {
	binary  string
	timeout time.Duration
	logger  zerolog.Logger
	run     runFunc
}

// NewFFmpeg wraps the ffmpeg binary at path (looked up on PATH when bare).
func NewFFmpeg(path string, timeout time.Duration, logger zerolog.Logger) *FFmpeg {
	if strings.TrimSpace(path) == "" {
		path = "ffmpeg"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &FFmpeg{binary: path, timeout: timeout, logger: logger, run: runCommand}
}

// Available reports whether the binary can be found.
func (f *FFmpeg) Available() bool {
	_, err := exec.LookPath(f.binary)
	return err == nil
}

// Extract returns a JPEG data URL of the frame at 1s, or Placeholder.
func (f *FFmpeg) Extract(ctx context.Context, mediaURL string) string {
	data, err := f.extract(ctx, mediaURL)
	if err != nil {
		f.logger.Warn().Err(err).Str("media", mediaURL).Msg("thumbnail: falling back to placeholder")
		return Placeholder
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)
}

func (f *FFmpeg) extract(ctx context.Context, mediaURL string) ([]byte, error) {
	mediaURL = strings.TrimSpace(mediaURL)
	if mediaURL == "" {
		return nil, fmt.Errorf("%w: media url is empty", domain.ErrThumbnail)
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-ss", "1",
		"-i", mediaURL,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "4",
		"pipe:1",
	}
	out, err := f.run(ctx, f.binary, args...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: timed out after %s", domain.ErrThumbnail, f.timeout)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrThumbnail, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no frame produced", domain.ErrThumbnail)
	}
	return out, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// Static always answers with the placeholder; used when ffmpeg is missing.
type Static struct{}

func (Static) Extract(context.Context, string) string { return Placeholder }

var (
	_ Extractor = (*FFmpeg)(nil)
	_ Extractor = Static{}
)
