package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
	"time"

	"golang.org/x/image/draw"
	_ "image/png" // frames arrive PNG-encoded from ffmpeg

	"github.com/TheMarco/sora-renderer/internal/infra"
)

const (
	// Seek a little into the clip to skip any leading black frame.
	frameOffset = 100 * time.Millisecond

	maxThumbWidth = 400
	jpegQuality   = 85
)

// FrameExtractor captures a single still frame from an encoded video.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, video []byte, offset time.Duration) (image.Image, error)
}

// FFmpegExtractor shells out to ffmpeg to decode one frame.
type FFmpegExtractor struct {
	binPath string
	logger  infra.Logger
}

// NewFFmpegExtractor builds an extractor using the given ffmpeg binary.
func NewFFmpegExtractor(binPath string, logger infra.Logger) *FFmpegExtractor {
	if binPath == "" {
		binPath = "ffmpeg"
	}
	return &FFmpegExtractor{binPath: binPath, logger: logger}
}

// ExtractFrame writes the video to a temp file, seeks to the offset and
// returns the decoded frame.
func (f *FFmpegExtractor) ExtractFrame(ctx context.Context, video []byte, offset time.Duration) (image.Image, error) {
	tmp, err := os.CreateTemp("", "sora-video-*.mp4")
	if err != nil {
		return nil, fmt.Errorf("thumbnail: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(video); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("thumbnail: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("thumbnail: close temp file: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.binPath,
		"-ss", fmt.Sprintf("%.3f", offset.Seconds()),
		"-i", tmp.Name(),
		"-frames:v", "1",
		"-f", "image2",
		"-vcodec", "png",
		"pipe:1",
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		f.logger.Debug().Str("stderr", stderr.String()).Msg("pipeline: ffmpeg failed")
		return nil, fmt.Errorf("thumbnail: ffmpeg: %w", err)
	}

	frame, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("thumbnail: decode frame: %w", err)
	}
	return frame, nil
}

// renderThumbnail downscales a frame to the bounded width, preserving aspect
// ratio, and re-encodes it as a compressed JPEG.
func renderThumbnail(frame image.Image) ([]byte, error) {
	bounds := frame.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("thumbnail: empty frame")
	}

	if width > maxThumbWidth {
		scale := float64(maxThumbWidth) / float64(width)
		height = int(float64(height) * scale)
		if height < 1 {
			height = 1
		}
		width = maxThumbWidth
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), frame, bounds, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("thumbnail: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
