package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// stillOffsetSeconds is where the representative frame is taken
const stillOffsetSeconds = 1.0

// FrameExtractor renders one JPEG frame of a video clip
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, video []byte) ([]byte, error)
}

// FFmpegExtractor shells out to ffprobe and ffmpeg
type FFmpegExtractor struct {
	FFmpegPath  string
	FFprobePath string
}

func NewFFmpegExtractor(ffmpegPath, ffprobePath string) *FFmpegExtractor {
	return &FFmpegExtractor{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath}
}

// ExtractFrame seeks 1s into the clip, or to its start when the clip is shorter
func (e *FFmpegExtractor) ExtractFrame(ctx context.Context, video []byte) ([]byte, error) {
	tmp, err := os.CreateTemp("", "clip-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(video); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	duration, err := e.probeDuration(ctx, tmp.Name())
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.FFmpegPath,
		"-v", "error",
		"-ss", strconv.FormatFloat(seekOffset(duration), 'f', 3, 64),
		"-i", tmp.Name(),
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"pipe:1",
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no frame")
	}
	return stdout.Bytes(), nil
}

func (e *FFmpegExtractor) probeDuration(ctx context.Context, path string) (float64, error) {
	out, err := exec.CommandContext(ctx, e.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	s := strings.TrimSpace(string(out))
	if s == "" || s == "N/A" {
		return 0, nil
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe returned unreadable duration %q", s)
	}
	return d, nil
}

func seekOffset(duration float64) float64 {
	if duration < stillOffsetSeconds {
		return 0
	}
	return stillOffsetSeconds
}
