package derive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Video derivation defaults. The bitrate/preset pair is a fixed
// bandwidth-oriented setting, not a quality knob.
const (
	DefaultVideoMaxWidth = 1280
	DefaultVideoTimeout  = 2 * time.Minute

	defaultFFmpegBin  = "ffmpeg"
	defaultFFprobeBin = "ffprobe"
	videoBitrate      = "1200k"
	videoPreset       = "veryfast"
)

// VideoTranscoder reduces videos through external ffprobe/ffmpeg
// invocations. Both calls are slow, blocking and fallible; every run is
// bounded by Timeout and works in a private temp directory, so a killed
// or failed transcode leaves nothing visible behind.
type VideoTranscoder struct {
	// MaxWidth bounds the derivative width. Narrower sources are
	// transcoded at their native size.
	MaxWidth int

	// FFmpeg and FFprobe are the binary names or paths to invoke.
	FFmpeg  string
	FFprobe string

	// Timeout bounds each external invocation.
	Timeout time.Duration
}

// NewVideoTranscoder creates a VideoTranscoder with the fixed preset.
func NewVideoTranscoder() *VideoTranscoder {
	return &VideoTranscoder{
		MaxWidth: DefaultVideoMaxWidth,
		FFmpeg:   defaultFFmpegBin,
		FFprobe:  defaultFFprobeBin,
		Timeout:  DefaultVideoTimeout,
	}
}

// Transcode probes the source's pixel width, then transcodes to H.264 at
// the fixed bitrate, downscaling with an even-height-preserving filter
// when the source is wider than MaxWidth.
func (t *VideoTranscoder) Transcode(ctx context.Context, src []byte, sourceName string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	work, err := os.MkdirTemp("", "derive-video-*")
	if err != nil {
		return nil, fmt.Errorf("%w: temp dir: %v", ErrFailed, err)
	}
	defer os.RemoveAll(work)

	inPath := filepath.Join(work, "in"+filepath.Ext(sourceName))
	if err := os.WriteFile(inPath, src, 0o600); err != nil {
		return nil, fmt.Errorf("%w: stage source: %v", ErrFailed, err)
	}

	width, err := t.probeWidth(ctx, inPath)
	if err != nil {
		return nil, err
	}

	outPath := filepath.Join(work, "out"+videoDerivativeExt)
	args := []string{"-y", "-i", inPath}
	if width > t.MaxWidth {
		// -2 keeps the height even, which H.264 requires.
		args = append(args, "-vf", fmt.Sprintf("scale=%d:-2", t.MaxWidth))
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", videoPreset,
		"-b:v", videoBitrate,
		"-c:a", "aac",
		"-movflags", "+faststart",
		outPath,
	)

	if err := t.run(ctx, t.FFmpeg, args...); err != nil {
		return nil, err
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read output: %v", ErrFailed, err)
	}
	return out, nil
}

// probeWidth asks ffprobe for the first video stream's pixel width.
func (t *VideoTranscoder) probeWidth(ctx context.Context, path string) (int, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.FFprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width",
		"-of", "json",
		path,
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, t.toolError(ctx, t.FFprobe, err, stderr.String())
	}

	var probe struct {
		Streams []struct {
			Width int `json:"width"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &probe); err != nil || len(probe.Streams) == 0 {
		return 0, fmt.Errorf("%w: no video stream in probe output", ErrFailed)
	}
	return probe.Streams[0].Width, nil
}

// run executes one external tool invocation, capturing stderr for the
// bounded diagnostic.
func (t *VideoTranscoder) run(ctx context.Context, bin string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return t.toolError(ctx, bin, err, stderr.String())
	}
	return nil
}

// toolError classifies an external tool failure into ErrFailed with a
// bounded message.
func (t *VideoTranscoder) toolError(ctx context.Context, bin string, err error, stderr string) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %s timed out after %s", ErrFailed, bin, t.Timeout)
	case errors.Is(err, exec.ErrNotFound):
		return fmt.Errorf("%w: %s not installed", ErrFailed, bin)
	default:
		return fmt.Errorf("%w: %s: %v: %s", ErrFailed, bin, err, truncateDiagnostic(stderr))
	}
}

// Ensure VideoTranscoder implements Transcoder.
var _ Transcoder = (*VideoTranscoder)(nil)
