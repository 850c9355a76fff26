// Package probe reads duration and stream-presence facts from media files
// using ffprobe. Results are never cached: files are rewritten between
// pipeline stages, so every caller probes again.
package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// Static errors for probe operations.
var (
	// ErrInvalidDuration is returned when ffprobe reports a non-positive duration.
	ErrInvalidDuration = errors.New("invalid duration: must be positive")
	// ErrNotNumeric is returned when the reported duration cannot be parsed.
	ErrNotNumeric = errors.New("duration is not numeric")
)

// Asset is a media file plus the facts probed from it.
type Asset struct {
	Path     string
	Duration float64
	HasAudio bool
}

// Prober defines the metadata queries the editing pipeline relies on.
type Prober interface {
	// Duration returns the container duration in seconds.
	Duration(ctx context.Context, path string) (float64, error)

	// HasAudioStream reports whether the file has at least one audio stream.
	// Indeterminate results are reported as false.
	HasAudioStream(ctx context.Context, path string) bool
}

// FFprobe implements Prober using the ffprobe CLI.
type FFprobe struct {
	// binPath is the path to the ffprobe binary. Defaults to "ffprobe".
	binPath string
	logger  *slog.Logger
}

// NewFFprobe creates a new FFprobe.
// If binPath is empty, it defaults to "ffprobe" (found via PATH).
func NewFFprobe(binPath string, logger *slog.Logger) *FFprobe {
	if binPath == "" {
		binPath = "ffprobe"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FFprobe{binPath: binPath, logger: logger}
}

// Duration returns the duration in seconds of a media file.
func (p *FFprobe) Duration(ctx context.Context, path string) (float64, error) {
	stdout, stderr, err := p.run(ctx,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, &ProbeError{Path: path, Query: "duration", Stderr: stderr, Err: err}
	}

	d, err := parseDuration(stdout)
	if err != nil {
		return 0, &ProbeError{Path: path, Query: "duration", Stderr: stderr, Err: err}
	}
	return d, nil
}

// HasAudioStream selects the first audio stream and reports whether ffprobe
// found one. Errors and empty output count as "no audio" so that callers
// fall back to synthesizing a track instead of failing.
func (p *FFprobe) HasAudioStream(ctx context.Context, path string) bool {
	stdout, stderr, err := p.run(ctx,
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=codec_type",
		"-of", "csv=p=0",
		path,
	)
	if err != nil {
		p.logger.Debug("audio stream probe failed, assuming no audio",
			slog.String("path", path),
			slog.String("error", err.Error()),
			slog.String("stderr", stderr),
		)
		return false
	}
	return parseHasAudio(stdout)
}

// Describe probes both facts for path.
func Describe(ctx context.Context, p Prober, path string) (Asset, error) {
	d, err := p.Duration(ctx, path)
	if err != nil {
		return Asset{}, err
	}
	return Asset{Path: path, Duration: d, HasAudio: p.HasAudioStream(ctx, path)}, nil
}

func (p *FFprobe) run(ctx context.Context, args ...string) (string, string, error) {
	// #nosec G204 - binPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.binPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", stderr.String(), fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return "", stderr.String(), err
	}
	return stdout.String(), stderr.String(), nil
}

// parseDuration parses ffprobe's bare duration output.
func parseDuration(out string) (float64, error) {
	s := strings.TrimSpace(out)
	// Some containers report one duration per program; the first one wins.
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotNumeric, s)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: got %.3f", ErrInvalidDuration, d)
	}
	return d, nil
}

// parseHasAudio interprets the codec_type listing for the a:0 selection.
func parseHasAudio(out string) bool {
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(strings.TrimSuffix(line, ",")) == "audio" {
			return true
		}
	}
	return false
}

// Verify interface implementation at compile time.
var _ Prober = (*FFprobe)(nil)
