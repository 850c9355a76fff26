package probe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFFprobe writes an executable shell script that prints stdout and exits
// with code, standing in for ffprobe.
func fakeFFprobe(t *testing.T, stdout string, code int) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found in PATH, skipping test")
	}
	path := filepath.Join(t.TempDir(), "ffprobe")
	script := fmt.Sprintf("#!/bin/sh\nprintf '%%s' '%s'\necho 'probe diagnostics' >&2\nexit %d\n", stdout, code)
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestNewFFprobe(t *testing.T) {
	assert.Equal(t, "ffprobe", NewFFprobe("", nil).binPath)
	assert.Equal(t, "/opt/ffprobe", NewFFprobe("/opt/ffprobe", nil).binPath)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    float64
		wantErr error
	}{
		{"plain", "12.500000\n", 12.5, nil},
		{"multiple lines", "10.0\n11.0\n", 10, nil},
		{"not available", "N/A\n", 0, ErrNotNumeric},
		{"empty", "", 0, ErrNotNumeric},
		{"zero", "0.000000", 0, ErrInvalidDuration},
		{"negative", "-1.5", 0, ErrInvalidDuration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDuration(tt.out)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseHasAudio(t *testing.T) {
	assert.True(t, parseHasAudio("audio\n"))
	assert.True(t, parseHasAudio("audio,\n"))
	assert.False(t, parseHasAudio(""))
	assert.False(t, parseHasAudio("\n"))
	assert.False(t, parseHasAudio("video\n"))
}

func TestFFprobe_Duration(t *testing.T) {
	ctx := context.Background()

	t.Run("valid duration", func(t *testing.T) {
		p := NewFFprobe(fakeFFprobe(t, "7.25", 0), nil)
		d, err := p.Duration(ctx, "clip.mp4")
		require.NoError(t, err)
		assert.InDelta(t, 7.25, d, 1e-9)
	})

	t.Run("ffprobe failure", func(t *testing.T) {
		p := NewFFprobe(fakeFFprobe(t, "", 1), nil)
		_, err := p.Duration(ctx, "missing.mp4")
		require.Error(t, err)

		var probeErr *ProbeError
		require.True(t, errors.As(err, &probeErr))
		assert.Equal(t, "missing.mp4", probeErr.Path)
		assert.Equal(t, "duration", probeErr.Query)
		assert.Contains(t, probeErr.Stderr, "probe diagnostics")
	})

	t.Run("non numeric", func(t *testing.T) {
		p := NewFFprobe(fakeFFprobe(t, "N/A", 0), nil)
		_, err := p.Duration(ctx, "clip.mp4")
		var probeErr *ProbeError
		require.True(t, errors.As(err, &probeErr))
		assert.ErrorIs(t, err, ErrNotNumeric)
	})

	t.Run("zero duration", func(t *testing.T) {
		p := NewFFprobe(fakeFFprobe(t, "0", 0), nil)
		_, err := p.Duration(ctx, "clip.mp4")
		assert.ErrorIs(t, err, ErrInvalidDuration)
	})

	t.Run("missing binary", func(t *testing.T) {
		p := NewFFprobe("/nonexistent/ffprobe", nil)
		_, err := p.Duration(ctx, "clip.mp4")
		var probeErr *ProbeError
		assert.True(t, errors.As(err, &probeErr))
	})
}

func TestFFprobe_HasAudioStream(t *testing.T) {
	ctx := context.Background()

	t.Run("audio present", func(t *testing.T) {
		p := NewFFprobe(fakeFFprobe(t, "audio", 0), nil)
		assert.True(t, p.HasAudioStream(ctx, "clip.mp4"))
	})

	t.Run("empty output", func(t *testing.T) {
		p := NewFFprobe(fakeFFprobe(t, "", 0), nil)
		assert.False(t, p.HasAudioStream(ctx, "clip.mp4"))
	})

	t.Run("error treated as no audio", func(t *testing.T) {
		p := NewFFprobe(fakeFFprobe(t, "audio", 1), nil)
		assert.False(t, p.HasAudioStream(ctx, "clip.mp4"))
	})
}

func TestDescribe(t *testing.T) {
	p := NewFFprobe(fakeFFprobe(t, "audio", 0), nil)

	// "audio" is not a duration, so Describe surfaces the probe error.
	_, err := Describe(context.Background(), p, "clip.mp4")
	assert.ErrorIs(t, err, ErrNotNumeric)
}

func TestFFprobe_RealMedia(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH, skipping test")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH, skipping test")
	}

	dir := t.TempDir()
	silent := filepath.Join(dir, "silent.mp4")
	cmd := exec.Command("ffmpeg", "-y",
		"-f", "lavfi", "-i", "color=c=blue:s=64x64:d=2",
		"-c:v", "libx264", "-preset", "ultrafast",
		silent,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test video: %v\noutput: %s", err, out)
	}

	p := NewFFprobe("", nil)
	asset, err := Describe(context.Background(), p, silent)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, asset.Duration, 0.1)
	assert.False(t, asset.HasAudio)
}
