// Package audio guarantees that video assets carry a usable audio stream.
package audio

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/maauso/mediaforge/internal/command"
	"github.com/maauso/mediaforge/internal/eventlog"
	"github.com/maauso/mediaforge/internal/pipeline"
	"github.com/maauso/mediaforge/internal/probe"
	"github.com/maauso/mediaforge/internal/storage"
)

// Result is the outcome of EnsureAudio.
type Result struct {
	// Path has an audio stream unless Fallback is set.
	Path string
	// Synthesized is set when Path is a temp artifact with generated noise.
	Synthesized bool
	// Fallback is set when synthesis failed and Path is the untouched
	// input. Callers must then inject a noise source in their own graph.
	Fallback bool
}

// Normalizer adds a near-silent noise track to videos that have none.
type Normalizer struct {
	prober  probe.Prober
	runner  pipeline.Runner
	builder *command.Builder
	events  eventlog.Logger
	logger  *slog.Logger
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(prober probe.Prober, runner pipeline.Runner, builder *command.Builder, events eventlog.Logger, logger *slog.Logger) *Normalizer {
	if events == nil {
		events = eventlog.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		prober:  prober,
		runner:  runner,
		builder: builder,
		events:  events,
		logger:  logger,
	}
}

// EnsureAudio returns path itself when it already has audio. Otherwise it
// generates noise of the video's duration, remuxes it with the copied video
// stream into a temp artifact owned by artifacts, and confirms the result by
// probing it again.
//
// Only a failure to probe the input's duration is returned as an error. Any
// later failure yields a Fallback result with every intermediate removed.
func (n *Normalizer) EnsureAudio(ctx context.Context, path string, artifacts *storage.Artifacts, progress pipeline.ProgressFunc) (Result, error) {
	return n.ensure(ctx, path, "", artifacts, progress)
}

// EnsureAudioAt is EnsureAudio with the remuxed file written to dest instead
// of a temp artifact. dest is owned by the caller and is left in place on
// fallback.
func (n *Normalizer) EnsureAudioAt(ctx context.Context, path, dest string, artifacts *storage.Artifacts, progress pipeline.ProgressFunc) (Result, error) {
	return n.ensure(ctx, path, dest, artifacts, progress)
}

func (n *Normalizer) ensure(ctx context.Context, path, dest string, artifacts *storage.Artifacts, progress pipeline.ProgressFunc) (Result, error) {
	if n.prober.HasAudioStream(ctx, path) {
		return Result{Path: path}, nil
	}

	duration, err := n.prober.Duration(ctx, path)
	if err != nil {
		return Result{}, err
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	noise := artifacts.Allocate(stem, "noise", ".m4a")
	owned := []string{noise}
	if dest == "" {
		dest = artifacts.Allocate(stem, "audio", ContainerFor(path))
		owned = append(owned, dest)
	}

	fallback := func(cause error) (Result, error) {
		n.discard(ctx, artifacts, owned...)
		n.events.Log(eventlog.LevelWarn, eventlog.NormalizeFallback,
			"audio synthesis failed, falling back to in-graph noise",
			map[string]any{"path": path, "error": cause.Error()})
		return Result{Path: path, Fallback: true}, nil
	}

	inv, err := n.builder.GenerateSilence(duration, noise)
	if err != nil {
		return fallback(err)
	}
	if _, err := n.runner.Run(ctx, inv.Args, progress); err != nil {
		return fallback(err)
	}

	inv, err = n.builder.Remux(path, noise, dest)
	if err != nil {
		return fallback(err)
	}
	if _, err := n.runner.Run(ctx, inv.Args, progress); err != nil {
		return fallback(err)
	}
	n.discard(ctx, artifacts, noise)
	owned = owned[1:]

	if !n.prober.HasAudioStream(ctx, dest) {
		return fallback(errNotConfirmed)
	}

	n.logger.Debug("synthesized audio track", "path", path, "result", dest, "duration", duration)
	return Result{Path: dest, Synthesized: true}, nil
}

func (n *Normalizer) discard(ctx context.Context, artifacts *storage.Artifacts, paths ...string) {
	for _, p := range paths {
		if err := artifacts.Discard(ctx, p); err != nil {
			n.events.Log(eventlog.LevelWarn, eventlog.ArtifactCleanupFailed,
				"failed to remove temp artifact", map[string]any{"path": p, "error": err.Error()})
		}
	}
}

// ContainerFor returns the extension for a remux of path: containers that
// take AAC next to the copied video are kept, everything else becomes
// Matroska.
func ContainerFor(path string) string {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp4", ".mov", ".m4v", ".mkv":
		return ext
	default:
		return ".mkv"
	}
}
