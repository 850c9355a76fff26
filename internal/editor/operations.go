package editor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/maauso/mediaforge/internal/audio"
	"github.com/maauso/mediaforge/internal/command"
	"github.com/maauso/mediaforge/internal/pipeline"
	"github.com/maauso/mediaforge/internal/probe"
)

// Trim cuts [Start, Start+Duration) from a video. A range running past the
// end of the input is shortened to the input's end.
func (e *Editor) Trim(ctx context.Context, req TrimRequest, progress pipeline.ProgressFunc) (*Result, error) {
	op := operation{name: OpTrim, inputs: []string{req.Input}, request: req.Target}

	return e.run(ctx, op, req.Validate, progress, func(ctx context.Context, s *session) error {
		asset, err := probe.Describe(ctx, e.prober, req.Input)
		if err != nil {
			return err
		}
		clip, err := clampClip(req.Input, req.Start, req.Duration, asset.Duration)
		if err != nil {
			return err
		}

		var inv *command.Invocation
		switch req.Mode {
		case TrimVideoOnly:
			inv, err = e.builder.TrimVideoOnly(clip, asset.HasAudio, s.out())
		case TrimAudioOnly:
			if !asset.HasAudio {
				return invalid("input", ErrNoAudioStream, req.Input)
			}
			inv, err = e.builder.TrimAudioOnly(clip, asset.Duration, s.out())
		default:
			inv, err = e.builder.Trim(clip, asset.HasAudio, s.out())
		}
		if err != nil {
			return err
		}
		return s.exec(ctx, inv)
	})
}

// TrimAudio cuts a range from an audio file.
func (e *Editor) TrimAudio(ctx context.Context, req TrimAudioRequest, progress pipeline.ProgressFunc) (*Result, error) {
	op := operation{name: OpTrimAudio, inputs: []string{req.Input}, request: req.Target}

	return e.run(ctx, op, req.Validate, progress, func(ctx context.Context, s *session) error {
		total, err := e.prober.Duration(ctx, req.Input)
		if err != nil {
			return err
		}
		clip, err := clampClip(req.Input, req.Start, req.Duration, total)
		if err != nil {
			return err
		}
		inv, err := e.builder.TrimAudioFile(clip, s.out())
		if err != nil {
			return err
		}
		return s.exec(ctx, inv)
	})
}

// AddAudio inserts audio, or generated near-silence, into a video using the
// mix, overwrite or push policy. When the audio source is the video itself
// its track is extracted to a temp file first.
func (e *Editor) AddAudio(ctx context.Context, req AddAudioRequest, progress pipeline.ProgressFunc) (*Result, error) {
	inputs := []string{req.Video}
	if !req.Silence {
		inputs = append(inputs, req.Audio)
	}
	op := operation{name: OpAddAudio, inputs: inputs, request: req.Target}

	return e.run(ctx, op, req.Validate, progress, func(ctx context.Context, s *session) error {
		video, err := probe.Describe(ctx, e.prober, req.Video)
		if err != nil {
			return err
		}

		ins := command.AudioInsert{
			Video:         req.Video,
			VideoDuration: video.Duration,
			VideoHasAudio: video.HasAudio,
			Mode:          req.Mode,
			Start:         req.Start,
			Volume:        req.Volume,
			Silence:       req.Silence,
		}

		if req.Silence {
			ins.AudioDuration = req.SilenceDuration
		} else {
			src := req.Audio
			if sameFile(req.Audio, req.Video) {
				if !video.HasAudio {
					return invalid("audio", ErrNoAudioStream, req.Audio)
				}
				extracted := s.artifacts.Allocate(stem(req.Audio), "extract", ".m4a")
				inv, err := e.builder.ExtractAudio(req.Audio, extracted)
				if err != nil {
					return err
				}
				if err := s.exec(ctx, inv); err != nil {
					return err
				}
				src = extracted
			} else if !e.prober.HasAudioStream(ctx, src) {
				return invalid("audio", ErrNoAudioStream, src)
			}

			d, err := e.prober.Duration(ctx, src)
			if err != nil {
				return err
			}
			ins.Audio = src
			ins.AudioDuration = d
		}

		inv, err := e.builder.AddAudio(ins, s.out())
		if err != nil {
			return err
		}
		return s.exec(ctx, inv)
	})
}

// ApplyFilter re-encodes a video through one cosmetic filter. An unknown
// filter name fails before anything is probed or spawned.
func (e *Editor) ApplyFilter(ctx context.Context, req FilterRequest, progress pipeline.ProgressFunc) (*Result, error) {
	op := operation{name: OpFilter, inputs: []string{req.Input}, request: req.Target}

	return e.run(ctx, op, req.Validate, progress, func(ctx context.Context, s *session) error {
		asset, err := probe.Describe(ctx, e.prober, req.Input)
		if err != nil {
			return err
		}
		inv, err := e.builder.ApplyFilter(req.Input, req.Name, req.Value, asset.HasAudio, s.out())
		if err != nil {
			return err
		}
		return s.exec(ctx, inv)
	})
}

// AddText burns a text overlay into a video.
func (e *Editor) AddText(ctx context.Context, req TextRequest, progress pipeline.ProgressFunc) (*Result, error) {
	op := operation{name: OpText, inputs: []string{req.Input}, request: req.Target}

	return e.run(ctx, op, req.Validate, progress, func(ctx context.Context, s *session) error {
		asset, err := probe.Describe(ctx, e.prober, req.Input)
		if err != nil {
			return err
		}

		textFile, err := e.store.SaveTemp(ctx, "text", strings.NewReader(req.Text))
		if err != nil {
			return err
		}
		s.artifacts.Track(textFile)

		inv, err := e.builder.AddText(command.TextOverlay{
			Input:     req.Input,
			TextFile:  textFile,
			FontFile:  req.FontFile,
			FontSize:  req.FontSize,
			FontColor: req.FontColor,
			X:         req.X,
			Y:         req.Y,
			Start:     req.Start,
			Duration:  req.Duration,
			HasAudio:  asset.HasAudio,
		}, s.out())
		if err != nil {
			return err
		}
		return s.exec(ctx, inv)
	})
}

// ExtractAudio writes the first audio stream of a video to an audio file.
// Without a requested output the result is an .m4a in the temp directory.
func (e *Editor) ExtractAudio(ctx context.Context, req ExtractAudioRequest, progress pipeline.ProgressFunc) (*Result, error) {
	op := operation{name: OpExtractAudio, inputs: []string{req.Input}, request: req.Target, ext: ".m4a"}

	return e.run(ctx, op, req.Validate, progress, func(ctx context.Context, s *session) error {
		asset, err := probe.Describe(ctx, e.prober, req.Input)
		if err != nil {
			return err
		}
		if !asset.HasAudio {
			return invalid("input", ErrNoAudioStream, req.Input)
		}
		inv, err := e.builder.ExtractAudio(req.Input, s.out())
		if err != nil {
			return err
		}
		return s.exec(ctx, inv)
	})
}

// Merge concatenates videos onto a common canvas. Inputs without audio get a
// synthesized track first; if that fails, noise is injected into the graph
// for them instead.
func (e *Editor) Merge(ctx context.Context, req MergeRequest, progress pipeline.ProgressFunc) (*Result, error) {
	op := operation{name: OpMerge, inputs: req.Inputs, request: req.Target}

	return e.run(ctx, op, req.Validate, progress, func(ctx context.Context, s *session) error {
		segments := make([]command.Segment, 0, len(req.Inputs))
		for _, in := range req.Inputs {
			norm, err := e.normalizer.EnsureAudio(ctx, in, s.artifacts, s.progress)
			if err != nil {
				return err
			}
			d, err := e.prober.Duration(ctx, norm.Path)
			if err != nil {
				return err
			}
			segments = append(segments, command.Segment{Path: norm.Path, Duration: d, HasAudio: !norm.Fallback})
		}

		m := command.Merge{
			Segments:           segments,
			Canvas:             e.canvasFor(req),
			TransitionDuration: req.TransitionDuration,
		}
		if req.crossfade() {
			m.Transition = req.Transition
		}
		inv, err := e.builder.Merge(m, s.out())
		if err != nil {
			return err
		}
		return s.exec(ctx, inv)
	})
}

// MergeAudios concatenates audio files end to end.
func (e *Editor) MergeAudios(ctx context.Context, req MergeAudiosRequest, progress pipeline.ProgressFunc) (*Result, error) {
	op := operation{name: OpMergeAudios, inputs: req.Inputs, request: req.Target}

	return e.run(ctx, op, req.Validate, progress, func(ctx context.Context, s *session) error {
		for _, in := range req.Inputs {
			if !e.prober.HasAudioStream(ctx, in) {
				return invalid("input", ErrNoAudioStream, in)
			}
		}
		inv, err := e.builder.MergeAudios(req.Inputs, s.out())
		if err != nil {
			return err
		}
		return s.exec(ctx, inv)
	})
}

// GenerateSilence writes a near-silent audio file of the requested length.
func (e *Editor) GenerateSilence(ctx context.Context, req SilenceRequest, progress pipeline.ProgressFunc) (*Result, error) {
	op := operation{name: OpGenerateSilence, request: req.Target, ext: ".m4a"}

	return e.run(ctx, op, req.Validate, progress, func(ctx context.Context, s *session) error {
		inv, err := e.builder.GenerateSilence(req.Duration, s.out())
		if err != nil {
			return err
		}
		return s.exec(ctx, inv)
	})
}

// EnsureAudio gives a video an audio track. A video that already has one is
// returned as is without writing anything; so is a video whose synthesis
// failed, with Fallback set.
func (e *Editor) EnsureAudio(ctx context.Context, req EnsureAudioRequest, progress pipeline.ProgressFunc) (*Result, error) {
	op := operation{name: OpEnsureAudio, inputs: []string{req.Input}, request: req.Target, ext: audio.ContainerFor(req.Input)}

	return e.run(ctx, op, req.Validate, progress, func(ctx context.Context, s *session) error {
		norm, err := e.normalizer.EnsureAudioAt(ctx, req.Input, s.out(), s.artifacts, s.progress)
		if err != nil {
			return err
		}
		if !norm.Synthesized {
			s.passthrough = true
			s.result = Result{Output: req.Input, Fallback: norm.Fallback}
			return nil
		}
		s.result.Synthesized = true
		return nil
	})
}

func (e *Editor) canvasFor(req MergeRequest) command.Canvas {
	c := e.canvas
	if req.Width > 0 {
		c.Width = req.Width
	}
	if req.Height > 0 {
		c.Height = req.Height
	}
	if req.FPS > 0 {
		c.FPS = req.FPS
	}
	return c
}

// clampClip shortens a range that runs past the end of the input.
func clampClip(input string, start, duration, total float64) (command.Clip, error) {
	if start >= total {
		return command.Clip{}, invalid("start", command.ErrOutOfRange,
			fmt.Sprintf("%g is past the end of %s (%g)", start, input, total))
	}
	if start+duration > total {
		duration = total - start
	}
	return command.Clip{Input: input, Start: start, Duration: duration}, nil
}

// sameFile reports whether a and b name the same file.
func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && absA == absB {
		return true
	}
	infoA, err := os.Stat(a)
	if err != nil {
		return false
	}
	infoB, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(infoA, infoB)
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
