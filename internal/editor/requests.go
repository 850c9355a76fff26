package editor

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/maauso/mediaforge/internal/command"
)

// Target is where an operation should write its result.
type Target struct {
	// Output is the requested path. Empty writes a generated file in the
	// temp directory.
	Output string `json:"output,omitempty"`
	// Overwrite replaces an existing Output instead of picking a " (n)" name.
	Overwrite bool `json:"overwrite,omitempty"`
}

func (t Target) validate() error {
	if t.Output != "" && filepath.Ext(t.Output) == "" {
		return invalid("output", ErrNoExtension, t.Output)
	}
	return nil
}

// TrimMode selects which streams a trim cuts.
type TrimMode string

const (
	// TrimBoth cuts video and audio together with a stream-copied video.
	TrimBoth TrimMode = "both"
	// TrimVideoOnly re-encodes both streams for a frame-accurate cut.
	TrimVideoOnly TrimMode = "video"
	// TrimAudioOnly keeps the video and replaces the audio with the range,
	// padded to the video length.
	TrimAudioOnly TrimMode = "audio"
)

// TrimRequest cuts a range from a video.
type TrimRequest struct {
	Input    string   `json:"input" validate:"required"`
	Start    float64  `json:"start" validate:"gte=0"`
	Duration float64  `json:"duration" validate:"gt=0"`
	Mode     TrimMode `json:"mode,omitempty" validate:"omitempty,oneof=both video audio"`
	Target
}

// Validate checks the request without touching the filesystem.
func (r TrimRequest) Validate() error {
	if r.Input == "" {
		return missing("input")
	}
	switch r.Mode {
	case "", TrimBoth, TrimVideoOnly, TrimAudioOnly:
	default:
		return invalid("mode", command.ErrOutOfRange, string(r.Mode))
	}
	if err := checkRange(r.Start, r.Duration); err != nil {
		return err
	}
	return r.Target.validate()
}

// TrimAudioRequest cuts a range from an audio file.
type TrimAudioRequest struct {
	Input    string  `json:"input" validate:"required"`
	Start    float64 `json:"start" validate:"gte=0"`
	Duration float64 `json:"duration" validate:"gt=0"`
	Target
}

// Validate checks the request without touching the filesystem.
func (r TrimAudioRequest) Validate() error {
	if r.Input == "" {
		return missing("input")
	}
	if err := checkRange(r.Start, r.Duration); err != nil {
		return err
	}
	return r.Target.validate()
}

// AddAudioRequest inserts an audio file, or generated silence, into a video.
type AddAudioRequest struct {
	Video string `json:"video" validate:"required"`
	// Audio is required unless Silence is set.
	Audio string             `json:"audio,omitempty" validate:"required_without=Silence"`
	Mode  command.InsertMode `json:"mode" validate:"required,oneof=mix overwrite push"`
	Start float64            `json:"start" validate:"gte=0"`
	// Volume scales the inserted audio in mix mode. Zero means unchanged.
	Volume float64 `json:"volume,omitempty" validate:"gte=0"`
	// Silence inserts SilenceDuration seconds of near-silent noise instead
	// of Audio.
	Silence         bool    `json:"silence,omitempty"`
	SilenceDuration float64 `json:"silence_duration,omitempty" validate:"required_if=Silence true,gte=0"`
	Target
}

// Validate checks the request without touching the filesystem.
func (r AddAudioRequest) Validate() error {
	if r.Video == "" {
		return missing("video")
	}
	if r.Silence {
		if !(r.SilenceDuration > 0) {
			return invalid("silence duration", command.ErrOutOfRange, "must be positive")
		}
	} else if r.Audio == "" {
		return missing("audio")
	}
	if !r.Mode.Valid() {
		return invalid("mode", command.ErrUnknownMode, string(r.Mode))
	}
	if !(r.Start >= 0) {
		return invalid("start", command.ErrOutOfRange, "must not be negative")
	}
	if r.Volume < 0 {
		return invalid("volume", command.ErrOutOfRange, "must not be negative")
	}
	return r.Target.validate()
}

// FilterRequest applies one cosmetic filter.
type FilterRequest struct {
	Input string  `json:"input" validate:"required"`
	Name  string  `json:"name" validate:"required"`
	Value float64 `json:"value"`
	Target
}

// Validate checks the request without touching the filesystem.
func (r FilterRequest) Validate() error {
	if err := command.CheckFilter(r.Name, r.Value); err != nil {
		return err
	}
	if r.Input == "" {
		return missing("input")
	}
	return r.Target.validate()
}

// TextRequest overlays text on a video.
type TextRequest struct {
	Input     string `json:"input" validate:"required"`
	Text      string `json:"text" validate:"required"`
	FontFile  string `json:"font_file,omitempty"`
	FontSize  int    `json:"font_size,omitempty" validate:"gte=0"`
	FontColor string `json:"font_color,omitempty"`
	// X and Y are drawtext expressions; empty centers the text.
	X string `json:"x,omitempty"`
	Y string `json:"y,omitempty"`
	// Start and Duration bound the overlay in time. Zero Duration shows it
	// for the whole video.
	Start    float64 `json:"start,omitempty" validate:"gte=0"`
	Duration float64 `json:"duration,omitempty" validate:"gte=0"`
	Target
}

// Validate checks the request without touching the filesystem.
func (r TextRequest) Validate() error {
	if r.Input == "" {
		return missing("input")
	}
	if r.Text == "" {
		return missing("text")
	}
	if r.FontSize < 0 {
		return invalid("font size", command.ErrOutOfRange, "must not be negative")
	}
	if !(r.Start >= 0) || !(r.Duration >= 0) {
		return invalid("window", command.ErrOutOfRange, "start and duration must not be negative")
	}
	return r.Target.validate()
}

// MergeRequest concatenates videos, optionally through xfade transitions.
type MergeRequest struct {
	Inputs []string `json:"inputs" validate:"min=2,dive,required"`
	// Transition is an xfade transition name. Empty or "none" joins the
	// inputs back to back.
	Transition         string  `json:"transition,omitempty"`
	TransitionDuration float64 `json:"transition_duration,omitempty" validate:"gte=0"`
	// Width, Height and FPS override the editor's default canvas.
	Width  int `json:"width,omitempty" validate:"gte=0"`
	Height int `json:"height,omitempty" validate:"gte=0"`
	FPS    int `json:"fps,omitempty" validate:"gte=0"`
	Target
}

func (r MergeRequest) crossfade() bool {
	return r.Transition != "" && r.Transition != command.TransitionNone
}

// Validate checks the request without touching the filesystem.
func (r MergeRequest) Validate() error {
	if len(r.Inputs) < 2 {
		return invalid("inputs", command.ErrMissing, fmt.Sprintf("need at least 2, got %d", len(r.Inputs)))
	}
	for _, in := range r.Inputs {
		if in == "" {
			return missing("input")
		}
	}
	if r.crossfade() {
		if !slices.Contains(command.Transitions, r.Transition) {
			return invalid("transition", command.ErrUnknownTransition, r.Transition)
		}
		if !(r.TransitionDuration > 0) {
			return invalid("transition duration", command.ErrOutOfRange, "must be positive")
		}
	}
	if r.Width < 0 || r.Height < 0 || r.FPS < 0 {
		return invalid("canvas", command.ErrOutOfRange, "must not be negative")
	}
	return r.Target.validate()
}

// MergeAudiosRequest concatenates audio files.
type MergeAudiosRequest struct {
	Inputs []string `json:"inputs" validate:"min=2,dive,required"`
	Target
}

// Validate checks the request without touching the filesystem.
func (r MergeAudiosRequest) Validate() error {
	if len(r.Inputs) < 2 {
		return invalid("inputs", command.ErrMissing, fmt.Sprintf("need at least 2, got %d", len(r.Inputs)))
	}
	for _, in := range r.Inputs {
		if in == "" {
			return missing("input")
		}
	}
	return r.Target.validate()
}

// ExtractAudioRequest writes a video's audio track to an audio file.
type ExtractAudioRequest struct {
	Input string `json:"input" validate:"required"`
	Target
}

// Validate checks the request without touching the filesystem.
func (r ExtractAudioRequest) Validate() error {
	if r.Input == "" {
		return missing("input")
	}
	return r.Target.validate()
}

// SilenceRequest generates a near-silent audio file.
type SilenceRequest struct {
	Duration float64 `json:"duration" validate:"gt=0"`
	Target
}

// Validate checks the request without touching the filesystem.
func (r SilenceRequest) Validate() error {
	if !(r.Duration > 0) {
		return invalid("duration", command.ErrOutOfRange, "must be positive")
	}
	return r.Target.validate()
}

// EnsureAudioRequest gives a video an audio track if it has none.
type EnsureAudioRequest struct {
	Input string `json:"input" validate:"required"`
	Target
}

// Validate checks the request without touching the filesystem.
func (r EnsureAudioRequest) Validate() error {
	if r.Input == "" {
		return missing("input")
	}
	return r.Target.validate()
}

func checkRange(start, duration float64) error {
	if !(start >= 0) {
		return invalid("start", command.ErrOutOfRange, "must not be negative")
	}
	if !(duration > 0) {
		return invalid("duration", command.ErrOutOfRange, "must be positive")
	}
	return nil
}
