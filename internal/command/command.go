// Package command translates editing operations into ffmpeg argument lists.
//
// Every builder method is pure: it takes stream-presence facts and durations
// that the caller has already probed and returns an Invocation. Nothing here
// touches the filesystem or spawns a process.
package command

import (
	"path/filepath"
	"strconv"
	"strings"

	fg "github.com/maauso/mediaforge/internal/filtergraph"
)

// Fixed audio target for every re-encoded audio stream.
const (
	AudioCodec      = "aac"
	AudioBitrate    = "192k"
	AudioSampleRate = 44100
	AudioChannels   = 2

	// NoiseAmplitude keeps synthesized "silence" audible to encoders and
	// containers that drop digitally silent tracks.
	NoiseAmplitude = 0.0005
)

// Encoding configures video re-encoding.
type Encoding struct {
	VideoCodec  string
	Preset      string
	CRF         int
	PixelFormat string
}

// DefaultEncoding returns libx264/fast/23/yuv420p.
func DefaultEncoding() Encoding {
	return Encoding{
		VideoCodec:  "libx264",
		Preset:      "fast",
		CRF:         23,
		PixelFormat: "yuv420p",
	}
}

// Invocation is one ffmpeg run. Output is always the last element of Args.
type Invocation struct {
	Args   []string
	Output string
	// Graph is the -filter_complex graph, nil when the run has none.
	Graph *fg.Graph
}

// Builder builds ffmpeg invocations for every editing operation.
type Builder struct {
	enc Encoding
}

// NewBuilder creates a Builder. Zero fields of enc fall back to DefaultEncoding.
func NewBuilder(enc Encoding) *Builder {
	def := DefaultEncoding()
	if enc.VideoCodec == "" {
		enc.VideoCodec = def.VideoCodec
	}
	if enc.Preset == "" {
		enc.Preset = def.Preset
	}
	if enc.CRF == 0 {
		enc.CRF = def.CRF
	}
	if enc.PixelFormat == "" {
		enc.PixelFormat = def.PixelFormat
	}
	return &Builder{enc: enc}
}

// Encoding returns the effective encoding settings.
func (b *Builder) Encoding() Encoding {
	return b.enc
}

// args accumulates an argument list starting with the common preamble.
type args []string

func newArgs() args {
	return args{"-hide_banner", "-nostdin", "-y"}
}

func (a args) add(v ...string) args {
	return append(a, v...)
}

func (a args) input(path string) args {
	return append(a, "-i", path)
}

func (a args) noiseInput(seconds float64) args {
	return append(a, "-f", "lavfi", "-i", NoiseSource(seconds))
}

func (a args) graph(g *fg.Graph) args {
	return append(a, "-filter_complex", g.Render())
}

func (a args) mapLabel(label string) args {
	return append(a, "-map", "["+label+"]")
}

func (b *Builder) finish(a args, output string, g *fg.Graph) *Invocation {
	a = append(a, output)
	return &Invocation{Args: a, Output: output, Graph: g}
}

func (b *Builder) videoEncode() []string {
	return []string{
		"-c:v", b.enc.VideoCodec,
		"-preset", b.enc.Preset,
		"-crf", strconv.Itoa(b.enc.CRF),
		"-pix_fmt", b.enc.PixelFormat,
	}
}

// AACTarget returns the codec arguments for the fixed audio target.
func AACTarget() []string {
	return []string{
		"-c:a", AudioCodec,
		"-b:a", AudioBitrate,
		"-ar", strconv.Itoa(AudioSampleRate),
		"-ac", strconv.Itoa(AudioChannels),
	}
}

// AudioCodecFor picks audio codec arguments from the output extension.
// Unknown extensions get the AAC target.
func AudioCodecFor(output string) []string {
	rate := strconv.Itoa(AudioSampleRate)
	channels := strconv.Itoa(AudioChannels)

	switch strings.ToLower(filepath.Ext(output)) {
	case ".mp3":
		return []string{"-c:a", "libmp3lame", "-b:a", AudioBitrate, "-ar", rate, "-ac", channels}
	case ".wav":
		return []string{"-c:a", "pcm_s16le", "-ar", rate, "-ac", channels}
	case ".flac":
		return []string{"-c:a", "flac", "-ar", rate, "-ac", channels}
	case ".ogg", ".opus":
		// libopus only accepts 48 kHz and its integer fractions.
		return []string{"-c:a", "libopus", "-b:a", AudioBitrate, "-ar", "48000", "-ac", channels}
	default:
		return AACTarget()
	}
}

// NoiseSource is the lavfi source for near-silent white noise lasting seconds.
func NoiseSource(seconds float64) string {
	return fg.F("anoisesrc",
		fg.KV("d", seconds),
		"c=white",
		fg.KV("r", AudioSampleRate),
		"a="+strconv.FormatFloat(NoiseAmplitude, 'f', -1, 64),
	).String()
}

// audioFormat normalizes an audio stream to the target layout.
func audioFormat() fg.Filter {
	return fg.F("aformat",
		"sample_fmts=fltp",
		fg.KV("sample_rates", AudioSampleRate),
		"channel_layouts=stereo",
	)
}

func inLabel(index int, kind string) string {
	return strconv.Itoa(index) + ":" + kind
}
