package command

import (
	"strconv"

	fg "github.com/maauso/mediaforge/internal/filtergraph"
)

// InsertMode selects how inserted audio combines with the existing track.
type InsertMode string

const (
	// ModeMix adds the new audio on top of the original.
	ModeMix InsertMode = "mix"
	// ModeOverwrite replaces [start, start+len) of the original.
	ModeOverwrite InsertMode = "overwrite"
	// ModePush inserts at start and shifts the rest of the original later.
	ModePush InsertMode = "push"
)

// Valid reports whether m is a known mode.
func (m InsertMode) Valid() bool {
	switch m {
	case ModeMix, ModeOverwrite, ModePush:
		return true
	}
	return false
}

// AudioInsert describes an add-audio or insert-silence request.
type AudioInsert struct {
	Video         string
	VideoDuration float64
	VideoHasAudio bool

	// Audio is the inserted file. Ignored when Silence is set.
	Audio string
	// AudioDuration is the inserted length: the probed duration of Audio, or
	// the requested silence length.
	AudioDuration float64
	Silence       bool

	Mode  InsertMode
	Start float64
	// Volume scales the inserted audio. Zero means unchanged.
	Volume float64
}

func (r AudioInsert) validate() error {
	if err := requirePath("video", r.Video); err != nil {
		return err
	}
	if !r.Silence {
		if err := requirePath("audio", r.Audio); err != nil {
			return err
		}
	}
	if !r.Mode.Valid() {
		return invalid("mode", ErrUnknownMode, "%q", string(r.Mode))
	}
	if err := requirePositive("video duration", r.VideoDuration); err != nil {
		return err
	}
	if err := requirePositive("audio duration", r.AudioDuration); err != nil {
		return err
	}
	if err := requireNonNegative("start", r.Start); err != nil {
		return err
	}
	if r.Start >= r.VideoDuration {
		return invalid("start", ErrOutOfRange, "%g is past the end of the video (%g)", r.Start, r.VideoDuration)
	}
	if r.Volume < 0 {
		return invalid("volume", ErrOutOfRange, "must not be negative, got %g", r.Volume)
	}
	return nil
}

// AddAudio combines new audio (or synthetic noise) with a video's track
// according to Mode. The video stream is always copied.
func (b *Builder) AddAudio(r AudioInsert, output string) (*Invocation, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}

	a := newArgs().input(r.Video)
	if r.Silence {
		a = a.noiseInput(r.AudioDuration)
	} else {
		a = a.input(r.Audio)
	}

	g := insertGraph(r)

	a = a.graph(g).
		add("-map", "0:v:0").mapLabel("aout").
		add("-c:v", "copy").
		add(AACTarget()...)
	return b.finish(a, output, g), nil
}

func insertGraph(r AudioInsert) *fg.Graph {
	g := fg.New()
	vd := r.VideoDuration

	ins := []fg.Filter{audioFormat()}
	if r.Volume > 0 && r.Volume != 1 {
		ins = append(ins, fg.F("volume", fg.Value(r.Volume)))
	}

	if !r.VideoHasAudio {
		ins = append(ins,
			fg.F("adelay", "delays="+fg.Millis(r.Start), "all=1"),
			fg.F("apad", fg.KV("whole_dur", vd)),
		)
		if r.Mode != ModePush {
			ins = append(ins, fg.F("atrim", fg.KV("end", vd)))
		}
		return g.Add([]string{"1:a"}, "aout", ins...)
	}

	if r.Mode == ModeMix {
		ins = append(ins, fg.F("adelay", "delays="+fg.Millis(r.Start), "all=1"))
		g.Add([]string{"1:a"}, "ins", ins...)
		g.Add([]string{"0:a"}, "orig", audioFormat())
		return g.Add([]string{"orig", "ins"}, "aout",
			fg.F("amix", "inputs=2", "duration=first", "dropout_transition=0", "normalize=0"),
			fg.F("apad", fg.KV("whole_dur", vd)),
		)
	}

	g.Add([]string{"1:a"}, "ins", ins...)

	// The tail starts after the replaced range for overwrite and right at
	// the insertion point for push.
	tailStart := r.Start
	if r.Mode == ModeOverwrite {
		tailStart = r.Start + r.AudioDuration
	}
	hasHead := r.Start > 0
	hasTail := tailStart < vd

	var splits []string
	if hasHead {
		splits = append(splits, "head_src")
	}
	if hasTail {
		splits = append(splits, "tail_src")
	}
	orig := []fg.Filter{audioFormat()}
	switch len(splits) {
	case 2:
		g.AddMulti([]string{"0:a"}, splits, append(orig, fg.F("asplit", "2"))...)
	case 1:
		g.Add([]string{"0:a"}, splits[0], orig...)
	}

	var segments []string
	if hasHead {
		g.Add([]string{"head_src"}, "head",
			fg.F("atrim", fg.KV("end", r.Start)),
			fg.F("asetpts", "PTS-STARTPTS"),
		)
		segments = append(segments, "head")
	}
	segments = append(segments, "ins")
	if hasTail {
		g.Add([]string{"tail_src"}, "tail",
			fg.F("atrim", fg.KV("start", tailStart)),
			fg.F("asetpts", "PTS-STARTPTS"),
		)
		segments = append(segments, "tail")
	}

	chain := []fg.Filter{
		fg.F("concat", "n="+strconv.Itoa(len(segments)), "v=0", "a=1"),
		fg.F("apad", fg.KV("whole_dur", vd)),
	}
	if r.Mode == ModeOverwrite {
		chain = append(chain, fg.F("atrim", fg.KV("end", vd)))
	}
	return g.Add(segments, "aout", chain...)
}

// ExtractAudio copies the first audio stream into an audio file whose codec
// follows the output extension.
func (b *Builder) ExtractAudio(input, output string) (*Invocation, error) {
	if err := requirePath("input", input); err != nil {
		return nil, err
	}
	a := newArgs().input(input).
		add("-map", "0:a:0", "-vn").
		add(AudioCodecFor(output)...)
	return b.finish(a, output, nil), nil
}

// GenerateSilence writes a near-silent noise track of the given length.
func (b *Builder) GenerateSilence(seconds float64, output string) (*Invocation, error) {
	if err := requirePositive("duration", seconds); err != nil {
		return nil, err
	}
	a := newArgs().noiseInput(seconds).
		add("-t", fg.Seconds(seconds)).
		add(AudioCodecFor(output)...)
	return b.finish(a, output, nil), nil
}

// Remux pairs the first video stream of video with the first audio stream of
// audio. Video is copied.
func (b *Builder) Remux(video, audio, output string) (*Invocation, error) {
	if err := requirePath("video", video); err != nil {
		return nil, err
	}
	if err := requirePath("audio", audio); err != nil {
		return nil, err
	}
	a := newArgs().input(video).input(audio).
		add("-map", "0:v:0", "-map", "1:a:0", "-c:v", "copy").
		add(AACTarget()...)
	return b.finish(a, output, nil), nil
}

// MergeAudios concatenates audio files end to end.
func (b *Builder) MergeAudios(inputs []string, output string) (*Invocation, error) {
	if len(inputs) < 2 {
		return nil, invalid("inputs", ErrMissing, "need at least 2, got %d", len(inputs))
	}

	a := newArgs()
	labels := make([]string, len(inputs))
	for i, in := range inputs {
		if err := requirePath("input", in); err != nil {
			return nil, err
		}
		a = a.input(in)
		labels[i] = inLabel(i, "a")
	}

	g := fg.New().Add(labels, "aout",
		fg.F("concat", "n="+strconv.Itoa(len(inputs)), "v=0", "a=1"))

	a = a.graph(g).mapLabel("aout").add(AudioCodecFor(output)...)
	return b.finish(a, output, g), nil
}
