package command

import (
	"math"
	"slices"
	"strconv"

	fg "github.com/maauso/mediaforge/internal/filtergraph"
)

// Transitions accepted by xfade.
var Transitions = []string{
	"fade", "fadeblack", "fadewhite", "dissolve", "distance", "pixelize", "radial",
	"wipeleft", "wiperight", "wipeup", "wipedown",
	"slideleft", "slideright", "slideup", "slidedown",
	"smoothleft", "smoothright", "smoothup", "smoothdown",
	"circleopen", "circleclose", "circlecrop", "rectcrop",
}

// TransitionNone merges without a transition.
const TransitionNone = "none"

// Segment is one merge input with its probed facts.
type Segment struct {
	Path     string
	Duration float64
	// HasAudio is false when normalization fell back; a noise input of the
	// segment's duration is then injected into the graph.
	HasAudio bool
}

// Canvas is the common frame every segment is letterboxed onto.
type Canvas struct {
	Width  int
	Height int
	FPS    int
}

// Merge describes a video concatenation.
type Merge struct {
	Segments []Segment
	Canvas   Canvas
	// Transition is an xfade transition name; empty or TransitionNone
	// concatenates back to back.
	Transition         string
	TransitionDuration float64
}

func (m Merge) crossfade() bool {
	return m.Transition != "" && m.Transition != TransitionNone
}

func (m Merge) validate() error {
	if len(m.Segments) < 2 {
		return invalid("inputs", ErrMissing, "need at least 2, got %d", len(m.Segments))
	}
	for _, s := range m.Segments {
		if err := requirePath("input", s.Path); err != nil {
			return err
		}
		if err := requirePositive("duration of "+s.Path, s.Duration); err != nil {
			return err
		}
	}
	if m.Canvas.Width <= 0 || m.Canvas.Height <= 0 || m.Canvas.FPS <= 0 {
		return invalid("canvas", ErrOutOfRange, "%dx%d@%d", m.Canvas.Width, m.Canvas.Height, m.Canvas.FPS)
	}
	if !m.crossfade() {
		return nil
	}
	if !slices.Contains(Transitions, m.Transition) {
		return invalid("transition", ErrUnknownTransition, "%q", m.Transition)
	}
	if err := requirePositive("transition duration", m.TransitionDuration); err != nil {
		return err
	}
	for _, s := range m.Segments {
		if m.TransitionDuration >= s.Duration {
			return invalid("transition duration", ErrOutOfRange,
				"%g is not shorter than %s (%g)", m.TransitionDuration, s.Path, s.Duration)
		}
	}
	return nil
}

// CrossfadeOffsets returns the xfade offset for each join, accumulated left
// to right: offset k is the sum of the first k durations minus k times the
// transition length, clamped at zero.
func CrossfadeOffsets(durations []float64, transition float64) []float64 {
	if len(durations) < 2 {
		return nil
	}
	offsets := make([]float64, len(durations)-1)
	sum := 0.0
	for k := 1; k < len(durations); k++ {
		sum += durations[k-1]
		offsets[k-1] = math.Max(0, sum-float64(k)*transition)
	}
	return offsets
}

// MergedDuration is the expected output length of m.
func MergedDuration(m Merge) float64 {
	total := 0.0
	for _, s := range m.Segments {
		total += s.Duration
	}
	if m.crossfade() {
		total -= float64(len(m.Segments)-1) * m.TransitionDuration
	}
	return total
}

// Merge scales every segment onto the canvas and concatenates them, either
// back to back or chained through xfade transitions. Audio is always
// concatenated without crossfade.
func (b *Builder) Merge(m Merge, output string) (*Invocation, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	a := newArgs()
	for _, s := range m.Segments {
		a = a.input(s.Path)
	}
	noiseIndex := len(m.Segments)
	for _, s := range m.Segments {
		if !s.HasAudio {
			a = a.noiseInput(s.Duration)
		}
	}

	g := fg.New()
	w, h := m.Canvas.Width, m.Canvas.Height
	vLabels := make([]string, len(m.Segments))
	aLabels := make([]string, len(m.Segments))
	for i, s := range m.Segments {
		vLabels[i] = "v" + strconv.Itoa(i)
		aLabels[i] = "a" + strconv.Itoa(i)

		g.Add([]string{inLabel(i, "v")}, vLabels[i],
			fg.F("scale", fg.Value(w), fg.Value(h), "force_original_aspect_ratio=decrease"),
			fg.F("pad", fg.Value(w), fg.Value(h), "(ow-iw)/2", "(oh-ih)/2", "black"),
			fg.F("setsar", "1"),
			fg.F("fps", fg.Value(m.Canvas.FPS)),
			fg.F("format", b.enc.PixelFormat),
		)

		src := inLabel(i, "a")
		if !s.HasAudio {
			src = inLabel(noiseIndex, "a")
			noiseIndex++
		}
		g.Add([]string{src}, aLabels[i],
			fg.F("aresample", fg.Value(AudioSampleRate)),
			fg.F("aformat", "sample_fmts=fltp", "channel_layouts=stereo"),
		)
	}

	n := strconv.Itoa(len(m.Segments))
	if m.crossfade() {
		durations := make([]float64, len(m.Segments))
		for i, s := range m.Segments {
			durations[i] = s.Duration
		}
		prev := vLabels[0]
		for k, off := range CrossfadeOffsets(durations, m.TransitionDuration) {
			out := "x" + strconv.Itoa(k+1)
			if k == len(m.Segments)-2 {
				out = "vout"
			}
			g.Add([]string{prev, vLabels[k+1]}, out, fg.F("xfade",
				fg.KV("transition", m.Transition),
				fg.KV("duration", m.TransitionDuration),
				fg.KV("offset", off),
			))
			prev = out
		}
		g.Add(aLabels, "aout",
			fg.F("concat", "n="+n, "v=0", "a=1"),
			fg.F("atrim", fg.KV("end", MergedDuration(m))),
		)
	} else {
		interleaved := make([]string, 0, 2*len(m.Segments))
		for i := range m.Segments {
			interleaved = append(interleaved, vLabels[i], aLabels[i])
		}
		g.AddMulti(interleaved, []string{"vout", "aout"}, fg.F("concat", "n="+n, "v=1", "a=1"))
	}

	a = a.graph(g).mapLabel("vout").mapLabel("aout").
		add(b.videoEncode()...).
		add(AACTarget()...).
		add("-movflags", "+faststart")
	return b.finish(a, output, g), nil
}
