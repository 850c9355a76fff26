package command

import (
	"math"
	"slices"
	"strconv"

	fg "github.com/maauso/mediaforge/internal/filtergraph"
)

// Cosmetic filter names.
const (
	FilterBrightness = "brightness"
	FilterContrast   = "contrast"
	FilterSaturation = "saturation"
	FilterBlur       = "blur"
	FilterSharpen    = "sharpen"
	FilterRotate     = "rotate"
	FilterSpeed      = "speed"
)

// atempo accepts factors in [0.5, 2]; larger changes are chained.
const (
	minTempo = 0.5
	maxTempo = 2.0
)

type cosmetic struct {
	check func(v float64) error
	video func(v float64) []fg.Filter
}

func within(lo, hi float64) func(float64) error {
	return func(v float64) error {
		if v < lo || v > hi || math.IsNaN(v) {
			return invalid("value", ErrOutOfRange, "%g not in [%g, %g]", v, lo, hi)
		}
		return nil
	}
}

func positive(v float64) error {
	return requirePositive("value", v)
}

func finite(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid("value", ErrOutOfRange, "%g is not finite", v)
	}
	return nil
}

var cosmetics = map[string]cosmetic{
	FilterBrightness: {
		check: within(-1, 1),
		video: func(v float64) []fg.Filter { return []fg.Filter{fg.F("eq", "brightness="+factor(v))} },
	},
	FilterContrast: {
		check: within(-1000, 1000),
		video: func(v float64) []fg.Filter { return []fg.Filter{fg.F("eq", "contrast="+factor(v))} },
	},
	FilterSaturation: {
		check: within(0, 3),
		video: func(v float64) []fg.Filter { return []fg.Filter{fg.F("eq", "saturation="+factor(v))} },
	},
	FilterBlur: {
		check: positive,
		video: func(v float64) []fg.Filter { return []fg.Filter{fg.F("gblur", "sigma="+factor(v))} },
	},
	FilterSharpen: {
		check: within(-2, 5),
		video: func(v float64) []fg.Filter { return []fg.Filter{fg.F("unsharp", "5", "5", factor(v))} },
	},
	FilterRotate: {
		check: finite,
		video: func(v float64) []fg.Filter {
			rad := strconv.FormatFloat(v*math.Pi/180, 'f', 6, 64)
			return []fg.Filter{fg.F("rotate", rad, "ow=rotw("+rad+")", "oh=roth("+rad+")")}
		},
	},
	FilterSpeed: {
		check: positive,
		video: func(v float64) []fg.Filter { return []fg.Filter{fg.F("setpts", "PTS/"+factor(v))} },
	},
}

// FilterNames lists the supported cosmetic filters in sorted order.
func FilterNames() []string {
	names := make([]string, 0, len(cosmetics))
	for name := range cosmetics {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// CheckFilter validates a cosmetic filter name and value without building
// anything.
func CheckFilter(name string, value float64) error {
	c, ok := cosmetics[name]
	if !ok {
		return invalid("filter", ErrUnknownFilter, "%q", name)
	}
	return c.check(value)
}

// TempoChain splits a speed factor into atempo stages within [0.5, 2].
func TempoChain(speed float64) []fg.Filter {
	var chain []fg.Filter
	for speed > maxTempo {
		chain = append(chain, fg.F("atempo", factor(maxTempo)))
		speed /= maxTempo
	}
	for speed < minTempo {
		chain = append(chain, fg.F("atempo", factor(minTempo)))
		speed /= minTempo
	}
	return append(chain, fg.F("atempo", factor(speed)))
}

// ApplyFilter re-encodes the video through one cosmetic filter. Audio is
// copied, except for speed where it is retimed with atempo.
func (b *Builder) ApplyFilter(input, name string, value float64, hasAudio bool, output string) (*Invocation, error) {
	if err := CheckFilter(name, value); err != nil {
		return nil, err
	}
	if err := requirePath("input", input); err != nil {
		return nil, err
	}

	g := fg.New().Add([]string{"0:v"}, "v", cosmetics[name].video(value)...)
	retime := name == FilterSpeed && hasAudio
	if retime {
		g.Add([]string{"0:a"}, "a", TempoChain(value)...)
	}

	a := newArgs().input(input).graph(g).mapLabel("v")
	switch {
	case retime:
		a = a.mapLabel("a")
	case hasAudio:
		a = a.add("-map", "0:a:0")
	}
	a = a.add(b.videoEncode()...)
	switch {
	case retime:
		a = a.add(AACTarget()...)
	case hasAudio:
		a = a.add("-c:a", "copy")
	default:
		a = a.add("-an")
	}
	return b.finish(a, output, g), nil
}

// factor formats a filter parameter with the shortest exact representation.
func factor(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
