package command

import (
	"strconv"

	fg "github.com/maauso/mediaforge/internal/filtergraph"
)

// Text overlay defaults.
const (
	DefaultFontSize  = 48
	DefaultFontColor = "white"
	CenterX          = "(w-text_w)/2"
	CenterY          = "(h-text_h)/2"
)

// TextOverlay describes a drawtext pass.
type TextOverlay struct {
	Input string
	// TextFile holds the text to draw. Reading it from a file avoids
	// escaping user text into the graph.
	TextFile  string
	FontFile  string
	FontSize  int
	FontColor string
	X, Y      string
	// Start and Duration bound the overlay in time. A zero Duration shows
	// the text for the whole video.
	Start    float64
	Duration float64
	HasAudio bool
}

func (t TextOverlay) withDefaults() TextOverlay {
	if t.FontSize == 0 {
		t.FontSize = DefaultFontSize
	}
	if t.FontColor == "" {
		t.FontColor = DefaultFontColor
	}
	if t.X == "" {
		t.X = CenterX
	}
	if t.Y == "" {
		t.Y = CenterY
	}
	return t
}

// DrawText returns the drawtext filter for t after defaults are applied.
func DrawText(t TextOverlay) fg.Filter {
	t = t.withDefaults()
	args := []string{
		"textfile=" + fg.Escape(t.TextFile),
		"fontsize=" + strconv.Itoa(t.FontSize),
		"fontcolor=" + fg.Escape(t.FontColor),
		"x=" + fg.Escape(t.X),
		"y=" + fg.Escape(t.Y),
	}
	if t.FontFile != "" {
		args = append(args, "fontfile="+fg.Escape(t.FontFile))
	}
	if t.Duration > 0 {
		window := "between(t," + fg.Seconds(t.Start) + "," + fg.Seconds(t.Start+t.Duration) + ")"
		args = append(args, "enable="+fg.Escape(window))
	}
	return fg.F("drawtext", args...)
}

// AddText burns a text overlay into the video. Audio is copied.
func (b *Builder) AddText(t TextOverlay, output string) (*Invocation, error) {
	if err := requirePath("input", t.Input); err != nil {
		return nil, err
	}
	if err := requirePath("text", t.TextFile); err != nil {
		return nil, err
	}
	if t.FontSize < 0 {
		return nil, invalid("font size", ErrOutOfRange, "must be positive, got %d", t.FontSize)
	}
	if err := requireNonNegative("start", t.Start); err != nil {
		return nil, err
	}
	if err := requireNonNegative("duration", t.Duration); err != nil {
		return nil, err
	}

	g := fg.New().Add([]string{"0:v"}, "v", DrawText(t))

	a := newArgs().input(t.Input).graph(g).mapLabel("v")
	if t.HasAudio {
		a = a.add("-map", "0:a:0")
	}
	a = a.add(b.videoEncode()...)
	if t.HasAudio {
		a = a.add("-c:a", "copy")
	} else {
		a = a.add("-an")
	}
	return b.finish(a, output, g), nil
}
