package command

import (
	fg "github.com/maauso/mediaforge/internal/filtergraph"
)

// Clip is a time range inside an input.
type Clip struct {
	Input    string
	Start    float64
	Duration float64
}

func (c Clip) validate() error {
	if err := requirePath("input", c.Input); err != nil {
		return err
	}
	if err := requireNonNegative("start", c.Start); err != nil {
		return err
	}
	return requirePositive("duration", c.Duration)
}

func (c Clip) end() float64 {
	return c.Start + c.Duration
}

// Trim cuts a range with input seeking. Video is stream-copied; audio, when
// present, is re-encoded to the fixed target.
func (b *Builder) Trim(c Clip, hasAudio bool, output string) (*Invocation, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	a := newArgs().
		add("-ss", fg.Seconds(c.Start)).
		input(c.Input).
		add("-t", fg.Seconds(c.Duration))

	if !hasAudio {
		a = a.add("-map", "0:v:0", "-c:v", "copy", "-an")
		return b.finish(a, output, nil), nil
	}

	a = a.add("-map", "0:v:0", "-map", "0:a:0", "-c:v", "copy").
		add(AACTarget()...).
		add("-avoid_negative_ts", "make_zero")
	return b.finish(a, output, nil), nil
}

// TrimVideoOnly re-encodes both streams, trimming them on shared timestamps
// so they stay frame aligned.
func (b *Builder) TrimVideoOnly(c Clip, hasAudio bool, output string) (*Invocation, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	g := fg.New().Add([]string{"0:v"}, "v",
		fg.F("trim", fg.KV("start", c.Start), fg.KV("end", c.end())),
		fg.F("setpts", "PTS-STARTPTS"),
	)
	if hasAudio {
		g.Add([]string{"0:a"}, "a",
			fg.F("atrim", fg.KV("start", c.Start), fg.KV("end", c.end())),
			fg.F("asetpts", "PTS-STARTPTS"),
		)
	}

	a := newArgs().input(c.Input).graph(g).mapLabel("v")
	if hasAudio {
		a = a.mapLabel("a")
	}
	a = a.add(b.videoEncode()...)
	if hasAudio {
		a = a.add(AACTarget()...)
	} else {
		a = a.add("-an")
	}
	return b.finish(a, output, g), nil
}

// TrimAudioOnly keeps the video untouched and replaces the audio with the
// selected range, padded with silence to the video duration.
func (b *Builder) TrimAudioOnly(c Clip, videoDuration float64, output string) (*Invocation, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	if err := requirePositive("video duration", videoDuration); err != nil {
		return nil, err
	}

	g := fg.New().Add([]string{"0:a"}, "a",
		fg.F("atrim", fg.KV("start", c.Start), fg.KV("end", c.end())),
		fg.F("asetpts", "PTS-STARTPTS"),
		fg.F("apad", fg.KV("whole_dur", videoDuration)),
		fg.F("atrim", fg.KV("end", videoDuration)),
	)

	a := newArgs().input(c.Input).graph(g).
		add("-map", "0:v:0").mapLabel("a").
		add("-c:v", "copy").
		add(AACTarget()...)
	return b.finish(a, output, g), nil
}

// TrimAudioFile cuts a range from an audio file. The codec follows the
// output extension.
func (b *Builder) TrimAudioFile(c Clip, output string) (*Invocation, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	a := newArgs().
		add("-ss", fg.Seconds(c.Start)).
		input(c.Input).
		add("-t", fg.Seconds(c.Duration), "-vn").
		add(AudioCodecFor(output)...)
	return b.finish(a, output, nil), nil
}
