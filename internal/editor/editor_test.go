package editor

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/mediaforge/internal/command"
	"github.com/maauso/mediaforge/internal/eventlog"
	"github.com/maauso/mediaforge/internal/pipeline"
	"github.com/maauso/mediaforge/internal/probe"
	"github.com/maauso/mediaforge/internal/storage"
)

type mockProber struct {
	mock.Mock
}

func (m *mockProber) Duration(ctx context.Context, path string) (float64, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockProber) HasAudioStream(ctx context.Context, path string) bool {
	return m.Called(ctx, path).Bool(0)
}

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, args []string, progress pipeline.ProgressFunc) (string, error) {
	ret := m.Called(ctx, args, progress)
	return ret.String(0), ret.Error(1)
}

// writes makes a Run expectation create its output file.
func writes(t *testing.T, content string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		a := args.Get(1).([]string)
		require.NoError(t, os.WriteFile(a[len(a)-1], []byte(content), 0o600))
	}
}

type recordedEvent struct {
	level eventlog.Level
	typ   string
	data  map[string]any
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) Log(level eventlog.Level, eventType, _ string, data map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{level: level, typ: eventType, data: data})
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.typ
	}
	return out
}

func (r *eventRecorder) last() recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func argsContain(sub string) any {
	return mock.MatchedBy(func(args []string) bool {
		return slices.ContainsFunc(args, func(a string) bool { return strings.Contains(a, sub) })
	})
}

type fixture struct {
	prober  *mockProber
	runner  *mockRunner
	events  *eventRecorder
	tempDir string
	dir     string
	editor  *Editor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewLocalStorage(filepath.Join(t.TempDir(), "tmp"))
	require.NoError(t, err)

	f := &fixture{
		prober:  &mockProber{},
		runner:  &mockRunner{},
		events:  &eventRecorder{},
		tempDir: store.TempDir(),
		dir:     t.TempDir(),
	}
	f.editor = New(Deps{
		Prober:  f.prober,
		Runner:  f.runner,
		Storage: store,
		Events:  f.events,
	})
	return f
}

// file creates a media stand-in in the fixture's working directory.
func (f *fixture) file(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func (f *fixture) tempEntries(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.tempDir)
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}

func requireValidation(t *testing.T, err error, cause error) {
	t.Helper()
	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	var vErr *command.ValidationError
	require.ErrorAs(t, err, &vErr)
	if cause != nil {
		assert.ErrorIs(t, err, cause)
	}
}

func TestApplyFilter_UnknownFilterSpawnsNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.editor.ApplyFilter(context.Background(), FilterRequest{Input: "/videos/clip.mp4", Name: "sepia", Value: 1}, nil)

	requireValidation(t, err, command.ErrUnknownFilter)
	f.prober.AssertNotCalled(t, "Duration", mock.Anything, mock.Anything)
	f.runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, []string{eventlog.OperationStart, eventlog.OperationFailure}, f.events.types())
	assert.Empty(t, f.tempEntries(t))
}

func TestApplyFilter_OutOfRange(t *testing.T) {
	f := newFixture(t)

	_, err := f.editor.ApplyFilter(context.Background(), FilterRequest{Input: "/videos/clip.mp4", Name: command.FilterBrightness, Value: 3}, nil)

	requireValidation(t, err, command.ErrOutOfRange)
	f.runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestTrim_ReplacesInPlace(t *testing.T) {
	f := newFixture(t)
	input := f.file(t, "clip.mp4", "original")

	f.prober.On("Duration", mock.Anything, input).Return(10.0, nil)
	f.prober.On("HasAudioStream", mock.Anything, input).Return(true)
	f.runner.On("Run", mock.Anything, mock.Anything, mock.Anything).Run(writes(t, "trimmed")).Return("", nil).Once()

	res, err := f.editor.Trim(context.Background(), TrimRequest{
		Input: input, Start: 1, Duration: 2,
		Target: Target{Output: input},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, input, res.Output)
	assert.True(t, res.Replaced)
	assert.False(t, res.Generated)

	data, err := os.ReadFile(input)
	require.NoError(t, err)
	assert.Equal(t, "trimmed", string(data))
	assert.Equal(t, []string{"clip.mp4"}, dirEntries(t, f.dir), "no sibling temp may remain")

	// ffmpeg never writes the file it reads.
	args := f.runner.Calls[0].Arguments.Get(1).([]string)
	assert.NotEqual(t, input, args[len(args)-1])
	assert.Equal(t, f.dir, filepath.Dir(args[len(args)-1]))
}

func TestTrim_FailureKeepsOriginal(t *testing.T) {
	f := newFixture(t)
	input := f.file(t, "clip.mp4", "original")

	f.prober.On("Duration", mock.Anything, input).Return(10.0, nil)
	f.prober.On("HasAudioStream", mock.Anything, input).Return(true)
	f.runner.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Run(writes(t, "partial")).
		Return("", &pipeline.ProcessingError{ExitCode: 1, Stderr: "Conversion failed!"})

	_, err := f.editor.Trim(context.Background(), TrimRequest{
		Input: input, Start: 1, Duration: 2,
		Target: Target{Output: input},
	}, nil)

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, OpTrim, opErr.Op)
	assert.True(t, strings.HasPrefix(opErr.CommandLine(), "ffmpeg -hide_banner"))
	var procErr *pipeline.ProcessingError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, 1, procErr.ExitCode)

	data, err := os.ReadFile(input)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
	assert.Equal(t, []string{"clip.mp4"}, dirEntries(t, f.dir))

	assert.Equal(t, []string{eventlog.OperationStart, eventlog.OperationFailure}, f.events.types())
	failure := f.events.last()
	assert.Equal(t, eventlog.LevelError, failure.level)
	assert.Equal(t, 1, failure.data["exit_code"])
	assert.Contains(t, failure.data["command"], "ffmpeg")
}

func TestTrim_VideoWithoutAudio(t *testing.T) {
	f := newFixture(t)
	input := "/videos/silent.mp4"

	f.prober.On("Duration", mock.Anything, input).Return(8.0, nil)
	f.prober.On("HasAudioStream", mock.Anything, input).Return(false)
	f.runner.On("Run", mock.Anything, mock.Anything, mock.Anything).Run(writes(t, "out")).Return("", nil).Once()

	res, err := f.editor.Trim(context.Background(), TrimRequest{Input: input, Start: 1, Duration: 3}, nil)
	require.NoError(t, err)

	assert.True(t, res.Generated)
	assert.Equal(t, f.tempDir, filepath.Dir(res.Output))
	assert.True(t, strings.HasPrefix(filepath.Base(res.Output), "silent_trim_"))
	assert.Equal(t, ".mp4", filepath.Ext(res.Output))

	args := f.runner.Calls[0].Arguments.Get(1).([]string)
	assert.Equal(t, []string{
		"-hide_banner", "-nostdin", "-y",
		"-ss", "1", "-i", input, "-t", "3",
		"-map", "0:v:0", "-c:v", "copy", "-an",
		res.Output,
	}, args)
	assert.NotContains(t, args, "0:a:0")
	assert.NotContains(t, args, "-c:a")
}

func TestTrim_ClampsRangePastEnd(t *testing.T) {
	f := newFixture(t)
	input := "/videos/clip.mp4"

	f.prober.On("Duration", mock.Anything, input).Return(10.0, nil)
	f.prober.On("HasAudioStream", mock.Anything, input).Return(true)
	f.runner.On("Run", mock.Anything, mock.Anything, mock.Anything).Run(writes(t, "out")).Return("", nil).Once()

	_, err := f.editor.Trim(context.Background(), TrimRequest{Input: input, Start: 8, Duration: 5}, nil)
	require.NoError(t, err)

	args := f.runner.Calls[0].Arguments.Get(1).([]string)
	i := slices.Index(args, "-t")
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, "2", args[i+1])
}

func TestTrim_StartPastEnd(t *testing.T) {
	f := newFixture(t)
	input := "/videos/clip.mp4"

	f.prober.On("Duration", mock.Anything, input).Return(10.0, nil)
	f.prober.On("HasAudioStream", mock.Anything, input).Return(true)

	_, err := f.editor.Trim(context.Background(), TrimRequest{Input: input, Start: 12, Duration: 1}, nil)

	requireValidation(t, err, command.ErrOutOfRange)
	f.runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.tempEntries(t))
}

func TestTrim_AudioOnlyNeedsAudio(t *testing.T) {
	f := newFixture(t)
	input := "/videos/silent.mp4"

	f.prober.On("Duration", mock.Anything, input).Return(8.0, nil)
	f.prober.On("HasAudioStream", mock.Anything, input).Return(false)

	_, err := f.editor.Trim(context.Background(), TrimRequest{Input: input, Start: 1, Duration: 2, Mode: TrimAudioOnly}, nil)

	requireValidation(t, err, ErrNoAudioStream)
	f.runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestTrim_ProbeFailure(t *testing.T) {
	f := newFixture(t)
	input := "/videos/missing.mp4"
	probeErr := &probe.ProbeError{Path: input, Query: "duration", Err: errors.New("No such file or directory")}

	f.prober.On("Duration", mock.Anything, input).Return(0.0, probeErr)

	_, err := f.editor.Trim(context.Background(), TrimRequest{Input: input, Start: 0, Duration: 1}, nil)

	var pErr *probe.ProbeError
	require.ErrorAs(t, err, &pErr)
	f.runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, []string{eventlog.OperationStart, eventlog.OperationFailure}, f.events.types())
}

func TestTrim_ExistingOutputGetsSuffix(t *testing.T) {
	f := newFixture(t)
	input := f.file(t, "clip.mp4", "original")
	existing := f.file(t, "export.mp4", "keep me")

	f.prober.On("Duration", mock.Anything, input).Return(10.0, nil)
	f.prober.On("HasAudioStream", mock.Anything, input).Return(true)
	f.runner.On("Run", mock.Anything, mock.Anything, mock.Anything).Run(writes(t, "trimmed")).Return("", nil)

	res, err := f.editor.Trim(context.Background(), TrimRequest{
		Input: input, Start: 0, Duration: 1,
		Target: Target{Output: existing},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(f.dir, "export (1).mp4"), res.Output)
	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
}

func TestTrim_EmitsEvents(t *testing.T) {
	f := newFixture(t)
	input := "/videos/clip.mp4"

	f.prober.On("Duration", mock.Anything, input).Return(10.0, nil)
	f.prober.On("HasAudioStream", mock.Anything, input).Return(true)
	f.runner.On("Run", mock.Anything, mock.Anything, mock.Anything).Run(writes(t, "out")).Return("", nil)

	res, err := f.editor.Trim(context.Background(), TrimRequest{Input: input, Start: 0, Duration: 1}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{eventlog.OperationStart, eventlog.OperationSuccess}, f.events.types())
	success := f.events.last()
	assert.Equal(t, OpTrim, success.data["operation"])
	assert.Equal(t, res.Output, success.data["output"])
	assert.Contains(t, success.data, "duration_ms")
}

func TestAddAudio_PushKeepsWholeOriginal(t *testing.T) {
	f := newFixture(t)
	video, voice := "/videos/talk.mp4", "/audio/voice.mp3"

	f.prober.On("Duration", mock.Anything, video).Return(10.0, nil)
	f.prober.On("HasAudioStream", mock.Anything, video).Return(true)
	f.prober.On("HasAudioStream", mock.Anything, voice).Return(true)
	f.prober.On("Duration", mock.Anything, voice).Return(3.0, nil)
	f.runner.On("Run", mock.Anything, mock.Anything, mock.Anything).Run(writes(t, "out")).Return("", nil).Once()

	res, err := f.editor.AddAudio(context.Background(), AddAudioRequest{
		Video: video, Audio: voice, Mode: command.ModePush, Start: 4,
	}, nil)
	require.NoError(t, err)

	args := f.runner.Calls[0].Arguments.Get(1).([]string)
	i := slices.Index(args, "-filter_complex")
	require.GreaterOrEqual(t, i, 0)
	graph := args[i+1]

	assert.Contains(t, graph, "[tail_src]atrim=start=4,asetpts=PTS-STARTPTS[tail]")
	assert.Contains(t, graph, "[head][ins][tail]concat=n=3:v=0:a=1,apad=whole_dur=10[aout]")
	assert.NotContains(t, graph, "atrim=end=10")
	assert.Equal(t, []string{"-i", video, "-i", voice}, args[3:7])
	assert.Equal(t, res.Output, args[len(args)-1])
}

func TestAddAudio_SourceWithoutAudio(t *testing.T) {
	f := newFixture(t)
	video, music := "/videos/talk.mp4", "/videos/other.mp4"

	f.prober.On("Duration", mock.Anything, video).Return(10.0, nil)
	f.prober.On("HasAudioStream", mock.Anything, video).Return(true)
	f.prober.On("HasAudioStream", mock.Anything, music).Return(false)

	_, err := f.editor.AddAudio(context.Background(), AddAudioRequest{
		Video: video, Audio: music, Mode: command.ModeMix,
	}, nil)

	requireValidation(t, err, ErrNoAudioStream)
	f.runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddAudio_SameFileExtractsFirst(t *testing.T) {
	f := newFixture(t)
	video := "/videos/talk.mp4"
	out := filepath.Join(f.dir, "doubled.mp4")
	isExtracted := mock.MatchedBy(func(p string) bool { return strings.Contains(filepath.Base(p), "_extract_") })

	f.prober.On("Duration", mock.Anything, video).Return(10.0, nil)
	f.prober.On("HasAudioStream", mock.Anything, video).Return(true)
	f.prober.On("Duration", mock.Anything, isExtracted).Return(10.0, nil)
	f.runner.On("Run", mock.Anything, mock.Anything, mock.Anything).Run(writes(t, "data")).Return("", nil).Twice()

	_, err := f.editor.AddAudio(context.Background(), AddAudioRequest{
		Video: video, Audio: video, Mode: command.ModeMix, Start: 2,
		Target: Target{Output: out},
	}, nil)
	require.NoError(t, err)

	require.Len(t, f.runner.Calls, 2)
	extract := f.runner.Calls[0].Arguments.Get(1).([]string)
	extracted := extract[len(extract)-1]
	assert.Contains(t, extract, "-vn")
	assert.Equal(t, f.tempDir, filepath.Dir(extracted))
	assert.Equal(t, ".m4a", filepath.Ext(extracted))

	insert := f.runner.Calls[1].Arguments.Get(1).([]string)
	assert.Equal(t, []string{"-i", video, "-i", extracted}, insert[3:7])
	assert.Equal(t, out, insert[len(insert)-1])

	assert.Empty(t, f.tempEntries(t), "the extracted track is a temp artifact")
}

func TestAddAudio_Silence(t *testing.T) {
	f := newFixture(t)
	video := "/videos/talk.mp4"

	f.prober.On("Duration", mock.Anything, video).Return(10.0, nil)
	f.prober.On("HasAudioStream", mock.Anything, video).Return(true)
	f.runner.On("Run", mock.Anything, argsContain("anoisesrc=d=2:"), mock.Anything).Run(writes(t, "out")).Return("", nil).Once()

	_, err := f.editor.AddAudio(context.Background(), AddAudioRequest{
		Video: video, Mode: command.ModeOverwrite, Start: 1, Silence: true, SilenceDuration: 2,
	}, nil)
	require.NoError(t, err)
	f.runner.AssertExpectations(t)
}

func TestAddText_WritesTextFile(t *testing.T) {
	f := newFixture(t)
	input := "/videos/clip.mp4"

	f.prober.On("Duration", mock.Anything, input).Return(5.0, nil)
	f.prober.On("HasAudioStream", mock.Anything, input).Return(true)

	var textFile, text string
	f.runner.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			a := args.Get(1).([]string)
			i := slices.Index(a, "-filter_complex")
			require.GreaterOrEqual(t, i, 0)
			_, rest, ok := strings.Cut(a[i+1], "textfile=")
			require.True(t, ok)
			textFile, _, _ = strings.Cut(rest, ":")
			if data, err := os.ReadFile(textFile); err == nil {
				text = string(data)
			}
			require.NoError(t, os.WriteFile(a[len(a)-1], []byte("out"), 0o600))
		}).
		Return("", nil)

	_, err := f.editor.AddText(context.Background(), TextRequest{Input: input, Text: "Hello: world"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Hello: world", text)
	_, statErr := os.Stat(textFile)
	assert.True(t, os.IsNotExist(statErr), "text file must be cleaned up")
}

func TestExtractAudio_DefaultsToM4A(t *testing.T) {
	f := newFixture(t)
	input := "/videos/clip.mp4"

	f.prober.On("Duration", mock.Anything, input).Return(5.0, nil)
	f.prober.On("HasAudioStream", mock.Anything, input).Return(true)
	f.runner.On("Run", mock.Anything, mock.Anything, mock.Anything).Run(writes(t, "out")).Return("", nil)

	res, err := f.editor.ExtractAudio(context.Background(), ExtractAudioRequest{Input: input}, nil)
	require.NoError(t, err)
	assert.Equal(t, ".m4a", filepath.Ext(res.Output))
	assert.True(t, strings.HasPrefix(filepath.Base(res.Output), "clip_extract-audio_"))
}

func TestGenerateSilence(t *testing.T) {
	f := newFixture(t)
	out := filepath.Join(f.dir, "gap.wav")
	f.runner.On("Run", mock.Anything, argsContain("pcm_s16le"), mock.Anything).Run(writes(t, "out")).Return("", nil).Once()

	res, err := f.editor.GenerateSilence(context.Background(), SilenceRequest{Duration: 1.5, Target: Target{Output: out}}, nil)
	require.NoError(t, err)
	assert.Equal(t, out, res.Output)
	f.runner.AssertExpectations(t)
}

func TestGenerateSilence_OutputWithoutExtension(t *testing.T) {
	f := newFixture(t)

	_, err := f.editor.GenerateSilence(context.Background(), SilenceRequest{Duration: 1, Target: Target{Output: "/tmp/gap"}}, nil)
	requireValidation(t, err, ErrNoExtension)
}

func TestMergeAudios_RejectsSilentInput(t *testing.T) {
	f := newFixture(t)
	f.prober.On("HasAudioStream", mock.Anything, "/a.mp3").Return(true)
	f.prober.On("HasAudioStream", mock.Anything, "/b.mp4").Return(false)

	_, err := f.editor.MergeAudios(context.Background(), MergeAudiosRequest{Inputs: []string{"/a.mp3", "/b.mp4"}}, nil)
	requireValidation(t, err, ErrNoAudioStream)
}

func TestMerge_NormalizesInputsWithoutAudio(t *testing.T) {
	f := newFixture(t)
	a, b := "/videos/a.mp4", "/videos/b.mp4"

	f.prober.On("HasAudioStream", mock.Anything, a).Return(true)
	f.prober.On("HasAudioStream", mock.Anything, b).Return(false).Once()
	f.prober.On("Duration", mock.Anything, a).Return(5.0, nil)
	f.prober.On("Duration", mock.Anything, b).Return(3.0, nil)
	f.prober.On("HasAudioStream", mock.Anything, mock.Anything).Return(true)
	isSynth := mock.MatchedBy(func(p string) bool { return strings.HasPrefix(filepath.Base(p), "b_audio_") })
	f.prober.On("Duration", mock.Anything, isSynth).Return(3.0, nil)

	f.runner.On("Run", mock.Anything, argsContain("xfade"), mock.Anything).Run(writes(t, "merged")).Return("", nil).Once()
	f.runner.On("Run", mock.Anything, mock.Anything, mock.Anything).Run(writes(t, "step")).Return("", nil)

	res, err := f.editor.Merge(context.Background(), MergeRequest{
		Inputs: []string{a, b}, Transition: "fade", TransitionDuration: 1,
	}, nil)
	require.NoError(t, err)

	merge := f.runner.Calls[len(f.runner.Calls)-1].Arguments.Get(1).([]string)
	assert.Contains(t, merge, a)
	assert.NotContains(t, merge, b, "the synthesized copy replaces the silent input")
	assert.False(t, slices.ContainsFunc(merge, func(s string) bool { return strings.HasPrefix(s, "anoisesrc") }))
	assert.Equal(t, res.Output, merge[len(merge)-1])
	assert.Equal(t, []string{filepath.Base(res.Output)}, f.tempEntries(t))
}

func TestMerge_FallsBackToNoiseInput(t *testing.T) {
	f := newFixture(t)
	a, b := "/videos/a.mp4", "/videos/b.mp4"

	f.prober.On("HasAudioStream", mock.Anything, a).Return(true)
	f.prober.On("HasAudioStream", mock.Anything, b).Return(false)
	f.prober.On("Duration", mock.Anything, a).Return(5.0, nil)
	f.prober.On("Duration", mock.Anything, b).Return(3.0, nil)

	f.runner.On("Run", mock.Anything, argsContain("-filter_complex"), mock.Anything).Run(writes(t, "merged")).Return("", nil).Once()
	f.runner.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return("", &pipeline.ProcessingError{ExitCode: 1, Stderr: "Unknown encoder"})

	res, err := f.editor.Merge(context.Background(), MergeRequest{Inputs: []string{a, b}}, nil)
	require.NoError(t, err)

	merge := f.runner.Calls[len(f.runner.Calls)-1].Arguments.Get(1).([]string)
	assert.Contains(t, merge, b)
	assert.True(t, slices.ContainsFunc(merge, func(s string) bool { return strings.HasPrefix(s, "anoisesrc=d=3:") }))
	assert.Equal(t, res.Output, merge[len(merge)-1])
	assert.Contains(t, f.events.types(), eventlog.NormalizeFallback)
	assert.Equal(t, eventlog.OperationSuccess, f.events.last().typ)
}

func TestMerge_TransitionLongerThanInput(t *testing.T) {
	f := newFixture(t)
	a, b := "/videos/a.mp4", "/videos/b.mp4"

	f.prober.On("HasAudioStream", mock.Anything, mock.Anything).Return(true)
	f.prober.On("Duration", mock.Anything, a).Return(5.0, nil)
	f.prober.On("Duration", mock.Anything, b).Return(1.0, nil)

	_, err := f.editor.Merge(context.Background(), MergeRequest{
		Inputs: []string{a, b}, Transition: "fade", TransitionDuration: 2,
	}, nil)

	requireValidation(t, err, command.ErrOutOfRange)
	f.runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestMerge_UnknownTransition(t *testing.T) {
	f := newFixture(t)

	_, err := f.editor.Merge(context.Background(), MergeRequest{
		Inputs: []string{"/a.mp4", "/b.mp4"}, Transition: "spin", TransitionDuration: 1,
	}, nil)
	requireValidation(t, err, command.ErrUnknownTransition)
}

func TestEnsureAudio_PassthroughWhenAudioPresent(t *testing.T) {
	f := newFixture(t)
	input := f.file(t, "clip.mp4", "original")

	f.prober.On("HasAudioStream", mock.Anything, input).Return(true)

	res, err := f.editor.EnsureAudio(context.Background(), EnsureAudioRequest{Input: input}, nil)
	require.NoError(t, err)

	assert.Equal(t, &Result{Output: input}, res)
	f.runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.tempEntries(t))
	assert.Equal(t, []string{eventlog.OperationStart, eventlog.OperationSuccess}, f.events.types())
}

func TestEnsureAudio_Synthesizes(t *testing.T) {
	f := newFixture(t)
	input := f.file(t, "clip.webm", "original")
	out := filepath.Join(f.dir, "clip.mkv")

	f.prober.On("HasAudioStream", mock.Anything, input).Return(false).Once()
	f.prober.On("Duration", mock.Anything, input).Return(4.0, nil)
	f.prober.On("HasAudioStream", mock.Anything, out).Return(true)
	f.runner.On("Run", mock.Anything, mock.Anything, mock.Anything).Run(writes(t, "data")).Return("", nil).Twice()

	res, err := f.editor.EnsureAudio(context.Background(), EnsureAudioRequest{Input: input, Target: Target{Output: out}}, nil)
	require.NoError(t, err)

	assert.Equal(t, out, res.Output)
	assert.True(t, res.Synthesized)
	assert.ElementsMatch(t, []string{"clip.webm", "clip.mkv"}, dirEntries(t, f.dir))
	assert.Empty(t, f.tempEntries(t))
}

func TestEnsureAudio_FallbackLeavesNoOutput(t *testing.T) {
	f := newFixture(t)
	input := f.file(t, "clip.mp4", "original")
	out := filepath.Join(f.dir, "with-audio.mp4")

	f.prober.On("HasAudioStream", mock.Anything, input).Return(false)
	f.prober.On("Duration", mock.Anything, input).Return(4.0, nil)
	f.runner.On("Run", mock.Anything, argsContain("anoisesrc"), mock.Anything).Run(writes(t, "noise")).Return("", nil).Once()
	f.runner.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Run(writes(t, "partial")).
		Return("", &pipeline.ProcessingError{ExitCode: 1})

	res, err := f.editor.EnsureAudio(context.Background(), EnsureAudioRequest{Input: input, Target: Target{Output: out}}, nil)
	require.NoError(t, err)

	assert.Equal(t, &Result{Output: input, Fallback: true}, res)
	assert.Equal(t, []string{"clip.mp4"}, dirEntries(t, f.dir))
	assert.Empty(t, f.tempEntries(t))
}

func TestOperationError_CommandLine(t *testing.T) {
	err := &OperationError{
		Op:   OpText,
		Args: []string{"-i", "my clip.mp4", "-vf", "drawtext=text='hi'", "out.mp4"},
		Err:  errors.New("boom"),
	}
	assert.Equal(t, `ffmpeg -i 'my clip.mp4' -vf 'drawtext=text='\''hi'\''' out.mp4`, err.CommandLine())
	assert.Empty(t, (&OperationError{}).CommandLine())
}

func checkFFmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found in PATH, skipping test", bin)
		}
	}
}

func TestEditor_FFmpeg(t *testing.T) {
	checkFFmpeg(t)
	ctx := context.Background()
	dir := t.TempDir()

	talk := filepath.Join(dir, "talk.mp4")
	out, err := exec.Command("ffmpeg", "-y",
		"-f", "lavfi", "-i", "testsrc=size=160x120:rate=25:duration=3",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=3",
		"-c:v", "libx264", "-pix_fmt", "yuv420p", "-c:a", "aac", "-shortest",
		talk,
	).CombinedOutput()
	require.NoError(t, err, string(out))

	silent := filepath.Join(dir, "silent.mp4")
	out, err = exec.Command("ffmpeg", "-y",
		"-f", "lavfi", "-i", "testsrc=size=320x240:rate=30:duration=2",
		"-c:v", "libx264", "-pix_fmt", "yuv420p", "-an",
		silent,
	).CombinedOutput()
	require.NoError(t, err, string(out))

	store, err := storage.NewLocalStorage(filepath.Join(dir, "tmp"))
	require.NoError(t, err)
	prober := probe.NewFFprobe("", nil)
	e := New(Deps{
		Prober:  prober,
		Runner:  pipeline.NewExecutor("", nil),
		Storage: store,
		Canvas:  command.Canvas{Width: 160, Height: 120, FPS: 25},
	})

	t.Run("trim", func(t *testing.T) {
		res, err := e.Trim(ctx, TrimRequest{Input: talk, Start: 0.5, Duration: 1, Mode: TrimVideoOnly}, nil)
		require.NoError(t, err)
		d, err := prober.Duration(ctx, res.Output)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, d, 0.15)
	})

	t.Run("merge with crossfade", func(t *testing.T) {
		target := filepath.Join(dir, "merged.mp4")
		res, err := e.Merge(ctx, MergeRequest{
			Inputs: []string{talk, silent}, Transition: "fade", TransitionDuration: 0.5,
			Target: Target{Output: target},
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, target, res.Output)
		assert.True(t, prober.HasAudioStream(ctx, target))

		d, err := prober.Duration(ctx, target)
		require.NoError(t, err)
		assert.InDelta(t, 4.5, d, 0.2)
	})

	t.Run("replace in place", func(t *testing.T) {
		copyPath := filepath.Join(dir, "copy.mp4")
		data, err := os.ReadFile(talk)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(copyPath, data, 0o600))

		res, err := e.ApplyFilter(ctx, FilterRequest{
			Input: copyPath, Name: command.FilterBrightness, Value: 0.2,
			Target: Target{Output: copyPath},
		}, nil)
		require.NoError(t, err)
		assert.True(t, res.Replaced)
		assert.True(t, prober.HasAudioStream(ctx, copyPath))
	})

	entries, err := os.ReadDir(store.TempDir())
	require.NoError(t, err)
	for _, entry := range entries {
		assert.Contains(t, entry.Name(), "_trim_", "only the generated trim output may stay in the temp dir")
	}
}
