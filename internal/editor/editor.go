// Package editor exposes the editing operations. Each operation validates its
// request, resolves where the result goes, probes its inputs, builds the
// ffmpeg invocation, runs it and then either promotes the result or rolls
// everything back. Temp artifacts never outlive the call.
package editor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/maauso/mediaforge/internal/audio"
	"github.com/maauso/mediaforge/internal/command"
	"github.com/maauso/mediaforge/internal/eventlog"
	"github.com/maauso/mediaforge/internal/pipeline"
	"github.com/maauso/mediaforge/internal/probe"
	"github.com/maauso/mediaforge/internal/storage"
)

// Operation names, used in events, errors and generated file names.
const (
	OpTrim            = "trim"
	OpTrimAudio       = "trim-audio"
	OpAddAudio        = "add-audio"
	OpFilter          = "filter"
	OpText            = "text"
	OpMerge           = "merge"
	OpMergeAudios     = "merge-audio"
	OpExtractAudio    = "extract-audio"
	OpGenerateSilence = "silence"
	OpEnsureAudio     = "ensure-audio"
)

// DefaultCanvas is the merge canvas when neither the editor nor the request
// sets one.
var DefaultCanvas = command.Canvas{Width: 1280, Height: 720, FPS: 30}

// Result describes a finished operation.
type Result struct {
	// Output is where the result can be read.
	Output string `json:"output"`
	// Generated is set when Output was named by the editor in the temp dir.
	Generated bool `json:"generated,omitempty"`
	// Replaced is set when an existing file was atomically replaced.
	Replaced bool `json:"replaced,omitempty"`
	// Synthesized and Fallback report the outcome of EnsureAudio.
	Synthesized bool `json:"synthesized,omitempty"`
	Fallback    bool `json:"fallback,omitempty"`
}

// Deps holds the collaborators of an Editor.
type Deps struct {
	Prober  probe.Prober
	Runner  pipeline.Runner
	Builder *command.Builder
	Storage storage.Storage
	// Outputs is shared by every editor writing to the same filesystem so
	// that final paths are claimed by one operation at a time.
	Outputs *storage.Outputs
	Events  eventlog.Logger
	Logger  *slog.Logger
	// Canvas is the default merge canvas. Zero fields use DefaultCanvas.
	Canvas command.Canvas
}

// Editor runs editing operations. It is safe for concurrent use.
type Editor struct {
	prober     probe.Prober
	runner     pipeline.Runner
	builder    *command.Builder
	store      storage.Storage
	outputs    *storage.Outputs
	normalizer *audio.Normalizer
	events     eventlog.Logger
	logger     *slog.Logger
	canvas     command.Canvas
}

// New creates an Editor.
func New(d Deps) *Editor {
	if d.Builder == nil {
		d.Builder = command.NewBuilder(command.DefaultEncoding())
	}
	if d.Outputs == nil {
		d.Outputs = storage.NewOutputs(d.Storage)
	}
	if d.Events == nil {
		d.Events = eventlog.Nop{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Canvas.Width == 0 {
		d.Canvas.Width = DefaultCanvas.Width
	}
	if d.Canvas.Height == 0 {
		d.Canvas.Height = DefaultCanvas.Height
	}
	if d.Canvas.FPS == 0 {
		d.Canvas.FPS = DefaultCanvas.FPS
	}
	return &Editor{
		prober:     d.Prober,
		runner:     d.Runner,
		builder:    d.Builder,
		store:      d.Storage,
		outputs:    d.Outputs,
		normalizer: audio.NewNormalizer(d.Prober, d.Runner, d.Builder, d.Events, d.Logger),
		events:     d.Events,
		logger:     d.Logger,
		canvas:     d.Canvas,
	}
}

// operation is the fixed part of one editing call.
type operation struct {
	name    string
	inputs  []string
	request Target
	// ext forces the output extension when no output path is requested.
	ext string
}

// session is the per-call state handed to an operation's body.
type session struct {
	e         *Editor
	target    *storage.Target
	artifacts *storage.Artifacts
	progress  pipeline.ProgressFunc
	args      []string

	// passthrough is set by bodies that produced no new file. The claimed
	// target is released untouched and Result.Output is taken from result.
	passthrough bool
	result      Result
}

// exec runs one invocation and remembers its arguments for error context.
func (s *session) exec(ctx context.Context, inv *command.Invocation) error {
	s.args = inv.Args
	_, err := s.e.runner.Run(ctx, inv.Args, s.progress)
	return err
}

// out is the path the final invocation must write.
func (s *session) out() string {
	return s.target.Write
}

// run is the lifecycle shared by every operation: announce, validate,
// resolve, run body, then commit or roll back and always clean up.
func (e *Editor) run(ctx context.Context, op operation, validate func() error, progress pipeline.ProgressFunc, body func(ctx context.Context, s *session) error) (*Result, error) {
	started := time.Now()

	e.events.Log(eventlog.LevelInfo, eventlog.OperationStart, op.name+" started", map[string]any{
		"operation": op.name,
		"inputs":    op.inputs,
		"output":    op.request.Output,
	})

	if err := validate(); err != nil {
		return nil, e.fail(op, nil, "", err)
	}

	ext := ""
	if op.request.Output == "" {
		ext = op.ext
	}
	target, err := e.outputs.Resolve(storage.ResolveRequest{
		Requested: op.request.Output,
		Inputs:    op.inputs,
		Tag:       op.name,
		Ext:       ext,
		Overwrite: op.request.Overwrite,
	})
	if err != nil {
		return nil, e.fail(op, nil, op.request.Output, err)
	}

	s := &session{
		e:         e,
		target:    target,
		artifacts: storage.NewArtifacts(e.store),
		progress:  progress,
	}
	defer e.cleanup(ctx, op, s.artifacts)

	if err := body(ctx, s); err != nil {
		e.abort(op, target)
		return nil, e.fail(op, s.args, target.Final, err)
	}

	if s.passthrough {
		e.abort(op, target)
		e.succeed(op, s.result.Output, started)
		return &s.result, nil
	}

	if err := e.outputs.Commit(target); err != nil {
		e.abort(op, target)
		return nil, e.fail(op, s.args, target.Final, err)
	}

	res := s.result
	res.Output = target.Final
	res.Generated = target.Generated
	res.Replaced = target.Replace
	e.succeed(op, res.Output, started)
	return &res, nil
}

func (e *Editor) succeed(op operation, output string, started time.Time) {
	e.events.Log(eventlog.LevelInfo, eventlog.OperationSuccess, op.name+" finished", map[string]any{
		"operation":   op.name,
		"inputs":      op.inputs,
		"output":      output,
		"duration_ms": time.Since(started).Milliseconds(),
	})
}

func (e *Editor) fail(op operation, args []string, output string, err error) error {
	opErr := &OperationError{Op: op.name, Inputs: op.inputs, Output: output, Args: args, Err: err}

	data := map[string]any{
		"operation": op.name,
		"inputs":    op.inputs,
		"output":    output,
		"error":     err.Error(),
	}
	if cmd := opErr.CommandLine(); cmd != "" {
		data["command"] = cmd
	}
	var procErr *pipeline.ProcessingError
	if errors.As(err, &procErr) {
		data["exit_code"] = procErr.ExitCode
	}
	e.events.Log(eventlog.LevelError, eventlog.OperationFailure, op.name+" failed", data)
	return opErr
}

// abort removes a partial result. Its own failure is logged and never
// replaces the error that caused the abort.
func (e *Editor) abort(op operation, target *storage.Target) {
	if err := e.outputs.Abort(target); err != nil {
		e.events.Log(eventlog.LevelWarn, eventlog.ArtifactCleanupFailed, "failed to remove partial output", map[string]any{
			"operation": op.name,
			"path":      target.Write,
			"error":     err.Error(),
		})
	}
}

func (e *Editor) cleanup(ctx context.Context, op operation, artifacts *storage.Artifacts) {
	paths := artifacts.Paths()
	if err := artifacts.Cleanup(ctx); err != nil {
		e.events.Log(eventlog.LevelWarn, eventlog.ArtifactCleanupFailed, "failed to remove temp artifacts", map[string]any{
			"operation": op.name,
			"paths":     paths,
			"error":     err.Error(),
		})
	}
}
