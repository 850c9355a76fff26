// Package pipeline runs the external media processor and streams its
// diagnostic output to a caller-supplied sink while it runs.
package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// ErrNoArgs is returned when Run is called without arguments.
var ErrNoArgs = errors.New("pipeline: no arguments provided")

// ProgressFunc receives one diagnostic line at a time, verbatim.
// It is called from the goroutine reading the process output.
type ProgressFunc func(line string)

// Runner executes an ffmpeg invocation.
type Runner interface {
	// Run executes the processor with args and returns the output path, which
	// is the invocation's last argument.
	Run(ctx context.Context, args []string, progress ProgressFunc) (string, error)
}

// Executor implements Runner using a local binary.
type Executor struct {
	// binPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	binPath string
	logger  *slog.Logger
}

// NewExecutor creates a new Executor.
// If binPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewExecutor(binPath string, logger *slog.Logger) *Executor {
	if binPath == "" {
		binPath = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{binPath: binPath, logger: logger}
}

// BinPath returns the configured binary path.
func (e *Executor) BinPath() string {
	return e.binPath
}

// Run starts the process and waits for it. Diagnostic output is pushed to
// progress line by line as it arrives and is also kept in full so a failed
// run carries the complete text in its ProcessingError. No timeout is applied.
func (e *Executor) Run(ctx context.Context, args []string, progress ProgressFunc) (string, error) {
	if len(args) == 0 {
		return "", ErrNoArgs
	}
	output := args[len(args)-1]

	// #nosec G204 - binPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, e.binPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", &SpawnError{Path: e.binPath, Err: err}
	}

	e.logger.Debug("starting processor",
		slog.String("bin", e.binPath),
		slog.Any("args", args),
	)

	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("processor cancelled: %w", ctx.Err())
		}
		return "", &SpawnError{Path: e.binPath, Err: err}
	}

	var captured bytes.Buffer
	streamLines(io.TeeReader(stderr, &captured), progress)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("processor cancelled: %w", ctx.Err())
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return "", &ProcessingError{
			Args:     args,
			Stderr:   captured.String(),
			ExitCode: exitCode,
			Err:      err,
		}
	}

	return output, nil
}

// streamLines reads r until EOF and pushes every non-empty line to progress.
// ffmpeg rewrites its status line with '\r', so both '\r' and '\n' end a line.
func streamLines(r io.Reader, progress ProgressFunc) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanDiagnosticLines)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || progress == nil {
			continue
		}
		progress(line)
	}
	// Drain whatever is left so the process never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, r)
}

// scanDiagnosticLines is a bufio.SplitFunc splitting on '\n' or '\r'.
func scanDiagnosticLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Verify interface implementation at compile time.
var _ Runner = (*Executor)(nil)
