package pipeline

import (
	"fmt"
	"strings"
)

// SpawnError is returned when the processor binary cannot be launched at all,
// typically because it is missing from PATH.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// ProcessingError represents a processor run that exited unsuccessfully.
// Stderr holds the diagnostic text exactly as the process wrote it.
type ProcessingError struct {
	Args     []string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v (exit %d)\nargs: %s\nstderr: %s",
		e.Err, e.ExitCode, strings.Join(e.Args, " "), e.Stderr)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}
