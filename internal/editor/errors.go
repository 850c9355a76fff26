package editor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/maauso/mediaforge/internal/command"
)

// Static errors for request validation.
var (
	// ErrNoAudioStream is returned when an operation needs audio the input lacks.
	ErrNoAudioStream = errors.New("no audio stream")
	// ErrNoExtension is returned for an output path without a file extension.
	ErrNoExtension = errors.New("output path has no extension")
)

// OperationError wraps the first failure of an editing operation with enough
// context to rerun the failing ffmpeg invocation by hand.
type OperationError struct {
	Op     string
	Inputs []string
	Output string
	// Args is the last ffmpeg invocation attempted, if any.
	Args []string
	Err  error
}

func (e *OperationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %v", e.Op, e.Inputs)
	if e.Output != "" {
		fmt.Fprintf(&b, " -> %s", e.Output)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// CommandLine renders Args as a shell-like command line for reproduction.
func (e *OperationError) CommandLine() string {
	if len(e.Args) == 0 {
		return ""
	}
	quoted := make([]string, len(e.Args))
	for i, a := range e.Args {
		if a == "" || strings.ContainsAny(a, " \t'\"[];,()$") {
			a = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		}
		quoted[i] = a
	}
	return "ffmpeg " + strings.Join(quoted, " ")
}

func invalid(field string, err error, reason string) *command.ValidationError {
	return &command.ValidationError{Field: field, Err: err, Reason: reason}
}

func missing(field string) *command.ValidationError {
	return &command.ValidationError{Field: field, Err: command.ErrMissing}
}
