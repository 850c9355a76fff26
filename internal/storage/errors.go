package storage

import (
	"errors"
	"fmt"
)

// Static errors for output resolution.
var (
	// ErrOutputBusy is returned when another in-flight operation is already
	// writing the same final path.
	ErrOutputBusy = errors.New("output path is being written by another operation")
	// ErrNoFreeName is returned when no " (n)" variant of a path is available.
	ErrNoFreeName = errors.New("no free output name")
)

// FilesystemError reports a failed rename, copy, delete or name resolution.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}
