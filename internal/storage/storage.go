// Package storage provides temporary file handling, output path resolution
// and optional S3 publishing of finished media.
// It defines the Storage interface (port) and implementations for local disk
// and S3 storage.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for temporary and persistent file storage.
type Storage interface {
	// TempDir returns the directory that holds temporary artifacts.
	TempDir() string

	// TempPath returns a fresh, unused path in the temp directory.
	// The name is built as <stem>_<tag>_<timestamp><ext>.
	TempPath(stem, tag, ext string) string

	// SaveTemp saves data to a temporary file and returns the file path.
	// The name parameter is used as a hint for the filename.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// Open opens a temp artifact or a finished output for reading.
	// The caller is responsible for closing the returned ReadCloser.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error

	// UploadToS3 uploads data to S3 and returns the public URL.
	// Returns ErrS3NotConfigured if S3 is not configured.
	UploadToS3(ctx context.Context, key string, data io.Reader) (url string, err error)
}
