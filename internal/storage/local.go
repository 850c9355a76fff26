package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"
)

// ErrS3NotConfigured is returned when S3 operations are attempted
// without proper configuration.
var ErrS3NotConfigured = errors.New("S3 storage is not configured")

// tempSeq disambiguates temp names created within the same millisecond.
var tempSeq atomic.Uint64

// LocalStorage implements the Storage interface using local disk.
// It stores temporary files in a configurable directory and does not
// support S3 operations unless wrapped with S3Storage.
type LocalStorage struct {
	tempDir string
	now     func() time.Time
}

// NewLocalStorage creates a new LocalStorage instance.
// The tempDir parameter specifies where temporary files are stored.
// If tempDir is empty, a "mediaforge" directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocalStorage(tempDir string) (*LocalStorage, error) {
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "mediaforge")
	}

	if err := os.MkdirAll(tempDir, 0750); err != nil {
		return nil, &FilesystemError{Op: "mkdir", Path: tempDir, Err: err}
	}

	return &LocalStorage{tempDir: tempDir, now: time.Now}, nil
}

// TempDir returns the temporary directory path.
func (s *LocalStorage) TempDir() string {
	return s.tempDir
}

// TempPath returns <tempDir>/<stem>_<tag>_<unixmillis>-<seq><ext>.
// Nothing is created on disk; uniqueness comes from the timestamp and a
// process-wide sequence number.
func (s *LocalStorage) TempPath(stem, tag, ext string) string {
	return filepath.Join(s.tempDir, uniqueName(stem, tag, ext, s.now()))
}

func uniqueName(stem, tag, ext string, now time.Time) string {
	return stem + "_" + tag + "_" +
		strconv.FormatInt(now.UnixMilli(), 10) + "-" +
		strconv.FormatUint(tempSeq.Add(1), 10) + ext
}

// SaveTemp saves data to a temporary file and returns the file path.
// The name is used as a base for the filename with a unique suffix.
func (s *LocalStorage) SaveTemp(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.CreateTemp(s.tempDir, name+"_*")
	if err != nil {
		return "", &FilesystemError{Op: "create", Path: s.tempDir, Err: err}
	}

	fileName := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(fileName)
		return "", &FilesystemError{Op: "write", Path: fileName, Err: err}
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(fileName)
		return "", &FilesystemError{Op: "close", Path: fileName, Err: err}
	}

	return fileName, nil
}

// Open opens path for reading. The caller closes the returned ReadCloser.
func (s *LocalStorage) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, &FilesystemError{Op: "open", Path: path, Err: err}
	}

	return f, nil
}

// CleanupTemp removes the specified temporary files.
// It continues cleanup even if some files fail to delete,
// returning the first error encountered.
func (s *LocalStorage) CleanupTemp(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = &FilesystemError{Op: "remove", Path: p, Err: err}
			}
		}
	}
	return firstErr
}

// UploadToS3 is not supported by LocalStorage and returns ErrS3NotConfigured.
func (s *LocalStorage) UploadToS3(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrS3NotConfigured
}

// Verify interface implementation at compile time.
var _ Storage = (*LocalStorage)(nil)
