package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/maauso/mediaforge/internal/editor"
	"github.com/maauso/mediaforge/internal/pipeline"
	"github.com/maauso/mediaforge/internal/storage"
)

// DefaultMaxConcurrent is the number of jobs run at once when not configured.
const DefaultMaxConcurrent = 2

// ErrJobActive is returned when deleting a job that has not finished.
var ErrJobActive = errors.New("job is still queued or running")

// RunFunc runs one editor operation, reporting ffmpeg diagnostics to progress.
type RunFunc func(ctx context.Context, progress pipeline.ProgressFunc) (*editor.Result, error)

// Submission describes an operation to run in the background.
type Submission struct {
	Operation string
	Inputs    []string
	// Publish uploads the finished output to S3 when S3 is configured.
	Publish bool
	Run     RunFunc
}

// Service runs submitted operations in the background and tracks them as
// jobs. At most maxConcurrent operations run at once; the rest wait in
// IN_QUEUE.
type Service struct {
	repo   Repository
	store  storage.Storage
	logger *slog.Logger
	sem    chan struct{}
	wg     sync.WaitGroup
}

// NewService creates a new Service.
func NewService(repo Repository, store storage.Storage, logger *slog.Logger, maxConcurrent int) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Service{
		repo:   repo,
		store:  store,
		logger: logger,
		sem:    make(chan struct{}, maxConcurrent),
	}
}

// Submit persists a new job and starts it in the background. The job keeps
// running after ctx is cancelled; only ctx's values are inherited.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Job, error) {
	job := New(sub.Operation, sub.Inputs)
	job.Publish = sub.Publish

	s.logger.Info("creating new job",
		slog.String("job_id", job.ID),
		slog.String("operation", sub.Operation),
		slog.Any("inputs", sub.Inputs),
		slog.Bool("publish", sub.Publish),
	)

	if err := s.repo.Save(ctx, job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	snapshot := job.Clone()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.process(context.WithoutCancel(ctx), job, sub)
	}()
	return snapshot, nil
}

// GetJob retrieves a job by ID.
func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// ListJobs returns every known job, oldest first.
func (s *Service) ListJobs(ctx context.Context) ([]*Job, error) {
	return s.repo.List(ctx)
}

// DeleteJob forgets a finished job. An output the job generated in the temp
// directory is removed with it; outputs written elsewhere belong to the
// caller and are left alone.
func (s *Service) DeleteJob(ctx context.Context, id string) error {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !job.IsTerminal() {
		return ErrJobActive
	}

	if s.ownsOutput(job.Output) {
		if err := s.store.CleanupTemp(ctx, []string{job.Output}); err != nil {
			s.logger.Warn("failed to remove job output",
				slog.String("job_id", id),
				slog.String("output", job.Output),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("job deleted", slog.String("job_id", id))
	return nil
}

// ownsOutput reports whether path lies inside the temp directory.
func (s *Service) ownsOutput(path string) bool {
	if path == "" {
		return false
	}
	rel, err := filepath.Rel(s.store.TempDir(), path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Wait blocks until every submitted job has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) process(ctx context.Context, job *Job, sub Submission) {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	if err := job.Start(); err != nil {
		s.logger.Error("failed to start job", slog.String("job_id", job.ID), slog.String("error", err.Error()))
		return
	}
	s.save(ctx, job)

	progress := func(line string) {
		job.SetProgress(line)
		s.save(ctx, job)
	}

	res, err := sub.Run(ctx, progress)
	if err != nil {
		s.fail(ctx, job, err)
		return
	}

	job.SetOutput(res.Output)
	job.SetFlags(res.Replaced, res.Synthesized, res.Fallback)

	if job.Publish {
		url, err := s.publish(ctx, job.ID, res.Output)
		switch {
		case errors.Is(err, storage.ErrS3NotConfigured):
			s.logger.Warn("publish requested but S3 is not configured", slog.String("job_id", job.ID))
		case err != nil:
			s.fail(ctx, job, fmt.Errorf("publish: %w", err))
			return
		default:
			job.SetURL(url)
		}
	}

	if err := job.Complete(); err != nil {
		s.logger.Error("failed to complete job", slog.String("job_id", job.ID), slog.String("error", err.Error()))
	}
	s.save(ctx, job)

	s.logger.Info("job completed",
		slog.String("job_id", job.ID),
		slog.String("operation", job.Operation),
		slog.String("output", res.Output),
	)
}

func (s *Service) publish(ctx context.Context, jobID, path string) (string, error) {
	f, err := s.store.Open(ctx, path)
	if err != nil {
		return "", fmt.Errorf("open output: %w", err)
	}
	defer f.Close()

	return s.store.UploadToS3(ctx, jobID+"/"+filepath.Base(path), f)
}

func (s *Service) fail(ctx context.Context, job *Job, err error) {
	s.logger.Error("job failed",
		slog.String("job_id", job.ID),
		slog.String("operation", job.Operation),
		slog.String("error", err.Error()),
	)
	if tErr := job.Fail(err.Error()); tErr != nil {
		s.logger.Error("failed to mark job failed", slog.String("job_id", job.ID), slog.String("error", tErr.Error()))
	}
	s.save(ctx, job)
}

func (s *Service) save(ctx context.Context, job *Job) {
	if err := s.repo.Save(ctx, job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}
}
