package job

import (
	"context"
	"errors"
)

// ErrJobNotFound is returned when no job has the requested ID.
var ErrJobNotFound = errors.New("job not found")

// Repository stores job snapshots. Service is its only writer; handlers read
// through Service so they always see copies, never the live job.
type Repository interface {
	// Save inserts or replaces the job with job.ID.
	Save(ctx context.Context, job *Job) error

	// FindByID returns the job or ErrJobNotFound.
	FindByID(ctx context.Context, id string) (*Job, error)

	// List returns every stored job, oldest first.
	List(ctx context.Context) ([]*Job, error)

	// Delete forgets a job. Returns ErrJobNotFound for unknown IDs.
	Delete(ctx context.Context, id string) error
}
