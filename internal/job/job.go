// Package job tracks editing operations submitted through the HTTP API.
// It includes the Job entity with its state machine, as well as repository
// interfaces for persistence.
package job

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/maauso/mediaforge/internal/job/id"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusInQueue indicates the job is waiting for a free slot.
	StatusInQueue Status = "IN_QUEUE"
	// StatusRunning indicates the operation is running.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates the operation finished successfully.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the operation or its publication failed.
	StatusFailed Status = "FAILED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusInQueue:   {StatusRunning, StatusFailed},
	StatusRunning:   {StatusCompleted, StatusFailed},
	StatusCompleted: {},
	StatusFailed:    {},
}

func canTransition(from, to Status) bool {
	return slices.Contains(validTransitions[from], to)
}

// Job is one submitted editing operation.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// Operation is the editor operation name (e.g. "trim").
	Operation string
	// Status is the current job state.
	Status Status
	// Inputs are the operation's input paths.
	Inputs []string
	// Output is the path of the finished file, or of the untouched input
	// for operations that had nothing to write.
	Output string
	// URL is the published object URL when Publish was requested.
	URL string
	// Error contains the failure message if the job failed.
	Error string
	// LastProgress is the last diagnostic line ffmpeg printed, verbatim.
	LastProgress string
	// Publish requests an upload of the output to S3 on success.
	Publish bool
	// Replaced, Synthesized and Fallback mirror the editor result.
	Replaced    bool
	Synthesized bool
	Fallback    bool
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// StartedAt is when processing started.
	StartedAt time.Time
	// CompletedAt is when processing finished.
	CompletedAt time.Time
}

// New creates an IN_QUEUE job whose ID is prefixed with the operation name.
func New(operation string, inputs []string) *Job {
	return NewWithID(id.Generate(operation), operation, inputs)
}

// NewWithID creates a new Job with the specified ID and initial IN_QUEUE status.
func NewWithID(jobID, operation string, inputs []string) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Operation: operation,
		Status:    StatusInQueue,
		Inputs:    slices.Clone(inputs),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.transition(status)
}

func (j *Job) transition(status Status) error {
	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	switch status {
	case StatusRunning:
		j.StartedAt = j.UpdatedAt
	case StatusCompleted, StatusFailed:
		j.CompletedAt = j.UpdatedAt
	}
	return nil
}

// Start transitions the job from IN_QUEUE to RUNNING.
func (j *Job) Start() error {
	return j.TransitionTo(StatusRunning)
}

// Complete transitions the job to COMPLETED.
func (j *Job) Complete() error {
	return j.TransitionTo(StatusCompleted)
}

// Fail transitions the job to FAILED with an error message.
func (j *Job) Fail(errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transition(StatusFailed); err != nil {
		return err
	}
	j.Error = errMsg
	return nil
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// SetProgress records the latest ffmpeg diagnostic line.
func (j *Job) SetProgress(line string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.LastProgress = line
	j.UpdatedAt = time.Now()
}

// SetOutput records where the result can be read.
func (j *Job) SetOutput(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Output = path
	j.UpdatedAt = time.Now()
}

// SetURL records the published object URL.
func (j *Job) SetURL(url string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.URL = url
	j.UpdatedAt = time.Now()
}

// SetFlags copies the editor's result flags.
func (j *Job) SetFlags(replaced, synthesized, fallback bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Replaced = replaced
	j.Synthesized = synthesized
	j.Fallback = fallback
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return &Job{
		ID:           j.ID,
		Operation:    j.Operation,
		Status:       j.Status,
		Inputs:       slices.Clone(j.Inputs),
		Output:       j.Output,
		URL:          j.URL,
		Error:        j.Error,
		LastProgress: j.LastProgress,
		Publish:      j.Publish,
		Replaced:     j.Replaced,
		Synthesized:  j.Synthesized,
		Fallback:     j.Fallback,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
	}
}
