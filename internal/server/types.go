// Package server provides the local HTTP API of mediaforge.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import (
	"time"

	"github.com/maauso/mediaforge/internal/storage"
)

// publishOption is decoded from every operation body next to the editor
// request itself.
type publishOption struct {
	// Publish uploads the finished output to S3 when S3 is configured.
	Publish bool `json:"publish"`
}

// CreateJobResponse is the HTTP response after submitting an operation.
type CreateJobResponse struct {
	// ID is the unique identifier for the created job.
	ID string `json:"id"`
	// Status is the initial job status.
	Status string `json:"status"`
}

// JobResponse is the HTTP response for getting job details.
type JobResponse struct {
	ID        string   `json:"id"`
	Operation string   `json:"operation"`
	Status    string   `json:"status"`
	Inputs    []string `json:"inputs,omitempty"`
	// Output is the local path of the result once the job completed.
	Output string `json:"output,omitempty"`
	// URL is the S3 URL of the output if it was published.
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
	// LastProgress is the last line ffmpeg printed, verbatim.
	LastProgress string     `json:"last_progress,omitempty"`
	Replaced     bool       `json:"replaced,omitempty"`
	Synthesized  bool       `json:"synthesized,omitempty"`
	Fallback     bool       `json:"fallback,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// ListJobsResponse is the HTTP response for listing jobs.
type ListJobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
	// System is host telemetry; omitted when it could not be collected.
	System *SystemStats `json:"system,omitempty"`
}

// SystemStats is a snapshot of host resources relevant to ffmpeg work.
type SystemStats struct {
	CPUPercent        float64        `json:"cpu_percent"`
	MemoryFreeBytes   uint64         `json:"memory_free_bytes"`
	MemoryUsedPercent float64        `json:"memory_used_percent"`
	TempDisk          *storage.Usage `json:"temp_disk,omitempty"`
}
