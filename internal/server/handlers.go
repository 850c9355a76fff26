package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/mediaforge/internal/command"
	"github.com/maauso/mediaforge/internal/editor"
	"github.com/maauso/mediaforge/internal/job"
	"github.com/maauso/mediaforge/internal/pipeline"
)

// maxBodyBytes bounds request bodies; they only carry paths and parameters.
const maxBodyBytes = 1 << 20

// Operations is the editing surface exposed over HTTP. *editor.Editor
// implements it.
type Operations interface {
	Trim(ctx context.Context, req editor.TrimRequest, progress pipeline.ProgressFunc) (*editor.Result, error)
	TrimAudio(ctx context.Context, req editor.TrimAudioRequest, progress pipeline.ProgressFunc) (*editor.Result, error)
	AddAudio(ctx context.Context, req editor.AddAudioRequest, progress pipeline.ProgressFunc) (*editor.Result, error)
	ApplyFilter(ctx context.Context, req editor.FilterRequest, progress pipeline.ProgressFunc) (*editor.Result, error)
	AddText(ctx context.Context, req editor.TextRequest, progress pipeline.ProgressFunc) (*editor.Result, error)
	Merge(ctx context.Context, req editor.MergeRequest, progress pipeline.ProgressFunc) (*editor.Result, error)
	MergeAudios(ctx context.Context, req editor.MergeAudiosRequest, progress pipeline.ProgressFunc) (*editor.Result, error)
	ExtractAudio(ctx context.Context, req editor.ExtractAudioRequest, progress pipeline.ProgressFunc) (*editor.Result, error)
	GenerateSilence(ctx context.Context, req editor.SilenceRequest, progress pipeline.ProgressFunc) (*editor.Result, error)
	EnsureAudio(ctx context.Context, req editor.EnsureAudioRequest, progress pipeline.ProgressFunc) (*editor.Result, error)
}

// JobService submits and looks up background jobs. *job.Service implements it.
type JobService interface {
	Submit(ctx context.Context, sub job.Submission) (*job.Job, error)
	GetJob(ctx context.Context, id string) (*job.Job, error)
	ListJobs(ctx context.Context) ([]*job.Job, error)
	DeleteJob(ctx context.Context, id string) error
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	ops       Operations
	jobs      JobService
	validator *validator.Validate
	logger    *slog.Logger
	stats     StatsFunc
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithStats sets the telemetry source of the health endpoint.
func WithStats(stats StatsFunc) HandlerOption {
	return func(h *Handlers) {
		h.stats = stats
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(ops Operations, jobs JobService, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		ops:       ops,
		jobs:      jobs,
		validator: validator.New(),
		logger:    logger,
		stats:     HostStats(nil),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if h.stats != nil {
		stats, err := h.stats(r.Context())
		if err != nil {
			h.logger.Warn("failed to collect system stats", slog.String("error", err.Error()))
		} else {
			resp.System = &stats
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// validatable is implemented by every editor request.
type validatable interface {
	Validate() error
}

// operationRoute builds the handler of one POST /v1/<operation> endpoint.
// The body is validated synchronously; the operation itself runs as a job.
func operationRoute[T validatable](
	h *Handlers,
	name string,
	inputs func(T) []string,
	run func(context.Context, T, pipeline.ProgressFunc) (*editor.Result, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", "BODY_TOO_LARGE")
			return
		}

		var req T
		var opt publishOption
		if err := decodeStrict(body, &req); err != nil {
			h.logger.Warn("failed to decode request body",
				slog.String("operation", name),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
			return
		}
		if err := json.Unmarshal(body, &opt); err != nil {
			h.logger.Warn("invalid publish flag",
				slog.String("operation", name),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusBadRequest, "publish must be a boolean", "INVALID_JSON")
			return
		}

		if err := h.validator.Struct(req); err != nil {
			h.logger.Warn("request validation failed",
				slog.String("operation", name),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
			return
		}
		if err := req.Validate(); err != nil {
			code := "VALIDATION_ERROR"
			switch {
			case errors.Is(err, command.ErrUnknownFilter):
				code = "UNKNOWN_FILTER"
			case errors.Is(err, command.ErrUnknownTransition):
				code = "UNKNOWN_TRANSITION"
			case errors.Is(err, command.ErrOutOfRange):
				code = "OUT_OF_RANGE"
			}
			writeError(w, http.StatusBadRequest, err.Error(), code)
			return
		}

		created, err := h.jobs.Submit(r.Context(), job.Submission{
			Operation: name,
			Inputs:    inputs(req),
			Publish:   opt.Publish,
			Run: func(ctx context.Context, progress pipeline.ProgressFunc) (*editor.Result, error) {
				return run(ctx, req, progress)
			},
		})
		if err != nil {
			h.logger.Error("failed to create job",
				slog.String("operation", name),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to create job", "JOB_CREATION_FAILED")
			return
		}

		h.logger.Info("job created",
			slog.String("job_id", created.ID),
			slog.String("operation", name),
		)

		writeJSON(w, http.StatusAccepted, CreateJobResponse{
			ID:     created.ID,
			Status: string(created.Status),
		})
	}
}

// decodeStrict decodes body into v, ignoring only the publish flag.
func decodeStrict(body []byte, v any) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return err
	}
	delete(raw, "publish")
	rest, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(rest))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// GetJob handles GET /v1/jobs/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	found, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, toJobResponse(found))
}

// DeleteJob handles DELETE /v1/jobs/{id} requests.
func (h *Handlers) DeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	err := h.jobs.DeleteJob(r.Context(), jobID)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, job.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
	case errors.Is(err, job.ErrJobActive):
		writeError(w, http.StatusConflict, "job is still queued or running", "JOB_ACTIVE")
	default:
		h.logger.Error("failed to delete job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to delete job", "JOB_DELETE_FAILED")
	}
}

// ListJobs handles GET /v1/jobs requests.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.ListJobs(r.Context())
	if err != nil {
		h.logger.Error("failed to list jobs", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list jobs", "JOB_FETCH_FAILED")
		return
	}

	resp := ListJobsResponse{Jobs: make([]JobResponse, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, toJobResponse(j))
	}
	writeJSON(w, http.StatusOK, resp)
}

func toJobResponse(j *job.Job) JobResponse {
	return JobResponse{
		ID:           j.ID,
		Operation:    j.Operation,
		Status:       string(j.Status),
		Inputs:       j.Inputs,
		Output:       j.Output,
		URL:          j.URL,
		Error:        j.Error,
		LastProgress: j.LastProgress,
		Replaced:     j.Replaced,
		Synthesized:  j.Synthesized,
		Fallback:     j.Fallback,
		CreatedAt:    j.CreatedAt,
		StartedAt:    optionalTime(j.StartedAt),
		CompletedAt:  optionalTime(j.CompletedAt),
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
