package server

import (
	"log/slog"
	"net/http"

	"github.com/maauso/mediaforge/internal/editor"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /v1/jobs", h.ListJobs)
	mux.HandleFunc("GET /v1/jobs/{id}", h.GetJob)
	mux.HandleFunc("DELETE /v1/jobs/{id}", h.DeleteJob)

	one := func(path string) []string { return []string{path} }

	mux.HandleFunc("POST /v1/"+editor.OpTrim, operationRoute(h, editor.OpTrim,
		func(r editor.TrimRequest) []string { return one(r.Input) }, h.ops.Trim))
	mux.HandleFunc("POST /v1/"+editor.OpTrimAudio, operationRoute(h, editor.OpTrimAudio,
		func(r editor.TrimAudioRequest) []string { return one(r.Input) }, h.ops.TrimAudio))
	mux.HandleFunc("POST /v1/"+editor.OpAddAudio, operationRoute(h, editor.OpAddAudio,
		func(r editor.AddAudioRequest) []string {
			if r.Silence {
				return one(r.Video)
			}
			return []string{r.Video, r.Audio}
		}, h.ops.AddAudio))
	mux.HandleFunc("POST /v1/"+editor.OpFilter, operationRoute(h, editor.OpFilter,
		func(r editor.FilterRequest) []string { return one(r.Input) }, h.ops.ApplyFilter))
	mux.HandleFunc("POST /v1/"+editor.OpText, operationRoute(h, editor.OpText,
		func(r editor.TextRequest) []string { return one(r.Input) }, h.ops.AddText))
	mux.HandleFunc("POST /v1/"+editor.OpMerge, operationRoute(h, editor.OpMerge,
		func(r editor.MergeRequest) []string { return r.Inputs }, h.ops.Merge))
	mux.HandleFunc("POST /v1/"+editor.OpMergeAudios, operationRoute(h, editor.OpMergeAudios,
		func(r editor.MergeAudiosRequest) []string { return r.Inputs }, h.ops.MergeAudios))
	mux.HandleFunc("POST /v1/"+editor.OpExtractAudio, operationRoute(h, editor.OpExtractAudio,
		func(r editor.ExtractAudioRequest) []string { return one(r.Input) }, h.ops.ExtractAudio))
	mux.HandleFunc("POST /v1/"+editor.OpGenerateSilence, operationRoute(h, editor.OpGenerateSilence,
		func(editor.SilenceRequest) []string { return nil }, h.ops.GenerateSilence))
	mux.HandleFunc("POST /v1/"+editor.OpEnsureAudio, operationRoute(h, editor.OpEnsureAudio,
		func(r editor.EnsureAudioRequest) []string { return one(r.Input) }, h.ops.EnsureAudio))

	// Apply middleware chain
	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}
