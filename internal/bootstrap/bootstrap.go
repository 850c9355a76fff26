// Package bootstrap wires the mediaforge components together.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/maauso/mediaforge/internal/command"
	"github.com/maauso/mediaforge/internal/config"
	"github.com/maauso/mediaforge/internal/editor"
	"github.com/maauso/mediaforge/internal/eventlog"
	"github.com/maauso/mediaforge/internal/job"
	"github.com/maauso/mediaforge/internal/pipeline"
	"github.com/maauso/mediaforge/internal/probe"
	"github.com/maauso/mediaforge/internal/server"
	"github.com/maauso/mediaforge/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Editor   *editor.Editor
	Jobs     *job.Service
	Handlers *server.Handlers
}

// tempStore is the storage backend together with its disk telemetry.
type tempStore interface {
	storage.Storage
	server.DiskReporter
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	ed := editor.New(editor.Deps{
		Prober: probe.NewFFprobe(cfg.FFprobePath, logger),
		Runner: pipeline.NewExecutor(cfg.FFmpegPath, logger),
		Builder: command.NewBuilder(command.Encoding{
			VideoCodec: cfg.VideoCodec,
			Preset:     cfg.VideoPreset,
			CRF:        cfg.VideoCRF,
		}),
		Storage: store,
		Outputs: storage.NewOutputs(store),
		Events:  eventlog.NewSlogLogger(logger),
		Logger:  logger,
		Canvas: command.Canvas{
			Width:  cfg.MergeWidth,
			Height: cfg.MergeHeight,
			FPS:    cfg.MergeFPS,
		},
	})

	jobs := job.NewService(job.NewMemoryRepository(), store, logger, cfg.MaxConcurrentJobs)
	handlers := server.NewHandlers(ed, jobs, logger, server.WithStats(server.HostStats(store)))

	return &Dependencies{
		Editor:   ed,
		Jobs:     jobs,
		Handlers: handlers,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (tempStore, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("temp_dir", cfg.TempDir),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)
	return localStore, nil
}
