// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
)

// ErrInvalid is wrapped by every error returned from Validate.
var ErrInvalid = errors.New("config: invalid configuration")

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int      `env:"PORT, default=8080" json:"port" validate:"min=1,max=65535"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS, default=*" json:"allowed_origins"`

	// ffmpeg settings
	FFmpegPath  string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path" validate:"required"`
	FFprobePath string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path" validate:"required"`
	VideoCodec  string `env:"VIDEO_CODEC, default=libx264" json:"video_codec" validate:"required"`
	VideoPreset string `env:"VIDEO_PRESET, default=fast" json:"video_preset" validate:"required"`
	VideoCRF    int    `env:"VIDEO_CRF, default=23" json:"video_crf" validate:"min=0,max=63"`

	// Default merge canvas
	MergeWidth  int `env:"MERGE_WIDTH, default=1280" json:"merge_width" validate:"min=2,max=8192"`
	MergeHeight int `env:"MERGE_HEIGHT, default=720" json:"merge_height" validate:"min=2,max=8192"`
	MergeFPS    int `env:"MERGE_FPS, default=30" json:"merge_fps" validate:"min=1,max=240"`

	// Storage settings
	TempDir string `env:"TEMP_DIR, default=/tmp/mediaforge" json:"temp_dir" validate:"required"`

	// Processing settings
	MaxConcurrentJobs int `env:"MAX_CONCURRENT_JOBS, default=2" json:"max_concurrent_jobs" validate:"min=1"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty" validate:"required_with=S3Bucket"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty" validate:"omitempty,url"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format" validate:"oneof=text json TEXT JSON"`
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"` // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	return load(context.Background(), envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges and the consistency of the S3 settings.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, FFmpegPath: %s, FFprobePath: %s, Video: %s/%s/crf %d, MergeCanvas: %dx%d@%d, TempDir: %s, MaxConcurrentJobs: %d, S3Bucket: %s, S3Region: %s, S3Endpoint: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.FFmpegPath,
		c.FFprobePath,
		c.VideoCodec,
		c.VideoPreset,
		c.VideoCRF,
		c.MergeWidth,
		c.MergeHeight,
		c.MergeFPS,
		c.TempDir,
		c.MaxConcurrentJobs,
		c.S3Bucket,
		c.S3Region,
		c.S3Endpoint,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
