// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrProviderUnknown is returned when PROVIDER names no known backend.
	ErrProviderUnknown = errors.New("config: PROVIDER must be fal or replicate")
	// ErrFalKeyRequired is returned when the fal backend is selected without FAL_KEY.
	ErrFalKeyRequired = errors.New("config: FAL_KEY is required for the fal provider")
	// ErrReplicateTokenRequired is returned when the replicate backend is selected
	// without REPLICATE_API_TOKEN.
	ErrReplicateTokenRequired = errors.New("config: REPLICATE_API_TOKEN is required for the replicate provider")
)

// Provider backend names accepted in PROVIDER.
const (
	ProviderFal       = "fal"
	ProviderReplicate = "replicate"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Provider selection
	Provider string `env:"PROVIDER, default=fal" json:"provider"`

	// fal.ai settings
	FalAPIKey string `env:"FAL_KEY" json:"-"` // Masked in JSON
	FalModel  string `env:"FAL_MODEL, default=fal-ai/kling-video/v2.1/standard/image-to-video" json:"fal_model"`

	// Replicate settings
	ReplicateToken   string `env:"REPLICATE_API_TOKEN" json:"-"` // Masked in JSON
	ReplicateVersion string `env:"REPLICATE_VERSION" json:"replicate_version,omitempty"`

	// Storage settings
	CacheDir   string `env:"CACHE_DIR, default=/tmp/beatframe" json:"cache_dir"`
	SegmentDir string `env:"SEGMENT_DIR, default=/tmp/beatframe/audio" json:"segment_dir"`
	FFmpegPath string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`

	// Processing settings
	MaxConcurrentScenes int       `env:"MAX_CONCURRENT_SCENES, default=2" json:"max_concurrent_scenes"`
	PollIntervalSec     int       `env:"POLL_INTERVAL_SEC, default=10" json:"poll_interval_sec"`
	MaxWaitSec          int       `env:"MAX_WAIT_SEC, default=480" json:"max_wait_sec"`
	MaxAttempts         int       `env:"MAX_ATTEMPTS, default=3" json:"max_attempts"`
	AllowedDurations    []float64 `env:"ALLOWED_DURATIONS, default=4,6,8" json:"allowed_durations"`
	MaxReferenceImages  int       `env:"MAX_REFERENCE_IMAGES, default=3" json:"max_reference_images"`
	AspectRatio         string    `env:"ASPECT_RATIO, default=16:9" json:"aspect_ratio"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig.
// It returns an error if required variables are not set.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected provider has its credentials set.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Provider) {
	case ProviderFal:
		if c.FalAPIKey == "" {
			return ErrFalKeyRequired
		}
	case ProviderReplicate:
		if c.ReplicateToken == "" {
			return ErrReplicateTokenRequired
		}
	default:
		return ErrProviderUnknown
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
		"Config{Port: %d, Provider: %s, FalModel: %s, CacheDir: %s, MaxConcurrentScenes: %d, PollIntervalSec: %d, MaxWaitSec: %d, AllowedDurations: %v, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.Provider,
		c.FalModel,
		c.CacheDir,
		c.MaxConcurrentScenes,
		c.PollIntervalSec,
		c.MaxWaitSec,
		c.AllowedDurations,
		c.S3Bucket,
		c.S3Region,
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
