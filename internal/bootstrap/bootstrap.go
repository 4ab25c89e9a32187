// Package bootstrap provides dependency initialization for the BeatFrame API.
package bootstrap

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/beatframe/beatframe-api/internal/align"
	"github.com/beatframe/beatframe-api/internal/audio"
	"github.com/beatframe/beatframe-api/internal/backoff"
	"github.com/beatframe/beatframe-api/internal/batch"
	"github.com/beatframe/beatframe-api/internal/config"
	"github.com/beatframe/beatframe-api/internal/fal"
	"github.com/beatframe/beatframe-api/internal/generator"
	"github.com/beatframe/beatframe-api/internal/job"
	"github.com/beatframe/beatframe-api/internal/replicate"
	"github.com/beatframe/beatframe-api/internal/scene"
	"github.com/beatframe/beatframe-api/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	BatchService *batch.Service
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	cache, err := initCache(cfg, logger)
	if err != nil {
		return nil, err
	}

	policy := backoff.Default()
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}

	gen, err := initGenerator(cfg, policy)
	if err != nil {
		return nil, err
	}

	aligner, err := align.New(cfg.AllowedDurations)
	if err != nil {
		return nil, fmt.Errorf("create aligner: %w", err)
	}

	linker := &scene.Linker{
		AutoLink:      true,
		MaxReferences: cfg.MaxReferenceImages,
	}

	extractor := audio.NewExtractor(cfg.FFmpegPath)

	runner := job.NewClient(gen, cache, logger,
		job.WithPollInterval(time.Duration(cfg.PollIntervalSec)*time.Second),
		job.WithMaxWait(time.Duration(cfg.MaxWaitSec)*time.Second),
		job.WithAllowedDurations(cfg.AllowedDurations),
		job.WithMaxReferenceImages(cfg.MaxReferenceImages),
		job.WithAspectRatio(cfg.AspectRatio),
	)

	repo := batch.NewMemoryRepository()

	svc := batch.NewService(repo, runner, aligner, linker, extractor, cache, logger)
	svc.SetMaxConcurrentScenes(cfg.MaxConcurrentScenes)
	svc.SetSegmentDir(cfg.SegmentDir)

	return &Dependencies{
		BatchService: svc,
	}, nil
}

// initGenerator creates the provider client selected by configuration. The
// retry policy lives in the provider transport, where the retries happen.
func initGenerator(cfg *config.Config, policy backoff.Policy) (generator.Generator, error) {
	switch strings.ToLower(cfg.Provider) {
	case config.ProviderFal:
		client, err := fal.NewClient(cfg.FalModel,
			fal.WithAPIKey(cfg.FalAPIKey),
			fal.WithBackoff(policy),
		)
		if err != nil {
			return nil, fmt.Errorf("create fal client: %w", err)
		}
		return generator.NewFalAdapter(client), nil
	case config.ProviderReplicate:
		client, err := replicate.NewClient(cfg.ReplicateVersion,
			replicate.WithToken(cfg.ReplicateToken),
			replicate.WithBackoff(policy),
		)
		if err != nil {
			return nil, fmt.Errorf("create replicate client: %w", err)
		}
		return generator.NewReplicateAdapter(client), nil
	default:
		return nil, config.ErrProviderUnknown
	}
}

// initCache creates the appropriate artifact cache based on configuration.
func initCache(cfg *config.Config, logger *slog.Logger) (storage.Cache, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Cache, err := storage.NewS3Cache(cfg.CacheDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 cache: %w", err)
		}
		logger.Info("S3 delivery configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Cache, nil
	}

	localCache, err := storage.NewLocalCache(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("create local cache: %w", err)
	}
	logger.Info("local cache configured",
		slog.String("cache_dir", cfg.CacheDir),
	)
	return localCache, nil
}
