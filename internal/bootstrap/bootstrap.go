// Package bootstrap provides dependency initialization for the video upload API.
package bootstrap

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/maauso/videoupload-api/internal/auth"
	"github.com/maauso/videoupload-api/internal/config"
	"github.com/maauso/videoupload-api/internal/media"
	"github.com/maauso/videoupload-api/internal/metrics"
	"github.com/maauso/videoupload-api/internal/storage"
	"github.com/maauso/videoupload-api/internal/upload"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	VideoService *upload.Service
	Tokens       *auth.Tokens
	Metrics      *metrics.Recorder
	// Media serves locally stored objects. Nil when objects live in S3.
	Media http.Handler
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	tokens, err := auth.NewTokens(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("create token verifier: %w", err)
	}

	// Initialize object store
	store, mediaHandler, err := initObjectStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	temp, err := storage.NewTempStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create temp storage: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		return nil, fmt.Errorf("create metrics recorder: %w", err)
	}

	svc := upload.NewService(
		store,
		temp,
		media.NewFFprobe(cfg.FFprobePath),
		upload.NewMemoryRepository(),
		logger,
		upload.WithCacheControl(cfg.CacheControl),
		upload.WithCompensation(cfg.CompensateOnURLFailure),
		upload.WithObserver(recorder),
	)

	return &Dependencies{
		VideoService: svc,
		Tokens:       tokens,
		Metrics:      recorder,
		Media:        mediaHandler,
	}, nil
}

// initObjectStore creates the remote store based on configuration. The
// returned handler serves a disk store's objects and is nil for S3.
func initObjectStore(cfg *config.Config, logger *slog.Logger) (storage.ObjectStore, http.Handler, error) {
	if cfg.S3Enabled() {
		s3Store, err := storage.NewS3Store(storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			PublicBaseURL:   cfg.S3PublicBaseURL,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create S3 store: %w", err)
		}
		logger.Info("S3 object store configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("endpoint", cfg.S3Endpoint),
		)
		return s3Store, nil, nil
	}

	disk, err := storage.NewDiskStore(cfg.LocalStoreDir, cfg.PublicBaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("create disk store: %w", err)
	}
	logger.Info("disk object store configured",
		slog.String("root", disk.Root()),
		slog.String("public_base_url", cfg.PublicBaseURL),
	)
	return disk, disk.Handler(cfg.CacheControl), nil
}
