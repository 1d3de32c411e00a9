package upload

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maauso/videoupload-api/internal/media"
	"github.com/maauso/videoupload-api/internal/storage"
)

// DefaultCacheControl is sent with stored objects unless overridden.
const DefaultCacheControl = "public, max-age=3600"

// Observer receives pipeline outcomes, typically for metrics.
type Observer interface {
	UploadSucceeded(size int64, duration float64)
	UploadFailed(stage Stage)
}

type nopObserver struct{}

func (nopObserver) UploadSucceeded(int64, float64) {}
func (nopObserver) UploadFailed(Stage)             {}

// Service runs the upload pipeline: normalize, store, resolve URL,
// materialize, probe, clean up.
type Service struct {
	store      storage.ObjectStore
	temp       storage.TempFiles
	prober     media.DurationProber
	repo       Repository
	observer   Observer
	normalizer *Normalizer
	logger     *slog.Logger
	now        func() time.Time

	cacheControl string
	// compensate deletes the stored object when no public URL resolves.
	compensate bool
}

// ServiceOption is a function that configures a Service.
type ServiceOption func(*Service)

// WithClock sets the time source used for object names and records.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCacheControl sets the Cache-Control value stored with objects.
func WithCacheControl(v string) ServiceOption {
	return func(s *Service) {
		s.cacheControl = v
	}
}

// WithCompensation makes a URL resolution failure delete the object that
// was just stored. Off by default.
func WithCompensation(enabled bool) ServiceOption {
	return func(s *Service) {
		s.compensate = enabled
	}
}

// WithObserver registers an Observer for pipeline outcomes.
func WithObserver(o Observer) ServiceOption {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// NewService creates a new upload Service.
func NewService(
	store storage.ObjectStore,
	temp storage.TempFiles,
	prober media.DurationProber,
	repo Repository,
	logger *slog.Logger,
	opts ...ServiceOption,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:        store,
		temp:         temp,
		prober:       prober,
		repo:         repo,
		observer:     nopObserver{},
		logger:       logger,
		now:          time.Now,
		cacheControl: DefaultCacheControl,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.normalizer = NewNormalizer(s.now)
	return s
}

// Upload stores req.Data remotely and returns its descriptor.
//
// Steps run strictly in order and each waits for the previous one. The
// temp file used for probing is removed on every path once created. A
// probe failure does not undo the remote store.
func (s *Service) Upload(ctx context.Context, req Request) (*Result, error) {
	if req.Data == nil {
		return nil, ErrMissingFile
	}

	name := s.normalizer.Normalize(req.Filename)
	key := ObjectKey(req.UserID, name)
	logger := s.logger.With(
		slog.String("user_id", req.UserID),
		slog.String("key", key),
	)

	err := s.store.Put(ctx, key, bytes.NewReader(req.Data), int64(len(req.Data)), req.ContentType, storage.PutOptions{
		CacheControl: s.cacheControl,
		NoOverwrite:  true,
	})
	if err != nil {
		logger.Error("failed to store video", slog.String("error", err.Error()))
		return nil, s.fail(StageStore, err)
	}
	logger.Debug("video stored", slog.Int("bytes", len(req.Data)))

	url, ok := s.store.PublicURL(ctx, key)
	if !ok || url == "" {
		logger.Error("no public URL for stored video")
		if s.compensate {
			s.deleteOrphan(ctx, logger, key)
		}
		return nil, s.fail(StageURLResolution, ErrNoPublicURL)
	}

	duration, err := s.probe(ctx, logger, name, req.Data)
	if err != nil {
		stage, _ := StageOf(err)
		s.observer.UploadFailed(stage)
		return nil, err
	}

	result := &Result{
		OriginalName: req.Filename,
		MimeType:     req.ContentType,
		Size:         req.Size,
		StoredAs:     key,
		URL:          url,
		Duration:     duration,
	}

	if err := s.repo.Save(ctx, &Video{Result: *result, UserID: req.UserID, UploadedAt: s.now()}); err != nil {
		logger.Warn("failed to record upload", slog.String("error", err.Error()))
	}

	s.observer.UploadSucceeded(req.Size, duration)
	logger.Info("video uploaded",
		slog.Int64("size", req.Size),
		slog.Float64("duration", duration),
	)
	return result, nil
}

// probe writes data to a temp file, probes it, and always removes the file.
func (s *Service) probe(ctx context.Context, logger *slog.Logger, name string, data []byte) (float64, error) {
	path, err := s.temp.SaveTemp(ctx, name, bytes.NewReader(data))
	if err != nil {
		logger.Error("failed to materialize video", slog.String("error", err.Error()))
		return 0, &Error{Stage: StageMaterialize, Err: err}
	}

	defer func() {
		// Detached so a cancelled request still releases the file.
		if err := s.temp.CleanupTemp(context.WithoutCancel(ctx), []string{path}); err != nil {
			logger.Warn("failed to remove temp file",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
	}()

	duration, err := s.prober.ProbeDuration(ctx, path)
	if err != nil {
		logger.Error("failed to probe duration", slog.String("error", err.Error()))
		return 0, &Error{Stage: StageProbe, Err: err}
	}
	return duration, nil
}

// deleteOrphan removes an object that was stored but cannot be served.
func (s *Service) deleteOrphan(ctx context.Context, logger *slog.Logger, key string) {
	if err := s.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		logger.Error("failed to delete orphaned object", slog.String("error", err.Error()))
		return
	}
	logger.Info("deleted orphaned object")
}

func (s *Service) fail(stage Stage, err error) error {
	s.observer.UploadFailed(stage)
	return &Error{Stage: stage, Err: err}
}

// ListVideos returns the caller's recorded uploads, newest first.
func (s *Service) ListVideos(ctx context.Context, userID string) ([]*Video, error) {
	return s.repo.ListByUser(ctx, userID)
}

// GetVideo returns the caller's upload stored under key. Videos owned by
// someone else are reported as not found.
func (s *Service) GetVideo(ctx context.Context, userID, key string) (*Video, error) {
	video, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if video.UserID != userID {
		return nil, ErrVideoNotFound
	}
	return video, nil
}

// DeleteVideo removes the caller's upload from the store and the registry.
func (s *Service) DeleteVideo(ctx context.Context, userID, key string) error {
	video, err := s.GetVideo(ctx, userID, key)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, video.StoredAs); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	if err := s.repo.Delete(ctx, video.StoredAs); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	s.logger.Info("video deleted",
		slog.String("user_id", userID),
		slog.String("key", key),
	)
	return nil
}
