package upload

import "context"

// Repository defines the interface for the upload registry.
// It acts as a port in the hexagonal architecture pattern.
type Repository interface {
	// Save records a video. An existing record with the same key is replaced.
	Save(ctx context.Context, video *Video) error

	// FindByKey retrieves a video by its storage key.
	// Returns ErrVideoNotFound if the video does not exist.
	FindByKey(ctx context.Context, key string) (*Video, error)

	// ListByUser returns the videos uploaded by userID, newest first.
	ListByUser(ctx context.Context, userID string) ([]*Video, error)

	// Delete removes a video record.
	// Returns ErrVideoNotFound if the video does not exist.
	Delete(ctx context.Context, key string) error
}
