package upload

import (
	"context"
	"sort"
	"sync"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// It uses a map with RWMutex for thread-safe access.
// Records are lost on restart; the objects themselves stay in the store.
type MemoryRepository struct {
	mu     sync.RWMutex
	videos map[string]*Video
}

// NewMemoryRepository creates a new in-memory upload registry.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		videos: make(map[string]*Video),
	}
}

// Save stores a copy of video to avoid external mutations.
func (r *MemoryRepository) Save(_ context.Context, video *Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *video
	r.videos[video.StoredAs] = &stored
	return nil
}

// FindByKey retrieves a video by its storage key.
// Returns a copy to prevent external mutations.
func (r *MemoryRepository) FindByKey(_ context.Context, key string) (*Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	video, ok := r.videos[key]
	if !ok {
		return nil, ErrVideoNotFound
	}
	found := *video
	return &found, nil
}

// ListByUser returns copies of the user's videos, newest first.
func (r *MemoryRepository) ListByUser(_ context.Context, userID string) ([]*Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Video, 0)
	for _, video := range r.videos {
		if video.UserID != userID {
			continue
		}
		found := *video
		result = append(result, &found)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].UploadedAt.Equal(result[j].UploadedAt) {
			return result[i].StoredAs > result[j].StoredAs
		}
		return result[i].UploadedAt.After(result[j].UploadedAt)
	})
	return result, nil
}

// Delete removes a video record.
func (r *MemoryRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.videos[key]; !ok {
		return ErrVideoNotFound
	}
	delete(r.videos, key)
	return nil
}
