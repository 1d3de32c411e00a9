// Package media provides read-only inspection of video files.
package media

import "context"

// DurationProber extracts the playback duration of a media file.
// Implementations only accept local filesystem paths.
type DurationProber interface {
	// ProbeDuration returns the duration of the file at path in seconds.
	ProbeDuration(ctx context.Context, path string) (float64, error)
}
