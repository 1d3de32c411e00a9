// Package upload orchestrates video uploads: name normalization, remote
// storage, public URL resolution, and duration probing through a transient
// local copy of the upload.
package upload

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMissingFile is returned when the request carries no upload.
	ErrMissingFile = errors.New("no video uploaded")
	// ErrNoPublicURL is returned when the store resolves no URL for a key it
	// just accepted.
	ErrNoPublicURL = errors.New("no public URL returned")
	// ErrVideoNotFound is returned when a video cannot be found by key.
	ErrVideoNotFound = errors.New("video not found")
)

// Stage identifies the pipeline step that failed.
type Stage string

// Pipeline stages that can fail.
const (
	StageStore         Stage = "store"
	StageURLResolution Stage = "url-resolution"
	StageMaterialize   Stage = "materialize"
	StageProbe         Stage = "probe"
)

// Error is a pipeline failure tagged with the stage it happened in.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StageOf returns the stage recorded in err, if any.
func StageOf(err error) (Stage, bool) {
	var uploadErr *Error
	if errors.As(err, &uploadErr) {
		return uploadErr.Stage, true
	}
	return "", false
}

// Request is a single decoded upload. It lives for one request only.
type Request struct {
	// UserID is the authenticated caller.
	UserID string
	// Data is the whole file held in memory.
	Data []byte
	// Filename is the name the client sent. Untrusted.
	Filename string
	// ContentType is the declared MIME type. Untrusted.
	ContentType string
	// Size is the declared size in bytes.
	Size int64
}

// Result describes a stored video.
type Result struct {
	OriginalName string
	MimeType     string
	Size         int64
	StoredAs     string
	URL          string
	Duration     float64
}

// Video is a Result recorded against its owner.
type Video struct {
	Result
	UserID     string
	UploadedAt time.Time
}
