// Package server provides the HTTP server for the video upload API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "time"

// UploadForm is the validated view of a multipart upload request.
type UploadForm struct {
	// UserID is the authenticated uploader. It becomes part of the object key.
	UserID string `validate:"required,max=128,printascii,excludesall=/\\"`
	// Filename is the client-supplied file name.
	Filename string `validate:"max=1024"`
	// Size is the declared byte count of the file part.
	Size int64 `validate:"gte=0"`
}

// FileResponse describes a stored video.
type FileResponse struct {
	OriginalName string  `json:"originalName"`
	MimeType     string  `json:"mimeType"`
	Size         int64   `json:"size"`
	StoredAs     string  `json:"storedAs"`
	URL          string  `json:"url"`
	Duration     float64 `json:"duration"`
}

// UploadResponse is the HTTP response after a successful upload.
type UploadResponse struct {
	Message string       `json:"message"`
	File    FileResponse `json:"file"`
}

// VideoResponse is a recorded upload as returned by the listing endpoints.
type VideoResponse struct {
	FileResponse
	UploadedAt time.Time `json:"uploadedAt"`
}

// VideoListResponse is the HTTP response for GET /videos.
type VideoListResponse struct {
	Videos []VideoResponse `json:"videos"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Details carries the underlying cause when it is safe to expose.
	Details string `json:"details,omitempty"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
