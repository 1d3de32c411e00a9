package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"github.com/maauso/videoupload-api/internal/auth"
	"github.com/maauso/videoupload-api/internal/upload"
)

const (
	// FormField is the multipart field carrying the video.
	FormField = "video"

	defaultMaxUploadBytes  int64 = 500 << 20
	defaultMultipartMemory int64 = 32 << 20

	msgUploaded    = "Video uploaded successfully"
	msgMissingFile = "No video uploaded"
	msgUnexpected  = "Unexpected error during video upload"
)

// VideoService is the upload use case consumed by the handlers.
type VideoService interface {
	Upload(ctx context.Context, req upload.Request) (*upload.Result, error)
	ListVideos(ctx context.Context, userID string) ([]*upload.Video, error)
	GetVideo(ctx context.Context, userID, key string) (*upload.Video, error)
	DeleteVideo(ctx context.Context, userID, key string) error
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service         VideoService
	validator       *validator.Validate
	logger          *slog.Logger
	maxUploadBytes  int64
	multipartMemory int64
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithMaxUploadBytes caps the request body size. Larger bodies get 413.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// WithMultipartMemory sets how much of a multipart body is kept in memory
// before spilling to disk.
func WithMultipartMemory(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.multipartMemory = n
		}
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service VideoService, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:         service,
		validator:       validator.New(),
		logger:          logger,
		maxUploadBytes:  defaultMaxUploadBytes,
		multipartMemory: defaultMultipartMemory,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// UploadVideo handles POST /videos requests.
func (h *Handlers) UploadVideo(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required", "UNAUTHORIZED")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "Video exceeds the upload size limit", "PAYLOAD_TOO_LARGE")
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			writeError(w, http.StatusBadRequest, msgMissingFile, "MISSING_FILE")
		default:
			h.logger.Warn("failed to parse multipart form", slog.String("error", err.Error()))
			writeErrorDetails(w, http.StatusBadRequest, "Malformed multipart body", err.Error(), "INVALID_FORM")
		}
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			h.logger.Warn("failed to remove multipart spill files", slog.String("error", err.Error()))
		}
	}()

	file, header, err := r.FormFile(FormField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			writeError(w, http.StatusBadRequest, msgMissingFile, "MISSING_FILE")
			return
		}
		h.logger.Warn("failed to open uploaded file", slog.String("error", err.Error()))
		writeErrorDetails(w, http.StatusBadRequest, "Malformed multipart body", err.Error(), "INVALID_FORM")
		return
	}
	defer file.Close()

	form := UploadForm{UserID: userID, Filename: header.Filename, Size: header.Size}
	if err := h.validator.Struct(form); err != nil {
		h.logger.Warn("upload validation failed", slog.String("error", err.Error()))
		writeErrorDetails(w, http.StatusBadRequest, "Invalid upload request", err.Error(), "VALIDATION_ERROR")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("failed to read uploaded file", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, msgUnexpected, "UNEXPECTED_ERROR")
		return
	}

	result, err := h.service.Upload(r.Context(), upload.Request{
		UserID:      form.UserID,
		Data:        data,
		Filename:    form.Filename,
		ContentType: contentType(header.Header.Get("Content-Type"), data),
		Size:        form.Size,
	})
	if err != nil {
		h.writeUploadError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Message: msgUploaded,
		File:    toFileResponse(*result),
	})
}

// ListVideos handles GET /videos requests.
func (h *Handlers) ListVideos(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required", "UNAUTHORIZED")
		return
	}

	videos, err := h.service.ListVideos(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list videos",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list videos", "VIDEO_LIST_FAILED")
		return
	}

	resp := VideoListResponse{Videos: make([]VideoResponse, 0, len(videos))}
	for _, v := range videos {
		resp.Videos = append(resp.Videos, toVideoResponse(v))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetVideo handles GET /videos/{key...} requests.
func (h *Handlers) GetVideo(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required", "UNAUTHORIZED")
		return
	}
	key := r.PathValue("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "video key is required", "MISSING_VIDEO_KEY")
		return
	}

	video, err := h.service.GetVideo(r.Context(), userID, key)
	if err != nil {
		if errors.Is(err, upload.ErrVideoNotFound) {
			writeError(w, http.StatusNotFound, "video not found", "VIDEO_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get video",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get video", "VIDEO_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, toVideoResponse(video))
}

// DeleteVideo handles DELETE /videos/{key...} requests.
func (h *Handlers) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required", "UNAUTHORIZED")
		return
	}
	key := r.PathValue("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "video key is required", "MISSING_VIDEO_KEY")
		return
	}

	if err := h.service.DeleteVideo(r.Context(), userID, key); err != nil {
		if errors.Is(err, upload.ErrVideoNotFound) {
			writeError(w, http.StatusNotFound, "video not found", "VIDEO_NOT_FOUND")
			return
		}
		h.logger.Error("failed to delete video",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to delete video", "VIDEO_DELETE_FAILED")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeUploadError maps an upload pipeline error to its response.
func (h *Handlers) writeUploadError(w http.ResponseWriter, err error) {
	if errors.Is(err, upload.ErrMissingFile) {
		writeError(w, http.StatusBadRequest, msgMissingFile, "MISSING_FILE")
		return
	}

	var stageErr *upload.Error
	if !errors.As(err, &stageErr) {
		h.logger.Error("unexpected upload failure", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, msgUnexpected, "UNEXPECTED_ERROR")
		return
	}

	var message, code string
	switch stageErr.Stage {
	case upload.StageStore:
		message, code = "Failed to upload video to storage", "STORE_FAILED"
	case upload.StageURLResolution:
		message, code = "Failed to generate public URL", "URL_RESOLUTION_FAILED"
	case upload.StageMaterialize:
		message, code = "Failed to prepare video for probing", "MATERIALIZE_FAILED"
	case upload.StageProbe:
		message, code = "Failed to extract video duration", "PROBE_FAILED"
	default:
		message, code = msgUnexpected, "UNEXPECTED_ERROR"
	}

	var details string
	if stageErr.Err != nil {
		details = stageErr.Err.Error()
	}
	writeErrorDetails(w, http.StatusInternalServerError, message, details, code)
}

// contentType prefers the declared type and sniffs the payload when the
// client sent none or a generic one.
func contentType(declared string, data []byte) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return mimetype.Detect(data).String()
}

func toFileResponse(r upload.Result) FileResponse {
	return FileResponse{
		OriginalName: r.OriginalName,
		MimeType:     r.MimeType,
		Size:         r.Size,
		StoredAs:     r.StoredAs,
		URL:          r.URL,
		Duration:     r.Duration,
	}
}

func toVideoResponse(v *upload.Video) VideoResponse {
	return VideoResponse{
		FileResponse: toFileResponse(v.Result),
		UploadedAt:   v.UploadedAt,
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeErrorDetails(w, status, message, "", code)
}

func writeErrorDetails(w http.ResponseWriter, status int, message, details, code string) {
	writeJSON(w, status, ErrorResponse{
		Error:   message,
		Details: details,
		Code:    code,
	})
}
