package server

import (
	"log/slog"
	"net/http"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
	// Tokens verifies bearer tokens on protected routes.
	Tokens TokenVerifier
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	// Requests receives per-request latency when set.
	Requests RequestObserver
	// Media serves stored objects under /media/ when set.
	Media http.Handler
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// publicPaths never require a token.
var publicPaths = []string{"/health", "/metrics", "/media/"}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /videos", h.UploadVideo)
	mux.HandleFunc("POST /upload", h.UploadVideo)
	mux.HandleFunc("GET /videos", h.ListVideos)
	mux.HandleFunc("GET /videos/{key...}", h.GetVideo)
	mux.HandleFunc("DELETE /videos/{key...}", h.DeleteVideo)

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}
	if cfg.Media != nil {
		mux.Handle("GET /media/", http.StripPrefix("/media/", cfg.Media))
	}

	middlewares := []func(http.Handler) http.Handler{
		RequestIDMiddleware(),
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
	}
	if cfg.Requests != nil {
		middlewares = append(middlewares, MetricsMiddleware(cfg.Requests, mux))
	}
	middlewares = append(middlewares, CORSMiddleware(cfg.AllowedOrigins))
	if cfg.Tokens != nil {
		middlewares = append(middlewares, AuthMiddleware(cfg.Tokens, logger, publicPaths...))
	}

	return ChainMiddleware(middlewares...)(mux)
}
