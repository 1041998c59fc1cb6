package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/iconidentify/ytmux/internal/api/handler"
	mw "github.com/iconidentify/ytmux/internal/api/middleware"
	"github.com/iconidentify/ytmux/internal/config"
)

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(
	formatsHandler *handler.FormatsHandler,
	downloadHandler *handler.DownloadHandler,
	progressHandler *handler.ProgressHandler,
	healthHandler *handler.HealthHandler,
	cfg *config.Config,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware. No request timeout: downloads and the progress
	// socket are long-lived and bounded by the job timeout instead.
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //ready -> /ready)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(mw.CORS(cfg.Server.AllowedOrigins))

	// Health endpoints
	r.Get("/health", healthHandler.Live)
	r.Get("/ready", healthHandler.Ready)
	r.Get("/stats", healthHandler.Stats)

	// Progress feed (websocket)
	r.Get("/progress", progressHandler.Stream)

	// Catalog and pipeline share one request budget
	r.Group(func(r chi.Router) {
		r.Use(mw.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))

		r.Get("/formats", formatsHandler.List)
		r.Get("/download", downloadHandler.Download)
	})

	return r
}
