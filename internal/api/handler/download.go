package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/iconidentify/ytmux/internal/domain"
	"github.com/iconidentify/ytmux/internal/service"
)

// DownloadRunner runs one download job.
type DownloadRunner interface {
	Run(ctx context.Context, req service.DownloadRequest, deliver service.DeliverFunc) (*service.Result, error)
}

// DownloadHandler streams muxed downloads to the caller.
type DownloadHandler struct {
	runner DownloadRunner
	logger *slog.Logger
}

// NewDownloadHandler creates a new download handler.
func NewDownloadHandler(runner DownloadRunner, logger *slog.Logger) *DownloadHandler {
	return &DownloadHandler{
		runner: runner,
		logger: logger,
	}
}

// Download handles GET /download?url=&itag=[&job=]
// Nothing is written to the response until the muxed file is ready.
func (h *DownloadHandler) Download(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sourceURL := strings.TrimSpace(q.Get("url"))
	itag := strings.TrimSpace(q.Get("itag"))

	if sourceURL == "" {
		http.Error(w, "missing url parameter", http.StatusBadRequest)
		return
	}
	if itag == "" {
		http.Error(w, "missing itag parameter", http.StatusBadRequest)
		return
	}

	req := service.DownloadRequest{
		SourceURL:   sourceURL,
		EncodingID:  itag,
		ProgressKey: q.Get("job"),
	}

	result, err := h.runner.Run(r.Context(), req, func(ctx context.Context, d service.Deliverable) error {
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Disposition", `attachment; filename="`+d.Name+`"`)
		w.Header().Set("Content-Length", strconv.FormatInt(d.Size, 10))
		w.Header().Set("Last-Modified", d.ModTime.UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)

		_, err := io.Copy(w, d.Content)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidRequest):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, domain.ErrBusy):
			w.Header().Set("Retry-After", "5")
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			http.Error(w, "download failed: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	if result.DeliveryErr != nil {
		h.logger.Warn("client did not receive the full download",
			"job_id", result.JobID,
			"error", result.DeliveryErr,
		)
	}
}
