package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iconidentify/ytmux/internal/domain"
)

// FormatLister lists the encodings a source offers.
type FormatLister interface {
	Formats(ctx context.Context, sourceURL string) ([]domain.EncodingDescriptor, error)
}

// FormatsHandler handles encoding listing.
type FormatsHandler struct {
	catalog FormatLister
	logger  *slog.Logger
}

// NewFormatsHandler creates a new formats handler.
func NewFormatsHandler(catalog FormatLister, logger *slog.Logger) *FormatsHandler {
	return &FormatsHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// FormatResponse is one entry of the formats listing.
type FormatResponse struct {
	Itag    string `json:"itag"`
	Quality string `json:"quality"`
}

// List handles GET /formats?url=
func (h *FormatsHandler) List(w http.ResponseWriter, r *http.Request) {
	sourceURL := r.URL.Query().Get("url")

	encodings, err := h.catalog.Formats(r.Context(), sourceURL)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidRequest):
			h.writeError(w, http.StatusBadRequest, "invalid url")
		case errors.Is(err, domain.ErrNoEncodings):
			h.writeError(w, http.StatusNotFound, domain.ErrNoEncodings.Error())
		default:
			h.logger.Error("list formats failed", "url", sourceURL, "error", err)
			h.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	resp := make([]FormatResponse, 0, len(encodings))
	for _, e := range encodings {
		resp = append(resp, FormatResponse{
			Itag:    e.ID,
			Quality: e.QualityLabel,
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *FormatsHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *FormatsHandler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
