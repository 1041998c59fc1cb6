package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/iconidentify/ytmux/internal/domain"
)

// ProgressSource hands out progress event streams by key.
type ProgressSource interface {
	Attach(key string) (<-chan domain.ProgressEvent, func())
}

// ProgressHandler pushes progress events over a websocket.
type ProgressHandler struct {
	source     ProgressSource
	acceptOpts *websocket.AcceptOptions
	logger     *slog.Logger
}

// ProgressMessage is the wire form of a progress event.
type ProgressMessage struct {
	Type     string `json:"type"`
	Stage    string `json:"stage"`
	Progress int    `json:"progress"`
}

// NewProgressHandler creates a new progress handler. allowedOrigins follows
// the CORS setting: "*" accepts any origin.
func NewProgressHandler(source ProgressSource, allowedOrigins []string, logger *slog.Logger) *ProgressHandler {
	return &ProgressHandler{
		source:     source,
		acceptOpts: acceptOptions(allowedOrigins),
		logger:     logger,
	}
}

func acceptOptions(allowedOrigins []string) *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{}
	for _, o := range allowedOrigins {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if o == "*" {
			opts.InsecureSkipVerify = true
			continue
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			o = u.Host
		}
		opts.OriginPatterns = append(opts.OriginPatterns, o)
	}
	return opts
}

// Stream handles GET /progress[?job=]
// The connection stays open until the client leaves or a newer observer
// attaches to the same key.
func (h *ProgressHandler) Stream(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("job")

	c, err := websocket.Accept(w, r, h.acceptOpts)
	if err != nil {
		h.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "progress feed closed")

	// Client messages are ignored; CloseRead notices when the client goes away
	ctx := c.CloseRead(r.Context())

	events, detach := h.source.Attach(key)
	defer detach()

	h.logger.Debug("progress observer attached", "key", key)

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				c.Close(websocket.StatusNormalClosure, "replaced by a newer observer")
				return
			}
			if err := writeProgress(ctx, c, ev); err != nil {
				h.logger.Debug("progress write failed", "key", key, "error", err)
				return
			}
		case <-ctx.Done():
			c.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}

func writeProgress(ctx context.Context, c *websocket.Conn, ev domain.ProgressEvent) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return wsjson.Write(ctx, c, ProgressMessage{
		Type:     "progress",
		Stage:    string(ev.Stage),
		Progress: ev.Percent,
	})
}
