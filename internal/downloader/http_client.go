package downloader

import (
	"net/http"

	"github.com/iconidentify/ytmux/internal/config"
)

// NewHTTPClient creates the client used for media requests. Streams can be
// long, so there is no overall timeout; only response headers are bounded.
func NewHTTPClient(cfg config.DownloadConfig) *http.Client {
	// Transport for streaming downloads - no overall timeout, but header timeout
	streamTransport := http.DefaultTransport.(*http.Transport).Clone()
	streamTransport.ResponseHeaderTimeout = cfg.HeaderTimeout

	return &http.Client{
		Transport: &userAgentTransport{
			base:      streamTransport,
			userAgent: cfg.UserAgent,
		},
	}
}

// userAgentTransport sets a User-Agent on requests that carry none.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent == "" || req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	// RoundTrippers must not modify the caller's request
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(clone)
}
