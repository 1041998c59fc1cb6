package downloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/kkdai/youtube/v2"

	"github.com/iconidentify/ytmux/internal/catalog"
	"github.com/iconidentify/ytmux/internal/config"
	"github.com/iconidentify/ytmux/internal/domain"
)

// NewYouTubeClient creates a YouTube client that uses httpClient for all requests.
func NewYouTubeClient(httpClient *http.Client) *youtube.Client {
	return &youtube.Client{HTTPClient: httpClient}
}

// YouTubeFetcher implements Fetcher using the YouTube player API.
type YouTubeFetcher struct {
	client *youtube.Client
	cfg    config.DownloadConfig
	logger *slog.Logger
}

// NewYouTubeFetcher creates a new YouTube-backed fetcher.
func NewYouTubeFetcher(client *youtube.Client, cfg config.DownloadConfig, logger *slog.Logger) *YouTubeFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &YouTubeFetcher{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// Fetch implements Fetcher.
func (f *YouTubeFetcher) Fetch(ctx context.Context, sourceURL string, sel Selector, onProgress ProgressFunc) (io.ReadCloser, error) {
	video, err := f.client.GetVideoContext(ctx, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("get video info: %w", err)
	}

	format, err := selectFormat(video.Formats, sel)
	if err != nil {
		return nil, err
	}

	stream, size, err := f.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, fmt.Errorf("open stream itag %d: %w", format.ItagNo, err)
	}
	if size <= 0 {
		size = format.ContentLength
	}

	f.logger.Debug("stream opened",
		"selector", sel.String(),
		"itag", format.ItagNo,
		"mime_type", format.MimeType,
		"size", size,
	)

	return newProgressReader(stream, size, f.cfg.ReadTimeout, onProgress, f.logger, sel.String()), nil
}

func selectFormat(formats youtube.FormatList, sel Selector) (*youtube.Format, error) {
	if sel.BestAudio {
		if f, ok := catalog.BestAudio(formats); ok {
			return f, nil
		}
		return nil, fmt.Errorf("%w: no audio-only stream", domain.ErrEncodingNotFound)
	}
	if f, ok := catalog.FindByID(formats, sel.EncodingID); ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrEncodingNotFound, sel.EncodingID)
}
