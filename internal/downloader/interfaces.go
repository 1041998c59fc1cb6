package downloader

import (
	"context"
	"io"
)

// ProgressFunc receives periodic (bytesReceived, bytesTotal) updates.
// total is 0 when the size is unknown.
type ProgressFunc func(received, total int64)

// Selector picks which stream of a source to fetch.
type Selector struct {
	// EncodingID selects a specific encoding.
	EncodingID string
	// BestAudio selects the highest quality audio-only stream.
	BestAudio bool
}

// VideoEncoding selects the encoding with the given id.
func VideoEncoding(id string) Selector {
	return Selector{EncodingID: id}
}

// BestAudio selects the highest quality audio-only stream.
func BestAudio() Selector {
	return Selector{BestAudio: true}
}

// String returns a short description for logs.
func (s Selector) String() string {
	if s.BestAudio {
		return "best-audio"
	}
	return "encoding:" + s.EncodingID
}

// Fetcher retrieves media streams for a source URL.
type Fetcher interface {
	// Fetch opens the stream chosen by sel. onProgress, if non-nil, is called
	// from the returned reader as bytes arrive and once more at EOF.
	// Caller is responsible for closing the reader.
	Fetch(ctx context.Context, sourceURL string, sel Selector, onProgress ProgressFunc) (io.ReadCloser, error)
}
