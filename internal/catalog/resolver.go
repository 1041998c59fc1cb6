// Package catalog resolves a source URL into the encodings it offers.
package catalog

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/kkdai/youtube/v2"

	"github.com/iconidentify/ytmux/internal/domain"
)

// Resolver validates source URLs and lists their video-only encodings.
type Resolver interface {
	// ValidateURL reports whether raw is a source URL this resolver accepts.
	ValidateURL(raw string) bool

	// VideoEncodings returns the video-only MP4 encodings, largest first.
	VideoEncodings(ctx context.Context, sourceURL string) ([]domain.EncodingDescriptor, error)
}

var videoIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

var youtubeHosts = map[string]bool{
	"youtube.com":              true,
	"www.youtube.com":          true,
	"m.youtube.com":            true,
	"music.youtube.com":        true,
	"youtu.be":                 true,
	"youtube-nocookie.com":     true,
	"www.youtube-nocookie.com": true,
}

// ValidateURL accepts absolute http(s) YouTube URLs with an extractable video id.
func ValidateURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	if !youtubeHosts[strings.ToLower(u.Hostname())] {
		return false
	}
	id, err := youtube.ExtractVideoID(raw)
	return err == nil && videoIDPattern.MatchString(id)
}

// YouTubeResolver resolves encodings through the YouTube player API.
type YouTubeResolver struct {
	client *youtube.Client
}

// NewYouTubeResolver creates a resolver using client.
func NewYouTubeResolver(client *youtube.Client) *YouTubeResolver {
	return &YouTubeResolver{client: client}
}

// ValidateURL implements Resolver.
func (r *YouTubeResolver) ValidateURL(raw string) bool {
	return ValidateURL(raw)
}

// VideoEncodings implements Resolver.
func (r *YouTubeResolver) VideoEncodings(ctx context.Context, sourceURL string) ([]domain.EncodingDescriptor, error) {
	video, err := r.client.GetVideoContext(ctx, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("get video info: %w", err)
	}
	return VideoOnlyMP4(video.Formats), nil
}
