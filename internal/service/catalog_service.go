package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iconidentify/ytmux/internal/catalog"
	"github.com/iconidentify/ytmux/internal/domain"
)

// CatalogService lists the encodings a source offers.
type CatalogService struct {
	resolver catalog.Resolver
	logger   *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(resolver catalog.Resolver, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		resolver: resolver,
		logger:   logger,
	}
}

// Formats returns the video-only MP4 encodings of sourceURL, highest quality first.
func (s *CatalogService) Formats(ctx context.Context, sourceURL string) ([]domain.EncodingDescriptor, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if !s.resolver.ValidateURL(sourceURL) {
		return nil, fmt.Errorf("%w: invalid url", domain.ErrInvalidRequest)
	}

	encodings, err := s.resolver.VideoEncodings(ctx, sourceURL)
	if err != nil {
		s.logger.Error("catalog lookup failed", "url", sourceURL, "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrResolverFailure, err)
	}
	if len(encodings) == 0 {
		return nil, domain.ErrNoEncodings
	}

	s.logger.Debug("catalog lookup", "url", sourceURL, "encodings", len(encodings))
	return encodings, nil
}
