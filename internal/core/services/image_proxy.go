package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/ports/driven"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/ports/driving"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/metrics"
)

// Verify interface compliance
var (
	_ driving.ImageService = (*ImageProxy)(nil)
	_ CacheInvalidator     = (*ImageProxy)(nil)
	_ driven.ImageStrategy = (*mirrorStrategy)(nil)
)

// StrategyPlaceholder names results produced when every strategy failed.
const StrategyPlaceholder = "placeholder"

var fileIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,200}$`)

// ImageProxy resolves Drive file ids to image bytes by trying an ordered
// list of strategies, caching the first success.
type ImageProxy struct {
	strategies    []driven.ImageStrategy
	cache         driven.ImageCache
	mirror        driven.BlobStore
	mirrorTimeout time.Duration
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

// ImageProxyConfig holds dependencies for ImageProxy.
type ImageProxyConfig struct {
	Strategies    []driven.ImageStrategy // tried in order
	Cache         driven.ImageCache
	Mirror        driven.BlobStore // Optional: archive of resolved images, tried last
	MirrorTimeout time.Duration    // bound on background mirror writes (default: 30s)
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
}

// NewImageProxy creates a new ImageProxy.
func NewImageProxy(cfg ImageProxyConfig) *ImageProxy {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mirrorTimeout := cfg.MirrorTimeout
	if mirrorTimeout == 0 {
		mirrorTimeout = 30 * time.Second
	}

	strategies := append([]driven.ImageStrategy(nil), cfg.Strategies...)
	if cfg.Mirror != nil {
		strategies = append(strategies, &mirrorStrategy{store: cfg.Mirror})
	}

	return &ImageProxy{
		strategies:    strategies,
		cache:         cfg.Cache,
		mirror:        cfg.Mirror,
		mirrorTimeout: mirrorTimeout,
		metrics:       cfg.Metrics,
		logger:        logger,
	}
}

// Resolve returns the image for fileID at the requested width (0 = full
// size). It never fails; exhaustion yields an uncached placeholder.
func (p *ImageProxy) Resolve(ctx context.Context, fileID string, size int) *domain.ImageResult {
	if !fileIDPattern.MatchString(fileID) {
		p.logger.Debug("rejecting malformed file id", "file_id", fileID)
		return p.placeholder(size)
	}
	if size < 0 {
		size = 0
	}

	key := domain.ImageCacheKey(fileID, size)
	if p.cache != nil {
		if cached, ok := p.cache.Get(key); ok {
			p.metrics.ObserveCache(true)
			hit := *cached
			hit.FromCache = true
			return &hit
		}
		p.metrics.ObserveCache(false)
	}

	for _, strategy := range p.strategies {
		if err := ctx.Err(); err != nil {
			break
		}

		name := strategy.Name()
		result, err := strategy.Attempt(ctx, fileID, size)
		if err != nil || result == nil || len(result.Data) == 0 {
			outcome := "error"
			if err == nil || errors.Is(err, domain.ErrInvalidImage) {
				outcome = "rejected"
			}
			p.metrics.ObserveStrategy(name, outcome)
			p.logger.Debug("image strategy failed", "strategy", name, "file_id", fileID, "size", size, "error", err)
			continue
		}

		p.metrics.ObserveStrategy(name, "success")
		result.Strategy = name
		result.StoredAt = time.Now()
		if p.cache != nil {
			p.cache.Set(key, result)
		}
		if p.mirror != nil && name != strategyMirror {
			p.archive(ctx, fileID, size, result)
		}
		p.logger.Debug("image resolved", "strategy", name, "file_id", fileID, "size", size, "bytes", len(result.Data))
		return result
	}

	p.logger.Warn("all image strategies failed", "file_id", fileID, "size", size)
	return p.placeholder(size)
}

// archive copies a resolved image to the mirror in the background.
func (p *ImageProxy) archive(ctx context.Context, fileID string, size int, result *domain.ImageResult) {
	data := result.Data
	contentType := result.ContentType
	bg := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(bg, p.mirrorTimeout)
		defer cancel()
		if err := p.mirror.Put(ctx, MirrorKey(fileID, size), data, contentType); err != nil {
			p.logger.Warn("failed to mirror image", "file_id", fileID, "error", err)
		}
	}()
}

func (p *ImageProxy) placeholder(size int) *domain.ImageResult {
	p.metrics.IncPlaceholder()
	return &domain.ImageResult{
		Data:        PlaceholderSVG(size),
		ContentType: "image/svg+xml",
		Strategy:    StrategyPlaceholder,
		Placeholder: true,
	}
}

// ClearCache drops every cached image.
func (p *ImageProxy) ClearCache() int {
	if p.cache == nil {
		return 0
	}
	n := p.cache.Clear()
	p.logger.Info("image cache cleared", "entries_removed", n)
	return n
}

// CacheLen reports the number of cached images.
func (p *ImageProxy) CacheLen() int {
	if p.cache == nil {
		return 0
	}
	return p.cache.Len()
}

// MirrorKey is the blob key under which an image is archived.
func MirrorKey(fileID string, size int) string {
	suffix := "full"
	if size > 0 {
		suffix = strconv.Itoa(size)
	}
	return "images/" + fileID + "/" + suffix
}

const strategyMirror = "mirror"

// mirrorStrategy serves previously archived copies.
type mirrorStrategy struct {
	store driven.BlobStore
}

func (m *mirrorStrategy) Name() string {
	return strategyMirror
}

func (m *mirrorStrategy) Attempt(ctx context.Context, fileID string, size int) (*domain.ImageResult, error) {
	data, contentType, err := m.store.Get(ctx, MirrorKey(fileID, size))
	if err != nil {
		return nil, fmt.Errorf("mirror get: %w", err)
	}
	verdict, detected := domain.InspectImageResponse(data, contentType)
	if verdict != domain.VerdictAccept {
		return nil, domain.ErrInvalidImage
	}
	return &domain.ImageResult{Data: data, ContentType: detected}, nil
}

// PlaceholderSVG renders the neutral graphic served when an image cannot be
// resolved. Sizes outside 16..4096 fall back to the default.
func PlaceholderSVG(size int) []byte {
	if size < 16 || size > 4096 {
		size = domain.ThumbnailSize
	}
	s := strconv.Itoa(size)
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="` + s + `" height="` + s + `" viewBox="0 0 100 100">`)
	b.WriteString(`<rect width="100" height="100" rx="12" fill="#f3f4f6"/>`)
	b.WriteString(`<path d="M30 64l12-16 9 11 7-8 12 13z" fill="#d1d5db"/>`)
	b.WriteString(`<circle cx="38" cy="38" r="6" fill="#d1d5db"/>`)
	b.WriteString(`<text x="50" y="84" font-family="sans-serif" font-size="8" text-anchor="middle" fill="#9ca3af">Sticker unavailable</text>`)
	b.WriteString(`</svg>`)
	return []byte(b.String())
}
