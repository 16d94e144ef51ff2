package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/ports/driven"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/ports/driven/mocks"
)

var pngBytes = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, bytes.Repeat([]byte{0}, 120)...)

func succeed(fileID string, size int) (*domain.ImageResult, error) {
	return &domain.ImageResult{Data: pngBytes, ContentType: "image/png"}, nil
}

func fail(fileID string, size int) (*domain.ImageResult, error) {
	return nil, errors.New("status 403")
}

func reject(fileID string, size int) (*domain.ImageResult, error) {
	return nil, domain.ErrInvalidImage
}

func TestImageProxy_FirstSuccessWins(t *testing.T) {
	a := mocks.NewMockImageStrategy("api_media", fail)
	b := mocks.NewMockImageStrategy("thumbnail", reject)
	c := mocks.NewMockImageStrategy("lh3", succeed)
	d := mocks.NewMockImageStrategy("export", succeed)

	proxy := NewImageProxy(ImageProxyConfig{
		Strategies: []driven.ImageStrategy{a, b, c, d},
		Cache:      mocks.NewMockImageCache(),
	})

	result := proxy.Resolve(context.Background(), "file_1", 400)
	require.False(t, result.Placeholder)
	assert.Equal(t, "lh3", result.Strategy)
	assert.Equal(t, "image/png", result.ContentType)
	assert.Equal(t, 1, a.CallCount())
	assert.Equal(t, 1, b.CallCount())
	assert.Equal(t, 1, c.CallCount())
	assert.Zero(t, d.CallCount())
}

func TestImageProxy_CachesBySize(t *testing.T) {
	s := mocks.NewMockImageStrategy("thumbnail", succeed)
	cache := mocks.NewMockImageCache()
	proxy := NewImageProxy(ImageProxyConfig{Strategies: []driven.ImageStrategy{s}, Cache: cache})

	first := proxy.Resolve(context.Background(), "file_1", 400)
	assert.False(t, first.FromCache)

	second := proxy.Resolve(context.Background(), "file_1", 400)
	assert.True(t, second.FromCache)
	assert.Equal(t, "thumbnail", second.Strategy)
	assert.Equal(t, 1, s.CallCount())

	proxy.Resolve(context.Background(), "file_1", 0)
	assert.Equal(t, 2, s.CallCount(), "different size is a different cache key")
	assert.Equal(t, 2, cache.Len())
}

func TestImageProxy_PlaceholderNotCached(t *testing.T) {
	s := mocks.NewMockImageStrategy("api_media", fail)
	cache := mocks.NewMockImageCache()
	proxy := NewImageProxy(ImageProxyConfig{Strategies: []driven.ImageStrategy{s}, Cache: cache})

	result := proxy.Resolve(context.Background(), "file_1", 400)
	assert.True(t, result.Placeholder)
	assert.Equal(t, "image/svg+xml", result.ContentType)
	assert.Equal(t, StrategyPlaceholder, result.Strategy)
	assert.True(t, bytes.HasPrefix(result.Data, []byte("<svg")))
	assert.Zero(t, cache.Len())

	proxy.Resolve(context.Background(), "file_1", 400)
	assert.Equal(t, 2, s.CallCount(), "placeholder must not short-circuit later requests")
}

func TestImageProxy_MalformedIDYieldsPlaceholder(t *testing.T) {
	s := mocks.NewMockImageStrategy("api_media", succeed)
	proxy := NewImageProxy(ImageProxyConfig{Strategies: []driven.ImageStrategy{s}})

	for _, id := range []string{"", "../etc/passwd", "a b", "id?x=1"} {
		result := proxy.Resolve(context.Background(), id, 0)
		assert.True(t, result.Placeholder, "id %q", id)
	}
	assert.Zero(t, s.CallCount())
}

func TestImageProxy_MirrorsSuccessfulResults(t *testing.T) {
	mirror := mocks.NewMockBlobStore()
	s := mocks.NewMockImageStrategy("api_media", succeed)
	proxy := NewImageProxy(ImageProxyConfig{Strategies: []driven.ImageStrategy{s}, Mirror: mirror})

	proxy.Resolve(context.Background(), "file_1", 0)

	select {
	case key := <-mirror.PutCh:
		assert.Equal(t, "images/file_1/full", key)
	case <-time.After(2 * time.Second):
		t.Fatal("image was not mirrored")
	}
}

func TestImageProxy_MirrorServesWhenDriveFails(t *testing.T) {
	mirror := mocks.NewMockBlobStore()
	require.NoError(t, mirror.Put(context.Background(), MirrorKey("file_1", 400), pngBytes, "application/octet-stream"))
	<-mirror.PutCh

	s := mocks.NewMockImageStrategy("api_media", fail)
	proxy := NewImageProxy(ImageProxyConfig{Strategies: []driven.ImageStrategy{s}, Mirror: mirror})

	result := proxy.Resolve(context.Background(), "file_1", 400)
	require.False(t, result.Placeholder)
	assert.Equal(t, "mirror", result.Strategy)
	assert.Equal(t, "image/png", result.ContentType, "magic bytes override the stored type")

	select {
	case key := <-mirror.PutCh:
		t.Fatalf("mirror hit must not be written back, got put %q", key)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestImageProxy_ClearCache(t *testing.T) {
	cache := mocks.NewMockImageCache()
	proxy := NewImageProxy(ImageProxyConfig{
		Strategies: []driven.ImageStrategy{mocks.NewMockImageStrategy("thumbnail", succeed)},
		Cache:      cache,
	})

	proxy.Resolve(context.Background(), "a", 400)
	proxy.Resolve(context.Background(), "b", 400)
	assert.Equal(t, 2, proxy.CacheLen())
	assert.Equal(t, 2, proxy.ClearCache())
	assert.Zero(t, proxy.CacheLen())
}

func TestPlaceholderSVG(t *testing.T) {
	svg := string(PlaceholderSVG(200))
	assert.Contains(t, svg, `width="200"`)

	fallback := string(PlaceholderSVG(1 << 20))
	assert.Contains(t, fallback, `width="400"`)

	verdict, contentType := domain.InspectImageResponse(PlaceholderSVG(200), "image/svg+xml")
	assert.Equal(t, domain.VerdictAccept, verdict)
	assert.Equal(t, "image/svg+xml", contentType)
}

func TestMirrorKey(t *testing.T) {
	assert.Equal(t, "images/abc/full", MirrorKey("abc", 0))
	assert.Equal(t, "images/abc/1000", MirrorKey("abc", 1000))
}
