package drive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/ports/driven"
)

// Strategy names, in resolution order
const (
	StrategyAPIMedia       = "api_media"
	StrategyThumbnail      = "thumbnail"
	StrategyLH3            = "lh3"
	StrategyExport         = "export"
	StrategyMetadata       = "metadata"
	StrategyServiceAccount = "service_account"
)

// Default public hosts
const (
	DefaultWebBaseURL = "https://drive.google.com"
	DefaultLH3BaseURL = "https://lh3.googleusercontent.com"
)

var thumbnailSizeSuffix = regexp.MustCompile(`=s\d+(-[a-z0-9-]+)?$`)

// StrategyConfig holds what the image strategies need.
type StrategyConfig struct {
	APIKey      string
	TokenSource TokenSource // Optional: enables the service-account strategy
	Fetcher     *Fetcher
	APIBaseURL  string // default: DefaultAPIBaseURL
	WebBaseURL  string // default: DefaultWebBaseURL
	LH3BaseURL  string // default: DefaultLH3BaseURL
}

func (c StrategyConfig) withDefaults() StrategyConfig {
	if c.Fetcher == nil {
		c.Fetcher = NewFetcher(nil, 0)
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	if c.WebBaseURL == "" {
		c.WebBaseURL = DefaultWebBaseURL
	}
	if c.LH3BaseURL == "" {
		c.LH3BaseURL = DefaultLH3BaseURL
	}
	c.APIBaseURL = strings.TrimSuffix(c.APIBaseURL, "/")
	c.WebBaseURL = strings.TrimSuffix(c.WebBaseURL, "/")
	c.LH3BaseURL = strings.TrimSuffix(c.LH3BaseURL, "/")
	return c
}

// NewStrategies returns the resolution chain in priority order. Strategies
// whose credentials are missing are left out.
func NewStrategies(cfg StrategyConfig) []driven.ImageStrategy {
	cfg = cfg.withDefaults()

	var out []driven.ImageStrategy
	if cfg.APIKey != "" {
		out = append(out, &apiMediaStrategy{cfg: cfg})
	}
	out = append(out,
		&thumbnailStrategy{cfg: cfg},
		&lh3Strategy{cfg: cfg},
		&exportStrategy{cfg: cfg},
	)
	if cfg.APIKey != "" {
		out = append(out, &metadataStrategy{cfg: cfg})
	}
	if cfg.TokenSource != nil {
		out = append(out, &serviceAccountStrategy{cfg: cfg})
	}
	return out
}

// requestedWidth maps the "full size" request onto the default width for
// endpoints that always resize.
func requestedWidth(size int) int {
	if size <= 0 {
		return domain.DefaultImageSize
	}
	return size
}

// firstOf tries each URL in order and returns the first valid image.
func firstOf(ctx context.Context, f *Fetcher, urls []string, opts FetchOptions) (*domain.ImageResult, error) {
	var errs []error
	for _, u := range urls {
		result, err := f.Fetch(ctx, u, opts)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

// apiMediaStrategy downloads the original through the API with a key.
type apiMediaStrategy struct{ cfg StrategyConfig }

func (s *apiMediaStrategy) Name() string { return StrategyAPIMedia }

func (s *apiMediaStrategy) Attempt(ctx context.Context, fileID string, size int) (*domain.ImageResult, error) {
	params := url.Values{}
	params.Set("alt", "media")
	params.Set("supportsAllDrives", "true")
	params.Set("key", s.cfg.APIKey)
	u := s.cfg.APIBaseURL + "/files/" + url.PathEscape(fileID) + "?" + params.Encode()
	return s.cfg.Fetcher.Fetch(ctx, u, FetchOptions{Attempts: 3})
}

// thumbnailStrategy uses the public thumbnail endpoint.
type thumbnailStrategy struct{ cfg StrategyConfig }

func (s *thumbnailStrategy) Name() string { return StrategyThumbnail }

func (s *thumbnailStrategy) Attempt(ctx context.Context, fileID string, size int) (*domain.ImageResult, error) {
	w := strconv.Itoa(requestedWidth(size))
	id := url.QueryEscape(fileID)
	urls := []string{
		s.cfg.WebBaseURL + "/thumbnail?id=" + id + "&sz=w" + w,
		s.cfg.WebBaseURL + "/thumbnail?id=" + id + "&sz=s" + w,
	}
	return firstOf(ctx, s.cfg.Fetcher, urls, FetchOptions{Browser: true, Attempts: 2})
}

// lh3Strategy uses the image CDN.
type lh3Strategy struct{ cfg StrategyConfig }

func (s *lh3Strategy) Name() string { return StrategyLH3 }

func (s *lh3Strategy) Attempt(ctx context.Context, fileID string, size int) (*domain.ImageResult, error) {
	base := s.cfg.LH3BaseURL + "/d/" + url.PathEscape(fileID)
	urls := []string{
		base + "=w" + strconv.Itoa(requestedWidth(size)),
		base,
	}
	return firstOf(ctx, s.cfg.Fetcher, urls, FetchOptions{Browser: true})
}

// exportStrategy uses the legacy uc export links.
type exportStrategy struct{ cfg StrategyConfig }

func (s *exportStrategy) Name() string { return StrategyExport }

func (s *exportStrategy) Attempt(ctx context.Context, fileID string, size int) (*domain.ImageResult, error) {
	id := url.QueryEscape(fileID)
	urls := []string{
		s.cfg.WebBaseURL + "/uc?export=view&id=" + id,
		s.cfg.WebBaseURL + "/uc?export=download&id=" + id,
	}
	return firstOf(ctx, s.cfg.Fetcher, urls, FetchOptions{Browser: true})
}

// metadataStrategy looks up the file's thumbnail and content links.
type metadataStrategy struct{ cfg StrategyConfig }

func (s *metadataStrategy) Name() string { return StrategyMetadata }

func (s *metadataStrategy) Attempt(ctx context.Context, fileID string, size int) (*domain.ImageResult, error) {
	links, err := s.links(ctx, fileID)
	if err != nil {
		return nil, err
	}

	var urls []string
	if links.ThumbnailLink != "" {
		urls = append(urls, thumbnailSizeSuffix.ReplaceAllString(links.ThumbnailLink, "")+"=s"+strconv.Itoa(requestedWidth(size)))
	}
	if links.WebContentLink != "" {
		urls = append(urls, links.WebContentLink)
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("file %s exposes no links: %w", fileID, domain.ErrInvalidImage)
	}
	return firstOf(ctx, s.cfg.Fetcher, urls, FetchOptions{Browser: true})
}

type fileLinks struct {
	ThumbnailLink  string `json:"thumbnailLink"`
	WebContentLink string `json:"webContentLink"`
}

func (s *metadataStrategy) links(ctx context.Context, fileID string) (*fileLinks, error) {
	params := url.Values{}
	params.Set("fields", "thumbnailLink,webContentLink")
	params.Set("supportsAllDrives", "true")
	params.Set("key", s.cfg.APIKey)
	u := s.cfg.APIBaseURL + "/files/" + url.PathEscape(fileID) + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Fetcher.timeout)
	defer cancel()
	resp, err := s.cfg.Fetcher.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("file metadata: %w", redactErr(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file metadata: status %d", resp.StatusCode)
	}

	var links fileLinks
	if err := json.NewDecoder(resp.Body).Decode(&links); err != nil {
		return nil, fmt.Errorf("decode file metadata: %w", err)
	}
	return &links, nil
}

// serviceAccountStrategy downloads the original with a service-account
// bearer token, reaching files shared only with that account.
type serviceAccountStrategy struct{ cfg StrategyConfig }

func (s *serviceAccountStrategy) Name() string { return StrategyServiceAccount }

func (s *serviceAccountStrategy) Attempt(ctx context.Context, fileID string, size int) (*domain.ImageResult, error) {
	token, err := s.cfg.TokenSource.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("service account token: %w", err)
	}

	params := url.Values{}
	params.Set("alt", "media")
	params.Set("supportsAllDrives", "true")
	u := s.cfg.APIBaseURL + "/files/" + url.PathEscape(fileID) + "?" + params.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	return s.cfg.Fetcher.Fetch(ctx, u, FetchOptions{Header: header, Attempts: 2})
}
