package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
)

const (
	// DefaultFetchTimeout bounds every outbound image request.
	DefaultFetchTimeout = 20 * time.Second

	maxImageSize = 25 << 20
	browserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

var confirmTokenPattern = regexp.MustCompile(`confirm=([0-9A-Za-z_-]+)`)

// Fetcher downloads candidate image URLs and accepts only genuine image
// bytes. HTML interstitials are inspected for a download-confirmation link,
// which is followed at most once.
type Fetcher struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewFetcher creates a Fetcher. A zero timeout uses DefaultFetchTimeout.
func NewFetcher(httpClient *http.Client, timeout time.Duration) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Fetcher{httpClient: httpClient, timeout: timeout}
}

// FetchOptions tunes a single fetch.
type FetchOptions struct {
	Header   http.Header
	Browser  bool // send browser-like headers
	Attempts int  // total attempts on transport errors and 5xx (default: 1)
}

// Fetch downloads rawURL and validates the body.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, opts FetchOptions) (*domain.ImageResult, error) {
	attempts := max(opts.Attempts, 1)

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 250 * time.Millisecond):
			}
		}

		result, retryable, err := f.fetchOnce(ctx, rawURL, opts, true)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string, opts FetchOptions, followConfirm bool) (*domain.ImageResult, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if opts.Browser {
		req.Header.Set("User-Agent", browserAgent)
		req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Referer", "https://drive.google.com/")
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("fetch %s: %w", redactURL(rawURL), redactErr(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, retryable, fmt.Errorf("fetch %s: status %d", redactURL(rawURL), resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		return nil, true, fmt.Errorf("read %s: %w", redactURL(rawURL), err)
	}

	verdict, contentType := domain.InspectImageResponse(body, resp.Header.Get("Content-Type"))
	switch verdict {
	case domain.VerdictAccept:
		return &domain.ImageResult{Data: body, ContentType: contentType}, false, nil
	case domain.VerdictHTML:
		if !followConfirm {
			return nil, false, fmt.Errorf("fetch %s: html response: %w", redactURL(rawURL), domain.ErrInvalidImage)
		}
		next := ConfirmURL(body, resp.Request.URL)
		if next == "" {
			return nil, false, fmt.Errorf("fetch %s: html without confirm link: %w", redactURL(rawURL), domain.ErrInvalidImage)
		}
		// The confirmation hop itself never follows another interstitial.
		result, _, err := f.fetchOnce(ctx, next, opts, false)
		return result, false, err
	default:
		return nil, false, fmt.Errorf("fetch %s: %w", redactURL(rawURL), domain.ErrInvalidImage)
	}
}

// ConfirmURL extracts the download-confirmation target from a Drive
// interstitial page, resolved against base. It returns "" when none exists.
func ConfirmURL(page []byte, base *url.URL) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return ""
	}

	resolve := func(ref string) string {
		u, err := url.Parse(strings.TrimSpace(ref))
		if err != nil {
			return ""
		}
		if base != nil {
			u = base.ResolveReference(u)
		}
		return u.String()
	}

	// Current interstitials post a GET form with hidden inputs.
	if form := doc.Find("form#download-form").First(); form.Length() > 0 {
		action, _ := form.Attr("action")
		if action != "" {
			params := url.Values{}
			form.Find("input[type=hidden]").Each(func(_ int, in *goquery.Selection) {
				name, _ := in.Attr("name")
				value, _ := in.Attr("value")
				if name != "" {
					params.Set(name, value)
				}
			})
			target := resolve(action)
			if target != "" && len(params) > 0 {
				sep := "?"
				if strings.Contains(target, "?") {
					sep = "&"
				}
				return target + sep + params.Encode()
			}
			return target
		}
	}

	var href string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		h, _ := a.Attr("href")
		if strings.Contains(h, "confirm=") || strings.Contains(h, "export=download") {
			href = h
			return false
		}
		return true
	})
	if href != "" {
		return resolve(href)
	}

	// Fall back to a bare confirm token anywhere in the page.
	if m := confirmTokenPattern.FindSubmatch(page); m != nil && base != nil {
		u := *base
		q := u.Query()
		q.Set("confirm", string(m[1]))
		u.RawQuery = q.Encode()
		return u.String()
	}
	return ""
}
