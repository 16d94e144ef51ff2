package drive

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/ports/driven"
)

// upstream records request URLs and serves images only where allowed.
type upstream struct {
	mu    sync.Mutex
	seen  []string
	serve func(r *http.Request) bool
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.seen = append(u.seen, r.URL.RequestURI())
	u.mu.Unlock()

	if u.serve != nil && u.serve(r) {
		_, _ = w.Write(testPNG())
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (u *upstream) requests() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.seen...)
}

func newStrategyFixture(t *testing.T, serve func(r *http.Request) bool) (*upstream, StrategyConfig) {
	t.Helper()
	up := &upstream{serve: serve}
	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)
	return up, StrategyConfig{
		APIKey:     "k",
		Fetcher:    NewFetcher(srv.Client(), time.Second),
		APIBaseURL: srv.URL + "/api",
		WebBaseURL: srv.URL + "/web",
		LH3BaseURL: srv.URL + "/lh3",
	}
}

func names(strategies []driven.ImageStrategy) []string {
	out := make([]string, 0, len(strategies))
	for _, s := range strategies {
		out = append(out, s.Name())
	}
	return out
}

func TestNewStrategies_Order(t *testing.T) {
	testCases := []struct {
		name string
		cfg  StrategyConfig
		want []string
	}{
		{
			name: "no credentials",
			cfg:  StrategyConfig{},
			want: []string{StrategyThumbnail, StrategyLH3, StrategyExport},
		},
		{
			name: "api key",
			cfg:  StrategyConfig{APIKey: "k"},
			want: []string{StrategyAPIMedia, StrategyThumbnail, StrategyLH3, StrategyExport, StrategyMetadata},
		},
		{
			name: "api key and service account",
			cfg:  StrategyConfig{APIKey: "k", TokenSource: staticToken("t")},
			want: []string{StrategyAPIMedia, StrategyThumbnail, StrategyLH3, StrategyExport, StrategyMetadata, StrategyServiceAccount},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := names(NewStrategies(tc.cfg))
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("position %d: expected %s, got %s", i, tc.want[i], got[i])
				}
			}
		})
	}
}

func strategyNamed(t *testing.T, cfg StrategyConfig, name string) driven.ImageStrategy {
	t.Helper()
	for _, s := range NewStrategies(cfg) {
		if s.Name() == name {
			return s
		}
	}
	t.Fatalf("strategy %s not configured", name)
	return nil
}

func TestAPIMediaStrategy(t *testing.T) {
	up, cfg := newStrategyFixture(t, func(r *http.Request) bool {
		return r.URL.Path == "/api/files/abc" && r.URL.Query().Get("alt") == "media" && r.URL.Query().Get("key") == "k"
	})

	if _, err := strategyNamed(t, cfg, StrategyAPIMedia).Attempt(context.Background(), "abc", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(up.requests()); n != 1 {
		t.Errorf("expected 1 request, got %d", n)
	}
}

func TestThumbnailStrategy_FallsBackToSquareSize(t *testing.T) {
	up, cfg := newStrategyFixture(t, func(r *http.Request) bool {
		return r.URL.Query().Get("sz") == "s400"
	})

	result, err := strategyNamed(t, cfg, StrategyThumbnail).Attempt(context.Background(), "abc", 400)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ContentType != "image/png" {
		t.Errorf("expected image/png, got %s", result.ContentType)
	}

	reqs := up.requests()
	if len(reqs) != 2 || reqs[0] != "/web/thumbnail?id=abc&sz=w400" {
		t.Errorf("unexpected requests %v", reqs)
	}
}

func TestThumbnailStrategy_DefaultSize(t *testing.T) {
	up, cfg := newStrategyFixture(t, func(r *http.Request) bool { return true })

	if _, err := strategyNamed(t, cfg, StrategyThumbnail).Attempt(context.Background(), "abc", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reqs := up.requests(); reqs[0] != "/web/thumbnail?id=abc&sz=w1000" {
		t.Errorf("expected default width 1000, got %v", reqs)
	}
}

func TestLH3Strategy_FallsBackToUnsized(t *testing.T) {
	up, cfg := newStrategyFixture(t, func(r *http.Request) bool {
		return r.URL.Path == "/lh3/d/abc"
	})

	if _, err := strategyNamed(t, cfg, StrategyLH3).Attempt(context.Background(), "abc", 200); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reqs := up.requests()
	if len(reqs) != 2 || reqs[0] != "/lh3/d/abc=w200" || reqs[1] != "/lh3/d/abc" {
		t.Errorf("unexpected requests %v", reqs)
	}
}

func TestExportStrategy_AllFail(t *testing.T) {
	up, cfg := newStrategyFixture(t, nil)

	_, err := strategyNamed(t, cfg, StrategyExport).Attempt(context.Background(), "abc", 0)
	if err == nil {
		t.Fatal("expected error")
	}
	reqs := up.requests()
	if len(reqs) != 2 || reqs[0] != "/web/uc?export=view&id=abc" || reqs[1] != "/web/uc?export=download&id=abc" {
		t.Errorf("unexpected requests %v", reqs)
	}
}

func TestMetadataStrategy_ResizesThumbnailLink(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/files/abc", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fields") != "thumbnailLink,webContentLink" {
			t.Errorf("unexpected fields %q", r.URL.Query().Get("fields"))
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"thumbnailLink":  srvURL + "/thumb/abc=s220",
			"webContentLink": srvURL + "/content/abc",
		})
	})
	var thumbPath string
	mux.HandleFunc("/thumb/", func(w http.ResponseWriter, r *http.Request) {
		thumbPath = r.URL.Path
		_, _ = w.Write(testPNG())
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	cfg := StrategyConfig{APIKey: "k", APIBaseURL: srv.URL + "/api", Fetcher: NewFetcher(srv.Client(), time.Second)}
	if _, err := strategyNamed(t, cfg, StrategyMetadata).Attempt(context.Background(), "abc", 600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if thumbPath != "/thumb/abc=s600" {
		t.Errorf("expected resized thumbnail link, got %s", thumbPath)
	}
}

func TestMetadataStrategy_NoLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cfg := StrategyConfig{APIKey: "k", APIBaseURL: srv.URL, Fetcher: NewFetcher(srv.Client(), time.Second)}
	_, err := strategyNamed(t, cfg, StrategyMetadata).Attempt(context.Background(), "abc", 0)
	if !errors.Is(err, domain.ErrInvalidImage) {
		t.Errorf("expected ErrInvalidImage, got %v", err)
	}
}

func TestServiceAccountStrategy_SendsBearer(t *testing.T) {
	_, cfg := newStrategyFixture(t, func(r *http.Request) bool {
		return r.Header.Get("Authorization") == "Bearer sa" && !r.URL.Query().Has("key")
	})
	cfg.TokenSource = staticToken("sa")

	if _, err := strategyNamed(t, cfg, StrategyServiceAccount).Attempt(context.Background(), "abc", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStrategies_FollowInterstitialConfirm(t *testing.T) {
	testCases := []string{StrategyAPIMedia, StrategyThumbnail, StrategyLH3, StrategyExport, StrategyServiceAccount}

	for _, name := range testCases {
		t.Run(name, func(t *testing.T) {
			var mu sync.Mutex
			confirmHits := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("confirm") == "t0k3n" {
					mu.Lock()
					confirmHits++
					mu.Unlock()
					_, _ = w.Write(testPNG())
					return
				}
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				_, _ = w.Write([]byte(`<!doctype html><html><body>
<a href="/download?id=abc&amp;confirm=t0k3n">Download anyway</a></body></html>`))
			}))
			defer srv.Close()

			cfg := StrategyConfig{
				APIKey:      "k",
				TokenSource: staticToken("sa"),
				Fetcher:     NewFetcher(srv.Client(), time.Second),
				APIBaseURL:  srv.URL + "/api",
				WebBaseURL:  srv.URL + "/web",
				LH3BaseURL:  srv.URL + "/lh3",
			}

			result, err := strategyNamed(t, cfg, name).Attempt(context.Background(), "abc", 400)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.ContentType != "image/png" {
				t.Errorf("expected image/png, got %s", result.ContentType)
			}
			if confirmHits != 1 {
				t.Errorf("expected one confirmation hop, got %d", confirmHits)
			}
		})
	}
}
