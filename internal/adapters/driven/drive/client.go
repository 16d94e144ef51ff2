package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DriveClient = (*Client)(nil)

// DefaultAPIBaseURL is the Drive v3 REST endpoint.
const DefaultAPIBaseURL = "https://www.googleapis.com/drive/v3"

const (
	fileFields   = "id,name,mimeType,parents,trashed,size,imageMediaMetadata(width,height)"
	maxMediaSize = 50 << 20
)

// TokenSource yields OAuth2 bearer tokens.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client provides Drive v3 API operations over plain REST.
// Requests authenticate with a bearer token when a TokenSource is set and
// otherwise with the API key.
type Client struct {
	apiKey     string
	tokens     TokenSource
	httpClient *http.Client
	baseURL    string
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

// ClientConfig holds configuration for Client.
type ClientConfig struct {
	APIKey      string
	TokenSource TokenSource // Optional: service-account credentials
	BaseURL     string      // default: DefaultAPIBaseURL
	HTTPClient  *http.Client
	MaxRetries  int           // retries on 429/5xx (default: 3)
	RetryDelay  time.Duration // linear backoff unit (default: 1s)
	Logger      *slog.Logger
}

// NewClient creates a new Drive API client.
func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}

	retryDelay := cfg.RetryDelay
	if retryDelay == 0 {
		retryDelay = time.Second
	}

	return &Client{
		apiKey:     cfg.APIKey,
		tokens:     cfg.TokenSource,
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// apiFile is a file resource as returned by the API. Sizes arrive as strings.
type apiFile struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	MimeType           string   `json:"mimeType"`
	Parents            []string `json:"parents"`
	Trashed            bool     `json:"trashed"`
	Size               string   `json:"size"`
	ImageMediaMetadata *struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"imageMediaMetadata"`
}

func (f apiFile) toDomain() domain.DriveFile {
	file := domain.DriveFile{
		ID:       f.ID,
		Name:     f.Name,
		MimeType: f.MimeType,
		Parents:  f.Parents,
		Trashed:  f.Trashed,
	}
	if n, err := strconv.ParseInt(f.Size, 10, 64); err == nil {
		file.Size = &n
	}
	if m := f.ImageMediaMetadata; m != nil && m.Width > 0 && m.Height > 0 {
		w, h := m.Width, m.Height
		file.Width = &w
		file.Height = &h
	}
	return file
}

type fileList struct {
	Files         []apiFile `json:"files"`
	NextPageToken string    `json:"nextPageToken"`
}

// ListFolders lists non-trashed folders directly under parentID.
func (c *Client) ListFolders(ctx context.Context, parentID string) ([]domain.DriveFolder, error) {
	q := fmt.Sprintf("'%s' in parents and mimeType = '%s' and trashed = false", escapeQuery(parentID), domain.MimeTypeFolder)
	files, err := c.listAll(ctx, q, "nextPageToken,files(id,name)")
	if err != nil {
		return nil, fmt.Errorf("list folders of %s: %w", parentID, err)
	}

	folders := make([]domain.DriveFolder, 0, len(files))
	for _, f := range files {
		folders = append(folders, domain.DriveFolder{ID: f.ID, Name: f.Name})
	}
	return folders, nil
}

// ListFiles lists non-trashed image files directly under folderID.
func (c *Client) ListFiles(ctx context.Context, folderID string) ([]domain.DriveFile, error) {
	q := fmt.Sprintf("'%s' in parents and mimeType contains 'image/' and trashed = false", escapeQuery(folderID))
	files, err := c.listAll(ctx, q, "nextPageToken,files("+fileFields+")")
	if err != nil {
		return nil, fmt.Errorf("list files of %s: %w", folderID, err)
	}

	out := make([]domain.DriveFile, 0, len(files))
	for _, f := range files {
		out = append(out, f.toDomain())
	}
	return out, nil
}

// listAll follows nextPageToken until the listing is exhausted.
func (c *Client) listAll(ctx context.Context, q, fields string) ([]apiFile, error) {
	var all []apiFile
	pageToken := ""
	for {
		params := url.Values{}
		params.Set("q", q)
		params.Set("fields", fields)
		params.Set("pageSize", "1000")
		params.Set("orderBy", "name")
		params.Set("supportsAllDrives", "true")
		params.Set("includeItemsFromAllDrives", "true")
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var page fileList
		if err := c.getJSON(ctx, "/files", params, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Files...)

		if page.NextPageToken == "" || page.NextPageToken == pageToken {
			return all, nil
		}
		pageToken = page.NextPageToken
	}
}

// FetchBytes downloads the raw content of a file.
func (c *Client) FetchBytes(ctx context.Context, fileID string) ([]byte, error) {
	params := url.Values{}
	params.Set("alt", "media")
	params.Set("supportsAllDrives", "true")

	resp, err := c.doRequest(ctx, http.MethodGet, "/files/"+url.PathEscape(fileID), params, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaSize))
	if err != nil {
		return nil, fmt.Errorf("read media: %w", err)
	}
	return data, nil
}

// GetStartPageToken returns the current change-feed position.
func (c *Client) GetStartPageToken(ctx context.Context) (string, error) {
	params := url.Values{}
	params.Set("supportsAllDrives", "true")

	var out struct {
		StartPageToken string `json:"startPageToken"`
	}
	if err := c.getJSON(ctx, "/changes/startPageToken", params, &out); err != nil {
		return "", fmt.Errorf("get start page token: %w", err)
	}
	if out.StartPageToken == "" {
		return "", fmt.Errorf("get start page token: empty token")
	}
	return out.StartPageToken, nil
}

// ListChanges returns one page of the change feed.
func (c *Client) ListChanges(ctx context.Context, token string) (*domain.ChangesPage, error) {
	params := url.Values{}
	params.Set("pageToken", token)
	params.Set("pageSize", "100")
	params.Set("includeRemoved", "true")
	params.Set("supportsAllDrives", "true")
	params.Set("includeItemsFromAllDrives", "true")
	params.Set("fields", "nextPageToken,newStartPageToken,changes(fileId,removed,file("+fileFields+"))")

	var out struct {
		Changes []struct {
			FileID  string   `json:"fileId"`
			Removed bool     `json:"removed"`
			File    *apiFile `json:"file"`
		} `json:"changes"`
		NextPageToken     string `json:"nextPageToken"`
		NewStartPageToken string `json:"newStartPageToken"`
	}
	if err := c.getJSON(ctx, "/changes", params, &out); err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}

	page := &domain.ChangesPage{
		Changes:           make([]domain.DriveChange, 0, len(out.Changes)),
		NextPageToken:     out.NextPageToken,
		NewStartPageToken: out.NewStartPageToken,
	}
	for _, ch := range out.Changes {
		change := domain.DriveChange{FileID: ch.FileID, Removed: ch.Removed}
		if ch.File != nil && !ch.Removed {
			f := ch.File.toDomain()
			change.File = &f
		}
		page.Changes = append(page.Changes, change)
	}
	return page, nil
}

// Watch registers a web_hook channel on the change feed.
func (c *Client) Watch(ctx context.Context, req domain.WatchRequest) (*domain.WebhookChannel, error) {
	body := map[string]any{
		"id":      req.ChannelID,
		"type":    "web_hook",
		"address": req.CallbackURL,
	}
	if req.Token != "" {
		body["token"] = req.Token
	}
	if req.TTL > 0 {
		body["expiration"] = strconv.FormatInt(time.Now().Add(req.TTL).UnixMilli(), 10)
	}

	params := url.Values{}
	params.Set("pageToken", req.PageToken)
	params.Set("supportsAllDrives", "true")
	params.Set("includeItemsFromAllDrives", "true")

	var out struct {
		ID         string `json:"id"`
		ResourceID string `json:"resourceId"`
		Expiration string `json:"expiration"`
	}
	if err := c.postJSON(ctx, "/changes/watch", params, body, &out); err != nil {
		return nil, fmt.Errorf("watch changes: %w", err)
	}

	channel := &domain.WebhookChannel{ID: out.ID, ResourceID: out.ResourceID}
	if ms, err := strconv.ParseInt(out.Expiration, 10, 64); err == nil {
		channel.Expiration = time.UnixMilli(ms).UTC()
	}
	return channel, nil
}

// StopChannel stops a previously registered channel.
func (c *Client) StopChannel(ctx context.Context, channelID, resourceID string) error {
	body := map[string]string{"id": channelID, "resourceId": resourceID}
	if err := c.postJSON(ctx, "/channels/stop", nil, body, nil); err != nil {
		return fmt.Errorf("stop channel %s: %w", channelID, err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	resp, err := c.doRequest(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, params url.Values, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, path, params, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// doRequest performs an authenticated request, retrying 429 and 5xx
// responses with linear backoff.
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, body []byte) (*http.Response, error) {
	if params == nil {
		params = url.Values{}
	}

	var bearer string
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("get access token: %w", err)
		}
		bearer = token
	} else if c.apiKey != "" {
		params.Set("key", c.apiKey)
	} else {
		return nil, fmt.Errorf("drive credentials: %w", domain.ErrNotConfigured)
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var resp *http.Response
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}

		resp, err = c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("do request: %w", redactErr(err))
		}

		// Success or non-retryable error
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
			break
		}
		if attempt == c.maxRetries {
			break
		}

		c.logger.Debug("drive api retry", "path", path, "status", resp.StatusCode, "attempt", attempt+1)
		resp.Body.Close()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * c.retryDelay):
		}
	}

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("drive API %s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("drive API error %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	return resp, nil
}

// escapeQuery escapes a value for use inside a single-quoted Drive query.
func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

// redactErr strips API keys from url.Error messages.
func redactErr(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	cp := *uerr
	cp.URL = redactURL(uerr.URL)
	return &cp
}

// redactURL replaces the key query parameter.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has("key") {
		q.Set("key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
