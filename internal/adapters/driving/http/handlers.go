package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/swaggo/swag"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/ports/driving"
)

const (
	maxImageSize        = 4096
	immutableCacheCtrl  = "public, max-age=31536000, immutable"
	defaultRunsLimit    = 20
	maxRunsLimit        = 200
	readinessTimeout    = 3 * time.Second
	maxSyncRequestBytes = 1 << 16
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid sync kind"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// ReadyResponse reports the state of each dependency
// @Description Readiness status with per-dependency checks
type ReadyResponse struct {
	Status string            `json:"status" example:"ready"`
	Checks map[string]string `json:"checks,omitempty"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// SyncRequest is the optional body of a sync trigger
// @Description Sync trigger options
type SyncRequest struct {
	Kind            string `json:"kind" example:"incremental"`
	RegisterWebhook bool   `json:"register_webhook"`
	Async           bool   `json:"async"`
}

// CacheClearResponse reports how many images were dropped
// @Description Image cache clear result
type CacheClearResponse struct {
	Status         string `json:"status" example:"cleared"`
	EntriesRemoved int    `json:"entries_removed" example:"12"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings the database and, when configured, the lock backend
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	resp := ReadyResponse{Status: "ready", Checks: map[string]string{}}
	check := func(name string, p Pinger) {
		if p == nil {
			return
		}
		if err := p.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", "dependency", name, "error", err)
			resp.Checks[name] = "unavailable"
			resp.Status = "not_ready"
			return
		}
		resp.Checks[name] = "ok"
	}
	check("database", s.db)
	check("lock", s.lock)

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

func (s *Server) handleSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, "api documentation not registered")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(doc))
}

// Image endpoints

// handleImage godoc
// @Summary      Serve a sticker image
// @Description  Resolves a Drive file id to image bytes. Never fails: unresolvable images are served as an SVG placeholder.
// @Tags         Images
// @Produce      image/png,image/jpeg,image/gif,image/webp,image/svg+xml
// @Param        fileId  path   string  true   "Drive file id"
// @Param        size    query  int     false  "Requested width in pixels"
// @Success      200  {file}  binary
// @Header       200  {string}  X-Image-Strategy  "Strategy that produced the bytes"
// @Router       /{fileId} [get]
// @Router       /api/images/{fileId} [get]
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("fileId")
	size := parseImageSize(r.URL.Query().Get("size"))

	result := s.imageService.Resolve(r.Context(), fileID, size)

	h := w.Header()
	h.Set("Content-Type", result.ContentType)
	h.Set("Content-Length", strconv.Itoa(len(result.Data)))
	h.Set("X-Image-Strategy", result.Strategy)
	h.Set("X-Content-Type-Options", "nosniff")
	switch {
	case result.Placeholder:
		h.Set("Cache-Control", "no-store")
	case result.FromCache:
		h.Set("Cache-Control", immutableCacheCtrl)
		h.Set("X-Cache", "HIT")
	default:
		h.Set("Cache-Control", immutableCacheCtrl)
		h.Set("X-Cache", "MISS")
	}
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(result.Data)
	}
}

// parseImageSize returns 0 (full size) for missing or invalid values.
func parseImageSize(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0
	}
	if n > maxImageSize {
		return maxImageSize
	}
	return n
}

// handleClearImageCache godoc
// @Summary      Clear image cache
// @Description  Drops every cached image (admin only)
// @Tags         Images
// @Produce      json
// @Security     AdminToken
// @Success      200  {object}  CacheClearResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /api/v1/images/cache/clear [post]
func (s *Server) handleClearImageCache(w http.ResponseWriter, r *http.Request) {
	n := s.imageService.ClearCache()
	writeJSON(w, http.StatusOK, CacheClearResponse{Status: "cleared", EntriesRemoved: n})
}

// Sync endpoints

// handleTriggerSync godoc
// @Summary      Trigger a Drive sync
// @Description  Runs a full or incremental sync unless one is running or the last one was too recent
// @Tags         Sync
// @Accept       json
// @Produce      json
// @Security     AdminToken
// @Param        request           body   SyncRequest  false  "Sync options"
// @Param        kind              query  string       false  "full or incremental"
// @Param        register_webhook  query  bool         false  "Register the push channel afterwards"
// @Success      200  {object}  domain.SyncTriggerResult
// @Success      202  {object}  domain.SyncTriggerResult
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  domain.SyncTriggerResult  "No change-feed baseline"
// @Failure      500  {object}  domain.SyncTriggerResult
// @Failure      503  {object}  domain.SyncTriggerResult  "Drive not configured"
// @Router       /api/v1/sync [post]
func (s *Server) handleTriggerSync(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSyncRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind, err := domain.ParseSyncKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid sync kind: must be full or incremental")
		return
	}

	result := s.syncService.Trigger(r.Context(), kind, driving.TriggerOptions{
		Async:           req.Async,
		RegisterWebhook: req.RegisterWebhook,
	})
	writeJSON(w, triggerHTTPStatus(result), result)
}

// decodeSyncRequest merges the optional JSON body over the query string.
func decodeSyncRequest(w http.ResponseWriter, r *http.Request) (SyncRequest, error) {
	q := r.URL.Query()
	req := SyncRequest{
		Kind:            q.Get("kind"),
		RegisterWebhook: parseBool(q.Get("register_webhook")),
		Async:           parseBool(q.Get("async")),
	}
	if r.Body == nil || r.ContentLength == 0 {
		return req, nil
	}

	var body SyncRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSyncRequestBytes))
	if err := dec.Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return req, nil
		}
		return req, err
	}
	if body.Kind != "" {
		req.Kind = body.Kind
	}
	req.RegisterWebhook = req.RegisterWebhook || body.RegisterWebhook
	req.Async = req.Async || body.Async
	return req, nil
}

func parseBool(raw string) bool {
	b, _ := strconv.ParseBool(raw)
	return b
}

// triggerHTTPStatus maps a trigger outcome to a response code. Skipped runs
// are reported, not failed.
func triggerHTTPStatus(result *domain.SyncTriggerResult) int {
	switch result.Status {
	case domain.TriggerStatusStarted:
		return http.StatusAccepted
	case domain.TriggerStatusError:
		switch result.Reason {
		case domain.ReasonNoBaseline:
			return http.StatusConflict
		case domain.ReasonNotConfigured:
			return http.StatusServiceUnavailable
		}
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

// handleSyncStatus godoc
// @Summary      Sync status
// @Description  Returns the last sync time, whether a sync is running and the throttle window
// @Tags         Sync
// @Produce      json
// @Success      200  {object}  domain.SyncStatusReport
// @Router       /api/v1/sync/status [get]
func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.syncService.Status())
}

// handleListSyncRuns godoc
// @Summary      List sync runs
// @Description  Returns the most recent sync run records, newest first (admin only)
// @Tags         Sync
// @Produce      json
// @Security     AdminToken
// @Param        limit  query  int  false  "Maximum number of runs (default 20)"
// @Success      200  {array}   domain.SyncRun
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /api/v1/sync/runs [get]
func (s *Server) handleListSyncRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := s.syncService.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list sync runs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list sync runs")
		return
	}
	if runs == nil {
		runs = []*domain.SyncRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// Webhook endpoints

// handleDriveWebhook godoc
// @Summary      Drive push notification
// @Description  Receives Drive change notifications. Always answers 200 so Drive does not retry or disable the channel.
// @Tags         Webhooks
// @Produce      json
// @Param        X-Goog-Channel-ID      header  string  false  "Channel id"
// @Param        X-Goog-Resource-State  header  string  false  "sync, change, ..."
// @Param        X-Goog-Resource-ID     header  string  false  "Watched resource id"
// @Param        X-Goog-Channel-Token   header  string  false  "Channel verification token"
// @Success      200  {object}  domain.WebhookOutcome
// @Router       /api/v1/webhooks/drive [post]
func (s *Server) handleDriveWebhook(w http.ResponseWriter, r *http.Request) {
	n := domain.WebhookNotification{
		ChannelID:     r.Header.Get("X-Goog-Channel-ID"),
		ResourceState: strings.ToLower(r.Header.Get("X-Goog-Resource-State")),
		ResourceID:    r.Header.Get("X-Goog-Resource-ID"),
		MessageNumber: r.Header.Get("X-Goog-Message-Number"),
		Token:         r.Header.Get("X-Goog-Channel-Token"),
	}

	outcome, err := s.webhookService.HandleNotification(r.Context(), n)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			s.logger.Warn("webhook token mismatch", "channel_id", n.ChannelID)
		} else {
			s.logger.Error("webhook handling failed", "channel_id", n.ChannelID, "error", err)
		}
		writeJSON(w, http.StatusOK, domain.WebhookOutcome{Status: "error"})
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// handleWebhookChallenge godoc
// @Summary      Webhook verification
// @Description  Echoes the challenge parameter for endpoint verification
// @Tags         Webhooks
// @Produce      plain
// @Param        challenge  query  string  false  "Challenge to echo"
// @Success      200  {string}  string
// @Router       /api/v1/webhooks/drive [get]
func (s *Server) handleWebhookChallenge(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(r.URL.Query().Get("challenge")))
}

// handleRegisterWebhook godoc
// @Summary      Register Drive push channel
// @Description  Creates a new change-feed push channel, replacing the previous one (admin only)
// @Tags         Webhooks
// @Produce      json
// @Security     AdminToken
// @Success      200  {object}  domain.WebhookChannel
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /api/v1/webhooks/drive/register [post]
func (s *Server) handleRegisterWebhook(w http.ResponseWriter, r *http.Request) {
	channel, err := s.webhookService.Register(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "webhook callback url not configured")
			return
		}
		s.logger.Error("failed to register webhook", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register webhook")
		return
	}
	writeJSON(w, http.StatusOK, channel)
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
