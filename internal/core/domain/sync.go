package domain

import (
	"strings"
	"time"
)

// SyncStatus represents the state of a recorded sync run
type SyncStatus string

const (
	SyncStatusStarted             SyncStatus = "started"
	SyncStatusCompleted           SyncStatus = "completed"
	SyncStatusCompletedWithErrors SyncStatus = "completed_with_errors"
	SyncStatusFailed              SyncStatus = "failed"
)

// SyncKind identifies which reconciliation mode ran
type SyncKind string

const (
	SyncKindFull        SyncKind = "full"
	SyncKindIncremental SyncKind = "incremental"
)

// ParseSyncKind parses a kind string, defaulting to full.
func ParseSyncKind(s string) (SyncKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(SyncKindFull):
		return SyncKindFull, nil
	case string(SyncKindIncremental):
		return SyncKindIncremental, nil
	default:
		return "", ErrInvalidInput
	}
}

// SyncRun is the audit record of one sync attempt.
// It is append-only except for a single terminal update.
type SyncRun struct {
	ID          string     `json:"id"`
	Kind        SyncKind   `json:"kind"`
	Status      SyncStatus `json:"status"`
	ItemsSynced int        `json:"items_synced"`
	Errors      string     `json:"errors,omitempty"` // newline-joined
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Finish applies the terminal update.
func (r *SyncRun) Finish(result *SyncResult, runErr error) {
	now := time.Now()
	r.CompletedAt = &now
	if result != nil {
		r.ItemsSynced = result.ItemsSynced
	}
	switch {
	case runErr != nil:
		r.Status = SyncStatusFailed
		var msgs []string
		if result != nil {
			msgs = append(msgs, result.Errors...)
		}
		msgs = append(msgs, runErr.Error())
		r.Errors = strings.Join(msgs, "\n")
	case result != nil && len(result.Errors) > 0:
		r.Status = SyncStatusCompletedWithErrors
		r.Errors = strings.Join(result.Errors, "\n")
	default:
		r.Status = SyncStatusCompleted
	}
}

// SyncResult is what a reconciliation pass reports back
type SyncResult struct {
	Kind        SyncKind `json:"kind"`
	ItemsSynced int      `json:"items_synced"`
	Deleted     int      `json:"deleted"`
	Errors      []string `json:"errors,omitempty"`
	Cursor      string   `json:"cursor,omitempty"`
}

// AddError appends a per-item failure; the run continues.
func (r *SyncResult) AddError(err error) {
	r.Errors = append(r.Errors, err.Error())
}

// TriggerStatus is the outcome reported by the sync trigger endpoint
type TriggerStatus string

const (
	TriggerStatusStarted        TriggerStatus = "started"
	TriggerStatusAlreadySyncing TriggerStatus = "already_syncing"
	TriggerStatusThrottled      TriggerStatus = "throttled"
	TriggerStatusSynced         TriggerStatus = "synced"
	TriggerStatusError          TriggerStatus = "error"
)

// SyncTriggerResult is the structured response of a sync trigger
type SyncTriggerResult struct {
	Status      TriggerStatus `json:"status"`
	Kind        SyncKind      `json:"kind,omitempty"`
	ItemsSynced int           `json:"itemsSynced,omitempty"`
	Errors      []string      `json:"errors,omitempty"`
	NextSyncIn  int           `json:"nextSyncIn,omitempty"` // seconds
	Message     string        `json:"message,omitempty"`
	Reason      string        `json:"reason,omitempty"`
}

// Machine-readable reasons attached to error trigger results
const (
	ReasonNoBaseline    = "no_baseline"
	ReasonNotConfigured = "not_configured"
	ReasonLockBusy      = "lock_busy"
)

// SyncStatusReport answers the status variant of the trigger endpoint
type SyncStatusReport struct {
	LastSync        *time.Time `json:"lastSync"`
	IsSyncing       bool       `json:"isSyncing"`
	ThrottleSeconds int        `json:"throttleSeconds"`
}

// Well-known key-value store keys
const (
	CursorKeyChanges  = "drive_changes_page_token"
	KeyWebhookChannel = "drive_webhook_channel"
)
