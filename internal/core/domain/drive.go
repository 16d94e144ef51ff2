package domain

import (
	"strings"
	"time"
)

// Drive MIME types
const (
	MimeTypeFolder = "application/vnd.google-apps.folder"
)

// DriveFolder is a folder-typed child of a Drive folder
type DriveFolder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DriveFile is an image-typed child of a Drive folder
type DriveFile struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType"`
	Parents  []string `json:"parents,omitempty"`
	Trashed  bool     `json:"trashed,omitempty"`
	Size     *int64   `json:"size,omitempty"`
	Width    *int     `json:"width,omitempty"`
	Height   *int     `json:"height,omitempty"`
}

// IsFolder reports whether the entry is a Drive folder.
func (f DriveFile) IsFolder() bool {
	return f.MimeType == MimeTypeFolder
}

// IsImage reports whether the entry is image-typed.
func (f DriveFile) IsImage() bool {
	return strings.HasPrefix(f.MimeType, "image/")
}

// DriveChange is one entry of the Drive change feed
type DriveChange struct {
	FileID  string     `json:"fileId"`
	Removed bool       `json:"removed"`
	File    *DriveFile `json:"file,omitempty"` // nil when removed
}

// IsDeletion reports whether the change removes the entity locally.
// Removed and trashed are both treated as deletion triggers.
func (c DriveChange) IsDeletion() bool {
	return c.Removed || (c.File != nil && c.File.Trashed)
}

// ChangesPage is one page of the change feed.
// Exactly one of NextPageToken / NewStartPageToken is normally set:
// NextPageToken means more pages follow, NewStartPageToken ends the feed.
type ChangesPage struct {
	Changes           []DriveChange `json:"changes"`
	NextPageToken     string        `json:"nextPageToken,omitempty"`
	NewStartPageToken string        `json:"newStartPageToken,omitempty"`
}

// ResumeToken returns the token to persist after processing this page.
func (p *ChangesPage) ResumeToken() string {
	if p.NextPageToken != "" {
		return p.NextPageToken
	}
	return p.NewStartPageToken
}

// WatchRequest asks Drive to push change notifications to a callback
type WatchRequest struct {
	ChannelID   string
	CallbackURL string
	Token       string
	PageToken   string
	TTL         time.Duration
}

// WebhookChannel is a registered push-notification channel
type WebhookChannel struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resource_id"`
	Expiration time.Time `json:"expiration"`
}

// WebhookNotification carries the provider headers of a push notification
type WebhookNotification struct {
	ChannelID     string
	ResourceState string
	ResourceID    string
	MessageNumber string
	Token         string
}

// Resource states sent by Drive push notifications
const (
	ResourceStateSync   = "sync"
	ResourceStateChange = "change"
)

// WebhookOutcome is the acknowledgement returned for a push notification
type WebhookOutcome struct {
	Status string             `json:"status"`
	Sync   *SyncTriggerResult `json:"sync,omitempty"`
}
