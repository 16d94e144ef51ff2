package domain

import (
	"fmt"
	"net/url"
	"time"
)

// ThumbnailSize is the pixel width used for sticker thumbnail URLs.
const ThumbnailSize = 400

// Sticker represents one downloadable image
type Sticker struct {
	ID           string    `json:"id"`
	DriveFileID  *string   `json:"drive_file_id,omitempty"` // nil for manually seeded records
	Title        string    `json:"title"`
	Filename     string    `json:"filename"`
	SourceURL    string    `json:"source_url"`
	ThumbnailURL string    `json:"thumbnail_url"`
	Caption      string    `json:"caption"`
	Tags         []string  `json:"tags"`
	CollectionID string    `json:"collection_id"`
	MimeType     string    `json:"mime_type,omitempty"`
	Width        *int      `json:"width,omitempty"`
	Height       *int      `json:"height,omitempty"`
	SizeBytes    *int64    `json:"size_bytes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FileID returns the Drive file id or "" for manually seeded stickers.
func (s *Sticker) FileID() string {
	if s.DriveFileID == nil {
		return ""
	}
	return *s.DriveFileID
}

// ProxyURL builds the proxy-style reference stored on stickers. Stored URLs
// never point at Drive directly so the resolution strategy can change without
// rewriting records.
func ProxyURL(fileID string, size int) string {
	u := "/" + url.PathEscape(fileID)
	if size > 0 {
		u += fmt.Sprintf("?size=%d", size)
	}
	return u
}

// ApplyDriveFile refreshes every Drive-derived field on the sticker. It is used
// both on create and on rename so all derived values stay consistent.
func (s *Sticker) ApplyDriveFile(f DriveFile) {
	id := f.ID
	title, tags := DeriveTitleAndTags(f.Name)

	s.DriveFileID = &id
	s.Filename = f.Name
	s.Title = title
	s.Tags = tags
	s.Caption = SuggestCaption(title, tags)
	s.SourceURL = ProxyURL(f.ID, 0)
	s.ThumbnailURL = ProxyURL(f.ID, ThumbnailSize)
	s.MimeType = f.MimeType
	s.Width = f.Width
	s.Height = f.Height
	s.SizeBytes = f.Size
}
