package domain

import "time"

// DefaultCollectionName is used when the root folder has no subfolders and
// its images form a single implicit collection.
const DefaultCollectionName = "All Stickers"

// Collection represents a themed group of stickers
type Collection struct {
	ID            string    `json:"id"`
	DriveFolderID *string   `json:"drive_folder_id,omitempty"` // nil until matched to a Drive folder
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description"`
	SortOrder     int       `json:"sort_order"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FolderID returns the Drive folder id or "" when unmatched.
func (c *Collection) FolderID() string {
	if c.DriveFolderID == nil {
		return ""
	}
	return *c.DriveFolderID
}
