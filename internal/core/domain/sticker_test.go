package domain

import "testing"

func TestProxyURL(t *testing.T) {
	if got := ProxyURL("abc", 0); got != "/abc" {
		t.Errorf("unexpected url %q", got)
	}
	if got := ProxyURL("abc", ThumbnailSize); got != "/abc?size=400" {
		t.Errorf("unexpected url %q", got)
	}
	if got := ProxyURL("a b", 0); got != "/a%20b" {
		t.Errorf("expected escaped id, got %q", got)
	}
}

func TestStickerApplyDriveFile(t *testing.T) {
	width := 512
	s := &Sticker{ID: "st-1", CollectionID: "col-1"}
	s.ApplyDriveFile(DriveFile{ID: "f1", Name: "big-hug.png", MimeType: "image/png", Width: &width})

	if s.FileID() != "f1" {
		t.Errorf("expected file id f1, got %q", s.FileID())
	}
	if s.Title != "big hug" {
		t.Errorf("unexpected title %q", s.Title)
	}
	if s.SourceURL != "/f1" || s.ThumbnailURL != "/f1?size=400" {
		t.Errorf("unexpected urls %q %q", s.SourceURL, s.ThumbnailURL)
	}
	if s.Caption != "big hug #big #hug" {
		t.Errorf("unexpected caption %q", s.Caption)
	}
	if s.Width == nil || *s.Width != 512 {
		t.Error("expected width to be copied")
	}
	if s.ID != "st-1" || s.CollectionID != "col-1" {
		t.Error("identity fields must not change")
	}

	s.ApplyDriveFile(DriveFile{ID: "f1", Name: "warm-hug.png", MimeType: "image/png"})
	if s.Title != "warm hug" || s.Filename != "warm-hug.png" {
		t.Errorf("rename not applied: %q %q", s.Title, s.Filename)
	}
}

func TestStickerFileID_Manual(t *testing.T) {
	s := &Sticker{ID: "manual"}
	if s.FileID() != "" {
		t.Errorf("expected empty file id, got %q", s.FileID())
	}
	c := &Collection{ID: "c"}
	if c.FolderID() != "" {
		t.Errorf("expected empty folder id, got %q", c.FolderID())
	}
}
