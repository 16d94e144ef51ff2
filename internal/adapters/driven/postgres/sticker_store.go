package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.StickerStore = (*StickerStore)(nil)

// StickerStore implements driven.StickerStore using PostgreSQL
type StickerStore struct {
	db *DB
}

// NewStickerStore creates a new StickerStore
func NewStickerStore(db *DB) *StickerStore {
	return &StickerStore{db: db}
}

const stickerColumns = `id, drive_file_id, title, filename, source_url, thumbnail_url, caption, tags,
	collection_id, mime_type, width, height, size_bytes, created_at, updated_at`

// Save creates or updates a sticker
func (s *StickerStore) Save(ctx context.Context, st *domain.Sticker) error {
	query := `
		INSERT INTO stickers (` + stickerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			drive_file_id = EXCLUDED.drive_file_id,
			title = EXCLUDED.title,
			filename = EXCLUDED.filename,
			source_url = EXCLUDED.source_url,
			thumbnail_url = EXCLUDED.thumbnail_url,
			caption = EXCLUDED.caption,
			tags = EXCLUDED.tags,
			collection_id = EXCLUDED.collection_id,
			mime_type = EXCLUDED.mime_type,
			width = EXCLUDED.width,
			height = EXCLUDED.height,
			size_bytes = EXCLUDED.size_bytes,
			updated_at = EXCLUDED.updated_at
	`

	tags := st.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err := s.db.ExecContext(ctx, query,
		st.ID,
		NullString(st.DriveFileID),
		st.Title,
		st.Filename,
		st.SourceURL,
		st.ThumbnailURL,
		st.Caption,
		pq.Array(tags),
		st.CollectionID,
		st.MimeType,
		NullInt(st.Width),
		NullInt(st.Height),
		NullInt64(st.SizeBytes),
		st.CreatedAt,
		st.UpdatedAt,
	)
	return mapWriteError(err)
}

// Get retrieves a sticker by ID
func (s *StickerStore) Get(ctx context.Context, id string) (*domain.Sticker, error) {
	query := `SELECT ` + stickerColumns + ` FROM stickers WHERE id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, id))
}

// GetByDriveFileID retrieves a sticker by its Drive file ID
func (s *StickerStore) GetByDriveFileID(ctx context.Context, fileID string) (*domain.Sticker, error) {
	query := `SELECT ` + stickerColumns + ` FROM stickers WHERE drive_file_id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, fileID))
}

// ListByCollection retrieves all stickers of a collection
func (s *StickerStore) ListByCollection(ctx context.Context, collectionID string) ([]*domain.Sticker, error) {
	query := `SELECT ` + stickerColumns + ` FROM stickers WHERE collection_id = $1 ORDER BY title, id`

	rows, err := s.db.QueryContext(ctx, query, collectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stickers []*domain.Sticker
	for rows.Next() {
		st, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		stickers = append(stickers, st)
	}
	return stickers, rows.Err()
}

// Delete deletes a sticker
func (s *StickerStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM stickers WHERE id = $1`, id)
	return err
}

// DeleteBatch deletes multiple stickers by ID
func (s *StickerStore) DeleteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM stickers WHERE id = ANY($1)`, pq.Array(ids))
	return err
}

// DeleteByCollection deletes all stickers of a collection
func (s *StickerStore) DeleteByCollection(ctx context.Context, collectionID string) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM stickers WHERE collection_id = $1`, collectionID)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Count returns total sticker count
func (s *StickerStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stickers`).Scan(&count)
	return count, err
}

func (s *StickerStore) scanOne(row *sql.Row) (*domain.Sticker, error) {
	st, err := s.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return st, err
}

func (s *StickerStore) scan(row rowScanner) (*domain.Sticker, error) {
	var st domain.Sticker
	var fileID sql.NullString
	var width, height, size sql.NullInt64
	var tags []string

	err := row.Scan(
		&st.ID,
		&fileID,
		&st.Title,
		&st.Filename,
		&st.SourceURL,
		&st.ThumbnailURL,
		&st.Caption,
		pq.Array(&tags),
		&st.CollectionID,
		&st.MimeType,
		&width,
		&height,
		&size,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	st.DriveFileID = StringPtr(fileID)
	st.Tags = tags
	st.Width = IntPtr(width)
	st.Height = IntPtr(height)
	st.SizeBytes = Int64Ptr(size)
	return &st, nil
}
