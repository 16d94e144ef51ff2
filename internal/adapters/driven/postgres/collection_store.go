package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CollectionStore = (*CollectionStore)(nil)

// uniqueViolation is the PostgreSQL error code for unique constraint failures.
const uniqueViolation = "23505"

// CollectionStore implements driven.CollectionStore using PostgreSQL
type CollectionStore struct {
	db *DB
}

// NewCollectionStore creates a new CollectionStore
func NewCollectionStore(db *DB) *CollectionStore {
	return &CollectionStore{db: db}
}

const collectionColumns = `id, drive_folder_id, name, slug, description, sort_order, created_at, updated_at`

// Save creates or updates a collection
func (s *CollectionStore) Save(ctx context.Context, c *domain.Collection) error {
	query := `
		INSERT INTO collections (` + collectionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			drive_folder_id = EXCLUDED.drive_folder_id,
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			description = EXCLUDED.description,
			sort_order = EXCLUDED.sort_order,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		c.ID,
		NullString(c.DriveFolderID),
		c.Name,
		c.Slug,
		c.Description,
		c.SortOrder,
		c.CreatedAt,
		c.UpdatedAt,
	)
	return mapWriteError(err)
}

// Get retrieves a collection by ID
func (s *CollectionStore) Get(ctx context.Context, id string) (*domain.Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections WHERE id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, id))
}

// GetByDriveFolderID retrieves a collection by its Drive folder ID
func (s *CollectionStore) GetByDriveFolderID(ctx context.Context, folderID string) (*domain.Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections WHERE drive_folder_id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, folderID))
}

// GetBySlug retrieves a collection by slug
func (s *CollectionStore) GetBySlug(ctx context.Context, slug string) (*domain.Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections WHERE slug = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, slug))
}

// List retrieves all collections ordered by sort order
func (s *CollectionStore) List(ctx context.Context) ([]*domain.Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections ORDER BY sort_order, name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collections []*domain.Collection
	for rows.Next() {
		c, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

// Delete deletes a collection; its stickers go with it
func (s *CollectionStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE id = $1`, id)
	return err
}

// Count returns total collection count
func (s *CollectionStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM collections`).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *CollectionStore) scanOne(row *sql.Row) (*domain.Collection, error) {
	c, err := s.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return c, err
}

func (s *CollectionStore) scan(row rowScanner) (*domain.Collection, error) {
	var c domain.Collection
	var folderID sql.NullString
	err := row.Scan(
		&c.ID,
		&folderID,
		&c.Name,
		&c.Slug,
		&c.Description,
		&c.SortOrder,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.DriveFolderID = StringPtr(folderID)
	return &c, nil
}

// mapWriteError turns unique violations into domain.ErrAlreadyExists.
func mapWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", pqErr.Constraint, domain.ErrAlreadyExists)
	}
	return err
}
