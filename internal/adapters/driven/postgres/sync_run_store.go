package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SyncRunStore = (*SyncRunStore)(nil)

// SyncRunStore implements driven.SyncRunStore using PostgreSQL
type SyncRunStore struct {
	db *DB
}

// NewSyncRunStore creates a new SyncRunStore
func NewSyncRunStore(db *DB) *SyncRunStore {
	return &SyncRunStore{db: db}
}

// Create inserts a new run
func (s *SyncRunStore) Create(ctx context.Context, run *domain.SyncRun) error {
	query := `
		INSERT INTO sync_runs (id, kind, status, items_synced, errors, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		string(run.Kind),
		string(run.Status),
		run.ItemsSynced,
		run.Errors,
		run.StartedAt,
		NullTime(run.CompletedAt),
	)
	return mapWriteError(err)
}

// Finish applies the terminal update. Runs that already finished are left
// untouched.
func (s *SyncRunStore) Finish(ctx context.Context, run *domain.SyncRun) error {
	query := `
		UPDATE sync_runs
		SET kind = $2, status = $3, items_synced = $4, errors = $5, completed_at = $6
		WHERE id = $1 AND completed_at IS NULL
	`

	result, err := s.db.ExecContext(ctx, query,
		run.ID,
		string(run.Kind),
		string(run.Status),
		run.ItemsSynced,
		run.Errors,
		NullTime(run.CompletedAt),
	)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("sync run %s: %w", run.ID, domain.ErrNotFound)
	}
	return nil
}

// ListRecent returns the most recent runs, newest first
func (s *SyncRunStore) ListRecent(ctx context.Context, limit int) ([]*domain.SyncRun, error) {
	query := `
		SELECT id, kind, status, items_synced, errors, started_at, completed_at
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.SyncRun
	for rows.Next() {
		var run domain.SyncRun
		var completedAt sql.NullTime
		if err := rows.Scan(
			&run.ID,
			&run.Kind,
			&run.Status,
			&run.ItemsSynced,
			&run.Errors,
			&run.StartedAt,
			&completedAt,
		); err != nil {
			return nil, err
		}
		run.CompletedAt = TimePtr(completedAt)
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}
