package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/ports/driven"
)

// Reconciler mirrors a Drive folder tree into collections and stickers.
// It implements three modes:
//   - FullSync scans the root folder and prunes stale stickers per collection
//   - IncrementalSync replays the Drive change feed from the persisted cursor
//   - webhook-triggered runs are IncrementalSync invoked by WebhookService
//
// All writes are upserts keyed by Drive id, so replays are harmless.
type Reconciler struct {
	drive        driven.DriveClient
	collections  driven.CollectionStore
	stickers     driven.StickerStore
	kv           driven.KeyValueStore
	rootFolderID string
	retry        RetryPolicy
	batchSize    int
	batchPause   time.Duration
	logger       *slog.Logger
}

// ReconcilerConfig holds dependencies for Reconciler.
type ReconcilerConfig struct {
	Drive        driven.DriveClient
	Collections  driven.CollectionStore
	Stickers     driven.StickerStore
	KV           driven.KeyValueStore
	RootFolderID string
	Retry        RetryPolicy   // default: 3 attempts, 500ms base
	BatchSize    int           // changes processed concurrently (default: 10)
	BatchPause   time.Duration // pause between change batches (default: 200ms)
	Logger       *slog.Logger
}

// NewReconciler creates a new Reconciler.
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryPolicy()
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	batchPause := cfg.BatchPause
	if batchPause < 0 {
		batchPause = 0
	} else if batchPause == 0 {
		batchPause = 200 * time.Millisecond
	}

	return &Reconciler{
		drive:        cfg.Drive,
		collections:  cfg.Collections,
		stickers:     cfg.Stickers,
		kv:           cfg.KV,
		rootFolderID: cfg.RootFolderID,
		retry:        retry,
		batchSize:    batchSize,
		batchPause:   batchPause,
		logger:       logger,
	}
}

// FullSync scans the root folder and converges local state onto it.
// A returned error means the run failed as a whole; per-item failures are
// collected in the result instead.
func (r *Reconciler) FullSync(ctx context.Context) (*domain.SyncResult, error) {
	result := &domain.SyncResult{Kind: domain.SyncKindFull}
	if r.drive == nil || r.rootFolderID == "" {
		return result, fmt.Errorf("drive root folder: %w", domain.ErrNotConfigured)
	}

	r.logger.Info("starting full sync", "root_folder_id", r.rootFolderID)

	// Capture the change-feed baseline before scanning so edits made during
	// the scan are replayed by the next incremental sync.
	baseline, err := r.captureBaseline(ctx, result)
	if err != nil {
		return result, err
	}

	folders, err := Retry(ctx, r.retry, "list root folders", func(ctx context.Context) ([]domain.DriveFolder, error) {
		return r.drive.ListFolders(ctx, r.rootFolderID)
	})
	if err != nil {
		return result, err
	}

	if len(folders) == 0 {
		folders = []domain.DriveFolder{{ID: r.rootFolderID, Name: domain.DefaultCollectionName}}
	}

	for i, folder := range folders {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		r.syncFolder(ctx, folder, i, result)
	}

	if baseline != "" {
		if err := r.kv.Set(ctx, domain.CursorKeyChanges, baseline); err != nil {
			result.AddError(fmt.Errorf("persist change cursor: %w", err))
		} else {
			result.Cursor = baseline
		}
	}

	r.logger.Info("full sync completed",
		"collections", len(folders),
		"items_synced", result.ItemsSynced,
		"deleted", result.Deleted,
		"errors", len(result.Errors),
	)
	return result, nil
}

// captureBaseline returns a fresh start token when no cursor exists yet.
// Only configuration errors are fatal; other failures are recorded and the
// scan continues without a baseline.
func (r *Reconciler) captureBaseline(ctx context.Context, result *domain.SyncResult) (string, error) {
	cursor, err := r.kv.Get(ctx, domain.CursorKeyChanges)
	if err == nil && cursor != "" {
		result.Cursor = cursor
		return "", nil
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		result.AddError(fmt.Errorf("load change cursor: %w", err))
		return "", nil
	}

	token, err := Retry(ctx, r.retry, "get start page token", r.drive.GetStartPageToken)
	if errors.Is(err, domain.ErrNotConfigured) {
		return "", err
	}
	if err != nil {
		result.AddError(err)
		return "", nil
	}
	return token, nil
}

// IncrementalSync replays the change feed from the persisted cursor,
// persisting the cursor after every page.
func (r *Reconciler) IncrementalSync(ctx context.Context) (*domain.SyncResult, error) {
	result := &domain.SyncResult{Kind: domain.SyncKindIncremental}
	if r.drive == nil {
		return result, fmt.Errorf("drive client: %w", domain.ErrNotConfigured)
	}

	token, err := r.kv.Get(ctx, domain.CursorKeyChanges)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && token == "") {
		return result, domain.ErrNoBaseline
	}
	if err != nil {
		return result, fmt.Errorf("load change cursor: %w", err)
	}
	result.Cursor = token

	r.logger.Info("starting incremental sync", "cursor", token)

	pages := 0
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		pageToken := token
		page, err := Retry(ctx, r.retry, "list changes", func(ctx context.Context) (*domain.ChangesPage, error) {
			return r.drive.ListChanges(ctx, pageToken)
		})
		if err != nil {
			return result, err
		}
		pages++

		r.processChanges(ctx, page.Changes, result)

		if next := page.ResumeToken(); next != "" && next != token {
			if err := r.kv.Set(ctx, domain.CursorKeyChanges, next); err != nil {
				return result, fmt.Errorf("persist change cursor: %w", err)
			}
			result.Cursor = next
		}

		if page.NextPageToken == "" || page.NextPageToken == token {
			break
		}
		token = page.NextPageToken
	}

	r.logger.Info("incremental sync completed",
		"pages", pages,
		"items_synced", result.ItemsSynced,
		"deleted", result.Deleted,
		"errors", len(result.Errors),
		"cursor", result.Cursor,
	)
	return result, nil
}

// processChanges applies a page of changes in small concurrent batches.
// Folder changes of a batch run before file changes so new folders exist
// before the files inside them are attached.
func (r *Reconciler) processChanges(ctx context.Context, changes []domain.DriveChange, result *domain.SyncResult) {
	changes = latestPerFile(changes)

	var mu sync.Mutex
	record := func(applied, deleted bool, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err != nil:
			result.AddError(err)
		case deleted:
			result.Deleted++
			result.ItemsSynced++
		case applied:
			result.ItemsSynced++
		}
	}

	for start := 0; start < len(changes); start += r.batchSize {
		end := min(start+r.batchSize, len(changes))
		batch := changes[start:end]

		var folders, others []domain.DriveChange
		for _, ch := range batch {
			if ch.File != nil && ch.File.IsFolder() && !ch.IsDeletion() {
				folders = append(folders, ch)
			} else {
				others = append(others, ch)
			}
		}

		for _, phase := range [][]domain.DriveChange{folders, others} {
			var g errgroup.Group
			for _, ch := range phase {
				g.Go(func() error {
					applied, deleted, err := r.applyChange(ctx, ch)
					if err != nil {
						err = fmt.Errorf("change %s: %w", ch.FileID, err)
					}
					record(applied, deleted, err)
					return nil
				})
			}
			_ = g.Wait()
		}

		if end < len(changes) && r.batchPause > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.batchPause):
			}
		}
	}
}

// latestPerFile keeps only the last change for each file id, in order.
func latestPerFile(changes []domain.DriveChange) []domain.DriveChange {
	last := make(map[string]int, len(changes))
	for i, ch := range changes {
		last[ch.FileID] = i
	}
	out := make([]domain.DriveChange, 0, len(last))
	for i, ch := range changes {
		if last[ch.FileID] == i {
			out = append(out, ch)
		}
	}
	return out
}

// applyChange reconciles a single change-feed entry.
func (r *Reconciler) applyChange(ctx context.Context, ch domain.DriveChange) (applied, deleted bool, err error) {
	if ch.IsDeletion() {
		deleted, err := r.deleteByDriveID(ctx, ch.FileID)
		return false, deleted, err
	}

	file := ch.File
	if file == nil {
		return false, false, nil
	}

	switch {
	case file.IsFolder():
		return r.applyFolderChange(ctx, *file)
	case file.IsImage():
		return r.applyImageChange(ctx, *file)
	default:
		return false, false, nil
	}
}

// deleteByDriveID removes the sticker or collection (with its stickers)
// matching a removed or trashed Drive id.
func (r *Reconciler) deleteByDriveID(ctx context.Context, driveID string) (bool, error) {
	sticker, err := r.stickers.GetByDriveFileID(ctx, driveID)
	switch {
	case err == nil:
		if err := r.stickers.Delete(ctx, sticker.ID); err != nil {
			return false, fmt.Errorf("delete sticker: %w", err)
		}
		r.logger.Info("sticker deleted", "file_id", driveID, "filename", sticker.Filename)
		return true, nil
	case !errors.Is(err, domain.ErrNotFound):
		return false, err
	}

	collection, err := r.collections.GetByDriveFolderID(ctx, driveID)
	switch {
	case err == nil:
		n, err := r.stickers.DeleteByCollection(ctx, collection.ID)
		if err != nil {
			return false, fmt.Errorf("delete collection stickers: %w", err)
		}
		if err := r.collections.Delete(ctx, collection.ID); err != nil {
			return false, fmt.Errorf("delete collection: %w", err)
		}
		r.logger.Info("collection deleted", "folder_id", driveID, "name", collection.Name, "stickers", n)
		return true, nil
	case errors.Is(err, domain.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (r *Reconciler) applyFolderChange(ctx context.Context, folder domain.DriveFile) (bool, bool, error) {
	if folder.ID == r.rootFolderID {
		return false, false, nil
	}

	_, err := r.collections.GetByDriveFolderID(ctx, folder.ID)
	known := err == nil
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return false, false, err
	}
	inRoot := slices.Contains(folder.Parents, r.rootFolderID)
	if !known && !inRoot {
		return false, false, nil
	}
	// Moved out of the root: drop it like a file moved out of its folder.
	// Changes without parents are treated as renames.
	if known && !inRoot && len(folder.Parents) > 0 {
		deleted, err := r.deleteByDriveID(ctx, folder.ID)
		return false, deleted, err
	}

	sortOrder, err := r.collections.Count(ctx)
	if err != nil {
		return false, false, err
	}
	if _, err := r.upsertCollection(ctx, domain.DriveFolder{ID: folder.ID, Name: folder.Name}, sortOrder); err != nil {
		return false, false, err
	}
	return true, false, nil
}

func (r *Reconciler) applyImageChange(ctx context.Context, file domain.DriveFile) (bool, bool, error) {
	if len(file.Parents) == 0 {
		return false, false, domain.ErrUnknownParent
	}

	var collection *domain.Collection
	for _, parent := range file.Parents {
		c, err := r.collections.GetByDriveFolderID(ctx, parent)
		if err == nil {
			collection = c
			break
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return false, false, err
		}
	}

	if collection == nil {
		// The file lives outside every synced folder; if it was moved out,
		// drop the local copy.
		deleted, err := r.deleteByDriveID(ctx, file.ID)
		if !deleted && err == nil {
			r.logger.Debug("ignoring change outside synced folders", "file_id", file.ID)
		}
		return false, deleted, err
	}

	written, err := r.upsertSticker(ctx, collection, file)
	return written, false, err
}
