package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSyncInProgress indicates a sync is already running
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrNoBaseline indicates incremental sync was requested before any full
	// sync established a change-feed cursor
	ErrNoBaseline = errors.New("no sync baseline: run a full sync first")

	// ErrNotConfigured indicates a required credential or setting is missing
	ErrNotConfigured = errors.New("not configured")

	// ErrInvalidImage indicates a fetched body is not genuine image bytes
	ErrInvalidImage = errors.New("invalid image response")

	// ErrUnknownParent indicates a changed file's parent folder has no collection
	ErrUnknownParent = errors.New("parent folder not synced")
)
