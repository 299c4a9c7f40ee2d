package services

import "errors"

// Service errors
var (
	// ErrRunInProgress is returned when a feature run is requested while
	// another one is still executing.
	ErrRunInProgress = errors.New("feature run already in progress")
	// ErrNoResult means no feature run has completed yet.
	ErrNoResult = errors.New("no feature run has completed")
	// ErrTooManyEvents rejects batches above the configured limit.
	ErrTooManyEvents = errors.New("too many events")
	// ErrNotConfigured marks an optional collaborator that was not set up.
	ErrNotConfigured = errors.New("service not configured")
)
