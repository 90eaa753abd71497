package tally

import "errors"

var (
	// ErrNoValidItems is returned when a selection holds no regular records.
	ErrNoValidItems = errors.New("no valid items selected")
	// ErrAutoUpdateDisabled is returned when the autoUpdate preference is not startup.
	ErrAutoUpdateDisabled = errors.New("automatic update disabled")
	// ErrAutoUpdateInProgress is returned when another automatic run is active.
	ErrAutoUpdateInProgress = errors.New("automatic update already in progress")
	// ErrNotRunnable is returned when the library or network is unavailable at start.
	ErrNotRunnable = errors.New("automatic update not runnable")
	// ErrMaxRetries is returned when an automatic run gives up on a record.
	ErrMaxRetries = errors.New("max retries reached")
	// ErrOffline marks a connectivity failure observed mid-run.
	ErrOffline = errors.New("no internet connection")
)
