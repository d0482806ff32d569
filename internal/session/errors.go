// Package session owns the Document being edited and serialises edits,
// refinements and exports against it.
package session

import "errors"

var (
	// ErrEntryNotFound means no entry with the requested id exists.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrIndexOutOfRange means a positional edit named a slot past the list.
	ErrIndexOutOfRange = errors.New("entry index out of range")
	// ErrRefineInProgress means the entry already has a refinement in flight.
	ErrRefineInProgress = errors.New("refinement already in progress for entry")
	// ErrSummaryInProgress means a summary is already being generated.
	ErrSummaryInProgress = errors.New("summary generation already in progress")
	// ErrExportInProgress means the session is already exporting.
	ErrExportInProgress = errors.New("export already in progress")
	// ErrSessionNotFound means the session does not exist or belongs to someone else.
	ErrSessionNotFound = errors.New("session not found")
)
