// Package sentinel holds the storage-level error values shared by every store
// implementation, in memory and in Postgres alike.
package sentinel

import "errors"

// Services map these onto coded domain errors; handlers never see them.
var (
	// ErrNotFound means the row does not exist or was purged.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyUsed means a unique key (order number, vendor name, username) is taken.
	ErrAlreadyUsed = errors.New("already used")
	// ErrConflict means the row changed under a conditional update.
	ErrConflict = errors.New("conflict")
)
