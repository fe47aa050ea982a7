package appcatalog

import (
	"errors"
	"fmt"
)

var (
	// ErrAppNotFound is returned when a catalog lookup misses.
	ErrAppNotFound = errors.New("app not found in catalog")

	// ErrConnectionFailed is returned when the SQLite connection cannot be
	// established.
	ErrConnectionFailed = errors.New("database connection failed")

	// ErrMigrationFailed is returned when schema migration fails.
	ErrMigrationFailed = errors.New("database migration failed")

	// ErrInvalidData is returned when a persisted row cannot be decoded.
	ErrInvalidData = errors.New("invalid stored instance data")
)

// StoreError wraps a store failure with the operation and instance it
// concerns.
type StoreError struct {
	Op  string
	ID  string
	Err error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("appcatalog: %s %s: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("appcatalog: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
