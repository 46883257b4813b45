package storage

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the storage layer, matched with errors.Is() at the
// HTTP boundary to pick status codes.
var (
	// ErrNotFound indicates the conversion record does not exist.
	ErrNotFound = errors.New("conversion not found")

	// ErrConflict indicates the record collides with existing state,
	// typically a duplicate discovery source identifier.
	ErrConflict = errors.New("conflict")

	// ErrValidation indicates the record failed validation before write.
	ErrValidation = errors.New("validation error")
)

// WrapIfConflict wraps a database error as ErrConflict if it represents a
// unique constraint violation. SQLite reports these as "UNIQUE constraint
// failed", Postgres as "duplicate key value".
func WrapIfConflict(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE") || strings.Contains(msg, "duplicate") {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
