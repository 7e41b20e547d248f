package databases

import "errors"

var (
	// ErrNotFound is returned when no record matches the requested id
	ErrNotFound = errors.New("not found")
	// ErrDuplicateID is returned when an issue id is already taken. Ids come
	// from a unique source, so this signals a programming error.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrVersionConflict is returned when an update names a version that is
	// no longer current
	ErrVersionConflict = errors.New("version conflict")
	// ErrDuplicateEmail is returned when an admin email is already registered
	ErrDuplicateEmail = errors.New("email already registered")
)
