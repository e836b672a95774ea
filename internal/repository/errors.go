package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when an insert collides with the store-level
	// no-overlap constraint on reservations.
	ErrConflict = errors.New("conflicting reservation exists")
)
