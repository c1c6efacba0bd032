package storage

import "errors"

// Common storage errors
var (
	// ErrEntityNotFound indicates that entity was not found in storage
	ErrEntityNotFound = errors.New("entity not found")

	// ErrMutationNotFound indicates that mutation was not recorded before
	ErrMutationNotFound = errors.New("mutation not found")
)
