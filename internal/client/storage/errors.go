package storage

import "errors"

// Common client storage errors
var (
	// ErrEntityNotFound indicates that entity was not found
	ErrEntityNotFound = errors.New("entity not found")

	// ErrQueueItemNotFound indicates that queue item was not found
	ErrQueueItemNotFound = errors.New("queue item not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
