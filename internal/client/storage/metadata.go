package storage

import "context"

// MetadataStore defines interface for storing client sync metadata
type MetadataStore interface {
	// SaveClock persists the Lamport clock counter
	SaveClock(ctx context.Context, counter int64) error

	// GetClock retrieves the persisted Lamport clock counter.
	// Returns 0 if no counter has been saved yet.
	GetClock(ctx context.Context) (int64, error)

	// SaveNodeID persists the node identifier minted on first start
	SaveNodeID(ctx context.Context, nodeID string) error

	// GetNodeID retrieves the persisted node identifier.
	// Returns empty string if none has been saved.
	GetNodeID(ctx context.Context) (string, error)

	// SaveLastSyncAt persists the wall-clock time of the last successful pass
	SaveLastSyncAt(ctx context.Context, unixNano int64) error

	// GetLastSyncAt retrieves the wall-clock time of the last successful pass
	GetLastSyncAt(ctx context.Context) (int64, error)
}
