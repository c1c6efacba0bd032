package storage

import (
	"context"

	"github.com/ordersync/ordersync/internal/models"
)

// EntityStorage defines interface for canonical entity persistence
type EntityStorage interface {
	// SaveEntity creates or updates an entity using LWW logic: the write is
	// applied only if the incoming version is newer than the stored one.
	// Returns true if the entity was saved, false if the existing is newer.
	SaveEntity(ctx context.Context, entity *models.ServerEntity) (bool, error)

	// GetEntity retrieves a single entity by its client-generated ID,
	// including soft-deleted ones. Returns ErrEntityNotFound if absent.
	GetEntity(ctx context.Context, clientID string) (*models.ServerEntity, error)

	// GetEntitiesByType retrieves all non-deleted entities of the given type
	GetEntitiesByType(ctx context.Context, entityType string) ([]*models.ServerEntity, error)

	// DeleteEntity marks entity as deleted (soft delete) with new timestamp.
	// Returns ErrEntityNotFound if entity doesn't exist.
	DeleteEntity(ctx context.Context, clientID string, timestamp int64, nodeID string) error

	// MaxTimestamp returns the largest Lamport timestamp seen across all
	// entities. The sync endpoint reports it back so clients can advance
	// their clocks.
	MaxTimestamp(ctx context.Context) (int64, error)
}

// MutationStorage defines interface for the applied-mutation log backing
// idempotent replay of retried requests
type MutationStorage interface {
	// GetMutation returns the record of a previously applied mutation.
	// Returns ErrMutationNotFound if the mutation was never applied.
	GetMutation(ctx context.Context, mutationID string) (*models.MutationRecord, error)

	// RecordMutation stores the record of an applied mutation
	RecordMutation(ctx context.Context, record *models.MutationRecord) error
}
