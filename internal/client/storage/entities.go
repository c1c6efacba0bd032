package storage

import (
	"context"

	"github.com/ordersync/ordersync/internal/models"
)

// EntityFilter ограничивает результат Query. Нулевое значение не фильтрует.
type EntityFilter struct {
	EntityType string            // только записи данного типа
	Status     models.SyncStatus // только записи в данном статусе
	Deleted    bool              // включать локально удаленные записи
}

// EntityStore defines interface for the durable local store of business
// entities. Every mutating call appends (or coalesces) exactly one queue
// item in the same transaction as the entity write.
type EntityStore interface {
	// Create persists a new entity with SyncStatus=pending and enqueues a
	// create queue item atomically. Returns the assigned local ID.
	Create(ctx context.Context, entity *models.Entity) (uint64, error)

	// Update overwrites entity fields, bumps Version, refreshes timestamps
	// and coalesces the queue item atomically.
	// Returns ErrEntityNotFound if the entity doesn't exist.
	Update(ctx context.Context, id uint64, payload []byte, timestamp int64, nodeID string) error

	// Delete marks the entity deleted and rewrites any outstanding queue
	// item to a delete action. A delete superseding an unsynced create is
	// flagged LocalOnly so the coordinator can resolve it without a network
	// round-trip.
	Delete(ctx context.Context, id uint64, timestamp int64, nodeID string) error

	// Get retrieves an entity by local ID.
	// Returns ErrEntityNotFound if entity doesn't exist.
	Get(ctx context.Context, id uint64) (*models.Entity, error)

	// GetByClientID retrieves an entity by its client-generated ID.
	GetByClientID(ctx context.Context, clientID string) (*models.Entity, error)

	// Query returns entities matching the filter in local ID order.
	Query(ctx context.Context, filter EntityFilter) ([]*models.Entity, error)

	// SetSyncStatus updates sync bookkeeping on an entity after a sync pass.
	SetSyncStatus(ctx context.Context, id uint64, status models.SyncStatus, lastError string) error

	// Purge physically deletes an entity record. Used by the retention
	// sweeper and by coalesced create+delete resolution.
	Purge(ctx context.Context, id uint64) error
}
