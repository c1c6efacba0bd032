package storage

import (
	"context"

	"github.com/ordersync/ordersync/internal/models"
)

// QueueStore defines interface for the durable mutation queue. Items are
// appended by EntityStore mutations; this interface covers draining and
// retry bookkeeping.
type QueueStore interface {
	// PeekBatch returns up to n active (non-terminal) items in insertion
	// order without removing them.
	PeekBatch(ctx context.Context, n int) ([]*models.QueueItem, error)

	// Remove deletes an item after a confirmed successful submission.
	// Returns ErrQueueItemNotFound if the item doesn't exist.
	Remove(ctx context.Context, itemID uint64) error

	// MarkFailed records a transient failure: increments AttemptCount and
	// stores the error text. The item stays queued for a later pass.
	MarkFailed(ctx context.Context, itemID uint64, errText string) error

	// MarkTerminal parks an item after a validation/conflict failure.
	// Terminal items are skipped by PeekBatch until Retry is called.
	MarkTerminal(ctx context.Context, itemID uint64, errText string) error

	// Retry reactivates terminal items targeting the given entity and
	// resets the entity back to pending.
	Retry(ctx context.Context, entityID uint64) error

	// Count returns the number of active (non-terminal) items.
	Count(ctx context.Context) (int, error)

	// ItemForEntity returns the queued item targeting the entity, if any.
	ItemForEntity(ctx context.Context, entityID uint64) (*models.QueueItem, error)
}
