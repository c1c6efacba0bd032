package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/ordersync/ordersync/internal/client/storage"
	"github.com/ordersync/ordersync/internal/models"
)

// enqueueLocked добавляет или коалесцирует элемент очереди для сущности
// внутри уже открытой транзакции. На одну сущность в очереди живет не
// более одного элемента:
//   - update после незасинканного create остается create (payload сущности
//     уже обновлен той же транзакцией);
//   - delete переписывает действие существующего элемента; delete поверх
//     create помечается LocalOnly — сервер об этой сущности не знает.
func (s *Storage) enqueueLocked(tx *bbolt.Tx, entity *models.Entity, action models.QueueAction) error {
	queue := tx.Bucket(bucketQueue)
	index := tx.Bucket(bucketQueueIndex)

	entityKey := itob(entity.ID)

	if itemKey := index.Get(entityKey); itemKey != nil {
		data := queue.Get(itemKey)
		if data == nil {
			return fmt.Errorf("queue index points to missing item for entity %d", entity.ID)
		}

		var item models.QueueItem
		if err := json.Unmarshal(data, &item); err != nil {
			return fmt.Errorf("failed to unmarshal queue item: %w", err)
		}

		if action == models.ActionDelete {
			if item.Action == models.ActionCreate {
				item.LocalOnly = true
			}
			item.Action = models.ActionDelete
		}
		// update поверх create: действие не меняется, отправится итоговый payload

		item.Terminal = false
		item.LastError = ""

		return putQueueItem(queue, &item)
	}

	seq, err := queue.NextSequence()
	if err != nil {
		return fmt.Errorf("failed to allocate queue item id: %w", err)
	}

	item := models.QueueItem{
		ID:         seq,
		EntityType: entity.EntityType,
		EntityID:   entity.ID,
		ClientID:   entity.ClientID,
		Action:     action,
		EnqueuedAt: time.Now(),
	}

	if err := putQueueItem(queue, &item); err != nil {
		return err
	}

	return index.Put(entityKey, itob(item.ID))
}

// PeekBatch returns up to n active items in insertion order
func (s *Storage) PeekBatch(ctx context.Context, n int) ([]*models.QueueItem, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var items []*models.QueueItem

	err := s.db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket(bucketQueue).Cursor()

		for k, v := cursor.First(); k != nil && len(items) < n; k, v = cursor.Next() {
			var item models.QueueItem
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("failed to unmarshal queue item: %w", err)
			}

			if !item.Active() {
				continue
			}
			items = append(items, &item)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to peek queue batch: %w", err)
	}

	return items, nil
}

// Remove deletes an item after a confirmed successful submission
func (s *Storage) Remove(ctx context.Context, itemID uint64) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		queue := tx.Bucket(bucketQueue)

		data := queue.Get(itob(itemID))
		if data == nil {
			return storage.ErrQueueItemNotFound
		}

		var item models.QueueItem
		if err := json.Unmarshal(data, &item); err != nil {
			return fmt.Errorf("failed to unmarshal queue item: %w", err)
		}

		if err := tx.Bucket(bucketQueueIndex).Delete(itob(item.EntityID)); err != nil {
			return fmt.Errorf("failed to delete queue index: %w", err)
		}

		return queue.Delete(itob(itemID))
	})

	if err != nil {
		if err == storage.ErrQueueItemNotFound {
			return err
		}
		return fmt.Errorf("queue remove transaction failed: %w", err)
	}

	return nil
}

// MarkFailed records a transient failure: the item stays queued
func (s *Storage) MarkFailed(ctx context.Context, itemID uint64, errText string) error {
	return s.updateItem(itemID, func(item *models.QueueItem) {
		item.AttemptCount++
		item.LastAttemptAt = time.Now()
		item.LastError = errText
	})
}

// MarkTerminal parks an item until an explicit Retry
func (s *Storage) MarkTerminal(ctx context.Context, itemID uint64, errText string) error {
	return s.updateItem(itemID, func(item *models.QueueItem) {
		item.AttemptCount++
		item.LastAttemptAt = time.Now()
		item.LastError = errText
		item.Terminal = true
	})
}

// Retry reactivates terminal items targeting the entity and resets the
// entity back to pending, in one transaction.
func (s *Storage) Retry(ctx context.Context, entityID uint64) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		queue := tx.Bucket(bucketQueue)

		itemKey := tx.Bucket(bucketQueueIndex).Get(itob(entityID))
		if itemKey == nil {
			return storage.ErrQueueItemNotFound
		}

		data := queue.Get(itemKey)
		if data == nil {
			return storage.ErrQueueItemNotFound
		}

		var item models.QueueItem
		if err := json.Unmarshal(data, &item); err != nil {
			return fmt.Errorf("failed to unmarshal queue item: %w", err)
		}

		item.Terminal = false
		item.LastError = ""
		if err := putQueueItem(queue, &item); err != nil {
			return err
		}

		entity, err := getEntity(tx, entityID)
		if err != nil {
			return err
		}
		entity.SyncStatus = models.SyncStatusPending
		entity.LastError = ""

		return putEntity(tx, entity)
	})

	if err != nil {
		if err == storage.ErrQueueItemNotFound || err == storage.ErrEntityNotFound {
			return err
		}
		return fmt.Errorf("queue retry transaction failed: %w", err)
	}

	return nil
}

// Count returns the number of active (non-terminal) items
func (s *Storage) Count(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	count := 0

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketQueue).ForEach(func(k, v []byte) error {
			var item models.QueueItem
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("failed to unmarshal queue item: %w", err)
			}
			if item.Active() {
				count++
			}
			return nil
		})
	})

	if err != nil {
		return 0, fmt.Errorf("failed to count queue items: %w", err)
	}

	return count, nil
}

// ItemForEntity returns the queued item targeting the entity, if any
func (s *Storage) ItemForEntity(ctx context.Context, entityID uint64) (*models.QueueItem, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var item *models.QueueItem

	err := s.db.View(func(tx *bbolt.Tx) error {
		itemKey := tx.Bucket(bucketQueueIndex).Get(itob(entityID))
		if itemKey == nil {
			return storage.ErrQueueItemNotFound
		}

		data := tx.Bucket(bucketQueue).Get(itemKey)
		if data == nil {
			return storage.ErrQueueItemNotFound
		}

		item = &models.QueueItem{}
		if err := json.Unmarshal(data, item); err != nil {
			return fmt.Errorf("failed to unmarshal queue item: %w", err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return item, nil
}

// updateItem применяет mutate к элементу очереди в одной транзакции
func (s *Storage) updateItem(itemID uint64, mutate func(*models.QueueItem)) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		queue := tx.Bucket(bucketQueue)

		data := queue.Get(itob(itemID))
		if data == nil {
			return storage.ErrQueueItemNotFound
		}

		var item models.QueueItem
		if err := json.Unmarshal(data, &item); err != nil {
			return fmt.Errorf("failed to unmarshal queue item: %w", err)
		}

		mutate(&item)

		return putQueueItem(queue, &item)
	})

	if err != nil {
		if err == storage.ErrQueueItemNotFound {
			return err
		}
		return fmt.Errorf("queue update transaction failed: %w", err)
	}

	return nil
}

// putQueueItem сериализует и сохраняет элемент очереди
func putQueueItem(queue *bbolt.Bucket, item *models.QueueItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal queue item: %w", err)
	}

	if err := queue.Put(itob(item.ID), data); err != nil {
		return fmt.Errorf("failed to save queue item: %w", err)
	}

	return nil
}
