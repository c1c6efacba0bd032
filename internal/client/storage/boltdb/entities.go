package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/ordersync/ordersync/internal/client/storage"
	"github.com/ordersync/ordersync/internal/models"
)

// itob конвертирует uint64 в big-endian ключ bucket'а
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// Create persists a new entity and enqueues a create queue item in one
// bbolt transaction. A crash can never leave an entity without its queue
// item or a queue item referencing a missing entity.
func (s *Storage) Create(ctx context.Context, entity *models.Entity) (uint64, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	var id uint64

	err := s.db.Update(func(tx *bbolt.Tx) error {
		entities := tx.Bucket(bucketEntities)

		seq, err := entities.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate entity id: %w", err)
		}
		id = seq

		now := time.Now()
		entity.ID = id
		entity.SyncStatus = models.SyncStatusPending
		entity.Version = 1
		entity.CreatedAt = now
		entity.UpdatedAt = now
		entity.LastModifiedAt = now
		entity.Deleted = false

		if err := putEntity(tx, entity); err != nil {
			return err
		}

		return s.enqueueLocked(tx, entity, models.ActionCreate)
	})

	if err != nil {
		return 0, fmt.Errorf("create transaction failed: %w", err)
	}

	return id, nil
}

// Update overwrites the payload, bumps Version, refreshes timestamps and
// coalesces the queue item atomically.
func (s *Storage) Update(ctx context.Context, id uint64, payload []byte, timestamp int64, nodeID string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		entity, err := getEntity(tx, id)
		if err != nil {
			return err
		}
		if entity.Deleted {
			return storage.ErrEntityNotFound
		}

		now := time.Now()
		entity.Payload = payload
		entity.Version++
		entity.Timestamp = timestamp
		entity.NodeID = nodeID
		entity.SyncStatus = models.SyncStatusPending
		entity.UpdatedAt = now
		entity.LastModifiedAt = now
		entity.LastError = ""

		if err := putEntity(tx, entity); err != nil {
			return err
		}

		return s.enqueueLocked(tx, entity, models.ActionUpdate)
	})

	if err != nil {
		if err == storage.ErrEntityNotFound {
			return err
		}
		return fmt.Errorf("update transaction failed: %w", err)
	}

	return nil
}

// Delete marks the entity deleted (soft delete) and rewrites any
// outstanding queue item to a delete action. When the superseded item was
// an unsynced create, the rewritten item is flagged LocalOnly.
func (s *Storage) Delete(ctx context.Context, id uint64, timestamp int64, nodeID string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		entity, err := getEntity(tx, id)
		if err != nil {
			return err
		}
		if entity.Deleted {
			return storage.ErrEntityNotFound
		}

		now := time.Now()
		entity.Deleted = true
		entity.Version++
		entity.Timestamp = timestamp
		entity.NodeID = nodeID
		entity.SyncStatus = models.SyncStatusPending
		entity.UpdatedAt = now
		entity.LastModifiedAt = now

		if err := putEntity(tx, entity); err != nil {
			return err
		}

		return s.enqueueLocked(tx, entity, models.ActionDelete)
	})

	if err != nil {
		if err == storage.ErrEntityNotFound {
			return err
		}
		return fmt.Errorf("delete transaction failed: %w", err)
	}

	return nil
}

// Get retrieves an entity by local ID
func (s *Storage) Get(ctx context.Context, id uint64) (*models.Entity, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var entity *models.Entity

	err := s.db.View(func(tx *bbolt.Tx) error {
		e, err := getEntity(tx, id)
		if err != nil {
			return err
		}
		entity = e
		return nil
	})

	if err != nil {
		return nil, err
	}

	return entity, nil
}

// GetByClientID retrieves an entity by its client-generated ID
func (s *Storage) GetByClientID(ctx context.Context, clientID string) (*models.Entity, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var entity *models.Entity

	err := s.db.View(func(tx *bbolt.Tx) error {
		index := tx.Bucket(bucketClientIDIndex)
		idBytes := index.Get([]byte(clientID))
		if idBytes == nil {
			return storage.ErrEntityNotFound
		}

		e, err := getEntity(tx, binary.BigEndian.Uint64(idBytes))
		if err != nil {
			return err
		}
		entity = e
		return nil
	})

	if err != nil {
		return nil, err
	}

	return entity, nil
}

// Query returns entities matching the filter in local ID order.
// Reads are never blocked by pending sync state: the latest local value is
// always served whether or not it has been acknowledged remotely.
func (s *Storage) Query(ctx context.Context, filter storage.EntityFilter) ([]*models.Entity, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var entities []*models.Entity

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEntities)

		return bucket.ForEach(func(k, v []byte) error {
			var entity models.Entity
			if err := json.Unmarshal(v, &entity); err != nil {
				return fmt.Errorf("failed to unmarshal entity: %w", err)
			}

			if entity.Deleted && !filter.Deleted {
				return nil
			}
			if filter.EntityType != "" && entity.EntityType != filter.EntityType {
				return nil
			}
			if filter.Status != "" && entity.SyncStatus != filter.Status {
				return nil
			}

			entities = append(entities, &entity)
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}

	return entities, nil
}

// SetSyncStatus updates sync bookkeeping on an entity after a sync pass
func (s *Storage) SetSyncStatus(ctx context.Context, id uint64, status models.SyncStatus, lastError string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		entity, err := getEntity(tx, id)
		if err != nil {
			return err
		}

		entity.SyncStatus = status
		entity.LastError = lastError
		entity.LastModifiedAt = time.Now()

		return putEntity(tx, entity)
	})

	if err != nil {
		if err == storage.ErrEntityNotFound {
			return err
		}
		return fmt.Errorf("set sync status transaction failed: %w", err)
	}

	return nil
}

// Purge physically deletes an entity record and its client ID index entry
func (s *Storage) Purge(ctx context.Context, id uint64) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		entity, err := getEntity(tx, id)
		if err != nil {
			return err
		}

		if err := tx.Bucket(bucketClientIDIndex).Delete([]byte(entity.ClientID)); err != nil {
			return fmt.Errorf("failed to delete client id index: %w", err)
		}
		if err := tx.Bucket(bucketEntities).Delete(itob(id)); err != nil {
			return fmt.Errorf("failed to delete entity: %w", err)
		}

		return nil
	})

	if err != nil {
		if err == storage.ErrEntityNotFound {
			return err
		}
		return fmt.Errorf("purge transaction failed: %w", err)
	}

	return nil
}

// getEntity читает и десериализует запись внутри открытой транзакции
func getEntity(tx *bbolt.Tx, id uint64) (*models.Entity, error) {
	data := tx.Bucket(bucketEntities).Get(itob(id))
	if data == nil {
		return nil, storage.ErrEntityNotFound
	}

	entity := &models.Entity{}
	if err := json.Unmarshal(data, entity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
	}

	return entity, nil
}

// putEntity сериализует и сохраняет запись внутри открытой транзакции,
// поддерживая индекс по client ID
func putEntity(tx *bbolt.Tx, entity *models.Entity) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	if err := tx.Bucket(bucketEntities).Put(itob(entity.ID), data); err != nil {
		return fmt.Errorf("failed to save entity: %w", err)
	}

	if err := tx.Bucket(bucketClientIDIndex).Put([]byte(entity.ClientID), itob(entity.ID)); err != nil {
		return fmt.Errorf("failed to save client id index: %w", err)
	}

	return nil
}
