package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/ordersync/ordersync/internal/client/storage"
)

const (
	keyClock      = "lamport_clock"
	keyNodeID     = "node_id"
	keyLastSyncAt = "last_sync_at"
)

// SaveClock persists the Lamport clock counter
func (s *Storage) SaveClock(ctx context.Context, counter int64) error {
	return s.putInt64(keyClock, counter)
}

// GetClock retrieves the persisted Lamport clock counter.
// Returns 0 if no counter has been saved yet.
func (s *Storage) GetClock(ctx context.Context) (int64, error) {
	return s.getInt64(keyClock)
}

// SaveNodeID persists the node identifier minted on first start
func (s *Storage) SaveNodeID(ctx context.Context, nodeID string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketMetadata).Put([]byte(keyNodeID), []byte(nodeID)); err != nil {
			return fmt.Errorf("failed to save node id: %w", err)
		}
		return nil
	})
}

// GetNodeID retrieves the persisted node identifier.
// Returns empty string if none has been saved.
func (s *Storage) GetNodeID(ctx context.Context) (string, error) {
	if s.db == nil {
		return "", storage.ErrStorageClosed
	}

	var nodeID string

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMetadata).Get([]byte(keyNodeID))
		if data != nil {
			nodeID = string(data)
		}
		return nil
	})

	if err != nil {
		return "", fmt.Errorf("failed to get node id: %w", err)
	}

	return nodeID, nil
}

// SaveLastSyncAt persists the wall-clock time of the last successful pass
func (s *Storage) SaveLastSyncAt(ctx context.Context, unixNano int64) error {
	return s.putInt64(keyLastSyncAt, unixNano)
}

// GetLastSyncAt retrieves the wall-clock time of the last successful pass
func (s *Storage) GetLastSyncAt(ctx context.Context) (int64, error) {
	return s.getInt64(keyLastSyncAt)
}

// putInt64 сохраняет int64 значение в metadata bucket
func (s *Storage) putInt64(key string, v int64) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(v))

		if err := tx.Bucket(bucketMetadata).Put([]byte(key), buf); err != nil {
			return fmt.Errorf("failed to save %s: %w", key, err)
		}
		return nil
	})
}

// getInt64 читает int64 значение из metadata bucket, 0 если ключа нет
func (s *Storage) getInt64(key string) (int64, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	var v int64

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMetadata).Get([]byte(key))
		if data == nil {
			return nil
		}
		v = int64(binary.BigEndian.Uint64(data))
		return nil
	})

	if err != nil {
		return 0, fmt.Errorf("failed to get %s: %w", key, err)
	}

	return v, nil
}
