package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ordersync/ordersync/internal/models"
	"github.com/ordersync/ordersync/internal/server/storage"
)

// SaveEntity creates or updates an entity using LWW logic: the write is
// applied only if the incoming version is newer than the stored one.
// Returns true if the entity was saved, false if the existing is newer.
func (s *Storage) SaveEntity(ctx context.Context, entity *models.ServerEntity) (bool, error) {
	existing, err := s.GetEntity(ctx, entity.ClientID)
	if err != nil && !errors.Is(err, storage.ErrEntityNotFound) {
		return false, fmt.Errorf("failed to check existing entity: %w", err)
	}

	if existing != nil {
		// Существующая версия новее — входящая мутация проигрывает LWW
		if !entity.IsNewerThan(existing) {
			return false, nil
		}

		query := `
			UPDATE entities
			SET type = ?, payload = ?, version = ?, timestamp = ?,
			    node_id = ?, deleted = ?, updated_at = ?
			WHERE client_id = ?
		`

		_, err := s.db.ExecContext(ctx, query,
			entity.EntityType,
			entity.Payload,
			entity.Version,
			entity.Timestamp,
			entity.NodeID,
			boolToInt(entity.Deleted),
			time.Now().Unix(),
			entity.ClientID,
		)

		if err != nil {
			return false, fmt.Errorf("failed to update entity: %w", err)
		}

		return true, nil
	}

	query := `
		INSERT INTO entities (
			client_id, type, payload, version, timestamp,
			node_id, deleted, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().Unix()
	_, err = s.db.ExecContext(ctx, query,
		entity.ClientID,
		entity.EntityType,
		entity.Payload,
		entity.Version,
		entity.Timestamp,
		entity.NodeID,
		boolToInt(entity.Deleted),
		now,
		now,
	)

	if err != nil {
		return false, fmt.Errorf("failed to insert entity: %w", err)
	}

	return true, nil
}

// GetEntity retrieves a single entity by its client-generated ID,
// including soft-deleted ones. Returns ErrEntityNotFound if absent.
func (s *Storage) GetEntity(ctx context.Context, clientID string) (*models.ServerEntity, error) {
	query := `
		SELECT client_id, type, payload, version, timestamp,
		       node_id, deleted, created_at, updated_at
		FROM entities
		WHERE client_id = ?
	`

	entity := &models.ServerEntity{}
	var deleted int
	var createdAt, updatedAt int64

	err := s.db.QueryRowContext(ctx, query, clientID).Scan(
		&entity.ClientID,
		&entity.EntityType,
		&entity.Payload,
		&entity.Version,
		&entity.Timestamp,
		&entity.NodeID,
		&deleted,
		&createdAt,
		&updatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}

	entity.Deleted = intToBool(deleted)
	entity.CreatedAt = unixToTime(createdAt)
	entity.UpdatedAt = unixToTime(updatedAt)

	return entity, nil
}

// GetEntitiesByType retrieves all non-deleted entities of the given type
func (s *Storage) GetEntitiesByType(ctx context.Context, entityType string) ([]*models.ServerEntity, error) {
	query := `
		SELECT client_id, type, payload, version, timestamp,
		       node_id, deleted, created_at, updated_at
		FROM entities
		WHERE type = ? AND deleted = 0
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, entityType)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities by type: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			err = cerr
		}
	}()

	return s.scanEntities(rows)
}

// DeleteEntity marks entity as deleted (soft delete) with new timestamp.
// Returns ErrEntityNotFound if entity doesn't exist.
func (s *Storage) DeleteEntity(ctx context.Context, clientID string, timestamp int64, nodeID string) error {
	query := `
		UPDATE entities
		SET deleted = 1, timestamp = ?, node_id = ?, updated_at = ?
		WHERE client_id = ?
	`

	result, err := s.db.ExecContext(ctx, query, timestamp, nodeID, time.Now().Unix(), clientID)
	if err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrEntityNotFound
	}

	return nil
}

// MaxTimestamp returns the largest Lamport timestamp seen across all entities
func (s *Storage) MaxTimestamp(ctx context.Context) (int64, error) {
	var max sql.NullInt64

	err := s.db.QueryRowContext(ctx, `SELECT MAX(timestamp) FROM entities`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to get max timestamp: %w", err)
	}

	return max.Int64, nil
}

// scanEntities is a helper function to scan multiple entities from rows
func (s *Storage) scanEntities(rows *sql.Rows) ([]*models.ServerEntity, error) {
	var entities []*models.ServerEntity

	for rows.Next() {
		entity := &models.ServerEntity{}
		var deleted int
		var createdAt, updatedAt int64

		err := rows.Scan(
			&entity.ClientID,
			&entity.EntityType,
			&entity.Payload,
			&entity.Version,
			&entity.Timestamp,
			&entity.NodeID,
			&deleted,
			&createdAt,
			&updatedAt,
		)

		if err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}

		entity.Deleted = intToBool(deleted)
		entity.CreatedAt = unixToTime(createdAt)
		entity.UpdatedAt = unixToTime(updatedAt)

		entities = append(entities, entity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return entities, nil
}

// Helper functions for bool/int conversion
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int) bool {
	return i != 0
}

func unixToTime(timestamp int64) time.Time {
	return time.Unix(timestamp, 0)
}
