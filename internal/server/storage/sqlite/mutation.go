package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ordersync/ordersync/internal/models"
	"github.com/ordersync/ordersync/internal/server/storage"
)

// GetMutation returns the record of a previously applied mutation.
// Returns ErrMutationNotFound if the mutation was never applied.
func (s *Storage) GetMutation(ctx context.Context, mutationID string) (*models.MutationRecord, error) {
	query := `
		SELECT mutation_id, action, entity_client_id, timestamp, applied_at
		FROM applied_mutations
		WHERE mutation_id = ?
	`

	record := &models.MutationRecord{}
	var appliedAt int64

	err := s.db.QueryRowContext(ctx, query, mutationID).Scan(
		&record.MutationID,
		&record.Action,
		&record.EntityClientID,
		&record.Timestamp,
		&appliedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrMutationNotFound
		}
		return nil, fmt.Errorf("failed to get mutation: %w", err)
	}

	record.AppliedAt = unixToTime(appliedAt)

	return record, nil
}

// RecordMutation stores the record of an applied mutation
func (s *Storage) RecordMutation(ctx context.Context, record *models.MutationRecord) error {
	query := `
		INSERT INTO applied_mutations (
			mutation_id, action, entity_client_id, timestamp, applied_at
		) VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		record.MutationID,
		record.Action,
		record.EntityClientID,
		record.Timestamp,
		record.AppliedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to record mutation: %w", err)
	}

	return nil
}
