package boltdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordersync/ordersync/internal/client/storage"
	"github.com/ordersync/ordersync/internal/models"
)

func TestStorage_PeekBatch_InsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	first, err := s.Create(ctx, newTestEntity(models.EntityTypeProduct, `{"name":"a"}`))
	require.NoError(t, err)
	second, err := s.Create(ctx, newTestEntity(models.EntityTypeProduct, `{"name":"b"}`))
	require.NoError(t, err)
	third, err := s.Create(ctx, newTestEntity(models.EntityTypeOrder, `{"customer_name":"c"}`))
	require.NoError(t, err)

	items, err := s.PeekBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 3)

	// Порядок локального применения сохраняется
	assert.Equal(t, first, items[0].EntityID)
	assert.Equal(t, second, items[1].EntityID)
	assert.Equal(t, third, items[2].EntityID)
}

func TestStorage_PeekBatch_Limit(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	for i := 0; i < 5; i++ {
		_, err := s.Create(ctx, newTestEntity(models.EntityTypeProduct, `{"name":"x"}`))
		require.NoError(t, err)
	}

	items, err := s.PeekBatch(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestStorage_PeekBatch_SkipsTerminal(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	id, err := s.Create(ctx, newTestEntity(models.EntityTypeProduct, `{"name":"bad"}`))
	require.NoError(t, err)
	_, err = s.Create(ctx, newTestEntity(models.EntityTypeProduct, `{"name":"good"}`))
	require.NoError(t, err)

	item, err := s.ItemForEntity(ctx, id)
	require.NoError(t, err)
	require.NoError(t, s.MarkTerminal(ctx, item.ID, "validation failed"))

	items, err := s.PeekBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.NotEqual(t, id, items[0].EntityID)
}

func TestStorage_MarkFailed(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	id, err := s.Create(ctx, newTestEntity(models.EntityTypeProduct, `{"name":"x"}`))
	require.NoError(t, err)

	item, err := s.ItemForEntity(ctx, id)
	require.NoError(t, err)

	require.NoError(t, s.MarkFailed(ctx, item.ID, "connection refused"))
	require.NoError(t, s.MarkFailed(ctx, item.ID, "timeout"))

	item, err = s.ItemForEntity(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, item.AttemptCount)
	assert.Equal(t, "timeout", item.LastError)
	assert.False(t, item.Terminal)
	assert.False(t, item.LastAttemptAt.IsZero())

	// Transient-ошибка не убирает элемент из очереди
	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStorage_Count_ExcludesTerminal(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	badID, err := s.Create(ctx, newTestEntity(models.EntityTypeProduct, `{"name":"bad"}`))
	require.NoError(t, err)
	_, err = s.Create(ctx, newTestEntity(models.EntityTypeProduct, `{"name":"good"}`))
	require.NoError(t, err)

	item, err := s.ItemForEntity(ctx, badID)
	require.NoError(t, err)
	require.NoError(t, s.MarkTerminal(ctx, item.ID, "rejected"))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStorage_Retry(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	id, err := s.Create(ctx, newTestEntity(models.EntityTypeProduct, `{"name":"x"}`))
	require.NoError(t, err)

	item, err := s.ItemForEntity(ctx, id)
	require.NoError(t, err)
	require.NoError(t, s.MarkTerminal(ctx, item.ID, "rejected"))
	require.NoError(t, s.SetSyncStatus(ctx, id, models.SyncStatusError, "rejected"))

	require.NoError(t, s.Retry(ctx, id))

	item, err = s.ItemForEntity(ctx, id)
	require.NoError(t, err)
	assert.False(t, item.Terminal)
	assert.Empty(t, item.LastError)

	entity, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusPending, entity.SyncStatus)
	assert.Empty(t, entity.LastError)
}

func TestStorage_Retry_NoQueueItem(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	assert.ErrorIs(t, s.Retry(ctx, 999), storage.ErrQueueItemNotFound)
}

func TestStorage_QueueRemove(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	id, err := s.Create(ctx, newTestEntity(models.EntityTypeProduct, `{"name":"x"}`))
	require.NoError(t, err)

	item, err := s.ItemForEntity(ctx, id)
	require.NoError(t, err)
	require.NoError(t, s.Remove(ctx, item.ID))

	_, err = s.ItemForEntity(ctx, id)
	assert.ErrorIs(t, err, storage.ErrQueueItemNotFound)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.ErrorIs(t, s.Remove(ctx, item.ID), storage.ErrQueueItemNotFound)
}

func TestStorage_EnqueueAfterRemove_NewItem(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	id, err := s.Create(ctx, newTestEntity(models.EntityTypeProduct, `{"name":"x"}`))
	require.NoError(t, err)

	item, err := s.ItemForEntity(ctx, id)
	require.NoError(t, err)
	require.NoError(t, s.Remove(ctx, item.ID))
	require.NoError(t, s.SetSyncStatus(ctx, id, models.SyncStatusSynced, ""))

	// Следующая мутация после подтверждения — уже update
	require.NoError(t, s.Update(ctx, id, []byte(`{"name":"y"}`), 2, "node-test"))

	item, err = s.ItemForEntity(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ActionUpdate, item.Action)
}
