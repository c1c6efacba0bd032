package boltdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordersync/ordersync/internal/client/storage"
	"github.com/ordersync/ordersync/internal/models"
)

func setupTestStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := New(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	return s
}

func newTestEntity(entityType string, payload string) *models.Entity {
	return &models.Entity{
		ClientID:   uuid.New().String(),
		EntityType: entityType,
		NodeID:     "node-test",
		Timestamp:  1,
		Payload:    []byte(payload),
	}
}

func TestStorage_Create(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	entity := newTestEntity(models.EntityTypeProduct, `{"name":"Widget"}`)
	id, err := s.Create(ctx, entity)
	require.NoError(t, err)
	require.NotZero(t, id)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusPending, got.SyncStatus)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, entity.ClientID, got.ClientID)
	assert.False(t, got.Deleted)

	// Мутация и элемент очереди созданы одной транзакцией
	item, err := s.ItemForEntity(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ActionCreate, item.Action)
	assert.Equal(t, entity.ClientID, item.ClientID)
}

func TestStorage_GetByClientID(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	entity := newTestEntity(models.EntityTypeOrder, `{"customer_name":"Acme"}`)
	id, err := s.Create(ctx, entity)
	require.NoError(t, err)

	got, err := s.GetByClientID(ctx, entity.ClientID)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	_, err = s.GetByClientID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrEntityNotFound)
}

func TestStorage_Update(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	entity := newTestEntity(models.EntityTypeProduct, `{"name":"Widget"}`)
	id, err := s.Create(ctx, entity)
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, id, []byte(`{"name":"Widget v2"}`), 2, "node-test"))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, int64(2), got.Timestamp)
	assert.JSONEq(t, `{"name":"Widget v2"}`, string(got.Payload))
}

func TestStorage_Update_CoalescesWithPendingCreate(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	entity := newTestEntity(models.EntityTypeProduct, `{"name":"Widget"}`)
	id, err := s.Create(ctx, entity)
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, id, []byte(`{"name":"Widget v2"}`), 2, "node-test"))
	require.NoError(t, s.Update(ctx, id, []byte(`{"name":"Widget v3"}`), 3, "node-test"))

	// В очереди по-прежнему один элемент, и это create:
	// сервер получит итоговый payload одним запросом
	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	item, err := s.ItemForEntity(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ActionCreate, item.Action)
	assert.False(t, item.LocalOnly)
}

func TestStorage_Delete_SoftDeletes(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	entity := newTestEntity(models.EntityTypeOrder, `{"customer_name":"Acme"}`)
	id, err := s.Create(ctx, entity)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, id, 2, "node-test"))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Deleted)

	// Повторное удаление — запись уже не видна
	assert.ErrorIs(t, s.Delete(ctx, id, 3, "node-test"), storage.ErrEntityNotFound)
}

func TestStorage_Delete_OverPendingCreateIsLocalOnly(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	entity := newTestEntity(models.EntityTypeProduct, `{"name":"Ghost"}`)
	id, err := s.Create(ctx, entity)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, id, 2, "node-test"))

	item, err := s.ItemForEntity(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ActionDelete, item.Action)
	assert.True(t, item.LocalOnly)
}

func TestStorage_Delete_AfterSyncIsNotLocalOnly(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	entity := newTestEntity(models.EntityTypeProduct, `{"name":"Widget"}`)
	id, err := s.Create(ctx, entity)
	require.NoError(t, err)

	// Имитируем подтверждение сервером: элемент снят, запись synced
	item, err := s.ItemForEntity(ctx, id)
	require.NoError(t, err)
	require.NoError(t, s.Remove(ctx, item.ID))
	require.NoError(t, s.SetSyncStatus(ctx, id, models.SyncStatusSynced, ""))

	require.NoError(t, s.Delete(ctx, id, 2, "node-test"))

	item, err = s.ItemForEntity(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ActionDelete, item.Action)
	assert.False(t, item.LocalOnly)
}

func TestStorage_Query(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	productID, err := s.Create(ctx, newTestEntity(models.EntityTypeProduct, `{"name":"Widget"}`))
	require.NoError(t, err)
	_, err = s.Create(ctx, newTestEntity(models.EntityTypeOrder, `{"customer_name":"Acme"}`))
	require.NoError(t, err)
	deletedID, err := s.Create(ctx, newTestEntity(models.EntityTypeProduct, `{"name":"Gone"}`))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, deletedID, 2, "node-test"))

	t.Run("filter by type skips deleted", func(t *testing.T) {
		entities, err := s.Query(ctx, storage.EntityFilter{EntityType: models.EntityTypeProduct})
		require.NoError(t, err)
		require.Len(t, entities, 1)
		assert.Equal(t, productID, entities[0].ID)
	})

	t.Run("deleted filter includes tombstones", func(t *testing.T) {
		entities, err := s.Query(ctx, storage.EntityFilter{EntityType: models.EntityTypeProduct, Deleted: true})
		require.NoError(t, err)
		assert.Len(t, entities, 2)
	})

	t.Run("filter by status", func(t *testing.T) {
		require.NoError(t, s.SetSyncStatus(ctx, productID, models.SyncStatusSynced, ""))

		entities, err := s.Query(ctx, storage.EntityFilter{Status: models.SyncStatusSynced})
		require.NoError(t, err)
		require.Len(t, entities, 1)
		assert.Equal(t, productID, entities[0].ID)
	})
}

func TestStorage_SetSyncStatus(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	id, err := s.Create(ctx, newTestEntity(models.EntityTypeProduct, `{"name":"Widget"}`))
	require.NoError(t, err)

	require.NoError(t, s.SetSyncStatus(ctx, id, models.SyncStatusError, "boom"))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusError, got.SyncStatus)
	assert.Equal(t, "boom", got.LastError)
}

func TestStorage_Purge(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	entity := newTestEntity(models.EntityTypeProduct, `{"name":"Widget"}`)
	id, err := s.Create(ctx, entity)
	require.NoError(t, err)

	require.NoError(t, s.Purge(ctx, id))

	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, storage.ErrEntityNotFound)
	_, err = s.GetByClientID(ctx, entity.ClientID)
	assert.ErrorIs(t, err, storage.ErrEntityNotFound)
}
