package retention

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordersync/ordersync/internal/client/storage"
	"github.com/ordersync/ordersync/internal/models"
)

type fakeEntityStore struct {
	storage.EntityStore
	entities []*models.Entity
	purged   []uint64
}

func (s *fakeEntityStore) Query(ctx context.Context, filter storage.EntityFilter) ([]*models.Entity, error) {
	var result []*models.Entity
	for _, e := range s.entities {
		if filter.Status != "" && e.SyncStatus != filter.Status {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

func (s *fakeEntityStore) Purge(ctx context.Context, id uint64) error {
	s.purged = append(s.purged, id)
	return nil
}

type fakeQueueStore struct {
	storage.QueueStore
	itemsByEntity map[uint64]*models.QueueItem
}

func (s *fakeQueueStore) ItemForEntity(ctx context.Context, entityID uint64) (*models.QueueItem, error) {
	if item, ok := s.itemsByEntity[entityID]; ok {
		return item, nil
	}
	return nil, storage.ErrQueueItemNotFound
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func syncedEntity(id uint64, age time.Duration) *models.Entity {
	return &models.Entity{
		ID:             id,
		EntityType:     models.EntityTypeProduct,
		SyncStatus:     models.SyncStatusSynced,
		LastModifiedAt: time.Now().Add(-age),
	}
}

func TestSweeper_Sweep_RemovesExpiredSynced(t *testing.T) {
	entities := &fakeEntityStore{entities: []*models.Entity{
		syncedEntity(1, 48*time.Hour),
		syncedEntity(2, time.Minute), // свежая, остается
		syncedEntity(3, 25*time.Hour),
	}}
	queue := &fakeQueueStore{itemsByEntity: map[uint64]*models.QueueItem{}}

	s := NewSweeper(entities, queue, 24*time.Hour, time.Hour, testLogger())

	removed, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.ElementsMatch(t, []uint64{1, 3}, entities.purged)
}

func TestSweeper_Sweep_KeepsUnsynced(t *testing.T) {
	// Pending/error/conflict записи не проходят фильтр по статусу
	entities := &fakeEntityStore{entities: []*models.Entity{
		{ID: 1, SyncStatus: models.SyncStatusPending, LastModifiedAt: time.Now().Add(-72 * time.Hour)},
		{ID: 2, SyncStatus: models.SyncStatusError, LastModifiedAt: time.Now().Add(-72 * time.Hour)},
		{ID: 3, SyncStatus: models.SyncStatusConflict, LastModifiedAt: time.Now().Add(-72 * time.Hour)},
	}}
	queue := &fakeQueueStore{itemsByEntity: map[uint64]*models.QueueItem{}}

	s := NewSweeper(entities, queue, 24*time.Hour, time.Hour, testLogger())

	removed, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Empty(t, entities.purged)
}

func TestSweeper_Sweep_SkipsEntityWithLiveQueueItem(t *testing.T) {
	entities := &fakeEntityStore{entities: []*models.Entity{
		syncedEntity(1, 48*time.Hour),
		syncedEntity(2, 48*time.Hour),
	}}
	queue := &fakeQueueStore{itemsByEntity: map[uint64]*models.QueueItem{
		1: {ID: 10, EntityID: 1},
	}}

	s := NewSweeper(entities, queue, 24*time.Hour, time.Hour, testLogger())

	removed, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []uint64{2}, entities.purged)
}

func TestSweeper_StartStop(t *testing.T) {
	entities := &fakeEntityStore{}
	queue := &fakeQueueStore{itemsByEntity: map[uint64]*models.QueueItem{}}

	s := NewSweeper(entities, queue, 24*time.Hour, 10*time.Millisecond, testLogger())

	s.Start(context.Background())
	s.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	s.Stop()
	s.Stop()
}
