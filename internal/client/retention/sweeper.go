package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ordersync/ordersync/internal/client/storage"
	"github.com/ordersync/ordersync/internal/models"
)

// Sweeper periodically purges synced entities that exceeded the retention
// window. Data awaiting acknowledgment (pending) or resolution
// (error/conflict) is never discarded.
type Sweeper struct {
	entities storage.EntityStore
	queue    storage.QueueStore
	logger   *slog.Logger
	window   time.Duration
	interval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewSweeper creates a new retention sweeper.
// window is how long synced records are kept after their last modification;
// interval is how often the periodic sweep runs.
func NewSweeper(entities storage.EntityStore, queue storage.QueueStore, window, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		entities: entities,
		queue:    queue,
		logger:   logger,
		window:   window,
		interval: interval,
	}
}

// Sweep removes synced entities older than the retention window.
// Returns the number of removed records.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	entities, err := s.entities.Query(ctx, storage.EntityFilter{Status: models.SyncStatusSynced})
	if err != nil {
		return 0, fmt.Errorf("failed to query synced entities: %w", err)
	}

	cutoff := time.Now().Add(-s.window)
	removed := 0

	for _, entity := range entities {
		if entity.LastModifiedAt.After(cutoff) {
			continue
		}

		// По инварианту у synced-записи нет элемента очереди; если он
		// все же есть, запись трогать нельзя.
		if _, err := s.queue.ItemForEntity(ctx, entity.ID); err == nil {
			s.logger.Warn("Skipping sweep of entity with live queue item", "entity_id", entity.ID)
			continue
		} else if err != storage.ErrQueueItemNotFound {
			return removed, fmt.Errorf("failed to check queue for entity %d: %w", entity.ID, err)
		}

		if err := s.entities.Purge(ctx, entity.ID); err != nil {
			return removed, fmt.Errorf("failed to remove entity %d: %w", entity.ID, err)
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("Retention sweep completed", "removed", removed)
	}

	return removed, nil
}

// Start begins the periodic sweep loop
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Sweep(ctx); err != nil {
					s.logger.Warn("Retention sweep failed", "error", err)
				}
			}
		}
	}()
}

// Stop останавливает periodic loop и ждет завершения goroutine
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}
