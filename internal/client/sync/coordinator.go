package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	httpclient "github.com/ordersync/ordersync/internal/client/api"
	"github.com/ordersync/ordersync/internal/client/storage"
	"github.com/ordersync/ordersync/internal/lww"
	"github.com/ordersync/ordersync/internal/models"
	"github.com/ordersync/ordersync/pkg/api"
)

// State состояние координатора синхронизации
type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
	StateError   State = "error"
)

// ErrSyncInProgress возвращается, когда SyncNow вызван во время активного
// прохода. Повторный триггер — no-op, не ставится в очередь: элементы,
// добавленные после старта прохода, подхватит следующий вызов.
var ErrSyncInProgress = errors.New("sync pass already in progress")

// TokenFunc возвращает действующий bearer token. Получение и обновление
// credential — зона ответственности внешней auth-подсистемы.
type TokenFunc func(ctx context.Context) (string, error)

// Coordinator drains the mutation queue against the remote authority.
// Exactly one pass runs at a time; the trigger (reconnect, timer, explicit
// "sync now") is external — there is no internal tight retry loop.
type Coordinator struct {
	apiClient httpclient.ClientAPI
	entities  storage.EntityStore
	queue     storage.QueueStore
	metadata  storage.MetadataStore
	clock     *lww.Clock
	token     TokenFunc
	logger    *slog.Logger
	onState   func(State)

	batchSize int

	mu      sync.Mutex
	state   State
	lastErr string
	syncing bool
}

// Option настраивает Coordinator
type Option func(*Coordinator)

// WithBatchSize ограничивает количество элементов, снимаемых за один проход
func WithBatchSize(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithStateCallback регистрирует уведомление о смене состояния.
// Вызывается синхронно из прохода синхронизации вне внутреннего mutex,
// так что обработчику можно читать State() и LastError().
func WithStateCallback(fn func(State)) Option {
	return func(c *Coordinator) {
		c.onState = fn
	}
}

// NewCoordinator creates a new sync coordinator
func NewCoordinator(
	apiClient httpclient.ClientAPI,
	entities storage.EntityStore,
	queue storage.QueueStore,
	metadata storage.MetadataStore,
	clock *lww.Clock,
	token TokenFunc,
	logger *slog.Logger,
	opts ...Option,
) *Coordinator {
	c := &Coordinator{
		apiClient: apiClient,
		entities:  entities,
		queue:     queue,
		metadata:  metadata,
		clock:     clock,
		token:     token,
		logger:    logger,
		batchSize: 100,
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result contains sync pass results
type Result struct {
	Submitted int // элементов отправлено на сервер
	Succeeded int // подтверждено сервером и удалено из очереди
	Resolved  int // разрешено локально без сети (create+delete offline)
	Transient int // временные ошибки, элементы остались в очереди
	Terminal  int // терминальные ошибки, записи помечены error/conflict
}

// State returns the current coordinator state
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the message surfaced with the last error state
func (c *Coordinator) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// PendingCount returns the number of queued mutations awaiting sync
func (c *Coordinator) PendingCount(ctx context.Context) (int, error) {
	return c.queue.Count(ctx)
}

// SyncNow executes one sync pass. A call made while a pass is running
// returns ErrSyncInProgress without queuing a second pass.
func (c *Coordinator) SyncNow(ctx context.Context) (*Result, error) {
	c.mu.Lock()
	if c.syncing {
		c.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	c.syncing = true
	notify := c.setStateLocked(StateSyncing, "")
	c.mu.Unlock()
	notify()

	result, err := c.runPass(ctx)

	c.mu.Lock()
	c.syncing = false
	switch {
	case err != nil:
		notify = c.setStateLocked(StateError, err.Error())
	case result.Transient > 0 || result.Terminal > 0:
		notify = c.setStateLocked(StateError, firstErrorText(result))
	default:
		notify = c.setStateLocked(StateIdle, "")
	}
	c.mu.Unlock()
	notify()

	return result, err
}

// runPass снимает снапшот очереди и обрабатывает каждый элемент.
// Ошибка одного элемента не прерывает остальные; исключение — auth-ошибка,
// с которой упадут и все последующие запросы этого прохода.
func (c *Coordinator) runPass(ctx context.Context) (*Result, error) {
	result := &Result{}

	items, err := c.queue.PeekBatch(ctx, c.batchSize)
	if err != nil {
		return result, fmt.Errorf("failed to read queue: %w", err)
	}

	c.logger.Info("Starting sync pass", "queued", len(items))

	for _, item := range items {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		// create, полностью поглощенный delete в оффлайне: серверу нечего
		// сообщать, разрешаем локально без сетевого вызова
		if item.LocalOnly && item.Action == models.ActionDelete {
			if err := c.resolveLocalOnly(ctx, item); err != nil {
				c.logger.Warn("Failed to resolve local-only delete", "item_id", item.ID, "error", err)
				continue
			}
			result.Resolved++
			continue
		}

		halt, err := c.submitItem(ctx, item, result)
		if err != nil && halt {
			return result, err
		}
	}

	if err := c.metadata.SaveClock(ctx, c.clock.Current()); err != nil {
		c.logger.Warn("Failed to persist clock", "error", err)
	}

	if result.Transient == 0 && result.Terminal == 0 {
		if err := c.metadata.SaveLastSyncAt(ctx, time.Now().UnixNano()); err != nil {
			c.logger.Warn("Failed to persist last sync time", "error", err)
		}
	}

	c.logger.Info("Sync pass completed",
		"submitted", result.Submitted,
		"succeeded", result.Succeeded,
		"resolved", result.Resolved,
		"transient", result.Transient,
		"terminal", result.Terminal)

	return result, nil
}

// submitItem выполняет один запрос к серверу. Возвращает halt=true, когда
// проход нужно остановить (auth-ошибка: оставшиеся элементы упадут так же
// и не должны тратить attempt).
func (c *Coordinator) submitItem(ctx context.Context, item *models.QueueItem, result *Result) (bool, error) {
	entity, err := c.entities.Get(ctx, item.EntityID)
	if err != nil {
		c.logger.Warn("Queue item references missing entity", "item_id", item.ID, "entity_id", item.EntityID)
		if removeErr := c.queue.Remove(ctx, item.ID); removeErr != nil {
			c.logger.Warn("Failed to drop orphaned queue item", "item_id", item.ID, "error", removeErr)
		}
		return false, nil
	}

	token, err := c.token(ctx)
	if err != nil {
		return true, fmt.Errorf("failed to obtain access token: %w", err)
	}

	req, err := buildRequest(entity, item)
	if err != nil {
		return false, err
	}

	result.Submitted++

	resp, err := c.apiClient.SubmitMutation(ctx, token, string(item.Action), req)
	if err != nil {
		return c.handleFailure(ctx, item, err, result)
	}

	c.clock.Update(resp.Timestamp)

	if err := c.queue.Remove(ctx, item.ID); err != nil {
		return false, fmt.Errorf("failed to remove acknowledged item %d: %w", item.ID, err)
	}

	if item.Action == models.ActionDelete {
		// Подтвержденный delete: запись больше не нужна локально
		if err := c.entities.Purge(ctx, entity.ID); err != nil {
			c.logger.Warn("Failed to drop deleted entity", "entity_id", entity.ID, "error", err)
		}
	} else {
		if err := c.entities.SetSyncStatus(ctx, entity.ID, models.SyncStatusSynced, ""); err != nil {
			return false, fmt.Errorf("failed to mark entity synced: %w", err)
		}
	}

	result.Succeeded++
	return false, nil
}

// handleFailure применяет таксономию ошибок (§ error taxonomy)
func (c *Coordinator) handleFailure(ctx context.Context, item *models.QueueItem, submitErr error, result *Result) (bool, error) {
	switch httpclient.KindOf(submitErr) {
	case httpclient.KindAuth:
		// Проход останавливается, attempt не расходуется
		c.logger.Warn("Authorization failure, halting pass", "item_id", item.ID, "error", submitErr)
		return true, submitErr

	case httpclient.KindConflict:
		result.Terminal++
		c.logger.Warn("Conflict reported by server", "item_id", item.ID, "client_id", item.ClientID)
		if err := c.queue.MarkTerminal(ctx, item.ID, submitErr.Error()); err != nil {
			c.logger.Warn("Failed to mark item terminal", "item_id", item.ID, "error", err)
		}
		if err := c.entities.SetSyncStatus(ctx, item.EntityID, models.SyncStatusConflict, submitErr.Error()); err != nil {
			c.logger.Warn("Failed to mark entity conflict", "entity_id", item.EntityID, "error", err)
		}
		return false, nil

	case httpclient.KindValidation:
		result.Terminal++
		c.logger.Warn("Validation failure", "item_id", item.ID, "error", submitErr)
		if err := c.queue.MarkTerminal(ctx, item.ID, submitErr.Error()); err != nil {
			c.logger.Warn("Failed to mark item terminal", "item_id", item.ID, "error", err)
		}
		if err := c.entities.SetSyncStatus(ctx, item.EntityID, models.SyncStatusError, submitErr.Error()); err != nil {
			c.logger.Warn("Failed to mark entity error", "entity_id", item.EntityID, "error", err)
		}
		return false, nil

	default: // transient
		result.Transient++
		c.logger.Info("Transient failure, item stays queued", "item_id", item.ID, "error", submitErr)
		if err := c.queue.MarkFailed(ctx, item.ID, submitErr.Error()); err != nil {
			c.logger.Warn("Failed to record attempt", "item_id", item.ID, "error", err)
		}
		return false, nil
	}
}

// resolveLocalOnly убирает create+delete пару: элемент очереди и саму запись
func (c *Coordinator) resolveLocalOnly(ctx context.Context, item *models.QueueItem) error {
	if err := c.queue.Remove(ctx, item.ID); err != nil {
		return fmt.Errorf("failed to remove queue item: %w", err)
	}
	if err := c.entities.Purge(ctx, item.EntityID); err != nil && err != storage.ErrEntityNotFound {
		return fmt.Errorf("failed to remove entity: %w", err)
	}
	return nil
}

// buildRequest собирает тело запроса. ClientID записи служит ключом
// идемпотентности: повтор уже примененного запроса сервер распознает и
// не применит второй раз.
func buildRequest(entity *models.Entity, item *models.QueueItem) (api.MutationRequest, error) {
	req := api.MutationRequest{
		ID:        entity.ClientID,
		NodeID:    entity.NodeID,
		Timestamp: entity.Timestamp,
	}

	if item.Action == models.ActionDelete {
		return req, nil
	}

	payload := api.EntityPayload{
		EntityType: entity.EntityType,
		NodeID:     entity.NodeID,
		Version:    entity.Version,
		Fields:     entity.Payload,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return req, fmt.Errorf("failed to marshal entity payload: %w", err)
	}
	req.Data = data

	return req, nil
}

// setStateLocked меняет состояние под захваченным mu и возвращает
// уведомление callback'а. Вызывать его нужно после освобождения mutex:
// обработчик вправе читать State()/LastError().
func (c *Coordinator) setStateLocked(state State, lastErr string) func() {
	changed := c.state != state
	c.state = state
	c.lastErr = lastErr
	if !changed || c.onState == nil {
		return func() {}
	}
	return func() { c.onState(state) }
}

func firstErrorText(r *Result) string {
	if r.Terminal > 0 {
		return fmt.Sprintf("%d mutation(s) rejected by server", r.Terminal)
	}
	return fmt.Sprintf("%d mutation(s) deferred, retry on next trigger", r.Transient)
}
