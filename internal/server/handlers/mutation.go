package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ordersync/ordersync/internal/models"
	"github.com/ordersync/ordersync/internal/server/storage"
	"github.com/ordersync/ordersync/internal/validation"
	"github.com/ordersync/ordersync/pkg/api"
)

// contextKey тип для ключей контекста
type contextKey string

const (
	// UserIDKey ключ для хранения user_id в контексте
	UserIDKey contextKey = "user_id"
	// NodeIDKey ключ для хранения node_id в контексте
	NodeIDKey contextKey = "node_id"
)

// GetUserID извлекает user_id из контекста запроса
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// GetNodeID извлекает node_id из контекста запроса
func GetNodeID(ctx context.Context) (string, bool) {
	nodeID, ok := ctx.Value(NodeIDKey).(string)
	return nodeID, ok
}

// EntityStorage определяет интерфейс для канонических записей
type EntityStorage interface {
	SaveEntity(ctx context.Context, entity *models.ServerEntity) (bool, error)
	GetEntity(ctx context.Context, clientID string) (*models.ServerEntity, error)
	DeleteEntity(ctx context.Context, clientID string, timestamp int64, nodeID string) error
	MaxTimestamp(ctx context.Context) (int64, error)
}

// MutationStorage определяет интерфейс журнала примененных мутаций
type MutationStorage interface {
	GetMutation(ctx context.Context, mutationID string) (*models.MutationRecord, error)
	RecordMutation(ctx context.Context, record *models.MutationRecord) error
}

// MutationHandler handles POST /api/sync/{action} requests
type MutationHandler struct {
	logger    *slog.Logger
	entities  EntityStorage
	mutations MutationStorage
}

// NewMutationHandler creates a new mutation handler
func NewMutationHandler(logger *slog.Logger, entities EntityStorage, mutations MutationStorage) *MutationHandler {
	return &MutationHandler{
		logger:    logger,
		entities:  entities,
		mutations: mutations,
	}
}

// HandleMutation обрабатывает одну мутацию. Семантика статусов:
// 400 — нечитаемое тело, 401 — middleware, 409 — LWW-конфликт,
// 422 — невалидные бизнес-поля, 5xx — внутренние ошибки (клиент повторит).
func (h *MutationHandler) HandleMutation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.Error("User ID not found in context")
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}

	action := r.PathValue("action")
	if action != api.ActionCreate && action != api.ActionUpdate && action != api.ActionDelete {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("unknown action: %s", action))
		return
	}

	var req api.MutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode mutation request", "error", err)
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	if req.ID == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", "mutation id is required")
		return
	}

	h.logger.Info("Mutation request",
		"user_id", userID,
		"action", action,
		"client_id", req.ID,
		"timestamp", req.Timestamp)

	// Повтор уже примененной мутации: отвечаем успехом, не применяя второй раз
	mutationID := mutationKey(req.ID, action, req.Timestamp)
	if record, err := h.mutations.GetMutation(ctx, mutationID); err == nil {
		h.logger.Info("Mutation replay detected", "mutation_id", mutationID)
		h.respond(w, r, req.ID, record.Timestamp, false)
		return
	} else if err != storage.ErrMutationNotFound {
		h.logger.Error("Failed to check mutation log", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	switch action {
	case api.ActionDelete:
		h.applyDelete(w, r, &req, mutationID)
	default:
		h.applyUpsert(w, r, &req, action, mutationID)
	}
}

// applyUpsert применяет create или update через LWW-слияние
func (h *MutationHandler) applyUpsert(w http.ResponseWriter, r *http.Request, req *api.MutationRequest, action, mutationID string) {
	ctx := r.Context()

	var payload api.EntityPayload
	if err := json.Unmarshal(req.Data, &payload); err != nil {
		h.logger.Warn("Failed to decode entity payload", "error", err)
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", "invalid entity payload")
		return
	}

	if err := validatePayload(&payload); err != nil {
		h.logger.Warn("Payload validation failed", "client_id", req.ID, "error", err)
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
		return
	}

	entity := &models.ServerEntity{
		ClientID:   req.ID,
		EntityType: payload.EntityType,
		NodeID:     payload.NodeID,
		Payload:    payload.Fields,
		Version:    payload.Version,
		Timestamp:  req.Timestamp,
	}

	saved, err := h.entities.SaveEntity(ctx, entity)
	if err != nil {
		h.logger.Error("Failed to save entity", "error", err, "client_id", req.ID)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	// Существующая версия новее входящей — конфликт, клиент разрешает сам
	if !saved {
		h.logger.Warn("Mutation lost LWW merge", "client_id", req.ID, "action", action)
		writeError(w, http.StatusConflict, "conflict", "a newer version of the entity exists")
		return
	}

	h.recordApplied(ctx, req, action, mutationID)
	h.respondCurrent(w, r, req.ID)
}

// applyDelete применяет soft delete. Delete неизвестной записи идемпотентен:
// отвечаем успехом, чтобы клиент снял элемент с очереди.
func (h *MutationHandler) applyDelete(w http.ResponseWriter, r *http.Request, req *api.MutationRequest, mutationID string) {
	ctx := r.Context()

	existing, err := h.entities.GetEntity(ctx, req.ID)
	if err != nil && err != storage.ErrEntityNotFound {
		h.logger.Error("Failed to load entity", "error", err, "client_id", req.ID)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	if existing != nil {
		incoming := &models.ServerEntity{Timestamp: req.Timestamp, NodeID: req.NodeID}
		if !incoming.IsNewerThan(existing) {
			h.logger.Warn("Delete lost LWW merge", "client_id", req.ID)
			writeError(w, http.StatusConflict, "conflict", "a newer version of the entity exists")
			return
		}

		if err := h.entities.DeleteEntity(ctx, req.ID, req.Timestamp, req.NodeID); err != nil {
			h.logger.Error("Failed to delete entity", "error", err, "client_id", req.ID)
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
	}

	h.recordApplied(ctx, req, api.ActionDelete, mutationID)
	h.respondCurrent(w, r, req.ID)
}

// recordApplied пишет мутацию в журнал идемпотентности.
// Ошибка журнала не откатывает уже примененную мутацию: повтор запроса
// пройдет LWW-проверку и применится как no-op.
func (h *MutationHandler) recordApplied(ctx context.Context, req *api.MutationRequest, action, mutationID string) {
	record := &models.MutationRecord{
		MutationID:     mutationID,
		Action:         action,
		EntityClientID: req.ID,
		Timestamp:      req.Timestamp,
		AppliedAt:      time.Now(),
	}
	if err := h.mutations.RecordMutation(ctx, record); err != nil {
		h.logger.Error("Failed to record applied mutation", "error", err, "mutation_id", mutationID)
	}
}

// respondCurrent отвечает успехом с текущим серверным timestamp
func (h *MutationHandler) respondCurrent(w http.ResponseWriter, r *http.Request, clientID string) {
	maxTS, err := h.entities.MaxTimestamp(r.Context())
	if err != nil {
		h.logger.Warn("Failed to read max timestamp", "error", err)
	}
	h.respond(w, r, clientID, maxTS, true)
}

func (h *MutationHandler) respond(w http.ResponseWriter, r *http.Request, clientID string, timestamp int64, applied bool) {
	resp := api.MutationResponse{
		ID:        clientID,
		Timestamp: timestamp,
		Applied:   applied,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

// validatePayload проверяет тип и бизнес-поля входящей записи
func validatePayload(payload *api.EntityPayload) error {
	switch payload.EntityType {
	case models.EntityTypeOrder:
		var order models.Order
		if err := json.Unmarshal(payload.Fields, &order); err != nil {
			return fmt.Errorf("invalid order fields: %w", err)
		}
		return validation.ValidateOrder(&order)
	case models.EntityTypeProduct:
		var product models.Product
		if err := json.Unmarshal(payload.Fields, &product); err != nil {
			return fmt.Errorf("invalid product fields: %w", err)
		}
		return validation.ValidateProduct(&product)
	default:
		return fmt.Errorf("unknown entity type: %q", payload.EntityType)
	}
}

// mutationKey строит ключ идемпотентности. Timestamp входит в ключ: две
// разные мутации одной записи (после подтверждения первой) не должны
// склеиваться в один replay.
func mutationKey(clientID, action string, timestamp int64) string {
	return fmt.Sprintf("%s:%s:%d", clientID, action, timestamp)
}

// writeError отправляет JSON ошибку в формате api.ErrorResponse
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{
		Error:   code,
		Message: message,
	})
}
