package data

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ordersync/ordersync/internal/client/storage"
	"github.com/ordersync/ordersync/internal/lww"
	"github.com/ordersync/ordersync/internal/models"
	"github.com/ordersync/ordersync/internal/validation"
)

// Service определяет интерфейс бизнес-операций над локальным хранилищем.
// Каждая мутация порождает ровно один элемент очереди синхронизации
// (атомарно, внутри транзакции хранилища).
type Service interface {
	AddProduct(ctx context.Context, product *models.Product) (uint64, error)
	UpdateProduct(ctx context.Context, id uint64, product *models.Product) error
	GetProduct(ctx context.Context, id uint64) (*models.Product, error)
	ListProducts(ctx context.Context) ([]*models.Entity, error)

	AddOrder(ctx context.Context, order *models.Order) (uint64, error)
	UpdateOrder(ctx context.Context, id uint64, order *models.Order) error
	GetOrder(ctx context.Context, id uint64) (*models.Order, error)
	ListOrders(ctx context.Context) ([]*models.Entity, error)

	// Delete помечает запись удаленной; подтверждение сервера убирает ее
	// окончательно. Работает для обоих типов.
	Delete(ctx context.Context, id uint64) error
}

// service handles client-side business operations
type service struct {
	entities storage.EntityStore
	clock    *lww.Clock
}

// NewService creates a new data service
func NewService(entities storage.EntityStore, clock *lww.Clock) Service {
	return &service{
		entities: entities,
		clock:    clock,
	}
}

// AddProduct validates and persists a new product
func (s *service) AddProduct(ctx context.Context, product *models.Product) (uint64, error) {
	if err := validation.ValidateProduct(product); err != nil {
		return 0, fmt.Errorf("invalid product: %w", err)
	}

	payload, err := json.Marshal(product)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal product: %w", err)
	}

	return s.create(ctx, models.EntityTypeProduct, payload)
}

// UpdateProduct validates and overwrites product fields
func (s *service) UpdateProduct(ctx context.Context, id uint64, product *models.Product) error {
	if err := validation.ValidateProduct(product); err != nil {
		return fmt.Errorf("invalid product: %w", err)
	}

	payload, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to marshal product: %w", err)
	}

	return s.update(ctx, id, models.EntityTypeProduct, payload)
}

// GetProduct retrieves and decodes a product by local ID
func (s *service) GetProduct(ctx context.Context, id uint64) (*models.Product, error) {
	entity, err := s.get(ctx, id, models.EntityTypeProduct)
	if err != nil {
		return nil, err
	}

	var product models.Product
	if err := json.Unmarshal(entity.Payload, &product); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product: %w", err)
	}

	return &product, nil
}

// ListProducts returns all non-deleted product entities
func (s *service) ListProducts(ctx context.Context) ([]*models.Entity, error) {
	return s.entities.Query(ctx, storage.EntityFilter{EntityType: models.EntityTypeProduct})
}

// AddOrder validates and persists a new order
func (s *service) AddOrder(ctx context.Context, order *models.Order) (uint64, error) {
	if err := validation.ValidateOrder(order); err != nil {
		return 0, fmt.Errorf("invalid order: %w", err)
	}

	payload, err := json.Marshal(order)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal order: %w", err)
	}

	return s.create(ctx, models.EntityTypeOrder, payload)
}

// UpdateOrder validates and overwrites order fields
func (s *service) UpdateOrder(ctx context.Context, id uint64, order *models.Order) error {
	if err := validation.ValidateOrder(order); err != nil {
		return fmt.Errorf("invalid order: %w", err)
	}

	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	return s.update(ctx, id, models.EntityTypeOrder, payload)
}

// GetOrder retrieves and decodes an order by local ID
func (s *service) GetOrder(ctx context.Context, id uint64) (*models.Order, error) {
	entity, err := s.get(ctx, id, models.EntityTypeOrder)
	if err != nil {
		return nil, err
	}

	var order models.Order
	if err := json.Unmarshal(entity.Payload, &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order: %w", err)
	}

	return &order, nil
}

// ListOrders returns all non-deleted order entities
func (s *service) ListOrders(ctx context.Context) ([]*models.Entity, error) {
	return s.entities.Query(ctx, storage.EntityFilter{EntityType: models.EntityTypeOrder})
}

// Delete marks the entity deleted (soft delete)
func (s *service) Delete(ctx context.Context, id uint64) error {
	if err := s.entities.Delete(ctx, id, s.clock.Tick(), s.clock.NodeID()); err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}
	return nil
}

// create минтит ClientID (ключ идемпотентности) и сохраняет новую запись
func (s *service) create(ctx context.Context, entityType string, payload []byte) (uint64, error) {
	entity := &models.Entity{
		ClientID:   uuid.New().String(),
		EntityType: entityType,
		NodeID:     s.clock.NodeID(),
		Timestamp:  s.clock.Tick(),
		Payload:    payload,
	}

	id, err := s.entities.Create(ctx, entity)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", entityType, err)
	}

	return id, nil
}

func (s *service) update(ctx context.Context, id uint64, entityType string, payload []byte) error {
	entity, err := s.get(ctx, id, entityType)
	if err != nil {
		return err
	}

	if err := s.entities.Update(ctx, entity.ID, payload, s.clock.Tick(), s.clock.NodeID()); err != nil {
		return fmt.Errorf("failed to update %s: %w", entityType, err)
	}

	return nil
}

// get читает запись и проверяет ее тип
func (s *service) get(ctx context.Context, id uint64, entityType string) (*models.Entity, error) {
	entity, err := s.entities.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}

	if entity.EntityType != entityType {
		return nil, fmt.Errorf("entity %d is not a %s, got type: %s", id, entityType, entity.EntityType)
	}
	if entity.Deleted {
		return nil, storage.ErrEntityNotFound
	}

	return entity, nil
}
