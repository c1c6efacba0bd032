package models

import "time"

// SyncStatus описывает состояние записи относительно удаленного сервера.
type SyncStatus string

const (
	SyncStatusPending  SyncStatus = "pending"
	SyncStatusSynced   SyncStatus = "synced"
	SyncStatusError    SyncStatus = "error"
	SyncStatusConflict SyncStatus = "conflict"
)

// EntityType константы для типов бизнес-записей
const (
	EntityTypeOrder   = "order"
	EntityTypeProduct = "product"
)

// Entity представляет бизнес-запись (заказ или товар) в локальном хранилище
// вместе с метаданными синхронизации. Payload хранит JSON-сериализованные
// бизнес-поля; движок синхронизации их не интерпретирует.
type Entity struct {
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastModifiedAt time.Time  `json:"last_modified_at"`
	ClientID       string     `json:"client_id"`  // глобально уникальный UUID, ключ идемпотентности
	EntityType     string     `json:"type"`       // "order" или "product"
	NodeID         string     `json:"node_id"`    // узел, создавший текущую версию
	SyncStatus     SyncStatus `json:"status"`     // pending | synced | error | conflict
	Payload        []byte     `json:"payload"`    // бизнес-поля (JSON)
	ID             uint64     `json:"id"`         // локальный последовательный идентификатор
	Version        int64      `json:"version"`    // инкрементируется при каждой локальной мутации
	Timestamp      int64      `json:"timestamp"`  // Lamport timestamp последней мутации
	LastError      string     `json:"last_error"` // последняя терминальная ошибка синхронизации
	Deleted        bool       `json:"deleted"`    // soft delete: запись удалена локально, ждет подтверждения
}

// IsNewerThan сравнивает две версии записи по правилу LWW:
// больший Timestamp выигрывает, при равенстве сравнивается NodeID.
func (e *Entity) IsNewerThan(other *Entity) bool {
	if e.Timestamp != other.Timestamp {
		return e.Timestamp > other.Timestamp
	}
	return e.NodeID > other.NodeID
}

// Clone создает глубокую копию записи
func (e *Entity) Clone() *Entity {
	payload := make([]byte, len(e.Payload))
	copy(payload, e.Payload)

	clone := *e
	clone.Payload = payload
	return &clone
}

// Order бизнес-поля заказа (содержимое Entity.Payload при EntityType == "order")
type Order struct {
	CustomerName string  `json:"customer_name"`
	ProductName  string  `json:"product_name"`
	Status       string  `json:"status"`
	Total        float64 `json:"total"`
	Quantity     int     `json:"quantity"`
}

// Product бизнес-поля товара (содержимое Entity.Payload при EntityType == "product")
type Product struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
}
