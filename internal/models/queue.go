package models

import "time"

// QueueAction тип операции в очереди мутаций
type QueueAction string

const (
	ActionCreate QueueAction = "create"
	ActionUpdate QueueAction = "update"
	ActionDelete QueueAction = "delete"
)

// QueueItem представляет одну отложенную мутацию в durable-очереди.
// Элемент создается в той же транзакции, что и запись Entity, и удаляется
// только после подтверждения сервером.
type QueueItem struct {
	EnqueuedAt    time.Time   `json:"enqueued_at"`
	LastAttemptAt time.Time   `json:"last_attempt_at"`
	EntityType    string      `json:"entity_type"`
	ClientID      string      `json:"client_id"` // client-generated ID сущности (ключ идемпотентности)
	Action        QueueAction `json:"action"`
	LastError     string      `json:"last_error"`
	ID            uint64      `json:"id"`        // порядковый номер в очереди (bbolt sequence)
	EntityID      uint64      `json:"entity_id"` // невладеющая ссылка на Entity.ID
	AttemptCount  int         `json:"attempt_count"`
	Terminal      bool        `json:"terminal"`   // терминальная ошибка, ждет явного retry
	LocalOnly     bool        `json:"local_only"` // delete поглотил незасинканный create: сеть не нужна
}

// Active сообщает, участвует ли элемент в следующем проходе синхронизации.
// Терминальные элементы ждут явного повторного запуска.
func (q *QueueItem) Active() bool {
	return !q.Terminal
}
