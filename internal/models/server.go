package models

import "time"

// ServerEntity представляет каноническую версию бизнес-записи на сервере.
// Ключом служит ClientID — идентификатор, сгенерированный создавшим клиентом.
type ServerEntity struct {
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	ClientID   string    `json:"client_id"`
	EntityType string    `json:"type"`
	NodeID     string    `json:"node_id"`
	Payload    []byte    `json:"payload"`
	Version    int64     `json:"version"`
	Timestamp  int64     `json:"timestamp"`
	Deleted    bool      `json:"deleted"`
}

// IsNewerThan сравнивает версии по правилу LWW:
// больший Timestamp выигрывает, при равенстве сравнивается NodeID.
func (e *ServerEntity) IsNewerThan(other *ServerEntity) bool {
	if e.Timestamp != other.Timestamp {
		return e.Timestamp > other.Timestamp
	}
	return e.NodeID > other.NodeID
}

// MutationRecord фиксирует примененную мутацию для идемпотентного replay.
// MutationID — это ClientID записи в сочетании с действием; повторная доставка
// того же запроса не должна применяться дважды.
type MutationRecord struct {
	AppliedAt      time.Time `json:"applied_at"`
	MutationID     string    `json:"mutation_id"`
	Action         string    `json:"action"`
	EntityClientID string    `json:"entity_client_id"`
	Timestamp      int64     `json:"timestamp"`
}
