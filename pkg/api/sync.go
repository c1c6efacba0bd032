package api

import "encoding/json"

// Mutation actions accepted by the sync endpoint
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// MutationRequest is the body of POST /api/sync/{action}.
// ID carries the entity's client-generated identifier and doubles as the
// idempotency key: a retried request the server already applied must not
// apply twice.
type MutationRequest struct {
	ID        string          `json:"id"`
	NodeID    string          `json:"node_id"` // узел, породивший мутацию (LWW tie-break)
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// EntityPayload is the shape of MutationRequest.Data for create and update
// actions. Delete requests carry an empty Data field.
type EntityPayload struct {
	EntityType string          `json:"entity_type"`
	NodeID     string          `json:"node_id"`
	Fields     json.RawMessage `json:"fields"`
	Version    int64           `json:"version"`
}

// MutationResponse is the server's answer to an accepted mutation.
type MutationResponse struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"` // server Lamport clock after the mutation
	Applied   bool   `json:"applied"`   // false when the request was a recognized replay
}

// ErrorResponse is returned with any non-2xx status
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
