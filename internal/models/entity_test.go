package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntity_IsNewerThan(t *testing.T) {
	tests := []struct {
		name  string
		a     *Entity
		b     *Entity
		newer bool
	}{
		{
			name:  "higher timestamp wins",
			a:     &Entity{Timestamp: 10, NodeID: "a"},
			b:     &Entity{Timestamp: 5, NodeID: "z"},
			newer: true,
		},
		{
			name:  "lower timestamp loses",
			a:     &Entity{Timestamp: 5, NodeID: "z"},
			b:     &Entity{Timestamp: 10, NodeID: "a"},
			newer: false,
		},
		{
			name:  "equal timestamps broken by node id",
			a:     &Entity{Timestamp: 7, NodeID: "node-b"},
			b:     &Entity{Timestamp: 7, NodeID: "node-a"},
			newer: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.newer, tt.a.IsNewerThan(tt.b))
		})
	}
}

func TestEntity_Clone(t *testing.T) {
	original := &Entity{
		ID:       42,
		ClientID: "client-1",
		Payload:  []byte(`{"name":"Widget"}`),
	}

	clone := original.Clone()
	clone.Payload[0] = 'X'
	clone.ClientID = "changed"

	// Мутация клона не трогает оригинал
	assert.Equal(t, byte('{'), original.Payload[0])
	assert.Equal(t, "client-1", original.ClientID)
}

func TestServerEntity_IsNewerThan(t *testing.T) {
	newer := &ServerEntity{Timestamp: 20, NodeID: "a"}
	older := &ServerEntity{Timestamp: 10, NodeID: "z"}

	assert.True(t, newer.IsNewerThan(older))
	assert.False(t, older.IsNewerThan(newer))
}

func TestQueueItem_Active(t *testing.T) {
	assert.True(t, (&QueueItem{}).Active())
	assert.False(t, (&QueueItem{Terminal: true}).Active())
}
