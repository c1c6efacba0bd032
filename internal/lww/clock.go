package lww

import (
	"sync"

	"github.com/google/uuid"
)

// Clock представляет логические часы Лампорта для упорядочивания мутаций
// между узлами без синхронизации физического времени.
type Clock struct {
	nodeID  string
	counter int64
	mu      sync.Mutex
}

// NewClock создает новые часы с уникальным идентификатором узла (UUID).
func NewClock() *Clock {
	return &Clock{nodeID: uuid.New().String()}
}

// NewClockWithNodeID создает часы с заданным идентификатором узла.
// Используется для тестирования и восстановления состояния после перезапуска.
func NewClockWithNodeID(nodeID string) *Clock {
	return &Clock{nodeID: nodeID}
}

// Tick увеличивает счетчик и возвращает новый timestamp.
// Вызывается при каждой локальной мутации.
func (c *Clock) Tick() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.counter++
	return c.counter
}

// Update обновляет счетчик по полученному удаленному timestamp:
// counter = max(counter, remote) + 1
func (c *Clock) Update(remote int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if remote > c.counter {
		c.counter = remote
	}
	c.counter++
	return c.counter
}

// Current возвращает текущее значение счетчика без изменения.
func (c *Clock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.counter
}

// SetCurrent устанавливает счетчик в заданное значение.
// Используется при восстановлении состояния после перезапуска.
func (c *Clock) SetCurrent(v int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.counter = v
}

// NodeID возвращает идентификатор узла.
func (c *Clock) NodeID() string {
	return c.nodeID
}

// Newer возвращает true, если версия (ts, node) новее версии (otherTS, otherNode)
// по правилу Last-Write-Wins: больший timestamp выигрывает, при равных
// timestamps лексикографически сравниваются идентификаторы узлов.
func Newer(ts int64, node string, otherTS int64, otherNode string) bool {
	if ts != otherTS {
		return ts > otherTS
	}
	return node > otherNode
}
