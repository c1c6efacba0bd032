package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

// ProbeFunc выполняет один запрос к health-эндпоинту сервера.
// Обычно это api.Client.Ping.
type ProbeFunc func(ctx context.Context) error

// Monitor наблюдает за доступностью сервера синхронизации и выдает
// events перехода online/offline. Бинарный флаг платформы "есть сеть" —
// ненадежная верхняя граница: устройство может считать себя онлайн, когда
// сервер приложения недоступен, поэтому используется активный probe.
// Probe — best effort, а не гарантия корректности.
type Monitor struct {
	probe    ProbeFunc
	logger   *slog.Logger
	interval time.Duration

	onOnline  func()
	onOffline func()

	mu      sync.Mutex
	online  bool
	running bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option настраивает Monitor
type Option func(*Monitor)

// WithOnOnline регистрирует обработчик перехода в online.
// Переход в online — основной внешний триггер координатора синхронизации.
func WithOnOnline(fn func()) Option {
	return func(m *Monitor) { m.onOnline = fn }
}

// WithOnOffline регистрирует обработчик перехода в offline
func WithOnOffline(fn func()) Option {
	return func(m *Monitor) { m.onOffline = fn }
}

// NewMonitor creates a new connectivity monitor probing at the given interval
func NewMonitor(probe ProbeFunc, interval time.Duration, logger *slog.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		probe:    probe,
		interval: interval,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Online returns the last observed reachability state
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Start begins the periodic probe loop
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	ctx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		// Первая проверка сразу, не дожидаясь тика
		m.Check(ctx)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Check(ctx)
			}
		}
	}()
}

// Stop останавливает probe loop и ждет завершения goroutine
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Check выполняет probe немедленно и применяет переход состояния.
// Перед объявлением offline probe повторяется с fibonacci backoff, чтобы
// одиночный сбой сети не дергал координатор.
func (m *Monitor) Check(ctx context.Context) bool {
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(200*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if probeErr := m.probe(ctx); probeErr != nil {
			return retry.RetryableError(probeErr)
		}
		return nil
	})

	online := err == nil
	m.transition(online, err)
	return online
}

// transition применяет новое состояние и зовет edge-обработчики
func (m *Monitor) transition(online bool, probeErr error) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	m.mu.Unlock()

	if !changed {
		return
	}

	if online {
		m.logger.Info("Connectivity restored")
		if m.onOnline != nil {
			m.onOnline()
		}
		return
	}

	m.logger.Info("Connectivity lost", "error", probeErr)
	if m.onOffline != nil {
		m.onOffline()
	}
}
