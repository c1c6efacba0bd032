package broadcast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// entry формат durable-записи одного ключа на диске
type entry struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Timestamp time.Time       `json:"timestamp"`
}

// cacheEntry запись в shared in-memory read cache
type cacheEntry struct {
	value    json.RawMessage
	cachedAt time.Time
}

// Handler получает внешние изменения ключей от других инстансов приложения
type Handler func(key string, value json.RawMessage)

// Broadcaster propagates small keyed values (credentials, session
// identifiers, feature flags) across concurrently running instances of the
// application. Writes are debounced and land as atomic file replacements in
// a shared directory; other instances observe them through fsnotify. An
// event that matches the last value this instance wrote itself is dropped
// to prevent echo loops.
//
// The broadcaster is constructed explicitly by the composition root and
// passed by reference to consumers; there is no package-level singleton.
type Broadcaster struct {
	dir      string
	debounce time.Duration
	cacheTTL time.Duration
	logger   *slog.Logger

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu          sync.Mutex
	cache       map[string]cacheEntry
	pending     map[string]json.RawMessage // значения, ждущие debounce-таймера
	timers      map[string]*time.Timer
	lastWritten map[string][]byte // для подавления эха собственных записей
	handlers    []Handler
	closed      bool
}

// DefaultDebounce интервал коалесцирования burst-записей одного ключа
const DefaultDebounce = 300 * time.Millisecond

// DefaultCacheTTL время жизни записи в read cache
const DefaultCacheTTL = 5 * time.Second

// New creates a broadcaster over the given shared directory and starts
// watching it for changes made by other instances.
func New(dir string, debounce, cacheTTL time.Duration, logger *slog.Logger) (*Broadcaster, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create broadcast dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch broadcast dir: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	b := &Broadcaster{
		dir:         dir,
		debounce:    debounce,
		cacheTTL:    cacheTTL,
		logger:      logger,
		watcher:     watcher,
		cancel:      cancel,
		cache:       make(map[string]cacheEntry),
		pending:     make(map[string]json.RawMessage),
		timers:      make(map[string]*time.Timer),
		lastWritten: make(map[string][]byte),
	}

	b.wg.Add(1)
	go b.watchLoop(ctx)

	return b, nil
}

// Read returns the current value of the key, or nil if the key is absent.
// A fresh cache entry short-circuits the durable read; expired entries are
// evicted lazily here.
func (b *Broadcaster) Read(key string) (json.RawMessage, error) {
	b.mu.Lock()
	if pending, ok := b.pending[key]; ok {
		// Незаписанное debounced-значение — самое свежее
		b.mu.Unlock()
		return pending, nil
	}
	if cached, ok := b.cache[key]; ok {
		if time.Since(cached.cachedAt) < b.cacheTTL {
			b.mu.Unlock()
			return cached.value, nil
		}
		delete(b.cache, key)
	}
	b.mu.Unlock()

	value, err := b.readFile(key)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}

	b.mu.Lock()
	b.cache[key] = cacheEntry{value: value, cachedAt: time.Now()}
	b.mu.Unlock()

	return value, nil
}

// Write schedules a durable write of the key. Bursts of writes to the same
// key within the debounce window collapse into one file replacement.
func (b *Broadcaster) Write(key string, value json.RawMessage) error {
	if err := validateKey(key); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.New("broadcaster is closed")
	}

	b.pending[key] = value

	if timer, ok := b.timers[key]; ok {
		timer.Reset(b.debounce)
		return nil
	}

	b.timers[key] = time.AfterFunc(b.debounce, func() {
		b.flushKey(key)
	})

	return nil
}

// Subscribe registers a handler for changes made by other instances.
// The handler is not invoked for this instance's own writes.
func (b *Broadcaster) Subscribe(fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, fn)
}

// Close stops the watcher, cancels pending debounce timers and flushes
// outstanding values (flush-on-teardown), so the last write is never lost.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true

	for key, timer := range b.timers {
		timer.Stop()
		delete(b.timers, key)
	}
	keys := make([]string, 0, len(b.pending))
	for key := range b.pending {
		keys = append(keys, key)
	}
	b.mu.Unlock()

	for _, key := range keys {
		b.flushKey(key)
	}

	b.cancel()
	err := b.watcher.Close()
	b.wg.Wait()

	return err
}

// flushKey пишет накопленное значение ключа на диск атомарно (tmp+rename)
func (b *Broadcaster) flushKey(key string) {
	b.mu.Lock()
	value, ok := b.pending[key]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.pending, key)
	if timer, exists := b.timers[key]; exists {
		timer.Stop()
		delete(b.timers, key)
	}
	b.mu.Unlock()

	data, err := json.Marshal(entry{Key: key, Value: value, Timestamp: time.Now()})
	if err != nil {
		b.logger.Error("Failed to marshal broadcast entry", "key", key, "error", err)
		return
	}

	path := b.filePath(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		b.logger.Error("Failed to write broadcast entry", "key", key, "error", err)
		return
	}

	// Анти-эхо маркер ставится до rename: watcher может увидеть событие
	// раньше, чем flushKey успеет взять mutex после публикации
	b.mu.Lock()
	b.cache[key] = cacheEntry{value: value, cachedAt: time.Now()}
	b.lastWritten[key] = append([]byte(nil), value...)
	b.mu.Unlock()

	if err := os.Rename(tmp, path); err != nil {
		b.logger.Error("Failed to publish broadcast entry", "key", key, "error", err)
		return
	}

	b.logger.Debug("Broadcast entry written", "key", key)
}

// watchLoop наблюдает за изменениями каталога от других инстансов
func (b *Broadcaster) watchLoop(ctx context.Context) {
	defer b.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if strings.HasSuffix(event.Name, ".tmp") {
				continue
			}
			b.handleExternalChange(event.Name)

		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			b.logger.Warn("Broadcast watcher error", "error", err)
		}
	}
}

// handleExternalChange читает изменившийся файл и уведомляет подписчиков,
// если значение не совпадает с последней собственной записью (анти-эхо).
func (b *Broadcaster) handleExternalChange(path string) {
	key := strings.TrimSuffix(filepath.Base(path), ".json")

	value, err := b.readFile(key)
	if err != nil || value == nil {
		return
	}

	b.mu.Lock()
	if last, ok := b.lastWritten[key]; ok && bytes.Equal(last, value) {
		b.mu.Unlock()
		return
	}
	b.cache[key] = cacheEntry{value: value, cachedAt: time.Now()}
	handlers := append([]Handler(nil), b.handlers...)
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(key, value)
	}
}

// readFile читает durable-запись ключа; nil без ошибки если файла нет
func (b *Broadcaster) readFile(key string) (json.RawMessage, error) {
	data, err := os.ReadFile(b.filePath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read broadcast entry: %w", err)
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal broadcast entry: %w", err)
	}

	return e.Value, nil
}

func (b *Broadcaster) filePath(key string) string {
	return filepath.Join(b.dir, key+".json")
}

// validateKey отклоняет ключи, способные выйти за пределы каталога
func validateKey(key string) error {
	if key == "" {
		return errors.New("broadcast key is empty")
	}
	if strings.ContainsAny(key, "/\\") || key != filepath.Base(key) {
		return fmt.Errorf("invalid broadcast key: %q", key)
	}
	return nil
}
