package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config содержит настройки клиента. Загружается из TOML-файла; отсутствие
// файла не ошибка — берутся значения по умолчанию.
type Config struct {
	ServerURL    string `toml:"server_url"`
	DBPath       string `toml:"db_path"`
	BroadcastDir string `toml:"broadcast_dir"`
	AccessToken  string `toml:"access_token"`

	ProbeIntervalSec int `toml:"probe_interval_sec"` // интервал probe доступности сервера
	SyncBatchSize    int `toml:"sync_batch_size"`    // лимит элементов за один проход
	RetentionDays    int `toml:"retention_days"`     // хранение synced-записей
	SweepIntervalSec int `toml:"sweep_interval_sec"` // периодичность retention sweep
	DebounceMs       int `toml:"debounce_ms"`        // окно коалесцирования broadcast-записей
	CacheTTLSec      int `toml:"cache_ttl_sec"`      // TTL read cache broadcast-слоя
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		ServerURL:        "http://localhost:8080",
		DBPath:           "ordersync-client.db",
		BroadcastDir:     ".ordersync-broadcast",
		ProbeIntervalSec: 30,
		SyncBatchSize:    100,
		RetentionDays:    30,
		SweepIntervalSec: 3600,
		DebounceMs:       300,
		CacheTTLSec:      5,
	}
}

// Load reads configuration from the TOML file at path, applying defaults for
// missing fields. A missing file yields the defaults. The access token can
// always be overridden through ORDERSYNC_ACCESS_TOKEN.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if token := os.Getenv("ORDERSYNC_ACCESS_TOKEN"); token != "" {
		cfg.AccessToken = token
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServerURL == "" {
		return errors.New("server_url must not be empty")
	}
	if c.DBPath == "" {
		return errors.New("db_path must not be empty")
	}
	if c.SyncBatchSize <= 0 {
		return fmt.Errorf("sync_batch_size must be positive, got %d", c.SyncBatchSize)
	}
	if c.RetentionDays <= 0 {
		return fmt.Errorf("retention_days must be positive, got %d", c.RetentionDays)
	}
	return nil
}

// ProbeInterval длительность между probe-запросами
func (c *Config) ProbeInterval() time.Duration {
	return time.Duration(c.ProbeIntervalSec) * time.Second
}

// RetentionWindow сколько хранятся synced-записи после последней модификации
func (c *Config) RetentionWindow() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// SweepInterval периодичность retention sweep
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSec) * time.Second
}

// Debounce окно коалесцирования broadcast-записей
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// CacheTTL время жизни записей в broadcast read cache
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}
