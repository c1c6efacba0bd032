package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.ServerURL)
	assert.Equal(t, 100, cfg.SyncBatchSize)
	assert.Equal(t, 30*time.Second, cfg.ProbeInterval())
	assert.Equal(t, 30*24*time.Hour, cfg.RetentionWindow())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ordersync.toml")
	content := `
server_url = "https://sync.example.com"
db_path = "custom.db"
access_token = "file-token"
retention_days = 7
debounce_ms = 150
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://sync.example.com", cfg.ServerURL)
	assert.Equal(t, "custom.db", cfg.DBPath)
	assert.Equal(t, "file-token", cfg.AccessToken)
	assert.Equal(t, 7*24*time.Hour, cfg.RetentionWindow())
	assert.Equal(t, 150*time.Millisecond, cfg.Debounce())
	// Неуказанные поля остаются дефолтными
	assert.Equal(t, 100, cfg.SyncBatchSize)
}

func TestLoad_EnvOverridesToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ordersync.toml")
	require.NoError(t, os.WriteFile(path, []byte(`access_token = "file-token"`), 0o600))

	t.Setenv("ORDERSYNC_ACCESS_TOKEN", "env-token")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.AccessToken)
}

func TestLoad_InvalidToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ordersync.toml")
	require.NoError(t, os.WriteFile(path, []byte(`server_url = [broken`), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ordersync.toml")
	require.NoError(t, os.WriteFile(path, []byte(`sync_batch_size = -1`), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
