package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:3001", cfg.Listen)
	assert.Equal(t, "@every 1s", cfg.RefreshCron)
	assert.Equal(t, BackendFile, cfg.Storage.Backend)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadReadsYAMLAndNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9000"
timezone: Europe/Berlin
storage:
  backend: SQLite
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "Europe/Berlin", cfg.Timezone)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "./data/events.db", cfg.Storage.Path)
	assert.Equal(t, "@every 1s", cfg.RefreshCron)
	assert.NotNil(t, cfg.CORSOrigins)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":9000\"\n"), 0o600))

	t.Setenv("TIMERDASH_LISTEN", ":9100")
	t.Setenv("TIMERDASH_STORAGE_BACKEND", "redis")
	t.Setenv("TIMERDASH_LOG_JSON", "true")
	t.Setenv("TIMERDASH_BASIC_AUTH_USERNAME", "admin")
	t.Setenv("TIMERDASH_BASIC_AUTH_PASSWORD", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Listen)
	assert.Equal(t, BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, "127.0.0.1:6379", cfg.Storage.URI)
	assert.True(t, cfg.LogJSON)
	require.NotNil(t, cfg.BasicAuth)
	assert.Equal(t, "admin", cfg.BasicAuth.Username)
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unterminated\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Timezone = "Asia/Seoul"
	cfg.CORSOrigins = []string{"http://localhost:5173"}
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestNormalizeUnknownBackend(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{Backend: "cassandra"}}
	cfg.Normalize()
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, "./data/events.json", cfg.Storage.Path)
}

func TestLocation(t *testing.T) {
	assert.Equal(t, time.Local, (&Config{}).Location())
	assert.Equal(t, time.Local, (&Config{Timezone: "Mars/Olympus_Mons"}).Location())
	assert.Equal(t, "UTC", (&Config{Timezone: "UTC"}).Location().String())
}

func TestLoadICSSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ics:
  - id: " team "
    name: Team
    url: https://calendar.example.com/team.ics
  - id: broken
    name: No URL
  - name: No ID
    url: https://calendar.example.com/other.ics
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.ICS, 1)

	src, ok := cfg.ICSSource("team")
	require.True(t, ok)
	assert.Equal(t, "https://calendar.example.com/team.ics", src.URL)

	_, ok = cfg.ICSSource("broken")
	assert.False(t, ok)
}
