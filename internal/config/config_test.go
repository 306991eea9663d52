package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/inventory-mgmt/invctl/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("API_HOST", "")
	t.Setenv("SESSION_STORE", "")
	t.Setenv("REQUEST_TIMEOUT", "")

	c := config.New()
	require.Equal(t, "http://localhost:8000/api", c.GetBaseURL())
	require.Equal(t, c.GetBaseURL(), c.GetHost())
	require.Equal(t, config.StoreFile, c.GetSessionStore())
	require.Equal(t, 15*time.Second, c.GetRequestTimeout())
	require.False(t, c.GetProactiveRefresh())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://inventory.example.com/api/")
	t.Setenv("API_HOST", "https://auth.example.com")
	t.Setenv("SESSION_STORE", "REDIS")
	t.Setenv("REQUEST_TIMEOUT", "3")
	t.Setenv("PROACTIVE_REFRESH", "true")

	c := config.New()
	require.Equal(t, "https://inventory.example.com/api", c.GetBaseURL())
	require.Equal(t, "https://auth.example.com", c.GetHost())
	require.Equal(t, config.StoreRedis, c.GetSessionStore())
	require.Equal(t, 3*time.Second, c.GetRequestTimeout())
	require.True(t, c.GetProactiveRefresh())
}

func TestUnknownStoreFallsBackToFile(t *testing.T) {
	t.Setenv("SESSION_STORE", "localstorage")
	require.Equal(t, config.StoreFile, config.New().GetSessionStore())
}

func TestLoadFileEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_base_url: https://file.example.com/api
request_timeout: 2s
session_store: memory
`), 0o600))

	t.Setenv("API_BASE_URL", "")
	t.Setenv("SESSION_STORE", "")
	t.Setenv("REQUEST_TIMEOUT", "750ms")

	c, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://file.example.com/api", c.GetBaseURL())
	require.Equal(t, config.StoreMemory, c.GetSessionStore())
	require.Equal(t, 750*time.Millisecond, c.GetRequestTimeout())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
