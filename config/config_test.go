package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Example(t *testing.T) {
	cfg, err := Load("config.example.yaml")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://api.vinicola.example.com", cfg.Upstream.BaseURL)
	assert.True(t, cfg.Upstream.PollEnabled)
	assert.Equal(t, time.Minute, cfg.Upstream.PollInterval)
	assert.Equal(t, 4, cfg.WorkerPool.Size)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "upstream:\n  base_url: http://backend\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10.0, cfg.Server.RateLimitPerSec)
	assert.Equal(t, 5, cfg.Server.RateLimitBurst)
	assert.Equal(t, 5*time.Minute, cfg.Server.CacheTTL())
	assert.Equal(t, "/deposito/getAllDepositosWithInformations", cfg.Upstream.DepositsPath)
	assert.Equal(t, 30*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 60*time.Second, cfg.Upstream.PollInterval)
	assert.False(t, cfg.Upstream.PollEnabled)
	assert.Equal(t, 3600, cfg.Push.TTL)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.Equal(t, "winery", cfg.MQTT.TopicPrefix)
	assert.Equal(t, "tankd", cfg.MQTT.ClientID)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
upstream:
  timeout_seconds: 5
  poll_interval_seconds: 15
server:
  cache_ttl_seconds: 30
`))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 15*time.Second, cfg.Upstream.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.Server.CacheTTL())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [not, a, map]\n"))
	assert.Error(t, err)
}
