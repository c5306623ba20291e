package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMonitor_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := LoadMonitor()
	require.NoError(t, err)
	assert.Equal(t, DefaultMonitor(), cfg)
	assert.Equal(t, 100*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.PollTimeout)
	assert.False(t, cfg.TLS.Enabled())
}

func TestLoadMonitor_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.yaml")
	content := `
device: Analog3@sensors:6000
poll_interval: 250ms
poll_timeout: 2s
repo_type: sqlite
retention: 2h
tls:
  cert: /etc/certs/monitor.pem
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DB_PATH", "/var/lib/analog.db")
	t.Setenv("POLL_INTERVAL", "50ms")

	cfg, err := LoadMonitor()
	require.NoError(t, err)
	assert.Equal(t, "Analog3@sensors:6000", cfg.Device)
	assert.Equal(t, 50*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 2*time.Second, cfg.PollTimeout)
	assert.Equal(t, "sqlite", cfg.RepoType)
	assert.Equal(t, "/var/lib/analog.db", cfg.DBPath)
	assert.Equal(t, 2*time.Hour, cfg.Retention)
	assert.True(t, cfg.TLS.Enabled())
}

func TestLoadMonitor_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad duration", env: map[string]string{"POLL_INTERVAL": "soon"}},
		{name: "bad poll timeout", env: map[string]string{"POLL_TIMEOUT": "5 parsecs"}},
		{name: "bad repo", env: map[string]string{"REPO_TYPE": "postgres"}},
		{name: "missing file", env: map[string]string{"CONFIG_FILE": "/does/not/exist.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CONFIG_FILE", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadMonitor()
			assert.Error(t, err)
		})
	}
}

func TestLoadServer(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CHANNELS", "16")
	t.Setenv("VARIATION", "0")
	t.Setenv("DEVICE_HOST", "bench-7:50051")

	cfg, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, "bench-7:50051", cfg.Host)
	assert.Equal(t, 16, cfg.Channels)
	assert.Equal(t, 0.0, cfg.Variation)
	assert.Equal(t, "50051", cfg.Port)

	t.Setenv("CHANNELS", "129")
	_, err = LoadServer()
	assert.Error(t, err)

	t.Setenv("CHANNELS", "many")
	_, err = LoadServer()
	assert.Error(t, err)
}
