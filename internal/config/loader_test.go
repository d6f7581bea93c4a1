package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultConfig tests that defaults validate cleanly
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "inout", cfg.Direction)
	assert.Equal(t, "byte", cfg.Mode)
	assert.Equal(t, 1, cfg.MaxInstances)
	assert.Equal(t, 30*time.Second, cfg.ConnectTimeout)
}

// TestConfig_Validate tests rejection of out-of-range values
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad direction", func(c *Config) { c.Direction = "sideways" }},
		{"bad mode", func(c *Config) { c.Mode = "datagram" }},
		{"zero max instances", func(c *Config) { c.MaxInstances = 0 }},
		{"negative buffer", func(c *Config) { c.InputBufferSize = -1 }},
		{"negative timeout", func(c *Config) { c.ConnectTimeout = -time.Second }},
		{"metrics without listen address", func(c *Config) {
			c.Metrics = &MetricsConfig{Enabled: true}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// TestLoad_NoFile tests loading with defaults only
func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "inout", cfg.Direction)
}

// TestLoad_MissingFile tests that a named but absent file is an error
func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

// TestLoad_FromFile tests reading a YAML config file
func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipelink.yaml")
	content := `
endpoint: unix:///tmp/test.sock
direction: out
mode: message
max-instances: 4
input-buffer-size: 65536
connect-timeout: 10s
logging:
  level: debug
  enable-console: true
metrics:
  enabled: true
  listen: 127.0.0.1:9090
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "unix:///tmp/test.sock", cfg.Endpoint)
	assert.Equal(t, "out", cfg.Direction)
	assert.Equal(t, "message", cfg.Mode)
	assert.Equal(t, 4, cfg.MaxInstances)
	assert.Equal(t, int32(65536), cfg.InputBufferSize)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	require.NotNil(t, cfg.Logging)
	assert.Equal(t, "debug", cfg.Logging.Level)
	require.NotNil(t, cfg.Metrics)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9090", cfg.Metrics.Listen)
}

// TestLoad_InvalidFileValues tests that file values still go through validation
func TestLoad_InvalidFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipelink.yaml")
	require.NoError(t, os.WriteFile(path, []byte("direction: sideways\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

// TestLoad_EnvOverride tests PIPELINK_* environment variables over defaults
func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PIPELINK_ENDPOINT", "unix:///tmp/env.sock")
	t.Setenv("PIPELINK_DIRECTION", "in")
	t.Setenv("PIPELINK_MAX_INSTANCES", "3")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "unix:///tmp/env.sock", cfg.Endpoint)
	assert.Equal(t, "in", cfg.Direction)
	assert.Equal(t, 3, cfg.MaxInstances)
}

// TestLoad_EnvOverridesFile tests that the environment wins over the file layer
func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipelink.yaml")
	require.NoError(t, os.WriteFile(path, []byte("direction: out\n"), 0o644))
	t.Setenv("PIPELINK_DIRECTION", "inout")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "inout", cfg.Direction)
}
