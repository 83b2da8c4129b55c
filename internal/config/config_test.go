package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	require.Equal(t, 8000, c.Server.Port)
	require.Equal(t, "openai", c.Model.Provider)
	require.Equal(t, "sk-test", c.OpenAI.APIKey)
	require.Equal(t, 5*time.Minute, c.Session.TTL)
	require.Equal(t, 8, c.Worker.PoolSize)
	require.Equal(t, filepath.Join("static", "tmp_images"), c.Storage.TempDir())
	require.Equal(t, DefaultSystemPrompt, c.Agent.SystemPrompt)
	require.Equal(t, 2*time.Minute, c.Doubao.Timeout)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 9090
model:
  provider: qwen
session:
  ttl: 90s
worker:
  pool_size: 2
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("IMGEDIT_WORKER_POOL_SIZE", "3")
	t.Setenv("IMGEDIT_QWEN_API_KEY", "dash")

	c, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, c.Server.Port)
	require.Equal(t, "qwen", c.Model.Provider)
	require.Equal(t, 90*time.Second, c.Session.TTL)
	require.Equal(t, 3, c.Worker.PoolSize)
	require.Equal(t, "dash", c.Qwen.APIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown provider", func(c *Config) { c.Model.Provider = "llama" }},
		{"empty pool", func(c *Config) { c.Worker.PoolSize = 0 }},
		{"negative queue", func(c *Config) { c.Worker.QueueSize = -1 }},
		{"zero ttl", func(c *Config) { c.Session.TTL = 0 }},
		{"no temp dir", func(c *Config) { c.Storage.TempSubdir = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Load("")
			require.NoError(t, err)
			tt.mutate(c)
			require.Error(t, c.Validate())
		})
	}
}
