package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "./output/netflow-categorized/", cfg.OutputDir)
	assert.Equal(t, 1_000_000, cfg.BatchSize)
	assert.Len(t, cfg.EnabledSinks(), 1)
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
dataset: CIC-DDoS-2019
workers: 4
log:
  level: debug
sinks:
  - type: text
    enabled: true
  - type: clickhouse
    enabled: true
    clickhouse:
      host: ch.internal
  - type: nats
    enabled: false
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "CIC-DDoS-2019", cfg.Dataset)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)

	require.Len(t, cfg.Sinks, 3)
	assert.Equal(t, ClickHouseConfig{
		Host:     "ch.internal",
		Port:     9000,
		Database: "default",
		Username: "default",
		Table:    "netflow_records",
	}, cfg.Sinks[1].ClickHouse)
	assert.Equal(t, "cic2nf.flows", cfg.Sinks[2].NATS.SubjectPrefix)
	assert.Len(t, cfg.EnabledSinks(), 2)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "workers: [1, 2"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no dataset", func(c *Config) { c.Dataset = "" }},
		{"no output dir", func(c *Config) { c.OutputDir = "" }},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"untyped sink", func(c *Config) { c.Sinks = append(c.Sinks, SinkConfig{Enabled: true}) }},
		{"nothing enabled", func(c *Config) { c.Sinks[0].Enabled = false }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}
