package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paraswap/paraswap-subgraph/internal/feeshare"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "database:\n  name: paraswap\n  user: indexer\n"))
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, int32(10), cfg.Database.MaxConnections)
	assert.Equal(t, 1000, cfg.Processor.BatchSize)
	assert.Equal(t, 4, cfg.Processor.Workers)
	assert.Equal(t, 5*time.Second, cfg.Processor.PollInterval)
	assert.Equal(t, "manifests", cfg.Modules.ManifestsDir)
	assert.False(t, cfg.Realtime.Enabled)
	assert.Empty(t, cfg.Metrics.Addr)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, feeshare.DefaultPolicy(), cfg.FeePolicy())
	assert.Equal(t, "postgres://indexer:@localhost:5432/paraswap?sslmode=disable", cfg.Database.ConnectionString())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("INDEXER_PROCESSOR_BATCH_SIZE", "50")

	cfg, err := Load(writeConfig(t, `
database:
  name: paraswap
processor:
  poll_interval: 2s
fees:
  partner_share_percent: 8000
realtime:
  enabled: true
  api_url: http://localhost:8000/api
`))
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Processor.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Processor.PollInterval)
	assert.Equal(t, int64(8000), cfg.FeePolicy().PartnerSharePercent)
	assert.Equal(t, int64(500), cfg.FeePolicy().MaxFeePercent)
	assert.True(t, cfg.Realtime.Enabled)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing database name", "processor:\n  workers: 2\n"},
		{"zero workers", "database:\n  name: a\nprocessor:\n  workers: 0\n"},
		{"realtime without url", "database:\n  name: a\nrealtime:\n  enabled: true\n"},
		{"share above denominator", "database:\n  name: a\nfees:\n  max_fee_percent: 20000\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
