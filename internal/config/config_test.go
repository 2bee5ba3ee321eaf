package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "prospect.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 3, cfg.Pipeline.MaxRetries)
	assert.Equal(t, 72, cfg.Outreach.CooldownHours)
	assert.Equal(t, 1.0, cfg.Outreach.DispatchRPS)
	assert.Equal(t, 1, cfg.Batch.Concurrency)
	assert.Equal(t, "Blake Sells", cfg.Sender.Name)
	assert.Equal(t, "sonar-pro", cfg.Perplexity.Model)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.InDelta(t, 0.005, cfg.Pricing.Perplexity.PerQuery, 1e-9)

	sonnet, ok := cfg.Pricing.Anthropic["claude-sonnet-4-5-20250929"]
	require.True(t, ok)
	assert.InDelta(t, 3.00, sonnet.Input, 1e-9)
	assert.InDelta(t, 15.00, sonnet.Output, 1e-9)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PROSPECT_STORE_DRIVER", "postgres")
	t.Setenv("PROSPECT_STORE_DATABASE_URL", "postgres://localhost/prospect")
	t.Setenv("PROSPECT_PIPELINE_MAX_RETRIES", "5")
	t.Setenv("PROSPECT_OUTREACH_COOLDOWN_HOURS", "24")
	t.Setenv("PROSPECT_LOG_FORMAT", "console")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/prospect", cfg.Store.DatabaseURL)
	assert.Equal(t, 5, cfg.Pipeline.MaxRetries)
	assert.Equal(t, 24, cfg.Outreach.CooldownHours)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	t.Setenv("PROSPECT_STORE_DRIVER", "oracle")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate")
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	require.Error(t, InitLogger(LogConfig{Level: "loud", Format: "json"}))
}
