package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradedesk/internal/core"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigFile(writeConfig(t, "")).Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "BTC-USDT", cfg.Session.Instrument)
	assert.Equal(t, "binance", cfg.Session.Connector)
	assert.Equal(t, 25, cfg.Session.CycleLimit)
	assert.Equal(t, 30*time.Second, cfg.Session.CycleDelay)
	assert.Equal(t, 3.0, cfg.Risk.MaxSessionRiskPct)
	assert.Equal(t, 1.0, cfg.Risk.RiskPerTradePct)
	assert.Equal(t, 30*time.Second, cfg.Gateway.Timeout)
	assert.False(t, cfg.API.Enabled)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	file := writeConfig(t, `
session:
  instrument: ETH-USDT
  cycle_limit: 10
risk:
  max_session_risk_pct: 2.5
  risk_per_trade_pct: 0.5
`)
	cfg, err := NewLoader().WithConfigFile(file).Load()
	require.NoError(t, err)

	assert.Equal(t, "ETH-USDT", cfg.Session.Instrument)
	assert.Equal(t, 10, cfg.Session.CycleLimit)
	assert.Equal(t, 2.5, cfg.Risk.MaxSessionRiskPct)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("TRADEDESK_SESSION_INSTRUMENT", "SOL-USDT")

	cfg, err := NewLoader().WithConfigFile(writeConfig(t, "session:\n  instrument: ETH-USDT\n")).Load()
	require.NoError(t, err)
	assert.Equal(t, "SOL-USDT", cfg.Session.Instrument)
}

func TestLoad_ValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"cycle limit too low", "session:\n  cycle_limit: 2\n"},
		{"cycle limit too high", "session:\n  cycle_limit: 500\n"},
		{"risk pct out of range", "risk:\n  max_session_risk_pct: 150\n"},
		{"per-trade above session", "risk:\n  risk_per_trade_pct: 5.0\n"},
		{"missing instrument", "session:\n  instrument: \"\"\n"},
		{"zero gateway timeout", "gateway:\n  timeout: 0s\n"},
		{"window exceeds duration", "session:\n  trading_window: 10h\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLoader().WithConfigFile(writeConfig(t, tc.yaml)).Load()
			require.Error(t, err)
			assert.True(t, core.IsCategory(err, core.ErrCatValidation), "expected validation error, got %v", err)
		})
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
