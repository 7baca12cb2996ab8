package config

import (
	"time"

	"tradedesk/internal/core"
)

// Config is the full application configuration, loaded once at startup
// and treated as immutable for the session.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Session SessionConfig `mapstructure:"session"`
	Risk    RiskConfig    `mapstructure:"risk"`
	Gateway GatewayConfig `mapstructure:"gateway"`
	Audit   AuditConfig   `mapstructure:"audit"`
	API     APIConfig     `mapstructure:"api"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SessionConfig configures the trading session loop.
type SessionConfig struct {
	Market         string        `mapstructure:"market"`
	Instrument     string        `mapstructure:"instrument"`
	Connector      string        `mapstructure:"connector"`
	InitialBalance float64       `mapstructure:"initial_balance"`
	MaxDuration    time.Duration `mapstructure:"max_duration"`
	TradingWindow  time.Duration `mapstructure:"trading_window"`
	CycleDelay     time.Duration `mapstructure:"cycle_delay"`
	CycleLimit     int           `mapstructure:"cycle_limit"`
}

// RiskConfig configures session risk limits.
type RiskConfig struct {
	MaxSessionRiskPct  float64 `mapstructure:"max_session_risk_pct"`
	RiskPerTradePct    float64 `mapstructure:"risk_per_trade_pct"`
	MaxOpenPositions   int     `mapstructure:"max_open_positions"`
	UtilizationWarnPct float64 `mapstructure:"utilization_warn_pct"`
}

// GatewayConfig configures the broker gateway client.
type GatewayConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AuditConfig configures the audit log store.
type AuditConfig struct {
	Path string `mapstructure:"path"`
}

// APIConfig configures the read-only status HTTP API.
type APIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Validate checks the configuration for values that would produce a
// broken session.
func (c *Config) Validate() error {
	if c.Session.Instrument == "" {
		return core.ErrValidation(core.CodeInvalidConfig, "session.instrument is required")
	}
	if c.Session.Connector == "" {
		return core.ErrValidation(core.CodeInvalidConfig, "session.connector is required")
	}
	if c.Session.InitialBalance < 0 {
		return core.ErrValidation(core.CodeInvalidConfig, "session.initial_balance must not be negative")
	}
	if c.Session.MaxDuration <= 0 {
		return core.ErrValidation(core.CodeInvalidConfig, "session.max_duration must be positive")
	}
	if c.Session.TradingWindow <= 0 || c.Session.TradingWindow > c.Session.MaxDuration {
		return core.ErrValidation(core.CodeInvalidConfig, "session.trading_window must be positive and within max_duration")
	}
	if c.Session.CycleDelay < 0 {
		return core.ErrValidation(core.CodeInvalidConfig, "session.cycle_delay must not be negative")
	}
	if c.Session.CycleLimit < 5 || c.Session.CycleLimit > 100 {
		return core.ErrValidation(core.CodeInvalidCycleLimit, "session.cycle_limit must be between 5 and 100")
	}
	if c.Risk.MaxSessionRiskPct <= 0 || c.Risk.MaxSessionRiskPct > 100 {
		return core.ErrValidation(core.CodeInvalidRiskParams, "risk.max_session_risk_pct must be in (0, 100]")
	}
	if c.Risk.RiskPerTradePct <= 0 || c.Risk.RiskPerTradePct > c.Risk.MaxSessionRiskPct {
		return core.ErrValidation(core.CodeInvalidRiskParams, "risk.risk_per_trade_pct must be in (0, max_session_risk_pct]")
	}
	if c.Risk.MaxOpenPositions <= 0 {
		return core.ErrValidation(core.CodeInvalidRiskParams, "risk.max_open_positions must be positive")
	}
	if c.Gateway.BaseURL == "" {
		return core.ErrValidation(core.CodeInvalidConfig, "gateway.base_url is required")
	}
	if c.Gateway.Timeout <= 0 {
		return core.ErrValidation(core.CodeInvalidConfig, "gateway.timeout must be positive")
	}
	if c.API.Enabled && c.API.Addr == "" {
		return core.ErrValidation(core.CodeInvalidConfig, "api.addr is required when api.enabled")
	}
	return nil
}
