package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:         viper.New(),
		envPrefix: "TRADEDESK",
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: "TRADEDESK",
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (TRADEDESK_*)
// 3. Project config (.tradedesk.yaml in current directory)
// 4. User config (~/.config/tradedesk/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName(".tradedesk")
		l.v.SetConfigType("yaml")

		// Project config takes precedence over user config.
		l.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "tradedesk"))
		}
	}

	// Read config file (ignore not found)
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	// Log defaults
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	// Session defaults
	l.v.SetDefault("session.market", "crypto")
	l.v.SetDefault("session.instrument", "BTC-USDT")
	l.v.SetDefault("session.connector", "binance")
	l.v.SetDefault("session.initial_balance", 10000.0)
	l.v.SetDefault("session.max_duration", "8h")
	l.v.SetDefault("session.trading_window", "6h")
	l.v.SetDefault("session.cycle_delay", "30s")
	l.v.SetDefault("session.cycle_limit", 25)

	// Risk defaults
	l.v.SetDefault("risk.max_session_risk_pct", 3.0)
	l.v.SetDefault("risk.risk_per_trade_pct", 1.0)
	l.v.SetDefault("risk.max_open_positions", 3)
	l.v.SetDefault("risk.utilization_warn_pct", 70.0)

	// Gateway defaults
	l.v.SetDefault("gateway.base_url", "http://localhost:15888")
	l.v.SetDefault("gateway.timeout", "30s")

	// Audit defaults
	l.v.SetDefault("audit.path", ".tradedesk/audit.db")

	// API defaults
	l.v.SetDefault("api.enabled", false)
	l.v.SetDefault("api.addr", "127.0.0.1:8912")
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}
