// Package cmd implements the tradedesk CLI.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	// Version info - set via SetVersion()
	appVersion string
	appCommit  string
	appDate    string

	// flagViper carries CLI flag bindings into the config loader.
	flagViper = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "tradedesk",
	Short: "Phase-sequenced intraday trading session runner",
	Long: `tradedesk runs a trading session as a phase-sequenced workflow:
pre-market checks, session-open analysis, active trading, and post-market
review, with per-step audit logging and a hard emergency-stop latch.

Sessions talk to a broker gateway over HTTP and never trade past the
configured risk limits.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: .tradedesk.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto",
		"log format (auto, text, json)")

	// Bind flags to viper (errors are nil when flag exists)
	_ = flagViper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = flagViper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}
