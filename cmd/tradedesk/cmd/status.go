package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"tradedesk/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of a running session",
	Long: `Status queries the read-only API of a tradedesk instance started with
--api and prints the session summary.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().String("addr", "", "status API address (overrides config)")
	_ = flagViper.BindPFlag("api.addr", statusCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	loader := config.NewLoaderWithViper(flagViper)
	if cfgFile != "" {
		loader = loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + cfg.API.Addr + "/api/v1/session")
	if err != nil {
		return fmt.Errorf("querying status API at %s: %w", cfg.API.Addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		fmt.Fprintln(cmd.OutOrStdout(), "no active session")
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status API returned %d", resp.StatusCode)
	}

	var summary struct {
		SessionID     string  `json:"session_id"`
		Phase         string  `json:"phase"`
		Duration      int64   `json:"duration"`
		Balance       float64 `json:"balance"`
		PnL           float64 `json:"pnl"`
		PnLPct        float64 `json:"pnl_pct"`
		Trades        int     `json:"trades"`
		OpenPositions int     `json:"open_positions"`
		Alerts        int     `json:"alerts"`
		EmergencyStop bool    `json:"emergency_stop"`
		StopReason    string  `json:"stop_reason"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return fmt.Errorf("decoding status response: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "session   %s\n", summary.SessionID)
	fmt.Fprintf(out, "phase     %s\n", summary.Phase)
	fmt.Fprintf(out, "duration  %s\n", time.Duration(summary.Duration))
	fmt.Fprintf(out, "balance   %.2f\n", summary.Balance)
	fmt.Fprintf(out, "pnl       %.2f (%.2f%%)\n", summary.PnL, summary.PnLPct)
	fmt.Fprintf(out, "trades    %d\n", summary.Trades)
	fmt.Fprintf(out, "positions %d\n", summary.OpenPositions)
	fmt.Fprintf(out, "alerts    %d\n", summary.Alerts)
	if summary.EmergencyStop {
		fmt.Fprintf(out, "EMERGENCY STOP: %s\n", summary.StopReason)
	}
	return nil
}
