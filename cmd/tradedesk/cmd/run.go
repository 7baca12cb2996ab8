package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tradedesk/internal/adapters/audit"
	"tradedesk/internal/adapters/gateway"
	"tradedesk/internal/api"
	"tradedesk/internal/config"
	"tradedesk/internal/events"
	"tradedesk/internal/logging"
	"tradedesk/internal/orchestrator"
)

// eventBufferSize bounds the non-priority event queue.
const eventBufferSize = 256

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a trading session to completion",
	Long: `Run starts a fresh trading session and drives it through its phases
until shutdown: post-market review done, emergency stop, maximum
duration, or an interrupt signal.

The session id is generated at start and printed on the first log line;
all audit records are keyed by it.`,
	RunE: runSession,
}

func init() {
	runCmd.Flags().String("instrument", "", "trading pair (overrides config)")
	runCmd.Flags().String("connector", "", "gateway connector (overrides config)")
	runCmd.Flags().Bool("api", false, "serve the read-only status API")

	_ = flagViper.BindPFlag("session.instrument", runCmd.Flags().Lookup("instrument"))
	_ = flagViper.BindPFlag("session.connector", runCmd.Flags().Lookup("connector"))
	_ = flagViper.BindPFlag("api.enabled", runCmd.Flags().Lookup("api"))

	rootCmd.AddCommand(runCmd)
}

func runSession(cmd *cobra.Command, _ []string) error {
	loader := config.NewLoaderWithViper(flagViper)
	if cfgFile != "" {
		loader = loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})

	gw := gateway.New(gateway.Config{
		BaseURL:  cfg.Gateway.BaseURL,
		Username: cfg.Gateway.Username,
		Password: cfg.Gateway.Password,
		Timeout:  cfg.Gateway.Timeout,
		Logger:   log,
	})

	store, err := audit.Open(cfg.Audit.Path)
	if err != nil {
		return fmt.Errorf("opening audit store: %w", err)
	}
	defer store.Close()

	bus := events.New(eventBufferSize)
	defer bus.Close()

	// Mirror the session timeline onto the process log.
	stopForwarder := events.LogForwarder(bus, log)
	defer stopForwarder()

	orch, err := orchestrator.New(cfg, gw, store,
		orchestrator.WithLogger(log),
		orchestrator.WithBus(bus),
	)
	if err != nil {
		return fmt.Errorf("building orchestrator: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.API.Enabled {
		server := api.NewServer(orch, api.WithLogger(log), api.WithBus(bus))
		g.Go(func() error {
			return server.ListenAndServe(gctx, cfg.API.Addr)
		})
	}

	g.Go(func() error {
		defer stop() // session over, release the API server too
		return orch.Run(gctx)
	})

	return g.Wait()
}
