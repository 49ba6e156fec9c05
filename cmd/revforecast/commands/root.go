package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"revforecast/internal/config"
	"revforecast/internal/crm"
	"revforecast/internal/forecast"
	"revforecast/internal/history"
	"revforecast/internal/logging"
	"revforecast/internal/mcp"
	"revforecast/internal/simulation"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "revforecast",
	Short: "revforecast is a Monte-Carlo revenue forecasting engine for a sales CRM",
	Long: `Forecasts revenue from the open deal pipeline by adjusting each deal's win probability
for stage and age, then running thousands of Monte-Carlo trials to produce best, likely and
worst case outcomes. Without a subcommand it serves the MCP tools over stdio.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)

		var err error
		cfg, err = config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("command", cmd.Name()).
			Msg("revforecast starting")
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP(cmd.Context())
	},
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// newForecaster builds the simulation engine from configuration, with
// per-invocation overrides for trials and seed.
func newForecaster(trials int, seed int64) *simulation.Forecaster {
	if trials <= 0 {
		trials = cfg.Forecast.Trials
	}
	if seed == 0 {
		seed = cfg.Forecast.Seed
	}

	opts := []simulation.Option{
		simulation.WithTrials(trials),
		simulation.WithWorkers(cfg.Forecast.Workers),
		simulation.WithTopK(cfg.Forecast.TopDeals),
	}
	if seed != 0 {
		opts = append(opts, simulation.WithSeed(seed))
	}
	return simulation.NewForecaster(opts...)
}

// newService wires the forecaster, the CRM client and the history store.
func newService(f *simulation.Forecaster) (*forecast.Service, error) {
	store, err := history.Open(cfg.HistoryDir)
	if err != nil {
		return nil, err
	}
	return forecast.NewService(f, crm.NewClient(cfg.Backend), store), nil
}

func runMCP(ctx context.Context) error {
	svc, err := newService(newForecaster(0, 0))
	if err != nil {
		return err
	}
	server, err := mcp.NewServer(svc, Version)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}
