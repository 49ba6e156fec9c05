package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"revforecast/internal/crm"
	"revforecast/internal/forecast"

	"github.com/spf13/cobra"
)

var forecastFlags struct {
	dealsFile string
	workspace string
	timeframe string
	scenario  string
	trials    int
	seed      int64
}

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Run a one-shot forecast and print it as JSON",
	Long: `Forecasts either a local deals file (any backend response shape, or the output of mockgen)
or a workspace's pipeline fetched from the CRM backend.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := forecastFlags
		if (f.dealsFile == "") == (f.workspace == "") {
			return errors.New("exactly one of --deals or --workspace is required")
		}

		req := forecast.Request{
			WorkspaceID: f.workspace,
			Timeframe:   f.timeframe,
			Scenario:    f.scenario,
			Trials:      f.trials,
		}
		if f.dealsFile != "" {
			deals, err := readDeals(f.dealsFile)
			if err != nil {
				return err
			}
			req.Deals = deals
		}

		svc, err := newService(newForecaster(f.trials, f.seed))
		if err != nil {
			return err
		}
		resp, err := svc.Forecast(cmd.Context(), req)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

func readDeals(path string) ([]crm.Deal, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open deals file: %w", err)
		}
		defer file.Close()
		r = file
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read deals: %w", err)
	}
	deals, err := crm.DecodeDeals(body)
	if err != nil {
		return nil, err
	}
	if deals == nil {
		deals = []crm.Deal{}
	}
	return deals, nil
}

func init() {
	fl := forecastCmd.Flags()
	fl.StringVar(&forecastFlags.dealsFile, "deals", "", "JSON file of deals to forecast ('-' for stdin)")
	fl.StringVar(&forecastFlags.workspace, "workspace", "", "workspace to fetch from the CRM backend")
	fl.StringVar(&forecastFlags.timeframe, "timeframe", "30d", "forecast horizon: 30d, 60d or 90d")
	fl.StringVar(&forecastFlags.scenario, "scenario", "likely", "reported scenario: best, likely or worst")
	fl.IntVar(&forecastFlags.trials, "trials", 0, "Monte-Carlo trials (default FORECAST_TRIALS)")
	fl.Int64Var(&forecastFlags.seed, "seed", 0, "random seed for a reproducible run (default FORECAST_SEED)")
	rootCmd.AddCommand(forecastCmd)
}
