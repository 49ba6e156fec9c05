package commands

import (
	"revforecast/internal/api"
	"revforecast/internal/forecast"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the forecasting HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := serveAddr
		if addr == "" {
			addr = cfg.HTTPAddr
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		svc, err := newService(newForecaster(0, 0))
		if err != nil {
			return err
		}
		svc.WithMetrics(forecast.NewMetrics(reg))

		server := api.NewServer(api.Config{
			Addr:        addr,
			Version:     Version,
			CORSOrigins: cfg.CORSOrigins,
			Registry:    reg,
		}, svc)
		return server.Run(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default HTTP_ADDR or :8000)")
	rootCmd.AddCommand(serveCmd)
}
