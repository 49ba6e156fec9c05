package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"revforecast/internal/forecast"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// ForecastInput are the forecast_revenue arguments.
type ForecastInput struct {
	WorkspaceID    string `json:"workspace_id" jsonschema:"The CRM workspace whose open pipeline is forecast"`
	Timeframe      string `json:"timeframe,omitempty" jsonschema:"Forecast horizon: 30d, 60d or 90d (default 30d)"`
	Scenario       string `json:"scenario,omitempty" jsonschema:"Reported scenario: best, likely or worst (default likely)"`
	NumSimulations int    `json:"num_simulations,omitempty" jsonschema:"Monte-Carlo trials to run (default 10000)"`
}

// AccuracyInput are the track_forecast_accuracy arguments.
type AccuracyInput struct {
	ForecastID    string  `json:"forecast_id" jsonschema:"The forecast_id returned by forecast_revenue"`
	ActualRevenue float64 `json:"actual_revenue" jsonschema:"Revenue that actually closed over the forecast horizon"`
}

func (s *Server) registerTools() error {
	forecastSchema, err := inputSchema[ForecastInput]()
	if err != nil {
		return err
	}
	sdk.AddTool(s.server, &sdk.Tool{
		Name: "forecast_revenue",
		Description: "Run a Monte-Carlo revenue forecast over a workspace's open deal pipeline. " +
			"Each deal's win probability is adjusted for stage and age, then sampled across thousands of trials.\n\n" +
			"Returns best (P95), likely (P50) and worst (P5) cases, confidence, pipeline coverage against a heuristic revenue goal, " +
			"a stage breakdown and the top deals by weighted value.\n" +
			"Guidance: keep the returned forecast_id; call 'track_forecast_accuracy' with it once the period has closed.",
		InputSchema: forecastSchema,
	}, s.forecastRevenue)

	accuracySchema, err := inputSchema[AccuracyInput]()
	if err != nil {
		return err
	}
	sdk.AddTool(s.server, &sdk.Tool{
		Name: "track_forecast_accuracy",
		Description: "Compare a stored forecast with the revenue that actually closed. " +
			"Returns the absolute error, error percentage, an accuracy score (100 minus the error percentage, floored at 0) " +
			"and whether the forecast landed within 15% of the actual.",
		InputSchema: accuracySchema,
	}, s.trackAccuracy)

	return nil
}

func (s *Server) forecastRevenue(ctx context.Context, _ *sdk.CallToolRequest, in ForecastInput) (*sdk.CallToolResult, any, error) {
	resp, err := s.service.Forecast(ctx, forecast.Request{
		WorkspaceID: in.WorkspaceID,
		Timeframe:   in.Timeframe,
		Scenario:    in.Scenario,
		Trials:      in.NumSimulations,
	})
	if err != nil {
		log.Warn().Err(err).Str("workspace", in.WorkspaceID).Msg("forecast_revenue failed")
		return nil, nil, err
	}
	return jsonResult(resp)
}

func (s *Server) trackAccuracy(_ context.Context, _ *sdk.CallToolRequest, in AccuracyInput) (*sdk.CallToolResult, any, error) {
	acc, err := s.service.TrackAccuracy(in.ForecastID, in.ActualRevenue)
	if err != nil {
		log.Warn().Err(err).Str("forecast", in.ForecastID).Msg("track_forecast_accuracy failed")
		return nil, nil, err
	}
	return jsonResult(acc)
}

func jsonResult(v any) (*sdk.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: string(data)}},
	}, nil, nil
}
