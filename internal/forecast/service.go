package forecast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"revforecast/internal/crm"
	"revforecast/internal/history"
	"revforecast/internal/simulation"

	"github.com/rs/zerolog/log"
)

// MaxTrials caps caller-requested simulation counts.
const MaxTrials = 100000

var (
	// ErrInvalidArgument marks request validation failures.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrBackend marks failures fetching deals from the CRM backend.
	ErrBackend = errors.New("backend unavailable")
)

// Request describes one forecast call. Deals, when non-nil, are forecast
// directly instead of being fetched for the workspace.
type Request struct {
	WorkspaceID string
	Timeframe   string
	Scenario    string
	Trials      int
	Deals       []crm.Deal
}

// Response is a stored forecast result.
type Response struct {
	ForecastID  string `json:"forecast_id"`
	WorkspaceID string `json:"workspace_id"`
	Timeframe   string `json:"timeframe"`
	simulation.Result
}

// Service ties the deal source, the forecaster and the history store
// together for the HTTP and MCP surfaces.
type Service struct {
	forecaster *simulation.Forecaster
	deals      crm.Client
	store      *history.Store
	metrics    *Metrics
}

// NewService creates a Service. deals may be nil when only caller-supplied
// deals are forecast.
func NewService(f *simulation.Forecaster, deals crm.Client, store *history.Store) *Service {
	if store == nil {
		store = history.NewStore("")
	}
	return &Service{forecaster: f, deals: deals, store: store}
}

// WithMetrics makes the service record Prometheus metrics.
func (s *Service) WithMetrics(m *Metrics) *Service {
	s.metrics = m
	return s
}

// Forecast validates the request, gathers the open pipeline, runs the
// simulation and records the result.
func (s *Service) Forecast(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	resp, err := s.forecast(ctx, req)

	outcome := outcomeOK
	switch {
	case errors.Is(err, ErrInvalidArgument):
		outcome = outcomeInvalid
	case errors.Is(err, ErrBackend):
		outcome = outcomeBackendErr
	case err != nil:
		outcome = outcomeError
	}
	s.metrics.observeForecast(outcome, time.Since(start), resp.DealsAnalyzed)
	return resp, err
}

func (s *Service) forecast(ctx context.Context, req Request) (Response, error) {
	days, err := simulation.ParseTimeframe(req.Timeframe)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	scenario, err := simulation.ParseScenario(req.Scenario)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if req.Trials < 0 || req.Trials > MaxTrials {
		return Response{}, fmt.Errorf("%w: num_simulations must be between 0 (default) and %d", ErrInvalidArgument, MaxTrials)
	}

	workspace := strings.TrimSpace(req.WorkspaceID)
	deals := req.Deals
	if deals == nil {
		if workspace == "" {
			return Response{}, fmt.Errorf("%w: workspace_id is required", ErrInvalidArgument)
		}
		if s.deals == nil {
			return Response{}, fmt.Errorf("%w: no CRM backend configured", ErrBackend)
		}
		fetched, err := s.deals.ListDeals(ctx, workspace)
		if err != nil {
			return Response{}, fmt.Errorf("%w: %w", ErrBackend, err)
		}
		deals = fetched
	}

	open := crm.OpenPipeline(deals, days, s.forecaster.Now())
	log.Debug().
		Str("workspace", workspace).
		Int("fetched", len(deals)).
		Int("open", len(open)).
		Msg("Filtered open pipeline")

	res, err := s.forecaster.Forecast(ctx, open, simulation.Options{
		Trials:        req.Trials,
		TimeframeDays: days,
		Scenario:      scenario,
	})
	if err != nil {
		return Response{}, err
	}

	rec, err := s.store.Add(workspace, res)
	if err != nil {
		// The record stays in memory when the save fails.
		log.Error().Err(err).Str("forecast", rec.ID).Msg("Failed to persist forecast history")
	}

	return Response{
		ForecastID:  rec.ID,
		WorkspaceID: workspace,
		Timeframe:   fmt.Sprintf("%dd", days),
		Result:      res,
	}, nil
}

// TrackAccuracy resolves a stored forecast against the actual revenue.
func (s *Service) TrackAccuracy(forecastID string, actual float64) (history.Accuracy, error) {
	acc, err := s.store.TrackAccuracy(forecastID, actual)
	if errors.Is(err, history.ErrInvalidActual) {
		return acc, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if err == nil {
		s.metrics.observeAccuracy(acc.AccuracyScore)
	}
	return acc, err
}

// History lists stored forecasts for a workspace, newest first.
func (s *Service) History(workspaceID string) []history.Record {
	return s.store.List(strings.TrimSpace(workspaceID))
}
