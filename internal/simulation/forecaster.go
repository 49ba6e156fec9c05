package simulation

import (
	"context"
	"fmt"
	"time"

	"revforecast/internal/crm"
	"revforecast/internal/stats"

	"github.com/rs/zerolog/log"
)

// Options are the per-call forecast parameters.
type Options struct {
	Trials        int
	TimeframeDays int
	Scenario      Scenario
	TopK          int
}

// SimulationStats is the metadata of the trial distribution.
type SimulationStats struct {
	NumSimulations int     `json:"num_simulations"`
	Min            float64 `json:"min"`
	Max            float64 `json:"max"`
	P5             float64 `json:"p5"`
	P10            float64 `json:"p10"`
	P25            float64 `json:"p25"`
	P50            float64 `json:"p50"`
	P75            float64 `json:"p75"`
	P90            float64 `json:"p90"`
	P95            float64 `json:"p95"`
	ExcludedDeals  int     `json:"excluded_deals"`
}

// Result is the outcome of one forecast call.
type Result struct {
	Scenario           Scenario         `json:"scenario"`
	TimeframeDays      int              `json:"timeframe_days"`
	PredictedRevenue   float64          `json:"predicted_revenue"`
	Confidence         float64          `json:"confidence"`
	BestCase           float64          `json:"best_case"`
	LikelyCase         float64          `json:"likely_case"`
	WorstCase          float64          `json:"worst_case"`
	MeanForecast       float64          `json:"mean_forecast"`
	StandardDeviation  float64          `json:"standard_deviation"`
	PipelineCoverage   float64          `json:"pipeline_coverage"`
	RevenueGoal        float64          `json:"revenue_goal"`
	RequiredPipeline   float64          `json:"required_pipeline"`
	DealsAnalyzed      int              `json:"deals_analyzed"`
	TotalPipelineValue float64          `json:"total_pipeline_value"`
	WeightedPipeline   float64          `json:"weighted_pipeline_value"`
	BreakdownByStage   []StageBreakdown `json:"breakdown_by_stage"`
	ForecastedDeals    []ForecastedDeal `json:"forecasted_deals"`
	SimulationStats    SimulationStats  `json:"simulation_stats"`
	GeneratedAt        time.Time        `json:"generated_at"`
}

// Forecaster turns a set of open deals into a revenue forecast. It holds
// only immutable settings and is safe for concurrent use.
type Forecaster struct {
	trials  int
	workers int
	topK    int
	seed    int64
	seeded  bool
	now     func() time.Time
}

// Option configures a Forecaster.
type Option func(*Forecaster)

// WithTrials sets the default trial count.
func WithTrials(n int) Option {
	return func(f *Forecaster) {
		if n > 0 {
			f.trials = n
		}
	}
}

// WithWorkers bounds per-call parallelism; 0 uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(f *Forecaster) { f.workers = n }
}

// WithTopK sets the default number of ranked deals reported.
func WithTopK(k int) Option {
	return func(f *Forecaster) { f.topK = k }
}

// WithSeed makes every forecast reproducible.
func WithSeed(seed int64) Option {
	return func(f *Forecaster) {
		f.seed = seed
		f.seeded = true
	}
}

// WithClock injects the time source used for age decay and timestamps.
func WithClock(now func() time.Time) Option {
	return func(f *Forecaster) {
		if now != nil {
			f.now = now
		}
	}
}

// NewForecaster creates a Forecaster.
func NewForecaster(opts ...Option) *Forecaster {
	f := &Forecaster{
		trials: DefaultTrials,
		topK:   DefaultTopDeals,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Now returns the forecaster's clock reading.
func (f *Forecaster) Now() time.Time {
	return f.now()
}

// Forecast runs the full pipeline: validation, probability adjustment,
// simulation, aggregation, scenarios, coverage and stage breakdown.
func (f *Forecaster) Forecast(ctx context.Context, deals []crm.Deal, opts Options) (Result, error) {
	if opts.Trials <= 0 {
		opts.Trials = f.trials
	}
	if opts.TopK == 0 {
		opts.TopK = f.topK
	}
	if opts.Scenario == "" {
		opts.Scenario = ScenarioLikely
	}
	now := f.now()

	valid := make([]crm.Deal, 0, len(deals))
	for _, d := range deals {
		if err := d.Validate(); err != nil {
			log.Warn().Err(err).Str("deal", d.ID).Msg("Excluding invalid deal from forecast")
			continue
		}
		valid = append(valid, d)
	}
	excluded := len(deals) - len(valid)

	adjusted := NewAdjuster(func() time.Time { return now }).AdjustAll(valid)

	engine := NewEngine()
	if f.seeded {
		engine.SetSeed(f.seed)
	}
	engine.SetWorkers(f.workers)

	start := time.Now()
	totals, err := engine.Run(ctx, adjusted, opts.Trials)
	if err != nil {
		return Result{}, fmt.Errorf("simulation aborted: %w", err)
	}
	summary := stats.Summarize(totals)

	totalValue, weighted := 0.0, 0.0
	for _, d := range adjusted {
		totalValue += d.Value
		weighted += d.WeightedValue()
	}

	scenarios := ScenariosFrom(summary)
	coverage := CalculateCoverage(totalValue, opts.TimeframeDays)

	result := Result{
		Scenario:           opts.Scenario,
		TimeframeDays:      opts.TimeframeDays,
		PredictedRevenue:   scenarios.Predicted(opts.Scenario),
		Confidence:         summary.Confidence,
		BestCase:           scenarios.Best,
		LikelyCase:         scenarios.Likely,
		WorstCase:          scenarios.Worst,
		MeanForecast:       summary.Mean,
		StandardDeviation:  summary.StdDev,
		PipelineCoverage:   coverage.PipelineCoverage,
		RevenueGoal:        coverage.RevenueGoal,
		RequiredPipeline:   coverage.RequiredPipeline,
		DealsAnalyzed:      len(adjusted),
		TotalPipelineValue: totalValue,
		WeightedPipeline:   weighted,
		BreakdownByStage:   BreakdownByStage(adjusted),
		ForecastedDeals:    RankDeals(adjusted, opts.TopK),
		SimulationStats: SimulationStats{
			NumSimulations: len(totals),
			Min:            summary.Min,
			Max:            summary.Max,
			P5:             summary.P5,
			P10:            summary.P10,
			P25:            summary.P25,
			P50:            summary.P50,
			P75:            summary.P75,
			P90:            summary.P90,
			P95:            summary.P95,
			ExcludedDeals:  excluded,
		},
		GeneratedAt: now.UTC(),
	}

	log.Info().
		Int("deals", result.DealsAnalyzed).
		Int("excluded", excluded).
		Int("trials", len(totals)).
		Float64("predicted", result.PredictedRevenue).
		Float64("confidence", result.Confidence).
		Dur("elapsed", time.Since(start)).
		Msg("Forecast generated")

	return result, nil
}
