package simulation

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"testing"

	"revforecast/internal/crm"
)

func seededForecaster(seed int64) *Forecaster {
	return NewForecaster(WithSeed(seed), WithClock(fixedClock))
}

func samplePipeline(n int) []crm.Deal {
	stages := []crm.Stage{crm.StageLead, crm.StageQualified, crm.StageProposal, crm.StageNegotiation}
	deals := make([]crm.Deal, n)
	for i := range deals {
		deals[i] = crm.Deal{
			ID:          fmt.Sprintf("deal-%d", i),
			Value:       float64(10000 + 7919*i%90000),
			Stage:       stages[i%len(stages)],
			Probability: float64(30 + (i*13)%60),
			CreatedAt:   daysAgo(i % 120),
		}
	}
	return deals
}

func TestForecast_EmptyInput(t *testing.T) {
	res, err := seededForecaster(1).Forecast(context.Background(), nil, Options{TimeframeDays: 30})
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}

	if res.BestCase != 0 || res.LikelyCase != 0 || res.WorstCase != 0 || res.PredictedRevenue != 0 {
		t.Errorf("expected zero scenarios, got %+v", res)
	}
	if res.Confidence != 0 {
		t.Errorf("expected zero confidence, got %v", res.Confidence)
	}
	if res.DealsAnalyzed != 0 {
		t.Errorf("expected 0 deals analyzed, got %d", res.DealsAnalyzed)
	}
	if res.PipelineCoverage != 0 || res.RevenueGoal != 0 {
		t.Errorf("expected zero coverage, got %v / %v", res.PipelineCoverage, res.RevenueGoal)
	}

	// Empty arrays, not null, on the wire.
	out, _ := json.Marshal(res)
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	for _, key := range []string{"breakdown_by_stage", "forecasted_deals"} {
		if arr, ok := decoded[key].([]any); !ok || len(arr) != 0 {
			t.Errorf("expected %s to be an empty array, got %v", key, decoded[key])
		}
	}
}

func TestForecast_SeedIsReproducible(t *testing.T) {
	deals := samplePipeline(25)
	opts := Options{TimeframeDays: 60, Scenario: ScenarioBest}

	a, err := seededForecaster(42).Forecast(context.Background(), deals, opts)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	b, err := NewForecaster(WithSeed(42), WithClock(fixedClock), WithWorkers(1)).Forecast(context.Background(), deals, opts)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}

	if !reflect.DeepEqual(a, b) {
		t.Error("seeded forecasts are not identical")
	}
}

func TestForecast_UnseededStability(t *testing.T) {
	deals := samplePipeline(30)
	f := NewForecaster(WithClock(fixedClock))

	a, err := f.Forecast(context.Background(), deals, Options{TimeframeDays: 30})
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	b, err := f.Forecast(context.Background(), deals, Options{TimeframeDays: 30})
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}

	if a.LikelyCase == 0 {
		t.Fatal("expected a non-zero likely case")
	}
	if drift := math.Abs(a.LikelyCase-b.LikelyCase) / a.LikelyCase; drift >= 0.1 {
		t.Errorf("p50 drifted %.3f between runs", drift)
	}
}

func TestForecast_OrderingInvariant(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		deals := samplePipeline(int(seed) * 7)
		res, err := seededForecaster(seed).Forecast(context.Background(), deals, Options{Trials: 2000, TimeframeDays: 90})
		if err != nil {
			t.Fatalf("Forecast() error = %v", err)
		}
		if res.WorstCase > res.LikelyCase || res.LikelyCase > res.BestCase {
			t.Errorf("seed %d: ordering violated: worst=%v likely=%v best=%v", seed, res.WorstCase, res.LikelyCase, res.BestCase)
		}
		if res.Confidence < 0 || res.Confidence > 1 {
			t.Errorf("seed %d: confidence %v outside [0, 1]", seed, res.Confidence)
		}
	}
}

func TestForecast_CertainDeal(t *testing.T) {
	deals := []crm.Deal{
		{ID: "sure", Value: 250000, Probability: 100, Stage: crm.StageNegotiation, CreatedAt: refNow},
	}

	res, err := seededForecaster(7).Forecast(context.Background(), deals, Options{TimeframeDays: 30})
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}

	if got := res.ForecastedDeals[0].AdjustedProbability; got != 1.0 {
		t.Errorf("expected adjusted probability clamped to 1.0, got %v", got)
	}
	if res.LikelyCase != 250000 || res.BestCase != 250000 {
		t.Errorf("expected likely and best to equal the deal value, got %v / %v", res.LikelyCase, res.BestCase)
	}
	if res.MeanForecast < 0.92*250000 {
		t.Errorf("expected mean close to the deal value, got %v", res.MeanForecast)
	}
	if res.Confidence < 0.7 {
		t.Errorf("expected high confidence, got %v", res.Confidence)
	}
}

func TestForecast_ImpossibleDealDoesNotChangeScenarios(t *testing.T) {
	base := samplePipeline(12)
	withDead := append([]crm.Deal{}, base[:6]...)
	withDead = append(withDead, crm.Deal{ID: "dead", Value: 900000, Probability: 0, Stage: crm.StageProposal})
	withDead = append(withDead, base[6:]...)

	opts := Options{TimeframeDays: 30}
	a, err := seededForecaster(99).Forecast(context.Background(), base, opts)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	b, err := seededForecaster(99).Forecast(context.Background(), withDead, opts)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}

	if a.BestCase != b.BestCase || a.LikelyCase != b.LikelyCase || a.WorstCase != b.WorstCase {
		t.Errorf("scenarios changed: %v/%v/%v vs %v/%v/%v", a.BestCase, a.LikelyCase, a.WorstCase, b.BestCase, b.LikelyCase, b.WorstCase)
	}
	if a.MeanForecast != b.MeanForecast || a.StandardDeviation != b.StandardDeviation {
		t.Errorf("moments changed: %v/%v vs %v/%v", a.MeanForecast, a.StandardDeviation, b.MeanForecast, b.StandardDeviation)
	}
}

func TestForecast_Monotonicity(t *testing.T) {
	deal := func(p float64) []crm.Deal {
		return []crm.Deal{
			{ID: "anchor", Value: 40000, Probability: 60, Stage: crm.StageProposal, CreatedAt: refNow},
			{ID: "moving", Value: 100000, Probability: p, Stage: crm.StageNegotiation, CreatedAt: refNow},
		}
	}

	prev := -1.0
	for _, p := range []float64{0, 20, 50, 80, 100} {
		res, err := seededForecaster(5).Forecast(context.Background(), deal(p), Options{TimeframeDays: 30})
		if err != nil {
			t.Fatalf("Forecast() error = %v", err)
		}
		if res.LikelyCase < prev {
			t.Errorf("likely case decreased from %v to %v when probability rose to %v", prev, res.LikelyCase, p)
		}
		prev = res.LikelyCase
	}
}

func TestForecast_TwoDealScenario(t *testing.T) {
	deals := []crm.Deal{
		{ID: "A", Value: 100000, Probability: 80, Stage: crm.StageNegotiation, CreatedAt: daysAgo(10)},
		{ID: "B", Value: 50000, Probability: 20, Stage: crm.StageLead, CreatedAt: daysAgo(100)},
	}

	res, err := seededForecaster(2024).Forecast(context.Background(), deals, Options{TimeframeDays: 30})
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}

	// A closes in ~83% of trials, so the median outcome is exactly A's value.
	if res.LikelyCase != 100000 {
		t.Errorf("expected likely case 100000, got %v", res.LikelyCase)
	}
	if res.WorstCase != 0 {
		t.Errorf("expected worst case 0, got %v", res.WorstCase)
	}
	if res.BestCase < 100000 || res.BestCase > 150000 {
		t.Errorf("expected best case between 100000 and 150000, got %v", res.BestCase)
	}

	wantMean := 100000*0.8*1.1*(1-10.0/180) + 50000*0.2*0.7*0.5
	if math.Abs(res.MeanForecast-wantMean)/wantMean > 0.05 {
		t.Errorf("mean %v not within 5%% of expected %v", res.MeanForecast, wantMean)
	}
	if res.ForecastedDeals[0].DealID != "A" {
		t.Errorf("expected A to rank first, got %s", res.ForecastedDeals[0].DealID)
	}
	if math.Abs(res.TotalPipelineValue-150000) > 1e-9 {
		t.Errorf("expected pipeline 150000, got %v", res.TotalPipelineValue)
	}
	if math.Abs(res.RevenueGoal-60000) > 1e-6 || math.Abs(res.RequiredPipeline-150000) > 1e-6 {
		t.Errorf("unexpected goal/required: %v / %v", res.RevenueGoal, res.RequiredPipeline)
	}
}

func TestForecast_ExcludesInvalidDeals(t *testing.T) {
	deals := []crm.Deal{
		{ID: "ok", Value: 1000, Probability: 50, Stage: crm.StageProposal},
		{ID: "nan", Value: math.NaN(), Probability: 50, Stage: crm.StageProposal},
		{ID: "neg", Value: -10, Probability: 50, Stage: crm.StageProposal},
		{ID: "inf-prob", Value: 10, Probability: math.Inf(1), Stage: crm.StageProposal},
	}

	res, err := seededForecaster(3).Forecast(context.Background(), deals, Options{TimeframeDays: 30})
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	if res.DealsAnalyzed != 1 {
		t.Errorf("expected 1 deal analyzed, got %d", res.DealsAnalyzed)
	}
	if res.SimulationStats.ExcludedDeals != 3 {
		t.Errorf("expected 3 excluded deals, got %d", res.SimulationStats.ExcludedDeals)
	}
	if res.TotalPipelineValue != 1000 {
		t.Errorf("expected pipeline 1000, got %v", res.TotalPipelineValue)
	}
	if math.IsNaN(res.MeanForecast) {
		t.Error("mean forecast is NaN")
	}
}

func TestForecast_BreakdownSumsToPipeline(t *testing.T) {
	deals := samplePipeline(40)
	res, err := seededForecaster(8).Forecast(context.Background(), deals, Options{Trials: 500, TimeframeDays: 30})
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}

	want := 0.0
	for _, d := range deals {
		want += d.Value
	}
	sum := 0.0
	for _, g := range res.BreakdownByStage {
		sum += g.TotalValue
	}
	if math.Abs(sum-want) > 1e-6 {
		t.Errorf("breakdown sum %v != input sum %v", sum, want)
	}
	if len(res.ForecastedDeals) != DefaultTopDeals {
		t.Errorf("expected %d ranked deals, got %d", DefaultTopDeals, len(res.ForecastedDeals))
	}
	if res.SimulationStats.NumSimulations != 500 {
		t.Errorf("expected 500 simulations, got %d", res.SimulationStats.NumSimulations)
	}
}

func TestForecast_ScenarioSelection(t *testing.T) {
	deals := samplePipeline(10)
	f := seededForecaster(11)

	for _, s := range []Scenario{ScenarioBest, ScenarioLikely, ScenarioWorst} {
		res, err := f.Forecast(context.Background(), deals, Options{TimeframeDays: 30, Scenario: s})
		if err != nil {
			t.Fatalf("Forecast() error = %v", err)
		}
		want := map[Scenario]float64{
			ScenarioBest:   res.BestCase,
			ScenarioLikely: res.LikelyCase,
			ScenarioWorst:  res.WorstCase,
		}[s]
		if res.PredictedRevenue != want {
			t.Errorf("scenario %s: predicted %v, want %v", s, res.PredictedRevenue, want)
		}
	}
}

func TestForecast_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := seededForecaster(1).Forecast(ctx, samplePipeline(3), Options{}); err == nil {
		t.Error("expected an error for a cancelled context")
	}
}
