package simulation

import (
	"fmt"
	"strconv"
	"strings"

	"revforecast/internal/stats"
)

// Scenario selects which simulated outcome is reported as the prediction.
type Scenario string

const (
	ScenarioBest   Scenario = "best"
	ScenarioLikely Scenario = "likely"
	ScenarioWorst  Scenario = "worst"
)

// ParseScenario validates a scenario name; empty means likely.
func ParseScenario(s string) (Scenario, error) {
	switch Scenario(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScenarioLikely:
		return ScenarioLikely, nil
	case ScenarioBest:
		return ScenarioBest, nil
	case ScenarioWorst:
		return ScenarioWorst, nil
	}
	return "", fmt.Errorf("invalid scenario %q: must be one of best, likely, worst", s)
}

// AllowedTimeframes are the forecast horizons, in days, the product exposes.
var AllowedTimeframes = []int{30, 60, 90}

// ParseTimeframe accepts "30d", "60d", "90d" (or the bare day count).
func ParseTimeframe(s string) (int, error) {
	v := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "d")
	if v == "" {
		return 30, nil
	}
	days, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid timeframe %q: %w", s, err)
	}
	for _, allowed := range AllowedTimeframes {
		if days == allowed {
			return days, nil
		}
	}
	return 0, fmt.Errorf("invalid timeframe %q: must be one of 30d, 60d, 90d", s)
}

// Scenarios holds the three headline outcomes of a simulation.
type Scenarios struct {
	Best   float64
	Likely float64
	Worst  float64
}

// ScenariosFrom maps simulated percentiles to outcomes: P95 best, P50 likely,
// P5 worst.
func ScenariosFrom(s stats.Summary) Scenarios {
	return Scenarios{
		Best:   s.P95,
		Likely: s.P50,
		Worst:  s.P5,
	}
}

// Predicted returns the outcome for the requested scenario.
func (sc Scenarios) Predicted(s Scenario) float64 {
	switch s {
	case ScenarioBest:
		return sc.Best
	case ScenarioWorst:
		return sc.Worst
	default:
		return sc.Likely
	}
}

const (
	goalPipelineShare = 0.4
	coverageRatio     = 2.5
)

// Coverage relates the open pipeline to an estimated revenue goal.
type Coverage struct {
	RevenueGoal      float64
	PipelineCoverage float64
	RequiredPipeline float64
}

// TimeframeMultiplier scales the goal by horizon length.
func TimeframeMultiplier(days int) float64 {
	switch days {
	case 60:
		return 1.5
	case 90:
		return 2.0
	default:
		return 1.0
	}
}

// CalculateCoverage estimates the goal as a fixed share of the pipeline.
// There is no stored goal to calibrate against; the constants feed
// coverage displays downstream and must stay as they are.
func CalculateCoverage(totalPipeline float64, timeframeDays int) Coverage {
	goal := totalPipeline * goalPipelineShare * TimeframeMultiplier(timeframeDays)
	c := Coverage{
		RevenueGoal:      goal,
		RequiredPipeline: goal * coverageRatio,
	}
	if goal > 0 {
		c.PipelineCoverage = totalPipeline / goal
	}
	return c
}
