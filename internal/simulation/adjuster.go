package simulation

import (
	"math"
	"time"

	"revforecast/internal/crm"
)

const (
	// ageHorizonDays sets the slope of the linear age decay.
	ageHorizonDays = 180.0
	ageFloor       = 0.5
)

// stageMultipliers scale a deal's asserted probability by pipeline position.
var stageMultipliers = map[crm.Stage]float64{
	crm.StageLead:        0.7,
	crm.StageQualified:   0.85,
	crm.StageProposal:    1.0,
	crm.StageNegotiation: 1.1,
	crm.StageClosedWon:   1.0,
	crm.StageClosedLost:  0.0,
}

// AdjustedDeal is a deal with its stage- and age-corrected win probability.
type AdjustedDeal struct {
	crm.Deal
	AdjustedProbability float64
}

// WeightedValue is the deal's expected contribution.
func (d AdjustedDeal) WeightedValue() float64 {
	return d.Value * d.AdjustedProbability
}

// Adjuster converts raw deal probabilities into adjusted ones.
type Adjuster struct {
	now func() time.Time
}

// NewAdjuster creates an adjuster that measures deal age against now.
func NewAdjuster(now func() time.Time) *Adjuster {
	if now == nil {
		now = time.Now
	}
	return &Adjuster{now: now}
}

// StageMultiplier returns the multiplier for a stage; unknown stages are neutral.
func StageMultiplier(s crm.Stage) float64 {
	if m, ok := stageMultipliers[s]; ok {
		return m
	}
	return 1.0
}

// AgeMultiplier decays linearly with age down to ageFloor.
// A missing or future creation time is treated as neutral.
func AgeMultiplier(createdAt, now time.Time) float64 {
	if createdAt.IsZero() || createdAt.After(now) {
		return 1.0
	}
	daysOld := now.Sub(createdAt).Hours() / 24.0
	return max(1-daysOld/ageHorizonDays, ageFloor)
}

// Adjust returns the adjusted probability of a single deal, clamped to [0, 1].
func (a *Adjuster) Adjust(d crm.Deal) float64 {
	base := d.Probability / 100.0
	adjusted := base * StageMultiplier(d.Stage) * AgeMultiplier(d.CreatedAt, a.now())
	return clamp01(adjusted)
}

// AdjustAll adjusts every deal, preserving input order.
func (a *Adjuster) AdjustAll(deals []crm.Deal) []AdjustedDeal {
	out := make([]AdjustedDeal, len(deals))
	for i, d := range deals {
		out[i] = AdjustedDeal{Deal: d, AdjustedProbability: a.Adjust(d)}
	}
	return out
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
