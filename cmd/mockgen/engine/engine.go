package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"revforecast/internal/crm"
)

// GeneratorConfig controls the synthetic pipeline.
type GeneratorConfig struct {
	Scenario      string // "steady", "stale" or "whale"
	Count         int
	Seed          int64
	IncludeClosed bool
	Now           time.Time
}

var titlePrefixes = []string{
	"Enterprise Plan", "Annual Subscription", "Platform Upgrade", "New Business",
	"Expansion Deal", "Strategic Partnership", "Implementation",
	"Professional Services", "Custom Solution", "Team License",
}

var companies = []string{
	"Acme Corp", "TechStart Inc", "Global Solutions", "Digital Systems",
	"Innovation Labs", "Cloud Services Co", "Data Dynamics", "AI Ventures",
	"Future Tech", "Scale Partners", "Growth Systems", "Quantum Corp",
	"Nexus Group", "Velocity Inc", "Horizon Tech", "Summit Solutions",
	"Apex Systems", "Prime Ventures", "Catalyst Partners", "Momentum LLC",
}

// probabilityBands are the [min, max] rep-entered win percentages per stage.
var probabilityBands = map[crm.Stage][2]float64{
	crm.StageLead:        {10, 30},
	crm.StageQualified:   {25, 50},
	crm.StageProposal:    {40, 70},
	crm.StageNegotiation: {60, 90},
}

var openStages = []crm.Stage{crm.StageLead, crm.StageQualified, crm.StageProposal, crm.StageNegotiation}

// Generate builds a deterministic synthetic pipeline for the given seed.
func Generate(cfg GeneratorConfig) []crm.Deal {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	deals := make([]crm.Deal, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		stage := openStages[rng.Intn(len(openStages))]
		if cfg.IncludeClosed && rng.Float64() < 0.15 {
			stage = crm.StageClosedWon
			if rng.Float64() < 0.5 {
				stage = crm.StageClosedLost
			}
		}

		// Created 0-240 days ago; stale pipelines skew toward the old end.
		ageDays := rng.Float64() * 240
		if cfg.Scenario == "stale" {
			ageDays = 240 * math.Sqrt(rng.Float64())
		}
		created := cfg.Now.Add(-days(ageDays))
		closeDate := cfg.Now.Add(days(rng.Float64() * 120))

		company := companies[rng.Intn(len(companies))]
		deals = append(deals, crm.Deal{
			ID:          fmt.Sprintf("MOCK-%04d", i+1),
			Title:       fmt.Sprintf("%s - %s", titlePrefixes[rng.Intn(len(titlePrefixes))], company),
			Company:     company,
			Value:       sampleValue(rng, cfg.Scenario, i),
			Stage:       stage,
			Probability: sampleProbability(rng, stage),
			CreatedAt:   created.UTC().Truncate(time.Second),
			CloseDate:   ptr(closeDate.UTC().Truncate(time.Second)),
		})
	}
	return deals
}

// sampleValue draws a deal size, skewed toward the mid-market band.
func sampleValue(rng *rand.Rand, scenario string, i int) float64 {
	// Whale: the first few deals dwarf the rest of the pipeline.
	if scenario == "whale" && i < 3 {
		return round2(500000 + rng.Float64()*1500000)
	}
	u := rng.Float64()
	switch {
	case u < 0.6:
		return round2(25000 + rng.Float64()*75000)
	case u < 0.85:
		return round2(100000 + rng.Float64()*150000)
	default:
		return round2(10000 + rng.Float64()*15000)
	}
}

func sampleProbability(rng *rand.Rand, stage crm.Stage) float64 {
	switch stage {
	case crm.StageClosedWon:
		return 100
	case crm.StageClosedLost:
		return 0
	}
	band := probabilityBands[stage]
	return math.Round(band[0] + rng.Float64()*(band[1]-band[0]))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func days(n float64) time.Duration {
	return time.Duration(n * 24 * float64(time.Hour))
}

func ptr[T any](v T) *T {
	return &v
}

// Save writes deals as a JSON array consumable by `revforecast forecast --deals`.
func Save(path string, deals []crm.Deal) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(deals); err != nil {
		return fmt.Errorf("failed to encode deals: %w", err)
	}
	return f.Close()
}
