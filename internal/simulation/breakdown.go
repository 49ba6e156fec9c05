package simulation

import (
	"cmp"
	"slices"
	"time"

	"revforecast/internal/crm"
)

// DefaultTopDeals is how many ranked deals a forecast reports.
const DefaultTopDeals = 20

// StageBreakdown aggregates the pipeline for one stage.
type StageBreakdown struct {
	Stage          crm.Stage `json:"stage"`
	Deals          int       `json:"deals"`
	TotalValue     float64   `json:"total_value"`
	WeightedValue  float64   `json:"weighted_value"`
	AvgProbability float64   `json:"avg_probability"`
}

// BreakdownByStage groups deals by stage in canonical pipeline order. Stages
// outside the canonical list follow, in first-seen order.
func BreakdownByStage(deals []AdjustedDeal) []StageBreakdown {
	groups := make(map[crm.Stage]*StageBreakdown)
	probSums := make(map[crm.Stage]float64)
	order := make(map[crm.Stage]int)

	for i, s := range crm.CanonicalStages {
		order[s] = i
	}

	var seen []crm.Stage
	for _, d := range deals {
		g, ok := groups[d.Stage]
		if !ok {
			g = &StageBreakdown{Stage: d.Stage}
			groups[d.Stage] = g
			seen = append(seen, d.Stage)
			if _, canonical := order[d.Stage]; !canonical {
				order[d.Stage] = len(crm.CanonicalStages) + len(seen)
			}
		}
		g.Deals++
		g.TotalValue += d.Value
		g.WeightedValue += d.WeightedValue()
		probSums[d.Stage] += d.AdjustedProbability
	}

	slices.SortStableFunc(seen, func(a, b crm.Stage) int {
		return cmp.Compare(order[a], order[b])
	})

	result := make([]StageBreakdown, 0, len(seen))
	for _, s := range seen {
		g := groups[s]
		g.AvgProbability = probSums[s] / float64(g.Deals)
		result = append(result, *g)
	}
	return result
}

// ForecastedDeal is one ranked entry in a forecast.
type ForecastedDeal struct {
	DealID              string     `json:"deal_id"`
	Title               string     `json:"title"`
	Company             string     `json:"company"`
	Value               float64    `json:"value"`
	Stage               crm.Stage  `json:"stage"`
	OriginalProbability float64    `json:"original_probability"`
	AdjustedProbability float64    `json:"adjusted_probability"`
	WeightedValue       float64    `json:"weighted_value"`
	CloseDate           *time.Time `json:"close_date"`
	Confidence          float64    `json:"confidence"`
}

// stageConfidence is the per-deal confidence bonus for later stages.
var stageConfidence = map[crm.Stage]float64{
	crm.StageLead:        0.0,
	crm.StageQualified:   0.05,
	crm.StageProposal:    0.10,
	crm.StageNegotiation: 0.15,
	"closing":            0.20,
}

// DealConfidence rates how settled a single deal's estimate is.
func DealConfidence(s crm.Stage) float64 {
	return clamp01(0.5 + stageConfidence[s])
}

// RankDeals orders deals by weighted value, highest first, keeping input
// order among ties. topK <= 0 returns every deal.
func RankDeals(deals []AdjustedDeal, topK int) []ForecastedDeal {
	ranked := make([]ForecastedDeal, 0, len(deals))
	for _, d := range deals {
		ranked = append(ranked, ForecastedDeal{
			DealID:              d.ID,
			Title:               d.Title,
			Company:             d.Company,
			Value:               d.Value,
			Stage:               d.Stage,
			OriginalProbability: d.Probability / 100.0,
			AdjustedProbability: d.AdjustedProbability,
			WeightedValue:       d.WeightedValue(),
			CloseDate:           d.CloseDate,
			Confidence:          DealConfidence(d.Stage),
		})
	}

	slices.SortStableFunc(ranked, func(a, b ForecastedDeal) int {
		return cmp.Compare(b.WeightedValue, a.WeightedValue)
	})

	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}
