package stats

import "slices"

// Summary describes the distribution of simulated revenue totals.
type Summary struct {
	Count      int     `json:"count"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	P5         float64 `json:"p5"`
	P10        float64 `json:"p10"`
	P25        float64 `json:"p25"`
	P50        float64 `json:"p50"`
	P75        float64 `json:"p75"`
	P90        float64 `json:"p90"`
	P95        float64 `json:"p95"`
	Confidence float64 `json:"confidence"`
}

// Summarize reduces trial totals to moments, percentiles and a confidence
// score in [0, 1]. A zero mean yields an all-zero summary.
func Summarize(totals []float64) Summary {
	s := Summary{Count: len(totals)}
	if len(totals) == 0 {
		return s
	}

	s.Mean = Mean(totals)
	if s.Mean <= 0 {
		s.Mean = 0
		return s
	}
	s.StdDev = StdDev(totals, s.Mean)

	sorted := make([]float64, len(totals))
	copy(sorted, totals)
	slices.Sort(sorted)

	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.P5 = Percentile(sorted, 5)
	s.P10 = Percentile(sorted, 10)
	s.P25 = Percentile(sorted, 25)
	s.P50 = Percentile(sorted, 50)
	s.P75 = Percentile(sorted, 75)
	s.P90 = Percentile(sorted, 90)
	s.P95 = Percentile(sorted, 95)
	s.Confidence = 1 - min(s.StdDev/s.Mean, 1)

	return s
}
