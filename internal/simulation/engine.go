package simulation

import (
	"context"
	"math/rand"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultTrials is the number of Monte-Carlo trials per forecast.
	DefaultTrials = 10000

	// concentration scales the Beta shape parameters; higher means tighter
	// per-deal probability draws.
	concentration = 10.0
	minShape      = 0.5

	// trialChunks is fixed so that a seeded run partitions identically no
	// matter how many workers execute it.
	trialChunks = 16
)

// Engine performs the Monte-Carlo simulation.
type Engine struct {
	rng     *rand.Rand
	workers int
}

// NewEngine creates an engine seeded from the wall clock.
func NewEngine() *Engine {
	return &Engine{
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		workers: runtime.GOMAXPROCS(0),
	}
}

// SetSeed makes subsequent runs reproducible.
func (e *Engine) SetSeed(seed int64) {
	e.rng = rand.New(rand.NewSource(seed))
}

// SetWorkers bounds the number of goroutines used per run.
func (e *Engine) SetWorkers(n int) {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	e.workers = n
}

// dealParams are the per-deal sampling inputs, computed once per run.
type dealParams struct {
	value float64
	alpha float64
	beta  float64
}

// BetaShape returns the Beta distribution parameters centred on p.
func BetaShape(p float64) (alpha, beta float64) {
	return max(p*concentration, minShape), max((1-p)*concentration, minShape)
}

// Run performs the requested number of trials and returns one total per trial.
// Deals with zero adjusted probability never close and consume no randomness.
func (e *Engine) Run(ctx context.Context, deals []AdjustedDeal, trials int) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if trials <= 0 {
		trials = DefaultTrials
	}
	totals := make([]float64, trials)

	params := make([]dealParams, 0, len(deals))
	for _, d := range deals {
		if d.AdjustedProbability <= 0 || d.Value == 0 {
			continue
		}
		a, b := BetaShape(d.AdjustedProbability)
		params = append(params, dealParams{value: d.Value, alpha: a, beta: b})
	}
	if len(params) == 0 {
		return totals, nil
	}

	chunks := min(trialChunks, trials)
	chunkSize := (trials + chunks - 1) / chunks

	// Per-chunk seeds are drawn up front so the output does not depend on
	// goroutine scheduling.
	seeds := make([]int64, chunks)
	for i := range seeds {
		seeds[i] = e.rng.Int63()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for c := 0; c < chunks; c++ {
		start := c * chunkSize
		end := min(start+chunkSize, trials)
		if start >= end {
			break
		}
		seed := seeds[c]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(seed))
			for t := start; t < end; t++ {
				totals[t] = simulateTrial(rng, params)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return totals, nil
}

// simulateTrial samples a win probability for each deal, then performs a
// Bernoulli closure trial against it.
func simulateTrial(rng *rand.Rand, params []dealParams) float64 {
	total := 0.0
	for _, p := range params {
		q := sampleBeta(rng, p.alpha, p.beta)
		if rng.Float64() < q {
			total += p.value
		}
	}
	return total
}
