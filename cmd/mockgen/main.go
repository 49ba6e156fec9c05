package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"revforecast/cmd/mockgen/engine"
)

func main() {
	scenario := flag.String("scenario", "steady", "Scenario to generate: steady, stale, whale")
	out := flag.String("out", "./.cache/deals.json", "Output file for the generated deals")
	count := flag.Int("count", 50, "Number of deals to generate")
	seed := flag.Int64("seed", 1, "Random seed")
	closed := flag.Bool("closed", false, "Include closed won/lost deals")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		Scenario:      *scenario,
		Count:         *count,
		Seed:          *seed,
		IncludeClosed: *closed,
		Now:           time.Now(),
	}

	fmt.Printf("Generating scenario '%s' (Count: %d, Seed: %d) to %s...\n", cfg.Scenario, cfg.Count, cfg.Seed, *out)

	deals := engine.Generate(cfg)
	if err := engine.Save(*out, deals); err != nil {
		fmt.Printf("Failed to save mock data: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Done.")
}
