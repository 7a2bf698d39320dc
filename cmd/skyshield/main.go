// Command skyshield runs an engagement scenario through the defense
// core and prints a summary of the outcome. Scenarios come from a JSON
// file or the built-in mixed raid; runs can be recorded to sqlite for
// the report tools.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/skyshield/internal/config"
	"github.com/banshee-data/skyshield/internal/defense/sim"
	"github.com/banshee-data/skyshield/internal/defense/store"
	"github.com/banshee-data/skyshield/internal/version"
)

func main() {
	var (
		scenarioPath = flag.String("scenario", "", "Path to a scenario JSON file (default: built-in mixed raid)")
		tuningPath   = flag.String("tuning", "", "Path to a tuning JSON file (default: built-in defaults)")
		dbPath       = flag.String("db", "", "Record the run to this sqlite database")
		duration     = flag.Float64("duration", 0, "Override scenario duration in seconds")
		seed         = flag.Int64("seed", -1, "Override scenario random seed")
		showVersion  = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("skyshield %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	scenario := sim.DefaultScenario()
	if *scenarioPath != "" {
		loaded, err := sim.LoadScenario(*scenarioPath)
		if err != nil {
			log.Fatalf("Failed to load scenario: %v", err)
		}
		scenario = loaded
	}
	if *duration > 0 {
		scenario.Duration = *duration
	}
	if *seed >= 0 {
		scenario.Seed = *seed
	}

	tuning := config.EmptyTuningConfig()
	if *tuningPath != "" {
		loaded, err := config.LoadTuningConfig(*tuningPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
		tuning = loaded
	}

	var recorder *store.Store
	if *dbPath != "" {
		s, err := store.Open(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer s.Close()
		recorder = s
	}

	engine, err := sim.NewEngine(scenario, tuning, recorder)
	if err != nil {
		log.Fatalf("Failed to build engine: %v", err)
	}

	fmt.Printf("Running scenario %q: %d batteries, %d threats, %.0fs at %.2fs ticks (seed %d)\n",
		scenario.Name, len(scenario.Batteries), len(scenario.Threats),
		scenario.Duration, scenario.Step, scenario.Seed)

	stats := engine.Run()
	printSummary(stats, engine.Detonations())

	if recorder != nil {
		fmt.Printf("Run recorded to %s\n", *dbPath)
	}

	if stats.ThreatsImpacted > 0 {
		os.Exit(1)
	}
}

func printSummary(stats sim.Stats, detonations []sim.DetonationEvent) {
	fmt.Printf("\nOutcome after %d ticks:\n", stats.Ticks)
	fmt.Printf("  threats spawned:       %d\n", stats.ThreatsSpawned)
	fmt.Printf("  threats killed:        %d\n", stats.ThreatsKilled)
	fmt.Printf("  threats impacted:      %d\n", stats.ThreatsImpacted)
	fmt.Printf("  interceptors launched: %d\n", stats.InterceptorsLaunched)
	fmt.Printf("  detonations:           %d\n", stats.Detonations)
	fmt.Printf("  interceptors expired:  %d\n", stats.InterceptorsExpired)

	if len(detonations) == 0 {
		return
	}

	distances := make([]float64, len(detonations))
	qualities := make([]float64, len(detonations))
	killProbs := make([]float64, len(detonations))
	kills := 0
	for i, d := range detonations {
		distances[i] = d.Distance
		qualities[i] = d.Quality
		killProbs[i] = d.KillProbability
		if d.Killed {
			kills++
		}
	}

	fmt.Printf("\nDetonation statistics (n=%d):\n", len(detonations))
	fmt.Printf("  miss distance:    mean %.2fm, stddev %.2fm\n",
		stat.Mean(distances, nil), stat.StdDev(distances, nil))
	fmt.Printf("  quality:          mean %.3f, stddev %.3f\n",
		stat.Mean(qualities, nil), stat.StdDev(qualities, nil))
	fmt.Printf("  kill probability: mean %.3f\n", stat.Mean(killProbs, nil))
	fmt.Printf("  kill rate:        %.0f%% (%d/%d)\n",
		100*float64(kills)/float64(len(detonations)), kills, len(detonations))
}
