package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/skyshield/internal/defense/engage"
	"github.com/banshee-data/skyshield/internal/defense/fuse"
	"github.com/banshee-data/skyshield/internal/defense/tracks"
	"github.com/banshee-data/skyshield/internal/geom"
)

// ThreatSpec declares one threat in a scenario. Ballistic threats
// follow gravity from their initial state; drone and cruise threats fly
// a constant-velocity (cruise: weaving) path toward Aim.
type ThreatSpec struct {
	ID       string                `json:"id"`
	Category tracks.ThreatCategory `json:"category"`
	Warhead  fuse.WarheadClass     `json:"warhead"`
	Position geom.Vec3             `json:"position"`
	Velocity geom.Vec3             `json:"velocity"`
	Aim      geom.Vec3             `json:"aim"`
	SpawnAt  float64               `json:"spawn_at"` // seconds after scenario start
}

// Scenario is a complete engagement setup: defended batteries, a raid
// of threats, and the sensor/timing parameters of the run.
type Scenario struct {
	Name     string  `json:"name"`
	Duration float64 `json:"duration"` // s
	Step     float64 `json:"step"`     // s per tick
	Seed     int64   `json:"seed"`

	// NoiseStd is the per-axis standard deviation of simulated sensor
	// noise, in metres.
	NoiseStd float64 `json:"noise_std"`

	Batteries []engage.Battery `json:"batteries"`
	Threats   []ThreatSpec     `json:"threats"`
}

// Validate checks the scenario is runnable.
func (s *Scenario) Validate() error {
	if s.Duration <= 0 {
		return fmt.Errorf("scenario duration must be positive, got %f", s.Duration)
	}
	if s.Step <= 0 {
		return fmt.Errorf("scenario step must be positive, got %f", s.Step)
	}
	if len(s.Batteries) == 0 {
		return fmt.Errorf("scenario has no batteries")
	}
	seen := make(map[string]bool)
	for _, t := range s.Threats {
		if t.ID == "" {
			return fmt.Errorf("threat with empty id")
		}
		if seen[t.ID] {
			return fmt.Errorf("duplicate threat id %q", t.ID)
		}
		seen[t.ID] = true
	}
	return nil
}

// LoadScenario reads a scenario from a JSON file.
func LoadScenario(path string) (*Scenario, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("scenario file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario := &Scenario{}
	if err := json.Unmarshal(data, scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario JSON: %w", err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// DefaultScenario is a small mixed raid against two batteries, used by
// the CLI when no scenario file is given.
func DefaultScenario() *Scenario {
	return &Scenario{
		Name:     "mixed-raid",
		Duration: 60,
		Step:     0.1,
		Seed:     1,
		NoiseStd: 5,
		Batteries: []engage.Battery{
			{
				ID:               "battery-north",
				Position:         geom.Vec3{X: 0, Y: 0, Z: 0},
				MaxRange:         8000,
				InterceptorSpeed: 600,
				LauncherCount:    4,
				Capacity:         12,
				Available:        12,
				Operational:      true,
			},
			{
				ID:               "battery-south",
				Position:         geom.Vec3{X: 3000, Y: 0, Z: 2000},
				MaxRange:         8000,
				InterceptorSpeed: 600,
				LauncherCount:    4,
				Capacity:         12,
				Available:        12,
				Operational:      true,
			},
		},
		Threats: []ThreatSpec{
			{
				ID:       "ballistic-1",
				Category: tracks.CategoryBallistic,
				Warhead:  fuse.WarheadLarge,
				Position: geom.Vec3{X: 6000, Y: 3000, Z: 1000},
				Velocity: geom.Vec3{X: -250, Y: 60, Z: -40},
				SpawnAt:  0,
			},
			{
				ID:       "ballistic-2",
				Category: tracks.CategoryBallistic,
				Warhead:  fuse.WarheadMedium,
				Position: geom.Vec3{X: 7000, Y: 2500, Z: 3000},
				Velocity: geom.Vec3{X: -280, Y: 40, Z: -90},
				SpawnAt:  5,
			},
			{
				ID:       "drone-1",
				Category: tracks.CategoryDrone,
				Warhead:  fuse.WarheadSmall,
				Position: geom.Vec3{X: 5000, Y: 400, Z: -2000},
				Velocity: geom.Vec3{X: -60, Y: 0, Z: 25},
				Aim:      geom.Vec3{X: 0, Y: 0, Z: 0},
				SpawnAt:  2,
			},
			{
				ID:       "cruise-1",
				Category: tracks.CategoryCruise,
				Warhead:  fuse.WarheadMedium,
				Position: geom.Vec3{X: -6000, Y: 150, Z: 4000},
				Velocity: geom.Vec3{X: 200, Y: 0, Z: -130},
				Aim:      geom.Vec3{X: 3000, Y: 0, Z: 2000},
				SpawnAt:  8,
			},
		},
	}
}
