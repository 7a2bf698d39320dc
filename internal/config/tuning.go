package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig holds the tunable parameters of the engagement core.
// All fields are pointers so partial JSON configs are safe: fields
// omitted from the file fall back to the Get* defaults.
type TuningConfig struct {
	// Interception solver params
	SolverStep    *float64 `json:"solver_step,omitempty"`    // Ballistic scan step (s)
	SolverHorizon *float64 `json:"solver_horizon,omitempty"` // Max look-ahead (s)

	// Guidance params
	NavigationConstant *float64 `json:"navigation_constant,omitempty"`
	MaxLateralAccel    *float64 `json:"max_lateral_accel,omitempty"` // m/s²

	// Proximity fuse params. optimal_radius must be strictly less than
	// detonation_radius; Validate enforces this when both are set.
	ArmingDistance   *float64 `json:"arming_distance,omitempty"`   // m
	DetonationRadius *float64 `json:"detonation_radius,omitempty"` // m
	OptimalRadius    *float64 `json:"optimal_radius,omitempty"`    // m

	// Estimator params: process noise by threat maneuverability
	// category, measurement noise on position observations.
	ProcessNoiseBallistic *float64 `json:"process_noise_ballistic,omitempty"` // (m/s²)²
	ProcessNoiseDrone     *float64 `json:"process_noise_drone,omitempty"`     // (m/s²)²
	ProcessNoiseCruise    *float64 `json:"process_noise_cruise,omitempty"`    // (m/s²)²
	MeasurementNoise      *float64 `json:"measurement_noise,omitempty"`       // m²

	// Track manager params
	StaleTrackTimeout *string  `json:"stale_track_timeout,omitempty"` // duration string like "500ms"
	MaxMissedUpdates  *int     `json:"max_missed_updates,omitempty"`
	QualityDecay      *float64 `json:"quality_decay,omitempty"`
	TrajectoryHorizon *float64 `json:"trajectory_horizon,omitempty"` // s
	TrajectoryStep    *float64 `json:"trajectory_step,omitempty"`    // s

	// Engagement coordinator params
	AssignmentTimeout  *string  `json:"assignment_timeout,omitempty"` // duration string like "30s"
	RecentFireWindow   *string  `json:"recent_fire_window,omitempty"` // duration string like "2s"
	RecentFirePenalty  *float64 `json:"recent_fire_penalty,omitempty"`
	SelfDefenseRadius  *float64 `json:"self_defense_radius,omitempty"` // m
	SelfDefenseMaxMult *float64 `json:"self_defense_max_mult,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from a file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The path must
// carry a .json extension and the file must be under 1MB. Fields
// omitted from the JSON retain their defaults, so partial configs are
// safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath, searching upward from the current directory.
// Panics if the file cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/defense/<pkg>/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that configured values are usable.
func (c *TuningConfig) Validate() error {
	if c.SolverStep != nil && *c.SolverStep <= 0 {
		return fmt.Errorf("solver_step must be positive, got %f", *c.SolverStep)
	}
	if c.SolverHorizon != nil && *c.SolverHorizon <= 0 {
		return fmt.Errorf("solver_horizon must be positive, got %f", *c.SolverHorizon)
	}
	if c.QualityDecay != nil {
		if *c.QualityDecay <= 0 || *c.QualityDecay > 1 {
			return fmt.Errorf("quality_decay must be in (0,1], got %f", *c.QualityDecay)
		}
	}
	if c.OptimalRadius != nil && c.DetonationRadius != nil {
		if *c.OptimalRadius >= *c.DetonationRadius {
			return fmt.Errorf("optimal_radius (%f) must be strictly less than detonation_radius (%f)",
				*c.OptimalRadius, *c.DetonationRadius)
		}
	}
	for _, d := range []struct {
		name  string
		value *string
	}{
		{"stale_track_timeout", c.StaleTrackTimeout},
		{"assignment_timeout", c.AssignmentTimeout},
		{"recent_fire_window", c.RecentFireWindow},
	} {
		if d.value != nil && *d.value != "" {
			if _, err := time.ParseDuration(*d.value); err != nil {
				return fmt.Errorf("invalid %s '%s': %w", d.name, *d.value, err)
			}
		}
	}
	return nil
}

// GetSolverStep returns the solver_step value or the default.
func (c *TuningConfig) GetSolverStep() float64 {
	if c.SolverStep == nil {
		return 0.1
	}
	return *c.SolverStep
}

// GetSolverHorizon returns the solver_horizon value or the default.
func (c *TuningConfig) GetSolverHorizon() float64 {
	if c.SolverHorizon == nil {
		return 60.0
	}
	return *c.SolverHorizon
}

// GetNavigationConstant returns the navigation_constant value or the default.
func (c *TuningConfig) GetNavigationConstant() float64 {
	if c.NavigationConstant == nil {
		return 4.0
	}
	return *c.NavigationConstant
}

// GetMaxLateralAccel returns the max_lateral_accel value or the default.
func (c *TuningConfig) GetMaxLateralAccel() float64 {
	if c.MaxLateralAccel == nil {
		return 300.0 // ~30g
	}
	return *c.MaxLateralAccel
}

// GetArmingDistance returns the arming_distance value or the default.
func (c *TuningConfig) GetArmingDistance() float64 {
	if c.ArmingDistance == nil {
		return 20.0
	}
	return *c.ArmingDistance
}

// GetDetonationRadius returns the detonation_radius value or the default.
func (c *TuningConfig) GetDetonationRadius() float64 {
	if c.DetonationRadius == nil {
		return 10.0
	}
	return *c.DetonationRadius
}

// GetOptimalRadius returns the optimal_radius value or the default.
func (c *TuningConfig) GetOptimalRadius() float64 {
	if c.OptimalRadius == nil {
		return 5.0
	}
	return *c.OptimalRadius
}

// GetProcessNoiseBallistic returns the process_noise_ballistic value or the default.
func (c *TuningConfig) GetProcessNoiseBallistic() float64 {
	if c.ProcessNoiseBallistic == nil {
		return 0.5
	}
	return *c.ProcessNoiseBallistic
}

// GetProcessNoiseDrone returns the process_noise_drone value or the default.
func (c *TuningConfig) GetProcessNoiseDrone() float64 {
	if c.ProcessNoiseDrone == nil {
		return 2.0
	}
	return *c.ProcessNoiseDrone
}

// GetProcessNoiseCruise returns the process_noise_cruise value or the default.
func (c *TuningConfig) GetProcessNoiseCruise() float64 {
	if c.ProcessNoiseCruise == nil {
		return 8.0
	}
	return *c.ProcessNoiseCruise
}

// GetMeasurementNoise returns the measurement_noise value or the default.
func (c *TuningConfig) GetMeasurementNoise() float64 {
	if c.MeasurementNoise == nil {
		return 25.0 // 5m standard deviation
	}
	return *c.MeasurementNoise
}

// GetStaleTrackTimeout parses and returns the stale_track_timeout duration.
func (c *TuningConfig) GetStaleTrackTimeout() time.Duration {
	return c.duration(c.StaleTrackTimeout, 500*time.Millisecond)
}

// GetMaxMissedUpdates returns the max_missed_updates value or the default.
func (c *TuningConfig) GetMaxMissedUpdates() int {
	if c.MaxMissedUpdates == nil {
		return 5
	}
	return *c.MaxMissedUpdates
}

// GetQualityDecay returns the quality_decay value or the default.
func (c *TuningConfig) GetQualityDecay() float64 {
	if c.QualityDecay == nil {
		return 0.9
	}
	return *c.QualityDecay
}

// GetTrajectoryHorizon returns the trajectory_horizon value or the default.
func (c *TuningConfig) GetTrajectoryHorizon() float64 {
	if c.TrajectoryHorizon == nil {
		return 10.0
	}
	return *c.TrajectoryHorizon
}

// GetTrajectoryStep returns the trajectory_step value or the default.
func (c *TuningConfig) GetTrajectoryStep() float64 {
	if c.TrajectoryStep == nil {
		return 0.5
	}
	return *c.TrajectoryStep
}

// GetAssignmentTimeout parses and returns the assignment_timeout duration.
func (c *TuningConfig) GetAssignmentTimeout() time.Duration {
	return c.duration(c.AssignmentTimeout, 30*time.Second)
}

// GetRecentFireWindow parses and returns the recent_fire_window duration.
func (c *TuningConfig) GetRecentFireWindow() time.Duration {
	return c.duration(c.RecentFireWindow, 2*time.Second)
}

// GetRecentFirePenalty returns the recent_fire_penalty value or the default.
func (c *TuningConfig) GetRecentFirePenalty() float64 {
	if c.RecentFirePenalty == nil {
		return 0.8
	}
	return *c.RecentFirePenalty
}

// GetSelfDefenseRadius returns the self_defense_radius value or the default.
func (c *TuningConfig) GetSelfDefenseRadius() float64 {
	if c.SelfDefenseRadius == nil {
		return 500.0
	}
	return *c.SelfDefenseRadius
}

// GetSelfDefenseMaxMult returns the self_defense_max_mult value or the default.
func (c *TuningConfig) GetSelfDefenseMaxMult() float64 {
	if c.SelfDefenseMaxMult == nil {
		return 3.0
	}
	return *c.SelfDefenseMaxMult
}

func (c *TuningConfig) duration(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def
	}
	return d
}
