package tracks

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/skyshield/internal/config"
	"github.com/banshee-data/skyshield/internal/defense/estimate"
	"github.com/banshee-data/skyshield/internal/geom"
)

// ThreatCategory classifies how maneuverable a threat is. The category
// selects the process noise of the track's filter: the more a threat can
// maneuver, the less the constant-acceleration model can be trusted and
// the more weight measurements get.
type ThreatCategory string

const (
	CategoryBallistic ThreatCategory = "ballistic" // unpowered, gravity only
	CategoryDrone     ThreatCategory = "drone"     // near-constant velocity
	CategoryCruise    ThreatCategory = "cruise"    // powered, maneuvering
)

// ManagerConfig holds the tunable parameters of the track manager.
type ManagerConfig struct {
	// Process noise per threat category, injected into the filter's
	// acceleration states each predict step.
	ProcessNoiseBallistic float64
	ProcessNoiseDrone     float64
	ProcessNoiseCruise    float64

	// MeasurementNoise is the assumed position observation variance.
	MeasurementNoise float64

	// StaleTimeout is how long a track may go without a sighting before
	// MaintainTracks coasts it.
	StaleTimeout time.Duration

	// MaxMissedUpdates is the number of coast cycles after which a
	// track is dropped.
	MaxMissedUpdates int

	// QualityDecay multiplies track quality on every coast cycle.
	QualityDecay float64

	// TrajectoryHorizon and TrajectoryStep shape the predicted forward
	// trajectory attached to track snapshots, in seconds.
	TrajectoryHorizon float64
	TrajectoryStep    float64
}

// DefaultManagerConfig returns the manager defaults from the canonical
// tuning values.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfigFromTuning(config.EmptyTuningConfig())
}

// ManagerConfigFromTuning builds a ManagerConfig from a tuning config,
// applying defaults for any unset field.
func ManagerConfigFromTuning(cfg *config.TuningConfig) ManagerConfig {
	return ManagerConfig{
		ProcessNoiseBallistic: cfg.GetProcessNoiseBallistic(),
		ProcessNoiseDrone:     cfg.GetProcessNoiseDrone(),
		ProcessNoiseCruise:    cfg.GetProcessNoiseCruise(),
		MeasurementNoise:      cfg.GetMeasurementNoise(),
		StaleTimeout:          cfg.GetStaleTrackTimeout(),
		MaxMissedUpdates:      cfg.GetMaxMissedUpdates(),
		QualityDecay:          cfg.GetQualityDecay(),
		TrajectoryHorizon:     cfg.GetTrajectoryHorizon(),
		TrajectoryStep:        cfg.GetTrajectoryStep(),
	}
}

// Track is a copied-out snapshot of one tracked threat. Mutating it has
// no effect on the manager's state.
type Track struct {
	TrackID  string
	ThreatID string
	Category ThreatCategory

	Position     geom.Vec3
	Velocity     geom.Vec3
	Acceleration geom.Vec3

	// Uncertainty is the RMS of the filter's position covariance
	// diagonal, in metres.
	Uncertainty float64

	// Quality is the track confidence in [0,1]. It is recomputed on
	// every sighting from prediction error relative to uncertainty and
	// decays multiplicatively while the track coasts.
	Quality float64

	LastUpdate    time.Time
	MissedUpdates int

	// PredictedTrajectory holds future positions at the configured
	// step out to the configured horizon, regenerated from the current
	// filter state each time a snapshot is taken.
	PredictedTrajectory []geom.Vec3
}

// trackEntry is the manager-internal mutable state behind a Track.
type trackEntry struct {
	trackID    string
	threatID   string
	category   ThreatCategory
	filter     *estimate.Filter
	quality    float64
	lastUpdate time.Time
	missed     int
}

// Manager owns the threat-id to track map. All filter access goes
// through the manager; snapshots returned to callers are copies.
type Manager struct {
	config ManagerConfig

	mu     sync.RWMutex
	tracks map[string]*trackEntry
}

// NewManager creates an empty track manager.
func NewManager(config ManagerConfig) *Manager {
	return &Manager{
		config: config,
		tracks: make(map[string]*trackEntry),
	}
}

// processNoiseFor maps a threat category to its filter process noise.
// Unknown categories get the cruise (most maneuverable) value so the
// filter stays responsive rather than overconfident.
func (m *Manager) processNoiseFor(category ThreatCategory) float64 {
	switch category {
	case CategoryBallistic:
		return m.config.ProcessNoiseBallistic
	case CategoryDrone:
		return m.config.ProcessNoiseDrone
	default:
		return m.config.ProcessNoiseCruise
	}
}

// Observe folds a position sighting into the threat's track, creating
// the track on first sighting. It returns a snapshot of the track after
// the update.
func (m *Manager) Observe(threatID string, category ThreatCategory, measured geom.Vec3, now time.Time) Track {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.tracks[threatID]
	if !ok {
		entry = &trackEntry{
			trackID:  uuid.NewString(),
			threatID: threatID,
			category: category,
			filter: estimate.NewFilter(
				measured, geom.Vec3{}, geom.Vec3{},
				m.processNoiseFor(category), m.config.MeasurementNoise),
			quality:    1.0,
			lastUpdate: now,
		}
		m.tracks[threatID] = entry
		return m.snapshot(entry)
	}

	dt := now.Sub(entry.lastUpdate).Seconds()
	if dt > 0 {
		entry.filter.Predict(dt)
	}

	// Quality compares the filter's prior prediction against the new
	// sighting, scaled by how uncertain the filter already claims to
	// be: a large miss with a tight covariance hurts quality, the same
	// miss under a loose covariance barely does.
	predictionError := entry.filter.Position().Dist(measured)
	uncertainty := entry.filter.PositionUncertainty()
	entry.filter.UpdatePosition(measured)

	entry.quality = clamp01(math.Exp(-predictionError / (uncertainty + 1)))
	entry.missed = 0
	entry.lastUpdate = now

	return m.snapshot(entry)
}

// MaintainTracks advances tracks that have gone stale. Each stale track
// coasts on the kinematic model alone, its quality decays, and its
// missed-update counter increments; tracks past the missed-update limit
// are evicted. Returns the threat ids of evicted tracks.
func (m *Manager) MaintainTracks(now time.Time) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var evicted []string
	for threatID, entry := range m.tracks {
		elapsed := now.Sub(entry.lastUpdate)
		if elapsed <= m.config.StaleTimeout {
			continue
		}

		entry.filter.Predict(elapsed.Seconds())
		entry.lastUpdate = now
		entry.quality = clamp01(entry.quality * m.config.QualityDecay)
		entry.missed++

		if entry.missed > m.config.MaxMissedUpdates {
			delete(m.tracks, threatID)
			evicted = append(evicted, threatID)
		}
	}
	sort.Strings(evicted)
	return evicted
}

// Drop removes a threat's track, if present. Used when the external
// simulation reports a threat destroyed or expired.
func (m *Manager) Drop(threatID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tracks, threatID)
}

// Get returns a snapshot of one threat's track.
func (m *Manager) Get(threatID string) (Track, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.tracks[threatID]
	if !ok {
		return Track{}, false
	}
	return m.snapshot(entry), true
}

// List returns snapshots of all tracks, ordered by threat id so the
// result is deterministic for a given manager state.
func (m *Manager) List() []Track {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Track, 0, len(m.tracks))
	for _, entry := range m.tracks {
		out = append(out, m.snapshot(entry))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ThreatID < out[j].ThreatID })
	return out
}

// Count returns the number of live tracks.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tracks)
}

// snapshot copies an entry out, regenerating the predicted trajectory
// from the current filter state. Callers must hold at least the read
// lock.
func (m *Manager) snapshot(entry *trackEntry) Track {
	return Track{
		TrackID:             entry.trackID,
		ThreatID:            entry.threatID,
		Category:            entry.category,
		Position:            entry.filter.Position(),
		Velocity:            entry.filter.Velocity(),
		Acceleration:        entry.filter.Acceleration(),
		Uncertainty:         entry.filter.PositionUncertainty(),
		Quality:             entry.quality,
		LastUpdate:          entry.lastUpdate,
		MissedUpdates:       entry.missed,
		PredictedTrajectory: m.predictTrajectory(entry),
	}
}

// predictTrajectory samples the filter's projected position at the
// configured step out to the horizon. The sequence is rebuilt from
// scratch on every call; two calls without an intervening update yield
// identical sequences.
func (m *Manager) predictTrajectory(entry *trackEntry) []geom.Vec3 {
	step := m.config.TrajectoryStep
	horizon := m.config.TrajectoryHorizon
	if step <= 0 || horizon <= 0 {
		return nil
	}

	points := make([]geom.Vec3, 0, int(horizon/step)+1)
	for t := step; t <= horizon+step/2; t += step {
		pos, _ := entry.filter.PredictFuturePosition(t)
		points = append(points, pos)
	}
	return points
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
