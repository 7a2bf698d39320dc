package engage

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/banshee-data/skyshield/internal/config"
	"github.com/banshee-data/skyshield/internal/defense/fuse"
	"github.com/banshee-data/skyshield/internal/defense/tracks"
	"github.com/banshee-data/skyshield/internal/geom"
	"github.com/banshee-data/skyshield/internal/monitoring"
)

// Battery describes one defense battery's position and capability as
// reported by the external simulation each tick.
type Battery struct {
	ID               string
	Position         geom.Vec3
	MaxRange         float64 // m
	InterceptorSpeed float64 // m/s
	LauncherCount    int
	Capacity         int // interceptor stock when fully loaded
	Available        int // interceptors remaining
	Operational      bool
}

// Threat is the coordinator's view of one incoming threat, derived from
// its track and the interception solver's output. TimeToImpact and
// ImpactPoint come from the ballistic predictor; a TimeToImpact of zero
// or below means the threat can no longer be engaged.
type Threat struct {
	ID           string
	Category     tracks.ThreatCategory
	Warhead      fuse.WarheadClass
	Position     geom.Vec3
	Velocity     geom.Vec3
	TimeToImpact float64 // s
	ImpactPoint  geom.Vec3
}

// Assignment records a live engagement: which battery is committed to
// which threat and how many interceptors have been launched so far.
type Assignment struct {
	ThreatID         string
	BatteryID        string
	InterceptorCount int
	AssignedAt       time.Time
}

// Selection is the outcome of scoring batteries for one threat.
type Selection struct {
	BatteryID string
	Score     float64
}

// CoordinatorConfig holds the tunable parameters of engagement scoring.
type CoordinatorConfig struct {
	// AssignmentTimeout is the age past which Cleanup evicts an
	// assignment and releases its battery's engagement accounting.
	AssignmentTimeout time.Duration

	// RecentFireWindow and RecentFirePenalty implement the
	// anti-overheat heuristic: a battery that fired within the window
	// has its score multiplied by the penalty.
	RecentFireWindow  time.Duration
	RecentFirePenalty float64

	// SelfDefenseRadius and SelfDefenseMaxMult boost a battery's score
	// when the threat's predicted impact point falls near that battery,
	// up to SelfDefenseMaxMult at zero distance, fading linearly to 1
	// at the radius.
	SelfDefenseRadius  float64
	SelfDefenseMaxMult float64
}

// DefaultCoordinatorConfig returns the coordinator defaults from the
// canonical tuning values.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfigFromTuning(config.EmptyTuningConfig())
}

// CoordinatorConfigFromTuning builds a CoordinatorConfig from a tuning
// config, applying defaults for any unset field.
func CoordinatorConfigFromTuning(cfg *config.TuningConfig) CoordinatorConfig {
	return CoordinatorConfig{
		AssignmentTimeout:  cfg.GetAssignmentTimeout(),
		RecentFireWindow:   cfg.GetRecentFireWindow(),
		RecentFirePenalty:  cfg.GetRecentFirePenalty(),
		SelfDefenseRadius:  cfg.GetSelfDefenseRadius(),
		SelfDefenseMaxMult: cfg.GetSelfDefenseMaxMult(),
	}
}

// batteryState is the coordinator-internal mutable state behind a
// Battery: the externally reported capability plus the engagement
// accounting the coordinator itself maintains.
type batteryState struct {
	Battery
	activeEngagements int
	lastFire          time.Time
}

// Coordinator owns the battery status map and the threat-to-assignment
// registry. The registry is an explicit per-coordinator object, not
// process-global state, so independent engagement zones can run their
// own coordinators.
type Coordinator struct {
	config CoordinatorConfig

	mu          sync.RWMutex
	batteries   map[string]*batteryState
	assignments map[string]*Assignment
}

// NewCoordinator creates a coordinator with no batteries registered.
func NewCoordinator(config CoordinatorConfig) *Coordinator {
	return &Coordinator{
		config:      config,
		batteries:   make(map[string]*batteryState),
		assignments: make(map[string]*Assignment),
	}
}

// UpsertBattery registers a battery or refreshes its reported
// capability. Engagement accounting (active engagements, last-fire
// time) survives the refresh.
func (c *Coordinator) UpsertBattery(b Battery) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if state, ok := c.batteries[b.ID]; ok {
		state.Battery = b
		return
	}
	c.batteries[b.ID] = &batteryState{Battery: b}
}

// RemoveBattery deregisters a battery. Live assignments to it remain
// until resolved or cleaned up.
func (c *Coordinator) RemoveBattery(batteryID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.batteries, batteryID)
}

// Battery returns a battery's reported capability.
func (c *Coordinator) Battery(batteryID string) (Battery, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state, ok := c.batteries[batteryID]
	if !ok {
		return Battery{}, false
	}
	return state.Battery, true
}

// Batteries returns all registered batteries ordered by id.
func (c *Coordinator) Batteries() []Battery {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Battery, 0, len(c.batteries))
	for _, id := range c.sortedBatteryIDs() {
		out = append(out, c.batteries[id].Battery)
	}
	return out
}

// FindOptimalBattery scores every registered battery against the threat
// and returns the best capable one. It returns ok=false when the threat
// already has a live assignment to a still-capable battery (no new
// engagement needed) or when no battery scores above zero.
func (c *Coordinator) FindOptimalBattery(threat Threat, now time.Time) (Selection, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.hasLiveAssignment(threat.ID) {
		return Selection{}, false
	}

	best := Selection{}
	// Ids are visited in ascending order and only a strictly higher
	// score displaces the current best, so ties resolve to the lowest
	// battery id regardless of map traversal order.
	for _, id := range c.sortedBatteryIDs() {
		score := c.scoreBattery(c.batteries[id], threat, now)
		if score > best.Score {
			best = Selection{BatteryID: id, Score: score}
		}
	}
	if best.BatteryID == "" {
		return Selection{}, false
	}
	return best, true
}

// hasLiveAssignment reports whether the threat has interceptors en
// route from a battery that remains capable. Callers must hold at least
// the read lock.
func (c *Coordinator) hasLiveAssignment(threatID string) bool {
	a, ok := c.assignments[threatID]
	if !ok || a.InterceptorCount == 0 {
		return false
	}
	state, ok := c.batteries[a.BatteryID]
	if !ok || !state.Operational {
		return false
	}
	return true
}

// scoreBattery computes the engagement score of one battery against one
// threat. A zero score means the battery must not be selected. Callers
// must hold at least the read lock.
func (c *Coordinator) scoreBattery(state *batteryState, threat Threat, now time.Time) float64 {
	if !state.Operational || state.Available <= 0 || state.InterceptorSpeed <= 0 {
		return 0
	}

	dist := state.Position.Dist(threat.Position)
	if dist > state.MaxRange || state.MaxRange <= 0 {
		return 0
	}

	// Hard reject: an interceptor that cannot arrive strictly before
	// impact is never worth launching.
	travel := dist / state.InterceptorSpeed
	if travel >= threat.TimeToImpact {
		return 0
	}

	score := 100.0
	score *= 1 - dist/state.MaxRange

	launchers := state.LauncherCount
	if launchers < 1 {
		launchers = 1
	}
	load := 1 - float64(state.activeEngagements)/float64(launchers)
	if load <= 0 {
		return 0
	}
	score *= load

	capacity := state.Capacity
	if capacity < state.Available {
		capacity = state.Available
	}
	score *= 0.5 + 0.5*float64(state.Available)/float64(capacity)

	// Time urgency: more margin before impact scores higher, up to 2x
	// when the interceptor arrives immediately.
	score *= 1 + (threat.TimeToImpact-travel)/threat.TimeToImpact

	if !state.lastFire.IsZero() && now.Sub(state.lastFire) < c.config.RecentFireWindow {
		score *= c.config.RecentFirePenalty
	}

	// Self-defense: a threat about to land on this battery outranks
	// everything else it could shoot at.
	if r := c.config.SelfDefenseRadius; r > 0 {
		d := state.Position.Dist(threat.ImpactPoint)
		if d < r {
			score *= 1 + (c.config.SelfDefenseMaxMult-1)*(1-d/r)
		}
	}

	return score
}

// AssignThreatToBattery commits one interceptor from the battery to the
// threat: it creates or increments the threat's assignment, consumes a
// unit of the battery's stock, and stamps the battery's last-fire time.
func (c *Coordinator) AssignThreatToBattery(threatID, batteryID string, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.batteries[batteryID]
	if !ok {
		return fmt.Errorf("unknown battery %q", batteryID)
	}
	if !state.Operational {
		return fmt.Errorf("battery %q is not operational", batteryID)
	}
	if state.Available <= 0 {
		return fmt.Errorf("battery %q has no interceptors available", batteryID)
	}

	state.Available--
	state.lastFire = now

	if a, ok := c.assignments[threatID]; ok {
		if a.BatteryID != batteryID {
			return fmt.Errorf("threat %q already assigned to battery %q", threatID, a.BatteryID)
		}
		a.InterceptorCount++
		return nil
	}

	c.assignments[threatID] = &Assignment{
		ThreatID:         threatID,
		BatteryID:        batteryID,
		InterceptorCount: 1,
		AssignedAt:       now,
	}
	state.activeEngagements++
	return nil
}

// ResolveThreat clears the threat's assignment, releasing the battery's
// engagement count. Called when the threat is destroyed, impacts, or
// expires.
func (c *Coordinator) ResolveThreat(threatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseAssignment(threatID)
}

// NeedsAdditionalInterceptors reports whether more interceptors should
// be committed to the threat. High-value threats (large warheads, and
// drones which a single proximity kill may miss) warrant two
// interceptors; everything else gets one.
func (c *Coordinator) NeedsAdditionalInterceptors(threat Threat) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	required := 1
	if threat.Warhead == fuse.WarheadLarge || threat.Category == tracks.CategoryDrone {
		required = 2
	}

	committed := 0
	if a, ok := c.assignments[threat.ID]; ok {
		committed = a.InterceptorCount
	}
	return committed < required
}

// Assignment returns the live assignment for a threat.
func (c *Coordinator) Assignment(threatID string) (Assignment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	a, ok := c.assignments[threatID]
	if !ok {
		return Assignment{}, false
	}
	return *a, true
}

// Assignments returns all live assignments ordered by threat id.
func (c *Coordinator) Assignments() []Assignment {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Assignment, 0, len(c.assignments))
	for _, a := range c.assignments {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ThreatID < out[j].ThreatID })
	return out
}

// Cleanup evicts assignments older than the assignment timeout,
// releasing their batteries' engagement accounting. Interceptors
// already expended are not refunded. Returns the evicted threat ids in
// ascending order.
func (c *Coordinator) Cleanup(now time.Time) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var evicted []string
	for threatID, a := range c.assignments {
		if now.Sub(a.AssignedAt) > c.config.AssignmentTimeout {
			evicted = append(evicted, threatID)
		}
	}
	sort.Strings(evicted)
	for _, threatID := range evicted {
		monitoring.Logf("engage: expiring stale assignment for threat %s", threatID)
		c.releaseAssignment(threatID)
	}
	return evicted
}

// releaseAssignment removes an assignment and decrements its battery's
// active engagement count. Callers must hold the write lock.
func (c *Coordinator) releaseAssignment(threatID string) {
	a, ok := c.assignments[threatID]
	if !ok {
		return
	}
	delete(c.assignments, threatID)
	if state, ok := c.batteries[a.BatteryID]; ok && state.activeEngagements > 0 {
		state.activeEngagements--
	}
}

// sortedBatteryIDs returns battery ids in ascending order. Callers must
// hold at least the read lock.
func (c *Coordinator) sortedBatteryIDs() []string {
	ids := make([]string, 0, len(c.batteries))
	for id := range c.batteries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
