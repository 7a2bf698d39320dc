// Package sim runs scripted engagement scenarios against the defense
// core. Each tick follows the fixed stage order the components assume:
// state estimation, then interception solving and battery assignment,
// then guidance correction of in-flight interceptors, then proximity
// and lethality evaluation. Runs are deterministic for a given
// scenario: sensor noise and kill rolls come from a single seeded
// source.
package sim

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/banshee-data/skyshield/internal/config"
	"github.com/banshee-data/skyshield/internal/defense/ballistics"
	"github.com/banshee-data/skyshield/internal/defense/engage"
	"github.com/banshee-data/skyshield/internal/defense/fuse"
	"github.com/banshee-data/skyshield/internal/defense/guidance"
	"github.com/banshee-data/skyshield/internal/defense/intercept"
	"github.com/banshee-data/skyshield/internal/defense/store"
	"github.com/banshee-data/skyshield/internal/defense/tracks"
	"github.com/banshee-data/skyshield/internal/geom"
	"github.com/banshee-data/skyshield/internal/monitoring"
)

// cruiseWeaveAccel and cruiseWeaveHz shape the lateral weave of cruise
// threats, the maneuver the high cruise process noise exists to absorb.
const (
	cruiseWeaveAccel = 20.0 // m/s²
	cruiseWeaveHz    = 0.2

	// aimArrivalRadius is how close a non-ballistic threat must get to
	// its aim point to count as having struck it.
	aimArrivalRadius = 50.0

	// interceptorMaxFlight retires an interceptor that has flown this
	// long without a detonation, in seconds.
	interceptorMaxFlight = 60.0
)

// Stats accumulates run outcomes.
type Stats struct {
	Ticks                int
	ThreatsSpawned       int
	ThreatsKilled        int
	ThreatsImpacted      int
	InterceptorsLaunched int
	Detonations          int
	InterceptorsExpired  int
}

// DetonationEvent is one interceptor's terminal outcome.
type DetonationEvent struct {
	ThreatID        string
	InterceptorID   string
	Time            float64 // seconds since scenario start
	Distance        float64
	Quality         float64
	KillProbability float64
	Killed          bool
}

// threatState is the ground-truth state of one threat, which the
// defense core only ever sees through noisy sightings.
type threatState struct {
	spec     ThreatSpec
	position geom.Vec3
	velocity geom.Vec3
	spawned  bool
	active   bool
}

// interceptorState is one in-flight interceptor.
type interceptorState struct {
	id       string
	threatID string
	position geom.Vec3
	velocity geom.Vec3
	speed    float64
	traveled float64
	fuse     *fuse.ProximityFuse
	done     bool
}

// Engine steps a scenario through the engagement core.
type Engine struct {
	scenario *Scenario

	solver      intercept.Solver
	controller  guidance.Controller
	manager     *tracks.Manager
	coordinator *engage.Coordinator
	recorder    *store.Store // may be nil

	armingDistance   float64
	detonationRadius float64
	optimalRadius    float64

	rng     *rand.Rand
	start   time.Time
	elapsed float64

	threats      map[string]*threatState
	interceptors []*interceptorState
	launched     int

	stats       Stats
	detonations []DetonationEvent
}

// NewEngine builds an engine for the scenario using the given tuning.
// recorder may be nil to skip persistence.
func NewEngine(scenario *Scenario, tuning *config.TuningConfig, recorder *store.Store) (*Engine, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		scenario: scenario,
		solver: intercept.Solver{
			Step:    tuning.GetSolverStep(),
			Horizon: tuning.GetSolverHorizon(),
		},
		controller: guidance.Controller{
			NavigationConstant: tuning.GetNavigationConstant(),
			MaxAcceleration:    tuning.GetMaxLateralAccel(),
		},
		manager:          tracks.NewManager(tracks.ManagerConfigFromTuning(tuning)),
		coordinator:      engage.NewCoordinator(engage.CoordinatorConfigFromTuning(tuning)),
		recorder:         recorder,
		armingDistance:   tuning.GetArmingDistance(),
		detonationRadius: tuning.GetDetonationRadius(),
		optimalRadius:    tuning.GetOptimalRadius(),
		rng:              rand.New(rand.NewSource(scenario.Seed)),
		start:            time.Unix(0, 0).UTC(),
		threats:          make(map[string]*threatState),
	}

	for _, b := range scenario.Batteries {
		e.coordinator.UpsertBattery(b)
	}
	for _, spec := range scenario.Threats {
		e.threats[spec.ID] = &threatState{
			spec:     spec,
			position: spec.Position,
			velocity: spec.Velocity,
		}
	}
	return e, nil
}

// Run steps the engine to the scenario's duration and returns the
// accumulated stats.
func (e *Engine) Run() Stats {
	for e.elapsed < e.scenario.Duration {
		e.Step()
	}
	return e.stats
}

// Step advances the simulation by one scenario tick.
func (e *Engine) Step() {
	dt := e.scenario.Step
	e.elapsed += dt
	now := e.start.Add(time.Duration(e.elapsed * float64(time.Second)))

	e.spawnDueThreats()
	e.advanceTruth(dt)
	e.observeThreats(now)
	e.manager.MaintainTracks(now)
	e.planEngagements(now)
	e.flyInterceptors(dt, now)
	e.coordinator.Cleanup(now)

	e.stats.Ticks++
}

// Stats returns the outcomes accumulated so far.
func (e *Engine) Stats() Stats { return e.stats }

// Detonations returns all detonation events so far, in time order.
func (e *Engine) Detonations() []DetonationEvent {
	out := make([]DetonationEvent, len(e.detonations))
	copy(out, e.detonations)
	return out
}

// Tracks returns the track manager's current snapshots.
func (e *Engine) Tracks() []tracks.Track { return e.manager.List() }

// Elapsed returns the simulated time since scenario start, in seconds.
func (e *Engine) Elapsed() float64 { return e.elapsed }

func (e *Engine) spawnDueThreats() {
	for _, t := range e.threats {
		if !t.spawned && t.spec.SpawnAt <= e.elapsed {
			t.spawned = true
			t.active = true
			e.stats.ThreatsSpawned++
		}
	}
}

// advanceTruth integrates ground-truth threat motion and retires
// threats that reach the ground or their aim point.
func (e *Engine) advanceTruth(dt float64) {
	for _, t := range e.threats {
		if !t.active {
			continue
		}

		switch t.spec.Category {
		case tracks.CategoryBallistic:
			t.position = ballistics.PositionAt(t.position, t.velocity, dt)
			t.velocity = ballistics.VelocityAt(t.velocity, dt)
		case tracks.CategoryCruise:
			// Weave: sinusoidal lateral acceleration in the horizontal
			// plane, speed held constant.
			speed := t.velocity.Norm()
			if speed > 0 {
				lateral := geom.Vec3{X: -t.velocity.Z, Y: 0, Z: t.velocity.X}.Unit()
				accel := cruiseWeaveAccel * math.Sin(2*math.Pi*cruiseWeaveHz*e.elapsed)
				t.velocity = t.velocity.Add(lateral.Scale(accel * dt)).Unit().Scale(speed)
			}
			t.position = t.position.Add(t.velocity.Scale(dt))
		default:
			t.position = t.position.Add(t.velocity.Scale(dt))
		}

		if t.position.Y <= 0 || e.reachedAim(t) {
			e.retireThreat(t, false)
		}
	}
}

func (e *Engine) reachedAim(t *threatState) bool {
	if t.spec.Category == tracks.CategoryBallistic {
		return false
	}
	return t.position.Dist(t.spec.Aim) < aimArrivalRadius
}

// observeThreats feeds one noisy sighting per active threat into the
// track manager, recording the resulting estimate when a store is
// attached.
func (e *Engine) observeThreats(now time.Time) {
	for _, id := range e.threatIDs() {
		t := e.threats[id]
		if !t.active {
			continue
		}

		measured := t.position.Add(geom.Vec3{
			X: e.rng.NormFloat64() * e.scenario.NoiseStd,
			Y: e.rng.NormFloat64() * e.scenario.NoiseStd,
			Z: e.rng.NormFloat64() * e.scenario.NoiseStd,
		})
		track := e.manager.Observe(id, t.spec.Category, measured, now)

		if e.recorder != nil {
			err := e.recorder.InsertTrackObservation(&store.TrackObservation{
				ThreatID:    id,
				TrackID:     track.TrackID,
				Category:    string(track.Category),
				TSUnixNanos: now.UnixNano(),
				Measured:    measured,
				Position:    track.Position,
				Velocity:    track.Velocity,
				Uncertainty: track.Uncertainty,
				Quality:     track.Quality,
			})
			if err != nil {
				monitoring.Logf("sim: record observation for %s: %v", id, err)
			}
		}
	}
}

// planEngagements runs battery selection and launches interceptors for
// threats that still need them.
func (e *Engine) planEngagements(now time.Time) {
	for _, id := range e.threatIDs() {
		t := e.threats[id]
		if !t.active {
			continue
		}
		track, ok := e.manager.Get(id)
		if !ok {
			continue
		}

		threat, ok := e.coordinatorThreat(t, track)
		if !ok {
			continue
		}
		if !e.coordinator.NeedsAdditionalInterceptors(threat) {
			continue
		}

		// First interceptor goes through battery selection; follow-up
		// interceptors for high-value threats come from the assigned
		// battery.
		batteryID := ""
		if a, ok := e.coordinator.Assignment(id); ok {
			batteryID = a.BatteryID
		} else if sel, ok := e.coordinator.FindOptimalBattery(threat, now); ok {
			batteryID = sel.BatteryID
		}
		if batteryID == "" {
			continue
		}
		e.launch(t, track, batteryID, now)
	}
}

// coordinatorThreat derives the coordinator's view of a threat from its
// track estimate. ok is false when no impact prediction exists.
func (e *Engine) coordinatorThreat(t *threatState, track tracks.Track) (engage.Threat, bool) {
	threat := engage.Threat{
		ID:       t.spec.ID,
		Category: t.spec.Category,
		Warhead:  t.spec.Warhead,
		Position: track.Position,
		Velocity: track.Velocity,
	}

	if t.spec.Category == tracks.CategoryBallistic {
		tti, ok := ballistics.TimeToImpact(track.Position, track.Velocity)
		if !ok {
			return engage.Threat{}, false
		}
		impact, _ := ballistics.ImpactPoint(track.Position, track.Velocity)
		threat.TimeToImpact = tti
		threat.ImpactPoint = impact
		return threat, true
	}

	speed := track.Velocity.Norm()
	if speed <= 0 {
		return engage.Threat{}, false
	}
	threat.TimeToImpact = track.Position.Dist(t.spec.Aim) / speed
	threat.ImpactPoint = t.spec.Aim
	return threat, true
}

// launch solves an intercept from the battery and, if one exists,
// commits the assignment and spawns an interceptor on the solution's
// launch velocity.
func (e *Engine) launch(t *threatState, track tracks.Track, batteryID string, now time.Time) {
	battery, ok := e.coordinator.Battery(batteryID)
	if !ok {
		return
	}

	var solution intercept.Solution
	if t.spec.Category == tracks.CategoryBallistic {
		solution, ok = e.solver.SolveBallistic(
			track.Position, track.Velocity, battery.Position,
			battery.InterceptorSpeed, battery.MaxRange)
	} else {
		solution, ok = e.solver.SolveConstantVelocity(
			track.Position, track.Velocity, battery.Position,
			battery.InterceptorSpeed, battery.MaxRange)
	}
	if !ok {
		return
	}

	if err := e.coordinator.AssignThreatToBattery(t.spec.ID, batteryID, now); err != nil {
		monitoring.Logf("sim: assign %s to %s: %v", t.spec.ID, batteryID, err)
		return
	}

	e.launched++
	e.interceptors = append(e.interceptors, &interceptorState{
		id:       fmt.Sprintf("int-%03d", e.launched),
		threatID: t.spec.ID,
		position: battery.Position,
		velocity: solution.LaunchVelocity,
		speed:    battery.InterceptorSpeed,
		fuse:     fuse.NewProximityFuse(e.armingDistance, e.detonationRadius, e.optimalRadius),
	})
	e.stats.InterceptorsLaunched++

	if e.recorder != nil {
		if a, ok := e.coordinator.Assignment(t.spec.ID); ok {
			err := e.recorder.InsertAssignment(&store.AssignmentRecord{
				ThreatID:         a.ThreatID,
				BatteryID:        a.BatteryID,
				InterceptorCount: a.InterceptorCount,
				TSUnixNanos:      now.UnixNano(),
			})
			if err != nil {
				monitoring.Logf("sim: record assignment for %s: %v", t.spec.ID, err)
			}
		}
	}
}

// flyInterceptors applies PN guidance, integrates interceptor motion,
// and evaluates each fuse against ground truth.
func (e *Engine) flyInterceptors(dt float64, now time.Time) {
	for _, ip := range e.interceptors {
		if ip.done {
			continue
		}
		t := e.threats[ip.threatID]
		if t == nil || !t.active {
			ip.done = true
			e.stats.InterceptorsExpired++
			continue
		}

		// Guide against the track estimate when one exists, truth
		// otherwise (terminal phase after track loss).
		targetPos, targetVel := t.position, t.velocity
		if track, ok := e.manager.Get(ip.threatID); ok {
			targetPos, targetVel = track.Position, track.Velocity
		}

		cmd := e.controller.Command(ip.position, ip.velocity, targetPos, targetVel)
		ip.velocity = ip.velocity.Add(cmd.Scale(dt))
		if s := ip.velocity.Norm(); s > 0 {
			// Lateral-only control: thrust holds speed constant.
			ip.velocity = ip.velocity.Scale(ip.speed / s)
		}
		ip.position = ip.position.Add(ip.velocity.Scale(dt))
		ip.traveled += ip.speed * dt

		relPos := t.position.Sub(ip.position)
		relVel := t.velocity.Sub(ip.velocity)
		separation := relPos.Norm()
		closingRate := 0.0
		if separation > 0 {
			closingRate = -relPos.Dot(relVel) / separation
		}

		// At closing speeds near 1 km/s a tick can step straight over
		// the detonation window, so the fuse sees the closest approach
		// along the tick's relative-motion segment, not the endpoint.
		result := ip.fuse.Evaluate(ip.traveled, closestApproach(relPos, relVel, dt), closingRate)
		if result.Detonate {
			e.detonate(ip, t, result, now)
			continue
		}

		if ip.traveled > ip.speed*interceptorMaxFlight {
			ip.done = true
			e.stats.InterceptorsExpired++
		}
	}
}

// detonate resolves a fuse trigger into a kill-or-miss outcome.
func (e *Engine) detonate(ip *interceptorState, t *threatState, result fuse.ProximityResult, now time.Time) {
	ip.done = true
	killProb := fuse.KillProbability(result.Distance, t.spec.Warhead)
	killed := e.rng.Float64() < killProb

	e.stats.Detonations++
	event := DetonationEvent{
		ThreatID:        t.spec.ID,
		InterceptorID:   ip.id,
		Time:            e.elapsed,
		Distance:        result.Distance,
		Quality:         result.Quality,
		KillProbability: killProb,
		Killed:          killed,
	}
	e.detonations = append(e.detonations, event)

	if e.recorder != nil {
		err := e.recorder.InsertDetonation(&store.Detonation{
			ThreatID:        event.ThreatID,
			InterceptorID:   event.InterceptorID,
			TSUnixNanos:     now.UnixNano(),
			Distance:        event.Distance,
			Quality:         event.Quality,
			KillProbability: event.KillProbability,
			Killed:          event.Killed,
		})
		if err != nil {
			monitoring.Logf("sim: record detonation for %s: %v", t.spec.ID, err)
		}
	}

	if killed {
		e.retireThreat(t, true)
	}
}

// retireThreat deactivates a threat and releases its track and
// assignment.
func (e *Engine) retireThreat(t *threatState, killed bool) {
	t.active = false
	if killed {
		e.stats.ThreatsKilled++
	} else {
		e.stats.ThreatsImpacted++
	}
	e.manager.Drop(t.spec.ID)
	e.coordinator.ResolveThreat(t.spec.ID)
}

// closestApproach returns the minimum separation over the tick that
// just elapsed, assuming constant relative velocity v across it. r is
// the relative position at the end of the tick.
func closestApproach(r, v geom.Vec3, dt float64) float64 {
	vv := v.NormSquared()
	if vv <= 0 {
		return r.Norm()
	}
	u := r.Dot(v) / vv
	if u < 0 {
		u = 0
	} else if u > dt {
		u = dt
	}
	return r.Sub(v.Scale(u)).Norm()
}

// threatIDs returns scenario threat ids in declaration order so each
// tick visits threats deterministically.
func (e *Engine) threatIDs() []string {
	ids := make([]string, 0, len(e.scenario.Threats))
	for _, spec := range e.scenario.Threats {
		ids = append(ids, spec.ID)
	}
	return ids
}
