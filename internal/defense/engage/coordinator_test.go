package engage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/skyshield/internal/defense/fuse"
	"github.com/banshee-data/skyshield/internal/defense/tracks"
	"github.com/banshee-data/skyshield/internal/geom"
)

func testBattery(id string, pos geom.Vec3) Battery {
	return Battery{
		ID:               id,
		Position:         pos,
		MaxRange:         2000,
		InterceptorSpeed: 300,
		LauncherCount:    4,
		Capacity:         8,
		Available:        8,
		Operational:      true,
	}
}

func testThreat(id string, pos geom.Vec3) Threat {
	return Threat{
		ID:           id,
		Category:     tracks.CategoryBallistic,
		Warhead:      fuse.WarheadMedium,
		Position:     pos,
		Velocity:     geom.Vec3{X: -100, Y: -50, Z: 0},
		TimeToImpact: 10,
		ImpactPoint:  geom.Vec3{X: 5000, Y: 0, Z: 5000},
	}
}

func TestFindOptimalBatterySelectsCapable(t *testing.T) {
	t.Parallel()
	c := NewCoordinator(DefaultCoordinatorConfig())
	c.UpsertBattery(testBattery("alpha", geom.Vec3{}))

	sel, ok := c.FindOptimalBattery(testThreat("threat-1", geom.Vec3{X: 1000, Y: 500}), time.Now())
	require.True(t, ok)
	assert.Equal(t, "alpha", sel.BatteryID)
	assert.Greater(t, sel.Score, 0.0)
}

func TestFindOptimalBatteryRejectsEmptyStock(t *testing.T) {
	t.Parallel()
	c := NewCoordinator(DefaultCoordinatorConfig())
	b := testBattery("alpha", geom.Vec3{})
	b.Available = 0
	c.UpsertBattery(b)

	_, ok := c.FindOptimalBattery(testThreat("threat-1", geom.Vec3{X: 1000, Y: 500}), time.Now())
	assert.False(t, ok)
}

func TestFindOptimalBatteryRejectsNonOperational(t *testing.T) {
	t.Parallel()
	c := NewCoordinator(DefaultCoordinatorConfig())
	b := testBattery("alpha", geom.Vec3{})
	b.Operational = false
	c.UpsertBattery(b)

	_, ok := c.FindOptimalBattery(testThreat("threat-1", geom.Vec3{X: 1000, Y: 500}), time.Now())
	assert.False(t, ok)
}

func TestFindOptimalBatteryRejectsOutOfRange(t *testing.T) {
	t.Parallel()
	c := NewCoordinator(DefaultCoordinatorConfig())
	c.UpsertBattery(testBattery("alpha", geom.Vec3{}))

	// 5km out against a 2km max range.
	_, ok := c.FindOptimalBattery(testThreat("threat-1", geom.Vec3{X: 5000, Y: 500}), time.Now())
	assert.False(t, ok)
}

func TestFindOptimalBatteryRejectsLateArrival(t *testing.T) {
	t.Parallel()
	c := NewCoordinator(DefaultCoordinatorConfig())
	c.UpsertBattery(testBattery("alpha", geom.Vec3{}))

	// Travel time to the threat is ~3.7s; an impact in 2s cannot be met.
	threat := testThreat("threat-1", geom.Vec3{X: 1000, Y: 500})
	threat.TimeToImpact = 2
	_, ok := c.FindOptimalBattery(threat, time.Now())
	assert.False(t, ok)

	// And a threat that has already impacted is never engageable.
	threat.TimeToImpact = 0
	_, ok = c.FindOptimalBattery(threat, time.Now())
	assert.False(t, ok)
}

func TestFindOptimalBatteryTieBreaksByID(t *testing.T) {
	t.Parallel()
	c := NewCoordinator(DefaultCoordinatorConfig())
	// Identical batteries score identically; the lowest id must win so
	// selection is deterministic.
	c.UpsertBattery(testBattery("bravo", geom.Vec3{}))
	c.UpsertBattery(testBattery("alpha", geom.Vec3{}))

	sel, ok := c.FindOptimalBattery(testThreat("threat-1", geom.Vec3{X: 1000, Y: 500}), time.Now())
	require.True(t, ok)
	assert.Equal(t, "alpha", sel.BatteryID)
}

func TestSelfDefenseOutweighsRange(t *testing.T) {
	t.Parallel()
	c := NewCoordinator(DefaultCoordinatorConfig())
	c.UpsertBattery(testBattery("near", geom.Vec3{}))
	c.UpsertBattery(testBattery("far", geom.Vec3{X: 1500}))

	// The threat is closer to "near" but will land on "far".
	threat := testThreat("threat-1", geom.Vec3{X: 300, Y: 300})
	threat.ImpactPoint = geom.Vec3{X: 1500, Y: 0, Z: 0}

	sel, ok := c.FindOptimalBattery(threat, time.Now())
	require.True(t, ok)
	assert.Equal(t, "far", sel.BatteryID)
}

func TestRecentFirePenaltyShiftsSelection(t *testing.T) {
	t.Parallel()
	c := NewCoordinator(DefaultCoordinatorConfig())
	c.UpsertBattery(testBattery("alpha", geom.Vec3{}))
	c.UpsertBattery(testBattery("bravo", geom.Vec3{}))
	now := time.Now()

	require.NoError(t, c.AssignThreatToBattery("threat-0", "alpha", now))

	// Within the 2s window alpha carries the fire penalty (plus its
	// engagement load), so the otherwise identical bravo wins.
	sel, ok := c.FindOptimalBattery(testThreat("threat-1", geom.Vec3{X: 1000, Y: 500}), now.Add(time.Second))
	require.True(t, ok)
	assert.Equal(t, "bravo", sel.BatteryID)
}

func TestFindOptimalBatteryDedupesLiveAssignments(t *testing.T) {
	t.Parallel()
	c := NewCoordinator(DefaultCoordinatorConfig())
	c.UpsertBattery(testBattery("alpha", geom.Vec3{}))
	now := time.Now()
	threat := testThreat("threat-1", geom.Vec3{X: 1000, Y: 500})

	require.NoError(t, c.AssignThreatToBattery(threat.ID, "alpha", now))

	// Interceptors are already en route: no second engagement.
	_, ok := c.FindOptimalBattery(threat, now)
	assert.False(t, ok)

	// If the assigned battery goes down, the dedup no longer holds.
	b := testBattery("alpha", geom.Vec3{})
	b.Operational = false
	c.UpsertBattery(b)
	c.UpsertBattery(testBattery("bravo", geom.Vec3{}))

	sel, ok := c.FindOptimalBattery(threat, now)
	require.True(t, ok)
	assert.Equal(t, "bravo", sel.BatteryID)
}

func TestAssignThreatToBattery(t *testing.T) {
	t.Parallel()
	c := NewCoordinator(DefaultCoordinatorConfig())
	c.UpsertBattery(testBattery("alpha", geom.Vec3{}))
	now := time.Now()

	require.NoError(t, c.AssignThreatToBattery("threat-1", "alpha", now))

	a, ok := c.Assignment("threat-1")
	require.True(t, ok)
	assert.Equal(t, "alpha", a.BatteryID)
	assert.Equal(t, 1, a.InterceptorCount)
	assert.Equal(t, now, a.AssignedAt)

	b, _ := c.Battery("alpha")
	assert.Equal(t, 7, b.Available)

	// A second commit to the same threat increments the count and
	// consumes another interceptor.
	require.NoError(t, c.AssignThreatToBattery("threat-1", "alpha", now.Add(time.Second)))
	a, _ = c.Assignment("threat-1")
	assert.Equal(t, 2, a.InterceptorCount)
	b, _ = c.Battery("alpha")
	assert.Equal(t, 6, b.Available)
}

func TestAssignThreatToBatteryErrors(t *testing.T) {
	t.Parallel()
	c := NewCoordinator(DefaultCoordinatorConfig())
	c.UpsertBattery(testBattery("alpha", geom.Vec3{}))
	c.UpsertBattery(testBattery("bravo", geom.Vec3{X: 500}))
	now := time.Now()

	assert.Error(t, c.AssignThreatToBattery("threat-1", "missing", now))

	empty := testBattery("empty", geom.Vec3{})
	empty.Available = 0
	c.UpsertBattery(empty)
	assert.Error(t, c.AssignThreatToBattery("threat-1", "empty", now))

	// Splitting one threat across two batteries is not supported.
	require.NoError(t, c.AssignThreatToBattery("threat-1", "alpha", now))
	assert.Error(t, c.AssignThreatToBattery("threat-1", "bravo", now))
}

func TestResolveThreatReleasesAssignment(t *testing.T) {
	t.Parallel()
	c := NewCoordinator(DefaultCoordinatorConfig())
	c.UpsertBattery(testBattery("alpha", geom.Vec3{}))
	now := time.Now()

	require.NoError(t, c.AssignThreatToBattery("threat-1", "alpha", now))
	c.ResolveThreat("threat-1")

	_, ok := c.Assignment("threat-1")
	assert.False(t, ok)

	// The battery is free to engage the same threat id again.
	sel, ok := c.FindOptimalBattery(testThreat("threat-1", geom.Vec3{X: 1000, Y: 500}), now)
	require.True(t, ok)
	assert.Equal(t, "alpha", sel.BatteryID)
}

func TestNeedsAdditionalInterceptors(t *testing.T) {
	t.Parallel()
	c := NewCoordinator(DefaultCoordinatorConfig())
	c.UpsertBattery(testBattery("alpha", geom.Vec3{}))
	now := time.Now()

	medium := testThreat("threat-1", geom.Vec3{X: 1000, Y: 500})
	assert.True(t, c.NeedsAdditionalInterceptors(medium))
	require.NoError(t, c.AssignThreatToBattery(medium.ID, "alpha", now))
	assert.False(t, c.NeedsAdditionalInterceptors(medium))

	// Large warheads and drones warrant a second interceptor.
	large := testThreat("threat-2", geom.Vec3{X: 1000, Y: 500})
	large.Warhead = fuse.WarheadLarge
	require.NoError(t, c.AssignThreatToBattery(large.ID, "alpha", now))
	assert.True(t, c.NeedsAdditionalInterceptors(large))
	require.NoError(t, c.AssignThreatToBattery(large.ID, "alpha", now))
	assert.False(t, c.NeedsAdditionalInterceptors(large))

	drone := testThreat("threat-3", geom.Vec3{X: 1000, Y: 500})
	drone.Category = tracks.CategoryDrone
	require.NoError(t, c.AssignThreatToBattery(drone.ID, "alpha", now))
	assert.True(t, c.NeedsAdditionalInterceptors(drone))
}

func TestCleanupEvictsStaleAssignments(t *testing.T) {
	t.Parallel()
	c := NewCoordinator(DefaultCoordinatorConfig())
	c.UpsertBattery(testBattery("alpha", geom.Vec3{}))
	now := time.Now()

	require.NoError(t, c.AssignThreatToBattery("threat-1", "alpha", now))

	assert.Empty(t, c.Cleanup(now.Add(29*time.Second)))

	evicted := c.Cleanup(now.Add(31 * time.Second))
	assert.Equal(t, []string{"threat-1"}, evicted)
	_, ok := c.Assignment("threat-1")
	assert.False(t, ok)
}

func TestCoordinatorSafetyUnderScoring(t *testing.T) {
	t.Parallel()
	c := NewCoordinator(DefaultCoordinatorConfig())
	now := time.Now()

	// A mixed pool: empty, slow, far, down, and one genuinely capable.
	empty := testBattery("empty", geom.Vec3{})
	empty.Available = 0
	slow := testBattery("slow", geom.Vec3{})
	slow.InterceptorSpeed = 50 // travel ~22s against a 10s impact
	far := testBattery("far", geom.Vec3{X: 10000})
	down := testBattery("down", geom.Vec3{})
	down.Operational = false
	good := testBattery("good", geom.Vec3{X: 200})
	for _, b := range []Battery{empty, slow, far, down, good} {
		c.UpsertBattery(b)
	}

	threat := testThreat("threat-1", geom.Vec3{X: 1000, Y: 500})
	sel, ok := c.FindOptimalBattery(threat, now)
	require.True(t, ok)
	assert.Equal(t, "good", sel.BatteryID)
}
