package guidance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/skyshield/internal/geom"
)

func TestCommandHeadOnCollision(t *testing.T) {
	t.Parallel()

	// Target dead ahead, both on the same line, no LOS rotation:
	// PN should command nothing.
	c := NewController(100)
	// Interceptor at the origin flying +X, target ahead on the X axis
	// closing head-on.
	cmd := c.Command(
		geom.Vec3{},
		geom.Vec3{X: 100},
		geom.Vec3{X: 1000},
		geom.Vec3{X: -50},
	)
	assert.InDelta(t, 0, cmd.Norm(), 1e-9)
}

func TestCommandCrossingTarget(t *testing.T) {
	t.Parallel()

	c := NewController(100)
	// Target ahead but drifting sideways: the command must push the
	// interceptor laterally, in the direction of target drift.
	cmd := c.Command(
		geom.Vec3{},
		geom.Vec3{X: 200},
		geom.Vec3{X: 1000},
		geom.Vec3{Z: 30},
	)
	assert.Greater(t, cmd.Z, 0.0)
	assert.InDelta(t, 0, cmd.Y, 1e-9)
	assert.LessOrEqual(t, cmd.Norm(), 100.0+1e-9)
}

func TestCommandClampPreservesDirection(t *testing.T) {
	t.Parallel()

	low := Controller{NavigationConstant: 4, MaxAcceleration: 1}
	high := Controller{NavigationConstant: 4, MaxAcceleration: 1e9}

	intPos := geom.Vec3{}
	intVel := geom.Vec3{X: 500}
	tgtPos := geom.Vec3{X: 200, Z: 50}
	tgtVel := geom.Vec3{Z: 200}

	clamped := low.Command(intPos, intVel, tgtPos, tgtVel)
	free := high.Command(intPos, intVel, tgtPos, tgtVel)

	assert.InDelta(t, 1.0, clamped.Norm(), 1e-9)
	// Same direction as the unclamped command.
	assert.InDelta(t, 1.0, clamped.Unit().Dot(free.Unit()), 1e-9)
}

func TestCommandZeroRange(t *testing.T) {
	t.Parallel()

	c := NewController(100)
	p := geom.Vec3{X: 5, Y: 5, Z: 5}
	cmd := c.Command(p, geom.Vec3{X: 100}, p, geom.Vec3{Z: 50})
	assert.Equal(t, geom.Vec3{}, cmd)
}

func TestCommandRecedingTarget(t *testing.T) {
	t.Parallel()

	// Negative closing velocity flips the command sign; magnitude is
	// still bounded and finite.
	c := NewController(50)
	cmd := c.Command(
		geom.Vec3{},
		geom.Vec3{X: 10},
		geom.Vec3{X: 1000},
		geom.Vec3{X: 300, Z: 20},
	)
	assert.True(t, cmd.IsFinite())
	assert.LessOrEqual(t, cmd.Norm(), 50.0+1e-9)
}

func TestCommandDeterminism(t *testing.T) {
	t.Parallel()

	c := NewController(75)
	args := []geom.Vec3{
		{X: 10, Y: 250, Z: -40},
		{X: 280, Y: -4, Z: 12},
		{X: 900, Y: 400, Z: 100},
		{X: -120, Y: -20, Z: 35},
	}
	a := c.Command(args[0], args[1], args[2], args[3])
	b := c.Command(args[0], args[1], args[2], args[3])
	assert.Equal(t, a, b)
}
