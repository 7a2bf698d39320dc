// Package guidance implements proportional navigation for mid-course
// interceptor correction.
//
// The controller converts relative position and velocity into a bounded
// lateral acceleration command; the surrounding physics integrator (out
// of scope here) applies the command to the interceptor each tick.
package guidance

import "github.com/banshee-data/skyshield/internal/geom"

// arrivedEpsilon is the range below which the controller considers the
// interceptor co-located with the target and commands no correction.
const arrivedEpsilon = 1e-6

// Controller holds the proportional-navigation tuning. NavigationConstant
// is typically 3-5; MaxAcceleration caps the commanded magnitude (m/s²)
// with direction preserved.
type Controller struct {
	NavigationConstant float64
	MaxAcceleration    float64
}

// NewController returns a controller with a navigation constant of 4 and
// the given acceleration limit.
func NewController(maxAccel float64) Controller {
	return Controller{NavigationConstant: 4, MaxAcceleration: maxAccel}
}

// Command computes the lateral acceleration for the current interceptor
// and target states:
//
//	a = N · Vc · ω
//
// where Vc is the closing velocity (negative of the relative velocity's
// projection onto the line of sight) and ω the LOS rotation rate (the
// component of relative velocity perpendicular to the LOS, divided by
// range). A degenerate zero range returns the zero vector.
func (c Controller) Command(interceptorPos, interceptorVel, targetPos, targetVel geom.Vec3) geom.Vec3 {
	rel := targetPos.Sub(interceptorPos)
	rng := rel.Norm()
	if rng < arrivedEpsilon {
		return geom.Vec3{}
	}
	los := rel.Scale(1 / rng)

	relVel := targetVel.Sub(interceptorVel)
	alongLOS := relVel.Dot(los)
	closing := -alongLOS

	// LOS rotation rate: perpendicular relative velocity over range.
	perpVel := relVel.Sub(los.Scale(alongLOS))
	losRate := perpVel.Scale(1 / rng)

	cmd := losRate.Scale(c.NavigationConstant * closing)

	// Clamp magnitude, preserve direction.
	if mag := cmd.Norm(); c.MaxAcceleration > 0 && mag > c.MaxAcceleration {
		cmd = cmd.Scale(c.MaxAcceleration / mag)
	}
	return cmd
}
