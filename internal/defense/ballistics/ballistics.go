// Package ballistics provides pure kinematic projection of threat state
// under constant gravity.
//
// Responsibilities: position/velocity projection, impact-time solving,
// trajectory sampling. All functions are stateless and deterministic.
//
// The gravity constant here is the single source of truth for all
// trajectory maths: the interception solver and the state estimator
// tests build on the same value so the components agree on where a
// threat will be.
package ballistics

import (
	"math"

	"github.com/banshee-data/skyshield/internal/geom"
)

// Gravity is the gravitational acceleration in m/s², acting on the
// negative Y axis.
const Gravity = 9.82

// PositionAt projects a ballistic position forward by t seconds:
// p(t) = p0 + v0·t - ½·g·t² on the vertical axis.
func PositionAt(p0, v0 geom.Vec3, t float64) geom.Vec3 {
	return geom.Vec3{
		X: p0.X + v0.X*t,
		Y: p0.Y + v0.Y*t - 0.5*Gravity*t*t,
		Z: p0.Z + v0.Z*t,
	}
}

// VelocityAt projects a ballistic velocity forward by t seconds.
func VelocityAt(v0 geom.Vec3, t float64) geom.Vec3 {
	return geom.Vec3{
		X: v0.X,
		Y: v0.Y - Gravity*t,
		Z: v0.Z,
	}
}

// TimeToImpact solves 0 = p0.Y + v0.Y·t - ½·g·t² and returns the
// smallest strictly-positive root. ok is false when the discriminant is
// negative or both roots are non-positive (the trajectory never reaches
// the ground going forward in time).
func TimeToImpact(p0, v0 geom.Vec3) (t float64, ok bool) {
	// -½g·t² + v0.Y·t + p0.Y = 0
	a := -0.5 * Gravity
	b := v0.Y
	c := p0.Y

	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, false
	}
	sqrtDisc := math.Sqrt(disc)

	t1 := (-b + sqrtDisc) / (2 * a)
	t2 := (-b - sqrtDisc) / (2 * a)

	return smallestPositive(t1, t2)
}

// ImpactPoint returns the ground point (Y defined as 0) where the
// trajectory lands. ok is false when TimeToImpact has no solution.
func ImpactPoint(p0, v0 geom.Vec3) (geom.Vec3, bool) {
	t, ok := TimeToImpact(p0, v0)
	if !ok {
		return geom.Vec3{}, false
	}
	return geom.Vec3{
		X: p0.X + v0.X*t,
		Y: 0,
		Z: p0.Z + v0.Z*t,
	}, true
}

// TrajectoryPoints samples the ballistic trajectory at fixed step
// intervals until the trajectory crosses below ground or maxTime is
// reached. The returned slice is finite and regenerated from scratch on
// every call.
func TrajectoryPoints(p0, v0 geom.Vec3, step, maxTime float64) []geom.Vec3 {
	if step <= 0 || maxTime <= 0 {
		return nil
	}
	points := make([]geom.Vec3, 0, int(maxTime/step)+1)
	for t := 0.0; t <= maxTime; t += step {
		p := PositionAt(p0, v0, t)
		if p.Y < 0 {
			break
		}
		points = append(points, p)
	}
	return points
}

func smallestPositive(t1, t2 float64) (float64, bool) {
	if t1 > 0 && t2 > 0 {
		if t1 < t2 {
			return t1, true
		}
		return t2, true
	}
	if t1 > 0 {
		return t1, true
	}
	if t2 > 0 {
		return t2, true
	}
	return 0, false
}
