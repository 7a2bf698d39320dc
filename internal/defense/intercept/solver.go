package intercept

import (
	"math"

	"github.com/banshee-data/skyshield/internal/defense/ballistics"
	"github.com/banshee-data/skyshield/internal/geom"
)

// Solver search parameters. The ballistic search is a tolerance-based
// time scan: it accepts the first simulated time within Step/2 of the
// interceptor travel time, so solution precision is bounded by Step.
// This is intentionally not refined with bisection or a Newton step;
// see DESIGN.md.
const (
	// DefaultStep is the coarse time step of the ballistic scan (s).
	DefaultStep = 0.1
	// DefaultHorizon is the maximum look-ahead for both solvers (s).
	DefaultHorizon = 60.0
)

// Solution describes a computed rendezvous.
type Solution struct {
	// Point is the predicted intercept position.
	Point geom.Vec3
	// TimeToIntercept is the time from launch until rendezvous (s).
	TimeToIntercept float64
	// LaunchVelocity points from the launch position toward Point,
	// scaled to the interceptor speed.
	LaunchVelocity geom.Vec3
	// Probability is a heuristic success estimate in [0,1].
	Probability float64
}

// Solver holds the tunable search parameters. The zero value is not
// usable; construct with NewSolver.
type Solver struct {
	Step    float64
	Horizon float64
}

// NewSolver returns a solver with the default step and horizon.
func NewSolver() Solver {
	return Solver{Step: DefaultStep, Horizon: DefaultHorizon}
}

// SolveBallistic scans simulated time for a rendezvous with a ballistic
// threat. At each step the threat is projected forward under gravity;
// the first time whose straight-line interceptor travel time matches it
// within Step/2 is accepted. maxRange feeds the probability estimate's
// range-closeness term.
func (s Solver) SolveBallistic(threatPos, threatVel, launchPos geom.Vec3, interceptorSpeed, maxRange float64) (Solution, bool) {
	if interceptorSpeed <= 0 {
		return Solution{}, false
	}
	for t := 0.0; t <= s.Horizon; t += s.Step {
		future := ballistics.PositionAt(threatPos, threatVel, t)
		if future.Y <= 0 {
			// Threat reaches the ground before this rendezvous time.
			return Solution{}, false
		}
		dist := launchPos.Dist(future)
		travel := dist / interceptorSpeed
		if math.Abs(t-travel) < s.Step/2 {
			return s.solution(launchPos, future, t, interceptorSpeed, maxRange, threatVel.Norm()), true
		}
	}
	return Solution{}, false
}

// SolveConstantVelocity computes the exact rendezvous with a target
// moving at constant velocity by solving
//
//	|target(t) − launch|² = (speed·t)²
//
// as a quadratic in t. The smallest strictly-positive real root within
// the horizon wins; a negative discriminant or out-of-range roots mean
// no solution.
func (s Solver) SolveConstantVelocity(targetPos, targetVel, launchPos geom.Vec3, interceptorSpeed, maxRange float64) (Solution, bool) {
	if interceptorSpeed <= 0 {
		return Solution{}, false
	}
	r := targetPos.Sub(launchPos)

	a := targetVel.NormSquared() - interceptorSpeed*interceptorSpeed
	b := 2 * r.Dot(targetVel)
	c := r.NormSquared()

	t, ok := smallestPositiveRoot(a, b, c)
	if !ok || t > s.Horizon {
		return Solution{}, false
	}

	point := targetPos.Add(targetVel.Scale(t))
	return s.solution(launchPos, point, t, interceptorSpeed, maxRange, targetVel.Norm()), true
}

// solution assembles the launch vector and the heuristic probability:
// a 0.4/0.3/0.3 blend of range closeness, time closeness and the
// interceptor/threat speed ratio, each clamped to [0,1].
func (s Solver) solution(launchPos, point geom.Vec3, t, interceptorSpeed, maxRange, threatSpeed float64) Solution {
	dist := launchPos.Dist(point)

	rangeFactor := 1.0
	if maxRange > 0 {
		rangeFactor = clamp01(1 - dist/maxRange)
	}
	timeFactor := clamp01(1 - t/s.Horizon)
	speedFactor := 1.0
	if threatSpeed > 0 {
		// Saturates at a 2:1 interceptor speed advantage.
		speedFactor = clamp01(interceptorSpeed / threatSpeed / 2)
	}

	return Solution{
		Point:           point,
		TimeToIntercept: t,
		LaunchVelocity:  point.Sub(launchPos).Unit().Scale(interceptorSpeed),
		Probability:     0.4*rangeFactor + 0.3*timeFactor + 0.3*speedFactor,
	}
}

// smallestPositiveRoot solves a·t²+b·t+c=0 for the smallest strictly
// positive real root. A degenerate quadratic (a ≈ 0) falls back to the
// linear solution.
func smallestPositiveRoot(a, b, c float64) (float64, bool) {
	if math.Abs(a) < 1e-12 {
		if math.Abs(b) < 1e-12 {
			return 0, false
		}
		t := -c / b
		if t > 0 {
			return t, true
		}
		return 0, false
	}

	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, false
	}
	sqrtDisc := math.Sqrt(disc)
	t1 := (-b - sqrtDisc) / (2 * a)
	t2 := (-b + sqrtDisc) / (2 * a)
	if t1 > t2 {
		t1, t2 = t2, t1
	}
	if t1 > 0 {
		return t1, true
	}
	if t2 > 0 {
		return t2, true
	}
	return 0, false
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
