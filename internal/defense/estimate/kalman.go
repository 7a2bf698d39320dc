// Package estimate implements the 9-state constant-acceleration Kalman
// filter that fuses noisy position measurements into a threat state.
//
// The state vector is [x, y, z, vx, vy, vz, ax, ay, az] with a full 9x9
// covariance. Process noise is injected only into the acceleration
// block: maneuver uncertainty is modeled as unpredictable acceleration,
// which the transition matrix then integrates into velocity and
// position covariance.
package estimate

import (
	"math"

	"github.com/banshee-data/skyshield/internal/geom"
	"github.com/banshee-data/skyshield/internal/monitoring"
)

// Initial covariance diagonals for a freshly created filter: position
// is seeded from a real measurement so its uncertainty is moderate,
// while velocity and acceleration start unknown. The velocity and
// acceleration priors must be loose enough to cover threats at several
// hundred m/s under gravity; a tight prior makes the filter lag a
// ballistic arc for seconds even on noiseless sightings.
const (
	initPosVar   = 10.0
	initVelVar   = 10000.0
	initAccelVar = 100.0
)

// Filter is a 9-dimensional constant-acceleration Kalman filter.
// Not safe for concurrent use; the track manager serialises access.
type Filter struct {
	x geom.Vec9
	p geom.Mat9

	processNoise     float64 // Acceleration variance injected per second
	measurementNoise float64 // Position measurement variance
}

// NewFilter creates a filter seeded with an initial kinematic state.
func NewFilter(position, velocity, acceleration geom.Vec3, processNoise, measurementNoise float64) *Filter {
	f := &Filter{
		processNoise:     processNoise,
		measurementNoise: measurementNoise,
	}
	f.x = stateVector(position, velocity, acceleration)
	for i := 0; i < 3; i++ {
		f.p.Set(i, i, initPosVar)
		f.p.Set(i+3, i+3, initVelVar)
		f.p.Set(i+6, i+6, initAccelVar)
	}
	return f
}

// Position returns the estimated position.
func (f *Filter) Position() geom.Vec3 {
	return geom.Vec3{X: f.x[0], Y: f.x[1], Z: f.x[2]}
}

// Velocity returns the estimated velocity.
func (f *Filter) Velocity() geom.Vec3 {
	return geom.Vec3{X: f.x[3], Y: f.x[4], Z: f.x[5]}
}

// Acceleration returns the estimated acceleration.
func (f *Filter) Acceleration() geom.Vec3 {
	return geom.Vec3{X: f.x[6], Y: f.x[7], Z: f.x[8]}
}

// Predict advances the state and covariance by dt seconds:
// x' = F·x, P' = F·P·Fᵀ + Q.
func (f *Filter) Predict(dt float64) {
	if dt <= 0 {
		return
	}
	F := transitionMatrix(dt)
	f.x = F.MulVec(f.x)
	f.p = F.Mul(f.p).Mul(F.Transpose()).Add(f.processNoiseMatrix(dt))
	f.guardFinite("predict")
}

// UpdatePosition corrects the filter with a position-only measurement.
// A near-singular innovation covariance falls back to the identity
// inverse rather than failing.
func (f *Filter) UpdatePosition(z geom.Vec3) {
	// Innovation y = z − H·x, where H extracts the position block.
	y := z.Sub(f.Position())

	// Innovation covariance S = H·P·Hᵀ + R.
	var s geom.Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			s.Set(i, j, f.p.At(i, j))
		}
		s.Set(i, i, s.At(i, i)+f.measurementNoise)
	}
	sInv, ok := s.Invert()
	if !ok {
		monitoring.Logf("estimate: singular innovation covariance, using identity inverse")
	}

	// Kalman gain K = P·Hᵀ·S⁻¹ (9x3). P·Hᵀ is the first three columns
	// of P.
	var k [27]float64 // Row-major 9x3
	for i := 0; i < 9; i++ {
		for j := 0; j < 3; j++ {
			k[i*3+j] = f.p.At(i, 0)*sInv.At(0, j) +
				f.p.At(i, 1)*sInv.At(1, j) +
				f.p.At(i, 2)*sInv.At(2, j)
		}
	}

	// State update x' = x + K·y.
	for i := 0; i < 9; i++ {
		f.x[i] += k[i*3+0]*y.X + k[i*3+1]*y.Y + k[i*3+2]*y.Z
	}

	// Covariance update P' = (I − K·H)·P. (K·H)[i][j] = K[i][j] for
	// j < 3, zero elsewhere.
	ikh := geom.Identity9()
	for i := 0; i < 9; i++ {
		for j := 0; j < 3; j++ {
			ikh.Set(i, j, ikh.At(i, j)-k[i*3+j])
		}
	}
	f.p = ikh.Mul(f.p).Symmetrize()
	f.guardFinite("update")
}

// PositionUncertainty reports the RMS of the position-diagonal
// covariance entries, in metres.
func (f *Filter) PositionUncertainty() float64 {
	sum := f.p.At(0, 0) + f.p.At(1, 1) + f.p.At(2, 2)
	if sum < 0 {
		return 0
	}
	return math.Sqrt(sum / 3)
}

// PredictFuturePosition projects the kinematic state forward by t
// seconds without mutating the filter, returning the projected position
// and the RMS position uncertainty under F(t)·P·F(t)ᵀ covariance
// propagation. Uncertainty grows with the projection horizon.
func (f *Filter) PredictFuturePosition(t float64) (geom.Vec3, float64) {
	if t <= 0 {
		return f.Position(), f.PositionUncertainty()
	}
	F := transitionMatrix(t)
	xf := F.MulVec(f.x)
	pf := F.Mul(f.p).Mul(F.Transpose())

	sum := pf.At(0, 0) + pf.At(1, 1) + pf.At(2, 2)
	if sum < 0 {
		sum = 0
	}
	return geom.Vec3{X: xf[0], Y: xf[1], Z: xf[2]}, math.Sqrt(sum / 3)
}

// guardFinite resets the covariance to the initial diagonal if any
// state or covariance entry went non-finite. Singular inversions and
// degenerate inputs can otherwise poison every later estimate.
func (f *Filter) guardFinite(stage string) {
	for _, v := range f.x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			f.reset(stage)
			return
		}
	}
	for i := 0; i < 9; i++ {
		d := f.p.At(i, i)
		if math.IsNaN(d) || math.IsInf(d, 0) {
			f.reset(stage)
			return
		}
	}
}

func (f *Filter) reset(stage string) {
	monitoring.Logf("estimate: non-finite state after %s, resetting covariance", stage)
	f.x = geom.Vec9{}
	f.p = geom.Mat9{}
	for i := 0; i < 3; i++ {
		f.p.Set(i, i, initPosVar)
		f.p.Set(i+3, i+3, initVelVar)
		f.p.Set(i+6, i+6, initAccelVar)
	}
}

// transitionMatrix builds F(dt) for the constant-acceleration model:
// position += velocity·dt + ½·acceleration·dt², velocity +=
// acceleration·dt, acceleration held.
func transitionMatrix(dt float64) geom.Mat9 {
	F := geom.Identity9()
	half := 0.5 * dt * dt
	for i := 0; i < 3; i++ {
		F.Set(i, i+3, dt)
		F.Set(i, i+6, half)
		F.Set(i+3, i+6, dt)
	}
	return F
}

// processNoiseMatrix builds Q(dt) with noise only on the acceleration
// diagonal, scaled by dt so uncertainty growth is frame-rate
// independent.
func (f *Filter) processNoiseMatrix(dt float64) geom.Mat9 {
	var q geom.Mat9
	for i := 6; i < 9; i++ {
		q.Set(i, i, f.processNoise*dt)
	}
	return q
}

func stateVector(position, velocity, acceleration geom.Vec3) geom.Vec9 {
	return geom.Vec9{
		position.X, position.Y, position.Z,
		velocity.X, velocity.Y, velocity.Z,
		acceleration.X, acceleration.Y, acceleration.Z,
	}
}
