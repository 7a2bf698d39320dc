// Package fuse models the proximity fuse and warhead lethality of an
// interceptor in flight.
//
// Each in-flight interceptor owns one ProximityFuse, a small state
// machine: unarmed until the interceptor has flown clear of its own
// launcher, armed while hunting, detonated as a terminal state. Kill
// probability is a separate pure function keyed by warhead class.
package fuse

// FuseState is the lifecycle state of a proximity fuse.
type FuseState string

const (
	FuseUnarmed   FuseState = "unarmed"   // Distance traveled below arming distance
	FuseArmed     FuseState = "armed"     // Eligible to detonate
	FuseDetonated FuseState = "detonated" // Terminal
)

// ProximityFuse decides when an interceptor should detonate.
//
// OptimalRadius must be strictly less than DetonationRadius; this is a
// caller precondition and is not validated here.
type ProximityFuse struct {
	ArmingDistance   float64 // Minimum distance traveled before arming (m)
	DetonationRadius float64 // Maximum separation at which to detonate (m)
	OptimalRadius    float64 // Separation for near-maximum effect (m)

	state FuseState
}

// NewProximityFuse returns an unarmed fuse with the given radii.
func NewProximityFuse(armingDistance, detonationRadius, optimalRadius float64) *ProximityFuse {
	return &ProximityFuse{
		ArmingDistance:   armingDistance,
		DetonationRadius: detonationRadius,
		OptimalRadius:    optimalRadius,
		state:            FuseUnarmed,
	}
}

// State returns the current fuse state.
func (f *ProximityFuse) State() FuseState { return f.state }

// ProximityResult is the outcome of one fuse evaluation.
type ProximityResult struct {
	Detonate bool    // Whether to detonate now
	Quality  float64 // Detonation quality in [0,1]; 0 when not detonating
	Distance float64 // Current separation (m)
}

// Evaluate advances the fuse state machine for one tick.
//
// distanceTraveled is the total distance flown since launch, separation
// the current interceptor-target distance, and closingRate the rate at
// which separation is shrinking (positive while approaching). While
// armed the fuse detonates the moment separation is within
// DetonationRadius, whatever the sign of the closing rate, so a
// near-miss fly-by fires on the way in rather than coasting past. The
// closing rate is part of the standard evaluation geometry and is
// accepted for callers that compute it.
func (f *ProximityFuse) Evaluate(distanceTraveled, separation, closingRate float64) ProximityResult {
	result := ProximityResult{Distance: separation}

	switch f.state {
	case FuseDetonated:
		return result
	case FuseUnarmed:
		if distanceTraveled < f.ArmingDistance {
			return result
		}
		f.state = FuseArmed
	}

	// Entering the detonation envelope fires immediately, whether the
	// target is still closing (closingRate > 0) or already receding
	// after a near-miss fly-by. Outside the envelope the fuse holds.
	if separation <= f.DetonationRadius {
		f.state = FuseDetonated
		result.Detonate = true
		result.Quality = f.DetonationQuality(separation)
	}
	return result
}

// DetonationQuality maps a detonation distance to an effectiveness
// scalar: 1.0 at zero separation ramping to 0.9 at OptimalRadius, then
// down to 0.5 at DetonationRadius, and 0 beyond (no detonation).
func (f *ProximityFuse) DetonationQuality(distance float64) float64 {
	switch {
	case distance < 0:
		return 0
	case distance <= f.OptimalRadius:
		return 1.0 - 0.1*(distance/f.OptimalRadius)
	case distance <= f.DetonationRadius:
		span := f.DetonationRadius - f.OptimalRadius
		return 0.9 - 0.4*((distance-f.OptimalRadius)/span)
	default:
		return 0
	}
}
