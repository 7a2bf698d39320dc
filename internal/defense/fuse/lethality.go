package fuse

// WarheadClass is the coarse lethality category of a warhead.
type WarheadClass string

const (
	WarheadSmall  WarheadClass = "small"
	WarheadMedium WarheadClass = "medium"
	WarheadLarge  WarheadClass = "large"
)

// lethalityRadii holds the {lethal, effective, max} radius triple for a
// warhead class. Larger classes have proportionally larger radii, so
// kill probability at a fixed distance increases with class.
type lethalityRadii struct {
	Lethal    float64
	Effective float64
	Max       float64
}

var warheadRadii = map[WarheadClass]lethalityRadii{
	WarheadSmall:  {Lethal: 2, Effective: 5, Max: 10},
	WarheadMedium: {Lethal: 3, Effective: 8, Max: 15},
	WarheadLarge:  {Lethal: 5, Effective: 12, Max: 25},
}

// KillProbability estimates the probability that a detonation at the
// given distance destroys the target: 1.0→0.95 within the lethal
// radius, 0.95→0.5 out to the effective radius, 0.5→0 out to the max
// radius, and 0 beyond. Unknown classes are treated as small.
func KillProbability(distance float64, class WarheadClass) float64 {
	radii, ok := warheadRadii[class]
	if !ok {
		radii = warheadRadii[WarheadSmall]
	}
	switch {
	case distance < 0:
		return 0
	case distance <= radii.Lethal:
		return 1.0 - 0.05*(distance/radii.Lethal)
	case distance <= radii.Effective:
		span := radii.Effective - radii.Lethal
		return 0.95 - 0.45*((distance-radii.Lethal)/span)
	case distance <= radii.Max:
		span := radii.Max - radii.Effective
		return 0.5 - 0.5*((distance-radii.Effective)/span)
	default:
		return 0
	}
}
