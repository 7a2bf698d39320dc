// Package intercept finds rendezvous solutions between an interceptor
// launch point and a moving threat.
//
// Two solvers are provided: an iterative time-scan for ballistic
// threats (the threat's future position depends quadratically on time)
// and an exact closed-form quadratic for constant-velocity threats such
// as drones. Both are pure and deterministic; absence of a reachable
// intercept is reported as ok=false, never as an error.
package intercept
