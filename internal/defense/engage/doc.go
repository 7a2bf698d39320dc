// Package engage decides which defense battery fires at which threat.
// The Coordinator scores every capable battery for a threat with a
// multiplicative heuristic (range, load, interceptor stock, time
// margin, recent fire, self-defense) and keeps a registry of live
// assignments so a threat with interceptors already en route is not
// engaged twice. PlanAssignments extends the per-threat scorer to a
// globally optimal batch pairing via the Hungarian algorithm.
package engage
