// Package tracks maintains one Kalman filter per observed threat and
// turns raw position sightings into smoothed track state. A track is
// created on first sighting with process noise chosen by how
// maneuverable the threat category is, corrected on every subsequent
// sighting, and coasted (predict-only) when sightings stop arriving.
// Tracks that miss too many maintenance cycles are evicted.
//
// The Manager is safe for concurrent use: writers (Observe,
// MaintainTracks) take the write lock, readers get copied-out
// snapshots.
package tracks
