package store

import (
	"fmt"

	"github.com/banshee-data/skyshield/internal/geom"
)

// TrackObservation is one recorded sighting of a threat together with
// the filtered estimate the track manager produced from it.
type TrackObservation struct {
	ThreatID    string
	TrackID     string
	Category    string
	TSUnixNanos int64

	// Raw sighting (world frame)
	Measured geom.Vec3

	// Filtered estimate
	Position geom.Vec3
	Velocity geom.Vec3

	Uncertainty float64
	Quality     float64
}

// AssignmentRecord is one committed battery-to-threat engagement at the
// moment it was recorded.
type AssignmentRecord struct {
	ThreatID         string
	BatteryID        string
	InterceptorCount int
	TSUnixNanos      int64
}

// Detonation is the terminal outcome of one interceptor.
type Detonation struct {
	ThreatID        string
	InterceptorID   string
	TSUnixNanos     int64
	Distance        float64
	Quality         float64
	KillProbability float64
	Killed          bool
}

// InsertTrackObservation records one sighting with its estimate.
func (s *Store) InsertTrackObservation(obs *TrackObservation) error {
	query := `
		INSERT INTO track_observations (
			threat_id, track_id, category, ts_unix_nanos,
			measured_x, measured_y, measured_z,
			est_x, est_y, est_z,
			est_vx, est_vy, est_vz,
			uncertainty, quality
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.Exec(query,
		obs.ThreatID,
		obs.TrackID,
		obs.Category,
		obs.TSUnixNanos,
		obs.Measured.X, obs.Measured.Y, obs.Measured.Z,
		obs.Position.X, obs.Position.Y, obs.Position.Z,
		obs.Velocity.X, obs.Velocity.Y, obs.Velocity.Z,
		obs.Uncertainty,
		obs.Quality,
	)
	if err != nil {
		return fmt.Errorf("insert track observation: %w", err)
	}
	return nil
}

// InsertAssignment records a committed engagement.
func (s *Store) InsertAssignment(rec *AssignmentRecord) error {
	query := `
		INSERT INTO assignments (
			threat_id, battery_id, interceptor_count, assigned_unix_nanos
		) VALUES (?, ?, ?, ?)
	`

	_, err := s.Exec(query,
		rec.ThreatID,
		rec.BatteryID,
		rec.InterceptorCount,
		rec.TSUnixNanos,
	)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

// InsertDetonation records an interceptor's terminal outcome.
func (s *Store) InsertDetonation(det *Detonation) error {
	query := `
		INSERT INTO detonations (
			threat_id, interceptor_id, ts_unix_nanos,
			distance, quality, kill_probability, killed
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.Exec(query,
		det.ThreatID,
		det.InterceptorID,
		det.TSUnixNanos,
		det.Distance,
		det.Quality,
		det.KillProbability,
		det.Killed,
	)
	if err != nil {
		return fmt.Errorf("insert detonation: %w", err)
	}
	return nil
}

// GetTrackObservations returns a threat's observations in time order,
// up to limit rows (0 means no limit).
func (s *Store) GetTrackObservations(threatID string, limit int) ([]*TrackObservation, error) {
	query := `
		SELECT threat_id, track_id, category, ts_unix_nanos,
		       measured_x, measured_y, measured_z,
		       est_x, est_y, est_z,
		       est_vx, est_vy, est_vz,
		       uncertainty, quality
		FROM track_observations
		WHERE threat_id = ?
		ORDER BY ts_unix_nanos ASC
	`
	args := []interface{}{threatID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query track observations: %w", err)
	}
	defer rows.Close()

	var observations []*TrackObservation
	for rows.Next() {
		obs := &TrackObservation{}
		err := rows.Scan(
			&obs.ThreatID,
			&obs.TrackID,
			&obs.Category,
			&obs.TSUnixNanos,
			&obs.Measured.X, &obs.Measured.Y, &obs.Measured.Z,
			&obs.Position.X, &obs.Position.Y, &obs.Position.Z,
			&obs.Velocity.X, &obs.Velocity.Y, &obs.Velocity.Z,
			&obs.Uncertainty,
			&obs.Quality,
		)
		if err != nil {
			return nil, fmt.Errorf("scan track observation: %w", err)
		}
		observations = append(observations, obs)
	}
	return observations, rows.Err()
}

// ListThreats returns the distinct threat ids with recorded
// observations, in ascending order.
func (s *Store) ListThreats() ([]string, error) {
	rows, err := s.Query(`
		SELECT DISTINCT threat_id FROM track_observations ORDER BY threat_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query threats: %w", err)
	}
	defer rows.Close()

	var threats []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan threat id: %w", err)
		}
		threats = append(threats, id)
	}
	return threats, rows.Err()
}

// GetAssignments returns all recorded assignments in time order.
func (s *Store) GetAssignments() ([]*AssignmentRecord, error) {
	rows, err := s.Query(`
		SELECT threat_id, battery_id, interceptor_count, assigned_unix_nanos
		FROM assignments
		ORDER BY assigned_unix_nanos ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	defer rows.Close()

	var records []*AssignmentRecord
	for rows.Next() {
		rec := &AssignmentRecord{}
		err := rows.Scan(&rec.ThreatID, &rec.BatteryID, &rec.InterceptorCount, &rec.TSUnixNanos)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetDetonations returns all recorded detonations in time order.
func (s *Store) GetDetonations() ([]*Detonation, error) {
	rows, err := s.Query(`
		SELECT threat_id, interceptor_id, ts_unix_nanos,
		       distance, quality, kill_probability, killed
		FROM detonations
		ORDER BY ts_unix_nanos ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query detonations: %w", err)
	}
	defer rows.Close()

	var detonations []*Detonation
	for rows.Next() {
		det := &Detonation{}
		err := rows.Scan(
			&det.ThreatID,
			&det.InterceptorID,
			&det.TSUnixNanos,
			&det.Distance,
			&det.Quality,
			&det.KillProbability,
			&det.Killed,
		)
		if err != nil {
			return nil, fmt.Errorf("scan detonation: %w", err)
		}
		detonations = append(detonations, det)
	}
	return detonations, rows.Err()
}
