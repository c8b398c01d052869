package store

import (
	"fmt"
	"strings"
	"time"
)

// Detection is one recorded known-person sighting.
type Detection struct {
	ID         int64     `json:"id"`
	JobID      string    `json:"job_id"`
	Identity   string    `json:"identity"`
	Top        int       `json:"top"`
	Right      int       `json:"right"`
	Bottom     int       `json:"bottom"`
	Left       int       `json:"left"`
	FrameSeq   uint64    `json:"frame_seq"`
	Snapshot   string    `json:"snapshot,omitempty"`
	Alerted    bool      `json:"alerted"`
	DetectedAt time.Time `json:"detected_at"`
}

// DetectionFilter narrows a detection listing. Zero values match everything.
type DetectionFilter struct {
	Identity string
	Since    time.Time
	Limit    int
}

// IdentityCount is the number of detections recorded for one identity.
type IdentityCount struct {
	Identity string    `json:"identity"`
	Count    int       `json:"count"`
	LastSeen time.Time `json:"last_seen"`
}

// DefaultListLimit caps listings that do not set a limit.
const DefaultListLimit = 100

// DetectionRepository provides access to recorded detections.
type DetectionRepository struct {
	s *Store
}

// Detections returns the detection repository for this store.
func (s *Store) Detections() *DetectionRepository {
	return &DetectionRepository{s: s}
}

// Create inserts d and sets its ID.
func (r *DetectionRepository) Create(d *Detection) error {
	if d.DetectedAt.IsZero() {
		d.DetectedAt = time.Now()
	}

	res, err := r.s.db.Exec(
		`INSERT INTO detections (job_id, identity, box_top, box_right, box_bottom, box_left, frame_seq, snapshot, alerted, detected_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.JobID, d.Identity, d.Top, d.Right, d.Bottom, d.Left, int64(d.FrameSeq), d.Snapshot, d.Alerted, d.DetectedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert detection: %w", err)
	}

	d.ID, err = res.LastInsertId()
	return err
}

// List returns detections matching f, newest first.
func (r *DetectionRepository) List(f DetectionFilter) ([]*Detection, error) {
	var (
		where []string
		args  []any
	)
	if f.Identity != "" {
		where = append(where, "identity = ?")
		args = append(args, f.Identity)
	}
	if !f.Since.IsZero() {
		where = append(where, "detected_at >= ?")
		args = append(args, f.Since.UTC())
	}

	query := ""
	if len(where) > 0 {
		query = "WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY detected_at DESC, id DESC LIMIT ?"

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	args = append(args, limit)

	return r.list(query, args...)
}

// GetByID retrieves a detection by its ID.
func (r *DetectionRepository) GetByID(id int64) (*Detection, error) {
	list, err := r.list(`WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

func (r *DetectionRepository) list(where string, args ...any) ([]*Detection, error) {
	rows, err := r.s.db.Query(
		`SELECT id, job_id, identity, box_top, box_right, box_bottom, box_left, frame_seq, snapshot, alerted, detected_at
		 FROM detections `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var detections []*Detection
	for rows.Next() {
		d := &Detection{}
		var seq int64
		var alerted int
		if err := rows.Scan(&d.ID, &d.JobID, &d.Identity, &d.Top, &d.Right, &d.Bottom, &d.Left, &seq, &d.Snapshot, &alerted, &d.DetectedAt); err != nil {
			return nil, err
		}
		d.FrameSeq = uint64(seq)
		d.Alerted = alerted != 0
		detections = append(detections, d)
	}
	return detections, rows.Err()
}

// CountByIdentity returns per-identity detection counts, most seen first.
func (r *DetectionRepository) CountByIdentity() ([]IdentityCount, error) {
	rows, err := r.s.db.Query(
		`SELECT identity, COUNT(*), MAX(detected_at) FROM detections
		 GROUP BY identity ORDER BY COUNT(*) DESC, identity ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []IdentityCount
	for rows.Next() {
		var c IdentityCount
		var last string
		if err := rows.Scan(&c.Identity, &c.Count, &last); err != nil {
			return nil, err
		}
		c.LastSeen = parseTime(last)
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// Prune deletes detections older than before and returns how many were removed.
func (r *DetectionRepository) Prune(before time.Time) (int64, error) {
	res, err := r.s.db.Exec(`DELETE FROM detections WHERE detected_at < ?`, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// parseTime reads an aggregate timestamp, which SQLite returns as text.
func parseTime(s string) time.Time {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999 -0700 MST",
		time.RFC3339Nano,
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
