package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Alert is one recorded alert delivery attempt.
type Alert struct {
	ID       string    `json:"id"`
	Identity string    `json:"identity"`
	Caption  string    `json:"caption"`
	Success  bool      `json:"success"`
	Error    string    `json:"error,omitempty"`
	SentAt   time.Time `json:"sent_at"`
}

// AlertRepository provides access to recorded alerts.
type AlertRepository struct {
	db *sql.DB
}

// Alerts returns the alert repository for this store.
func (s *Store) Alerts() *AlertRepository {
	return &AlertRepository{db: s.db}
}

// Create inserts a new alert record.
func (r *AlertRepository) Create(a *Alert) error {
	if a.SentAt.IsZero() {
		a.SentAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO alerts (id, identity, caption, success, error, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Identity, a.Caption, a.Success, a.Error, a.SentAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// GetByID retrieves an alert by its ID.
func (r *AlertRepository) GetByID(id string) (*Alert, error) {
	a := &Alert{}
	var success int

	err := r.db.QueryRow(
		`SELECT id, identity, caption, success, error, sent_at FROM alerts WHERE id = ?`,
		id,
	).Scan(&a.ID, &a.Identity, &a.Caption, &success, &a.Error, &a.SentAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	a.Success = success != 0
	return a, nil
}

// List returns the newest alerts, optionally for a single identity.
func (r *AlertRepository) List(identity string, limit int) ([]*Alert, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT id, identity, caption, success, error, sent_at FROM alerts`
	args := []any{}
	if identity != "" {
		query += ` WHERE identity = ?`
		args = append(args, identity)
	}
	query += ` ORDER BY sent_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*Alert
	for rows.Next() {
		a := &Alert{}
		var success int
		if err := rows.Scan(&a.ID, &a.Identity, &a.Caption, &success, &a.Error, &a.SentAt); err != nil {
			return nil, err
		}
		a.Success = success != 0
		alerts = append(alerts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return alerts, nil
}
