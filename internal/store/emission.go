package store

import (
	"database/sql"
	"time"
)

// Emission is one confirmed sign in a session's log.
type Emission struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	UserID     string    `json:"user_id"`
	Label      string    `json:"label"`
	Kind       string    `json:"kind"`
	Confidence float64   `json:"confidence"`
	Sentence   string    `json:"sentence"`
	EmittedAt  time.Time `json:"emitted_at"`
}

// EmissionRepository provides the append-only emission log.
type EmissionRepository struct {
	db *sql.DB
}

// Emissions returns the emission repository for this store.
func (s *Store) Emissions() *EmissionRepository {
	return &EmissionRepository{db: s.db}
}

// Append records an emission and sets its ID.
func (r *EmissionRepository) Append(e *Emission) error {
	if e.EmittedAt.IsZero() {
		e.EmittedAt = time.Now()
	}
	e.EmittedAt = e.EmittedAt.UTC()

	result, err := r.db.Exec(
		`INSERT INTO emissions (session_id, user_id, label, kind, confidence, sentence, emitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.UserID, e.Label, e.Kind, e.Confidence, e.Sentence, e.EmittedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// ListBySession returns up to limit emissions of a session, newest first.
func (r *EmissionRepository) ListBySession(sessionID string, limit int) ([]Emission, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(
		`SELECT id, session_id, user_id, label, kind, confidence, sentence, emitted_at
		 FROM emissions
		 WHERE session_id = ?
		 ORDER BY emitted_at DESC, id DESC
		 LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emissions []Emission
	for rows.Next() {
		var e Emission
		if err := rows.Scan(&e.ID, &e.SessionID, &e.UserID, &e.Label, &e.Kind, &e.Confidence, &e.Sentence, &e.EmittedAt); err != nil {
			return nil, err
		}
		emissions = append(emissions, e)
	}

	return emissions, rows.Err()
}

// PruneBefore deletes emissions older than cutoff and returns how many
// were removed.
func (r *EmissionRepository) PruneBefore(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM emissions WHERE emitted_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
