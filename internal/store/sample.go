package store

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Sample represents a recorded sign sample stored in the database.
type Sample struct {
	ID          int64           `json:"id"`
	SignID      string          `json:"sign_id"`
	SampleIndex int             `json:"sample_index"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SampleRepository provides operations for sign samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Add appends samples for a sign in a single transaction and updates the
// sign's sample count. It returns the new total.
func (r *SampleRepository) Add(signID string, samples []json.RawMessage) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM signs WHERE id = ?`, signID).Scan(&exists); err != nil {
		return 0, err
	}
	if exists == 0 {
		return 0, ErrNotFound
	}

	var next int
	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(sample_index) + 1, 0) FROM sign_samples WHERE sign_id = ?`, signID,
	).Scan(&next); err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(`INSERT INTO sign_samples (sign_id, sample_index, data, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, data := range samples {
		if _, err := stmt.Exec(signID, next+i, string(data), now); err != nil {
			return 0, err
		}
	}

	var total int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM sign_samples WHERE sign_id = ?`, signID).Scan(&total); err != nil {
		return 0, err
	}

	if _, err := tx.Exec(`UPDATE signs SET samples = ?, updated_at = ? WHERE id = ?`, total, now, signID); err != nil {
		return 0, err
	}

	return total, tx.Commit()
}

// GetBySignID retrieves all samples for a sign in recording order.
func (r *SampleRepository) GetBySignID(signID string) ([]Sample, error) {
	rows, err := r.db.Query(
		`SELECT id, sign_id, sample_index, data, created_at
		 FROM sign_samples
		 WHERE sign_id = ?
		 ORDER BY sample_index`,
		signID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		var data string
		if err := rows.Scan(&s.ID, &s.SignID, &s.SampleIndex, &data, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Data = json.RawMessage(data)
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// DeleteBySignID removes all samples for a sign and resets its count.
func (r *SampleRepository) DeleteBySignID(signID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM sign_samples WHERE sign_id = ?`, signID); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE signs SET samples = 0, updated_at = ? WHERE id = ?`, time.Now().UTC(), signID); err != nil {
		return err
	}
	return tx.Commit()
}
