package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Sign is a locally trained sign definition. Template holds the averaged
// feature vector once the sign has been trained.
type Sign struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Tolerance float64   `json:"tolerance"`
	Samples   int       `json:"samples"`
	Template  []float64 `json:"template,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Trained reports whether the sign has a template.
func (s *Sign) Trained() bool {
	return len(s.Template) > 0
}

// SignRepository provides CRUD operations for signs.
type SignRepository struct {
	db *sql.DB
}

// Signs returns the sign repository for this store.
func (s *Store) Signs() *SignRepository {
	return &SignRepository{db: s.db}
}

const signColumns = `id, name, tolerance, samples, template, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSign(row rowScanner) (*Sign, error) {
	sg := &Sign{}
	var template sql.NullString
	if err := row.Scan(&sg.ID, &sg.Name, &sg.Tolerance, &sg.Samples, &template, &sg.CreatedAt, &sg.UpdatedAt); err != nil {
		return nil, err
	}
	if template.Valid && template.String != "" {
		if err := json.Unmarshal([]byte(template.String), &sg.Template); err != nil {
			return nil, fmt.Errorf("decode template for sign %s: %w", sg.ID, err)
		}
	}
	return sg, nil
}

func encodeTemplate(template []float64) (sql.NullString, error) {
	if len(template) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(template)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// Create inserts a new sign into the database.
func (r *SignRepository) Create(sg *Sign) error {
	now := time.Now().UTC()
	sg.CreatedAt = now
	sg.UpdatedAt = now

	template, err := encodeTemplate(sg.Template)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(
		`INSERT INTO signs (`+signColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sg.ID, sg.Name, sg.Tolerance, sg.Samples, template, sg.CreatedAt, sg.UpdatedAt,
	)
	return err
}

// GetByID retrieves a sign by its ID.
func (r *SignRepository) GetByID(id string) (*Sign, error) {
	sg, err := scanSign(r.db.QueryRow(`SELECT `+signColumns+` FROM signs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sg, err
}

// GetByName retrieves a sign by its name.
func (r *SignRepository) GetByName(name string) (*Sign, error) {
	sg, err := scanSign(r.db.QueryRow(`SELECT `+signColumns+` FROM signs WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sg, err
}

// List retrieves all signs, newest first.
func (r *SignRepository) List() ([]*Sign, error) {
	rows, err := r.db.Query(`SELECT ` + signColumns + ` FROM signs ORDER BY created_at DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signs []*Sign
	for rows.Next() {
		sg, err := scanSign(rows)
		if err != nil {
			return nil, err
		}
		signs = append(signs, sg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return signs, nil
}

// Update updates a sign's name, tolerance and template.
func (r *SignRepository) Update(sg *Sign) error {
	sg.UpdatedAt = time.Now().UTC()

	template, err := encodeTemplate(sg.Template)
	if err != nil {
		return err
	}

	result, err := r.db.Exec(
		`UPDATE signs SET name = ?, tolerance = ?, template = ?, updated_at = ? WHERE id = ?`,
		sg.Name, sg.Tolerance, template, sg.UpdatedAt, sg.ID,
	)
	if err != nil {
		return err
	}
	return affectedOne(result)
}

// SetTemplate stores a trained template for the sign.
func (r *SignRepository) SetTemplate(id string, template []float64) error {
	encoded, err := encodeTemplate(template)
	if err != nil {
		return err
	}

	result, err := r.db.Exec(
		`UPDATE signs SET template = ?, updated_at = ? WHERE id = ?`,
		encoded, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return affectedOne(result)
}

// Delete removes a sign and its samples.
func (r *SignRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM signs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOne(result)
}
