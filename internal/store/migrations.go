package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions - one row per pipeline session
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL DEFAULT '',
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		)`,

		// Emissions - append-only log of confirmed signs
		`CREATE TABLE IF NOT EXISTS emissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL DEFAULT '',
			label TEXT NOT NULL,
			kind TEXT NOT NULL,
			confidence REAL NOT NULL,
			sentence TEXT NOT NULL DEFAULT '',
			emitted_at DATETIME NOT NULL
		)`,

		// Signs - locally trained sign definitions
		`CREATE TABLE IF NOT EXISTS signs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			tolerance REAL NOT NULL DEFAULT 0,
			samples INTEGER NOT NULL DEFAULT 0,
			template TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Sign samples - raw recorded samples for training
		`CREATE TABLE IF NOT EXISTS sign_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sign_id TEXT NOT NULL REFERENCES signs(id) ON DELETE CASCADE,
			sample_index INTEGER NOT NULL,
			data TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings - key-value application settings
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_emissions_session_id ON emissions(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_emissions_emitted_at ON emissions(emitted_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sign_samples_sign_id ON sign_samples(sign_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
