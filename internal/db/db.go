// Package db persists the invocation journal in SQLite.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite handle holding the journal.
type DB struct {
	*sql.DB

	path string
}

// DefaultPath returns the journal location under the user's home directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".runguard", "journal.db"), nil
}

// Open opens (creating if needed) the journal database at path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	handle, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	// SQLite tolerates one writer; serialize access through a single conn.
	handle.SetMaxOpenConns(1)

	if err := handle.Ping(); err != nil {
		handle.Close()
		return nil, fmt.Errorf("pinging journal: %w", err)
	}

	return &DB{DB: handle, path: path}, nil
}

// Path returns the file backing this database.
func (db *DB) Path() string {
	return db.path
}

// migrations are applied in order; user_version tracks progress.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS invocations (
		id            TEXT PRIMARY KEY,
		created_at    TEXT NOT NULL,
		command       TEXT NOT NULL,
		requires_shell INTEGER NOT NULL DEFAULT 0,
		risk          TEXT NOT NULL,
		matches       TEXT NOT NULL DEFAULT '[]',
		decision      TEXT NOT NULL,
		outcome       TEXT NOT NULL,
		exit_code     INTEGER,
		signal        INTEGER,
		duration_ms   INTEGER NOT NULL DEFAULT 0,
		stdout_bytes  INTEGER NOT NULL DEFAULT 0,
		stderr_bytes  INTEGER NOT NULL DEFAULT 0,
		truncated     INTEGER NOT NULL DEFAULT 0,
		cwd           TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_invocations_created_at ON invocations(created_at);
	CREATE INDEX IF NOT EXISTS idx_invocations_risk ON invocations(risk);
	CREATE INDEX IF NOT EXISTS idx_invocations_outcome ON invocations(outcome);`,
}

// Migrate applies any pending schema migrations.
func (db *DB) Migrate() error {
	var version int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", i+1, err)
		}
		// PRAGMA does not take placeholders.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", i+1, err)
		}
	}

	return nil
}

// OpenAndMigrate opens the journal and brings its schema up to date.
func OpenAndMigrate(path string) (*DB, error) {
	database, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}
