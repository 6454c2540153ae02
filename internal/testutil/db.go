package testutil

import (
	"path/filepath"
	"testing"

	"github.com/runguard/runguard/internal/db"
)

// NewTestJournal returns a temporary, migrated SQLite journal for tests.
//
// The caller does not need to close it; cleanup is registered on t.Cleanup.
func NewTestJournal(t *testing.T) *db.DB {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "journal.db")
	return NewTestJournalAtPath(t, path)
}

// NewTestJournalAtPath creates a migrated SQLite journal at a specific path.
func NewTestJournalAtPath(t *testing.T, path string) *db.DB {
	t.Helper()

	if path == "" {
		t.Fatalf("NewTestJournalAtPath: path is required")
	}

	journal, err := db.OpenAndMigrate(path)
	if err != nil {
		t.Fatalf("opening test journal: %v", err)
	}

	t.Cleanup(func() {
		_ = journal.Close()
	})

	return journal
}

// WithTestJournal runs fn with a temporary test journal.
func WithTestJournal(t *testing.T, fn func(journal *db.DB)) {
	t.Helper()
	if fn == nil {
		t.Fatalf("WithTestJournal: fn is required")
	}
	fn(NewTestJournal(t))
}
