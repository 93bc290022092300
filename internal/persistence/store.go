package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/aristath/questloop/internal/scheduler"
)

// SettingsStore is a string key/value store for state that must survive
// process restarts, such as the first-run timestamp.
type SettingsStore interface {
	// Get returns the stored value, or def when the key was never set.
	Get(ctx context.Context, key, def string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Store defines the persistence interface for settings and the attempt journal.
type Store interface {
	SettingsStore

	// Attempt journal. Written once per task execution, never read back
	// into the engine.
	RecordAttempt(ctx context.Context, attempt scheduler.Attempt) error
	ListAttempts(ctx context.Context, runID string) ([]scheduler.Attempt, error)
	RunID() string

	// Lifecycle
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	runID string
}

// NewSQLiteStore creates a new SQLite-backed store at the given path.
// Creates parent directories if needed. Enables WAL mode and busy timeout.
// Every store gets a fresh run ID that tags the attempts it records.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	return open(ctx, connStr)
}

// NewMemoryStore creates an in-memory SQLite store for testing.
// Each call gets its own named database; the shared cache lets the pool's
// connections see the same data.
func NewMemoryStore(ctx context.Context) (*SQLiteStore, error) {
	connStr := fmt.Sprintf("file:questloop-%s?mode=memory&cache=shared", uuid.NewString())
	return open(ctx, connStr)
}

func open(ctx context.Context, connStr string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Note: modernc.org/sqlite doesn't support _foreign_keys in connection string
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	db.SetMaxOpenConns(2)

	store := &SQLiteStore{db: db, runID: uuid.NewString()}

	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// RunID identifies the attempts recorded by this store.
func (s *SQLiteStore) RunID() string {
	return s.runID
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
