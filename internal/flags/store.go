package flags

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Well-known keys.
const (
	KeyOptimizedDefrosting = "optimized_defrosting"
	KeyModeRestore         = "mode_restore"

	// KeySupplySetpointRegulated holds the regulated supply target in
	// tenths of a degree.
	KeySupplySetpointRegulated = "supply_setpoint_regulated"
)

// Store reads and writes persisted flags.
type Store interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (int, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value int) error
}

// SQLiteStore implements Store on the feature_flags table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store on an already migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get returns the stored value for key.
func (s *SQLiteStore) Get(ctx context.Context, key string) (int, bool, error) {
	const query = `SELECT value FROM feature_flags WHERE key = ?`
	var value int
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading flag %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts value under key.
func (s *SQLiteStore) Set(ctx context.Context, key string, value int) error {
	const query = `INSERT INTO feature_flags (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	_, err := s.db.ExecContext(ctx, query, key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing flag %s: %w", key, err)
	}
	return nil
}

// MemoryStore is an in-process Store used when no database is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]int)}
}

// Get returns the stored value for key.
func (m *MemoryStore) Get(_ context.Context, key string) (int, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set stores value under key.
func (m *MemoryStore) Set(_ context.Context, key string, value int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
