package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// State history source values.
const (
	StateHistorySourceCommand = "command"
	StateHistorySourceDrift   = "drift"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// StateHistoryEntry is a single recorded state change. Each entry stores a
// full snapshot of the device state at the time of the change, giving a
// local audit trail independent of the time-series database.
//
// History is write-only from the store's point of view: it is never read
// back to seed device state, which stays catalog-defined across restarts.
type StateHistoryEntry struct {
	ID        int64     `json:"id"`
	Device    Type      `json:"device"`
	Location  string    `json:"location"`
	State     State     `json:"state"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// StateHistoryRepository stores and retrieves device state change history.
// Implementations must be thread-safe and use UTC timestamps.
type StateHistoryRepository interface {
	// RecordStateChange appends a state change record.
	RecordStateChange(ctx context.Context, t Type, location string, state State, source string) error

	// GetHistory returns recent history for a device, newest first.
	// limit is clamped to [1, 200]; zero selects the default of 50.
	GetHistory(ctx context.Context, t Type, location string, limit int) ([]StateHistoryEntry, error)
}

// SQLiteStateHistoryRepository implements StateHistoryRepository on SQLite,
// storing state snapshots as JSON in the state_history table.
type SQLiteStateHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteStateHistoryRepository creates a state history repository backed
// by an open SQLite connection.
func NewSQLiteStateHistoryRepository(db *sql.DB) *SQLiteStateHistoryRepository {
	return &SQLiteStateHistoryRepository{db: db}
}

// RecordStateChange inserts a new history row for a device.
func (r *SQLiteStateHistoryRepository) RecordStateChange(ctx context.Context, t Type, location string, state State, source string) error {
	if location == "" {
		return fmt.Errorf("device: location is required")
	}
	if source == "" {
		source = StateHistorySourceCommand
	}
	if state == nil {
		state = State{}
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO state_history (device, location, state, source, created_at) VALUES (?, ?, ?, ?, ?)",
		string(t),
		location,
		string(stateJSON),
		source,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting state history: %w", err)
	}
	return nil
}

// GetHistory returns recent history rows for a device, newest first.
func (r *SQLiteStateHistoryRepository) GetHistory(ctx context.Context, t Type, location string, limit int) ([]StateHistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device, location, state, source, created_at
		 FROM state_history
		 WHERE device = ? AND location = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		string(t),
		location,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying state history: %w", err)
	}
	defer rows.Close()

	entries := make([]StateHistoryEntry, 0, limit)
	for rows.Next() {
		var entry StateHistoryEntry
		var device, stateJSON, createdAt string

		if err := rows.Scan(&entry.ID, &device, &entry.Location, &stateJSON, &entry.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning state history: %w", err)
		}
		entry.Device = Type(device)

		if err := json.Unmarshal([]byte(stateJSON), &entry.State); err != nil {
			return nil, fmt.Errorf("unmarshalling state: %w", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
			entry.CreatedAt = ts
		}

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading state history: %w", err)
	}
	return entries, nil
}
