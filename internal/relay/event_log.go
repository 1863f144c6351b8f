package relay

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 200
)

// Event is one device-reported relay state snapshot.
// Values maps slot keys to the reported 0/1 state. Events are
// append-only and never mutated.
type Event struct {
	ID        int64          `json:"id"`
	Device    string         `json:"device"`
	Values    map[string]int `json:"values"`
	CreatedAt time.Time      `json:"created_at"`
}

// EventLog records and queries relay state events.
type EventLog interface {
	// Append records one state report for a device.
	Append(ctx context.Context, deviceID string, values map[string]int) error

	// Recent returns up to limit events, newest first.
	Recent(ctx context.Context, limit int) ([]Event, error)

	// Prune deletes events older than the given duration and returns
	// how many rows were removed.
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// SQLiteEventLog implements EventLog on the relay_events table.
//
// Reported values are stored as a JSON document so sparse reports
// (a device rarely reports all 51 slots) stay compact.
type SQLiteEventLog struct {
	db *sql.DB
}

// NewSQLiteEventLog creates an event log backed by an open SQLite connection.
func NewSQLiteEventLog(db *sql.DB) *SQLiteEventLog {
	return &SQLiteEventLog{db: db}
}

// Append records one state report for a device.
func (l *SQLiteEventLog) Append(ctx context.Context, deviceID string, values map[string]int) error {
	if deviceID == "" {
		return fmt.Errorf("device id is required")
	}
	if len(values) == 0 {
		return fmt.Errorf("at least one relay value is required")
	}

	stateJSON, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshalling relay values: %w", err)
	}

	_, err = l.db.ExecContext(ctx,
		"INSERT INTO relay_events (device, state) VALUES (?, ?)",
		deviceID,
		string(stateJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting relay event: %w", err)
	}
	return nil
}

// Recent returns up to limit events across all devices, newest first.
// limit defaults to 50 and is capped at 200.
func (l *SQLiteEventLog) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT id, device, state, created_at
		 FROM relay_events
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying relay events: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var ev Event
		var stateJSON string
		var createdAt string

		if err := rows.Scan(&ev.ID, &ev.Device, &stateJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning relay event: %w", err)
		}
		if err := json.Unmarshal([]byte(stateJSON), &ev.Values); err != nil {
			return nil, fmt.Errorf("unmarshalling relay values: %w", err)
		}

		timestamp, err := parseEventTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		ev.CreatedAt = timestamp

		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating relay events: %w", err)
	}
	return events, nil
}

// Prune deletes events older than the given duration.
func (l *SQLiteEventLog) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := l.db.ExecContext(ctx,
		"DELETE FROM relay_events WHERE created_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting relay events: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return rowsAffected, nil
}

// parseEventTimestamp parses a timestamp stored in SQLite.
func parseEventTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}

	timestamp, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return timestamp, nil
	}

	fallback, fallbackErr := time.Parse("2006-01-02T15:04:05Z", value)
	if fallbackErr == nil {
		return fallback, nil
	}

	return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
}
