package relay

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func newTestEventDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE relay_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device TEXT NOT NULL,
			state TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		);
		CREATE INDEX idx_relay_events_created_at ON relay_events(created_at);
		CREATE INDEX idx_relay_events_device ON relay_events(device, created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	return db
}

func insertEventAt(t *testing.T, db *sql.DB, device, state string, at time.Time) {
	t.Helper()

	_, err := db.Exec(
		"INSERT INTO relay_events (device, state, created_at) VALUES (?, ?, ?)",
		device, state, at.UTC().Format(time.RFC3339),
	)
	if err != nil {
		t.Fatalf("inserting event fixture: %v", err)
	}
}

func TestEventLogAppendAndRecent(t *testing.T) {
	db := newTestEventDB(t)
	log := NewSQLiteEventLog(db)
	ctx := context.Background()

	if err := log.Append(ctx, "esp32-A", map[string]int{"relay1": 1, "relay3": 0}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	events, err := log.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Recent() returned %d events, want 1", len(events))
	}

	ev := events[0]
	if ev.Device != "esp32-A" {
		t.Errorf("Device = %q, want esp32-A", ev.Device)
	}
	if ev.Values["relay1"] != 1 || ev.Values["relay3"] != 0 {
		t.Errorf("Values = %v, want relay1=1 relay3=0", ev.Values)
	}
	if len(ev.Values) != 2 {
		t.Errorf("Values has %d entries, want 2", len(ev.Values))
	}
	if ev.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero")
	}
}

func TestEventLogAppendValidation(t *testing.T) {
	db := newTestEventDB(t)
	log := NewSQLiteEventLog(db)
	ctx := context.Background()

	if err := log.Append(ctx, "", map[string]int{"relay1": 1}); err == nil {
		t.Error("Append() accepted empty device id")
	}
	if err := log.Append(ctx, "esp32-A", nil); err == nil {
		t.Error("Append() accepted empty values")
	}
	if err := log.Append(ctx, "esp32-A", map[string]int{}); err == nil {
		t.Error("Append() accepted zero-length values")
	}
}

func TestEventLogRecentOrdering(t *testing.T) {
	db := newTestEventDB(t)
	log := NewSQLiteEventLog(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	insertEventAt(t, db, "esp32-A", `{"relay1":0}`, base)
	insertEventAt(t, db, "esp32-B", `{"relay1":1}`, base.Add(1*time.Minute))
	insertEventAt(t, db, "esp32-A", `{"relay2":1}`, base.Add(2*time.Minute))

	events, err := log.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Recent() returned %d events, want 3", len(events))
	}

	// Newest first.
	if events[0].Device != "esp32-A" || events[0].Values["relay2"] != 1 {
		t.Errorf("events[0] = %s %v, want esp32-A relay2=1", events[0].Device, events[0].Values)
	}
	if events[1].Device != "esp32-B" {
		t.Errorf("events[1].Device = %q, want esp32-B", events[1].Device)
	}
	if events[2].Values["relay1"] != 0 {
		t.Errorf("events[2].Values = %v, want relay1=0", events[2].Values)
	}
}

func TestEventLogRecentLimits(t *testing.T) {
	db := newTestEventDB(t)
	log := NewSQLiteEventLog(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		insertEventAt(t, db, "esp32-A", `{"relay1":1}`, base.Add(time.Duration(i)*time.Second))
	}

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "explicit limit", limit: 5, want: 5},
		{name: "zero defaults to 50", limit: 0, want: defaultEventLimit},
		{name: "negative defaults to 50", limit: -1, want: defaultEventLimit},
		{name: "over cap clamps to 200", limit: 500, want: 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := log.Recent(ctx, tt.limit)
			if err != nil {
				t.Fatalf("Recent(%d) error = %v", tt.limit, err)
			}
			if len(events) != tt.want {
				t.Errorf("Recent(%d) returned %d events, want %d", tt.limit, len(events), tt.want)
			}
		})
	}
}

func TestEventLogPrune(t *testing.T) {
	db := newTestEventDB(t)
	log := NewSQLiteEventLog(db)
	ctx := context.Background()

	now := time.Now().UTC()
	insertEventAt(t, db, "esp32-A", `{"relay1":1}`, now.Add(-48*time.Hour))
	insertEventAt(t, db, "esp32-A", `{"relay1":0}`, now.Add(-30*time.Hour))
	insertEventAt(t, db, "esp32-A", `{"relay1":1}`, now.Add(-1*time.Hour))

	removed, err := log.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("Prune() removed %d events, want 2", removed)
	}

	events, err := log.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(events) != 1 {
		t.Errorf("Recent() returned %d events after prune, want 1", len(events))
	}
}

func TestEventLogPruneValidation(t *testing.T) {
	db := newTestEventDB(t)
	log := NewSQLiteEventLog(db)

	if _, err := log.Prune(context.Background(), 0); err == nil {
		t.Error("Prune() accepted zero duration")
	}
	if _, err := log.Prune(context.Background(), -time.Hour); err == nil {
		t.Error("Prune() accepted negative duration")
	}
}
