package history

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteSinkRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	sink, err := NewSQLite("sqlite://" + dbPath)
	if err != nil {
		t.Fatalf("open sink: %v", err)
	}

	events := []Event{
		{Type: EventLaunched, OccurredAt: time.Now(), Service: "api", PID: 1234},
		{Type: EventHealthy, OccurredAt: time.Now(), Service: "api", PID: 1234},
		{Type: EventStopped, OccurredAt: time.Now(), Service: "api", PID: 1234, Detail: "graceful"},
	}
	for _, e := range events {
		if err := sink.Send(context.Background(), e); err != nil {
			t.Fatalf("send %s: %v", e.Type, err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = db.Close() }()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM service_history`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != len(events) {
		t.Fatalf("rows: want %d, got %d", len(events), n)
	}

	var detail string
	err = db.QueryRow(`SELECT detail FROM service_history WHERE event = ?`, string(EventStopped)).Scan(&detail)
	if err != nil {
		t.Fatalf("select stopped: %v", err)
	}
	if detail != "graceful" {
		t.Fatalf("detail: %q", detail)
	}
}

func TestSQLiteSinkRejectsEmptyDSN(t *testing.T) {
	if _, err := NewSQLite("  "); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}

func TestNopSink(t *testing.T) {
	var s Sink = Nop{}
	if err := s.Send(context.Background(), Event{Type: EventLaunched}); err != nil {
		t.Fatalf("nop send: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("nop close: %v", err)
	}
}
