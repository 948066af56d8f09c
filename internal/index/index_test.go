package index

import (
	"io"
	"testing"
	"time"

	"remod/internal/logging"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	logger := logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel, Output: io.Discard})
	s, err := Open(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func entry(key, source string, created time.Time) Entry {
	return Entry{
		Key:       key,
		Source:    source,
		TableID:   "table-1",
		RequestID: "req-1",
		Mode:      "strip",
		Location:  "/cache/" + key[:2] + "/" + key + ".mjs",
		SizeBytes: 42,
		CreatedAt: created,
	}
}

func TestRecordAndList(t *testing.T) {
	s := testStore(t)
	now := time.Now()

	if err := s.Record(entry("aaaa", "/src/a.ts", now.Add(-time.Hour))); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if err := s.Record(entry("bbbb", "/src/b.ts", now)); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	entries, err := s.List(0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Key != "bbbb" {
		t.Errorf("newest first: got %q", entries[0].Key)
	}

	limited, err := s.List(1)
	if err != nil {
		t.Fatalf("List(1) error: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("List(1) returned %d entries", len(limited))
	}
}

func TestRecord_SameKeyUpserts(t *testing.T) {
	s := testStore(t)
	now := time.Now()

	if err := s.Record(entry("aaaa", "/src/a.ts", now)); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	e := entry("aaaa", "/src/a.ts", now)
	e.RequestID = "req-2"
	if err := s.Record(e); err != nil {
		t.Fatalf("re-Record() error: %v", err)
	}

	entries, _ := s.List(0)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 after upsert", len(entries))
	}
	if entries[0].RequestID != "req-2" {
		t.Errorf("RequestID = %q, want updated value", entries[0].RequestID)
	}
}

func TestPruneOlderThan(t *testing.T) {
	s := testStore(t)
	now := time.Now()

	s.Record(entry("old1", "/src/old1.ts", now.Add(-48*time.Hour)))
	s.Record(entry("old2", "/src/old2.ts", now.Add(-25*time.Hour)))
	s.Record(entry("new1", "/src/new1.ts", now))

	pruned, err := s.PruneOlderThan(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("PruneOlderThan() error: %v", err)
	}
	if len(pruned) != 2 {
		t.Fatalf("pruned %d entries, want 2", len(pruned))
	}
	for _, e := range pruned {
		if e.Location == "" {
			t.Error("pruned entry missing location")
		}
	}

	remaining, _ := s.List(0)
	if len(remaining) != 1 || remaining[0].Key != "new1" {
		t.Errorf("remaining = %+v", remaining)
	}
}

func TestStats(t *testing.T) {
	s := testStore(t)
	now := time.Now()

	// Two keys from the same source plus one from another.
	e1 := entry("k1", "/src/a.ts", now)
	e2 := entry("k2", "/src/a.ts", now)
	e3 := entry("k3", "/src/b.ts", now)
	for _, e := range []Entry{e1, e2, e3} {
		if err := s.Record(e); err != nil {
			t.Fatalf("Record() error: %v", err)
		}
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats.Entries != 3 {
		t.Errorf("Entries = %d, want 3", stats.Entries)
	}
	if stats.Sources != 2 {
		t.Errorf("Sources = %d, want 2", stats.Sources)
	}
	if stats.TotalBytes != 3*42 {
		t.Errorf("TotalBytes = %d, want %d", stats.TotalBytes, 3*42)
	}
}

func TestEdges(t *testing.T) {
	s := testStore(t)

	edges := []EdgeRow{
		{RequestID: "req-9", From: "/src/main.ts", Specifier: "@lib/a", Resolved: "./real/a", Rewritten: "/cache/aa/a.mjs", Role: "value"},
		{RequestID: "req-9", From: "/src/main.ts", Specifier: "./b.ts", Resolved: "/src/b.ts", Rewritten: "/cache/bb/b.mjs", Role: "value"},
		{RequestID: "other", From: "/x.ts", Specifier: "y", Resolved: "y", Rewritten: "y", Role: "type-only"},
	}
	for _, e := range edges {
		if err := s.RecordEdge(e); err != nil {
			t.Fatalf("RecordEdge() error: %v", err)
		}
	}

	got, err := s.EdgesForRequest("req-9")
	if err != nil {
		t.Fatalf("EdgesForRequest() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d edges, want 2", len(got))
	}
	if got[0].Specifier != "@lib/a" || got[0].Rewritten != "/cache/aa/a.mjs" {
		t.Errorf("edge = %+v", got[0])
	}
}
