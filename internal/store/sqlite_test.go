package store

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustRecord(t *testing.T, s *SQLiteStore, snap *Snapshot) {
	t.Helper()
	if err := s.Record(context.Background(), snap); err != nil {
		t.Fatalf("record: %v", err)
	}
}

func TestRecordAssignsDefaults(t *testing.T) {
	s := newTestStore(t)

	snap := &Snapshot{Symbol: "BTCUSDT", Timeframe: "4h", Support: []Band{{100, 101}}}
	mustRecord(t, s, snap)

	if snap.ID == 0 {
		t.Error("record did not assign an id")
	}
	if snap.SourceTS.IsZero() {
		t.Error("zero source_ts was not defaulted")
	}
	if snap.CreatedAt.IsZero() {
		t.Error("created_at was not set")
	}
}

func TestQueryRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ts := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	mustRecord(t, s, &Snapshot{
		Symbol:     "BTCUSDT",
		Timeframe:  "4h",
		Support:    []Band{{100, 101}, {95, 96}},
		Resistance: []Band{{110, 111}},
		SourceTS:   ts,
	})

	got, err := s.Query(context.Background(), Query{Symbol: "BTCUSDT"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if got == nil {
		t.Fatal("query returned nil for a stored symbol")
	}
	if got.Timeframe != "4h" {
		t.Errorf("timeframe = %q, want 4h", got.Timeframe)
	}
	if len(got.Support) != 2 || got.Support[0] != (Band{100, 101}) {
		t.Errorf("support = %v", got.Support)
	}
	if len(got.Resistance) != 1 || got.Resistance[0] != (Band{110, 111}) {
		t.Errorf("resistance = %v", got.Resistance)
	}
	if !got.SourceTS.Equal(ts) {
		t.Errorf("source_ts = %v, want %v", got.SourceTS, ts)
	}
}

func TestQueryUnknownSymbol(t *testing.T) {
	s := newTestStore(t)

	got, err := s.Query(context.Background(), Query{Symbol: "NOPE"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if got != nil {
		t.Errorf("query for unknown symbol = %v, want nil", got)
	}
}

// TestQueryEmptySidesInvisible verifies rows with both sides empty never
// satisfy a lookup.
func TestQueryEmptySidesInvisible(t *testing.T) {
	s := newTestStore(t)

	mustRecord(t, s, &Snapshot{Symbol: "BTCUSDT", Timeframe: "4h"})

	got, err := s.Query(context.Background(), Query{Symbol: "BTCUSDT"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if got != nil {
		t.Errorf("empty-sided row satisfied the query: %v", got)
	}
}

// TestQueryMergesSides verifies support and resistance may come from two
// different rows, with the newer row's timestamp reported.
func TestQueryMergesSides(t *testing.T) {
	s := newTestStore(t)
	older := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 8, 30, 11, 0, 0, 0, time.UTC)

	mustRecord(t, s, &Snapshot{
		Symbol: "BTCUSDT", Timeframe: "4h",
		Support:  []Band{{100, 101}},
		SourceTS: older,
	})
	mustRecord(t, s, &Snapshot{
		Symbol: "BTCUSDT", Timeframe: "4h",
		Resistance: []Band{{110, 111}},
		SourceTS:   newer,
	})

	got, err := s.Query(context.Background(), Query{Symbol: "BTCUSDT"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if got == nil {
		t.Fatal("query returned nil")
	}
	if len(got.Support) != 1 || len(got.Resistance) != 1 {
		t.Fatalf("sides not merged: support=%v resistance=%v", got.Support, got.Resistance)
	}
	if !got.SourceTS.Equal(newer) {
		t.Errorf("source_ts = %v, want the newer row's %v", got.SourceTS, newer)
	}
}

// TestQueryNewestWins verifies the freshest row of a side shadows older ones.
func TestQueryNewestWins(t *testing.T) {
	s := newTestStore(t)
	older := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 8, 30, 11, 0, 0, 0, time.UTC)

	mustRecord(t, s, &Snapshot{
		Symbol: "BTCUSDT", Timeframe: "4h",
		Support: []Band{{90, 91}}, SourceTS: older,
	})
	mustRecord(t, s, &Snapshot{
		Symbol: "BTCUSDT", Timeframe: "4h",
		Support: []Band{{100, 101}}, SourceTS: newer,
	})

	got, err := s.Query(context.Background(), Query{Symbol: "BTCUSDT"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if got.Support[0] != (Band{100, 101}) {
		t.Errorf("support = %v, want the newer row's bands", got.Support)
	}
}

// TestQueryDisallowedTimeframe verifies rows outside the allowed set are
// invisible even when explicitly requested.
func TestQueryDisallowedTimeframe(t *testing.T) {
	s := newTestStore(t)

	mustRecord(t, s, &Snapshot{
		Symbol: "BTCUSDT", Timeframe: "5m",
		Support: []Band{{100, 101}},
	})

	got, err := s.Query(context.Background(), Query{
		Symbol:              "BTCUSDT",
		PreferredTimeframes: []string{"5m"},
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if got != nil {
		t.Errorf("disallowed timeframe row was returned: %v", got)
	}
}

func TestQueryTimeframePreference(t *testing.T) {
	s := newTestStore(t)

	mustRecord(t, s, &Snapshot{
		Symbol: "BTCUSDT", Timeframe: "4h", Support: []Band{{100, 101}},
	})
	mustRecord(t, s, &Snapshot{
		Symbol: "BTCUSDT", Timeframe: "1h", Support: []Band{{102, 103}},
	})

	got, err := s.Query(context.Background(), Query{
		Symbol:              "BTCUSDT",
		PreferredTimeframes: []string{"1h", "4h"},
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if got == nil || got.Timeframe != "1h" {
		t.Fatalf("preferred timeframe not honored: %v", got)
	}

	// Preference falls through to the next timeframe with usable rows.
	got, err = s.Query(context.Background(), Query{
		Symbol:              "BTCUSDT",
		PreferredTimeframes: []string{"12h", "4h"},
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if got == nil || got.Timeframe != "4h" {
		t.Fatalf("fallthrough timeframe not honored: %v", got)
	}
}

// TestQueryAgeFloor verifies the age filter keeps rows at or beyond the
// minimum age and hides newer ones.
func TestQueryAgeFloor(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	mustRecord(t, s, &Snapshot{
		Symbol: "BTCUSDT", Timeframe: "4h",
		Support: []Band{{100, 101}}, SourceTS: now.Add(-2 * time.Hour),
	})
	mustRecord(t, s, &Snapshot{
		Symbol: "BTCUSDT", Timeframe: "4h",
		Support: []Band{{200, 201}}, SourceTS: now.Add(-time.Minute),
	})

	got, err := s.Query(context.Background(), Query{
		Symbol:             "BTCUSDT",
		MaxAgeFloorMinutes: 60,
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if got == nil {
		t.Fatal("aged row not found")
	}
	if got.Support[0] != (Band{100, 101}) {
		t.Errorf("support = %v, want the row older than the floor", got.Support)
	}

	// A floor beyond every row's age yields nothing.
	got, err = s.Query(context.Background(), Query{
		Symbol:             "BTCUSDT",
		MaxAgeFloorMinutes: 600,
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if got != nil {
		t.Errorf("floor beyond all rows still returned %v", got)
	}
}

// TestAppendOnly verifies recording never mutates earlier rows.
func TestAppendOnly(t *testing.T) {
	s := newTestStore(t)

	first := &Snapshot{Symbol: "BTCUSDT", Timeframe: "4h", Support: []Band{{90, 91}}}
	second := &Snapshot{Symbol: "BTCUSDT", Timeframe: "4h", Support: []Band{{100, 101}}}
	mustRecord(t, s, first)
	mustRecord(t, s, second)

	if first.ID == second.ID {
		t.Errorf("both snapshots share id %d", first.ID)
	}

	rows, err := s.fetchRows(context.Background(), "BTCUSDT", "4h", nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("row count = %d, want 2", len(rows))
	}
}

func TestCandidateTimeframes(t *testing.T) {
	tests := []struct {
		name      string
		preferred []string
		want      []string
	}{
		{"nil falls back to full set", nil, []string{"4h", "1h", "12h"}},
		{"filters unknown entries", []string{"5m", "1h"}, []string{"1h"}},
		{"keeps caller order", []string{"12h", "4h"}, []string{"12h", "4h"}},
		{"all unknown falls back", []string{"5m", "3d"}, []string{"4h", "1h", "12h"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := candidateTimeframes(tt.preferred)
			if len(got) != len(tt.want) {
				t.Fatalf("candidateTimeframes(%v) = %v, want %v", tt.preferred, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("candidateTimeframes(%v) = %v, want %v", tt.preferred, got, tt.want)
				}
			}
		})
	}
}
