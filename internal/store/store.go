// Package store persists per-symbol support/resistance snapshots and
// answers freshness queries. The model is an append-only event log: a new
// observation always inserts a new row, prior rows are never updated or
// deleted, and aging out happens only through query-time filtering.
package store

import (
	"context"
	"time"
)

// AllowedTimeframes is the fixed set of timeframes the repository
// recognizes. Rows in any other timeframe are invisible to queries
// regardless of the requested preference order.
var AllowedTimeframes = []string{"4h", "1h", "12h"}

// timeFormat is the ISO-8601 layout used in storage. Fixed width and UTC,
// so lexicographic order equals chronological order.
const timeFormat = "2006-01-02T15:04:05.000Z"

// Band is one (low, high) zone tuple, persisted as a JSON pair.
type Band [2]float64

// Snapshot is one immutable level observation.
type Snapshot struct {
	ID         int64     `json:"id"`
	Symbol     string    `json:"symbol"`
	Timeframe  string    `json:"timeframe"`
	Support    []Band    `json:"support"`
	Resistance []Band    `json:"resistance"`
	SourceTS   time.Time `json:"source_ts"`
	CreatedAt  time.Time `json:"created_at"`
}

// Query is the read contract for freshness lookups.
//
// MaxAgeFloorMinutes filters for rows whose source_ts is OLDER than or
// equal to now minus the floor: it is a minimum-age floor, not the
// maximum-age ceiling the name suggests. The polarity is preserved from
// the original observation pipeline; callers that want "everything" pass 0.
type Query struct {
	Symbol              string
	MaxAgeFloorMinutes  int
	PreferredTimeframes []string
}

// FreshLevels is the materialized answer to a freshness query. Support
// and resistance may come from two different rows of the same timeframe;
// SourceTS is the newer of the two.
type FreshLevels struct {
	Timeframe  string    `json:"timeframe"`
	Support    []Band    `json:"support"`
	Resistance []Band    `json:"resistance"`
	SourceTS   time.Time `json:"source_ts"`
}

// LevelStore is the persistence contract shared by the embedded and the
// server-grade backends.
type LevelStore interface {
	// Record appends one immutable snapshot. A zero SourceTS defaults to
	// the current time.
	Record(ctx context.Context, snap *Snapshot) error
	// Query answers a freshness lookup; a nil result with nil error means
	// no usable side was found in any allowed timeframe.
	Query(ctx context.Context, q Query) (*FreshLevels, error)
	Close() error
}

// candidateTimeframes restricts the preference list to the allowed set,
// keeping the caller's priority order. An empty intersection falls back to
// the full allowed set.
func candidateTimeframes(preferred []string) []string {
	var out []string
	for _, tf := range preferred {
		for _, allowed := range AllowedTimeframes {
			if tf == allowed {
				out = append(out, tf)
				break
			}
		}
	}
	if len(out) == 0 {
		return AllowedTimeframes
	}
	return out
}

// cutoffFor converts the age floor into the source_ts upper bound, or nil
// when the floor is not positive.
func cutoffFor(q Query, now time.Time) *time.Time {
	if q.MaxAgeFloorMinutes <= 0 {
		return nil
	}
	cutoff := now.Add(-time.Duration(q.MaxAgeFloorMinutes) * time.Minute)
	return &cutoff
}

// rowFetcher loads a symbol's rows for one timeframe, newest first,
// already filtered by the optional cutoff (source_ts <= cutoff).
type rowFetcher func(ctx context.Context, symbol, timeframe string, cutoff *time.Time) ([]Snapshot, error)

// runQuery implements the per-timeframe, per-side freshness lookthrough
// shared by all backends: scan rows newest to oldest, independently
// remember the first row with a non-empty support list and the first with
// a non-empty resistance list, and stop at the first timeframe that
// yields at least one side.
func runQuery(ctx context.Context, q Query, fetch rowFetcher) (*FreshLevels, error) {
	cutoff := cutoffFor(q, time.Now().UTC())

	for _, tf := range candidateTimeframes(q.PreferredTimeframes) {
		rows, err := fetch(ctx, q.Symbol, tf, cutoff)
		if err != nil {
			return nil, err
		}

		var supportRow, resistanceRow *Snapshot
		for i := range rows {
			row := &rows[i]
			if supportRow == nil && len(row.Support) > 0 {
				supportRow = row
			}
			if resistanceRow == nil && len(row.Resistance) > 0 {
				resistanceRow = row
			}
			if supportRow != nil && resistanceRow != nil {
				break
			}
		}
		if supportRow == nil && resistanceRow == nil {
			continue
		}

		out := &FreshLevels{Timeframe: tf}
		if supportRow != nil {
			out.Support = supportRow.Support
			out.SourceTS = supportRow.SourceTS
		}
		if resistanceRow != nil {
			out.Resistance = resistanceRow.Resistance
			if resistanceRow.SourceTS.After(out.SourceTS) {
				out.SourceTS = resistanceRow.SourceTS
			}
		}
		return out, nil
	}
	return nil, nil
}

// normalizeRecord fills snapshot defaults before insertion.
func normalizeRecord(snap *Snapshot, now time.Time) {
	if snap.SourceTS.IsZero() {
		snap.SourceTS = now
	}
	snap.SourceTS = snap.SourceTS.UTC()
	snap.CreatedAt = now
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		// Tolerate foreign writers that used full RFC 3339.
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}
