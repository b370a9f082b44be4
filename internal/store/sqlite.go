package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the default embedded backend. It relies on the store's
// own default isolation; concurrent writers may interleave inserts, which
// the append-only model tolerates, with the insertion id as the only
// ordering tiebreak for identical timestamps.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the snapshot database at path.
// Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite store: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS level_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			support_json TEXT NOT NULL,
			resistance_json TEXT NOT NULL,
			source_ts TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_level_snapshots_symbol_source_ts
			ON level_snapshots(symbol, source_ts)`,
	}
	for i, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("sqlite migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Record appends one immutable snapshot row.
func (s *SQLiteStore) Record(ctx context.Context, snap *Snapshot) error {
	normalizeRecord(snap, time.Now().UTC())

	supportJSON, resistanceJSON, err := marshalBands(snap)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO level_snapshots (symbol, timeframe, support_json, resistance_json, source_ts, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		snap.Symbol, snap.Timeframe, supportJSON, resistanceJSON,
		formatTime(snap.SourceTS), formatTime(snap.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert level snapshot: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		snap.ID = id
	}
	return nil
}

// Query answers a freshness lookup per the shared lookthrough semantics.
func (s *SQLiteStore) Query(ctx context.Context, q Query) (*FreshLevels, error) {
	return runQuery(ctx, q, s.fetchRows)
}

func (s *SQLiteStore) fetchRows(ctx context.Context, symbol, timeframe string, cutoff *time.Time) ([]Snapshot, error) {
	query := `
		SELECT id, symbol, timeframe, support_json, resistance_json, source_ts, created_at
		FROM level_snapshots
		WHERE symbol = ? AND timeframe = ?`
	args := []interface{}{symbol, timeframe}
	if cutoff != nil {
		query += ` AND source_ts <= ?`
		args = append(args, formatTime(*cutoff))
	}
	query += ` ORDER BY source_ts DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query level snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		var supportJSON, resistanceJSON, sourceTS, createdAt string
		if err := rows.Scan(&snap.ID, &snap.Symbol, &snap.Timeframe,
			&supportJSON, &resistanceJSON, &sourceTS, &createdAt); err != nil {
			return nil, err
		}
		if err := unmarshalBands(&snap, supportJSON, resistanceJSON); err != nil {
			return nil, err
		}
		snap.SourceTS = parseTime(sourceTS)
		snap.CreatedAt = parseTime(createdAt)
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func marshalBands(snap *Snapshot) (string, string, error) {
	support := snap.Support
	if support == nil {
		support = []Band{}
	}
	resistance := snap.Resistance
	if resistance == nil {
		resistance = []Band{}
	}
	supportJSON, err := json.Marshal(support)
	if err != nil {
		return "", "", fmt.Errorf("marshal support bands: %w", err)
	}
	resistanceJSON, err := json.Marshal(resistance)
	if err != nil {
		return "", "", fmt.Errorf("marshal resistance bands: %w", err)
	}
	return string(supportJSON), string(resistanceJSON), nil
}

func unmarshalBands(snap *Snapshot, supportJSON, resistanceJSON string) error {
	if err := json.Unmarshal([]byte(supportJSON), &snap.Support); err != nil {
		return fmt.Errorf("unmarshal support bands: %w", err)
	}
	if err := json.Unmarshal([]byte(resistanceJSON), &snap.Resistance); err != nil {
		return fmt.Errorf("unmarshal resistance bands: %w", err)
	}
	return nil
}
