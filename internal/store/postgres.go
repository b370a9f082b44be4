package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the server-grade backend, sharing the exact row layout
// and freshness semantics with the embedded store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects a pool and ensures the snapshot schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS level_snapshots (
			id BIGSERIAL PRIMARY KEY,
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
	for i, migration := range migrations {
		if _, err := s.pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("postgres migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Record appends one immutable snapshot row.
func (s *PostgresStore) Record(ctx context.Context, snap *Snapshot) error {
	normalizeRecord(snap, time.Now().UTC())

	supportJSON, resistanceJSON, err := marshalBands(snap)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO level_snapshots (symbol, timeframe, support_json, resistance_json, source_ts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := s.pool.QueryRow(ctx, query,
		snap.Symbol, snap.Timeframe, supportJSON, resistanceJSON,
		formatTime(snap.SourceTS), formatTime(snap.CreatedAt),
	).Scan(&snap.ID); err != nil {
		return fmt.Errorf("insert level snapshot: %w", err)
	}
	return nil
}

// Query answers a freshness lookup per the shared lookthrough semantics.
func (s *PostgresStore) Query(ctx context.Context, q Query) (*FreshLevels, error) {
	return runQuery(ctx, q, s.fetchRows)
}

func (s *PostgresStore) fetchRows(ctx context.Context, symbol, timeframe string, cutoff *time.Time) ([]Snapshot, error) {
	query := `
		SELECT id, symbol, timeframe, support_json, resistance_json, source_ts, created_at
		FROM level_snapshots
		WHERE symbol = $1 AND timeframe = $2`
	args := []interface{}{symbol, timeframe}
	if cutoff != nil {
		query += ` AND source_ts <= $3`
		args = append(args, formatTime(*cutoff))
	}
	query += ` ORDER BY source_ts DESC, id DESC`

	rows, err := s.pool.Query(ctx, query, args...)
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

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
