package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// DefaultPostgresTable holds one row per slot key.
const DefaultPostgresTable = "breeze_slots"

// Querier is the subset of *pgxpool.Pool used by PostgresSlot.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresSlot stores each key as a row of a key/value table.
type PostgresSlot struct {
	db      Querier
	table   string
	closeFn func()
}

// NewPostgresSlot creates a slot over db using the given table name.
// closeFn, when non-nil, is called by Close (typically pool.Close).
func NewPostgresSlot(db Querier, table string, closeFn func()) *PostgresSlot {
	if table == "" {
		table = DefaultPostgresTable
	}
	return &PostgresSlot{db: db, table: table, closeFn: closeFn}
}

func (s *PostgresSlot) quotedTable() string {
	return pq.QuoteIdentifier(s.table)
}

// EnsureSchema creates the slot table if it does not exist.
func (s *PostgresSlot) EnsureSchema(ctx context.Context) error {
	sql := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.quotedTable())

	if _, err := s.db.Exec(ctx, sql); err != nil {
		return fmt.Errorf("creating table %s: %w", s.table, err)
	}
	return nil
}

func (s *PostgresSlot) Get(ctx context.Context, key string) (string, bool, error) {
	sql := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, s.quotedTable())

	var value string
	err := s.db.QueryRow(ctx, sql, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading slot %s: %w", key, err)
	}
	return value, true, nil
}

func (s *PostgresSlot) Set(ctx context.Context, key, value string) error {
	sql := fmt.Sprintf(`INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`, s.quotedTable())

	if _, err := s.db.Exec(ctx, sql, key, value); err != nil {
		return fmt.Errorf("writing slot %s: %w", key, err)
	}
	return nil
}

func (s *PostgresSlot) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresSlot) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresSlot) Name() string { return BackendPostgres }
