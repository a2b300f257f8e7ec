package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of *pgxpool.Pool, *pgx.Conn and pgx.Tx used here.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const schemaSQL = `CREATE TABLE IF NOT EXISTS export_history (
	id                UUID PRIMARY KEY,
	source            TEXT NOT NULL,
	file_name         TEXT NOT NULL,
	output_name       TEXT NOT NULL,
	row_count         INTEGER NOT NULL,
	total_columns     INTEGER NOT NULL,
	kept_columns      INTEGER NOT NULL,
	reduction_percent DOUBLE PRECISION NOT NULL,
	column_names      TEXT[] NOT NULL,
	ip_address        TEXT,
	user_agent        TEXT,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS export_history_created_at_idx ON export_history (created_at DESC)`

const insertSQL = `INSERT INTO export_history (
	id, source, file_name, output_name, row_count, total_columns, kept_columns,
	reduction_percent, column_names, ip_address, user_agent, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''), $12)`

const recentSQL = `SELECT id::text, source, file_name, output_name, row_count, total_columns,
	kept_columns, reduction_percent, column_names,
	COALESCE(ip_address, ''), COALESCE(user_agent, ''), created_at
FROM export_history
ORDER BY created_at DESC
LIMIT $1`

// PGStore keeps history in PostgreSQL.
type PGStore struct {
	db  DBTX
	now func() time.Time
}

// NewPGStore returns a store backed by db.
func NewPGStore(db DBTX) *PGStore {
	return &PGStore{db: db, now: time.Now}
}

// EnsureSchema creates the history table if it does not exist.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create export_history: %w", err)
	}
	return nil
}

// Enabled reports true.
func (s *PGStore) Enabled() bool { return true }

// Record inserts e. A missing ID or timestamp is filled in, and client
// details are taken from ctx when e has none.
func (s *PGStore) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	if e.Columns == nil {
		e.Columns = []string{}
	}
	ip, ua := ClientFromContext(ctx)
	if e.IPAddress == "" {
		e.IPAddress = ip
	}
	if e.UserAgent == "" {
		e.UserAgent = ua
	}

	_, err := s.db.Exec(ctx, insertSQL,
		e.ID, string(e.Source), e.FileName, e.OutputName,
		e.Rows, e.TotalColumns, e.KeptColumns, e.ReductionPercent,
		e.Columns, e.IPAddress, e.UserAgent, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record export: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *PGStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return []Entry{}, nil
	}

	rows, err := s.db.Query(ctx, recentSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query export history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan export history: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read export history: %w", err)
	}
	return entries, nil
}

func scanEntry(rows pgx.Rows) (Entry, error) {
	var (
		e      Entry
		source string
	)
	err := rows.Scan(
		&e.ID, &source, &e.FileName, &e.OutputName,
		&e.Rows, &e.TotalColumns, &e.KeptColumns, &e.ReductionPercent,
		&e.Columns, &e.IPAddress, &e.UserAgent, &e.CreatedAt,
	)
	if err != nil {
		return Entry{}, err
	}
	e.Source = Source(source)
	return e, nil
}
