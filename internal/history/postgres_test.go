package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvcleaner/internal/core"
)

type execCall struct {
	sql  string
	args []any
}

// fakeDB records Exec calls and serves canned rows to Query.
type fakeDB struct {
	execs    []execCall
	execErr  error
	queryErr error
	rows     [][]any
	rowsErr  error
	lastArgs []any
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeDB) Query(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
	f.lastArgs = args
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &fakeRows{data: f.rows, err: f.rowsErr, pos: -1}, nil
}

// fakeRows implements pgx.Rows over in-memory values.
type fakeRows struct {
	data   [][]any
	pos    int
	err    error
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.closed || r.pos+1 >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.data[r.pos], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.pos]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *int:
			*p = row[i].(int)
		case *float64:
			*p = row[i].(float64)
		case *[]string:
			*p = row[i].([]string)
		case *time.Time:
			*p = row[i].(time.Time)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

func TestPGStore_EnsureSchema(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, NewPGStore(db).EnsureSchema(context.Background()))

	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].sql, "CREATE TABLE IF NOT EXISTS export_history")
	assert.Empty(t, db.execs[0].args)

	db.execErr = errors.New("permission denied")
	err := NewPGStore(db).EnsureSchema(context.Background())
	assert.ErrorContains(t, err, "create export_history")
}

func TestPGStore_Record(t *testing.T) {
	db := &fakeDB{}
	store := NewPGStore(db)
	fixed := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	tbl, err := core.Load([]byte("Name,Email,Phone\nAnn,a@x.com,1\n"))
	require.NoError(t, err)
	res := core.Project(tbl, []string{"Email"})

	ctx := ContextWithClient(context.Background(), "10.0.0.7", "curl/8.0")
	entry := NewEntry(SourceWeb, "contacts.csv", "contacts_cleaned.csv", res)
	require.NoError(t, store.Record(ctx, entry))

	require.Len(t, db.execs, 1)
	call := db.execs[0]
	assert.True(t, strings.HasPrefix(call.sql, "INSERT INTO export_history"))
	require.Len(t, call.args, 12)

	assert.NotEmpty(t, call.args[0], "id is generated")
	assert.Equal(t, "web", call.args[1])
	assert.Equal(t, "contacts.csv", call.args[2])
	assert.Equal(t, "contacts_cleaned.csv", call.args[3])
	assert.Equal(t, 1, call.args[4])
	assert.Equal(t, 3, call.args[5])
	assert.Equal(t, 1, call.args[6])
	assert.InDelta(t, 66.666, call.args[7].(float64), 0.01)
	assert.Equal(t, []string{"Email"}, call.args[8])
	assert.Equal(t, "10.0.0.7", call.args[9])
	assert.Equal(t, "curl/8.0", call.args[10])
	assert.Equal(t, fixed, call.args[11])
}

func TestPGStore_RecordKeepsExplicitValues(t *testing.T) {
	db := &fakeDB{}
	store := NewPGStore(db)
	created := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)

	err := store.Record(ContextWithClient(context.Background(), "1.1.1.1", "ua"), Entry{
		ID:        "3f0d6c3e-8a59-4a43-9b5c-0c7b0c0e2a11",
		Source:    SourceAPI,
		IPAddress: "2.2.2.2",
		CreatedAt: created,
	})
	require.NoError(t, err)

	args := db.execs[0].args
	assert.Equal(t, "3f0d6c3e-8a59-4a43-9b5c-0c7b0c0e2a11", args[0])
	assert.Equal(t, []string{}, args[8])
	assert.Equal(t, "2.2.2.2", args[9])
	assert.Equal(t, "ua", args[10])
	assert.Equal(t, created, args[11])
}

func TestPGStore_RecordError(t *testing.T) {
	db := &fakeDB{execErr: errors.New("connection reset")}

	err := NewPGStore(db).Record(context.Background(), Entry{Source: SourceCLI})
	assert.ErrorContains(t, err, "record export: connection reset")
}

func TestPGStore_Recent(t *testing.T) {
	ts := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	db := &fakeDB{rows: [][]any{
		{"a", "web", "b.csv", "b_cleaned.csv", 10, 4, 2, 50.0, []string{"X", "Y"}, "", "", ts},
		{"b", "api", "a.csv", "a_cleaned.csv", 3, 10, 4, 60.0, []string{"Z"}, "10.0.0.1", "curl", ts.Add(-time.Hour)},
	}}

	entries, err := NewPGStore(db).Recent(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, []any{5}, db.lastArgs)
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{
		ID: "a", Source: SourceWeb, FileName: "b.csv", OutputName: "b_cleaned.csv",
		Rows: 10, TotalColumns: 4, KeptColumns: 2, ReductionPercent: 50,
		Columns: []string{"X", "Y"}, CreatedAt: ts,
	}, entries[0])
	assert.Equal(t, SourceAPI, entries[1].Source)
	assert.Equal(t, "10.0.0.1", entries[1].IPAddress)
}

func TestPGStore_RecentErrors(t *testing.T) {
	_, err := NewPGStore(&fakeDB{queryErr: errors.New("boom")}).Recent(context.Background(), 5)
	assert.ErrorContains(t, err, "query export history")

	_, err = NewPGStore(&fakeDB{rowsErr: errors.New("eof")}).Recent(context.Background(), 5)
	assert.ErrorContains(t, err, "read export history")

	_, err = NewPGStore(&fakeDB{rows: [][]any{{"only-one-column"}}}).Recent(context.Background(), 5)
	assert.ErrorContains(t, err, "scan export history")
}

func TestPGStore_RecentZeroLimit(t *testing.T) {
	db := &fakeDB{queryErr: errors.New("must not query")}

	entries, err := NewPGStore(db).Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNopStore(t *testing.T) {
	var r Recorder = NopStore{}

	assert.False(t, r.Enabled())
	assert.NoError(t, r.Record(context.Background(), Entry{}))
	entries, err := r.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestClientFromContext(t *testing.T) {
	ip, ua := ClientFromContext(context.Background())
	assert.Empty(t, ip)
	assert.Empty(t, ua)

	ip, ua = ClientFromContext(ContextWithClient(context.Background(), "::1", "Mozilla"))
	assert.Equal(t, "::1", ip)
	assert.Equal(t, "Mozilla", ua)
}

var _ Recorder = (*PGStore)(nil)
