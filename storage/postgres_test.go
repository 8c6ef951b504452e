package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/m4cd4r4/SwanFlow/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	execs    []execCall
	execErr  error
	rowID    int64
	rowErr   error
	rows     [][]any
	queryErr error
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("OK"), f.execErr
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &fakeRows{data: f.rows, idx: -1}, nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	return fakeRow{id: f.rowID, err: f.rowErr}
}

type fakeRow struct {
	id  int64
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.id
	return nil
}

type fakeRows struct {
	data [][]any
	idx  int
}

func (r *fakeRows) Close() {}
func (r *fakeRows) Err() error { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error) { return r.data[r.idx], nil }
func (r *fakeRows) RawValues() [][]byte { return nil }
func (r *fakeRows) Conn() *pgx.Conn { return nil }

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.data)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.idx]
	*(dest[0].(*string)) = row[0].(string)
	*(dest[1].(*int64)) = row[1].(int64)
	return nil
}

func TestPostgresAppendDetection(t *testing.T) {
	db := &fakeDB{rowID: 77}
	store := &PostgresStore{db: db}

	d := &models.Detection{Site: "A", Timestamp: 1000, TotalCount: 15, HourCount: 300, MinuteCount: 5, AvgConfidence: 0.9, Uptime: 12}
	require.NoError(t, store.AppendDetection(context.Background(), d))

	assert.Equal(t, int64(77), d.ID)
	assert.False(t, d.CreatedAt.IsZero())
	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].sql, "INSERT INTO detections")
	assert.Equal(t, "A", db.execs[0].args[0])
	assert.Equal(t, int64(15), db.execs[0].args[4])
}

func TestPostgresAppendDetectionError(t *testing.T) {
	store := &PostgresStore{db: &fakeDB{rowErr: errors.New("connection reset")}}
	err := store.AppendDetection(context.Background(), &models.Detection{Site: "A"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "site=A")
}

func TestPostgresUpsertSite(t *testing.T) {
	db := &fakeDB{}
	store := &PostgresStore{db: db}
	lat, lng := -31.98, 115.81

	require.NoError(t, store.UpsertSite(context.Background(), models.Site{Name: "A", Latitude: &lat, Longitude: &lng}))
	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].sql, "ON CONFLICT (name) DO UPDATE")
	assert.Equal(t, &lat, db.execs[0].args[1])
}

func TestPostgresEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	store := &PostgresStore{db: db}

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.Len(t, db.execs, len(schema))
	assert.True(t, strings.Contains(db.execs[0].sql, "CREATE TABLE IF NOT EXISTS detections"))

	failing := &PostgresStore{db: &fakeDB{execErr: errors.New("permission denied")}}
	assert.Error(t, failing.EnsureSchema(context.Background()))
}

func TestPostgresLatestTotals(t *testing.T) {
	db := &fakeDB{rows: [][]any{{"A", int64(120)}, {"B", int64(7)}}}
	store := &PostgresStore{db: db}

	totals, err := store.LatestTotals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"A": 120, "B": 7}, totals)

	failing := &PostgresStore{db: &fakeDB{queryErr: errors.New("timeout")}}
	_, err = failing.LatestTotals(context.Background())
	assert.Error(t, err)
}
