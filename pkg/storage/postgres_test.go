package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	value string
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.value
	return nil
}

type fakeQuerier struct {
	rows    map[string]string
	execSQL []string
	execErr error
	pingErr error
}

func (q *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.execSQL = append(q.execSQL, sql)
	if q.execErr != nil {
		return pgconn.CommandTag{}, q.execErr
	}
	if len(args) == 2 {
		q.rows[args[0].(string)] = args[1].(string)
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (q *fakeQuerier) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	v, ok := q.rows[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{value: v}
}

func (q *fakeQuerier) Ping(context.Context) error { return q.pingErr }

func TestPostgresSlot_RoundTrip(t *testing.T) {
	ctx := context.Background()
	q := &fakeQuerier{rows: map[string]string{}}
	slot := NewPostgresSlot(q, "", nil)

	_, found, err := slot.Get(ctx, "meetings")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, slot.Set(ctx, "meetings", "[]"))
	v, found, err := slot.Get(ctx, "meetings")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "[]", v)

	require.Len(t, q.execSQL, 1)
	assert.Contains(t, q.execSQL[0], `INSERT INTO "breeze_slots"`)
	assert.Contains(t, q.execSQL[0], "ON CONFLICT (key)")
}

func TestPostgresSlot_EnsureSchemaQuotesTable(t *testing.T) {
	q := &fakeQuerier{rows: map[string]string{}}
	slot := NewPostgresSlot(q, `odd"name`, nil)

	require.NoError(t, slot.EnsureSchema(context.Background()))
	require.Len(t, q.execSQL, 1)
	assert.Contains(t, q.execSQL[0], `CREATE TABLE IF NOT EXISTS "odd""name"`)
}

func TestPostgresSlot_Errors(t *testing.T) {
	boom := errors.New("connection reset")
	q := &fakeQuerier{rows: map[string]string{}, execErr: boom, pingErr: boom}
	slot := NewPostgresSlot(q, "slots", nil)

	assert.ErrorIs(t, slot.Set(context.Background(), "meetings", "[]"), boom)
	assert.ErrorIs(t, slot.EnsureSchema(context.Background()), boom)
	assert.ErrorIs(t, slot.Ping(context.Background()), boom)
}

func TestPostgresSlot_Close(t *testing.T) {
	closed := false
	slot := NewPostgresSlot(&fakeQuerier{}, "", func() { closed = true })

	require.NoError(t, slot.Close())
	assert.True(t, closed)
	assert.Equal(t, BackendPostgres, slot.Name())
}
