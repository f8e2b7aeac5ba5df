package credentials_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/skyreport/internal/credentials"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := credentials.NewMemoryStore(map[credentials.Key]string{
		credentials.AirQualityKey: "aq-token",
	})

	secret, err := store.Get(ctx, credentials.AirQualityKey)
	require.NoError(t, err)
	assert.Equal(t, "aq-token", secret)

	_, err = store.Get(ctx, credentials.UVIndexKey)
	assert.ErrorIs(t, err, credentials.ErrNotFound)

	require.NoError(t, store.Set(ctx, credentials.UVIndexKey, "uv-token"))
	secret, err = store.Get(ctx, credentials.UVIndexKey)
	require.NoError(t, err)
	assert.Equal(t, "uv-token", secret)
}

func TestEnvStore(t *testing.T) {
	ctx := context.Background()
	t.Setenv("OPENUV_TOKEN", "from-env")
	t.Setenv("WAQI_TOKEN", "")

	store := credentials.NewEnvStore(nil)

	secret, err := store.Get(ctx, credentials.UVIndexKey)
	require.NoError(t, err)
	assert.Equal(t, "from-env", secret)

	_, err = store.Get(ctx, credentials.AirQualityKey)
	assert.ErrorIs(t, err, credentials.ErrNotFound, "empty variable counts as missing")

	require.NoError(t, store.Set(ctx, credentials.UVIndexKey, "rotated"))
	secret, err = store.Get(ctx, credentials.UVIndexKey)
	require.NoError(t, err)
	assert.Equal(t, "rotated", secret)

	err = store.Set(ctx, credentials.Key{Service: "other", Account: "x"}, "v")
	assert.ErrorIs(t, err, credentials.ErrReadOnly)
}

func TestLookup_MissingIsEmpty(t *testing.T) {
	store := credentials.NewMemoryStore(nil)

	secret, err := credentials.Lookup(context.Background(), store, credentials.UVIndexKey)
	require.NoError(t, err)
	assert.Empty(t, secret)
}

func TestKey_String(t *testing.T) {
	assert.Equal(t, "UV Index API/https://api.openuv.io/api/v1/", credentials.UVIndexKey.String())
}

// fakeRow implements pgx.Row.
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

// fakeDB records statements and serves rows from a map keyed by service.
type fakeDB struct {
	rows  map[string]string
	execs []string
	args  [][]any
	err   error
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	if f.err != nil {
		return fakeRow{err: f.err}
	}
	value, ok := f.rows[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{value: value}
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, strings.TrimSpace(sql))
	f.args = append(f.args, args)
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func TestPostgresStore_Get(t *testing.T) {
	db := &fakeDB{rows: map[string]string{"UV Index API": "pg-token"}}
	store := credentials.NewPostgresStore(db)

	secret, err := store.Get(context.Background(), credentials.UVIndexKey)
	require.NoError(t, err)
	assert.Equal(t, "pg-token", secret)

	_, err = store.Get(context.Background(), credentials.AirQualityKey)
	assert.ErrorIs(t, err, credentials.ErrNotFound)
}

func TestPostgresStore_GetError(t *testing.T) {
	db := &fakeDB{err: errors.New("connection reset")}
	store := credentials.NewPostgresStore(db)

	_, err := store.Get(context.Background(), credentials.UVIndexKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, credentials.ErrNotFound)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPostgresStore_SetAndSchema(t *testing.T) {
	db := &fakeDB{}
	store := credentials.NewPostgresStore(db)

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, store.Set(context.Background(), credentials.UVIndexKey, "new-token"))

	require.Len(t, db.execs, 2)
	assert.True(t, strings.HasPrefix(db.execs[0], "CREATE TABLE IF NOT EXISTS credentials"))
	assert.Contains(t, db.execs[1], "ON CONFLICT (service, account)")
	assert.Equal(t, []any{"UV Index API", "https://api.openuv.io/api/v1/", "new-token"}, db.args[1])
}
