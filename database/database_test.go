package database

import (
	"context"
	"path/filepath"
	"testing"

	"trianglefinder/index"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore checks the bag semantics every backend must share
func exerciseStore(t *testing.T, store index.Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.AddMembers(ctx, "aa", "r1", "r2"))
	require.NoError(t, store.AddMembers(ctx, "aa", "r1"))
	require.NoError(t, store.AddMembers(ctx, "bb", "r3"))

	got, err := store.GetMembers(ctx, []string{"bb", "missing", "aa"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"r3"}, got[0])
	assert.Empty(t, got[1])
	assert.ElementsMatch(t, []string{"r1", "r2", "r1"}, got[2])

	empty, err := store.GetMembers(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.Clear(ctx))
	got, err = store.GetMembers(ctx, []string{"aa", "bb"})
	require.NoError(t, err)
	assert.Empty(t, got[0])
	assert.Empty(t, got[1])

	// still usable after a clear
	require.NoError(t, store.AddMembers(ctx, "aa", "r4"))
	got, err = store.GetMembers(ctx, []string{"aa"})
	require.NoError(t, err)
	assert.Equal(t, []string{"r4"}, got[0])
}

func TestSQLiteStore(t *testing.T) {
	store, err := InitDatabase(filepath.Join(t.TempDir(), "fingerprints.db"))
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)

	stats, err := store.GetScanStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &ScanStats{TotalRecords: 1, UniqueHashes: 1}, stats)
}

func TestSQLiteStoreDuplicateKeysInLookup(t *testing.T) {
	ctx := context.Background()
	store, err := InitDatabase(filepath.Join(t.TempDir(), "fingerprints.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.AddMembers(ctx, "aa", "r1"))
	got, err := store.GetMembers(ctx, []string{"aa", "aa"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"r1"}, {"r1"}}, got)
}

func TestSQLiteStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fingerprints.db")

	store, err := InitDatabase(path)
	require.NoError(t, err)
	require.NoError(t, store.AddMembers(ctx, "aa", "r1"))
	require.NoError(t, store.Close())

	store, err = InitDatabase(path)
	require.NoError(t, err)
	defer store.Close()
	got, err := store.GetMembers(ctx, []string{"aa"})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, got[0])
}

func TestBoltStore(t *testing.T) {
	store, err := OpenBoltStore(filepath.Join(t.TempDir(), "fingerprints.bolt"))
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestBoltStoreKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store, err := OpenBoltStore(filepath.Join(t.TempDir(), "fingerprints.bolt"))
	require.NoError(t, err)
	defer store.Close()

	for _, v := range []string{"c", "a", "b"} {
		require.NoError(t, store.AddMembers(ctx, "k", v))
	}
	got, err := store.GetMembers(ctx, []string{"k"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, got[0])
}

func TestRedisStore(t *testing.T) {
	srv := miniredis.RunT(t)
	store := NewRedisStore(srv.Addr(), 0)
	defer store.Close()

	exerciseStore(t, store)
}

func TestRedisStoreUnavailable(t *testing.T) {
	srv := miniredis.RunT(t)
	store := NewRedisStore(srv.Addr(), 0)
	defer store.Close()
	srv.Close()

	assert.Error(t, store.Ping(context.Background()))
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	exerciseStore(t, store)

	stats, err := store.GetScanStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &ScanStats{TotalRecords: 1, UniqueHashes: 1}, stats)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	srv := miniredis.RunT(t)

	cases := []struct {
		dsn  string
		want index.Store
	}{
		{dsn: filepath.Join(dir, "bare.db"), want: &SQLiteStore{}},
		{dsn: "sqlite://" + filepath.Join(dir, "url.db"), want: &SQLiteStore{}},
		{dsn: "bolt://" + filepath.Join(dir, "file.bolt"), want: &BoltStore{}},
		{dsn: "memory://", want: &MemoryStore{}},
		{dsn: "redis://" + srv.Addr() + "/0", want: &RedisStore{}},
	}
	for _, tc := range cases {
		store, err := Open(tc.dsn)
		require.NoError(t, err, tc.dsn)
		assert.IsType(t, tc.want, store, tc.dsn)
		assert.NoError(t, store.Ping(context.Background()), tc.dsn)
		store.Close()
	}

	_, err := Open("ftp://example.com/store")
	assert.Error(t, err)
}
