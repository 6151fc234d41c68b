package db_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/autoapply-service/internal/db"
)

type doc struct {
	Names []string `json:"names"`
}

// ── File backend ───────────────────────────────────────────────────────────

func TestFileBackend_MissingDocumentYieldsDefault(t *testing.T) {
	b, err := db.NewFileBackend(t.TempDir())
	require.NoError(t, err)

	got := db.Load(context.Background(), b, "nothing", doc{Names: []string{}})
	assert.Equal(t, doc{Names: []string{}}, got)
}

func TestFileBackend_CorruptDocumentYieldsDefault(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, db.DocParked+".json"), []byte("{not json"), 0o644))

	b, err := db.NewFileBackend(dir)
	require.NoError(t, err)

	got := db.Load(context.Background(), b, db.DocParked, []string{})
	assert.Empty(t, got)
}

func TestFileBackend_SaveThenLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := db.NewFileBackend(dir)
	require.NoError(t, err)

	require.NoError(t, db.Save(ctx, b, "names", doc{Names: []string{"a", "b"}}))
	assert.Equal(t, doc{Names: []string{"a", "b"}}, db.Load(ctx, b, "names", doc{}))

	// no temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// ── SQLite backend ─────────────────────────────────────────────────────────

func TestSQLiteBackend_RoundTrip(t *testing.T) {
	ctx := context.Background()
	b, err := db.NewSQLiteBackend(ctx, filepath.Join(t.TempDir(), "docs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	_, err = b.Read(ctx, "names")
	assert.ErrorIs(t, err, db.ErrNotExist)

	require.NoError(t, db.Save(ctx, b, "names", doc{Names: []string{"x"}}))
	require.NoError(t, db.Save(ctx, b, "names", doc{Names: []string{"y"}}))
	assert.Equal(t, doc{Names: []string{"y"}}, db.Load(ctx, b, "names", doc{}))
}

// ── Open ───────────────────────────────────────────────────────────────────

func TestOpen_UnknownKind(t *testing.T) {
	_, err := db.Open(context.Background(), db.Options{Kind: "etcd"})
	assert.Error(t, err)
}

func TestOpen_RedisNeedsClient(t *testing.T) {
	_, err := db.Open(context.Background(), db.Options{Kind: "redis"})
	assert.Error(t, err)
}

func TestOpen_DefaultsToFile(t *testing.T) {
	b, err := db.Open(context.Background(), db.Options{DataDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &db.FileBackend{}, b)
}

// ── Networked backends (opt-in) ────────────────────────────────────────────

func TestRedisBackend_RoundTrip(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	rdb, err := db.NewRedisClient(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })

	b := db.NewRedisBackend(rdb, "autoapply:test:")
	require.NoError(t, db.Save(ctx, b, "names", doc{Names: []string{"r"}}))
	assert.Equal(t, doc{Names: []string{"r"}}, db.Load(ctx, b, "names", doc{}))
	require.NoError(t, rdb.Del(ctx, "autoapply:test:names").Err())
}

func TestPostgresBackend_RoundTrip(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	b, err := db.Open(ctx, db.Options{Kind: "postgres", DatabaseURL: url})
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	require.NoError(t, db.Save(ctx, b, "test_names", doc{Names: []string{"p"}}))
	assert.Equal(t, doc{Names: []string{"p"}}, db.Load(ctx, b, "test_names", doc{}))
}
