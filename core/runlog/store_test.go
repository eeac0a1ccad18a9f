package runlog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	jsonl, err := NewJSONLStore(filepath.Join(dir, "runs.jsonl"), 1, 0)
	require.NoError(t, err)
	sqlite, err := NewSQLiteStore(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	stores := map[string]Store{"jsonl": jsonl, "sqlite": sqlite}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func sampleRecords(base time.Time) []RunRecord {
	return []RunRecord{
		{ID: "r1", Kind: "solve", Instance: "a_example", Timestamp: base, Score: 21, Generations: 10, Signed: 2, Seed: 1},
		{ID: "r2", Kind: "solve", Instance: "b_read_on", Timestamp: base.Add(time.Hour), Score: 5822900, Signed: 90, Seed: 2},
		{ID: "r3", Kind: "tune", Instance: "a_example", Timestamp: base.Add(2 * time.Hour), Score: 21, Params: map[string]float64{"mutation_prob": 0.5}},
	}
}

func TestStores_AppendQuery(t *testing.T) {
	base := time.Date(2020, 2, 20, 18, 0, 0, 0, time.UTC)
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, r := range sampleRecords(base) {
				require.NoError(t, store.Append(ctx, r))
			}

			all, err := store.Query(ctx, Query{})
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "r1", all[0].ID)
			assert.Equal(t, 0.5, all[2].Params["mutation_prob"])

			byInstance, err := store.Query(ctx, Query{Instance: "a_example"})
			require.NoError(t, err)
			require.Len(t, byInstance, 2)
			assert.Equal(t, []string{"r1", "r3"}, []string{byInstance[0].ID, byInstance[1].ID})

			window, err := store.Query(ctx, Query{Start: base.Add(30 * time.Minute), End: base.Add(90 * time.Minute)})
			require.NoError(t, err)
			require.Len(t, window, 1)
			assert.Equal(t, "r2", window[0].ID)
			assert.True(t, window[0].Timestamp.Equal(base.Add(time.Hour)))

			last, err := store.Query(ctx, Query{Limit: 1})
			require.NoError(t, err)
			require.Len(t, last, 1)
			assert.Equal(t, "r3", last[0].ID)
		})
	}
}

func TestJSONLStore_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("not json\n{\"id\":\"ok\",\"instance\":\"x\"}\n"), 0o644))
	store, err := NewJSONLStore(path, 1, 0)
	require.NoError(t, err)
	defer store.Close()

	out, err := store.Query(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "ok", out[0].ID)
}

func TestJSONLStore_EmptyFile(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "nested", "runs.jsonl"), 1, 0)
	require.NoError(t, err)
	defer store.Close()
	out, err := store.Query(context.Background(), Query{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestJSONLStore_ReadsRotatedBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runs.jsonl")
	backup := filepath.Join(dir, "runs-2020-02-20T18-00-00.000.jsonl")
	require.NoError(t, os.WriteFile(backup, []byte("{\"id\":\"old\"}\n"), 0o644))

	store, err := NewJSONLStore(path, 1, 0)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Append(context.Background(), RunRecord{ID: "new"}))

	out, err := store.Query(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "old", out[0].ID)
	assert.Equal(t, "new", out[1].ID)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Config{Backend: BackendSQLite, Path: filepath.Join(dir, "r.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	s, err = Open(Config{Path: filepath.Join(dir, "r.jsonl")})
	require.NoError(t, err)
	assert.IsType(t, &JSONLStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(Config{Backend: "postgres"})
	assert.Error(t, err)
}

func TestConfig_Defaults(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.Equal(t, BackendJSONL, c.Backend)
	assert.Equal(t, "runs.jsonl", c.Path)

	s := Config{Backend: BackendSQLite}
	s.SetDefaults()
	assert.Equal(t, "runs.db", s.Path)
}
