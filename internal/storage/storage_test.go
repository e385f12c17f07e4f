package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RezaSbu/MO-BOT/internal/log"
)

func TestFileBlobRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.json")
	blob := NewFileBlob(path, log.NewNop())

	require.NoError(t, blob.Save(ctx, `[{"id":"s1"}]`))

	got, err := blob.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"s1"}]`, got)
}

func TestFileBlobLoadMissing(t *testing.T) {
	blob := NewFileBlob(filepath.Join(t.TempDir(), "nope.json"), log.NewNop())

	got, err := blob.Load(context.Background())
	require.NoError(t, err, "missing payload is not an error")
	assert.Empty(t, got)
}

func TestFileBlobOverwrite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.json")
	blob := NewFileBlob(path, log.NewNop())

	require.NoError(t, blob.Save(ctx, "first"))
	require.NoError(t, blob.Save(ctx, "second"))

	got, err := blob.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestFileBlobCreatesParentDir(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dir", "sessions.json")
	blob := NewFileBlob(path, log.NewNop())

	require.NoError(t, blob.Save(ctx, "payload"))

	got, err := blob.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "payload", got)
}

func TestFileBlobLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	blob := NewFileBlob(filepath.Join(dir, "sessions.json"), log.NewNop())

	require.NoError(t, blob.Save(ctx, "payload"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".tmp-"), "stale temp file: %s", e.Name())
	}
}

func TestSQLiteBlobRoundTrip(t *testing.T) {
	ctx := context.Background()
	blob, err := NewSQLiteBlob(ctx, filepath.Join(t.TempDir(), "mobot.db"), log.NewNop())
	require.NoError(t, err)
	defer blob.Close()

	require.NoError(t, blob.Save(ctx, `[{"id":"s1"}]`))

	got, err := blob.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"s1"}]`, got)
}

func TestSQLiteBlobLoadMissing(t *testing.T) {
	ctx := context.Background()
	blob, err := NewSQLiteBlob(ctx, filepath.Join(t.TempDir(), "mobot.db"), log.NewNop())
	require.NoError(t, err)
	defer blob.Close()

	got, err := blob.Load(ctx)
	require.NoError(t, err, "missing payload is not an error")
	assert.Empty(t, got)
}

func TestSQLiteBlobUpsert(t *testing.T) {
	ctx := context.Background()
	blob, err := NewSQLiteBlob(ctx, filepath.Join(t.TempDir(), "mobot.db"), log.NewNop())
	require.NoError(t, err)
	defer blob.Close()

	require.NoError(t, blob.Save(ctx, "first"))
	require.NoError(t, blob.Save(ctx, "second"))

	got, err := blob.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestSQLiteBlobSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mobot.db")

	blob, err := NewSQLiteBlob(ctx, path, log.NewNop())
	require.NoError(t, err)
	require.NoError(t, blob.Save(ctx, "durable"))
	require.NoError(t, blob.Close())

	reopened, err := NewSQLiteBlob(ctx, path, log.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "durable", got)
}

func TestSpoolResolve(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "spool")
	spool := NewSpool(dir)

	handle, err := spool.Resolve([]byte("png-bytes"), "cat.PNG")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(handle, dir), "handle lives under the spool dir")
	assert.True(t, strings.HasSuffix(handle, ".png"), "extension survives, lowercased")

	data, err := os.ReadFile(handle)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestSpoolHandlesAreUnique(t *testing.T) {
	spool := NewSpool(t.TempDir())

	a, err := spool.Resolve([]byte("a"), "same.png")
	require.NoError(t, err)
	b, err := spool.Resolve([]byte("b"), "same.png")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
