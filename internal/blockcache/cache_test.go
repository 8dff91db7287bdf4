package blockcache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/org-press/org-press-sub001/internal/block"
	"github.com/org-press/org-press-sub001/internal/storage"
)

func newTestCache() (*Cache, *storage.MemStore) {
	store := storage.NewMemStore()
	return New(store), store
}

func TestWriteReadTransformedRoundTrip(t *testing.T) {
	c, _ := newTestCache()
	ctx := context.Background()

	key, err := c.WriteTransformed(ctx, "guides/intro.md", "main", "let a = 1;", []byte("let a=1;"), ".js")
	require.NoError(t, err)
	assert.Equal(t, "guides/intro/main.js", key)

	data, ok := c.ReadTransformed(ctx, key)
	require.True(t, ok)
	assert.Equal(t, []byte("let a=1;"), data)
}

func TestReadTransformedMiss(t *testing.T) {
	c, _ := newTestCache()
	_, ok := c.ReadTransformed(context.Background(), "guides/intro/absent.js")
	assert.False(t, ok)
}

func TestResultRecordRoundTrip(t *testing.T) {
	c, _ := newTestCache()
	ctx := context.Background()

	res := block.ExecutionResult{Output: "42", ExecutionTimeMS: 1.5}
	require.NoError(t, c.WriteResult(ctx, "guides/intro.md", 2, res))

	rec, ok := c.ReadResult(ctx, "guides/intro.md", 2)
	require.True(t, ok)
	assert.Equal(t, "42", rec.Result.Output)
	assert.Equal(t, "guides/intro.md", rec.DocumentPath)
	assert.Equal(t, 2, rec.BlockIndex)
	assert.False(t, rec.Timestamp.IsZero())
}

func TestCorruptResultRecordIsAMiss(t *testing.T) {
	c, store := newTestCache()
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, resultKey("guides/intro.md", 0), []byte("not msgpack")))

	_, ok := c.ReadResult(ctx, "guides/intro.md", 0)
	assert.False(t, ok)
}

func TestInvalidateDocumentRemovesCodeAndResults(t *testing.T) {
	c, _ := newTestCache()
	ctx := context.Background()

	_, err := c.WriteTransformed(ctx, "guides/intro.md", "main", "x", []byte("x"), ".js")
	require.NoError(t, err)
	require.NoError(t, c.WriteResult(ctx, "guides/intro.md", 0, block.ExecutionResult{Output: "1"}))
	_, err = c.WriteTransformed(ctx, "guides/other.md", "keep", "y", []byte("y"), ".js")
	require.NoError(t, err)

	require.NoError(t, c.InvalidateDocument(ctx, "guides/intro.md"))

	_, ok := c.ReadTransformed(ctx, "guides/intro/main.js")
	assert.False(t, ok)
	_, ok = c.ReadResult(ctx, "guides/intro.md", 0)
	assert.False(t, ok)
	_, ok = c.ReadTransformed(ctx, "guides/other/keep.js")
	assert.True(t, ok, "other documents must be untouched")
}

func TestInvalidatePrefixDoesNotCrossDocuments(t *testing.T) {
	// "guides/intro" must not sweep "guides/intro-extra".
	c, _ := newTestCache()
	ctx := context.Background()

	_, err := c.WriteTransformed(ctx, "guides/intro-extra.md", "m", "x", []byte("x"), ".js")
	require.NoError(t, err)
	require.NoError(t, c.InvalidateDocument(ctx, "guides/intro.md"))

	_, ok := c.ReadTransformed(ctx, "guides/intro-extra/m.js")
	assert.True(t, ok)
}

func TestClearTwiceIsANoOp(t *testing.T) {
	c, store := newTestCache()
	ctx := context.Background()

	_, err := c.WriteTransformed(ctx, "a.md", "n", "x", []byte("x"), ".js")
	require.NoError(t, err)

	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, 0, store.Len())
	// Clearing an already empty cache must not fail.
	require.NoError(t, c.Clear(ctx))
}
