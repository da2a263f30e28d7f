package blob_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonarhq/sonar/pkg/blob"
	"github.com/sonarhq/sonar/pkg/sonar"
)

func TestMemory(t *testing.T) {
	runStoreSuite(t, blob.NewMemory())
}

func TestFilesystem(t *testing.T) {
	fs, err := blob.NewFilesystem(t.TempDir())
	require.NoError(t, err)
	runStoreSuite(t, fs)
}

func runStoreSuite(t *testing.T, store blob.Store) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		_, err := store.Get(ctx, blob.RandomKey(), sonar.FullRange())
		assert.True(t, sonar.IsNotFound(err))
	})

	t.Run("read missing", func(t *testing.T) {
		_, err := store.Read(ctx, blob.RandomKey(), sonar.FullRange())
		assert.True(t, sonar.IsNotFound(err))
	})

	t.Run("delete missing", func(t *testing.T) {
		assert.NoError(t, store.Delete(ctx, blob.RandomKey()))
	})

	t.Run("put get", func(t *testing.T) {
		key := blob.RandomKey()
		require.NoError(t, store.Put(ctx, key, []byte("hello world")))
		data, err := store.Get(ctx, key, sonar.FullRange())
		require.NoError(t, err)
		assert.Equal(t, []byte("hello world"), data)
	})

	t.Run("put overwrites", func(t *testing.T) {
		key := blob.RandomKey()
		require.NoError(t, store.Put(ctx, key, []byte("first")))
		require.NoError(t, store.Put(ctx, key, []byte("second")))
		data, err := store.Get(ctx, key, sonar.FullRange())
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), data)
	})

	t.Run("put delete get", func(t *testing.T) {
		key := blob.RandomKey()
		require.NoError(t, store.Put(ctx, key, []byte("hello world")))
		require.NoError(t, store.Delete(ctx, key))
		_, err := store.Get(ctx, key, sonar.FullRange())
		assert.True(t, sonar.IsNotFound(err))
	})

	t.Run("write get", func(t *testing.T) {
		key := blob.RandomKey()
		require.NoError(t, store.Write(ctx, key, bytes.NewReader([]byte("hello world"))))
		data, err := store.Get(ctx, key, sonar.FullRange())
		require.NoError(t, err)
		assert.Equal(t, []byte("hello world"), data)
	})

	t.Run("read range", func(t *testing.T) {
		key := blob.RandomKey()
		require.NoError(t, store.Put(ctx, key, []byte("hello world")))

		rc, err := store.Read(ctx, key, sonar.RangeAt(1, 3))
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, rc.Close())
		require.NoError(t, err)
		assert.Equal(t, []byte("ell"), data)
	})

	t.Run("range clamped", func(t *testing.T) {
		key := blob.RandomKey()
		require.NoError(t, store.Put(ctx, key, []byte("hello world")))

		data, err := store.Get(ctx, key, sonar.RangeAt(6, 100))
		require.NoError(t, err)
		assert.Equal(t, []byte("world"), data)

		data, err = store.Get(ctx, key, sonar.RangeAt(100, 5))
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("prefixed key", func(t *testing.T) {
		key := blob.RandomKeyWithPrefix("audio")
		require.NoError(t, store.Put(ctx, key, []byte("x")))
		data, err := store.Get(ctx, key, sonar.FullRange())
		require.NoError(t, err)
		assert.Equal(t, []byte("x"), data)
	})
}

func TestRandomKeyShape(t *testing.T) {
	key := blob.RandomKey()
	assert.Len(t, key, 26)

	// Keys generated later sort lexicographically after earlier ones.
	a := blob.RandomKey()
	b := blob.RandomKey()
	assert.Less(t, a, b)
}
