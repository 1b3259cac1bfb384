package storage

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoragePutOpenRemove(t *testing.T) {
	t.Parallel()

	store, err := New(t.TempDir())
	require.NoError(t, err)

	n, err := store.Put("u1/d1", strings.NewReader("hello world"), 0)
	require.NoError(t, err)
	require.Equal(t, int64(11), n)

	f, err := store.Open("u1/d1")
	require.NoError(t, err)
	content, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.Equal(t, "hello world", string(content))

	require.NoError(t, store.Remove("u1/d1", "u1/missing"))
	_, err = store.Open("u1/d1")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestStoragePutEnforcesLimit(t *testing.T) {
	t.Parallel()

	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put("u1/big", strings.NewReader(strings.Repeat("x", 11)), 10)
	require.ErrorIs(t, err, ErrTooLarge)

	_, err = store.Open("u1/big")
	require.ErrorIs(t, err, os.ErrNotExist)

	entries, err := os.ReadDir(store.RootAbs() + "/u1")
	require.NoError(t, err)
	require.Empty(t, entries)

	n, err := store.Put("u1/exact", strings.NewReader(strings.Repeat("x", 10)), 10)
	require.NoError(t, err)
	require.Equal(t, int64(10), n)
}
