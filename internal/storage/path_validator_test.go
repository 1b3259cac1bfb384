package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyValidatorResolve(t *testing.T) {
	t.Parallel()

	validator, err := NewKeyValidator(t.TempDir())
	require.NoError(t, err)

	t.Run("owner scoped key resolves inside root", func(t *testing.T) {
		resolved, resolveErr := validator.Resolve("u1/d1")
		require.NoError(t, resolveErr)
		require.Equal(t, filepath.Join(validator.RootAbs(), "u1", "d1"), resolved)
	})

	t.Run("backslashes are normalized", func(t *testing.T) {
		resolved, resolveErr := validator.Resolve(`u1\thumbs\d1.jpg`)
		require.NoError(t, resolveErr)
		require.Equal(t, filepath.Join(validator.RootAbs(), "u1", "thumbs", "d1.jpg"), resolved)
	})

	for name, key := range map[string]string{
		"empty key":     "  ",
		"root":          "/",
		"traversal":     "u1/../../etc/passwd",
		"dot segment":   "u1/./d1",
		"control chars": "u1/d\n1",
		"null byte":     "u1/d\x001",
	} {
		t.Run(name+" is rejected", func(t *testing.T) {
			_, resolveErr := validator.Resolve(key)
			require.Error(t, resolveErr)
		})
	}

	t.Run("prefix sibling is outside root", func(t *testing.T) {
		require.False(t, isWithinRoot("/tmp/root", "/tmp/rootless/file"))
	})
}
