package checkpoint

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(ctx, 1700000000))
	require.NoError(t, s.Save(ctx, 1700000600))

	v, ok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1700000600), v)
}

func TestMemory(t *testing.T) {
	s := NewMemory()
	exerciseStore(t, s)
	assert.NoError(t, s.Close())
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.db")
	s, err := OpenSQLite(context.Background(), path, "homeworks")
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(context.Background(), path, "homeworks")
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1700000600), v)

	other, err := OpenSQLite(context.Background(), path, "other")
	require.NoError(t, err)
	defer other.Close()
	_, ok, err = other.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
