package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pgmigrate/internal/model"
)

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	rows := []model.Row{
		{{Column: "id", Value: model.Int64Value(1)}},
		{{Column: "id", Value: model.Int64Value(2)}},
	}

	assert.False(t, store.Exists("iceberg", "analytics", "orders"))

	require.NoError(t, store.Save("iceberg", "analytics", "orders", rows, []string{"id"}))
	assert.True(t, store.Exists("iceberg", "analytics", "orders"))

	loaded, meta, err := store.Load("iceberg", "analytics", "orders")
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
	assert.Equal(t, 2, meta.RowCount)
	assert.Equal(t, []string{"id"}, meta.Columns)
}

func TestStore_LoadMissingErrors(t *testing.T) {
	store := NewStore(t.TempDir())
	_, _, err := store.Load("iceberg", "analytics", "missing")
	assert.Error(t, err)
}

func TestStore_DeleteAndClearAll(t *testing.T) {
	store := NewStore(t.TempDir())
	rows := []model.Row{{{Column: "id", Value: model.Int64Value(1)}}}

	require.NoError(t, store.Save("iceberg", "analytics", "orders", rows, []string{"id"}))
	require.NoError(t, store.Save("iceberg", "analytics", "users", rows, []string{"id"}))

	require.NoError(t, store.Delete("iceberg", "analytics", "orders"))
	assert.False(t, store.Exists("iceberg", "analytics", "orders"))
	assert.True(t, store.Exists("iceberg", "analytics", "users"))

	cached, err := store.ListCached()
	require.NoError(t, err)
	assert.Len(t, cached, 1)

	require.NoError(t, store.ClearAll())
	cached, err = store.ListCached()
	require.NoError(t, err)
	assert.Empty(t, cached)
}
