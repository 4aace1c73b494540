package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUp_Embedded(t *testing.T) {
	got, err := Up(FS)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, 1, got[0].Version)
	assert.Equal(t, "001_processed_items.up.sql", got[0].Name)
	assert.Contains(t, got[0].SQL, "CREATE TABLE")
}

func TestUp_OrdersAndFilters(t *testing.T) {
	fsys := fstest.MapFS{
		"010_later.up.sql":    {Data: []byte("SELECT 10;")},
		"002_second.up.sql":   {Data: []byte("SELECT 2;")},
		"002_second.down.sql": {Data: []byte("SELECT -2;")},
		"README.md":           {Data: []byte("notes")},
		"misc.up.sql":         {Data: []byte("SELECT 0;")},
	}

	got, err := Up(fsys)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Version)
	assert.Equal(t, 10, got[1].Version)
	assert.Equal(t, "SELECT 10;", got[1].SQL)
}

func TestUp_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"003_a.up.sql": {Data: []byte("SELECT 1;")},
		"003_b.up.sql": {Data: []byte("SELECT 2;")},
	}

	_, err := Up(fsys)
	assert.ErrorContains(t, err, "migration version 3")
}
