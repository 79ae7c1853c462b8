package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPending_SortedSQLOnly(t *testing.T) {
	files := fstest.MapFS{
		"002_signals.sql": {Data: []byte("SELECT 1;")},
		"001_init.sql":    {Data: []byte("SELECT 1;")},
		"README.md":       {Data: []byte("notes")},
	}

	got, err := Pending(files)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init.sql", "002_signals.sql"}, got)
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "001", Version("001_init.sql"))
	assert.Equal(t, "010", Version("sql/010_add_index.sql"))
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := Pending(Files())
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "001_init.sql", got[0])
}
