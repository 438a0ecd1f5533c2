package db

import (
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationNames_Ordered(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/010_b.sql": {Data: []byte("SELECT 1;")},
		"migrations/002_a.sql": {Data: []byte("SELECT 1;")},
		"migrations/sub":       {Mode: fs.ModeDir | 0o755},
	}
	names, err := MigrationNames(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"002_a.sql", "010_b.sql"}, names)
}

func TestEmbeddedMigrations(t *testing.T) {
	names, err := MigrationNames(MigrationsFS)
	require.NoError(t, err)
	require.NotEmpty(t, names)

	for _, name := range names {
		body, err := MigrationsFS.ReadFile("migrations/" + name)
		require.NoError(t, err)
		upper := strings.ToUpper(string(body))
		assert.NotContains(t, upper, "BEGIN;", name)
		assert.NotContains(t, upper, "COMMIT;", name)
	}
}
