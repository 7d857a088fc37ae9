package sqlite_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/KirkDiggler/cduello/internal/repositories/sqlite"
	"github.com/KirkDiggler/cduello/internal/repositories/sqlite/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_AppliesMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cduello.db")

	db, err := sqlite.Open(path)
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 2, count)
	require.NoError(t, db.Close())

	db, err = sqlite.Open(path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, sqlite.ApplyMigrations(db, migrations.FS))
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 2, count)

	for _, table := range []string{"arenas", "player_stats"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := sqlite.Open("  ")
	assert.Error(t, err)
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	got, err := sqlite.ParseTimestamp("2024-05-01 12:30:00")
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	got, err = sqlite.ParseTimestamp(want)
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	assert.Equal(t, "2024-05-01 12:30:00", sqlite.FormatTimestamp(want))

	_, err = sqlite.ParseTimestamp(3.5)
	assert.Error(t, err)
}
