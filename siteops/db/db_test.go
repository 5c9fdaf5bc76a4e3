package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_AppliesMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "siteops.db")

	db, err := Open(context.Background(), &LibSQLConfig{DSN: path}, zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"conversations", "messages", "projects", "materials", "deliveries", "quality_tests", "timesheets"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, "table %s missing", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "siteops.db")

	db, err := Open(context.Background(), &LibSQLConfig{DSN: path}, zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, Migrate(context.Background(), db, zerolog.Nop()))
}

func TestMessagesRoleConstraint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "siteops.db")

	db, err := Open(context.Background(), &LibSQLConfig{DSN: "file:" + path}, zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`INSERT INTO conversations (id, owner_id, title, created_at, updated_at) VALUES ('c1', 'u1', 't', 1, 1)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO messages (id, conversation_id, role, content, created_at) VALUES ('m1', 'c1', 'narrator', 'x', 1)`)
	assert.Error(t, err)
}

func TestDriverDSN(t *testing.T) {
	cfg := &LibSQLConfig{DSN: "libsql://db.example.turso.io", AuthToken: "tok"}
	dsn, err := cfg.driverDSN(zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "libsql://db.example.turso.io?authToken=tok", dsn)

	_, err = (&LibSQLConfig{}).driverDSN(zerolog.Nop())
	assert.Error(t, err)
}
