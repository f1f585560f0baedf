package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_EmptyDSN(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "")
	require.Error(t, err)
}

func TestOpen_SQLite(t *testing.T) {
	t.Parallel()

	dsn := "sqlite:" + filepath.Join(t.TempDir(), "auth.db")
	gdb, err := Open(context.Background(), dsn)
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	require.NoError(t, Ping(context.Background(), gdb))
}

func TestSQLiteDSN(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ":memory:?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", sqliteDSN(""))
	assert.Equal(t, "file.db?mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", sqliteDSN("file.db?mode=rwc"))
}
