package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSQLiteDSNDefaultsToSharedMemory(t *testing.T) {
	dsn, err := sqliteDSN(Config{})
	require.NoError(t, err)
	require.Equal(t, memoryDSN, dsn)

	dsn, err = sqliteDSN(Config{Path: ":memory:"})
	require.NoError(t, err)
	require.Equal(t, memoryDSN, dsn)
}

func TestSQLiteDSNOverride(t *testing.T) {
	dsn, err := sqliteDSN(Config{DSN: "file:custom.db?_foreign_keys=1"})
	require.NoError(t, err)
	require.Equal(t, "file:custom.db?_foreign_keys=1", dsn)
}

func TestSQLiteDSNFromPathCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "scolaris.sqlite")

	dsn, err := sqliteDSN(Config{Path: path})
	require.NoError(t, err)
	require.Contains(t, dsn, filepath.ToSlash(path))
	require.Contains(t, dsn, "_journal_mode=WAL")
	require.DirExists(t, filepath.Dir(path))
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "scolaris", Password: "s3cret", Name: "scolaris"})
	require.NoError(t, err)
	require.Equal(t, "scolaris:s3cret@tcp(127.0.0.1:3306)/scolaris?charset=utf8mb4&loc=Local&parseTime=True", dsn)
}

func TestBuildMySQLDSNExtraOptionsStaySorted(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User:    "scolaris",
		Name:    "scolaris",
		Host:    "db.internal",
		Port:    3307,
		Options: map[string]string{"tls": "skip-verify"},
	})
	require.NoError(t, err)
	require.Equal(t, "scolaris@tcp(db.internal:3307)/scolaris?charset=utf8mb4&loc=Local&parseTime=True&tls=skip-verify", dsn)
}

func TestBuildMySQLDSNRequiresUserAndName(t *testing.T) {
	_, err := buildMySQLDSN(Config{User: "scolaris"})
	require.Error(t, err)
}
