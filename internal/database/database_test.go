package database

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/wilheimcosta/adwrng2/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateRunsPostgresSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for range postgresSchema {
		mock.ExpectExec(".+").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	d := &Database{DB: db, Driver: config.DriverPostgres}
	require.NoError(t, d.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateReportsFailingStep(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS alerts")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE UNIQUE INDEX")).WillReturnError(errors.New("permission denied"))

	d := &Database{DB: db, Driver: config.DriverPostgres}
	err = d.Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration step 2 failed")
}

func countActiveIndex(t *testing.T, d *Database) int {
	t.Helper()
	var n int
	require.NoError(t, d.DB.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'alerts_one_active'`).Scan(&n))
	return n
}

func TestSQLiteStoreHealthAndIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "adwrng.db")
	d, err := New(&config.DatabaseConfig{Driver: config.DriverSQLite, SQLitePath: path})
	require.NoError(t, err)
	defer d.Close()

	require.NotNil(t, d.Gorm)
	assert.NoError(t, d.Health(context.Background()))
	assert.Zero(t, countActiveIndex(t, d), "opening does not migrate")

	require.NoError(t, d.Migrate(context.Background()))
	assert.Equal(t, 1, countActiveIndex(t, d))
	assert.NoError(t, d.Migrate(context.Background()), "migrate is repeatable")
}

func TestSQLiteOpenWithoutAutoMigrateLeavesSchemaAlone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adwrng.db")
	d, err := New(&config.DatabaseConfig{Driver: config.DriverSQLite, SQLitePath: path, AutoMigrate: false})
	require.NoError(t, err)
	defer d.Close()

	var tables int
	require.NoError(t, d.DB.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('alerts', 'favorite_aerodromes')`).Scan(&tables))
	assert.Zero(t, tables)
}

func TestHealthFailsWhenPingFails(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	d := &Database{DB: db}
	err = d.Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database health check failed")
}
