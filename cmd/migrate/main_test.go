package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationSection(t *testing.T) {
	content := `
-- +migrate Up
CREATE TABLE orders (id serial PRIMARY KEY);
ALTER TABLE orders ADD COLUMN status text;

-- +migrate Down
DROP TABLE orders;
`
	t.Run("Up", func(t *testing.T) {
		up := migrationSection(content, "Up")
		assert.Contains(t, up, "CREATE TABLE orders")
		assert.Contains(t, up, "ALTER TABLE orders")
		assert.NotContains(t, up, "DROP TABLE orders")
		assert.NotContains(t, up, "-- +migrate Up")
	})

	t.Run("Down", func(t *testing.T) {
		down := migrationSection(content, "Down")
		assert.Contains(t, down, "DROP TABLE orders")
		assert.NotContains(t, down, "CREATE TABLE orders")
	})
}

func TestRunUp(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "0001_init.sql")
	require.NoError(t, os.WriteFile(file, []byte(`
-- +migrate Up
CREATE TABLE orders (id serial PRIMARY KEY);
-- +migrate Down
DROP TABLE orders;
`), 0o644))

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("0001_init.sql").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`CREATE TABLE orders`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO schema_migrations`).
		WithArgs("0001_init.sql").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, run(db, "up", dir))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunUnknownMode(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.Error(t, run(db, "sideways", t.TempDir()))
}
