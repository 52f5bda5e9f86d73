package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMigrationMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func appliedRows(versions ...string) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"version"})
	for _, v := range versions {
		rows.AddRow(v)
	}
	return rows
}

func TestRunMigrations_AppliesPendingInOrder(t *testing.T) {
	mock := newMigrationMock(t)
	files := fstest.MapFS{
		"003_pictures.up.sql":    {Data: []byte("CREATE TABLE pictures (id BIGINT)")},
		"002_languages.up.sql":   {Data: []byte("CREATE TABLE languages (id INT)")},
		"001_products.up.sql":    {Data: []byte("CREATE TABLE products (id BIGINT)")},
		"001_products.down.sql":  {Data: []byte("DROP TABLE products")},
		"README.md":              {Data: []byte("notes")},
		"archive/000_old.up.sql": {Data: []byte("SELECT 1")},
	}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT version FROM schema_migrations").WillReturnRows(appliedRows("001_products.up.sql"))
	for _, step := range []struct{ name, table string }{
		{"002_languages.up.sql", "languages"},
		{"003_pictures.up.sql", "pictures"},
	} {
		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE " + step.table).WillReturnResult(pgxmock.NewResult("CREATE", 0))
		mock.ExpectExec("INSERT INTO schema_migrations").WithArgs(step.name).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()
	}

	require.NoError(t, RunMigrations(context.Background(), mock, files, discardLogger()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_NothingPending(t *testing.T) {
	mock := newMigrationMock(t)
	files := fstest.MapFS{
		"001_products.up.sql": {Data: []byte("CREATE TABLE products (id BIGINT)")},
	}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT version FROM schema_migrations").WillReturnRows(appliedRows("001_products.up.sql"))

	require.NoError(t, RunMigrations(context.Background(), mock, files, discardLogger()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_SQLErrorIsNotRetried(t *testing.T) {
	mock := newMigrationMock(t)
	files := fstest.MapFS{
		"001_products.up.sql": {Data: []byte("CREATE TABLE products (")},
	}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT version FROM schema_migrations").WillReturnRows(appliedRows())
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE products").WillReturnError(&pgconn.PgError{Code: "42601", Message: "syntax error at end of input"})
	mock.ExpectRollback()

	err := RunMigrations(context.Background(), mock, files, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execute migration 001_products.up.sql")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_RecordFailureRollsBack(t *testing.T) {
	mock := newMigrationMock(t)
	files := fstest.MapFS{
		"001_products.up.sql": {Data: []byte("CREATE TABLE products (id BIGINT)")},
	}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT version FROM schema_migrations").WillReturnRows(appliedRows())
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE products").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO schema_migrations").WithArgs("001_products.up.sql").
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})
	mock.ExpectRollback()

	err := RunMigrations(context.Background(), mock, files, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record migration 001_products.up.sql")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_ConnectionErrorStopsWithContext(t *testing.T) {
	mock := newMigrationMock(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnError(errors.New("dial tcp 127.0.0.1:5432: connection refused"))

	err := RunMigrations(ctx, mock, fstest.MapFS{}, discardLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "run migrations")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"refused", errors.New("dial tcp 127.0.0.1:5432: connection refused"), true},
		{"reset", errors.New("connection reset by peer"), true},
		{"eof", errors.New("unexpected EOF"), true},
		{"syntax", errors.New("syntax error at or near"), false},
		{"unique violation", errors.New("duplicate key value violates unique constraint"), false},
		{"server error wins over text", &pgconn.PgError{Code: "08006", Message: "connection reset"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isConnectionError(tc.err))
		})
	}
}
