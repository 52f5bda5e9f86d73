package database

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatch_StageAndCommit(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO products").WithArgs("A1").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO products").WithArgs("A2").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectCommit()

	ctx := context.Background()
	b, err := BeginBatch(ctx, mock)
	require.NoError(t, err)

	for _, sku := range []string{"A1", "A2"} {
		err := b.Stage(ctx, func(q pgx.Tx) error {
			_, err := q.Exec(ctx, "INSERT INTO products (sku) VALUES ($1)", sku)
			return err
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, b.Staged())

	n, err := b.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, b.Rollback(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBatch_FailedStageRollsBackSavepointOnly(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO products").WithArgs("DUP").WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO products").WithArgs("OK").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectCommit()

	ctx := context.Background()
	b, err := BeginBatch(ctx, mock)
	require.NoError(t, err)

	insert := func(sku string) error {
		return b.Stage(ctx, func(q pgx.Tx) error {
			_, err := q.Exec(ctx, "INSERT INTO products (sku) VALUES ($1)", sku)
			return err
		})
	}

	assert.EqualError(t, insert("DUP"), "duplicate key")
	require.NoError(t, insert("OK"))

	n, err := b.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBatch_CommitError(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	ctx := context.Background()
	b, err := BeginBatch(ctx, mock)
	require.NoError(t, err)

	n, err := b.Commit(ctx)
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Contains(t, err.Error(), "commit batch")

	assert.ErrorIs(t, b.Stage(ctx, func(pgx.Tx) error { return nil }), pgx.ErrTxClosed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBatch_Rollback(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	ctx := context.Background()
	b, err := BeginBatch(ctx, mock)
	require.NoError(t, err)

	require.NoError(t, b.Rollback(ctx))
	require.NoError(t, b.Rollback(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBeginBatch_Error(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	_, err = BeginBatch(context.Background(), mock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin batch")
}
