package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalogimporter/internal/domain"
	apperrors "github.com/utafrali/catalogimporter/pkg/errors"
)

func TestTargetRepository_Exists(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("FROM manufacturers WHERE id").
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("FROM categories WHERE id").
		WithArgs(int64(99)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := NewTargetRepository(mock, domain.MappingManufacturer).Exists(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = NewTargetRepository(mock, domain.MappingCategory).Exists(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTargetRepository_UnknownKindPanics(t *testing.T) {
	assert.Panics(t, func() { NewTargetRepository(newMock(t), domain.MappingKind("brand")) })
}

func TestMappingRepository_Exists(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("FROM product_categories WHERE product_id").
		WithArgs(int64(42), int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := NewMappingRepository(mock, domain.MappingCategory).Exists(context.Background(), 42, 7)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMappingBatch_Insert(t *testing.T) {
	mock := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO product_manufacturers").
		WithArgs(int64(42), int64(3), false, 1).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO product_manufacturers").
		WithArgs(int64(42), int64(3), false, 1).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()
	mock.ExpectCommit()

	batch, err := NewMappingRepository(mock, domain.MappingManufacturer).BeginBatch(ctx)
	require.NoError(t, err)

	m := &domain.ProductMapping{ProductID: 42, TargetID: 3, DisplayOrder: 1}
	require.NoError(t, batch.Insert(ctx, m))
	assert.Equal(t, int64(11), m.ID)
	assert.Equal(t, "ProductManufacturer", m.EntityName())

	err = batch.Insert(ctx, &domain.ProductMapping{ProductID: 42, TargetID: 3, DisplayOrder: 1})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)

	n, err := batch.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
