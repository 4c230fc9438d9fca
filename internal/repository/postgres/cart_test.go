package postgres

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajoedv/fotolio/pkg/database"
	apperrors "github.com/ajoedv/fotolio/pkg/errors"
)

func newCartRepo(t *testing.T) (*CartRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewCartRepository(mock), mock
}

func cartItemRows(rows ...[]any) *pgxmock.Rows {
	r := pgxmock.NewRows([]string{"id", "user_id", "product_id", "name", "price", "quantity", "created_at", "updated_at"})
	for _, row := range rows {
		r.AddRow(row...)
	}
	return r
}

func TestCartRepository_ListByUser(t *testing.T) {
	repo, mock := newCartRepo(t)

	now := time.Now().UTC()
	mock.ExpectQuery("FROM cart_items ci").
		WithArgs("user-001").
		WillReturnRows(cartItemRows(
			[]any{"item-1", "user-001", "prod-1", "Print A", "50.00", 2, now, now},
			[]any{"item-2", "user-001", "prod-2", "Print B", "25.00", 1, now, now},
		))

	items, err := repo.ListByUser(context.Background(), "user-001")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Print A", items[0].ProductName)
	assert.Equal(t, "50.00", items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, 2, items[0].Quantity)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_ListByUser_Empty(t *testing.T) {
	repo, mock := newCartRepo(t)

	mock.ExpectQuery("FROM cart_items ci").
		WithArgs("user-001").
		WillReturnRows(cartItemRows())

	items, err := repo.ListByUser(context.Background(), "user-001")
	require.NoError(t, err)
	assert.Empty(t, items)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_AddItem_MergesQuantity(t *testing.T) {
	repo, mock := newCartRepo(t)

	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO cart_items").
		WithArgs(pgxmock.AnyArg(), "user-001", "prod-1", 1).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("item-1"))
	mock.ExpectQuery("FROM cart_items ci").
		WithArgs("item-1", "user-001").
		WillReturnRows(cartItemRows(
			[]any{"item-1", "user-001", "prod-1", "Print A", "50.00", 3, now, now},
		))

	item, err := repo.AddItem(context.Background(), "user-001", "prod-1", 1)
	require.NoError(t, err)
	assert.Equal(t, "item-1", item.ID)
	assert.Equal(t, 3, item.Quantity)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_UpdateQuantity_NotOwned(t *testing.T) {
	repo, mock := newCartRepo(t)

	mock.ExpectExec("UPDATE cart_items").
		WithArgs(5, "item-1", "user-002").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	_, err := repo.UpdateQuantity(context.Background(), "user-002", "item-1", 5)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_RemoveItem(t *testing.T) {
	repo, mock := newCartRepo(t)

	mock.ExpectExec("DELETE FROM cart_items").
		WithArgs("item-1", "user-001").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := repo.RemoveItem(context.Background(), "user-001", "item-1")
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_ClearByUser(t *testing.T) {
	repo, mock := newCartRepo(t)

	mock.ExpectExec("DELETE FROM cart_items WHERE user_id").
		WithArgs("user-001").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	err := repo.ClearByUser(context.Background(), "user-001")
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
