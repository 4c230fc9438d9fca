package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajoedv/fotolio/internal/domain"
	"github.com/ajoedv/fotolio/pkg/database"
	apperrors "github.com/ajoedv/fotolio/pkg/errors"
)

func newOrderRepo(t *testing.T) (*OrderRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewOrderRepository(mock, "FO")
	return repo, mock
}

func sampleNewOrder() *domain.Order {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	return &domain.Order{
		ID:       "order-001",
		UserID:   "user-001",
		FullName: "Astrid Lind",
		Email:    "astrid@example.com",
		Phone:    "+46701234567",
		Address1: "Storgatan 1",
		City:     "Stockholm",
		Postcode: "11122",
		Country:  "SE",
		Subtotal: decimal.RequireFromString("100.00"),
		Tax:      decimal.RequireFromString("25.00"),
		Total:    decimal.RequireFromString("125.00"),
		Items: []domain.OrderLineItem{
			{ID: "item-001", ProductID: "prod-001", ProductName: "Print A", Quantity: 2, LineTotal: decimal.RequireFromString("100.00")},
			{ID: "item-002", ProductID: "prod-002", ProductName: "Print B", Quantity: 1, LineTotal: decimal.RequireFromString("25.00")},
		},
		CreatedAt: now,
	}
}

func orderRows(o *domain.Order, extra ...any) *pgxmock.Rows {
	cols := []string{
		"id", "order_number", "order_year", "order_seq", "user_id",
		"full_name", "email", "phone", "address1", "address2", "city", "postcode", "country",
		"subtotal", "tax", "total",
		"payment_intent_id", "payment_amount", "payment_currency",
		"is_paid", "created_at", "updated_at",
	}
	values := []any{
		o.ID, o.OrderNumber, o.OrderYear, o.OrderSeq, o.UserID,
		o.FullName, o.Email, o.Phone, o.Address1, o.Address2, o.City, o.Postcode, o.Country,
		o.Subtotal.StringFixed(2), o.Tax.StringFixed(2), o.Total.StringFixed(2),
		o.PaymentIntentID, o.PaymentAmount, o.PaymentCurrency,
		o.IsPaid, o.CreatedAt, o.UpdatedAt,
	}
	if len(extra) > 0 {
		cols = append(cols, "total_count")
		values = append(values, extra...)
	}
	return pgxmock.NewRows(cols).AddRow(values...)
}

func expectItemLoad(mock pgxmock.PgxPoolIface, orders ...*domain.Order) {
	rows := pgxmock.NewRows([]string{"id", "order_id", "product_id", "product_name", "quantity", "line_total"})
	for _, o := range orders {
		for _, item := range o.Items {
			rows.AddRow(item.ID, o.ID, item.ProductID, item.ProductName, item.Quantity, item.LineTotal.StringFixed(2))
		}
	}
	mock.ExpectQuery("SELECT id, order_id").WithArgs(pgxmock.AnyArg()).WillReturnRows(rows)
}

func TestOrderRepository_Create_AllocatesNextSequence(t *testing.T) {
	repo, mock := newOrderRepo(t)

	o := sampleNewOrder()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT order_seq FROM orders").
		WithArgs(2026).
		WillReturnRows(pgxmock.NewRows([]string{"order_seq"}).AddRow(41))
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(
			o.ID, "FO-2026-000042", 2026, 42, o.UserID,
			o.FullName, o.Email, o.Phone, o.Address1, o.Address2, o.City, o.Postcode, o.Country,
			"100.00", "25.00", "125.00", o.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	for _, item := range o.Items {
		mock.ExpectExec("INSERT INTO order_line_items").
			WithArgs(item.ID, o.ID, item.ProductID, item.ProductName, item.Quantity, item.LineTotal.StringFixed(2)).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	err := repo.Create(context.Background(), o)
	require.NoError(t, err)

	assert.Equal(t, "FO-2026-000042", o.OrderNumber)
	assert.Equal(t, 2026, o.OrderYear)
	assert.Equal(t, 42, o.OrderSeq)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Create_FirstOrderOfYear(t *testing.T) {
	repo, mock := newOrderRepo(t)

	o := sampleNewOrder()
	o.Items = nil

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT order_seq FROM orders").
		WithArgs(2026).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(
			o.ID, "FO-2026-000001", 2026, 1, o.UserID,
			o.FullName, o.Email, o.Phone, o.Address1, o.Address2, o.City, o.Postcode, o.Country,
			"100.00", "25.00", "125.00", o.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), o)
	require.NoError(t, err)
	assert.Equal(t, "FO-2026-000001", o.OrderNumber)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Create_InsertErrorRollsBack(t *testing.T) {
	repo, mock := newOrderRepo(t)

	o := sampleNewOrder()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT order_seq FROM orders").
		WithArgs(2026).
		WillReturnRows(pgxmock.NewRows([]string{"order_seq"}).AddRow(7))
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(
			o.ID, "FO-2026-000008", 2026, 8, o.UserID,
			o.FullName, o.Email, o.Phone, o.Address1, o.Address2, o.City, o.Postcode, o.Country,
			"100.00", "25.00", "125.00", o.CreatedAt,
		).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert order")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Create_DuplicateSequenceIsConflict(t *testing.T) {
	repo, mock := newOrderRepo(t)

	o := sampleNewOrder()
	o.Items = nil

	// A concurrent allocation won the same sequence; the unique constraint
	// fires and the caller gets a retryable conflict.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT order_seq FROM orders").
		WithArgs(2026).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(
			o.ID, "FO-2026-000001", 2026, 1, o.UserID,
			o.FullName, o.Email, o.Phone, o.Address1, o.Address2, o.City, o.Postcode, o.Country,
			"100.00", "25.00", "125.00", o.CreatedAt,
		).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "orders_year_seq_unique"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), o)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Create_SequenceLockError(t *testing.T) {
	repo, mock := newOrderRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT order_seq FROM orders").
		WithArgs(2026).
		WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), sampleNewOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read last order sequence")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByOrderNumber_Success(t *testing.T) {
	repo, mock := newOrderRepo(t)

	o := sampleNewOrder()
	o.OrderNumber = "FO-2026-000042"
	o.OrderYear = 2026
	o.OrderSeq = 42
	o.IsPaid = true
	o.PaymentIntentID = "pi_123"
	o.PaymentAmount = 12500
	o.PaymentCurrency = "sek"
	o.UpdatedAt = o.CreatedAt

	mock.ExpectQuery("FROM orders o WHERE o.user_id").
		WithArgs("user-001", "FO-2026-000042").
		WillReturnRows(orderRows(o))
	expectItemLoad(mock, o)

	got, err := repo.GetByOrderNumber(context.Background(), "user-001", "FO-2026-000042")
	require.NoError(t, err)

	assert.Equal(t, o.ID, got.ID)
	assert.Equal(t, "FO-2026-000042", got.OrderNumber)
	assert.True(t, got.IsPaid)
	assert.Equal(t, "pi_123", got.PaymentIntentID)
	assert.True(t, got.Total.Equal(decimal.RequireFromString("125.00")))
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Print A", got.Items[0].ProductName)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByOrderNumber_NotFound(t *testing.T) {
	repo, mock := newOrderRepo(t)

	mock.ExpectQuery("FROM orders o WHERE o.user_id").
		WithArgs("user-001", "FO-2026-999999").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByOrderNumber(context.Background(), "user-001", "FO-2026-999999")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_FindByIntentID(t *testing.T) {
	repo, mock := newOrderRepo(t)

	o := sampleNewOrder()
	o.OrderNumber = "FO-2026-000042"
	o.PaymentIntentID = "pi_123"
	o.UpdatedAt = o.CreatedAt

	mock.ExpectQuery("o.payment_intent_id = \\$2").
		WithArgs("user-001", "pi_123").
		WillReturnRows(orderRows(o))
	expectItemLoad(mock, o)

	got, err := repo.FindByIntentID(context.Background(), "user-001", "pi_123")
	require.NoError(t, err)
	assert.Equal(t, "pi_123", got.PaymentIntentID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_ListPaidByUser(t *testing.T) {
	repo, mock := newOrderRepo(t)

	o := sampleNewOrder()
	o.OrderNumber = "FO-2026-000042"
	o.IsPaid = true
	o.UpdatedAt = o.CreatedAt

	mock.ExpectQuery("o.is_paid = TRUE").
		WithArgs("user-001", 20, 0).
		WillReturnRows(orderRows(o, 1))
	expectItemLoad(mock, o)

	orders, total, err := repo.ListPaidByUser(context.Background(), "user-001", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, orders, 1)
	assert.Equal(t, "FO-2026-000042", orders[0].OrderNumber)
	assert.Len(t, orders[0].Items, 2)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_SetPaymentIntent(t *testing.T) {
	repo, mock := newOrderRepo(t)

	mock.ExpectExec("UPDATE orders").
		WithArgs("pi_123", int64(12500), "sek", "order-001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.SetPaymentIntent(context.Background(), "order-001", "pi_123", 12500, "sek")
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_MarkPaid_AlreadyPaid(t *testing.T) {
	repo, mock := newOrderRepo(t)

	mock.ExpectExec("UPDATE orders").
		WithArgs("pi_123", int64(12500), "sek", "order-001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.MarkPaid(context.Background(), "order-001", "pi_123", 12500, "sek")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_MarkPaid_Success(t *testing.T) {
	repo, mock := newOrderRepo(t)

	mock.ExpectExec("UPDATE orders").
		WithArgs("pi_123", int64(12500), "sek", "order-001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.MarkPaid(context.Background(), "order-001", "pi_123", 12500, "sek")
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
