package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/ajoedv/fotolio/internal/domain"
	"github.com/ajoedv/fotolio/pkg/database"
	apperrors "github.com/ajoedv/fotolio/pkg/errors"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
// Order numbers are allocated inside the creation transaction: the highest
// sequence for the order's year is read under a row lock, so two concurrent
// checkouts can never mint the same number.
type OrderRepository struct {
	pool         database.DBTX
	numberPrefix string
}

// NewOrderRepository creates a new PostgreSQL-backed order repository. The
// prefix is the leading segment of rendered order numbers.
func NewOrderRepository(pool database.DBTX, numberPrefix string) *OrderRepository {
	return &OrderRepository{pool: pool, numberPrefix: numberPrefix}
}

const orderColumns = `
	o.id, o.order_number, o.order_year, o.order_seq, COALESCE(o.user_id, ''),
	o.full_name, o.email, o.phone, o.address1, o.address2, o.city, o.postcode, o.country,
	o.subtotal::text, o.tax::text, o.total::text,
	COALESCE(o.payment_intent_id, ''), o.payment_amount, COALESCE(o.payment_currency, ''),
	o.is_paid, o.created_at, o.updated_at`

// Create allocates the next order number for the order's year and inserts
// the order with its line-item snapshot atomically. Any failure aborts the
// whole transaction; a partially numbered order can never exist.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	year := o.CreatedAt.Year()

	var lastSeq int
	err = tx.QueryRow(ctx,
		`SELECT order_seq FROM orders WHERE order_year = $1 ORDER BY order_seq DESC LIMIT 1 FOR UPDATE`,
		year,
	).Scan(&lastSeq)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("read last order sequence: %w", err)
	}

	o.OrderYear = year
	o.OrderSeq = lastSeq + 1
	o.OrderNumber = domain.FormatOrderNumber(r.numberPrefix, year, o.OrderSeq)

	orderQuery := `
		INSERT INTO orders (id, order_number, order_year, order_seq, user_id,
			full_name, email, phone, address1, address2, city, postcode, country,
			subtotal, tax, total, payment_amount, is_paid, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 0, FALSE, $17, $17)`

	_, err = tx.Exec(ctx, orderQuery,
		o.ID,
		o.OrderNumber,
		o.OrderYear,
		o.OrderSeq,
		nullable(o.UserID),
		o.FullName,
		o.Email,
		o.Phone,
		o.Address1,
		o.Address2,
		o.City,
		o.Postcode,
		o.Country,
		o.Subtotal.StringFixed(2),
		o.Tax.StringFixed(2),
		o.Total.StringFixed(2),
		o.CreatedAt,
	)
	if err != nil {
		// The year's first order locks no row, so two first allocations can
		// race to the same sequence. The unique constraint decides; the
		// loser gets a retryable conflict instead of a generic failure.
		if isUniqueViolation(err) {
			return apperrors.Conflict("order number already allocated, please retry")
		}
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_line_items (id, order_id, product_id, product_name, quantity, line_total)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for i := range o.Items {
		item := &o.Items[i]
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.OrderID = o.ID

		_, err = tx.Exec(ctx, itemQuery,
			item.ID,
			item.OrderID,
			nullable(item.ProductID),
			item.ProductName,
			item.Quantity,
			item.LineTotal.StringFixed(2),
		)
		if err != nil {
			return fmt.Errorf("insert order line item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID retrieves an order with its line items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT` + orderColumns + ` FROM orders o WHERE o.id = $1`
	return r.getOne(ctx, query, id)
}

// GetByOrderNumber retrieves an order owned by the user.
func (r *OrderRepository) GetByOrderNumber(ctx context.Context, userID, orderNumber string) (*domain.Order, error) {
	query := `SELECT` + orderColumns + ` FROM orders o WHERE o.user_id = $1 AND o.order_number = $2`
	return r.getOne(ctx, query, userID, orderNumber)
}

// FindByIntentID returns the user's most recent order whose stored payment
// intent id matches.
func (r *OrderRepository) FindByIntentID(ctx context.Context, userID, intentID string) (*domain.Order, error) {
	query := `SELECT` + orderColumns + `
		FROM orders o
		WHERE o.user_id = $1 AND o.payment_intent_id = $2
		ORDER BY o.created_at DESC
		LIMIT 1`
	return r.getOne(ctx, query, userID, intentID)
}

// ListPaidByUser returns the user's paid orders, newest first, with the
// total count computed in the same query.
func (r *OrderRepository) ListPaidByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Order, int, error) {
	query := `SELECT` + orderColumns + `, count(*) OVER() AS total_count
		FROM orders o
		WHERE o.user_id = $1 AND o.is_paid = TRUE
		ORDER BY o.created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list paid orders: %w", err)
	}
	defer rows.Close()

	var totalCount int
	orders := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows, &totalCount)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, totalCount, nil
}

// SetPaymentIntent records the intent the order expects to settle with.
// Paid orders are immutable and are never touched.
func (r *OrderRepository) SetPaymentIntent(ctx context.Context, orderID, intentID string, amount int64, currency string) error {
	query := `
		UPDATE orders
		SET payment_intent_id = $1, payment_amount = $2, payment_currency = $3, updated_at = now()
		WHERE id = $4 AND is_paid = FALSE`

	tag, err := r.pool.Exec(ctx, query, intentID, amount, currency, orderID)
	if err != nil {
		return fmt.Errorf("set payment intent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// MarkPaid flips an unpaid order to paid and stores the authoritative
// settlement values.
func (r *OrderRepository) MarkPaid(ctx context.Context, orderID, intentID string, amountReceived int64, currency string) error {
	query := `
		UPDATE orders
		SET is_paid = TRUE, payment_intent_id = $1, payment_amount = $2, payment_currency = $3, updated_at = now()
		WHERE id = $4 AND is_paid = FALSE`

	tag, err := r.pool.Exec(ctx, query, intentID, amountReceived, currency, orderID)
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

func (r *OrderRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, query, args...), nil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}

	orders := []domain.Order{*o}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// loadItems batch-loads line items for the given orders in a single query.
func (r *OrderRepository) loadItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	orderIDs := make([]string, len(orders))
	for i := range orders {
		orderIDs[i] = orders[i].ID
	}

	query := `
		SELECT id, order_id, COALESCE(product_id, ''), product_name, quantity, line_total::text
		FROM order_line_items
		WHERE order_id = ANY($1)
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, orderIDs)
	if err != nil {
		return fmt.Errorf("load order line items: %w", err)
	}
	defer rows.Close()

	itemsByOrder := make(map[string][]domain.OrderLineItem, len(orders))
	for rows.Next() {
		var (
			item      domain.OrderLineItem
			lineTotal string
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &lineTotal); err != nil {
			return fmt.Errorf("scan order line item: %w", err)
		}
		item.LineTotal, err = decimal.NewFromString(lineTotal)
		if err != nil {
			return fmt.Errorf("parse line total %q: %w", lineTotal, err)
		}
		itemsByOrder[item.OrderID] = append(itemsByOrder[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate line item rows: %w", err)
	}

	for i := range orders {
		orders[i].Items = itemsByOrder[orders[i].ID]
	}
	return nil
}

func scanOrder(row pgx.Row, totalCount *int) (*domain.Order, error) {
	var (
		o                    domain.Order
		subtotal, tax, total string
	)

	dest := []any{
		&o.ID, &o.OrderNumber, &o.OrderYear, &o.OrderSeq, &o.UserID,
		&o.FullName, &o.Email, &o.Phone, &o.Address1, &o.Address2, &o.City, &o.Postcode, &o.Country,
		&subtotal, &tax, &total,
		&o.PaymentIntentID, &o.PaymentAmount, &o.PaymentCurrency,
		&o.IsPaid, &o.CreatedAt, &o.UpdatedAt,
	}
	if totalCount != nil {
		dest = append(dest, totalCount)
	}

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	var err error
	if o.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
		return nil, fmt.Errorf("parse subtotal %q: %w", subtotal, err)
	}
	if o.Tax, err = decimal.NewFromString(tax); err != nil {
		return nil, fmt.Errorf("parse tax %q: %w", tax, err)
	}
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse total %q: %w", total, err)
	}
	return &o, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
