package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ajoedv/fotolio/internal/domain"
	"github.com/ajoedv/fotolio/pkg/database"
	apperrors "github.com/ajoedv/fotolio/pkg/errors"
)

// CartRepository implements repository.CartRepository using PostgreSQL.
type CartRepository struct {
	pool database.DBTX
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool database.DBTX) *CartRepository {
	return &CartRepository{pool: pool}
}

const cartItemColumns = `
	ci.id, ci.user_id, ci.product_id, p.name, p.price::text, ci.quantity, ci.created_at, ci.updated_at`

// ListByUser returns the user's cart lines joined with product data.
func (r *CartRepository) ListByUser(ctx context.Context, userID string) ([]domain.CartItem, error) {
	query := `
		SELECT` + cartItemColumns + `
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.CartItem, 0)
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart rows: %w", err)
	}
	return items, nil
}

// AddItem inserts a cart line or increments the quantity on conflict.
func (r *CartRepository) AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.CartItem, error) {
	query := `
		INSERT INTO cart_items (id, user_id, product_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()
		RETURNING id`

	var itemID string
	err := r.pool.QueryRow(ctx, query, uuid.New().String(), userID, productID, quantity).Scan(&itemID)
	if err != nil {
		return nil, fmt.Errorf("add cart item: %w", err)
	}
	return r.getByID(ctx, userID, itemID)
}

// UpdateQuantity sets the quantity on an owned cart line.
func (r *CartRepository) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*domain.CartItem, error) {
	query := `
		UPDATE cart_items SET quantity = $1, updated_at = now()
		WHERE id = $2 AND user_id = $3`

	tag, err := r.pool.Exec(ctx, query, quantity, itemID, userID)
	if err != nil {
		return nil, fmt.Errorf("update cart quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.ErrNotFound
	}
	return r.getByID(ctx, userID, itemID)
}

// RemoveItem deletes an owned cart line.
func (r *CartRepository) RemoveItem(ctx context.Context, userID, itemID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE id = $1 AND user_id = $2`, itemID, userID)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ClearByUser deletes all cart lines of the user.
func (r *CartRepository) ClearByUser(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (r *CartRepository) getByID(ctx context.Context, userID, itemID string) (*domain.CartItem, error) {
	query := `
		SELECT` + cartItemColumns + `
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.id = $1 AND ci.user_id = $2`

	item, err := scanCartItem(r.pool.QueryRow(ctx, query, itemID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return item, nil
}

func scanCartItem(row pgx.Row) (*domain.CartItem, error) {
	var (
		item  domain.CartItem
		price string
	)
	if err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.ProductID,
		&item.ProductName,
		&price,
		&item.Quantity,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan cart item: %w", err)
	}

	unitPrice, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse cart item price %q: %w", price, err)
	}
	item.UnitPrice = unitPrice
	return &item, nil
}
