package repository

import (
	"context"

	"github.com/ajoedv/fotolio/internal/domain"
)

// CartRepository defines persistence for cart lines. Every operation is
// scoped to the owning user; a cart line is never visible outside its owner.
type CartRepository interface {
	// ListByUser returns the user's cart lines with product name and price
	// joined in, oldest first.
	ListByUser(ctx context.Context, userID string) ([]domain.CartItem, error)

	// AddItem inserts a cart line, or increments the quantity when the user
	// already has the product in the cart.
	AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.CartItem, error)

	// UpdateQuantity sets the quantity on a cart line owned by the user.
	UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*domain.CartItem, error)

	// RemoveItem deletes a cart line owned by the user.
	RemoveItem(ctx context.Context, userID, itemID string) error

	// ClearByUser deletes all of the user's cart lines.
	ClearByUser(ctx context.Context, userID string) error
}

// ProductRepository reads the catalog collaborator surface.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

// ProfileRepository persists saved checkout details.
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Profile, error)

	// Upsert creates or replaces the user's saved details.
	Upsert(ctx context.Context, profile *domain.Profile) error
}

// OrderRepository defines persistence for orders and their line-item
// snapshots.
type OrderRepository interface {
	// Create allocates the next order number for the order's year and
	// inserts the order with its line items in one transaction. On success
	// the order's number fields are populated.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order with its line items.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// GetByOrderNumber retrieves an order owned by the user, with line items.
	GetByOrderNumber(ctx context.Context, userID, orderNumber string) (*domain.Order, error)

	// FindByIntentID returns the user's most recent order whose stored
	// payment intent id matches.
	FindByIntentID(ctx context.Context, userID, intentID string) (*domain.Order, error)

	// ListPaidByUser returns the user's paid orders, newest first, with the
	// total count.
	ListPaidByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Order, int, error)

	// SetPaymentIntent records the intent the order expects to settle with.
	SetPaymentIntent(ctx context.Context, orderID, intentID string, amount int64, currency string) error

	// MarkPaid flips the order to paid and stores the authoritative intent
	// id, captured amount and currency. It only affects unpaid orders.
	MarkPaid(ctx context.Context, orderID, intentID string, amountReceived int64, currency string) error
}

// SessionRepository persists the transient checkout session.
type SessionRepository interface {
	// Get returns the user's checkout session, or ErrNotFound when no
	// session exists or it has expired.
	Get(ctx context.Context, userID string) (*domain.CheckoutSession, error)

	// Save writes the whole session, resetting its TTL.
	Save(ctx context.Context, userID string, session *domain.CheckoutSession) error

	// Delete erases the session wholesale.
	Delete(ctx context.Context, userID string) error
}
