package service

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/ajoedv/fotolio/internal/domain"
	"github.com/ajoedv/fotolio/internal/repository"
)

// CartView is the cart with its monetary breakdown.
type CartView struct {
	Items     []domain.CartItem `json:"items"`
	ItemCount int               `json:"item_count"`
	Totals    domain.Totals     `json:"totals"`
}

// CartSummary is the lightweight header widget view of the cart.
type CartSummary struct {
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}

// CartService implements cart operations. All reads and writes are scoped to
// the authenticated owner.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	vatRate  decimal.Decimal
	logger   *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(carts repository.CartRepository, products repository.ProductRepository, vatRate decimal.Decimal, logger *slog.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		vatRate:  vatRate,
		logger:   logger,
	}
}

// GetCart returns the user's cart lines with totals.
func (s *CartService) GetCart(ctx context.Context, userID string) (*CartView, error) {
	items, err := s.carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &CartView{
		Items:     items,
		ItemCount: domain.ItemCount(items),
		Totals:    domain.CalculateTotals(items, s.vatRate),
	}, nil
}

// AddItem puts a product in the cart. Adding a product that is already in
// the cart increments its quantity instead of creating a second line.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.CartItem, error) {
	if quantity < 1 {
		quantity = 1
	}

	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}

	item, err := s.carts.AddItem(ctx, userID, productID, quantity)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "cart item added",
		slog.String("user_id", userID),
		slog.String("product_id", productID),
		slog.Int("quantity", item.Quantity),
	)
	return item, nil
}

// UpdateQuantity sets the quantity on a cart line, flooring at one. Removing
// a line is an explicit operation, not a zero write.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*domain.CartItem, error) {
	if quantity < 1 {
		quantity = 1
	}
	return s.carts.UpdateQuantity(ctx, userID, itemID, quantity)
}

// RemoveItem deletes a cart line.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) error {
	return s.carts.RemoveItem(ctx, userID, itemID)
}

// Summary returns the item count and gross total for the user's cart.
func (s *CartService) Summary(ctx context.Context, userID string) (*CartSummary, error) {
	items, err := s.carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	totals := domain.CalculateTotals(items, s.vatRate)
	return &CartSummary{
		ItemCount: domain.ItemCount(items),
		Total:     totals.Total,
	}, nil
}
