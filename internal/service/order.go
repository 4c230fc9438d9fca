package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ajoedv/fotolio/internal/domain"
	"github.com/ajoedv/fotolio/internal/event"
	"github.com/ajoedv/fotolio/internal/repository"
	apperrors "github.com/ajoedv/fotolio/pkg/errors"
	"github.com/ajoedv/fotolio/pkg/pagination"
)

// OrderService implements the order ledger: creation with year-scoped
// numbering and the read-only history surface.
type OrderService struct {
	orders   repository.OrderRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(orders repository.OrderRepository, producer *event.Producer, logger *slog.Logger) *OrderService {
	return &OrderService{
		orders:   orders,
		producer: producer,
		logger:   logger,
	}
}

// CreateOrReuseOrder returns the checkout's pending order. When the session
// already points at an unpaid order owned by the user, that order is reused
// so retried payment attempts do not burn order numbers. Otherwise a new
// order is created with a frozen line-item snapshot of the cart.
func (s *OrderService) CreateOrReuseOrder(
	ctx context.Context,
	userID string,
	session *domain.CheckoutSession,
	shipping domain.ShippingDetails,
	totals domain.Totals,
	items []domain.CartItem,
) (*domain.Order, error) {
	if session != nil && session.PendingOrderID != "" {
		existing, err := s.orders.GetByID(ctx, session.PendingOrderID)
		if err == nil && !existing.IsPaid && existing.UserID == userID {
			return existing, nil
		}
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		// Stale reference: the order is gone, paid, or not ours. Create fresh.
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:        uuid.New().String(),
		UserID:    userID,
		FullName:  shipping.FullName,
		Email:     shipping.Email,
		Phone:     shipping.Phone,
		Address1:  shipping.Address1,
		Address2:  shipping.Address2,
		City:      shipping.City,
		Postcode:  shipping.Postcode,
		Country:   shipping.Country,
		Subtotal:  totals.Subtotal,
		Tax:       totals.Tax,
		Total:     totals.Total,
		CreatedAt: now,
		UpdatedAt: now,
	}

	order.Items = make([]domain.OrderLineItem, len(items))
	for i, item := range items {
		order.Items[i] = domain.OrderLineItem{
			ID:          uuid.New().String(),
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			LineTotal:   item.LineTotal(),
		}
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("order_number", order.OrderNumber),
		slog.String("user_id", userID),
	)

	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}
	return order, nil
}

// AttachPaymentIntent records the intent the order expects to settle with.
func (s *OrderService) AttachPaymentIntent(ctx context.Context, orderID, intentID string, amount int64, currency string) error {
	return s.orders.SetPaymentIntent(ctx, orderID, intentID, amount, currency)
}

// ListPaid returns the user's settled orders, newest first.
func (s *OrderService) ListPaid(ctx context.Context, userID string, params pagination.Params) (*pagination.Result[domain.Order], error) {
	orders, total, err := s.orders.ListPaidByUser(ctx, userID, params.PerPage, params.Offset)
	if err != nil {
		return nil, err
	}
	result := pagination.NewResult(orders, total, params)
	return &result, nil
}

// GetByNumber returns one of the user's settled orders by order number.
// Unpaid orders are in-flight checkouts and are not exposed here.
func (s *OrderService) GetByNumber(ctx context.Context, userID, orderNumber string) (*domain.Order, error) {
	order, err := s.orders.GetByOrderNumber(ctx, userID, orderNumber)
	if err != nil {
		return nil, err
	}
	if !order.IsPaid {
		return nil, apperrors.NotFound("order", orderNumber)
	}
	return order, nil
}
