package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ajoedv/fotolio/internal/domain"
	"github.com/ajoedv/fotolio/internal/event"
	"github.com/ajoedv/fotolio/internal/provider"
	"github.com/ajoedv/fotolio/internal/repository"
	apperrors "github.com/ajoedv/fotolio/pkg/errors"
)

// Recovery route hints attached to settlement failures. They tell the client
// where to send the user next: back to the payment step, or to order history
// when this checkout can no longer be completed by this user.
const (
	RecoveryPayment = "payment"
	RecoveryOrders  = "orders"
)

// RecoveryFor maps an error code to its recovery route.
func RecoveryFor(code string) string {
	switch code {
	case "NOT_FOUND", domain.CodeUserMismatch:
		return RecoveryOrders
	default:
		return RecoveryPayment
	}
}

// SettlementService turns a returned payment reference into a paid order,
// but only after independently verifying the payment against the processor.
// Nothing on the return path is trusted.
type SettlementService struct {
	orders    repository.OrderRepository
	carts     repository.CartRepository
	sessions  repository.SessionRepository
	providerC provider.Provider
	producer  *event.Producer
	logger    *slog.Logger
}

// NewSettlementService creates a new settlement service.
func NewSettlementService(
	orders repository.OrderRepository,
	carts repository.CartRepository,
	sessions repository.SessionRepository,
	providerC provider.Provider,
	producer *event.Producer,
	logger *slog.Logger,
) *SettlementService {
	return &SettlementService{
		orders:    orders,
		carts:     carts,
		sessions:  sessions,
		providerC: providerC,
		producer:  producer,
		logger:    logger,
	}
}

// Settle resolves the order behind the returned intent id, verifies the
// payment with the processor, and commits: order paid, cart deleted, session
// erased. Settling an already-paid order is an idempotent success.
func (s *SettlementService) Settle(ctx context.Context, userID, returnedIntentID string) (*domain.Order, error) {
	if returnedIntentID == "" {
		return nil, apperrors.InvalidInput("missing payment_intent reference")
	}

	session, err := s.sessions.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		session = nil
	}

	order, err := s.resolveOrder(ctx, userID, session, returnedIntentID)
	if err != nil {
		return nil, err
	}

	if order.IsPaid {
		// Replayed success redirect. The commit already ran; just make sure
		// the session is gone.
		if err := s.sessions.Delete(ctx, userID); err != nil {
			s.logger.WarnContext(ctx, "failed to clear checkout session on replay",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
		return order, nil
	}

	if s.providerC == nil {
		return nil, apperrors.ServiceUnavailable("payment processing is not configured")
	}

	intent, err := s.providerC.RetrieveIntent(ctx, returnedIntentID)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.ServiceUnavailable("payment processor is unavailable, please retry")
	}

	exp := expectationFor(session, order)
	if verr := domain.VerifySettlement(userID, returnedIntentID, exp, domain.SettlementIntent{
		ID:             intent.ID,
		Status:         intent.Status,
		Currency:       intent.Currency,
		Amount:         intent.Amount,
		AmountReceived: intent.AmountReceived,
		MetadataUserID: intent.Metadata["user_id"],
	}); verr != nil {
		s.logger.WarnContext(ctx, "settlement verification failed",
			slog.String("user_id", userID),
			slog.String("order_id", order.ID),
			slog.String("payment_intent_id", returnedIntentID),
			slog.String("code", verr.Code),
		)
		return nil, apperrors.PaymentFailed(verr.Code, verr.Message)
	}

	received := domain.SettlementIntent{Amount: intent.Amount, AmountReceived: intent.AmountReceived}.Received()
	currency := strings.ToLower(intent.Currency)

	if err := s.orders.MarkPaid(ctx, order.ID, intent.ID, received, currency); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// A concurrent settle won the race. Same idempotent outcome.
			return s.replayCommitted(ctx, userID, order.ID)
		}
		return nil, err
	}

	order.IsPaid = true
	order.PaymentIntentID = intent.ID
	order.PaymentAmount = received
	order.PaymentCurrency = currency

	// The order is paid; cart and session cleanup must not undo that, so
	// failures here are logged and the settlement still reports success.
	if err := s.carts.ClearByUser(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear cart after settlement",
			slog.String("user_id", userID),
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.sessions.Delete(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear checkout session after settlement",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order settled",
		slog.String("user_id", userID),
		slog.String("order_number", order.OrderNumber),
		slog.String("payment_intent_id", intent.ID),
		slog.Int64("amount_received", received),
		slog.String("currency", currency),
	)

	if err := s.producer.PublishOrderPaid(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.paid event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.producer.PublishCartCleared(ctx, userID, order.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	return order, nil
}

// resolveOrder finds the order this settlement refers to: the session's
// pending order first, then the newest order already carrying the returned
// intent id.
func (s *SettlementService) resolveOrder(ctx context.Context, userID string, session *domain.CheckoutSession, returnedIntentID string) (*domain.Order, error) {
	if session != nil && session.PendingOrderID != "" {
		order, err := s.orders.GetByID(ctx, session.PendingOrderID)
		if err == nil && order.UserID == userID {
			return order, nil
		}
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}

	order, err := s.orders.FindByIntentID(ctx, userID, returnedIntentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("order for payment", returnedIntentID)
		}
		return nil, err
	}
	return order, nil
}

// replayCommitted reloads an order another settle call just committed.
func (s *SettlementService) replayCommitted(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Delete(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "failed to clear checkout session on replay",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
	return order, nil
}

// expectationFor builds the verification expectation, preferring the live
// session and falling back to the order's stored payment fields when the
// session has expired.
func expectationFor(session *domain.CheckoutSession, order *domain.Order) domain.SettlementExpectation {
	if session != nil && session.ExpectedIntentID != "" {
		return domain.SettlementExpectation{
			IntentID: session.ExpectedIntentID,
			Amount:   session.ExpectedAmount,
			Currency: session.ExpectedCurrency,
		}
	}
	return domain.SettlementExpectation{
		IntentID: order.PaymentIntentID,
		Amount:   order.PaymentAmount,
		Currency: order.PaymentCurrency,
	}
}
