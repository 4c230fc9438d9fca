package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ajoedv/fotolio/internal/domain"
	"github.com/ajoedv/fotolio/internal/provider"
	"github.com/ajoedv/fotolio/internal/repository"
	apperrors "github.com/ajoedv/fotolio/pkg/errors"
)

// PaymentSetup is everything the client needs to run the payment step.
type PaymentSetup struct {
	ClientSecret string `json:"client_secret"`
	IntentID     string `json:"payment_intent_id"`
	OrderNumber  string `json:"order_number"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	PublicKey    string `json:"public_key"`
}

// PaymentService bridges the checkout to the external payment processor: it
// materializes the order and makes sure exactly one usable intent exists for
// the current cart total.
type PaymentService struct {
	orders    *OrderService
	carts     repository.CartRepository
	sessions  repository.SessionRepository
	providerC provider.Provider
	vatRate   decimal.Decimal
	currency  string
	publicKey string
	logger    *slog.Logger
}

// NewPaymentService creates a new payment service. The provider may be nil
// when processor credentials are absent; every payment operation then fails
// with a configuration error while the rest of checkout stays usable.
func NewPaymentService(
	orders *OrderService,
	carts repository.CartRepository,
	sessions repository.SessionRepository,
	providerC provider.Provider,
	vatRate decimal.Decimal,
	currency string,
	publicKey string,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		orders:    orders,
		carts:     carts,
		sessions:  sessions,
		providerC: providerC,
		vatRate:   vatRate,
		currency:  currency,
		publicKey: publicKey,
		logger:    logger,
	}
}

// errCheckoutIncomplete rejects the payment step before shipping details
// have been submitted.
func errCheckoutIncomplete() *apperrors.AppError {
	return &apperrors.AppError{
		Code:    "CHECKOUT_INCOMPLETE",
		Message: "shipping details have not been submitted",
		Status:  400,
		Err:     apperrors.ErrInvalidInput,
	}
}

// EnsureIntent creates or reuses the payment intent for the user's checkout.
// The order is created (or reused) and recorded in the session before the
// processor is called, so a failed call leaves the retry pointing at the same
// order instead of minting a new one. The intent expectations are only
// persisted after the processor call succeeds.
func (s *PaymentService) EnsureIntent(ctx context.Context, userID, email string) (*PaymentSetup, error) {
	if s.providerC == nil {
		return nil, apperrors.ServiceUnavailable("payment processing is not configured")
	}

	session, err := s.sessions.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, errCheckoutIncomplete()
		}
		return nil, err
	}
	if !session.HasShipping() {
		return nil, errCheckoutIncomplete()
	}

	items, err := s.carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errCartEmpty()
	}

	totals := domain.CalculateTotals(items, s.vatRate)

	order, err := s.orders.CreateOrReuseOrder(ctx, userID, session, *session.Shipping, totals, items)
	if err != nil {
		return nil, err
	}

	if session.PendingOrderID != order.ID {
		session.PendingOrderID = order.ID
		if err := s.sessions.Save(ctx, userID, session); err != nil {
			return nil, err
		}
	}

	amount := domain.MinorUnits(totals.Total)

	intent, err := s.resolveIntent(ctx, userID, email, order, amount)
	if err != nil {
		return nil, err
	}

	if err := s.orders.AttachPaymentIntent(ctx, order.ID, intent.ID, amount, s.currency); err != nil {
		return nil, err
	}

	session.ExpectedIntentID = intent.ID
	session.ExpectedAmount = amount
	session.ExpectedCurrency = s.currency
	if err := s.sessions.Save(ctx, userID, session); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "payment intent ready",
		slog.String("user_id", userID),
		slog.String("order_number", order.OrderNumber),
		slog.String("payment_intent_id", intent.ID),
		slog.Int64("amount", amount),
		slog.String("currency", s.currency),
	)

	return &PaymentSetup{
		ClientSecret: intent.ClientSecret,
		IntentID:     intent.ID,
		OrderNumber:  order.OrderNumber,
		Amount:       amount,
		Currency:     s.currency,
		PublicKey:    s.publicKey,
	}, nil
}

// resolveIntent reuses the order's stored intent when the amount and
// currency are unchanged and the intent is still payable, otherwise creates
// a new one.
func (s *PaymentService) resolveIntent(ctx context.Context, userID, email string, order *domain.Order, amount int64) (*provider.Intent, error) {
	if order.PaymentIntentID != "" && order.PaymentAmount == amount && strings.EqualFold(order.PaymentCurrency, s.currency) {
		intent, err := s.providerC.RetrieveIntent(ctx, order.PaymentIntentID)
		if err == nil && intentPayable(intent.Status) {
			return intent, nil
		}
		if err != nil {
			s.logger.WarnContext(ctx, "stored payment intent not reusable",
				slog.String("payment_intent_id", order.PaymentIntentID),
				slog.String("error", err.Error()),
			)
		}
	}

	intent, err := s.providerC.CreateIntent(ctx, &provider.CreateIntentInput{
		Amount:   amount,
		Currency: s.currency,
		Metadata: map[string]string{
			"user_id":      userID,
			"order_number": order.OrderNumber,
			"email":        email,
		},
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.ServiceUnavailable("payment processor is unavailable, please retry")
	}
	return intent, nil
}

// intentPayable reports whether an intent can still complete a payment.
func intentPayable(status string) bool {
	switch status {
	case "succeeded", "canceled":
		return false
	default:
		return true
	}
}
