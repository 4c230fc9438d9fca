package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ajoedv/fotolio/internal/domain"
	"github.com/ajoedv/fotolio/internal/provider"
	apperrors "github.com/ajoedv/fotolio/pkg/errors"
)

type settlementMocks struct {
	orders   *mockOrderRepository
	carts    *mockCartRepository
	sessions *mockSessionRepository
	provider *mockProvider
}

func newTestSettlementService(t *testing.T) (*SettlementService, settlementMocks) {
	t.Helper()
	m := settlementMocks{
		orders:   new(mockOrderRepository),
		carts:    new(mockCartRepository),
		sessions: new(mockSessionRepository),
		provider: new(mockProvider),
	}
	svc := NewSettlementService(m.orders, m.carts, m.sessions, m.provider, newTestProducer(t), newTestLogger())
	return svc, m
}

func settlementSession() *domain.CheckoutSession {
	shipping := shippingFixture()
	return &domain.CheckoutSession{
		Shipping:         &shipping,
		PendingOrderID:   "order-001",
		ExpectedIntentID: "pi_123",
		ExpectedAmount:   12500,
		ExpectedCurrency: "sek",
	}
}

func pendingOrder() *domain.Order {
	return &domain.Order{
		ID:              "order-001",
		UserID:          "user-001",
		OrderNumber:     "FO-2026-000042",
		PaymentIntentID: "pi_123",
		PaymentAmount:   12500,
		PaymentCurrency: "sek",
	}
}

func succeededIntent() *provider.Intent {
	return &provider.Intent{
		ID:             "pi_123",
		Status:         "succeeded",
		Amount:         12500,
		AmountReceived: 12500,
		Currency:       "sek",
		Metadata:       map[string]string{"user_id": "user-001"},
	}
}

func TestSettlementService_Settle_MissingReference(t *testing.T) {
	svc, _ := newTestSettlementService(t)

	_, err := svc.Settle(context.Background(), "user-001", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestSettlementService_Settle_Commit(t *testing.T) {
	svc, m := newTestSettlementService(t)

	m.sessions.On("Get", mock.Anything, "user-001").Return(settlementSession(), nil)
	m.orders.On("GetByID", mock.Anything, "order-001").Return(pendingOrder(), nil)
	m.provider.On("RetrieveIntent", mock.Anything, "pi_123").Return(succeededIntent(), nil)
	m.orders.On("MarkPaid", mock.Anything, "order-001", "pi_123", int64(12500), "sek").Return(nil)
	m.carts.On("ClearByUser", mock.Anything, "user-001").Return(nil)
	m.sessions.On("Delete", mock.Anything, "user-001").Return(nil)

	order, err := svc.Settle(context.Background(), "user-001", "pi_123")
	require.NoError(t, err)

	assert.True(t, order.IsPaid)
	assert.Equal(t, "pi_123", order.PaymentIntentID)
	assert.Equal(t, int64(12500), order.PaymentAmount)
	assert.Equal(t, "sek", order.PaymentCurrency)

	m.orders.AssertExpectations(t)
	m.carts.AssertExpectations(t)
	m.sessions.AssertExpectations(t)
}

func TestSettlementService_Settle_NormalizesCapturedValues(t *testing.T) {
	svc, m := newTestSettlementService(t)

	// amount_received absent and currency uppercased by the processor.
	intent := succeededIntent()
	intent.AmountReceived = 0
	intent.Currency = "SEK"

	m.sessions.On("Get", mock.Anything, "user-001").Return(settlementSession(), nil)
	m.orders.On("GetByID", mock.Anything, "order-001").Return(pendingOrder(), nil)
	m.provider.On("RetrieveIntent", mock.Anything, "pi_123").Return(intent, nil)
	m.orders.On("MarkPaid", mock.Anything, "order-001", "pi_123", int64(12500), "sek").Return(nil)
	m.carts.On("ClearByUser", mock.Anything, "user-001").Return(nil)
	m.sessions.On("Delete", mock.Anything, "user-001").Return(nil)

	order, err := svc.Settle(context.Background(), "user-001", "pi_123")
	require.NoError(t, err)
	assert.Equal(t, "sek", order.PaymentCurrency)
	assert.Equal(t, int64(12500), order.PaymentAmount)
}

func TestSettlementService_Settle_ResolvesByIntentWithoutSession(t *testing.T) {
	svc, m := newTestSettlementService(t)

	m.sessions.On("Get", mock.Anything, "user-001").Return(nil, apperrors.ErrNotFound)
	m.orders.On("FindByIntentID", mock.Anything, "user-001", "pi_123").Return(pendingOrder(), nil)
	m.provider.On("RetrieveIntent", mock.Anything, "pi_123").Return(succeededIntent(), nil)
	m.orders.On("MarkPaid", mock.Anything, "order-001", "pi_123", int64(12500), "sek").Return(nil)
	m.carts.On("ClearByUser", mock.Anything, "user-001").Return(nil)
	m.sessions.On("Delete", mock.Anything, "user-001").Return(nil)

	order, err := svc.Settle(context.Background(), "user-001", "pi_123")
	require.NoError(t, err)
	assert.True(t, order.IsPaid)
}

func TestSettlementService_Settle_PendingOrderOwnedByOther(t *testing.T) {
	svc, m := newTestSettlementService(t)

	other := pendingOrder()
	other.UserID = "user-999"

	m.sessions.On("Get", mock.Anything, "user-001").Return(settlementSession(), nil)
	m.orders.On("GetByID", mock.Anything, "order-001").Return(other, nil)
	m.orders.On("FindByIntentID", mock.Anything, "user-001", "pi_123").Return(nil, apperrors.ErrNotFound)

	_, err := svc.Settle(context.Background(), "user-001", "pi_123")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSettlementService_Settle_OrderNotFound(t *testing.T) {
	svc, m := newTestSettlementService(t)

	m.sessions.On("Get", mock.Anything, "user-001").Return(nil, apperrors.ErrNotFound)
	m.orders.On("FindByIntentID", mock.Anything, "user-001", "pi_unknown").Return(nil, apperrors.ErrNotFound)

	_, err := svc.Settle(context.Background(), "user-001", "pi_unknown")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
	m.provider.AssertNotCalled(t, "RetrieveIntent", mock.Anything, mock.Anything)
}

func TestSettlementService_Settle_AlreadyPaidReplays(t *testing.T) {
	svc, m := newTestSettlementService(t)

	paid := pendingOrder()
	paid.IsPaid = true

	m.sessions.On("Get", mock.Anything, "user-001").Return(settlementSession(), nil)
	m.orders.On("GetByID", mock.Anything, "order-001").Return(paid, nil)
	m.sessions.On("Delete", mock.Anything, "user-001").Return(nil)

	order, err := svc.Settle(context.Background(), "user-001", "pi_123")
	require.NoError(t, err)
	assert.True(t, order.IsPaid)

	m.provider.AssertNotCalled(t, "RetrieveIntent", mock.Anything, mock.Anything)
	m.carts.AssertNotCalled(t, "ClearByUser", mock.Anything, mock.Anything)
	m.orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSettlementService_Settle_VerificationFailures(t *testing.T) {
	tests := []struct {
		name     string
		returned string
		mutate   func(*provider.Intent)
		code     string
	}{
		{
			name:     "foreign intent reference",
			returned: "pi_other",
			mutate:   func(i *provider.Intent) { i.ID = "pi_other" },
			code:     "PAYMENT_VERIFICATION_FAILED",
		},
		{
			name:     "payment not completed",
			returned: "pi_123",
			mutate:   func(i *provider.Intent) { i.Status = "requires_payment_method" },
			code:     "PAYMENT_NOT_COMPLETED",
		},
		{
			name:     "currency mismatch",
			returned: "pi_123",
			mutate:   func(i *provider.Intent) { i.Currency = "eur" },
			code:     "CURRENCY_MISMATCH",
		},
		{
			name:     "amount mismatch",
			returned: "pi_123",
			mutate:   func(i *provider.Intent) { i.AmountReceived = 9900; i.Amount = 9900 },
			code:     "AMOUNT_MISMATCH",
		},
		{
			name:     "wrong account",
			returned: "pi_123",
			mutate:   func(i *provider.Intent) { i.Metadata["user_id"] = "user-999" },
			code:     "USER_MISMATCH",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newTestSettlementService(t)

			intent := succeededIntent()
			tt.mutate(intent)

			m.sessions.On("Get", mock.Anything, "user-001").Return(settlementSession(), nil)
			m.orders.On("GetByID", mock.Anything, "order-001").Return(pendingOrder(), nil)
			m.provider.On("RetrieveIntent", mock.Anything, tt.returned).Return(intent, nil)

			_, err := svc.Settle(context.Background(), "user-001", tt.returned)
			require.Error(t, err)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.code, appErr.Code)
			assert.ErrorIs(t, err, apperrors.ErrPaymentFailed)

			m.orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			m.carts.AssertNotCalled(t, "ClearByUser", mock.Anything, mock.Anything)
			m.sessions.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		})
	}
}

func TestSettlementService_Settle_ExpectationFallsBackToOrder(t *testing.T) {
	svc, m := newTestSettlementService(t)

	// Session expired mid-payment; the order's stored payment fields still
	// pin the expected amount and currency.
	m.sessions.On("Get", mock.Anything, "user-001").Return(nil, apperrors.ErrNotFound)
	m.orders.On("FindByIntentID", mock.Anything, "user-001", "pi_123").Return(pendingOrder(), nil)

	intent := succeededIntent()
	intent.AmountReceived = 9900
	intent.Amount = 9900
	m.provider.On("RetrieveIntent", mock.Anything, "pi_123").Return(intent, nil)

	_, err := svc.Settle(context.Background(), "user-001", "pi_123")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AMOUNT_MISMATCH", appErr.Code)
}

func TestSettlementService_Settle_OrderPinsIntentWithoutSessionExpectation(t *testing.T) {
	svc, m := newTestSettlementService(t)

	// The session still points at the pending order but never got the intent
	// expectations. The order's stored intent id must pin the verification.
	session := settlementSession()
	session.ExpectedIntentID = ""
	session.ExpectedAmount = 0
	session.ExpectedCurrency = ""

	foreign := succeededIntent()
	foreign.ID = "pi_456"

	m.sessions.On("Get", mock.Anything, "user-001").Return(session, nil)
	m.orders.On("GetByID", mock.Anything, "order-001").Return(pendingOrder(), nil)
	m.provider.On("RetrieveIntent", mock.Anything, "pi_456").Return(foreign, nil)

	_, err := svc.Settle(context.Background(), "user-001", "pi_456")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "PAYMENT_VERIFICATION_FAILED", appErr.Code)
	m.orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSettlementService_Settle_ConcurrentCommitReplays(t *testing.T) {
	svc, m := newTestSettlementService(t)

	committed := pendingOrder()
	committed.IsPaid = true

	m.sessions.On("Get", mock.Anything, "user-001").Return(settlementSession(), nil)
	m.orders.On("GetByID", mock.Anything, "order-001").Return(pendingOrder(), nil).Once()
	m.provider.On("RetrieveIntent", mock.Anything, "pi_123").Return(succeededIntent(), nil)
	m.orders.On("MarkPaid", mock.Anything, "order-001", "pi_123", int64(12500), "sek").Return(apperrors.ErrConflict)
	m.orders.On("GetByID", mock.Anything, "order-001").Return(committed, nil)
	m.sessions.On("Delete", mock.Anything, "user-001").Return(nil)

	order, err := svc.Settle(context.Background(), "user-001", "pi_123")
	require.NoError(t, err)
	assert.True(t, order.IsPaid)
	m.carts.AssertNotCalled(t, "ClearByUser", mock.Anything, mock.Anything)
}

func TestSettlementService_Settle_ProviderUnavailable(t *testing.T) {
	svc, m := newTestSettlementService(t)

	m.sessions.On("Get", mock.Anything, "user-001").Return(settlementSession(), nil)
	m.orders.On("GetByID", mock.Anything, "order-001").Return(pendingOrder(), nil)
	m.provider.On("RetrieveIntent", mock.Anything, "pi_123").Return(nil, assert.AnError)

	_, err := svc.Settle(context.Background(), "user-001", "pi_123")
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
	m.orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecoveryFor(t *testing.T) {
	assert.Equal(t, RecoveryOrders, RecoveryFor("NOT_FOUND"))
	assert.Equal(t, RecoveryOrders, RecoveryFor(domain.CodeUserMismatch))
	assert.Equal(t, RecoveryPayment, RecoveryFor(domain.CodeAmountMismatch))
	assert.Equal(t, RecoveryPayment, RecoveryFor(domain.CodeNotCompleted))
	assert.Equal(t, RecoveryPayment, RecoveryFor(domain.CodeCurrencyMismatch))
	assert.Equal(t, RecoveryPayment, RecoveryFor(domain.CodeVerificationFailed))
}
