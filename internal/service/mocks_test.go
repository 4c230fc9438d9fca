package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/ajoedv/fotolio/internal/domain"
	"github.com/ajoedv/fotolio/internal/event"
	"github.com/ajoedv/fotolio/internal/provider"
	pkgkafka "github.com/ajoedv/fotolio/pkg/kafka"
)

// --- Mock repositories ---

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) ListByUser(ctx context.Context, userID string) ([]domain.CartItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CartItem), args.Error(1)
}

func (m *mockCartRepository) AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.CartItem, error) {
	args := m.Called(ctx, userID, productID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CartItem), args.Error(1)
}

func (m *mockCartRepository) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*domain.CartItem, error) {
	args := m.Called(ctx, userID, itemID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CartItem), args.Error(1)
}

func (m *mockCartRepository) RemoveItem(ctx context.Context, userID, itemID string) error {
	args := m.Called(ctx, userID, itemID)
	return args.Error(0)
}

func (m *mockCartRepository) ClearByUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

type mockProfileRepository struct {
	mock.Mock
}

func (m *mockProfileRepository) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *mockProfileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) GetByOrderNumber(ctx context.Context, userID, orderNumber string) (*domain.Order, error) {
	args := m.Called(ctx, userID, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) FindByIntentID(ctx context.Context, userID, intentID string) (*domain.Order, error) {
	args := m.Called(ctx, userID, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) ListPaidByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Order, int, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *mockOrderRepository) SetPaymentIntent(ctx context.Context, orderID, intentID string, amount int64, currency string) error {
	args := m.Called(ctx, orderID, intentID, amount, currency)
	return args.Error(0)
}

func (m *mockOrderRepository) MarkPaid(ctx context.Context, orderID, intentID string, amountReceived int64, currency string) error {
	args := m.Called(ctx, orderID, intentID, amountReceived, currency)
	return args.Error(0)
}

type mockSessionRepository struct {
	mock.Mock
}

func (m *mockSessionRepository) Get(ctx context.Context, userID string) (*domain.CheckoutSession, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CheckoutSession), args.Error(1)
}

func (m *mockSessionRepository) Save(ctx context.Context, userID string, session *domain.CheckoutSession) error {
	args := m.Called(ctx, userID, session)
	return args.Error(0)
}

func (m *mockSessionRepository) Delete(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// --- Mock payment provider ---

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string {
	return "mock"
}

func (m *mockProvider) CreateIntent(ctx context.Context, input *provider.CreateIntentInput) (*provider.Intent, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Intent), args.Error(1)
}

func (m *mockProvider) RetrieveIntent(ctx context.Context, id string) (*provider.Intent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Intent), args.Error(1)
}

// --- Test helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestProducer builds a producer pointed at an unreachable broker; event
// publishing fails and is logged, exercising the best-effort path.
func newTestProducer(t *testing.T) *event.Producer {
	t.Helper()
	logger := newTestLogger()
	cfg := pkgkafka.DefaultProducerConfig([]string{"localhost:1"})
	kafkaProducer := pkgkafka.NewProducer(cfg, logger)
	t.Cleanup(func() { _ = kafkaProducer.Close() })
	return event.NewProducer(kafkaProducer, logger)
}
