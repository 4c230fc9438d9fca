package event

import (
	"context"
	"log/slog"

	"github.com/ajoedv/fotolio/internal/domain"
	pkgkafka "github.com/ajoedv/fotolio/pkg/kafka"
	"github.com/ajoedv/fotolio/pkg/logger"
)

// Kafka topic constants for shop domain events.
const (
	TopicOrderCreated = "shop.order.created"
	TopicOrderPaid    = "shop.order.paid"
	TopicCartCleared  = "shop.cart.cleared"
)

// Aggregate type constants.
const (
	AggregateTypeOrder = "order"
	AggregateTypeCart  = "cart"
)

// Source identifier for events originating from this service.
const SourceShop = "shop-service"

// OrderCreatedData is the payload for a shop.order.created event.
type OrderCreatedData struct {
	OrderID     string         `json:"order_id"`
	OrderNumber string         `json:"order_number"`
	UserID      string         `json:"user_id"`
	Subtotal    string         `json:"subtotal"`
	Tax         string         `json:"tax"`
	Total       string         `json:"total"`
	Items       []LineItemData `json:"items"`
}

// LineItemData is the event payload for an order line item.
type LineItemData struct {
	ProductID   string `json:"product_id,omitempty"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	LineTotal   string `json:"line_total"`
}

// OrderPaidData is the payload for a shop.order.paid event.
type OrderPaidData struct {
	OrderID         string `json:"order_id"`
	OrderNumber     string `json:"order_number"`
	UserID          string `json:"user_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	AmountReceived  int64  `json:"amount_received"`
	Currency        string `json:"currency"`
}

// CartClearedData is the payload for a shop.cart.cleared event.
type CartClearedData struct {
	UserID  string `json:"user_id"`
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

// Producer publishes shop domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishOrderCreated publishes a shop.order.created event.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	items := make([]LineItemData, len(order.Items))
	for i, item := range order.Items {
		items[i] = LineItemData{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			LineTotal:   item.LineTotal.StringFixed(2),
		}
	}

	data := OrderCreatedData{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Subtotal:    order.Subtotal.StringFixed(2),
		Tax:         order.Tax.StringFixed(2),
		Total:       order.Total.StringFixed(2),
		Items:       items,
	}

	return p.publish(ctx, TopicOrderCreated, "order.created", order.ID, AggregateTypeOrder, data)
}

// PublishOrderPaid publishes a shop.order.paid event after settlement.
func (p *Producer) PublishOrderPaid(ctx context.Context, order *domain.Order) error {
	data := OrderPaidData{
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		UserID:          order.UserID,
		PaymentIntentID: order.PaymentIntentID,
		AmountReceived:  order.PaymentAmount,
		Currency:        order.PaymentCurrency,
	}
	return p.publish(ctx, TopicOrderPaid, "order.paid", order.ID, AggregateTypeOrder, data)
}

// PublishCartCleared publishes a shop.cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, userID, orderID string) error {
	data := CartClearedData{
		UserID:  userID,
		OrderID: orderID,
		Reason:  "settlement",
	}
	return p.publish(ctx, TopicCartCleared, "cart.cleared", userID, AggregateTypeCart, data)
}

func (p *Producer) publish(ctx context.Context, topic, eventType, aggregateID, aggregateType string, data any) error {
	evt, err := pkgkafka.NewEvent(eventType, aggregateID, aggregateType, SourceShop, data)
	if err != nil {
		return err
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		evt.WithCorrelationID(cid)
	}
	return p.kafka.Publish(ctx, topic, evt)
}
