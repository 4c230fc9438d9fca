package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order is an immutable record of a checkout. Once paid it never changes.
// The user reference is nullable so the financial record survives account
// deletion.
type Order struct {
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`
	OrderYear   int    `json:"-"`
	OrderSeq    int    `json:"-"`
	UserID      string `json:"user_id,omitempty"`

	// Shipping snapshot, frozen at order creation.
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city"`
	Postcode string `json:"postcode"`
	Country  string `json:"country"`

	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`

	PaymentIntentID string `json:"-"`
	PaymentAmount   int64  `json:"-"` // minor units
	PaymentCurrency string `json:"-"` // lowercase ISO code
	IsPaid          bool   `json:"is_paid"`

	Items []OrderLineItem `json:"items,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderLineItem is a frozen snapshot of a cart line at order creation.
// The product reference is nullable so the snapshot survives catalog
// deletions.
type OrderLineItem struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"-"`
	ProductID   string          `json:"product_id,omitempty"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// FormatOrderNumber renders a human-readable order number from its parts,
// e.g. "FO-2026-000042". The sequence is zero-padded to six digits and
// restarts each year.
func FormatOrderNumber(prefix string, year, seq int) string {
	return fmt.Sprintf("%s-%d-%06d", prefix, year, seq)
}

// MinorUnits converts a decimal amount in major units to integer minor
// units. The amount is quantized to two decimal places half-up before
// scaling, so 99.995 becomes 10000, not 9999.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(2).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
