package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem represents a single line in a user's cart. Product name and unit
// price are joined in from the catalog at read time; the cart row itself
// stores only the product reference and quantity.
type CartItem struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// LineTotal returns unit price times quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Totals is the monetary breakdown of a cart. Prices are tax-inclusive, so
// Total is the sum of line totals and Subtotal is the net amount backed out
// of it.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// CalculateTotals computes cart totals from tax-inclusive line prices.
// With a VAT rate r > 0 the net amount is total/(1+r) rounded to two
// decimal places half-up, and tax is the remainder. A zero rate yields
// zero tax. An empty cart yields all zeros.
func CalculateTotals(items []CartItem, vatRate decimal.Decimal) Totals {
	gross := decimal.Zero
	for _, item := range items {
		gross = gross.Add(item.LineTotal())
	}
	gross = gross.Round(2)

	if vatRate.IsZero() {
		return Totals{Subtotal: gross, Tax: decimal.Zero.Round(2), Total: gross}
	}

	net := gross.DivRound(decimal.NewFromInt(1).Add(vatRate), 2)
	tax := gross.Sub(net).Round(2)
	return Totals{Subtotal: net, Tax: tax, Total: gross}
}

// ItemCount returns the total quantity across all cart lines.
func ItemCount(items []CartItem) int {
	var count int
	for _, item := range items {
		count += item.Quantity
	}
	return count
}
