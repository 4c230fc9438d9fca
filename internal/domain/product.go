package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the minimal catalog surface the checkout flow reads. Catalog
// management lives elsewhere; this service never writes products.
type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

// Profile holds a user's saved contact and address details, used to prefill
// the checkout form and optionally updated from it.
type Profile struct {
	UserID    string    `json:"user_id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address1  string    `json:"address1"`
	Address2  string    `json:"address2,omitempty"`
	City      string    `json:"city"`
	Postcode  string    `json:"postcode"`
	Country   string    `json:"country"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ShippingDetails converts the profile into a checkout prefill payload.
func (p *Profile) ShippingDetails() ShippingDetails {
	return ShippingDetails{
		FullName: p.FullName,
		Email:    p.Email,
		Phone:    p.Phone,
		Address1: p.Address1,
		Address2: p.Address2,
		City:     p.City,
		Postcode: p.Postcode,
		Country:  p.Country,
	}
}
