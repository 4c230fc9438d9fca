package domain

// ShippingDetails is the delivery information collected at checkout.
type ShippingDetails struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city"`
	Postcode string `json:"postcode"`
	Country  string `json:"country"`
}

// CheckoutSession is the transient per-user checkout state. It lives in the
// session store under a TTL; expiry abandons the checkout. The expected
// payment fields pin what the settlement step must observe from the
// processor before the order is marked paid.
type CheckoutSession struct {
	Shipping         *ShippingDetails `json:"shipping,omitempty"`
	PendingOrderID   string           `json:"pending_order_id,omitempty"`
	ExpectedIntentID string           `json:"expected_payment_intent_id,omitempty"`
	ExpectedAmount   int64            `json:"expected_payment_amount,omitempty"`
	ExpectedCurrency string           `json:"expected_payment_currency,omitempty"`
}

// HasShipping reports whether shipping details have been submitted.
func (s *CheckoutSession) HasShipping() bool {
	return s != nil && s.Shipping != nil
}
