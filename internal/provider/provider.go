package provider

import "context"

// CreateIntentInput holds the parameters for creating a payment intent.
// Amount is in minor units.
type CreateIntentInput struct {
	Amount   int64
	Currency string
	Metadata map[string]string
}

// Intent is the processor's view of a payment intent. Fields arriving on the
// return path are untrusted until the settlement verifier has checked them
// against an authoritative retrieve.
type Intent struct {
	ID             string
	ClientSecret   string
	Status         string
	Amount         int64
	AmountReceived int64
	Currency       string
	Metadata       map[string]string
}

// Provider defines the interface to the external payment processor.
type Provider interface {
	// Name returns the provider name (e.g., "mock", "stripe").
	Name() string

	// CreateIntent registers a new payment intent with the processor.
	CreateIntent(ctx context.Context, input *CreateIntentInput) (*Intent, error)

	// RetrieveIntent fetches the authoritative state of an intent.
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)
}
