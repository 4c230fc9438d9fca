package mock

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ajoedv/fotolio/internal/provider"
	apperrors "github.com/ajoedv/fotolio/pkg/errors"
)

// Provider is an in-memory payment provider for development and testing.
// Created intents succeed immediately with the full amount captured.
type Provider struct {
	mu      sync.Mutex
	intents map[string]*provider.Intent
}

// NewProvider creates a new mock payment provider.
func NewProvider() *Provider {
	return &Provider{intents: make(map[string]*provider.Intent)}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "mock"
}

// CreateIntent registers an intent that is immediately succeeded.
func (p *Provider) CreateIntent(_ context.Context, input *provider.CreateIntentInput) (*provider.Intent, error) {
	id := "pi_mock_" + uuid.New().String()

	metadata := make(map[string]string, len(input.Metadata))
	for k, v := range input.Metadata {
		metadata[k] = v
	}

	intent := &provider.Intent{
		ID:             id,
		ClientSecret:   id + "_secret_" + uuid.New().String(),
		Status:         "succeeded",
		Amount:         input.Amount,
		AmountReceived: input.Amount,
		Currency:       input.Currency,
		Metadata:       metadata,
	}

	p.mu.Lock()
	p.intents[id] = intent
	p.mu.Unlock()

	return intent, nil
}

// RetrieveIntent returns a previously created intent.
func (p *Provider) RetrieveIntent(_ context.Context, id string) (*provider.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	intent, ok := p.intents[id]
	if !ok {
		return nil, apperrors.NotFound("payment intent", id)
	}
	cpy := *intent
	return &cpy, nil
}
