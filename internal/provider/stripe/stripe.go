package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ajoedv/fotolio/internal/provider"
	"github.com/ajoedv/fotolio/pkg/httpclient"
)

// Config holds the Stripe API credentials and endpoint.
type Config struct {
	SecretKey  string
	APIBaseURL string
}

// Provider implements provider.Provider against the Stripe REST API. All
// calls go through the circuit-breaker client, so a flapping processor trips
// open instead of piling up retries.
type Provider struct {
	cfg    Config
	client *httpclient.CircuitBreakerClient
	logger *slog.Logger
}

// New creates a Stripe-backed payment provider.
func New(cfg Config, client *httpclient.CircuitBreakerClient, logger *slog.Logger) *Provider {
	return &Provider{
		cfg:    cfg,
		client: client,
		logger: logger,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stripe"
}

// intentResponse is the subset of Stripe's PaymentIntent object this service
// reads.
type intentResponse struct {
	ID             string            `json:"id"`
	ClientSecret   string            `json:"client_secret"`
	Status         string            `json:"status"`
	Amount         int64             `json:"amount"`
	AmountReceived int64             `json:"amount_received"`
	Currency       string            `json:"currency"`
	Metadata       map[string]string `json:"metadata"`
}

// CreateIntent registers a payment intent with automatic payment methods
// enabled, carrying the metadata that settlement later verifies.
func (p *Provider) CreateIntent(ctx context.Context, input *provider.CreateIntentInput) (*provider.Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(input.Amount, 10))
	form.Set("currency", input.Currency)
	form.Set("automatic_payment_methods[enabled]", "true")
	for k, v := range input.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.APIBaseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create intent request: %w", err)
	}
	p.setHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("stripe create intent: %w", err)
	}
	return p.decodeIntent(resp)
}

// RetrieveIntent fetches the authoritative state of an intent.
func (p *Provider) RetrieveIntent(ctx context.Context, id string) (*provider.Intent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.cfg.APIBaseURL+"/v1/payment_intents/"+url.PathEscape(id), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("retrieve intent request: %w", err)
	}
	p.setHeaders(req)

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("stripe retrieve intent: %w", err)
	}
	return p.decodeIntent(resp)
}

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.cfg.SecretKey)
	req.Header.Set("Stripe-Version", "2024-06-20")
}

func (p *Provider) decodeIntent(resp *http.Response) (*provider.Intent, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpclient.ParseResponseError(resp, "stripe")
	}
	defer func() { _ = resp.Body.Close() }()

	var body intentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode intent response: %w", err)
	}

	return &provider.Intent{
		ID:             body.ID,
		ClientSecret:   body.ClientSecret,
		Status:         body.Status,
		Amount:         body.Amount,
		AmountReceived: body.AmountReceived,
		Currency:       body.Currency,
		Metadata:       body.Metadata,
	}, nil
}
