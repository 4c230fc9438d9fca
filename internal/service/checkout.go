package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ajoedv/fotolio/internal/domain"
	"github.com/ajoedv/fotolio/internal/repository"
	apperrors "github.com/ajoedv/fotolio/pkg/errors"
	pkgvalidator "github.com/ajoedv/fotolio/pkg/validator"
)

// ShippingInput is the checkout shipping form. Confirm must be set: shipping
// is only accepted as an explicit submission, never as a side effect of a
// page load.
type ShippingInput struct {
	FullName      string `json:"full_name" validate:"required,max=120"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"required,max=40"`
	Address1      string `json:"address1" validate:"required,max=200"`
	Address2      string `json:"address2" validate:"max=200"`
	City          string `json:"city" validate:"required,max=80"`
	Postcode      string `json:"postcode" validate:"required,max=20"`
	Country       string `json:"country" validate:"required,iso3166_1_alpha2"`
	Confirm       bool   `json:"confirm" validate:"required"`
	SaveAsDefault bool   `json:"save_as_default"`
}

// CheckoutView is the state of the checkout page: the cart being bought and
// the shipping prefill.
type CheckoutView struct {
	Items     []domain.CartItem       `json:"items"`
	Totals    domain.Totals           `json:"totals"`
	Shipping  *domain.ShippingDetails `json:"shipping,omitempty"`
	Submitted bool                    `json:"shipping_submitted"`
}

// errCartEmpty rejects checkout operations on an empty cart.
func errCartEmpty() *apperrors.AppError {
	return &apperrors.AppError{
		Code:    "CART_EMPTY",
		Message: "cart is empty",
		Status:  http.StatusBadRequest,
		Err:     apperrors.ErrInvalidInput,
	}
}

// CheckoutService implements the shipping collection step of checkout.
type CheckoutService struct {
	carts    repository.CartRepository
	sessions repository.SessionRepository
	profiles repository.ProfileRepository
	vatRate  decimal.Decimal
	logger   *slog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	carts repository.CartRepository,
	sessions repository.SessionRepository,
	profiles repository.ProfileRepository,
	vatRate decimal.Decimal,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		carts:    carts,
		sessions: sessions,
		profiles: profiles,
		vatRate:  vatRate,
		logger:   logger,
	}
}

// GetCheckout returns the checkout page state. The shipping prefill comes
// from the in-flight session when one exists, falling back to the user's
// saved profile. An empty cart cannot enter checkout.
func (s *CheckoutService) GetCheckout(ctx context.Context, userID string) (*CheckoutView, error) {
	items, err := s.carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errCartEmpty()
	}

	view := &CheckoutView{
		Items:  items,
		Totals: domain.CalculateTotals(items, s.vatRate),
	}

	session, err := s.sessions.Get(ctx, userID)
	if err == nil && session.HasShipping() {
		view.Shipping = session.Shipping
		view.Submitted = true
		return view, nil
	}
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err == nil {
		prefill := profile.ShippingDetails()
		view.Shipping = &prefill
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	return view, nil
}

// SubmitShipping validates and stores the shipping details, advancing the
// checkout to the payment step. Validation failure mutates nothing. A
// re-submission overwrites the previous payload wholesale.
func (s *CheckoutService) SubmitShipping(ctx context.Context, userID string, input *ShippingInput) (*domain.CheckoutSession, error) {
	items, err := s.carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errCartEmpty()
	}

	input.trim()
	if err := pkgvalidator.Validate(input); err != nil {
		return nil, err
	}

	session, err := s.sessions.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		session = &domain.CheckoutSession{}
	}

	session.Shipping = &domain.ShippingDetails{
		FullName: input.FullName,
		Email:    input.Email,
		Phone:    input.Phone,
		Address1: input.Address1,
		Address2: input.Address2,
		City:     input.City,
		Postcode: input.Postcode,
		Country:  input.Country,
	}

	if input.SaveAsDefault {
		profile := &domain.Profile{
			UserID:    userID,
			FullName:  input.FullName,
			Email:     input.Email,
			Phone:     input.Phone,
			Address1:  input.Address1,
			Address2:  input.Address2,
			City:      input.City,
			Postcode:  input.Postcode,
			Country:   input.Country,
			UpdatedAt: time.Now().UTC(),
		}
		if err := s.profiles.Upsert(ctx, profile); err != nil {
			return nil, err
		}
	}

	if err := s.sessions.Save(ctx, userID, session); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "shipping details submitted",
		slog.String("user_id", userID),
		slog.Bool("saved_as_default", input.SaveAsDefault),
	)
	return session, nil
}

func (in *ShippingInput) trim() {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address1 = strings.TrimSpace(in.Address1)
	in.Address2 = strings.TrimSpace(in.Address2)
	in.City = strings.TrimSpace(in.City)
	in.Postcode = strings.TrimSpace(in.Postcode)
	in.Country = strings.ToUpper(strings.TrimSpace(in.Country))
}
