package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ajoedv/fotolio/internal/service"
	apperrors "github.com/ajoedv/fotolio/pkg/errors"
	"github.com/ajoedv/fotolio/pkg/httputil"
	"github.com/ajoedv/fotolio/pkg/middleware"
	"github.com/ajoedv/fotolio/pkg/validator"
)

// CheckoutHandler handles HTTP requests for the checkout flow: shipping
// collection, payment setup, and the settlement of the success redirect.
type CheckoutHandler struct {
	checkout   *service.CheckoutService
	payment    *service.PaymentService
	settlement *service.SettlementService
	logger     *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(
	checkout *service.CheckoutService,
	payment *service.PaymentService,
	settlement *service.SettlementService,
	logger *slog.Logger,
) *CheckoutHandler {
	return &CheckoutHandler{
		checkout:   checkout,
		payment:    payment,
		settlement: settlement,
		logger:     logger,
	}
}

// GetCheckout handles GET /api/v1/checkout
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	view, err := h.checkout.GetCheckout(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// SubmitShipping handles POST /api/v1/checkout/shipping
func (h *CheckoutHandler) SubmitShipping(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req service.ShippingInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	session, err := h.checkout.SubmitShipping(r.Context(), userID, &req)
	if err != nil {
		if isValidationError(err) {
			httputil.WriteValidationError(w, err)
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: session})
}

// SetupPayment handles POST /api/v1/checkout/payment
func (h *CheckoutHandler) SetupPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)
	email := middleware.EmailFromContext(ctx)

	setup, err := h.payment.EnsureIntent(ctx, userID, email)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: setup})
}

// Settle handles GET /api/v1/checkout/success. The payment processor
// redirects the customer here with a payment_intent query parameter; nothing
// in that parameter is trusted until verified against the processor.
func (h *CheckoutHandler) Settle(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	intentID := r.URL.Query().Get("payment_intent")

	order, err := h.settlement.Settle(r.Context(), userID, intentID)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			httputil.WriteErrorRecovery(w, r, err, service.RecoveryFor(appErr.Code), h.logger)
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

func isValidationError(err error) bool {
	var valErr *validator.ValidationError
	return errors.As(err, &valErr)
}
