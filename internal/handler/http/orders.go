package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ajoedv/fotolio/internal/service"
	"github.com/ajoedv/fotolio/pkg/httputil"
	"github.com/ajoedv/fotolio/pkg/middleware"
	"github.com/ajoedv/fotolio/pkg/pagination"
)

// OrderHandler handles HTTP requests for order history endpoints.
type OrderHandler struct {
	service *service.OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		service: svc,
		logger:  logger,
	}
}

// List handles GET /api/v1/orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	params := pagination.FromRequest(r)

	result, err := h.service.ListPaid(r.Context(), userID, params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// GetByNumber handles GET /api/v1/orders/{orderNumber}
func (h *OrderHandler) GetByNumber(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	orderNumber := chi.URLParam(r, "orderNumber")

	order, err := h.service.GetByNumber(r.Context(), userID, orderNumber)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}
