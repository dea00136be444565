package handler

import (
	"errors"
	"net/http"

	"github.com/rhowell/njord/internal/domain"
	"github.com/rhowell/njord/internal/router"
	"github.com/rhowell/njord/internal/telemetry"
)

// OrderHandler serves checkout and order history routes. All routes require
// an authenticated user; guest sessions cannot check out.
type OrderHandler struct {
	checkout domain.CheckoutService
	metrics  *telemetry.BusinessMetrics
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(checkout domain.CheckoutService, metrics *telemetry.BusinessMetrics) *OrderHandler {
	return &OrderHandler{checkout: checkout, metrics: metrics}
}

// RegisterRoutes registers checkout and order routes.
func (h *OrderHandler) RegisterRoutes(r *router.Router) {
	r.Post("/api/checkout", h.Checkout)
	r.Get("/api/orders", h.List)
	r.Get("/api/orders/{id}", h.Get)
}

// Checkout handles POST /api/checkout
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	order, err := h.checkout.Checkout(r.Context(), userID)
	if err != nil {
		h.metrics.CheckoutFailed.WithLabelValues(checkoutFailReason(err)).Inc()
		respondError(w, r, err)
		return
	}

	h.metrics.CheckoutCompleted.Inc()
	h.metrics.OrderValue.Observe(order.TotalAmount.InexactFloat64())
	h.metrics.OrderLineCount.Observe(float64(len(order.Lines)))
	respondJSON(w, http.StatusCreated, toOrderResponse(order))
}

// List handles GET /api/orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	orders, err := h.checkout.ListOrders(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"orders": resp})
}

// Get handles GET /api/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	orderID, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	order, err := h.checkout.GetOrder(r.Context(), userID, orderID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toOrderResponse(order))
}

// checkoutFailReason buckets checkout failures for the failure counter.
func checkoutFailReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		return "empty_cart"
	case domain.ErrorCode(err) == domain.EUNAVAILABLE:
		return "storage"
	default:
		return "other"
	}
}
