package handler

import (
	"errors"
	"net/http"

	"github.com/rhowell/njord/internal/domain"
	"github.com/rhowell/njord/internal/router"
	"github.com/rhowell/njord/internal/telemetry"
)

// CartHandler serves the cart routes. The cart is addressed by the caller's
// identity headers rather than by ID, so a client can never touch another
// owner's cart.
type CartHandler struct {
	carts   domain.CartService
	metrics *telemetry.BusinessMetrics
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(carts domain.CartService, metrics *telemetry.BusinessMetrics) *CartHandler {
	return &CartHandler{carts: carts, metrics: metrics}
}

// RegisterRoutes registers cart routes.
func (h *CartHandler) RegisterRoutes(r *router.Router) {
	r.Get("/api/cart", h.View)
	r.Post("/api/cart/items", h.AddItem)
	r.Patch("/api/cart/items/{item_id}", h.SetQuantity)
	r.Delete("/api/cart/items/{item_id}", h.RemoveItem)
	r.Delete("/api/cart/items", h.Clear)
}

// resolveCart maps the request's identity headers to the owner's cart,
// creating it on first use.
func (h *CartHandler) resolveCart(r *http.Request) (*domain.Cart, error) {
	owner, err := ownerFromRequest(r)
	if err != nil {
		return nil, err
	}

	cart, created, err := h.carts.GetOrCreate(r.Context(), owner)
	if err != nil {
		return nil, err
	}
	if created {
		h.metrics.CartsCreated.Inc()
	}
	return cart, nil
}

// View handles GET /api/cart
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	cart, err := h.resolveCart(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	detail, err := h.carts.GetCart(r.Context(), cart.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(detail))
}

type addCartItemRequest struct {
	ItemID   int64 `json:"item_id" validate:"required,gt=0"`
	Quantity int32 `json:"quantity" validate:"required,gt=0"`
}

// AddItem handles POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	cart, err := h.resolveCart(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	detail, err := h.carts.AddItem(r.Context(), cart.ID, req.ItemID, req.Quantity)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			h.metrics.StockRejected.WithLabelValues("add_item").Inc()
		}
		respondError(w, r, err)
		return
	}

	h.metrics.CartItemsAdded.Inc()
	h.metrics.StockReserved.WithLabelValues("add_item").Inc()
	respondJSON(w, http.StatusOK, toCartResponse(detail))
}

type setQuantityRequest struct {
	Quantity *int32 `json:"quantity" validate:"required,gte=0"`
}

// SetQuantity handles PATCH /api/cart/items/{item_id}
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathInt64(r, "item_id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req setQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	cart, err := h.resolveCart(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	detail, err := h.carts.SetQuantity(r.Context(), cart.ID, itemID, *req.Quantity)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			h.metrics.StockRejected.WithLabelValues("set_quantity").Inc()
		}
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(detail))
}

// RemoveItem handles DELETE /api/cart/items/{item_id}?quantity=n
// Without a quantity parameter the whole line is removed.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathInt64(r, "item_id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	qty, err := queryInt32(r, "quantity", 0)
	if err != nil {
		respondError(w, r, err)
		return
	}
	removeAll := qty == 0

	cart, err := h.resolveCart(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	detail, err := h.carts.RemoveItem(r.Context(), cart.ID, itemID, qty, removeAll)
	if err != nil {
		respondError(w, r, err)
		return
	}

	h.metrics.CartItemsRemoved.Inc()
	h.metrics.StockReleased.WithLabelValues("remove_item").Inc()
	respondJSON(w, http.StatusOK, toCartResponse(detail))
}

// Clear handles DELETE /api/cart/items
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	cart, err := h.resolveCart(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.carts.RemoveAllLines(r.Context(), cart.ID); err != nil {
		respondError(w, r, err)
		return
	}

	h.metrics.CartsCleared.Inc()
	h.metrics.StockReleased.WithLabelValues("clear").Inc()
	w.WriteHeader(http.StatusNoContent)
}
