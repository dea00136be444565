package handler

import (
	"net/http"

	"github.com/rhowell/njord/internal/domain"
	"github.com/rhowell/njord/internal/router"
	"github.com/rhowell/njord/internal/telemetry"
	"github.com/shopspring/decimal"
)

// ItemHandler serves the catalog management routes.
type ItemHandler struct {
	catalog domain.CatalogService
	metrics *telemetry.BusinessMetrics
}

// NewItemHandler creates a new catalog handler.
func NewItemHandler(catalog domain.CatalogService, metrics *telemetry.BusinessMetrics) *ItemHandler {
	return &ItemHandler{catalog: catalog, metrics: metrics}
}

// RegisterRoutes registers catalog routes.
func (h *ItemHandler) RegisterRoutes(r *router.Router) {
	r.Post("/api/items", h.Create)
	r.Get("/api/items", h.List)
	r.Get("/api/items/{id}", h.Get)
	r.Patch("/api/items/{id}", h.Update)
	r.Delete("/api/items/{id}", h.Delete)
	r.Post("/api/items/{id}/stock", h.AdjustStock)
}

type createItemRequest struct {
	Name         string          `json:"name" validate:"required,max=255"`
	Description  string          `json:"description"`
	PictureURL   string          `json:"picture_url" validate:"omitempty,url"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	InitialStock int32           `json:"initial_stock" validate:"gte=0"`
}

// Create handles POST /api/items
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	item, err := h.catalog.CreateItem(r.Context(), req.Name, req.Description,
		req.PictureURL, req.UnitPrice, req.InitialStock)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, toItemResponse(item))
}

// Get handles GET /api/items/{id}
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathInt64(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	item, err := h.catalog.GetItem(r.Context(), itemID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toItemResponse(item))
}

// List handles GET /api/items?limit=&offset=
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt32(r, "limit", 100)
	if err != nil {
		respondError(w, r, err)
		return
	}
	offset, err := queryInt32(r, "offset", 0)
	if err != nil {
		respondError(w, r, err)
		return
	}

	items, err := h.catalog.ListItems(r.Context(), limit, offset)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := make([]itemResponse, 0, len(items))
	for i := range items {
		resp = append(resp, toItemResponse(&items[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": resp})
}

type updateItemRequest struct {
	Name        *string          `json:"name" validate:"omitempty,max=255"`
	Description *string          `json:"description"`
	PictureURL  *string          `json:"picture_url" validate:"omitempty,url"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
}

// Update handles PATCH /api/items/{id}
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathInt64(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	item, err := h.catalog.UpdateItem(r.Context(), itemID, domain.ItemUpdate{
		Name:        req.Name,
		Description: req.Description,
		PictureURL:  req.PictureURL,
		UnitPrice:   req.UnitPrice,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toItemResponse(item))
}

// Delete handles DELETE /api/items/{id}
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathInt64(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.catalog.DeleteItem(r.Context(), itemID); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type adjustStockRequest struct {
	Delta int32 `json:"delta" validate:"required"`
}

// AdjustStock handles POST /api/items/{id}/stock
func (h *ItemHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathInt64(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req adjustStockRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	newStock, err := h.catalog.AdjustStock(r.Context(), itemID, req.Delta)
	if err != nil {
		respondError(w, r, err)
		return
	}

	h.metrics.StockAdjusted.Inc()
	respondJSON(w, http.StatusOK, map[string]any{
		"item_id":         itemID,
		"available_stock": newStock,
	})
}
