package handler

import (
	"time"

	"github.com/rhowell/njord/internal/domain"
	"github.com/shopspring/decimal"
)

// itemResponse is the wire form of a catalog item.
type itemResponse struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	PictureURL     string          `json:"picture_url"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	AvailableStock int32           `json:"available_stock"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func toItemResponse(item *domain.Item) itemResponse {
	return itemResponse{
		ID:             item.ID,
		Name:           item.Name,
		Description:    item.Description,
		PictureURL:     item.PictureURL,
		UnitPrice:      item.UnitPrice,
		AvailableStock: item.AvailableStock,
		CreatedAt:      item.CreatedAt,
		UpdatedAt:      item.UpdatedAt,
	}
}

// cartLineResponse is the wire form of one cart line with its item snapshot.
type cartLineResponse struct {
	ItemID       int64           `json:"item_id"`
	Name         string          `json:"name"`
	PictureURL   string          `json:"picture_url"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int32           `json:"quantity"`
	LineSubtotal decimal.Decimal `json:"line_subtotal"`
}

// cartResponse is the wire form of a cart with resolved lines and totals.
type cartResponse struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id,omitempty"`
	SessionID string             `json:"session_id,omitempty"`
	Items     []cartLineResponse `json:"items"`
	Subtotal  decimal.Decimal    `json:"subtotal"`
	ItemCount int32              `json:"item_count"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func toCartResponse(detail *domain.CartDetail) cartResponse {
	resp := cartResponse{
		ID:        detail.Cart.ID.String(),
		UserID:    detail.Cart.UserID,
		SessionID: detail.Cart.SessionID,
		Items:     make([]cartLineResponse, 0, len(detail.Lines)),
		Subtotal:  detail.Subtotal,
		ItemCount: detail.ItemCount,
		CreatedAt: detail.Cart.CreatedAt,
		UpdatedAt: detail.Cart.UpdatedAt,
	}
	for _, line := range detail.Lines {
		resp.Items = append(resp.Items, cartLineResponse{
			ItemID:       line.ItemID,
			Name:         line.Name,
			PictureURL:   line.PictureURL,
			UnitPrice:    line.UnitPrice,
			Quantity:     line.Quantity,
			LineSubtotal: line.LineSubtotal,
		})
	}
	return resp
}

// orderLineResponse is the wire form of one order line.
type orderLineResponse struct {
	ItemID              int64           `json:"item_id"`
	Name                string          `json:"name"`
	Quantity            int32           `json:"quantity"`
	UnitPriceAtPurchase decimal.Decimal `json:"unit_price_at_purchase"`
}

// orderResponse is the wire form of an order.
type orderResponse struct {
	ID          string              `json:"id"`
	UserID      string              `json:"user_id"`
	Status      string              `json:"status"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	CreatedAt   time.Time           `json:"created_at"`
	Lines       []orderLineResponse `json:"lines"`
}

func toOrderResponse(order *domain.Order) orderResponse {
	resp := orderResponse{
		ID:          order.ID.String(),
		UserID:      order.UserID,
		Status:      string(order.Status),
		TotalAmount: order.TotalAmount,
		CreatedAt:   order.CreatedAt,
		Lines:       make([]orderLineResponse, 0, len(order.Lines)),
	}
	for _, line := range order.Lines {
		resp.Lines = append(resp.Lines, orderLineResponse{
			ItemID:              line.ItemID,
			Name:                line.Name,
			Quantity:            line.Quantity,
			UnitPriceAtPurchase: line.UnitPriceAtPurchase,
		})
	}
	return resp
}
