package dto

import (
	"time"

	"github.com/olympia-tickets/checkout-service/internal/models"
	"github.com/olympia-tickets/checkout-service/internal/service"
)

type CartItemResponse struct {
	ID       uint `json:"id"`
	OfferID  uint `json:"offer_id"`
	Quantity int  `json:"quantity"`
}

type CartResponse struct {
	ID        uint               `json:"id"`
	UserID    *string            `json:"user_id,omitempty"`
	SessionID *string            `json:"session_id,omitempty"`
	Items     []CartItemResponse `json:"items"`
}

type CheckoutResponse struct {
	OK              bool     `json:"ok"`
	Total           string   `json:"total"`
	Errors          []string `json:"errors"`
	RedemptionCodes []string `json:"redemption_codes"`
}

type OrderResponse struct {
	ID        uint             `json:"id"`
	UserID    string           `json:"user_id"`
	Total     string           `json:"total"`
	CreatedAt time.Time        `json:"created_at"`
	Tickets   []TicketResponse `json:"tickets,omitempty"`
}

type TicketResponse struct {
	ID        uint      `json:"id"`
	OrderID   uint      `json:"order_id"`
	OfferID   uint      `json:"offer_id"`
	QRCode    string    `json:"qr_code"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

type ScanResponse struct {
	Status service.ScanStatus `json:"status"`
}

type SoldCountResponse struct {
	OfferID uint  `json:"offer_id"`
	Sold    int64 `json:"sold"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToCartResponse(c *models.Cart) CartResponse {
	items := make([]CartItemResponse, len(c.Items))
	for i, it := range c.Items {
		items[i] = CartItemResponse{ID: it.ID, OfferID: it.OfferID, Quantity: it.Quantity}
	}
	return CartResponse{
		ID:        c.ID,
		UserID:    c.UserID,
		SessionID: c.SessionID,
		Items:     items,
	}
}

func ToCheckoutResponse(r *service.CheckoutResult) CheckoutResponse {
	return CheckoutResponse{
		OK:              r.OK,
		Total:           r.Total.StringFixed(2),
		Errors:          r.Errors,
		RedemptionCodes: r.RedemptionCodes,
	}
}

func ToOrderResponse(o *models.Order) OrderResponse {
	resp := OrderResponse{
		ID:        o.ID,
		UserID:    o.UserID,
		Total:     o.Total.StringFixed(2),
		CreatedAt: o.CreatedAt,
	}
	for _, t := range o.Tickets {
		resp.Tickets = append(resp.Tickets, ToTicketResponse(&t))
	}
	return resp
}

func ToTicketResponse(t *models.Ticket) TicketResponse {
	return TicketResponse{
		ID:        t.ID,
		OrderID:   t.OrderID,
		OfferID:   t.OfferID,
		QRCode:    t.QRCode,
		Used:      t.Used,
		CreatedAt: t.CreatedAt,
	}
}
