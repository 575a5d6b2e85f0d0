package handlers

import (
	"time"

	"github.com/adityahazarika/flash-sale-flow/internal/domain"
)

type CreateOrderRequest struct {
	UserID string             `json:"user_id"`
	Items  []OrderItemRequest `json:"items"`
}

type OrderItemRequest struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

func (r CreateOrderRequest) ToOrderItems() []domain.OrderItem {
	items := make([]domain.OrderItem, len(r.Items))
	for i, item := range r.Items {
		items[i] = domain.OrderItem{ProductID: item.ProductID, Qty: item.Qty}
	}
	return items
}

type OrderResponse struct {
	OrderID   string              `json:"order_id"`
	UserID    string              `json:"user_id"`
	Items     []OrderItemResponse `json:"items"`
	Total     float64             `json:"total"`
	Status    string              `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

type OrderItemResponse struct {
	ProductID string  `json:"product_id"`
	Qty       int     `json:"qty"`
	Price     float64 `json:"price"`
}

func toOrderResponse(order *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemResponse{ProductID: item.ProductID, Qty: item.Qty, Price: item.Price}
	}
	return OrderResponse{
		OrderID:   order.ID,
		UserID:    order.UserID,
		Items:     items,
		Total:     order.Total,
		Status:    order.Status.String(),
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
}

// WebhookRequest is the payment gateway's callback body. Status strings
// are the gateway's vocabulary and are mapped to outcomes at this
// boundary only.
type WebhookRequest struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type InventoryResponse struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Reserved  int     `json:"reserved"`
	Price     float64 `json:"price"`
}

type RestockRequest struct {
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}
