package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OrderStatus is persisted as a small integer. Value 3 belonged to a
// retired state in the legacy scheme and must stay unused so stored rows
// never need a migration.
type OrderStatus int

const (
	StatusPending    OrderStatus = 1
	StatusProcessing OrderStatus = 2
	StatusRejected   OrderStatus = 4
	StatusFailed     OrderStatus = 5
)

func (s OrderStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusRejected:
		return "rejected"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// IsTerminal reports whether no further transition is permitted.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusProcessing || s == StatusRejected || s == StatusFailed
}

type Order struct {
	ID        string      `json:"order_id"`
	UserID    string      `json:"user_id"`
	Items     []OrderItem `json:"items"`
	Total     float64     `json:"total"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// OrderItem is the immutable per-product snapshot taken at reservation
// time. The resolver and the reaper trust this snapshot when they move
// units back between the inventory counters.
type OrderItem struct {
	ProductID string  `json:"product_id"`
	Qty       int     `json:"qty"`
	Price     float64 `json:"price,omitempty"`
}

func NewOrder(userID string, items []OrderItem, total float64) *Order {
	now := time.Now().UTC()
	return &Order{
		ID:        "ORD-" + uuid.New().String(),
		UserID:    userID,
		Items:     items,
		Total:     total,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ValidateItems rejects requests the reservation engine must never act on.
func ValidateItems(items []OrderItem) error {
	if len(items) == 0 {
		return &ValidationError{Reason: "order must contain at least one item"}
	}
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		if item.ProductID == "" {
			return &ValidationError{Reason: fmt.Sprintf("item %d has an empty product id", i)}
		}
		if item.Qty <= 0 {
			return &ValidationError{Reason: fmt.Sprintf("item %d has a non-positive quantity", i)}
		}
		if _, dup := seen[item.ProductID]; dup {
			return &ValidationError{Reason: fmt.Sprintf("product %s appears more than once", item.ProductID)}
		}
		seen[item.ProductID] = struct{}{}
	}
	return nil
}
