package service

import (
	"context"
	"time"

	"github.com/adityahazarika/flash-sale-flow/internal/domain"
)

// InventoryStore is the transactional contract the reservation engine and
// outcome resolver rely on: every multi-item mutation is all-or-nothing
// and each item carries its own precondition.
type InventoryStore interface {
	BatchGet(ctx context.Context, productIDs []string) (map[string]domain.InventoryItem, error)
	Reserve(ctx context.Context, items []domain.OrderItem) error
	CommitReservation(ctx context.Context, items []domain.OrderItem) error
	ReleaseReservation(ctx context.Context, items []domain.OrderItem) error
}

type OrderStore interface {
	Create(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, orderID string) (*domain.Order, error)

	// UpdateStatusFrom reports whether the conditional swap happened.
	UpdateStatusFrom(ctx context.Context, orderID string, from, to domain.OrderStatus) (bool, error)

	// ListExpiredPending returns one page of Pending orders created
	// before cutoff, plus a cursor for the next page ("" when exhausted).
	ListExpiredPending(ctx context.Context, cutoff time.Time, afterID string, limit int) ([]domain.Order, string, error)
}

type FulfillmentPublisher interface {
	PublishOrderConfirmed(ctx context.Context, orderID string) error
}
