package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/adityahazarika/flash-sale-flow/internal/domain"
	"github.com/adityahazarika/flash-sale-flow/internal/metrics"
	"github.com/rs/zerolog"
)

// ReservationService holds stock against a new order: an optimistic
// batched stock check, one conditional all-or-nothing reserve transaction,
// then the Pending order record. The conditional transaction is the source
// of truth; the pre-check only avoids paying for a transaction that is
// near-certain to fail.
type ReservationService struct {
	orders    OrderStore
	inventory InventoryStore
	log       zerolog.Logger
}

func NewReservationService(orders OrderStore, inventory InventoryStore, log zerolog.Logger) *ReservationService {
	return &ReservationService{
		orders:    orders,
		inventory: inventory,
		log:       log.With().Str("component", "reservation").Logger(),
	}
}

func (s *ReservationService) Reserve(ctx context.Context, userID string, items []domain.OrderItem) (*domain.Order, error) {
	if userID == "" {
		metrics.ReservationsTotal.WithLabelValues("validation_failed").Inc()
		return nil, &domain.ValidationError{Reason: "user id is required"}
	}
	if err := domain.ValidateItems(items); err != nil {
		metrics.ReservationsTotal.WithLabelValues("validation_failed").Inc()
		return nil, err
	}

	total, priced, err := s.checkStock(ctx, items)
	if err != nil {
		var validationErr *domain.ValidationError
		var stockErr *domain.InsufficientStockError
		switch {
		case errors.As(err, &validationErr):
			metrics.ReservationsTotal.WithLabelValues("validation_failed").Inc()
		case errors.As(err, &stockErr):
			metrics.ReservationsTotal.WithLabelValues("insufficient_stock").Inc()
		default:
			metrics.ReservationsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	if err := s.inventory.Reserve(ctx, priced); err != nil {
		if errors.Is(err, domain.ErrReservationConflict) {
			metrics.ReservationsTotal.WithLabelValues("conflict").Inc()
			return nil, err
		}
		metrics.ReservationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("inventory reserve error: %w", err)
	}

	order := domain.NewOrder(userID, priced, total)
	if err := s.orders.Create(ctx, order); err != nil {
		// The reservation is already held but no order record points at
		// it, so the reaper could never reclaim it. Hand the units back
		// immediately.
		if releaseErr := s.inventory.ReleaseReservation(ctx, priced); releaseErr != nil {
			s.log.Error().Err(releaseErr).
				Str("order_id", order.ID).
				Msg("Reconciliation required: order persist and reservation release both failed")
		}
		metrics.ReservationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("order creation error: %w", err)
	}

	metrics.ReservationsTotal.WithLabelValues("created").Inc()
	s.log.Info().
		Str("order_id", order.ID).
		Str("user_id", userID).
		Float64("total", total).
		Msg("Order created")

	return order, nil
}

// checkStock verifies availability in one batched lookup and prices the
// items, computing the order total.
func (s *ReservationService) checkStock(ctx context.Context, items []domain.OrderItem) (float64, []domain.OrderItem, error) {
	productIDs := make([]string, len(items))
	for i, item := range items {
		productIDs[i] = item.ProductID
	}

	records, err := s.inventory.BatchGet(ctx, productIDs)
	if err != nil {
		return 0, nil, fmt.Errorf("inventory check error: %w", err)
	}

	var total float64
	priced := make([]domain.OrderItem, len(items))
	for i, item := range items {
		record, ok := records[item.ProductID]
		if !ok {
			return 0, nil, &domain.ValidationError{
				Reason: fmt.Sprintf("product %s: %v", item.ProductID, domain.ErrProductNotFound),
			}
		}
		if !record.CanReserve(item.Qty) {
			return 0, nil, &domain.InsufficientStockError{
				ProductID: item.ProductID,
				Requested: item.Qty,
				Available: record.Quantity,
			}
		}
		total += record.Price * float64(item.Qty)
		priced[i] = domain.OrderItem{ProductID: item.ProductID, Qty: item.Qty, Price: record.Price}
	}

	return total, priced, nil
}
