package service

import (
	"context"
	"fmt"

	"github.com/adityahazarika/flash-sale-flow/internal/domain"
	"github.com/adityahazarika/flash-sale-flow/internal/metrics"
	"github.com/adityahazarika/flash-sale-flow/internal/retry"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// ResolverService applies a terminal payment outcome to a pending order:
// commit the reservation on success, reverse it on failure, and transition
// the order status exactly once. Two triggers can race here (the payment
// webhook and the timeout reaper); the conditional status update is the
// single-writer gate that keeps the inventory side effect from being
// applied twice.
type ResolverService struct {
	orders    OrderStore
	inventory InventoryStore
	publisher FulfillmentPublisher
	retry     retry.Policy
	log       zerolog.Logger

	// invGate, when set, caps concurrent inventory transactions. The
	// reaper installs it so a large run cannot saturate the store.
	invGate *semaphore.Weighted
}

func NewResolverService(orders OrderStore, inventory InventoryStore, publisher FulfillmentPublisher, log zerolog.Logger) *ResolverService {
	return &ResolverService{
		orders:    orders,
		inventory: inventory,
		publisher: publisher,
		retry:     retry.None,
		log:       log.With().Str("component", "resolver").Logger(),
	}
}

// WithRetry returns a copy of the resolver that retries transient store
// failures and limits concurrent inventory transactions.
func (s *ResolverService) WithRetry(policy retry.Policy, inventoryConcurrency int) *ResolverService {
	copied := *s
	copied.retry = policy
	if inventoryConcurrency > 0 {
		copied.invGate = semaphore.NewWeighted(int64(inventoryConcurrency))
	}
	return &copied
}

// Resolve applies a webhook-delivered outcome. OutcomePending is rejected:
// the gateway has not decided yet and the reaper owns the deadline.
func (s *ResolverService) Resolve(ctx context.Context, orderID string, outcome domain.PaymentOutcome) (*domain.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch outcome {
	case domain.OutcomeSuccess:
		return s.finalize(ctx, order, domain.StatusProcessing)
	case domain.OutcomeFailure:
		return s.finalize(ctx, order, domain.StatusFailed)
	default:
		return nil, &domain.ValidationError{Reason: "outcome must be terminal (success or failure)"}
	}
}

// Expire is the reaper's entry point: an order that outlived its payment
// deadline is treated as a failure and rejected.
func (s *ResolverService) Expire(ctx context.Context, order *domain.Order) error {
	_, err := s.finalize(ctx, order, domain.StatusRejected)
	return err
}

func (s *ResolverService) finalize(ctx context.Context, order *domain.Order, terminal domain.OrderStatus) (*domain.Order, error) {
	outcome := "failure"
	if terminal == domain.StatusProcessing {
		outcome = "success"
	}

	// Cheap short-circuit; the status CAS below is the real gate.
	if order.Status != domain.StatusPending {
		metrics.ResolutionsTotal.WithLabelValues(outcome, "already_resolved").Inc()
		return order, domain.ErrAlreadyResolved
	}

	// Inventory first, then the status transition. If the CAS then loses,
	// the winner already restored the invariant and the inventory
	// transaction must not be repeated.
	if err := s.applyInventory(ctx, order, terminal); err != nil {
		metrics.ResolutionsTotal.WithLabelValues(outcome, "error").Inc()
		return nil, fmt.Errorf("inventory update error for order %s: %w", order.ID, err)
	}

	var swapped bool
	err := s.retry.Do(ctx, func() error {
		var casErr error
		swapped, casErr = s.orders.UpdateStatusFrom(ctx, order.ID, domain.StatusPending, terminal)
		return casErr
	})
	if err != nil {
		metrics.ResolutionsTotal.WithLabelValues(outcome, "error").Inc()
		return nil, fmt.Errorf("order status update error for order %s: %w", order.ID, err)
	}
	if !swapped {
		s.log.Warn().
			Str("order_id", order.ID).
			Str("target_status", terminal.String()).
			Msg("Lost status race after inventory update; flagging for reconciliation")
		metrics.ResolutionsTotal.WithLabelValues(outcome, "already_resolved").Inc()
		return order, domain.ErrAlreadyResolved
	}

	order.Status = terminal
	s.log.Info().
		Str("order_id", order.ID).
		Str("status", terminal.String()).
		Msg("Order resolved")
	metrics.ResolutionsTotal.WithLabelValues(outcome, "resolved").Inc()

	if terminal == domain.StatusProcessing {
		if err := s.publisher.PublishOrderConfirmed(ctx, order.ID); err != nil {
			// The resolution is durable; only the notification is in
			// doubt. Surface the failure so the caller can alert on it.
			s.log.Error().Err(err).
				Str("order_id", order.ID).
				Msg("Fulfillment notification failed after commit")
			return order, fmt.Errorf("fulfillment publish error for order %s: %w", order.ID, err)
		}
	}

	return order, nil
}

func (s *ResolverService) applyInventory(ctx context.Context, order *domain.Order, terminal domain.OrderStatus) error {
	if s.invGate != nil {
		if err := s.invGate.Acquire(ctx, 1); err != nil {
			return err
		}
		defer s.invGate.Release(1)
	}

	return s.retry.Do(ctx, func() error {
		if terminal == domain.StatusProcessing {
			return s.inventory.CommitReservation(ctx, order.Items)
		}
		return s.inventory.ReleaseReservation(ctx, order.Items)
	})
}
