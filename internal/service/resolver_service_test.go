package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/adityahazarika/flash-sale-flow/internal/domain"
	"github.com/adityahazarika/flash-sale-flow/internal/repository/memory"
	"github.com/adityahazarika/flash-sale-flow/internal/retry"
	"github.com/rs/zerolog"
)

type recordingPublisher struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (p *recordingPublisher) PublishOrderConfirmed(_ context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.calls = append(p.calls, orderID)
	return nil
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

type resolverFixture struct {
	resolver  *ResolverService
	orders    *memory.OrderStore
	inventory *memory.InventoryStore
	publisher *recordingPublisher
}

func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()
	orders := memory.NewOrderStore()
	inventory := memory.NewInventoryStore()
	publisher := &recordingPublisher{}
	return &resolverFixture{
		resolver:  NewResolverService(orders, inventory, publisher, zerolog.Nop()),
		orders:    orders,
		inventory: inventory,
		publisher: publisher,
	}
}

// pendingOrder seeds stock, holds a reservation, and persists the Pending
// order that points at it.
func (f *resolverFixture) pendingOrder(t *testing.T, qty, stock int) *domain.Order {
	t.Helper()
	ctx := context.Background()
	f.inventory.Seed(domain.InventoryItem{ProductID: "PROD-1", Quantity: stock, Price: 2})
	items := []domain.OrderItem{{ProductID: "PROD-1", Qty: qty, Price: 2}}
	if err := f.inventory.Reserve(ctx, items); err != nil {
		t.Fatal(err)
	}
	order := domain.NewOrder("USER-1", items, float64(qty)*2)
	if err := f.orders.Create(ctx, order); err != nil {
		t.Fatal(err)
	}
	return order
}

func TestResolveSuccessCommitsReservation(t *testing.T) {
	ctx := context.Background()
	f := newResolverFixture(t)
	order := f.pendingOrder(t, 4, 10)

	resolved, err := f.resolver.Resolve(ctx, order.ID, domain.OutcomeSuccess)
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Status != domain.StatusProcessing {
		t.Errorf("expected processing, got %v", resolved.Status)
	}

	item, _ := f.inventory.Get(ctx, "PROD-1")
	if item.Quantity != 6 || item.Reserved != 0 {
		t.Errorf("commit must burn reserved units only: quantity=%d reserved=%d", item.Quantity, item.Reserved)
	}

	stored, _ := f.orders.Get(ctx, order.ID)
	if stored.Status != domain.StatusProcessing {
		t.Errorf("status not persisted: %v", stored.Status)
	}

	if published := f.publisher.published(); len(published) != 1 || published[0] != order.ID {
		t.Errorf("expected exactly one fulfillment event for %s, got %v", order.ID, published)
	}
}

func TestResolveFailureReleasesReservation(t *testing.T) {
	ctx := context.Background()
	f := newResolverFixture(t)
	order := f.pendingOrder(t, 4, 10)

	resolved, err := f.resolver.Resolve(ctx, order.ID, domain.OutcomeFailure)
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Status != domain.StatusFailed {
		t.Errorf("expected failed, got %v", resolved.Status)
	}

	item, _ := f.inventory.Get(ctx, "PROD-1")
	if item.Quantity != 10 || item.Reserved != 0 {
		t.Errorf("failure must restore stock: quantity=%d reserved=%d", item.Quantity, item.Reserved)
	}
	if len(f.publisher.published()) != 0 {
		t.Error("failed orders must not publish fulfillment events")
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newResolverFixture(t)
	order := f.pendingOrder(t, 4, 10)

	if _, err := f.resolver.Resolve(ctx, order.ID, domain.OutcomeFailure); err != nil {
		t.Fatal(err)
	}
	before, _ := f.inventory.Get(ctx, "PROD-1")

	resolved, err := f.resolver.Resolve(ctx, order.ID, domain.OutcomeFailure)
	if !errors.Is(err, domain.ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
	if resolved == nil || resolved.Status != domain.StatusFailed {
		t.Errorf("expected the terminal order back, got %+v", resolved)
	}

	after, _ := f.inventory.Get(ctx, "PROD-1")
	if before != after {
		t.Errorf("duplicate resolution mutated inventory: before=%+v after=%+v", before, after)
	}
}

func TestResolveRejectsPendingOutcome(t *testing.T) {
	ctx := context.Background()
	f := newResolverFixture(t)
	order := f.pendingOrder(t, 1, 5)

	_, err := f.resolver.Resolve(ctx, order.ID, domain.OutcomePending)
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
}

func TestResolveUnknownOrder(t *testing.T) {
	f := newResolverFixture(t)
	_, err := f.resolver.Resolve(context.Background(), "ORD-missing", domain.OutcomeSuccess)
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestResolvePublishFailureAfterCommit(t *testing.T) {
	ctx := context.Background()
	f := newResolverFixture(t)
	f.publisher.err = errors.New("broker unavailable")
	order := f.pendingOrder(t, 2, 5)

	resolved, err := f.resolver.Resolve(ctx, order.ID, domain.OutcomeSuccess)
	if err == nil {
		t.Fatal("expected the publish failure to surface")
	}
	if resolved == nil || resolved.Status != domain.StatusProcessing {
		t.Fatal("resolution must stay durable when only the notification fails")
	}

	stored, _ := f.orders.Get(ctx, order.ID)
	if stored.Status != domain.StatusProcessing {
		t.Errorf("status rolled back unexpectedly: %v", stored.Status)
	}
}

func TestExpireRejectsAndRestores(t *testing.T) {
	ctx := context.Background()
	f := newResolverFixture(t)
	order := f.pendingOrder(t, 3, 10)

	if err := f.resolver.Expire(ctx, order); err != nil {
		t.Fatal(err)
	}

	stored, _ := f.orders.Get(ctx, order.ID)
	if stored.Status != domain.StatusRejected {
		t.Errorf("expected rejected, got %v", stored.Status)
	}
	item, _ := f.inventory.Get(ctx, "PROD-1")
	if item.Quantity != 10 || item.Reserved != 0 {
		t.Errorf("expiry must restore stock: quantity=%d reserved=%d", item.Quantity, item.Reserved)
	}
}

func TestExpireSkipsResolvedOrder(t *testing.T) {
	ctx := context.Background()
	f := newResolverFixture(t)
	order := f.pendingOrder(t, 3, 10)

	if _, err := f.resolver.Resolve(ctx, order.ID, domain.OutcomeSuccess); err != nil {
		t.Fatal(err)
	}

	// The reaper holds the snapshot it discovered before the webhook won.
	stale, _ := f.orders.Get(ctx, order.ID)
	if err := f.resolver.Expire(ctx, stale); !errors.Is(err, domain.ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}

	item, _ := f.inventory.Get(ctx, "PROD-1")
	if item.Quantity != 7 || item.Reserved != 0 {
		t.Errorf("losing expiry must not touch inventory: quantity=%d reserved=%d", item.Quantity, item.Reserved)
	}
}

func TestResolverRetriesTransientStoreFailures(t *testing.T) {
	ctx := context.Background()
	f := newResolverFixture(t)
	order := f.pendingOrder(t, 2, 8)

	resolver := f.resolver.WithRetry(retry.Policy{Attempts: 3, BaseDelay: time.Millisecond}, 2)
	f.inventory.InjectFailure(&domain.TransientStoreError{Op: "release", Err: errors.New("throttled")}, 1)

	if err := resolver.Expire(ctx, order); err != nil {
		t.Fatalf("expected the retry to recover, got %v", err)
	}
	item, _ := f.inventory.Get(ctx, "PROD-1")
	if item.Quantity != 8 || item.Reserved != 0 {
		t.Errorf("expected restored stock after retry: quantity=%d reserved=%d", item.Quantity, item.Reserved)
	}
}
