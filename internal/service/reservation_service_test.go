package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/adityahazarika/flash-sale-flow/internal/domain"
	"github.com/adityahazarika/flash-sale-flow/internal/repository/memory"
	"github.com/rs/zerolog"
)

func newReservationFixture() (*ReservationService, *memory.OrderStore, *memory.InventoryStore) {
	orders := memory.NewOrderStore()
	inventory := memory.NewInventoryStore()
	svc := NewReservationService(orders, inventory, zerolog.Nop())
	return svc, orders, inventory
}

func TestReserveCreatesPendingOrder(t *testing.T) {
	ctx := context.Background()
	svc, orders, inventory := newReservationFixture()
	inventory.Seed(domain.InventoryItem{ProductID: "PROD-1", Quantity: 10, Price: 2.5})
	inventory.Seed(domain.InventoryItem{ProductID: "PROD-2", Quantity: 3, Price: 10})

	order, err := svc.Reserve(ctx, "USER-1", []domain.OrderItem{
		{ProductID: "PROD-1", Qty: 4},
		{ProductID: "PROD-2", Qty: 1},
	})
	if err != nil {
		t.Fatal(err)
	}

	if order.Status != domain.StatusPending {
		t.Errorf("expected pending order, got %v", order.Status)
	}
	if order.Total != 4*2.5+10 {
		t.Errorf("expected total 20, got %v", order.Total)
	}
	for _, item := range order.Items {
		if item.Price == 0 {
			t.Errorf("item %s missing price snapshot", item.ProductID)
		}
	}

	stored, err := orders.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("order was not persisted: %v", err)
	}
	if stored.UserID != "USER-1" {
		t.Errorf("expected user USER-1, got %s", stored.UserID)
	}

	item, _ := inventory.Get(ctx, "PROD-1")
	if item.Quantity != 6 || item.Reserved != 4 {
		t.Errorf("expected quantity=6 reserved=4, got quantity=%d reserved=%d", item.Quantity, item.Reserved)
	}
}

func TestReserveValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, inventory := newReservationFixture()
	inventory.Seed(domain.InventoryItem{ProductID: "PROD-1", Quantity: 10, Price: 1})

	tests := []struct {
		name   string
		userID string
		items  []domain.OrderItem
	}{
		{"missing user", "", []domain.OrderItem{{ProductID: "PROD-1", Qty: 1}}},
		{"no items", "USER-1", nil},
		{"zero quantity", "USER-1", []domain.OrderItem{{ProductID: "PROD-1", Qty: 0}}},
		{"unknown product", "USER-1", []domain.OrderItem{{ProductID: "PROD-MISSING", Qty: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Reserve(ctx, tt.userID, tt.items)
			var validationErr *domain.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
		})
	}
}

func TestReserveInsufficientStock(t *testing.T) {
	ctx := context.Background()
	svc, _, inventory := newReservationFixture()
	inventory.Seed(domain.InventoryItem{ProductID: "PROD-1", Quantity: 3, Price: 1})

	_, err := svc.Reserve(ctx, "USER-1", []domain.OrderItem{{ProductID: "PROD-1", Qty: 5}})
	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected *InsufficientStockError, got %v", err)
	}
	if stockErr.ProductID != "PROD-1" || stockErr.Requested != 5 || stockErr.Available != 3 {
		t.Errorf("unexpected shortage detail: %+v", stockErr)
	}

	item, _ := inventory.Get(ctx, "PROD-1")
	if item.Quantity != 3 || item.Reserved != 0 {
		t.Errorf("rejected reservation must not touch stock: quantity=%d reserved=%d", item.Quantity, item.Reserved)
	}
}

func TestReserveReleasesOnPersistFailure(t *testing.T) {
	ctx := context.Background()
	svc, orders, inventory := newReservationFixture()
	inventory.Seed(domain.InventoryItem{ProductID: "PROD-1", Quantity: 10, Price: 1})
	orders.InjectFailure(errors.New("write timeout"), 1)

	_, err := svc.Reserve(ctx, "USER-1", []domain.OrderItem{{ProductID: "PROD-1", Qty: 4}})
	if err == nil {
		t.Fatal("expected order persist failure to surface")
	}

	item, _ := inventory.Get(ctx, "PROD-1")
	if item.Quantity != 10 || item.Reserved != 0 {
		t.Errorf("reservation must be released when the order cannot be saved: quantity=%d reserved=%d",
			item.Quantity, item.Reserved)
	}
}

func TestReserveConcurrentOversell(t *testing.T) {
	ctx := context.Background()
	svc, _, inventory := newReservationFixture()
	inventory.Seed(domain.InventoryItem{ProductID: "PROD-HOT", Quantity: 10, Price: 1})

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Reserve(ctx, "USER-1", []domain.OrderItem{{ProductID: "PROD-HOT", Qty: 6}})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var stockErr *domain.InsufficientStockError
		if !errors.Is(err, domain.ErrReservationConflict) && !errors.As(err, &stockErr) {
			t.Errorf("loser must see a conflict or shortage, got %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one winner for 6+6 units of 10, got %d", succeeded)
	}

	item, _ := inventory.Get(ctx, "PROD-HOT")
	if item.Quantity != 4 || item.Reserved != 6 {
		t.Errorf("unit conservation broken: quantity=%d reserved=%d", item.Quantity, item.Reserved)
	}
}
