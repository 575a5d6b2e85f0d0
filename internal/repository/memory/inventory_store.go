package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/adityahazarika/flash-sale-flow/internal/domain"
)

// InventoryStore is a mutex-guarded map with the same conditional,
// all-or-nothing semantics as the Postgres store. It backs the test suite
// and STORE_DRIVER=memory runs.
type InventoryStore struct {
	mu       sync.Mutex
	items    map[string]*domain.InventoryItem
	failures []error
}

func NewInventoryStore() *InventoryStore {
	return &InventoryStore{items: make(map[string]*domain.InventoryItem)}
}

// InjectFailure makes the next n mutating calls fail with err.
func (s *InventoryStore) InjectFailure(err error, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.failures = append(s.failures, err)
	}
}

func (s *InventoryStore) popFailure() error {
	if len(s.failures) == 0 {
		return nil
	}
	err := s.failures[0]
	s.failures = s.failures[1:]
	return err
}

func (s *InventoryStore) Seed(item domain.InventoryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := item
	s.items[item.ProductID] = &copied
}

func (s *InventoryStore) BatchGet(_ context.Context, productIDs []string) (map[string]domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[string]domain.InventoryItem, len(productIDs))
	for _, id := range productIDs {
		if item, ok := s.items[id]; ok {
			result[id] = *item
		}
	}
	return result, nil
}

func (s *InventoryStore) Get(_ context.Context, productID string) (domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[productID]
	if !ok {
		return domain.InventoryItem{}, fmt.Errorf("%s: %w", productID, domain.ErrProductNotFound)
	}
	return *item, nil
}

func (s *InventoryStore) Reserve(_ context.Context, items []domain.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.popFailure(); err != nil {
		return err
	}

	// Check every precondition before touching anything so a late failure
	// cannot leave a partial reservation behind.
	for _, item := range items {
		record, ok := s.items[item.ProductID]
		if !ok || record.Quantity < item.Qty {
			return fmt.Errorf("product %s: %w", item.ProductID, domain.ErrReservationConflict)
		}
	}
	for _, item := range items {
		record := s.items[item.ProductID]
		record.Quantity -= item.Qty
		record.Reserved += item.Qty
	}
	return nil
}

func (s *InventoryStore) CommitReservation(_ context.Context, items []domain.OrderItem) error {
	return s.adjust(items, func(record *domain.InventoryItem, qty int) {
		record.Reserved -= qty
	})
}

func (s *InventoryStore) ReleaseReservation(_ context.Context, items []domain.OrderItem) error {
	return s.adjust(items, func(record *domain.InventoryItem, qty int) {
		record.Quantity += qty
		record.Reserved -= qty
	})
}

func (s *InventoryStore) adjust(items []domain.OrderItem, apply func(*domain.InventoryItem, int)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.popFailure(); err != nil {
		return err
	}

	for _, item := range items {
		record, ok := s.items[item.ProductID]
		if !ok || record.Reserved < item.Qty {
			return fmt.Errorf("reservation ledger out of sync for product %s", item.ProductID)
		}
	}
	for _, item := range items {
		apply(s.items[item.ProductID], item.Qty)
	}
	return nil
}

func (s *InventoryStore) Restock(_ context.Context, productID string, qty int, price float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.items[productID]
	if !ok {
		s.items[productID] = &domain.InventoryItem{ProductID: productID, Quantity: qty, Price: price}
		return nil
	}
	record.Quantity += qty
	record.Price = price
	return nil
}
