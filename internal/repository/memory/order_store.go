package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/adityahazarika/flash-sale-flow/internal/domain"
)

type OrderStore struct {
	mu       sync.Mutex
	orders   map[string]*domain.Order
	failures []error
}

func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[string]*domain.Order)}
}

// InjectFailure makes the next n mutating calls fail with err.
func (s *OrderStore) InjectFailure(err error, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.failures = append(s.failures, err)
	}
}

func (s *OrderStore) popFailure() error {
	if len(s.failures) == 0 {
		return nil
	}
	err := s.failures[0]
	s.failures = s.failures[1:]
	return err
}

func (s *OrderStore) Create(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.popFailure(); err != nil {
		return err
	}
	if _, exists := s.orders[order.ID]; exists {
		return fmt.Errorf("order %s already exists", order.ID)
	}

	copied := cloneOrder(order)
	s.orders[order.ID] = copied
	return nil
}

func (s *OrderStore) Get(_ context.Context, orderID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", orderID, domain.ErrOrderNotFound)
	}
	return cloneOrder(order), nil
}

func (s *OrderStore) UpdateStatusFrom(_ context.Context, orderID string, from, to domain.OrderStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.popFailure(); err != nil {
		return false, err
	}

	order, ok := s.orders[orderID]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	order.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *OrderStore) ListExpiredPending(_ context.Context, cutoff time.Time, afterID string, limit int) ([]domain.Order, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.orders))
	for id, order := range s.orders {
		if order.Status == domain.StatusPending && order.CreatedAt.Before(cutoff) && id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var page []domain.Order
	for _, id := range ids {
		if len(page) == limit {
			break
		}
		page = append(page, *cloneOrder(s.orders[id]))
	}

	nextCursor := ""
	if limit > 0 && len(page) == limit && len(ids) > limit {
		nextCursor = page[len(page)-1].ID
	}
	return page, nextCursor, nil
}

func cloneOrder(order *domain.Order) *domain.Order {
	copied := *order
	copied.Items = append([]domain.OrderItem(nil), order.Items...)
	return &copied
}
