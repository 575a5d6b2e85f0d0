package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adityahazarika/flash-sale-flow/internal/domain"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("items serialization error: %w", err)
	}

	query := `
		INSERT INTO orders (order_id, user_id, items, total, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.db.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		itemsJSON,
		order.Total,
		int(order.Status),
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return classify("order create", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	query := `
		SELECT order_id, user_id, items, total, status, created_at, updated_at
		FROM orders
		WHERE order_id = $1
	`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, orderID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", orderID, domain.ErrOrderNotFound)
	}
	if err != nil {
		return nil, classify("order get", err)
	}
	return order, nil
}

// UpdateStatusFrom is the compare-and-swap gate on the order state
// machine. It reports false when the order was not in the expected status,
// which is how racing resolvers discover they lost.
func (r *OrderRepository) UpdateStatusFrom(ctx context.Context, orderID string, from, to domain.OrderStatus) (bool, error) {
	query := `
		UPDATE orders
		SET status = $3, updated_at = $4
		WHERE order_id = $1 AND status = $2
	`

	result, err := r.db.ExecContext(ctx, query, orderID, int(from), int(to), time.Now().UTC())
	if err != nil {
		return false, classify("order status update", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, classify("order status update", err)
	}
	return affected > 0, nil
}

// ListExpiredPending pages through orders stuck in Pending past the
// cutoff, keyset-paginated by order id. The partial index on
// (created_at) WHERE status = 1 keeps discovery off a full table scan.
func (r *OrderRepository) ListExpiredPending(ctx context.Context, cutoff time.Time, afterID string, limit int) ([]domain.Order, string, error) {
	query := `
		SELECT order_id, user_id, items, total, status, created_at, updated_at
		FROM orders
		WHERE status = $1 AND created_at < $2 AND order_id > $3
		ORDER BY order_id
		LIMIT $4
	`

	rows, err := r.db.QueryContext(ctx, query, int(domain.StatusPending), cutoff, afterID, limit)
	if err != nil {
		return nil, "", classify("expired order scan", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, "", fmt.Errorf("order scan error: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, "", classify("expired order scan", err)
	}

	nextCursor := ""
	if limit > 0 && len(orders) == limit {
		nextCursor = orders[len(orders)-1].ID
	}
	return orders, nextCursor, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	var itemsJSON []byte
	var status int

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&itemsJSON,
		&order.Total,
		&status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.Status = domain.OrderStatus(status)
	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("items deserialization error: %w", err)
	}
	return order, nil
}
