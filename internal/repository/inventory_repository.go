package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/adityahazarika/flash-sale-flow/internal/domain"
	"github.com/lib/pq"
)

type InventoryRepository struct {
	db *sql.DB
}

func NewInventoryRepository(db *sql.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) BatchGet(ctx context.Context, productIDs []string) (map[string]domain.InventoryItem, error) {
	query := `
		SELECT product_id, quantity, reserved, price
		FROM inventory
		WHERE product_id = ANY($1)
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(productIDs))
	if err != nil {
		return nil, classify("inventory batch get", err)
	}
	defer rows.Close()

	items := make(map[string]domain.InventoryItem, len(productIDs))
	for rows.Next() {
		var item domain.InventoryItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.Reserved, &item.Price); err != nil {
			return nil, fmt.Errorf("inventory scan error: %w", err)
		}
		items[item.ProductID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, classify("inventory batch get", err)
	}

	return items, nil
}

func (r *InventoryRepository) Get(ctx context.Context, productID string) (domain.InventoryItem, error) {
	query := `
		SELECT product_id, quantity, reserved, price
		FROM inventory
		WHERE product_id = $1
	`

	var item domain.InventoryItem
	err := r.db.QueryRowContext(ctx, query, productID).
		Scan(&item.ProductID, &item.Quantity, &item.Reserved, &item.Price)
	if err == sql.ErrNoRows {
		return domain.InventoryItem{}, fmt.Errorf("%s: %w", productID, domain.ErrProductNotFound)
	}
	if err != nil {
		return domain.InventoryItem{}, classify("inventory get", err)
	}

	return item, nil
}

// Reserve moves units from quantity to reserved for every item in one
// all-or-nothing transaction. Each update carries its own quantity >= qty
// precondition; a single failed precondition rolls back the whole
// reservation with nothing mutated.
func (r *InventoryRepository) Reserve(ctx context.Context, items []domain.OrderItem) error {
	return r.transact(ctx, "inventory reserve", items, `
		UPDATE inventory
		SET quantity = quantity - $2, reserved = reserved + $2
		WHERE product_id = $1 AND quantity >= $2
	`, domain.ErrReservationConflict)
}

// CommitReservation releases held units on payment success. Quantity was
// already deducted at reservation time, only the hold is dropped.
func (r *InventoryRepository) CommitReservation(ctx context.Context, items []domain.OrderItem) error {
	return r.transact(ctx, "inventory commit", items, `
		UPDATE inventory
		SET reserved = reserved - $2
		WHERE product_id = $1 AND reserved >= $2
	`, nil)
}

// ReleaseReservation fully reverses a reservation on payment failure or
// timeout.
func (r *InventoryRepository) ReleaseReservation(ctx context.Context, items []domain.OrderItem) error {
	return r.transact(ctx, "inventory release", items, `
		UPDATE inventory
		SET quantity = quantity + $2, reserved = reserved - $2
		WHERE product_id = $1 AND reserved >= $2
	`, nil)
}

func (r *InventoryRepository) transact(ctx context.Context, op string, items []domain.OrderItem, query string, conflictErr error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(op, err)
	}
	defer tx.Rollback()

	for _, item := range items {
		result, err := tx.ExecContext(ctx, query, item.ProductID, item.Qty)
		if err != nil {
			return classify(op, err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return classify(op, err)
		}
		if affected == 0 {
			if conflictErr != nil {
				return fmt.Errorf("product %s: %w", item.ProductID, conflictErr)
			}
			// A failed release/commit precondition means the reservation
			// ledger no longer covers this order's snapshot.
			return fmt.Errorf("%s: reservation ledger out of sync for product %s", op, item.ProductID)
		}
	}

	if err := tx.Commit(); err != nil {
		return classify(op, err)
	}
	return nil
}

// Restock adds sellable units and refreshes the unit price; it is the
// only path that changes a product's quantity + reserved total.
func (r *InventoryRepository) Restock(ctx context.Context, productID string, qty int, price float64) error {
	query := `
		INSERT INTO inventory (product_id, quantity, reserved, price)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (product_id)
		DO UPDATE SET quantity = inventory.quantity + $2, price = $3
	`

	if _, err := r.db.ExecContext(ctx, query, productID, qty, price); err != nil {
		return classify("inventory restock", err)
	}
	return nil
}
