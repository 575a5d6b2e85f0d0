package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound is returned for an unknown order id.
	ErrOrderNotFound = errors.New("order not found")

	// ErrAlreadyResolved signals the idempotency short-circuit: the order
	// already left Pending, nothing was mutated. Callers treat it as a
	// successful no-op, not a failure.
	ErrAlreadyResolved = errors.New("order already resolved")

	// ErrReservationConflict means the conditional reservation lost a race
	// to a concurrent update; no item was mutated and the whole
	// reservation may be retried.
	ErrReservationConflict = errors.New("reservation conflict")

	// ErrProductNotFound is returned when a requested product has no
	// inventory record at all.
	ErrProductNotFound = errors.New("product not found")
)

// ValidationError marks malformed input. It is never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// InsufficientStockError is a business outcome, not a system failure.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("product %s is out of stock: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// TransientStoreError wraps throttling/availability-class store failures
// that are worth retrying with backoff.
type TransientStoreError struct {
	Op  string
	Err error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("transient store error during %s: %v", e.Op, e.Err)
}

func (e *TransientStoreError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err may succeed on a later attempt.
func IsTransient(err error) bool {
	var t *TransientStoreError
	return errors.As(err, &t)
}
