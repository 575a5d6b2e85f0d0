package repository

import (
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/adityahazarika/flash-sale-flow/internal/domain"
	"github.com/lib/pq"
)

// classify wraps throttling/availability-class Postgres failures so the
// retry policy can tell them apart from everything else.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isTransient(err) {
		return &domain.TransientStoreError{Op: op, Err: err}
	}
	return err
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}

	code := string(pqErr.Code)
	switch code {
	case "40001", // serialization_failure
		"40P01", // deadlock_detected
		"57P03": // cannot_connect_now
		return true
	}
	// insufficient resources / connection exceptions
	return strings.HasPrefix(code, "53") || strings.HasPrefix(code, "08")
}
