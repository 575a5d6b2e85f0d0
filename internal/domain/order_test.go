package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestNewOrder(t *testing.T) {
	items := []OrderItem{{ProductID: "PROD-1", Qty: 2, Price: 9.5}}
	order := NewOrder("USER-1", items, 19.0)

	if !strings.HasPrefix(order.ID, "ORD-") {
		t.Errorf("expected ORD- prefixed id, got %q", order.ID)
	}
	if order.Status != StatusPending {
		t.Errorf("expected new order to be pending, got %v", order.Status)
	}
	if order.Total != 19.0 {
		t.Errorf("expected total 19.0, got %v", order.Total)
	}
	if order.CreatedAt.IsZero() || !order.CreatedAt.Equal(order.UpdatedAt) {
		t.Errorf("expected created and updated timestamps to match, got %v and %v",
			order.CreatedAt, order.UpdatedAt)
	}
}

func TestValidateItems(t *testing.T) {
	tests := []struct {
		name    string
		items   []OrderItem
		wantErr bool
	}{
		{"valid single item", []OrderItem{{ProductID: "PROD-1", Qty: 1}}, false},
		{"valid multiple items", []OrderItem{{ProductID: "PROD-1", Qty: 1}, {ProductID: "PROD-2", Qty: 3}}, false},
		{"empty order", nil, true},
		{"empty product id", []OrderItem{{ProductID: "", Qty: 1}}, true},
		{"zero quantity", []OrderItem{{ProductID: "PROD-1", Qty: 0}}, true},
		{"negative quantity", []OrderItem{{ProductID: "PROD-1", Qty: -2}}, true},
		{"duplicate product", []OrderItem{{ProductID: "PROD-1", Qty: 1}, {ProductID: "PROD-1", Qty: 2}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateItems(tt.items)
			if tt.wantErr && err == nil {
				t.Fatal("expected a validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr {
				var validationErr *ValidationError
				if !errors.As(err, &validationErr) {
					t.Fatalf("expected *ValidationError, got %T", err)
				}
			}
		})
	}
}

func TestOrderStatusString(t *testing.T) {
	tests := []struct {
		status OrderStatus
		want   string
	}{
		{StatusPending, "pending"},
		{StatusProcessing, "processing"},
		{StatusRejected, "rejected"},
		{StatusFailed, "failed"},
		{OrderStatus(3), "unknown(3)"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("OrderStatus(%d).String() = %q, want %q", int(tt.status), got, tt.want)
		}
	}
}

func TestOrderStatusIsTerminal(t *testing.T) {
	if StatusPending.IsTerminal() {
		t.Error("pending must not be terminal")
	}
	for _, status := range []OrderStatus{StatusProcessing, StatusRejected, StatusFailed} {
		if !status.IsTerminal() {
			t.Errorf("%v must be terminal", status)
		}
	}
}

func TestIsTransient(t *testing.T) {
	base := errors.New("connection reset")
	transient := &TransientStoreError{Op: "reserve", Err: base}

	if !IsTransient(transient) {
		t.Error("expected wrapped transient error to be transient")
	}
	if !IsTransient(errors.Join(errors.New("outer"), transient)) {
		t.Error("expected nested transient error to be transient")
	}
	if IsTransient(base) {
		t.Error("plain error must not be transient")
	}
	if IsTransient(&ValidationError{Reason: "bad input"}) {
		t.Error("validation error must not be transient")
	}
	if !errors.Is(transient, base) {
		t.Error("expected Unwrap to expose the underlying error")
	}
}

func TestCanReserve(t *testing.T) {
	item := InventoryItem{ProductID: "PROD-1", Quantity: 5, Reserved: 2}
	if !item.CanReserve(5) {
		t.Error("expected reservation up to available quantity to pass")
	}
	if item.CanReserve(6) {
		t.Error("expected reservation above available quantity to fail")
	}
}
