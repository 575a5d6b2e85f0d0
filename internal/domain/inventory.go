package domain

// InventoryItem is the per-product stock record. Order processing never
// creates or destroys units, it only moves them between Quantity and
// Reserved; both counters must stay non-negative.
type InventoryItem struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Reserved  int     `json:"reserved"`
	Price     float64 `json:"price"`
}

func (i InventoryItem) CanReserve(qty int) bool {
	return i.Quantity >= qty
}
