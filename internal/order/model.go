package order

import (
	"errors"
	"time"
)

var ErrNoItems = errors.New("order must contain at least one item")

// LineItem snapshots the unit price taken from inventory at order-creation
// time; it is never re-read later. Items are owned by their order.
type LineItem struct {
	ID        int64   `json:"id,omitempty"`
	ProductID int64   `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Subtotal  float64 `json:"subtotal"`
}

type Order struct {
	ID        int64      `json:"id"`
	CreatedAt time.Time  `json:"createdAt"`
	Status    Status     `json:"status"`
	Items     []LineItem `json:"items"`
	Total     float64    `json:"total"`
}

// CalculateTotal recomputes Total from the line subtotals. The total is never
// stored independently of its inputs; call this whenever items change.
func (o *Order) CalculateTotal() error {
	if len(o.Items) == 0 {
		return ErrNoItems
	}

	var total float64
	for _, it := range o.Items {
		total += it.Subtotal
	}
	o.Total = total
	return nil
}
