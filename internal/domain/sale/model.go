// Package sale orchestrates sales: availability checks, persisted line items
// and "out" ledger movements. A sale never drives stock negative.
package sale

import (
	"math"
	"time"

	"stockflow/internal/core/types"
)

// Sale is a customer order with one or more items.
type Sale struct {
	ID           int64       `db:"id" json:"id"`
	CustomerName string      `db:"customer_name" json:"customer_name"`
	TotalAmount  types.Money `db:"total_amount" json:"total_amount"`
	CreatedBy    int64       `db:"created_by" json:"created_by"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
	Items        []Item      `db:"-" json:"items"`
}

// Item is one sold product line.
type Item struct {
	ID           int64       `db:"id" json:"id"`
	SaleID       int64       `db:"sale_id" json:"sale_id"`
	ProductID    int64       `db:"product_id" json:"product_id"`
	Quantity     int64       `db:"quantity" json:"quantity"`
	SellingPrice types.Money `db:"selling_price" json:"selling_price"`
}

// Subtotal is quantity x selling price.
func (i Item) Subtotal() types.Money {
	return types.LineTotal(i.Quantity, i.SellingPrice)
}

// ItemInput is a requested sale line.
type ItemInput struct {
	ProductID    int64       `json:"product_id" validate:"gt=0"`
	Quantity     int64       `json:"quantity" validate:"gt=0,max=1000000000"`
	SellingPrice types.Money `json:"selling_price" validate:"gte=0"`
}

// CreateInput is a new sale.
type CreateInput struct {
	CustomerName string      `json:"customer_name" validate:"notblank,max=255"`
	Items        []ItemInput `json:"items" validate:"required,min=1,dive"`
}

// UpdateInput changes a sale. Nil fields are left untouched;
// non-nil Items replace all existing items.
type UpdateInput struct {
	CustomerName *string     `json:"customer_name" validate:"omitempty,notblank,max=255"`
	Items        []ItemInput `json:"items" validate:"omitempty,min=1,dive"`
}

// ListFilter pages through sales, newest first.
type ListFilter struct {
	Limit  uint64
	Offset uint64
}

// Total sums item subtotals.
func Total(items []Item) types.Money {
	total := types.Zero()
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func toItems(inputs []ItemInput) []Item {
	items := make([]Item, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, Item{
			ProductID:    in.ProductID,
			Quantity:     in.Quantity,
			SellingPrice: in.SellingPrice,
		})
	}
	return items
}

// demand sums requested quantities per product; a product may appear on several lines.
func demand(items []ItemInput) map[int64]int64 {
	out := make(map[int64]int64, len(items))
	for _, it := range items {
		sum := out[it.ProductID] + it.Quantity
		if sum < out[it.ProductID] {
			sum = math.MaxInt64
		}
		out[it.ProductID] = sum
	}
	return out
}
