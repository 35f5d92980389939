// Package purchase orchestrates purchases: persisted line items, "in" ledger
// movements for every item, and the cost expense that mirrors the total.
package purchase

import (
	"time"

	"stockflow/internal/core/types"
	"stockflow/internal/domain/expense"
)

// Purchase is a supplier delivery with one or more items.
type Purchase struct {
	ID          int64             `db:"id" json:"id"`
	SupplierID  int64             `db:"supplier_id" json:"supplier_id"`
	TotalAmount types.Money       `db:"total_amount" json:"total_amount"`
	CreatedBy   int64             `db:"created_by" json:"created_by"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
	Items       []Item            `db:"-" json:"items"`
	Expenses    []expense.Expense `db:"-" json:"expenses,omitempty"`
}

// Item is one purchased product line.
type Item struct {
	ID         int64       `db:"id" json:"id"`
	PurchaseID int64       `db:"purchase_id" json:"purchase_id"`
	ProductID  int64       `db:"product_id" json:"product_id"`
	Quantity   int64       `db:"quantity" json:"quantity"`
	CostPrice  types.Money `db:"cost_price" json:"cost_price"`
}

// Subtotal is quantity x cost price.
func (i Item) Subtotal() types.Money {
	return types.LineTotal(i.Quantity, i.CostPrice)
}

// ItemInput is a requested purchase line.
type ItemInput struct {
	ProductID int64       `json:"product_id" validate:"gt=0"`
	Quantity  int64       `json:"quantity" validate:"gt=0,max=1000000000"`
	CostPrice types.Money `json:"cost_price" validate:"gte=0"`
}

// CreateInput is a new purchase.
type CreateInput struct {
	SupplierID int64           `json:"supplier_id" validate:"gt=0"`
	Items      []ItemInput     `json:"items" validate:"required,min=1,dive"`
	Expenses   []expense.Input `json:"expenses" validate:"omitempty,dive"`
}

// UpdateInput changes a purchase. Nil fields are left untouched;
// non-nil Items replace all existing items.
type UpdateInput struct {
	SupplierID *int64      `json:"supplier_id" validate:"omitempty,gt=0"`
	Items      []ItemInput `json:"items" validate:"omitempty,min=1,dive"`
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
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			CostPrice: in.CostPrice,
		})
	}
	return items
}

// ListFilter pages through purchases, newest first.
type ListFilter struct {
	SupplierID *int64
	Limit      uint64
	Offset     uint64
}
