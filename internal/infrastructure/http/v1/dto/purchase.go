package dto

import (
	"stockflow/internal/core/types"
	"stockflow/internal/domain/expense"
	"stockflow/internal/domain/purchase"
)

// PurchaseItemRequest is one line of a purchase request.
type PurchaseItemRequest struct {
	ProductID int64       `json:"product_id"`
	Quantity  int64       `json:"quantity"`
	CostPrice types.Money `json:"cost_price"`
}

// ExpenseRequest is an extra expense recorded with a purchase.
type ExpenseRequest struct {
	CategoryID int64       `json:"expense_category_id"`
	Amount     types.Money `json:"amount"`
	Date       string      `json:"date"`
	Notes      string      `json:"notes"`
}

// CreatePurchaseRequest represents a request to create a purchase.
type CreatePurchaseRequest struct {
	SupplierID int64                 `json:"supplier_id"`
	Items      []PurchaseItemRequest `json:"items"`
	Expenses   []ExpenseRequest      `json:"expenses,omitempty"`
}

// ToInput converts the request to the service input.
func (r *CreatePurchaseRequest) ToInput() purchase.CreateInput {
	in := purchase.CreateInput{
		SupplierID: r.SupplierID,
		Items:      purchaseItems(r.Items),
	}
	for _, e := range r.Expenses {
		in.Expenses = append(in.Expenses, expense.Input{
			CategoryID: e.CategoryID,
			Amount:     e.Amount,
			Date:       e.Date,
			Notes:      e.Notes,
		})
	}
	return in
}

// UpdatePurchaseRequest represents a partial purchase update. A present items
// array replaces all items.
type UpdatePurchaseRequest struct {
	SupplierID *int64                `json:"supplier_id,omitempty"`
	Items      []PurchaseItemRequest `json:"items,omitempty"`
}

// ToInput converts the request to the service input.
func (r *UpdatePurchaseRequest) ToInput() purchase.UpdateInput {
	in := purchase.UpdateInput{SupplierID: r.SupplierID}
	if r.Items != nil {
		in.Items = purchaseItems(r.Items)
	}
	return in
}

func purchaseItems(lines []PurchaseItemRequest) []purchase.ItemInput {
	items := make([]purchase.ItemInput, 0, len(lines))
	for _, l := range lines {
		items = append(items, purchase.ItemInput{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			CostPrice: l.CostPrice,
		})
	}
	return items
}
