package dto

import (
	"stockflow/internal/core/types"
	"stockflow/internal/domain/sale"
)

// SaleItemRequest is one line of a sale request.
type SaleItemRequest struct {
	ProductID    int64       `json:"product_id"`
	Quantity     int64       `json:"quantity"`
	SellingPrice types.Money `json:"selling_price"`
}

// CreateSaleRequest represents a request to create a sale.
type CreateSaleRequest struct {
	CustomerName string            `json:"customer_name"`
	Items        []SaleItemRequest `json:"items"`
}

// ToInput converts the request to the service input.
func (r *CreateSaleRequest) ToInput() sale.CreateInput {
	return sale.CreateInput{
		CustomerName: r.CustomerName,
		Items:        saleItems(r.Items),
	}
}

// UpdateSaleRequest represents a partial sale update.
type UpdateSaleRequest struct {
	CustomerName *string           `json:"customer_name,omitempty"`
	Items        []SaleItemRequest `json:"items,omitempty"`
}

// ToInput converts the request to the service input.
func (r *UpdateSaleRequest) ToInput() sale.UpdateInput {
	in := sale.UpdateInput{CustomerName: r.CustomerName}
	if r.Items != nil {
		in.Items = saleItems(r.Items)
	}
	return in
}

func saleItems(lines []SaleItemRequest) []sale.ItemInput {
	items := make([]sale.ItemInput, 0, len(lines))
	for _, l := range lines {
		items = append(items, sale.ItemInput{
			ProductID:    l.ProductID,
			Quantity:     l.Quantity,
			SellingPrice: l.SellingPrice,
		})
	}
	return items
}
