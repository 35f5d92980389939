package dto

import (
	"stockflow/internal/domain/adjustment"
	"stockflow/internal/domain/ledger"
	"stockflow/internal/domain/product"
	"stockflow/internal/domain/reconcile"
)

// CreateStockMovementRequest is a manual stock correction.
type CreateStockMovementRequest struct {
	ProductID int64               `json:"product_id"`
	Type      ledger.MovementType `json:"type"`
	Quantity  int64               `json:"quantity"`
	Reason    ledger.Reason       `json:"reason"`
	Notes     string              `json:"notes"`
}

// ToInput converts the request to the service input.
func (r *CreateStockMovementRequest) ToInput() adjustment.CreateInput {
	return adjustment.CreateInput{
		ProductID: r.ProductID,
		Type:      r.Type,
		Quantity:  r.Quantity,
		Reason:    r.Reason,
		Notes:     r.Notes,
	}
}

// UpdateStockMovementRequest edits a manual correction.
type UpdateStockMovementRequest struct {
	Type     *ledger.MovementType `json:"type,omitempty"`
	Quantity *int64               `json:"quantity,omitempty"`
	Reason   *ledger.Reason       `json:"reason,omitempty"`
	Notes    *string              `json:"notes,omitempty"`
}

// ToInput converts the request to the service input.
func (r *UpdateStockMovementRequest) ToInput() adjustment.UpdateInput {
	return adjustment.UpdateInput{
		Type:     r.Type,
		Quantity: r.Quantity,
		Reason:   r.Reason,
		Notes:    r.Notes,
	}
}

// MovementHistoryQuery filters GET /stock-movements.
type MovementHistoryQuery struct {
	PageQuery
	ProductID  *int64  `form:"product_id"`
	SourceType *string `form:"source_type"`
	SourceID   *int64  `form:"source_id"`
	ActiveOnly bool    `form:"active_only"`
}

// ToFilter converts the query to a ledger filter.
func (q *MovementHistoryQuery) ToFilter() ledger.Filter {
	f := ledger.Filter{
		ProductID:  q.ProductID,
		SourceID:   q.SourceID,
		ActiveOnly: q.ActiveOnly,
		Limit:      q.Limit,
		Offset:     q.Offset,
	}
	if q.SourceType != nil {
		st := ledger.SourceType(*q.SourceType)
		f.SourceType = &st
	}
	return f
}

// ProductStockResponse is the current stock of a product with its ledger check.
type ProductStockResponse struct {
	ProductID      int64            `json:"product_id"`
	Name           string           `json:"name"`
	SKU            string           `json:"sku"`
	Stock          int64            `json:"stock"`
	InitialStock   int64            `json:"initial_stock"`
	Consistent     bool             `json:"consistent"`
	Reconciliation reconcile.Report `json:"reconciliation"`
}

// NewProductStockResponse builds the response from a product and its report.
func NewProductStockResponse(p *product.Product, r reconcile.Report) ProductStockResponse {
	return ProductStockResponse{
		ProductID:      p.ID,
		Name:           p.Name,
		SKU:            p.SKU,
		Stock:          p.Stock,
		InitialStock:   p.InitialStock,
		Consistent:     r.Consistent(),
		Reconciliation: r,
	}
}
