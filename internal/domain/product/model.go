// Package product exposes read access to inventory items for the ledger workflows.
// Stock is never written here: only the ledger changes it.
package product

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"stockflow/internal/core/types"
)

// Product is an inventory item.
type Product struct {
	ID           int64       `db:"id" json:"id"`
	Name         string      `db:"name" json:"name"`
	SKU          string      `db:"sku" json:"sku"`
	CategoryID   *int64      `db:"category_id" json:"category_id,omitempty"`
	CostPrice    types.Money `db:"cost_price" json:"cost_price"`
	SellingPrice types.Money `db:"selling_price" json:"selling_price"`
	Stock        int64       `db:"stock" json:"stock"`
	InitialStock int64       `db:"initial_stock" json:"initial_stock"`
	IsActive     bool        `db:"is_active" json:"is_active"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

// CreateInput registers a product with its opening stock.
type CreateInput struct {
	Name         string      `json:"name" validate:"notblank,max=255"`
	SKU          string      `json:"sku" validate:"max=64"`
	CategoryID   *int64      `json:"category_id" validate:"omitempty,gt=0"`
	CostPrice    types.Money `json:"cost_price" validate:"gte=0"`
	SellingPrice types.Money `json:"selling_price" validate:"gte=0"`
	InitialStock int64       `json:"initial_stock" validate:"gte=0,max=1000000000"`
}

// GenerateSKU returns a random SKU for products created without one.
func GenerateSKU() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "SKU-" + strings.ToUpper(raw[:8])
}
