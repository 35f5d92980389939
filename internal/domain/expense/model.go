// Package expense records cost entries, including the automatic cost entry
// that mirrors every purchase total.
package expense

import (
	"time"

	"stockflow/internal/core/types"
)

// AutoPurchaseCategory is the category of the expense generated for each purchase.
const AutoPurchaseCategory = "Bale Purchase"

// DateLayout is the wire format of expense dates.
const DateLayout = "2006-01-02"

// Expense is a cost entry, optionally linked to a purchase.
type Expense struct {
	ID         int64       `db:"id" json:"id"`
	CategoryID int64       `db:"expense_category_id" json:"expense_category_id"`
	Amount     types.Money `db:"amount" json:"amount"`
	Date       time.Time   `db:"date" json:"date"`
	Notes      string      `db:"notes" json:"notes"`
	PurchaseID *int64      `db:"purchase_id" json:"purchase_id,omitempty"`
	IsAuto     bool        `db:"is_auto" json:"is_auto"`
	CreatedBy  int64       `db:"created_by" json:"created_by"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updated_at"`
}

// Category groups expenses.
type Category struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Input is an extra expense attached to a purchase. It has no stock effect.
type Input struct {
	CategoryID int64       `json:"expense_category_id" validate:"gt=0"`
	Amount     types.Money `json:"amount" validate:"gte=0"`
	Date       string      `json:"date" validate:"required,datetime=2006-01-02"`
	Notes      string      `json:"notes" validate:"max=1000"`
}
