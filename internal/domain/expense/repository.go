package expense

import (
	"context"

	"stockflow/internal/core/types"
)

// Repository persists expenses and their categories.
type Repository interface {
	// EnsureCategory returns the id of the named category, creating it on first use.
	EnsureCategory(ctx context.Context, name string) (int64, error)
	// ExistingCategories returns the subset of ids that exist.
	ExistingCategories(ctx context.Context, ids []int64) (map[int64]bool, error)

	Create(ctx context.Context, e *Expense) error
	// FindAuto returns the purchase's automatic expense or NotFound.
	FindAuto(ctx context.Context, purchaseID int64) (*Expense, error)
	UpdateAmount(ctx context.Context, id int64, amount types.Money) error
	ListByPurchase(ctx context.Context, purchaseID int64) ([]Expense, error)
}
