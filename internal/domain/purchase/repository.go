package purchase

import "context"

// Repository persists purchases and their items.
type Repository interface {
	// Create inserts the purchase row and sets ID and timestamps.
	Create(ctx context.Context, p *Purchase) error
	// CreateItems inserts items for purchaseID and sets their IDs.
	CreateItems(ctx context.Context, purchaseID int64, items []Item) error
	// Get loads a purchase with its items, or NotFound.
	Get(ctx context.Context, id int64) (*Purchase, error)
	// GetForUpdate is Get with the purchase row locked.
	GetForUpdate(ctx context.Context, id int64) (*Purchase, error)
	// Update rewrites supplier and total.
	Update(ctx context.Context, p *Purchase) error
	DeleteItems(ctx context.Context, purchaseID int64) error
	// Delete removes the purchase; items and linked expenses cascade.
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ListFilter) ([]Purchase, error)
}
