package sale

import "context"

// Repository persists sales and their items.
type Repository interface {
	Create(ctx context.Context, s *Sale) error
	CreateItems(ctx context.Context, saleID int64, items []Item) error
	// Get loads a sale with its items, or NotFound.
	Get(ctx context.Context, id int64) (*Sale, error)
	GetForUpdate(ctx context.Context, id int64) (*Sale, error)
	Update(ctx context.Context, s *Sale) error
	DeleteItems(ctx context.Context, saleID int64) error
	// Delete removes the sale; items cascade.
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ListFilter) ([]Sale, error)
}
