package product

import "context"

// Repository reads and registers products.
type Repository interface {
	// Get returns NotFound when the product does not exist.
	Get(ctx context.Context, id int64) (*Product, error)

	Exists(ctx context.Context, id int64) (bool, error)

	// Create inserts p with stock equal to its initial stock and sets ID and timestamps.
	Create(ctx context.Context, p *Product) error
}
