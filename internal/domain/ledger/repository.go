package ledger

import (
	"context"

	"stockflow/internal/domain/product"
)

// ProductLocker gives the ledger exclusive, stock-writing access to products.
// Nothing outside this package calls SetStock.
type ProductLocker interface {
	// LockProduct reads the product row with a pessimistic lock (SELECT ... FOR UPDATE).
	// Returns NotFound when the product does not exist.
	LockProduct(ctx context.Context, productID int64) (*product.Product, error)

	// LockProducts locks all existing rows among ids in ascending id order.
	// Missing ids are simply absent from the result.
	LockProducts(ctx context.Context, ids []int64) (map[int64]*product.Product, error)

	// SetStock writes the new stock of a locked product.
	SetStock(ctx context.Context, productID, stock int64) error
}

// MovementStore persists ledger entries.
type MovementStore interface {
	Insert(ctx context.Context, m *Movement) error
	// Get returns NotFound when the movement does not exist.
	Get(ctx context.Context, id int64) (*Movement, error)
	GetForUpdate(ctx context.Context, id int64) (*Movement, error)
	// Update rewrites type, quantity, notes and reversed_by_id.
	Update(ctx context.Context, m *Movement) error
	List(ctx context.Context, filter Filter) ([]Movement, error)
}
