package memory

import (
	"context"
	"fmt"
	"slices"

	"stockflow/internal/core/apperror"
	"stockflow/internal/domain/ledger"
	"stockflow/internal/domain/product"
)

var (
	_ product.Repository   = (*ProductRepo)(nil)
	_ ledger.ProductLocker = (*ProductRepo)(nil)
)

// ProductRepo implements product.Repository and ledger.ProductLocker.
type ProductRepo struct {
	s *Store
}

// Get implements product.Repository.
func (r *ProductRepo) Get(_ context.Context, id int64) (*product.Product, error) {
	var out *product.Product
	err := r.s.read(func(d *state) error {
		p, ok := d.products[id]
		if !ok {
			return apperror.NewNotFound("product", id)
		}
		out = &p
		return nil
	})
	return out, err
}

// Exists implements product.Repository.
func (r *ProductRepo) Exists(_ context.Context, id int64) (bool, error) {
	var ok bool
	err := r.s.read(func(d *state) error {
		_, ok = d.products[id]
		return nil
	})
	return ok, err
}

// Create implements product.Repository.
func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	return r.s.write(ctx, "products.Create", func(d *state) error {
		for _, existing := range d.products {
			if existing.SKU == p.SKU {
				return apperror.NewDuplicate("product", "sku", p.SKU)
			}
		}
		now := r.s.now()
		p.ID = d.nextID()
		p.CreatedAt, p.UpdatedAt = now, now
		d.products[p.ID] = *p
		return nil
	})
}

// LockProduct implements ledger.ProductLocker. Transactions are already serialized,
// so a lock is a plain read.
func (r *ProductRepo) LockProduct(ctx context.Context, id int64) (*product.Product, error) {
	return r.Get(ctx, id)
}

// LockProducts implements ledger.ProductLocker.
func (r *ProductRepo) LockProducts(_ context.Context, ids []int64) (map[int64]*product.Product, error) {
	out := make(map[int64]*product.Product, len(ids))
	err := r.s.read(func(d *state) error {
		for _, id := range ids {
			if p, ok := d.products[id]; ok {
				out[id] = &p
			}
		}
		return nil
	})
	return out, err
}

// SetStock implements ledger.ProductLocker.
func (r *ProductRepo) SetStock(ctx context.Context, id, stock int64) error {
	return r.s.write(ctx, "products.SetStock", func(d *state) error {
		p, ok := d.products[id]
		if !ok {
			return apperror.NewNotFound("product", id)
		}
		if stock < 0 {
			return fmt.Errorf("product %d: stock check constraint violated", id)
		}
		p.Stock = stock
		p.UpdatedAt = r.s.now()
		d.products[id] = p
		return nil
	})
}

// All returns every product ordered by id.
func (r *ProductRepo) All() []product.Product {
	var out []product.Product
	_ = r.s.read(func(d *state) error {
		for _, p := range d.products {
			out = append(out, p)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b product.Product) int { return cmpInt64(a.ID, b.ID) })
	return out
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
