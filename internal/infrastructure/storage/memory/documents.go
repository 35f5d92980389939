package memory

import (
	"context"
	"slices"

	"stockflow/internal/core/apperror"
	"stockflow/internal/domain/purchase"
	"stockflow/internal/domain/sale"
)

var (
	_ purchase.Repository = (*PurchaseRepo)(nil)
	_ sale.Repository     = (*SaleRepo)(nil)
)

// PurchaseRepo implements purchase.Repository.
type PurchaseRepo struct {
	s *Store
}

func (r *PurchaseRepo) Create(ctx context.Context, p *purchase.Purchase) error {
	return r.s.write(ctx, "purchases.Create", func(d *state) error {
		now := r.s.now()
		p.ID = d.nextID()
		p.CreatedAt, p.UpdatedAt = now, now
		stored := *p
		stored.Items, stored.Expenses = nil, nil
		d.purchases[p.ID] = stored
		return nil
	})
}

func (r *PurchaseRepo) CreateItems(ctx context.Context, purchaseID int64, items []purchase.Item) error {
	return r.s.write(ctx, "purchases.CreateItems", func(d *state) error {
		if _, ok := d.purchases[purchaseID]; !ok {
			return apperror.NewNotFound("purchase", purchaseID)
		}
		for i := range items {
			items[i].ID = d.nextID()
			items[i].PurchaseID = purchaseID
			d.purchaseItems[items[i].ID] = items[i]
		}
		return nil
	})
}

func (r *PurchaseRepo) Get(_ context.Context, id int64) (*purchase.Purchase, error) {
	var out *purchase.Purchase
	err := r.s.read(func(d *state) error {
		p, ok := d.purchases[id]
		if !ok {
			return apperror.NewNotFound("purchase", id)
		}
		p.Items = purchaseItems(d, id)
		out = &p
		return nil
	})
	return out, err
}

func (r *PurchaseRepo) GetForUpdate(ctx context.Context, id int64) (*purchase.Purchase, error) {
	return r.Get(ctx, id)
}

func (r *PurchaseRepo) Update(ctx context.Context, p *purchase.Purchase) error {
	return r.s.write(ctx, "purchases.Update", func(d *state) error {
		existing, ok := d.purchases[p.ID]
		if !ok {
			return apperror.NewNotFound("purchase", p.ID)
		}
		existing.SupplierID = p.SupplierID
		existing.TotalAmount = p.TotalAmount
		existing.UpdatedAt = r.s.now()
		p.UpdatedAt = existing.UpdatedAt
		d.purchases[p.ID] = existing
		return nil
	})
}

func (r *PurchaseRepo) DeleteItems(ctx context.Context, purchaseID int64) error {
	return r.s.write(ctx, "purchases.DeleteItems", func(d *state) error {
		for id, it := range d.purchaseItems {
			if it.PurchaseID == purchaseID {
				delete(d.purchaseItems, id)
			}
		}
		return nil
	})
}

// Delete removes the purchase with its items and expenses.
func (r *PurchaseRepo) Delete(ctx context.Context, id int64) error {
	return r.s.write(ctx, "purchases.Delete", func(d *state) error {
		if _, ok := d.purchases[id]; !ok {
			return apperror.NewNotFound("purchase", id)
		}
		delete(d.purchases, id)
		for itemID, it := range d.purchaseItems {
			if it.PurchaseID == id {
				delete(d.purchaseItems, itemID)
			}
		}
		for expenseID, e := range d.expenses {
			if e.PurchaseID != nil && *e.PurchaseID == id {
				delete(d.expenses, expenseID)
			}
		}
		return nil
	})
}

func (r *PurchaseRepo) List(_ context.Context, f purchase.ListFilter) ([]purchase.Purchase, error) {
	var out []purchase.Purchase
	err := r.s.read(func(d *state) error {
		for _, p := range d.purchases {
			if f.SupplierID != nil && p.SupplierID != *f.SupplierID {
				continue
			}
			p.Items = purchaseItems(d, p.ID)
			out = append(out, p)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b purchase.Purchase) int { return cmpInt64(b.ID, a.ID) })
	return page(out, f.Limit, f.Offset), err
}

func purchaseItems(d *state, purchaseID int64) []purchase.Item {
	var items []purchase.Item
	for _, it := range d.purchaseItems {
		if it.PurchaseID == purchaseID {
			items = append(items, it)
		}
	}
	slices.SortFunc(items, func(a, b purchase.Item) int { return cmpInt64(a.ID, b.ID) })
	return items
}

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	s *Store
}

func (r *SaleRepo) Create(ctx context.Context, sl *sale.Sale) error {
	return r.s.write(ctx, "sales.Create", func(d *state) error {
		now := r.s.now()
		sl.ID = d.nextID()
		sl.CreatedAt, sl.UpdatedAt = now, now
		stored := *sl
		stored.Items = nil
		d.sales[sl.ID] = stored
		return nil
	})
}

func (r *SaleRepo) CreateItems(ctx context.Context, saleID int64, items []sale.Item) error {
	return r.s.write(ctx, "sales.CreateItems", func(d *state) error {
		if _, ok := d.sales[saleID]; !ok {
			return apperror.NewNotFound("sale", saleID)
		}
		for i := range items {
			items[i].ID = d.nextID()
			items[i].SaleID = saleID
			d.saleItems[items[i].ID] = items[i]
		}
		return nil
	})
}

func (r *SaleRepo) Get(_ context.Context, id int64) (*sale.Sale, error) {
	var out *sale.Sale
	err := r.s.read(func(d *state) error {
		sl, ok := d.sales[id]
		if !ok {
			return apperror.NewNotFound("sale", id)
		}
		sl.Items = saleItems(d, id)
		out = &sl
		return nil
	})
	return out, err
}

func (r *SaleRepo) GetForUpdate(ctx context.Context, id int64) (*sale.Sale, error) {
	return r.Get(ctx, id)
}

func (r *SaleRepo) Update(ctx context.Context, sl *sale.Sale) error {
	return r.s.write(ctx, "sales.Update", func(d *state) error {
		existing, ok := d.sales[sl.ID]
		if !ok {
			return apperror.NewNotFound("sale", sl.ID)
		}
		existing.CustomerName = sl.CustomerName
		existing.TotalAmount = sl.TotalAmount
		existing.UpdatedAt = r.s.now()
		sl.UpdatedAt = existing.UpdatedAt
		d.sales[sl.ID] = existing
		return nil
	})
}

func (r *SaleRepo) DeleteItems(ctx context.Context, saleID int64) error {
	return r.s.write(ctx, "sales.DeleteItems", func(d *state) error {
		for id, it := range d.saleItems {
			if it.SaleID == saleID {
				delete(d.saleItems, id)
			}
		}
		return nil
	})
}

// Delete removes the sale with its items.
func (r *SaleRepo) Delete(ctx context.Context, id int64) error {
	return r.s.write(ctx, "sales.Delete", func(d *state) error {
		if _, ok := d.sales[id]; !ok {
			return apperror.NewNotFound("sale", id)
		}
		delete(d.sales, id)
		for itemID, it := range d.saleItems {
			if it.SaleID == id {
				delete(d.saleItems, itemID)
			}
		}
		return nil
	})
}

func (r *SaleRepo) List(_ context.Context, f sale.ListFilter) ([]sale.Sale, error) {
	var out []sale.Sale
	err := r.s.read(func(d *state) error {
		for _, sl := range d.sales {
			sl.Items = saleItems(d, sl.ID)
			out = append(out, sl)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b sale.Sale) int { return cmpInt64(b.ID, a.ID) })
	return page(out, f.Limit, f.Offset), err
}

func saleItems(d *state, saleID int64) []sale.Item {
	var items []sale.Item
	for _, it := range d.saleItems {
		if it.SaleID == saleID {
			items = append(items, it)
		}
	}
	slices.SortFunc(items, func(a, b sale.Item) int { return cmpInt64(a.ID, b.ID) })
	return items
}
