package memory

import (
	"context"
	"slices"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/expense"
)

var _ expense.Repository = (*ExpenseRepo)(nil)

// ExpenseRepo implements expense.Repository.
type ExpenseRepo struct {
	s *Store
}

func (r *ExpenseRepo) EnsureCategory(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.s.write(ctx, "expenses.EnsureCategory", func(d *state) error {
		for _, c := range d.categories {
			if c.Name == name {
				id = c.ID
				return nil
			}
		}
		id = d.nextID()
		d.categories[id] = expense.Category{ID: id, Name: name}
		return nil
	})
	return id, err
}

func (r *ExpenseRepo) ExistingCategories(_ context.Context, ids []int64) (map[int64]bool, error) {
	out := make(map[int64]bool, len(ids))
	err := r.s.read(func(d *state) error {
		for _, id := range ids {
			if _, ok := d.categories[id]; ok {
				out[id] = true
			}
		}
		return nil
	})
	return out, err
}

func (r *ExpenseRepo) Create(ctx context.Context, e *expense.Expense) error {
	return r.s.write(ctx, "expenses.Create", func(d *state) error {
		now := r.s.now()
		e.ID = d.nextID()
		e.CreatedAt, e.UpdatedAt = now, now
		d.expenses[e.ID] = *e
		return nil
	})
}

func (r *ExpenseRepo) FindAuto(_ context.Context, purchaseID int64) (*expense.Expense, error) {
	var out *expense.Expense
	err := r.s.read(func(d *state) error {
		for _, e := range d.expenses {
			if e.IsAuto && e.PurchaseID != nil && *e.PurchaseID == purchaseID {
				out = &e
				return nil
			}
		}
		return apperror.NewNotFound("expense", purchaseID)
	})
	return out, err
}

func (r *ExpenseRepo) UpdateAmount(ctx context.Context, id int64, amount types.Money) error {
	return r.s.write(ctx, "expenses.UpdateAmount", func(d *state) error {
		e, ok := d.expenses[id]
		if !ok {
			return apperror.NewNotFound("expense", id)
		}
		e.Amount = amount
		e.UpdatedAt = r.s.now()
		d.expenses[id] = e
		return nil
	})
}

func (r *ExpenseRepo) ListByPurchase(_ context.Context, purchaseID int64) ([]expense.Expense, error) {
	var out []expense.Expense
	err := r.s.read(func(d *state) error {
		for _, e := range d.expenses {
			if e.PurchaseID != nil && *e.PurchaseID == purchaseID {
				out = append(out, e)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b expense.Expense) int { return cmpInt64(a.ID, b.ID) })
	return out, err
}

