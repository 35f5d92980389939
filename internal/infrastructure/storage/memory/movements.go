package memory

import (
	"context"
	"slices"

	"stockflow/internal/core/apperror"
	"stockflow/internal/domain/ledger"
)

var _ ledger.MovementStore = (*MovementRepo)(nil)

// MovementRepo implements ledger.MovementStore.
type MovementRepo struct {
	s *Store
}

// Insert implements ledger.MovementStore.
func (r *MovementRepo) Insert(ctx context.Context, m *ledger.Movement) error {
	return r.s.write(ctx, "movements.Insert", func(d *state) error {
		if _, ok := d.products[m.ProductID]; !ok {
			return apperror.NewNotFound("product", m.ProductID)
		}
		m.ID = d.nextID()
		d.movements[m.ID] = *m
		return nil
	})
}

// Get implements ledger.MovementStore.
func (r *MovementRepo) Get(_ context.Context, id int64) (*ledger.Movement, error) {
	var out *ledger.Movement
	err := r.s.read(func(d *state) error {
		m, ok := d.movements[id]
		if !ok {
			return apperror.NewNotFound("stock movement", id)
		}
		out = &m
		return nil
	})
	return out, err
}

// GetForUpdate implements ledger.MovementStore.
func (r *MovementRepo) GetForUpdate(ctx context.Context, id int64) (*ledger.Movement, error) {
	return r.Get(ctx, id)
}

// Update implements ledger.MovementStore.
func (r *MovementRepo) Update(ctx context.Context, m *ledger.Movement) error {
	return r.s.write(ctx, "movements.Update", func(d *state) error {
		existing, ok := d.movements[m.ID]
		if !ok {
			return apperror.NewNotFound("stock movement", m.ID)
		}
		existing.Type = m.Type
		existing.Quantity = m.Quantity
		existing.Notes = m.Notes
		existing.ReversedByID = m.ReversedByID
		existing.UpdatedAt = m.UpdatedAt
		d.movements[m.ID] = existing
		return nil
	})
}

// List implements ledger.MovementStore. Results are newest first.
func (r *MovementRepo) List(_ context.Context, f ledger.Filter) ([]ledger.Movement, error) {
	var out []ledger.Movement
	err := r.s.read(func(d *state) error {
		for _, m := range d.movements {
			if matches(m, f) {
				out = append(out, m)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b ledger.Movement) int { return cmpInt64(b.ID, a.ID) })
	return page(out, f.Limit, f.Offset), err
}

func matches(m ledger.Movement, f ledger.Filter) bool {
	if f.ProductID != nil && m.ProductID != *f.ProductID {
		return false
	}
	if f.SourceType != nil && m.SourceType != *f.SourceType {
		return false
	}
	if f.SourceID != nil && (m.SourceID == nil || *m.SourceID != *f.SourceID) {
		return false
	}
	if f.ActiveOnly && (m.IsReversed() || m.IsReversal()) {
		return false
	}
	return true
}

func page[T any](items []T, limit, offset uint64) []T {
	if offset >= uint64(len(items)) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < uint64(len(items)) {
		items = items[:limit]
	}
	return items
}
