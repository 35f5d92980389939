package memory

import (
	"context"
	"slices"

	"stockflow/internal/core/apperror"
	"stockflow/internal/domain/audit"
	"stockflow/internal/domain/reconcile"
)

var (
	_ reconcile.Repository = (*LedgerStateRepo)(nil)
	_ audit.Recorder       = (*AuditRecorder)(nil)
)

// LedgerStateRepo implements reconcile.Repository.
type LedgerStateRepo struct {
	s *Store
}

func (r *LedgerStateRepo) State(_ context.Context, productID int64) (reconcile.State, error) {
	var out reconcile.State
	err := r.s.read(func(d *state) error {
		if _, ok := d.products[productID]; !ok {
			return apperror.NewNotFound("product", productID)
		}
		out = ledgerState(d, productID)
		return nil
	})
	return out, err
}

func (r *LedgerStateRepo) States(_ context.Context) ([]reconcile.State, error) {
	var out []reconcile.State
	err := r.s.read(func(d *state) error {
		for id := range d.products {
			out = append(out, ledgerState(d, id))
		}
		return nil
	})
	slices.SortFunc(out, func(a, b reconcile.State) int { return cmpInt64(a.ProductID, b.ProductID) })
	return out, err
}

func ledgerState(d *state, productID int64) reconcile.State {
	p := d.products[productID]
	st := reconcile.State{
		ProductID:    p.ID,
		ProductName:  p.Name,
		Stock:        p.Stock,
		InitialStock: p.InitialStock,
	}
	for _, m := range d.movements {
		if m.ProductID == productID {
			st.MovementSum += m.Signed()
		}
	}
	return st
}

// ForceStock overwrites a product's stock without a movement. Used to simulate drift.
func (r *LedgerStateRepo) ForceStock(productID, stock int64) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p := r.s.data.products[productID]
	p.Stock = stock
	r.s.data.products[productID] = p
}

// AuditRecorder implements audit.Recorder and keeps entries in memory.
type AuditRecorder struct {
	s *Store
}

func (r *AuditRecorder) Record(ctx context.Context, e audit.Entry) error {
	return r.s.write(ctx, "audit.Record", func(d *state) error {
		if e.CreatedAt.IsZero() {
			e.CreatedAt = r.s.now()
		}
		d.audit = append(d.audit, e)
		return nil
	})
}

// Entries returns recorded entries for an entity type, oldest first.
// An empty entityType returns all entries.
func (r *AuditRecorder) Entries(entityType string) []audit.Entry {
	var out []audit.Entry
	_ = r.s.read(func(d *state) error {
		for _, e := range d.audit {
			if entityType == "" || e.EntityType == entityType {
				out = append(out, e)
			}
		}
		return nil
	})
	return out
}
