// Package memory is an in-process implementation of every repository used by
// the ledger workflows. Transactions are serialized and roll back by restoring
// a snapshot, which makes it suitable for service tests and local tooling.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"stockflow/internal/core/tx"
	"stockflow/internal/domain/audit"
	"stockflow/internal/domain/expense"
	"stockflow/internal/domain/ledger"
	"stockflow/internal/domain/product"
	"stockflow/internal/domain/purchase"
	"stockflow/internal/domain/sale"
)

var _ tx.Manager = (*Store)(nil)

type state struct {
	seq           int64
	products      map[int64]product.Product
	movements     map[int64]ledger.Movement
	purchases     map[int64]purchase.Purchase
	purchaseItems map[int64]purchase.Item
	sales         map[int64]sale.Sale
	saleItems     map[int64]sale.Item
	expenses      map[int64]expense.Expense
	categories    map[int64]expense.Category
	audit         []audit.Entry
}

func newState() *state {
	return &state{
		products:      map[int64]product.Product{},
		movements:     map[int64]ledger.Movement{},
		purchases:     map[int64]purchase.Purchase{},
		purchaseItems: map[int64]purchase.Item{},
		sales:         map[int64]sale.Sale{},
		saleItems:     map[int64]sale.Item{},
		expenses:      map[int64]expense.Expense{},
		categories:    map[int64]expense.Category{},
	}
}

func (s *state) clone() *state {
	return &state{
		seq:           s.seq,
		products:      maps.Clone(s.products),
		movements:     maps.Clone(s.movements),
		purchases:     maps.Clone(s.purchases),
		purchaseItems: maps.Clone(s.purchaseItems),
		sales:         maps.Clone(s.sales),
		saleItems:     maps.Clone(s.saleItems),
		expenses:      maps.Clone(s.expenses),
		categories:    maps.Clone(s.categories),
		audit:         append([]audit.Entry(nil), s.audit...),
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

// Store holds all data. The zero value is not usable; call New.
type Store struct {
	txMu sync.Mutex // serializes transactions, standing in for row locks
	mu   sync.Mutex // guards data and failures
	data *state

	failures map[string]error
	now      func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		data:     newState(),
		failures: map[string]error{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type txKey struct{}

func inTx(ctx context.Context) bool {
	return ctx.Value(txKey{}) != nil
}

// RunInTransaction implements tx.Manager. Nested calls join the outer transaction;
// an error from the outermost fn restores the state captured when it began.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// FailOn makes the next call of the named operation return err, e.g. "sales.CreateItems".
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// read runs fn under the data lock.
func (s *Store) read(fn func(d *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// write runs fn for op under the data lock. Writes outside a transaction also take
// the transaction lock so a concurrent rollback cannot discard them.
func (s *Store) write(ctx context.Context, op string, fn func(d *state) error) error {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return err
	}
	return fn(s.data)
}

// Products returns the product repository.
func (s *Store) Products() *ProductRepo { return &ProductRepo{s: s} }

// Movements returns the movement repository.
func (s *Store) Movements() *MovementRepo { return &MovementRepo{s: s} }

// Purchases returns the purchase repository.
func (s *Store) Purchases() *PurchaseRepo { return &PurchaseRepo{s: s} }

// Sales returns the sale repository.
func (s *Store) Sales() *SaleRepo { return &SaleRepo{s: s} }

// Expenses returns the expense repository.
func (s *Store) Expenses() *ExpenseRepo { return &ExpenseRepo{s: s} }

// Ledger returns the reconciliation repository.
func (s *Store) Ledger() *LedgerStateRepo { return &LedgerStateRepo{s: s} }

// Audit returns the audit recorder.
func (s *Store) Audit() *AuditRecorder { return &AuditRecorder{s: s} }
