package purchase

import (
	"context"
	"fmt"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/tx"
	"stockflow/internal/core/types"
	"stockflow/internal/core/validation"
	"stockflow/internal/domain/audit"
	"stockflow/internal/domain/expense"
	"stockflow/internal/domain/ledger"
	"stockflow/internal/domain/product"
	"stockflow/pkg/logger"
)

// Ledger is the part of the stock ledger purchases drive.
type Ledger interface {
	LockProducts(ctx context.Context, ids []int64) (map[int64]*product.Product, error)
	RecordMovement(ctx context.Context, in ledger.MovementInput) (*ledger.Movement, error)
	ReverseSource(ctx context.Context, sourceType ledger.SourceType, sourceID int64, origin ledger.Origin, note string) ([]ledger.Movement, error)
	ActiveSourceMovements(ctx context.Context, sourceType ledger.SourceType, sourceID int64) ([]ledger.Movement, error)
	ReverseMovements(ctx context.Context, movements []ledger.Movement, origin ledger.Origin, note string) ([]ledger.Movement, error)
}

// Expenses manages the expenses linked to a purchase.
type Expenses interface {
	SyncPurchaseExpense(ctx context.Context, purchaseID int64, total types.Money, actorID int64) (*expense.Expense, error)
	Validate(ctx context.Context, inputs []expense.Input) error
	Attach(ctx context.Context, purchaseID int64, inputs []expense.Input, actorID int64) ([]expense.Expense, error)
	ListByPurchase(ctx context.Context, purchaseID int64) ([]expense.Expense, error)
}

// Service creates, amends and removes purchases, keeping stock, ledger
// and the automatic cost expense consistent inside one transaction.
type Service struct {
	repo     Repository
	ledger   Ledger
	expenses Expenses
	txm      tx.Manager
	audit    audit.Recorder
}

// NewService creates a new purchase service.
func NewService(repo Repository, ledger Ledger, expenses Expenses, txm tx.Manager, recorder audit.Recorder) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		repo:     repo,
		ledger:   ledger,
		expenses: expenses,
		txm:      txm,
		audit:    recorder,
	}
}

// Create persists a purchase, records one "in" movement per item, creates the
// automatic expense for the total and attaches any extra expenses.
func (s *Service) Create(ctx context.Context, in CreateInput, actorID int64) (*Purchase, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var created *Purchase
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.lockItemProducts(ctx, in.Items, nil); err != nil {
			return err
		}
		if err := s.expenses.Validate(ctx, in.Expenses); err != nil {
			return err
		}

		items := toItems(in.Items)
		p := &Purchase{
			SupplierID:  in.SupplierID,
			TotalAmount: Total(items),
			CreatedBy:   actorID,
		}
		if err := s.repo.Create(ctx, p); err != nil {
			return fmt.Errorf("create purchase: %w", err)
		}
		if err := s.repo.CreateItems(ctx, p.ID, items); err != nil {
			return fmt.Errorf("create purchase items: %w", err)
		}
		p.Items = items

		if err := s.applyItems(ctx, p.ID, items, actorID, fmt.Sprintf("Purchase #%d", p.ID)); err != nil {
			return err
		}

		auto, err := s.expenses.SyncPurchaseExpense(ctx, p.ID, p.TotalAmount, actorID)
		if err != nil {
			return err
		}
		extra, err := s.expenses.Attach(ctx, p.ID, in.Expenses, actorID)
		if err != nil {
			return err
		}
		p.Expenses = append([]expense.Expense{*auto}, extra...)

		created = p
		return s.audit.Record(ctx, audit.Entry{
			EntityType: audit.EntityPurchase,
			EntityID:   p.ID,
			Action:     audit.ActionCreate,
			ActorID:    actorID,
			Changes: map[string]any{
				"supplier_id":  p.SupplierID,
				"total_amount": p.TotalAmount.String(),
				"items":        len(items),
			},
		})
	})
	if err != nil {
		return nil, apperror.Classify(err)
	}

	logger.Info(ctx, "purchase created",
		"purchase_id", created.ID,
		"supplier_id", created.SupplierID,
		"items", len(created.Items),
		"total", created.TotalAmount.String(),
	)
	return created, nil
}

// Update changes the supplier and/or replaces the items. Replacing items applies the
// new ones, reverses the previous items through the ledger and re-syncs the expense.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput, actorID int64) (*Purchase, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var updated *Purchase
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if in.SupplierID != nil {
			p.SupplierID = *in.SupplierID
		}

		if in.Items != nil {
			oldIDs := make([]int64, 0, len(p.Items))
			for _, it := range p.Items {
				oldIDs = append(oldIDs, it.ProductID)
			}
			if err := s.lockItemProducts(ctx, in.Items, oldIDs); err != nil {
				return err
			}

			// New "in" movements go first so stock that was already sold
			// cannot make the reversal of the old items fail.
			previous, err := s.ledger.ActiveSourceMovements(ctx, ledger.SourcePurchase, p.ID)
			if err != nil {
				return err
			}

			if err := s.repo.DeleteItems(ctx, p.ID); err != nil {
				return fmt.Errorf("delete purchase items: %w", err)
			}
			items := toItems(in.Items)
			if err := s.repo.CreateItems(ctx, p.ID, items); err != nil {
				return fmt.Errorf("create purchase items: %w", err)
			}
			if err := s.applyItems(ctx, p.ID, items, actorID, fmt.Sprintf("Purchase #%d updated", p.ID)); err != nil {
				return err
			}

			origin := ledger.PurchaseOrigin(p.ID, actorID)
			note := fmt.Sprintf("Purchase #%d updated - stock reversal", p.ID)
			if _, err := s.ledger.ReverseMovements(ctx, previous, origin, note); err != nil {
				return err
			}
			p.Items = items
			p.TotalAmount = Total(items)
		}

		if err := s.repo.Update(ctx, p); err != nil {
			return fmt.Errorf("update purchase: %w", err)
		}
		if _, err := s.expenses.SyncPurchaseExpense(ctx, p.ID, p.TotalAmount, actorID); err != nil {
			return err
		}
		expenses, err := s.expenses.ListByPurchase(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("list purchase expenses: %w", err)
		}
		p.Expenses = expenses

		updated = p
		return s.audit.Record(ctx, audit.Entry{
			EntityType: audit.EntityPurchase,
			EntityID:   p.ID,
			Action:     audit.ActionUpdate,
			ActorID:    actorID,
			Changes: map[string]any{
				"supplier_id":    p.SupplierID,
				"total_amount":   p.TotalAmount.String(),
				"items_replaced": in.Items != nil,
			},
		})
	})
	if err != nil {
		return nil, apperror.Classify(err)
	}

	logger.Info(ctx, "purchase updated",
		"purchase_id", updated.ID,
		"items_replaced", in.Items != nil,
		"total", updated.TotalAmount.String(),
	)
	return updated, nil
}

// Delete reverses every item's stock effect with an "out" adjustment movement and
// removes the purchase together with its items and expenses.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		origin := ledger.PurchaseOrigin(p.ID, actorID)
		note := fmt.Sprintf("Purchase #%d deleted - stock reversal", p.ID)
		if _, err := s.ledger.ReverseSource(ctx, ledger.SourcePurchase, p.ID, origin, note); err != nil {
			return err
		}

		if err := s.repo.Delete(ctx, p.ID); err != nil {
			return fmt.Errorf("delete purchase: %w", err)
		}

		return s.audit.Record(ctx, audit.Entry{
			EntityType: audit.EntityPurchase,
			EntityID:   p.ID,
			Action:     audit.ActionDelete,
			ActorID:    actorID,
			Changes: map[string]any{
				"total_amount": p.TotalAmount.String(),
				"items":        len(p.Items),
			},
		})
	})
	if err != nil {
		return apperror.Classify(err)
	}

	logger.Info(ctx, "purchase deleted", "purchase_id", id)
	return nil
}

// Get returns a purchase with items and expenses.
func (s *Service) Get(ctx context.Context, id int64) (*Purchase, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	expenses, err := s.expenses.ListByPurchase(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list purchase expenses: %w", err)
	}
	p.Expenses = expenses
	return p, nil
}

// List returns purchases with items, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Purchase, error) {
	filter.Limit = PageLimit(filter.Limit)
	return s.repo.List(ctx, filter)
}

// PageLimit is the page size List uses for a requested limit.
func PageLimit(requested uint64) uint64 {
	switch {
	case requested == 0:
		return 50
	case requested > 200:
		return 200
	}
	return requested
}

// lockItemProducts locks every product referenced by items or extra in id order
// and reports items whose product does not exist.
func (s *Service) lockItemProducts(ctx context.Context, items []ItemInput, extra []int64) error {
	ids := append([]int64{}, extra...)
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	locked, err := s.ledger.LockProducts(ctx, ids)
	if err != nil {
		return fmt.Errorf("lock products: %w", err)
	}

	fields := validation.Fields{}
	for i, it := range items {
		if _, ok := locked[it.ProductID]; !ok {
			fields.Add(fmt.Sprintf("items[%d].product_id", i), "product does not exist")
		}
	}
	return fields.Err()
}

func (s *Service) applyItems(ctx context.Context, purchaseID int64, items []Item, actorID int64, note string) error {
	origin := ledger.PurchaseOrigin(purchaseID, actorID)
	for _, it := range items {
		_, err := s.ledger.RecordMovement(ctx, ledger.MovementInput{
			ProductID: it.ProductID,
			Type:      ledger.MovementIn,
			Quantity:  it.Quantity,
			Reason:    ledger.ReasonPurchase,
			Notes:     note,
			Origin:    origin,
		})
		if err != nil {
			return fmt.Errorf("record purchase movement for product %d: %w", it.ProductID, err)
		}
	}
	return nil
}
