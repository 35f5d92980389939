package sale

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/tx"
	"stockflow/internal/core/validation"
	"stockflow/internal/domain/audit"
	"stockflow/internal/domain/ledger"
	"stockflow/internal/domain/product"
	"stockflow/pkg/logger"
)

// Ledger is the part of the stock ledger sales drive.
type Ledger interface {
	LockProducts(ctx context.Context, ids []int64) (map[int64]*product.Product, error)
	RecordMovement(ctx context.Context, in ledger.MovementInput) (*ledger.Movement, error)
	ReverseSource(ctx context.Context, sourceType ledger.SourceType, sourceID int64, origin ledger.Origin, note string) ([]ledger.Movement, error)
}

// Service creates, amends and removes sales.
type Service struct {
	repo   Repository
	ledger Ledger
	txm    tx.Manager
	audit  audit.Recorder
}

// NewService creates a new sale service.
func NewService(repo Repository, ledger Ledger, txm tx.Manager, recorder audit.Recorder) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		repo:   repo,
		ledger: ledger,
		txm:    txm,
		audit:  recorder,
	}
}

// Create checks that every item fits the locked stock before writing anything,
// then persists the sale and records one "out" movement per item.
func (s *Service) Create(ctx context.Context, in CreateInput, actorID int64) (*Sale, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var created *Sale
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkAvailability(ctx, in.Items); err != nil {
			return err
		}

		items := toItems(in.Items)
		sl := &Sale{
			CustomerName: strings.TrimSpace(in.CustomerName),
			TotalAmount:  Total(items),
			CreatedBy:    actorID,
		}
		if err := s.repo.Create(ctx, sl); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}
		if err := s.repo.CreateItems(ctx, sl.ID, items); err != nil {
			return fmt.Errorf("create sale items: %w", err)
		}
		sl.Items = items

		if err := s.applyItems(ctx, sl.ID, items, actorID, fmt.Sprintf("Sale #%d", sl.ID)); err != nil {
			return err
		}

		created = sl
		return s.audit.Record(ctx, audit.Entry{
			EntityType: audit.EntitySale,
			EntityID:   sl.ID,
			Action:     audit.ActionCreate,
			ActorID:    actorID,
			Changes: map[string]any{
				"customer_name": sl.CustomerName,
				"total_amount":  sl.TotalAmount.String(),
				"items":         len(items),
			},
		})
	})
	if err != nil {
		return nil, apperror.Classify(err)
	}

	logger.Info(ctx, "sale created",
		"sale_id", created.ID,
		"items", len(created.Items),
		"total", created.TotalAmount.String(),
	)
	return created, nil
}

// Update changes the customer and/or replaces the items. Old items are reversed
// provisionally, the new items are checked against the reverted stock, and any
// failure rolls the whole update back so visible stock never changes.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput, actorID int64) (*Sale, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var updated *Sale
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		sl, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if in.CustomerName != nil {
			sl.CustomerName = strings.TrimSpace(*in.CustomerName)
		}

		if in.Items != nil {
			ids := make([]int64, 0, len(sl.Items)+len(in.Items))
			for _, it := range sl.Items {
				ids = append(ids, it.ProductID)
			}
			for _, it := range in.Items {
				ids = append(ids, it.ProductID)
			}
			if _, err := s.ledger.LockProducts(ctx, ids); err != nil {
				return fmt.Errorf("lock products: %w", err)
			}

			origin := ledger.SaleOrigin(sl.ID, actorID)
			note := fmt.Sprintf("Sale #%d updated - stock reversal", sl.ID)
			if _, err := s.ledger.ReverseSource(ctx, ledger.SourceSale, sl.ID, origin, note); err != nil {
				return err
			}

			if err := s.checkAvailability(ctx, in.Items); err != nil {
				return err
			}

			if err := s.repo.DeleteItems(ctx, sl.ID); err != nil {
				return fmt.Errorf("delete sale items: %w", err)
			}
			items := toItems(in.Items)
			if err := s.repo.CreateItems(ctx, sl.ID, items); err != nil {
				return fmt.Errorf("create sale items: %w", err)
			}
			if err := s.applyItems(ctx, sl.ID, items, actorID, fmt.Sprintf("Sale #%d updated", sl.ID)); err != nil {
				return err
			}
			sl.Items = items
			sl.TotalAmount = Total(items)
		}

		if err := s.repo.Update(ctx, sl); err != nil {
			return fmt.Errorf("update sale: %w", err)
		}

		updated = sl
		return s.audit.Record(ctx, audit.Entry{
			EntityType: audit.EntitySale,
			EntityID:   sl.ID,
			Action:     audit.ActionUpdate,
			ActorID:    actorID,
			Changes: map[string]any{
				"customer_name":  sl.CustomerName,
				"total_amount":   sl.TotalAmount.String(),
				"items_replaced": in.Items != nil,
			},
		})
	})
	if err != nil {
		return nil, apperror.Classify(err)
	}

	logger.Info(ctx, "sale updated",
		"sale_id", updated.ID,
		"items_replaced", in.Items != nil,
		"total", updated.TotalAmount.String(),
	)
	return updated, nil
}

// Delete returns every item's quantity to stock with an "in" adjustment movement
// and removes the sale with its items.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		sl, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		origin := ledger.SaleOrigin(sl.ID, actorID)
		note := fmt.Sprintf("Sale #%d deleted - stock reversal", sl.ID)
		if _, err := s.ledger.ReverseSource(ctx, ledger.SourceSale, sl.ID, origin, note); err != nil {
			return err
		}

		if err := s.repo.Delete(ctx, sl.ID); err != nil {
			return fmt.Errorf("delete sale: %w", err)
		}

		return s.audit.Record(ctx, audit.Entry{
			EntityType: audit.EntitySale,
			EntityID:   sl.ID,
			Action:     audit.ActionDelete,
			ActorID:    actorID,
			Changes: map[string]any{
				"total_amount": sl.TotalAmount.String(),
				"items":        len(sl.Items),
			},
		})
	})
	if err != nil {
		return apperror.Classify(err)
	}

	logger.Info(ctx, "sale deleted", "sale_id", id)
	return nil
}

// Get returns a sale with its items.
func (s *Service) Get(ctx context.Context, id int64) (*Sale, error) {
	return s.repo.Get(ctx, id)
}

// List returns sales with items, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Sale, error) {
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

// checkAvailability locks the requested products and verifies the summed demand per
// product against current stock. It writes nothing.
func (s *Service) checkAvailability(ctx context.Context, items []ItemInput) error {
	ids := make([]int64, 0, len(items))
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
	if err := fields.Err(); err != nil {
		return err
	}

	want := demand(items)
	productIDs := make([]int64, 0, len(want))
	for id := range want {
		productIDs = append(productIDs, id)
	}
	slices.Sort(productIDs)

	for _, id := range productIDs {
		p := locked[id]
		if p.Stock < want[id] {
			return apperror.NewInsufficientStock(p.ID, p.Name, want[id], p.Stock)
		}
	}
	return nil
}

func (s *Service) applyItems(ctx context.Context, saleID int64, items []Item, actorID int64, note string) error {
	origin := ledger.SaleOrigin(saleID, actorID)
	for _, it := range items {
		_, err := s.ledger.RecordMovement(ctx, ledger.MovementInput{
			ProductID: it.ProductID,
			Type:      ledger.MovementOut,
			Quantity:  it.Quantity,
			Reason:    ledger.ReasonSale,
			Notes:     note,
			Origin:    origin,
		})
		if err != nil {
			return fmt.Errorf("record sale movement for product %d: %w", it.ProductID, err)
		}
	}
	return nil
}
