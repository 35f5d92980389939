package ledger

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/tx"
	"stockflow/internal/core/validation"
	"stockflow/internal/domain/audit"
	"stockflow/internal/domain/product"
	"stockflow/pkg/logger"
)

var tracer = otel.Tracer("stockflow/ledger")

// Service is the single choke point through which product stock changes.
// Every operation runs in a transaction (joining the caller's if there is one),
// locks the product row first and the movement row second, and writes the
// stock change together with its movement.
type Service struct {
	products  ProductLocker
	movements MovementStore
	txm       tx.Manager
	audit     audit.Recorder
	now       func() time.Time
}

// NewService creates a new ledger service.
func NewService(products ProductLocker, movements MovementStore, txm tx.Manager, recorder audit.Recorder) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		products:  products,
		movements: movements,
		txm:       txm,
		audit:     recorder,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RecordMovement changes stock by the movement's signed quantity and stores the movement.
// Fails with InsufficientStock when stock would go negative and NotFound for an unknown product.
func (s *Service) RecordMovement(ctx context.Context, in MovementInput) (*Movement, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "ledger.RecordMovement", trace.WithAttributes(
		attribute.Int64("product_id", in.ProductID),
		attribute.String("type", string(in.Type)),
		attribute.Int64("quantity", in.Quantity),
	))
	defer span.End()

	var recorded *Movement
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := s.record(ctx, in, nil)
		recorded = m
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, apperror.Classify(err)
	}

	logger.Debug(ctx, "stock movement recorded",
		"movement_id", recorded.ID,
		"product_id", recorded.ProductID,
		"type", recorded.Type,
		"quantity", recorded.Quantity,
		"reason", recorded.Reason,
	)
	return recorded, nil
}

// record applies in to a freshly locked product. Must run inside a transaction.
func (s *Service) record(ctx context.Context, in MovementInput, reverses *int64) (*Movement, error) {
	p, err := s.products.LockProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}

	before := p.Stock
	delta := in.Type.Sign() * in.Quantity
	after := before + delta
	if delta > 0 && after < before {
		return nil, validation.Fields{"quantity": "would overflow product stock"}.Err()
	}
	if after < 0 {
		return nil, apperror.NewInsufficientStock(p.ID, p.Name, in.Quantity, before)
	}

	if err := s.products.SetStock(ctx, p.ID, after); err != nil {
		return nil, fmt.Errorf("set stock: %w", err)
	}

	now := s.now()
	m := &Movement{
		ProductID:  p.ID,
		Type:       in.Type,
		Quantity:   in.Quantity,
		Reason:     in.Reason,
		SourceType: in.Origin.SourceType,
		SourceID:   in.Origin.SourceID,
		ReversesID: reverses,
		Notes:      in.Notes,
		CreatedBy:  in.Origin.ActorID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if m.SourceType == "" {
		m.SourceType = SourceManual
	}
	if err := s.movements.Insert(ctx, m); err != nil {
		return nil, fmt.Errorf("insert movement: %w", err)
	}

	err = s.audit.Record(ctx, audit.Entry{
		EntityType: audit.EntityStockMovement,
		EntityID:   m.ID,
		Action:     audit.ActionCreate,
		ActorID:    in.Origin.ActorID,
		Changes: map[string]any{
			"product_id":   m.ProductID,
			"type":         m.Type,
			"quantity":     m.Quantity,
			"reason":       m.Reason,
			"source_type":  m.SourceType,
			"source_id":    m.SourceID,
			"reverses_id":  m.ReversesID,
			"stock_before": before,
			"stock_after":  after,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("audit movement: %w", err)
	}
	return m, nil
}

// ReverseMovement cancels a movement by recording its opposite as a new adjustment
// movement and flagging the original as reversed. History is never deleted.
func (s *Service) ReverseMovement(ctx context.Context, movementID int64, origin Origin, note string) (*Movement, error) {
	ctx, span := tracer.Start(ctx, "ledger.ReverseMovement", trace.WithAttributes(
		attribute.Int64("movement_id", movementID),
	))
	defer span.End()

	var reversal *Movement
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := s.reverse(ctx, movementID, origin, note)
		reversal = m
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, apperror.Classify(err)
	}

	logger.Info(ctx, "stock movement reversed",
		"movement_id", movementID,
		"reversal_id", reversal.ID,
		"product_id", reversal.ProductID,
	)
	return reversal, nil
}

func (s *Service) reverse(ctx context.Context, movementID int64, origin Origin, note string) (*Movement, error) {
	original, err := s.lockMovement(ctx, movementID)
	if err != nil {
		return nil, err
	}
	if original.IsReversal() {
		return nil, apperror.NewConflict("a reversal movement cannot be reversed").
			WithDetail("movement_id", movementID)
	}
	if original.IsReversed() {
		return nil, apperror.NewConflict("movement is already reversed").
			WithDetail("movement_id", movementID).
			WithDetail("reversed_by_id", *original.ReversedByID)
	}

	reversal, err := s.record(ctx, MovementInput{
		ProductID: original.ProductID,
		Type:      original.Type.Opposite(),
		Quantity:  original.Quantity,
		Reason:    ReasonAdjustment,
		Notes:     note,
		Origin:    origin,
	}, &original.ID)
	if err != nil {
		return nil, err
	}

	original.ReversedByID = &reversal.ID
	original.UpdatedAt = s.now()
	if err := s.movements.Update(ctx, original); err != nil {
		return nil, fmt.Errorf("flag reversed movement: %w", err)
	}

	err = s.audit.Record(ctx, audit.Entry{
		EntityType: audit.EntityStockMovement,
		EntityID:   original.ID,
		Action:     audit.ActionReverse,
		ActorID:    origin.ActorID,
		Changes: map[string]any{
			"reversed_by_id": reversal.ID,
			"notes":          note,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("audit reversal: %w", err)
	}
	return reversal, nil
}

// ReverseSource reverses every active movement produced by one business transaction,
// in ascending product order. It returns the reversal movements.
func (s *Service) ReverseSource(ctx context.Context, sourceType SourceType, sourceID int64, origin Origin, note string) ([]Movement, error) {
	var reversals []Movement
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		active, err := s.ActiveSourceMovements(ctx, sourceType, sourceID)
		if err != nil {
			return err
		}
		reversals, err = s.ReverseMovements(ctx, active, origin, note)
		return err
	})
	if err != nil {
		return nil, apperror.Classify(err)
	}
	return reversals, nil
}

// ActiveSourceMovements lists the not yet reversed movements of one business transaction.
func (s *Service) ActiveSourceMovements(ctx context.Context, sourceType SourceType, sourceID int64) ([]Movement, error) {
	active, err := s.movements.List(ctx, Filter{
		SourceType: &sourceType,
		SourceID:   &sourceID,
		ActiveOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list source movements: %w", err)
	}
	return active, nil
}

// ReverseMovements reverses the given movements in ascending product order.
func (s *Service) ReverseMovements(ctx context.Context, movements []Movement, origin Origin, note string) ([]Movement, error) {
	var reversals []Movement
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		ids := make([]int64, 0, len(movements))
		for _, m := range movements {
			ids = append(ids, m.ProductID)
		}
		if _, err := s.products.LockProducts(ctx, uniqueSorted(ids)); err != nil {
			return fmt.Errorf("lock products: %w", err)
		}

		ordered := slices.Clone(movements)
		slices.SortStableFunc(ordered, func(a, b Movement) int {
			return cmp.Compare(a.ProductID, b.ProductID)
		})

		for _, m := range ordered {
			rev, err := s.reverse(ctx, m.ID, origin, note)
			if err != nil {
				return err
			}
			reversals = append(reversals, *rev)
		}
		return nil
	})
	if err != nil {
		return nil, apperror.Classify(err)
	}
	return reversals, nil
}

// UpdateMovement edits a movement in place. The stock difference between the old and
// new effect is applied in one step, so stock never passes through an intermediate value.
func (s *Service) UpdateMovement(ctx context.Context, movementID int64, change MovementChange, origin Origin) (*Movement, error) {
	if err := validation.Struct(change); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "ledger.UpdateMovement", trace.WithAttributes(
		attribute.Int64("movement_id", movementID),
	))
	defer span.End()

	var updated *Movement
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := s.lockMovement(ctx, movementID)
		if err != nil {
			return err
		}
		if m.IsReversed() || m.IsReversal() {
			return apperror.NewConflict("reversed movements cannot be edited").
				WithDetail("movement_id", movementID)
		}

		// The product row is already locked by lockMovement.
		p, err := s.products.LockProduct(ctx, m.ProductID)
		if err != nil {
			return err
		}

		oldType, oldQty := m.Type, m.Quantity
		if change.Type != nil {
			m.Type = *change.Type
		}
		if change.Quantity != nil {
			m.Quantity = *change.Quantity
		}
		if change.Notes != nil {
			m.Notes = *change.Notes
		}

		delta := m.Signed() - oldType.Sign()*oldQty
		after := p.Stock + delta
		if delta > 0 && after < p.Stock {
			return validation.Fields{"quantity": "would overflow product stock"}.Err()
		}
		if after < 0 {
			return apperror.NewInsufficientStock(p.ID, p.Name, -delta, p.Stock)
		}
		if delta != 0 {
			if err := s.products.SetStock(ctx, p.ID, after); err != nil {
				return fmt.Errorf("set stock: %w", err)
			}
		}

		m.UpdatedAt = s.now()
		if err := s.movements.Update(ctx, m); err != nil {
			return fmt.Errorf("update movement: %w", err)
		}

		updated = m
		return s.audit.Record(ctx, audit.Entry{
			EntityType: audit.EntityStockMovement,
			EntityID:   m.ID,
			Action:     audit.ActionUpdate,
			ActorID:    origin.ActorID,
			Changes: map[string]any{
				"type":         map[string]any{"old": oldType, "new": m.Type},
				"quantity":     map[string]any{"old": oldQty, "new": m.Quantity},
				"stock_before": p.Stock,
				"stock_after":  after,
			},
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, apperror.Classify(err)
	}

	logger.Info(ctx, "stock movement updated",
		"movement_id", updated.ID,
		"type", updated.Type,
		"quantity", updated.Quantity,
	)
	return updated, nil
}

// lockMovement locks the movement's product and then the movement itself.
// Product-before-movement is the lock order used everywhere in this package.
func (s *Service) lockMovement(ctx context.Context, movementID int64) (*Movement, error) {
	m, err := s.movements.Get(ctx, movementID)
	if err != nil {
		return nil, err
	}
	if _, err := s.products.LockProduct(ctx, m.ProductID); err != nil {
		return nil, err
	}
	return s.movements.GetForUpdate(ctx, movementID)
}

// LockProducts locks products in ascending id order for a multi-item workflow.
// Must be called inside the caller's transaction.
func (s *Service) LockProducts(ctx context.Context, ids []int64) (map[int64]*product.Product, error) {
	return s.products.LockProducts(ctx, uniqueSorted(ids))
}

// Movement returns one movement or NotFound.
func (s *Service) Movement(ctx context.Context, id int64) (*Movement, error) {
	return s.movements.Get(ctx, id)
}

// History lists movements, newest first.
func (s *Service) History(ctx context.Context, filter Filter) ([]Movement, error) {
	filter.Limit = PageLimit(filter.Limit)
	return s.movements.List(ctx, filter)
}

// PageLimit is the page size History uses for a requested limit.
func PageLimit(requested uint64) uint64 {
	switch {
	case requested == 0:
		return 100
	case requested > 500:
		return 500
	}
	return requested
}

func uniqueSorted(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
