// Package adjustment is the operator path for stock corrections that are not
// tied to a purchase or a sale.
package adjustment

import (
	"context"
	"fmt"
	"strings"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/validation"
	"stockflow/internal/domain/ledger"
	"stockflow/pkg/logger"
)

// Ledger is the part of the stock ledger adjustments use.
type Ledger interface {
	RecordMovement(ctx context.Context, in ledger.MovementInput) (*ledger.Movement, error)
	UpdateMovement(ctx context.Context, movementID int64, change ledger.MovementChange, origin ledger.Origin) (*ledger.Movement, error)
	ReverseMovement(ctx context.Context, movementID int64, origin ledger.Origin, note string) (*ledger.Movement, error)
	Movement(ctx context.Context, id int64) (*ledger.Movement, error)
}

// CreateInput is a manual stock correction. Reason may be omitted; when given it
// must be "adjustment".
type CreateInput struct {
	ProductID int64               `json:"product_id" validate:"gt=0"`
	Type      ledger.MovementType `json:"type" validate:"required,oneof=in out"`
	Quantity  int64               `json:"quantity" validate:"gt=0,max=1000000000"`
	Reason    ledger.Reason       `json:"reason"`
	Notes     string              `json:"notes" validate:"notblank,max=1000"`
}

// UpdateInput edits a manual correction. Nil fields are kept.
type UpdateInput struct {
	Type     *ledger.MovementType `json:"type" validate:"omitempty,oneof=in out"`
	Quantity *int64               `json:"quantity" validate:"omitempty,gt=0,max=1000000000"`
	Notes    *string              `json:"notes" validate:"omitempty,notblank,max=1000"`
	Reason   *ledger.Reason       `json:"reason"`
}

// Service creates, edits and reverses manual adjustments.
type Service struct {
	ledger Ledger
}

// NewService creates a new adjustment service.
func NewService(l Ledger) *Service {
	return &Service{ledger: l}
}

// Create records an adjustment movement. Notes are mandatory.
func (s *Service) Create(ctx context.Context, in CreateInput, actorID int64) (*ledger.Movement, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := checkReason(in.Reason); err != nil {
		return nil, err
	}

	m, err := s.ledger.RecordMovement(ctx, ledger.MovementInput{
		ProductID: in.ProductID,
		Type:      in.Type,
		Quantity:  in.Quantity,
		Reason:    ledger.ReasonAdjustment,
		Notes:     strings.TrimSpace(in.Notes),
		Origin:    ledger.ManualOrigin(actorID),
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock adjusted",
		"movement_id", m.ID,
		"product_id", m.ProductID,
		"type", m.Type,
		"quantity", m.Quantity,
	)
	return m, nil
}

// Update edits type, quantity or notes of a manual adjustment. The reason cannot change.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput, actorID int64) (*ledger.Movement, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if in.Reason != nil {
		if err := checkReason(*in.Reason); err != nil {
			return nil, err
		}
	}
	if err := s.requireManual(ctx, id); err != nil {
		return nil, err
	}

	change := ledger.MovementChange{Type: in.Type, Quantity: in.Quantity}
	if in.Notes != nil {
		notes := strings.TrimSpace(*in.Notes)
		change.Notes = &notes
	}
	return s.ledger.UpdateMovement(ctx, id, change, ledger.ManualOrigin(actorID))
}

// Delete reverses the adjustment with an opposite movement. The original row stays
// in the ledger flagged as reversed.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	if err := s.requireManual(ctx, id); err != nil {
		return err
	}

	note := fmt.Sprintf("Stock movement #%d deleted - stock reversal", id)
	_, err := s.ledger.ReverseMovement(ctx, id, ledger.ManualOrigin(actorID), note)
	return err
}

// requireManual rejects movements owned by a purchase or a sale; those change
// only through their transaction.
func (s *Service) requireManual(ctx context.Context, id int64) error {
	m, err := s.ledger.Movement(ctx, id)
	if err != nil {
		return err
	}
	if m.Reason != ledger.ReasonAdjustment || m.SourceType != ledger.SourceManual {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule,
			fmt.Sprintf("movement belongs to a %s and can only change through it", m.SourceType)).
			WithDetail("movement_id", id).
			WithDetail("source_type", m.SourceType).
			WithDetail("source_id", m.SourceID)
	}
	return nil
}

func checkReason(r ledger.Reason) error {
	if r == "" || r == ledger.ReasonAdjustment {
		return nil
	}
	return apperror.NewFieldValidation(map[string]string{
		"reason": "must be adjustment for manual stock movements",
	})
}
