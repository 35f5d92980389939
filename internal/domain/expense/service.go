package expense

import (
	"context"
	"fmt"
	"time"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/types"
	"stockflow/internal/core/validation"
)

// Service manages purchase-linked expenses. It never touches stock.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new expense service.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// SyncPurchaseExpense makes the purchase's automatic expense equal to total,
// creating it dated today when it does not exist yet.
func (s *Service) SyncPurchaseExpense(ctx context.Context, purchaseID int64, total types.Money, actorID int64) (*Expense, error) {
	existing, err := s.repo.FindAuto(ctx, purchaseID)
	switch {
	case err == nil:
		if !existing.Amount.Equal(total) {
			if err := s.repo.UpdateAmount(ctx, existing.ID, total); err != nil {
				return nil, fmt.Errorf("update purchase expense: %w", err)
			}
			existing.Amount = total
		}
		return existing, nil
	case !apperror.IsNotFound(err):
		return nil, fmt.Errorf("find purchase expense: %w", err)
	}

	categoryID, err := s.repo.EnsureCategory(ctx, AutoPurchaseCategory)
	if err != nil {
		return nil, fmt.Errorf("ensure expense category: %w", err)
	}

	e := &Expense{
		CategoryID: categoryID,
		Amount:     total,
		Date:       today(s.now()),
		Notes:      fmt.Sprintf("Purchase #%d", purchaseID),
		PurchaseID: &purchaseID,
		IsAuto:     true,
		CreatedBy:  actorID,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("create purchase expense: %w", err)
	}
	return e, nil
}

// Validate checks extra expense inputs, including that their categories exist.
// Field paths are prefixed with "expenses".
func (s *Service) Validate(ctx context.Context, inputs []Input) error {
	if len(inputs) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(inputs))
	for _, in := range inputs {
		ids = append(ids, in.CategoryID)
	}
	existing, err := s.repo.ExistingCategories(ctx, ids)
	if err != nil {
		return fmt.Errorf("load expense categories: %w", err)
	}

	fields := validation.Fields{}
	for i, in := range inputs {
		if !existing[in.CategoryID] {
			fields.Add(fmt.Sprintf("expenses[%d].expense_category_id", i), "expense category does not exist")
		}
	}
	return fields.Err()
}

// Attach records extra expenses for a purchase as given.
func (s *Service) Attach(ctx context.Context, purchaseID int64, inputs []Input, actorID int64) ([]Expense, error) {
	out := make([]Expense, 0, len(inputs))
	for i, in := range inputs {
		date, err := time.Parse(DateLayout, in.Date)
		if err != nil {
			return nil, apperror.NewFieldValidation(map[string]string{
				fmt.Sprintf("expenses[%d].date", i): "must be a date in YYYY-MM-DD format",
			})
		}
		e := &Expense{
			CategoryID: in.CategoryID,
			Amount:     in.Amount,
			Date:       date,
			Notes:      in.Notes,
			PurchaseID: &purchaseID,
			CreatedBy:  actorID,
		}
		if err := s.repo.Create(ctx, e); err != nil {
			return nil, fmt.Errorf("create expense: %w", err)
		}
		out = append(out, *e)
	}
	return out, nil
}

// ListByPurchase returns all expenses linked to a purchase.
func (s *Service) ListByPurchase(ctx context.Context, purchaseID int64) ([]Expense, error) {
	return s.repo.ListByPurchase(ctx, purchaseID)
}

func today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
