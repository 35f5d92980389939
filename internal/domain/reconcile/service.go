// Package reconcile verifies that each product's stock equals its initial stock
// plus the signed sum of its movements.
package reconcile

import (
	"context"
	"fmt"

	"stockflow/internal/domain/audit"
	"stockflow/pkg/logger"
)

// State is the raw material for one product's check.
type State struct {
	ProductID    int64  `db:"product_id"`
	ProductName  string `db:"product_name"`
	Stock        int64  `db:"stock"`
	InitialStock int64  `db:"initial_stock"`
	MovementSum  int64  `db:"movement_sum"`
}

// Report is the result of a check.
type Report struct {
	ProductID    int64  `json:"product_id"`
	ProductName  string `json:"product_name"`
	Stock        int64  `json:"stock"`
	InitialStock int64  `json:"initial_stock"`
	MovementSum  int64  `json:"movement_sum"`
	Expected     int64  `json:"expected"`
	Drift        int64  `json:"drift"`
}

// Consistent reports whether stock matches the ledger.
func (r Report) Consistent() bool {
	return r.Drift == 0
}

func newReport(s State) Report {
	expected := s.InitialStock + s.MovementSum
	return Report{
		ProductID:    s.ProductID,
		ProductName:  s.ProductName,
		Stock:        s.Stock,
		InitialStock: s.InitialStock,
		MovementSum:  s.MovementSum,
		Expected:     expected,
		Drift:        s.Stock - expected,
	}
}

// Repository loads reconciliation states.
type Repository interface {
	// State returns one product's state or NotFound.
	State(ctx context.Context, productID int64) (State, error)
	// States returns the state of every product.
	States(ctx context.Context) ([]State, error)
}

// Service runs ledger checks. It never corrects data.
type Service struct {
	repo  Repository
	audit audit.Recorder
}

// NewService creates a new reconciliation service.
func NewService(repo Repository, recorder audit.Recorder) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{repo: repo, audit: recorder}
}

// Check reconciles one product.
func (s *Service) Check(ctx context.Context, productID int64) (Report, error) {
	st, err := s.repo.State(ctx, productID)
	if err != nil {
		return Report{}, err
	}
	return newReport(st), nil
}

// CheckAll reconciles every product and returns only those that drifted.
// Each drift is logged and written to the audit trail.
func (s *Service) CheckAll(ctx context.Context) ([]Report, error) {
	states, err := s.repo.States(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger states: %w", err)
	}

	var drifted []Report
	for _, st := range states {
		r := newReport(st)
		if r.Consistent() {
			continue
		}
		drifted = append(drifted, r)

		logger.Warn(ctx, "stock ledger drift detected",
			"product_id", r.ProductID,
			"stock", r.Stock,
			"expected", r.Expected,
			"drift", r.Drift,
		)
		err := s.audit.Record(ctx, audit.Entry{
			EntityType: audit.EntityProduct,
			EntityID:   r.ProductID,
			Action:     audit.ActionDrift,
			Changes: map[string]any{
				"stock":    r.Stock,
				"expected": r.Expected,
				"drift":    r.Drift,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("audit drift: %w", err)
		}
	}

	logger.Info(ctx, "stock ledger reconciled", "products", len(states), "drifted", len(drifted))
	return drifted, nil
}
