package product

import (
	"context"
	"fmt"
	"strings"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/validation"
	"stockflow/pkg/logger"
)

// Service is the read-mostly product facade used as a precondition source
// by the purchase, sale and adjustment workflows.
type Service struct {
	repo Repository
}

// NewService creates a new product service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the product or NotFound.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	return s.repo.Get(ctx, id)
}

// CurrentStock returns the product's stock as of the current transaction.
func (s *Service) CurrentStock(ctx context.Context, id int64) (int64, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return p.Stock, nil
}

// Exists reports whether a product with id exists.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, nil
	}
	return s.repo.Exists(ctx, id)
}

// Create registers a product. The opening stock becomes both stock and initial_stock,
// so the ledger invariant holds from the first moment.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Product, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	sku := strings.TrimSpace(in.SKU)
	if sku == "" {
		sku = GenerateSKU()
	}

	p := &Product{
		Name:         strings.TrimSpace(in.Name),
		SKU:          sku,
		CategoryID:   in.CategoryID,
		CostPrice:    in.CostPrice,
		SellingPrice: in.SellingPrice,
		Stock:        in.InitialStock,
		InitialStock: in.InitialStock,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if apperror.IsAppError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	logger.Info(ctx, "product created", "product_id", p.ID, "sku", p.SKU, "initial_stock", p.InitialStock)
	return p, nil
}
