package document_repo

import (
	"context"
	"time"

	"stockflow/internal/domain/sale"
	"stockflow/internal/infrastructure/storage/postgres"
)

var _ sale.Repository = (*SaleRepo)(nil)

// SaleRepo stores sales in "sales" and "sale_items".
type SaleRepo struct {
	*baseDocumentRepo[sale.Sale, sale.Item]
}

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txm *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		baseDocumentRepo: newBaseDocumentRepo[sale.Sale, sale.Item](
			txm, "sale", "sales", "sale_items", "sale_id",
		),
	}
}

// Create inserts the sale header and fills its generated fields.
func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	st, err := r.insertHeader(ctx, s)
	if err != nil {
		return err
	}
	s.ID, s.CreatedAt, s.UpdatedAt = st.ID, st.CreatedAt, st.UpdatedAt
	return nil
}

// CreateItems inserts items for saleID and sets their ids.
func (r *SaleRepo) CreateItems(ctx context.Context, saleID int64, items []sale.Item) error {
	ids, err := r.insertItems(ctx, saleID, items)
	if err != nil {
		return err
	}
	for i := range items {
		items[i].ID = ids[i]
		items[i].SaleID = saleID
	}
	return nil
}

// Get returns a sale with its items.
func (r *SaleRepo) Get(ctx context.Context, id int64) (*sale.Sale, error) {
	return r.load(ctx, id, false)
}

// GetForUpdate is Get with the header row locked.
func (r *SaleRepo) GetForUpdate(ctx context.Context, id int64) (*sale.Sale, error) {
	return r.load(ctx, id, true)
}

func (r *SaleRepo) load(ctx context.Context, id int64, forUpdate bool) (*sale.Sale, error) {
	s, err := r.getHeader(ctx, id, forUpdate)
	if err != nil {
		return nil, err
	}
	items, err := r.itemsOf(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Items = items
	return s, nil
}

// Update writes the header fields of s.
func (r *SaleRepo) Update(ctx context.Context, s *sale.Sale) error {
	if err := r.updateHeader(ctx, s.ID, s); err != nil {
		return err
	}
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteItems removes every item of a sale.
func (r *SaleRepo) DeleteItems(ctx context.Context, saleID int64) error {
	return r.deleteItems(ctx, saleID)
}

// Delete removes the sale with its items.
func (r *SaleRepo) Delete(ctx context.Context, id int64) error {
	return r.delete(ctx, id)
}

// List returns a page of sales with their items, newest first.
func (r *SaleRepo) List(ctx context.Context, filter sale.ListFilter) ([]sale.Sale, error) {
	out, err := r.listHeaders(ctx, nil, filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(out))
	for _, s := range out {
		ids = append(ids, s.ID)
	}
	items, err := r.itemsOf(ctx, ids...)
	if err != nil {
		return nil, err
	}
	bySale := make(map[int64][]sale.Item, len(out))
	for _, it := range items {
		bySale[it.SaleID] = append(bySale[it.SaleID], it)
	}
	for i := range out {
		out[i].Items = bySale[out[i].ID]
	}
	return out, nil
}
