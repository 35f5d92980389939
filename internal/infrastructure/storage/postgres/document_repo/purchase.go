package document_repo

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"

	"stockflow/internal/domain/purchase"
	"stockflow/internal/infrastructure/storage/postgres"
)

var _ purchase.Repository = (*PurchaseRepo)(nil)

// PurchaseRepo stores purchases in "purchases" and "purchase_items".
type PurchaseRepo struct {
	*baseDocumentRepo[purchase.Purchase, purchase.Item]
}

// NewPurchaseRepo creates a new purchase repository.
func NewPurchaseRepo(txm *postgres.TxManager) *PurchaseRepo {
	return &PurchaseRepo{
		baseDocumentRepo: newBaseDocumentRepo[purchase.Purchase, purchase.Item](
			txm, "purchase", "purchases", "purchase_items", "purchase_id",
		),
	}
}

// Create inserts the purchase header and fills its generated fields.
func (r *PurchaseRepo) Create(ctx context.Context, p *purchase.Purchase) error {
	st, err := r.insertHeader(ctx, p)
	if err != nil {
		return err
	}
	p.ID, p.CreatedAt, p.UpdatedAt = st.ID, st.CreatedAt, st.UpdatedAt
	return nil
}

// CreateItems inserts items for purchaseID and sets their ids.
func (r *PurchaseRepo) CreateItems(ctx context.Context, purchaseID int64, items []purchase.Item) error {
	ids, err := r.insertItems(ctx, purchaseID, items)
	if err != nil {
		return err
	}
	for i := range items {
		items[i].ID = ids[i]
		items[i].PurchaseID = purchaseID
	}
	return nil
}

// Get returns a purchase with its items.
func (r *PurchaseRepo) Get(ctx context.Context, id int64) (*purchase.Purchase, error) {
	return r.load(ctx, id, false)
}

// GetForUpdate is Get with the header row locked.
func (r *PurchaseRepo) GetForUpdate(ctx context.Context, id int64) (*purchase.Purchase, error) {
	return r.load(ctx, id, true)
}

func (r *PurchaseRepo) load(ctx context.Context, id int64, forUpdate bool) (*purchase.Purchase, error) {
	p, err := r.getHeader(ctx, id, forUpdate)
	if err != nil {
		return nil, err
	}
	items, err := r.itemsOf(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Items = items
	return p, nil
}

// Update writes the header fields of p.
func (r *PurchaseRepo) Update(ctx context.Context, p *purchase.Purchase) error {
	if err := r.updateHeader(ctx, p.ID, p); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteItems removes every item of a purchase.
func (r *PurchaseRepo) DeleteItems(ctx context.Context, purchaseID int64) error {
	return r.deleteItems(ctx, purchaseID)
}

// Delete removes the purchase with its items and expenses.
func (r *PurchaseRepo) Delete(ctx context.Context, id int64) error {
	return r.delete(ctx, id)
}

// List returns a page of purchases with their items, newest first.
func (r *PurchaseRepo) List(ctx context.Context, filter purchase.ListFilter) ([]purchase.Purchase, error) {
	var where squirrel.Sqlizer
	if filter.SupplierID != nil {
		where = squirrel.Eq{"supplier_id": *filter.SupplierID}
	}
	out, err := r.listHeaders(ctx, where, filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(out))
	for _, p := range out {
		ids = append(ids, p.ID)
	}
	items, err := r.itemsOf(ctx, ids...)
	if err != nil {
		return nil, err
	}
	byPurchase := make(map[int64][]purchase.Item, len(out))
	for _, it := range items {
		byPurchase[it.PurchaseID] = append(byPurchase[it.PurchaseID], it)
	}
	for i := range out {
		out[i].Items = byPurchase[out[i].ID]
	}
	return out, nil
}
