// Package catalog_repo provides the PostgreSQL product repository.
package catalog_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"stockflow/internal/core/apperror"
	"stockflow/internal/domain/ledger"
	"stockflow/internal/domain/product"
	"stockflow/internal/infrastructure/storage/postgres"
)

const productsTable = "products"

var productColumns = []string{
	"id", "name", "sku", "category_id", "cost_price", "selling_price",
	"stock", "initial_stock", "is_active", "created_at", "updated_at",
}

var (
	_ product.Repository   = (*ProductRepo)(nil)
	_ ledger.ProductLocker = (*ProductRepo)(nil)
)

// ProductRepo implements product.Repository and ledger.ProductLocker.
type ProductRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *ProductRepo) selectByID(id int64) squirrel.SelectBuilder {
	return r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"id": id})
}

// lockMany selects ids in ascending order with row locks, so concurrent
// multi-product transactions acquire locks in the same order.
func (r *ProductRepo) lockMany(ids []int64) squirrel.SelectBuilder {
	return r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"id": ids}).
		OrderBy("id").
		Suffix("FOR UPDATE")
}

func (r *ProductRepo) get(ctx context.Context, q squirrel.SelectBuilder, id int64) (*product.Product, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p product.Product
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", id)
		}
		return nil, fmt.Errorf("get product: %w", postgres.MapError(err, "product"))
	}
	return &p, nil
}

// Get implements product.Repository.
func (r *ProductRepo) Get(ctx context.Context, id int64) (*product.Product, error) {
	return r.get(ctx, r.selectByID(id), id)
}

// Exists implements product.Repository.
func (r *ProductRepo) Exists(ctx context.Context, id int64) (bool, error) {
	sql, args, err := r.builder.Select("1").From(productsTable).Where(squirrel.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	err = r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return true, nil
}

// Create implements product.Repository.
func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	now := time.Now().UTC()
	sql, args, err := r.builder.Insert(productsTable).
		Columns("name", "sku", "category_id", "cost_price", "selling_price",
			"stock", "initial_stock", "is_active", "created_at", "updated_at").
		Values(p.Name, p.SKU, p.CategoryID, p.CostPrice, p.SellingPrice,
			p.Stock, p.InitialStock, p.IsActive, now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&p.ID); err != nil {
		return postgres.MapError(err, "product")
	}
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

// LockProduct implements ledger.ProductLocker.
func (r *ProductRepo) LockProduct(ctx context.Context, id int64) (*product.Product, error) {
	return r.get(ctx, r.selectByID(id).Suffix("FOR UPDATE"), id)
}

// LockProducts implements ledger.ProductLocker.
func (r *ProductRepo) LockProducts(ctx context.Context, ids []int64) (map[int64]*product.Product, error) {
	out := make(map[int64]*product.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	sql, args, err := r.lockMany(ids).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []*product.Product
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("lock products: %w", postgres.MapError(err, "product"))
	}
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

// SetStock implements ledger.ProductLocker.
func (r *ProductRepo) SetStock(ctx context.Context, id, stock int64) error {
	sql, args, err := r.builder.Update(productsTable).
		Set("stock", stock).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "product")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("product", id)
	}
	return nil
}
