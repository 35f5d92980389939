package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockflow/internal/core/apperror"
	"stockflow/internal/domain/reconcile"
	"stockflow/internal/infrastructure/storage/postgres"
)

var _ reconcile.Repository = (*LedgerStateRepo)(nil)

// LedgerStateRepo implements reconcile.Repository by summing signed movements per product.
type LedgerStateRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewLedgerStateRepo creates a new reconciliation repository.
func NewLedgerStateRepo(txm *postgres.TxManager) *LedgerStateRepo {
	return &LedgerStateRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *LedgerStateRepo) stateQuery() squirrel.SelectBuilder {
	return r.builder.Select(
		"p.id AS product_id",
		"p.name AS product_name",
		"p.stock",
		"p.initial_stock",
		"COALESCE(SUM(CASE WHEN m.type = 'in' THEN m.quantity ELSE -m.quantity END), 0)::BIGINT AS movement_sum",
	).
		From("products p").
		LeftJoin(movementsTable + " m ON m.product_id = p.id").
		GroupBy("p.id").
		OrderBy("p.id")
}

// State implements reconcile.Repository.
func (r *LedgerStateRepo) State(ctx context.Context, productID int64) (reconcile.State, error) {
	sql, args, err := r.stateQuery().Where(squirrel.Eq{"p.id": productID}).ToSql()
	if err != nil {
		return reconcile.State{}, fmt.Errorf("build query: %w", err)
	}

	var st reconcile.State
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &st, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return st, apperror.NewNotFound("product", productID)
		}
		return st, fmt.Errorf("ledger state: %w", err)
	}
	return st, nil
}

// States implements reconcile.Repository.
func (r *LedgerStateRepo) States(ctx context.Context) ([]reconcile.State, error) {
	sql, args, err := r.stateQuery().ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []reconcile.State
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("ledger states: %w", err)
	}
	return out, nil
}
