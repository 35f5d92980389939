// Package register_repo provides the PostgreSQL stock movement ledger.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockflow/internal/core/apperror"
	"stockflow/internal/domain/ledger"
	"stockflow/internal/infrastructure/storage/postgres"
)

const movementsTable = "stock_movements"

var movementColumns = []string{
	"id", "product_id", "type", "quantity", "reason", "source_type", "source_id",
	"reverses_id", "reversed_by_id", "notes", "created_by", "created_at", "updated_at",
}

var _ ledger.MovementStore = (*MovementRepo)(nil)

// MovementRepo implements ledger.MovementStore.
type MovementRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewMovementRepo creates a new movement repository.
func NewMovementRepo(txm *postgres.TxManager) *MovementRepo {
	return &MovementRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Insert implements ledger.MovementStore.
func (r *MovementRepo) Insert(ctx context.Context, m *ledger.Movement) error {
	sql, args, err := r.builder.Insert(movementsTable).
		Columns("product_id", "type", "quantity", "reason", "source_type", "source_id",
			"reverses_id", "notes", "created_by", "created_at", "updated_at").
		Values(m.ProductID, m.Type, m.Quantity, m.Reason, m.SourceType, m.SourceID,
			m.ReversesID, m.Notes, m.CreatedBy, m.CreatedAt, m.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&m.ID); err != nil {
		return postgres.MapError(err, "stock movement")
	}
	return nil
}

func (r *MovementRepo) get(ctx context.Context, id int64, forUpdate bool) (*ledger.Movement, error) {
	q := r.builder.Select(movementColumns...).From(movementsTable).Where(squirrel.Eq{"id": id})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var m ledger.Movement
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &m, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock movement", id)
		}
		return nil, fmt.Errorf("get movement: %w", postgres.MapError(err, "stock movement"))
	}
	return &m, nil
}

// Get implements ledger.MovementStore.
func (r *MovementRepo) Get(ctx context.Context, id int64) (*ledger.Movement, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate implements ledger.MovementStore.
func (r *MovementRepo) GetForUpdate(ctx context.Context, id int64) (*ledger.Movement, error) {
	return r.get(ctx, id, true)
}

// Update implements ledger.MovementStore.
func (r *MovementRepo) Update(ctx context.Context, m *ledger.Movement) error {
	sql, args, err := r.builder.Update(movementsTable).
		Set("type", m.Type).
		Set("quantity", m.Quantity).
		Set("notes", m.Notes).
		Set("reversed_by_id", m.ReversedByID).
		Set("updated_at", m.UpdatedAt).
		Where(squirrel.Eq{"id": m.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "stock movement")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("stock movement", m.ID)
	}
	return nil
}

// List implements ledger.MovementStore.
func (r *MovementRepo) List(ctx context.Context, f ledger.Filter) ([]ledger.Movement, error) {
	sql, args, err := r.listQuery(f).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []ledger.Movement
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return out, nil
}

func (r *MovementRepo) listQuery(f ledger.Filter) squirrel.SelectBuilder {
	q := r.builder.Select(movementColumns...).From(movementsTable)
	if f.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *f.ProductID})
	}
	if f.SourceType != nil {
		q = q.Where(squirrel.Eq{"source_type": *f.SourceType})
	}
	if f.SourceID != nil {
		q = q.Where(squirrel.Eq{"source_id": *f.SourceID})
	}
	if f.ActiveOnly {
		q = q.Where(squirrel.Eq{"reverses_id": nil}).Where(squirrel.Eq{"reversed_by_id": nil})
	}
	q = q.OrderBy("id DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	return q
}
