package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/expense"
	"stockflow/internal/infrastructure/storage/postgres"
)

var _ expense.Repository = (*ExpenseRepo)(nil)

// ExpenseRepo stores expenses and expense categories.
type ExpenseRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
	columns []string
}

// NewExpenseRepo creates a new expense repository.
func NewExpenseRepo(txm *postgres.TxManager) *ExpenseRepo {
	return &ExpenseRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns: postgres.ExtractDBColumns[expense.Expense](),
	}
}

// EnsureCategory inserts the category if missing. The no-op DO UPDATE makes
// RETURNING yield the id on conflict as well.
func (r *ExpenseRepo) EnsureCategory(ctx context.Context, name string) (int64, error) {
	sql, args, err := r.ensureCategoryQuery(name).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	var id int64
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return 0, postgres.MapError(err, "expense category")
	}
	return id, nil
}

func (r *ExpenseRepo) ensureCategoryQuery(name string) squirrel.InsertBuilder {
	return r.builder.Insert("expense_categories").
		Columns("name").
		Values(name).
		Suffix("ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id")
}

// ExistingCategories reports which of ids exist.
func (r *ExpenseRepo) ExistingCategories(ctx context.Context, ids []int64) (map[int64]bool, error) {
	out := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	sql, args, err := r.builder.Select("id").
		From("expense_categories").
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var found []int64
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &found, sql, args...); err != nil {
		return nil, fmt.Errorf("load expense categories: %w", err)
	}
	for _, id := range found {
		out[id] = true
	}
	return out, nil
}

// Create inserts e and fills its generated fields.
func (r *ExpenseRepo) Create(ctx context.Context, e *expense.Expense) error {
	data := postgres.StructToMap(e)
	for _, generated := range []string{"id", "created_at", "updated_at"} {
		delete(data, generated)
	}
	sql, args, err := r.builder.Insert("expenses").
		SetMap(data).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	err = r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return postgres.MapError(err, "expense")
	}
	return nil
}

// FindAuto locks the automatic expense of a purchase.
func (r *ExpenseRepo) FindAuto(ctx context.Context, purchaseID int64) (*expense.Expense, error) {
	sql, args, err := r.findAutoQuery(purchaseID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var e expense.Expense
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &e, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("expense", purchaseID)
		}
		return nil, fmt.Errorf("find auto expense: %w", err)
	}
	return &e, nil
}

func (r *ExpenseRepo) findAutoQuery(purchaseID int64) squirrel.SelectBuilder {
	return r.builder.Select(r.columns...).
		From("expenses").
		Where(squirrel.Eq{"purchase_id": purchaseID}).
		Where(squirrel.Eq{"is_auto": true}).
		Suffix("FOR UPDATE")
}

// UpdateAmount sets the amount of one expense.
func (r *ExpenseRepo) UpdateAmount(ctx context.Context, id int64, amount types.Money) error {
	sql, args, err := r.builder.Update("expenses").
		Set("amount", amount).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "expense")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("expense", id)
	}
	return nil
}

// ListByPurchase returns a purchase's expenses in creation order.
func (r *ExpenseRepo) ListByPurchase(ctx context.Context, purchaseID int64) ([]expense.Expense, error) {
	sql, args, err := r.builder.Select(r.columns...).
		From("expenses").
		Where(squirrel.Eq{"purchase_id": purchaseID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []expense.Expense
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}
