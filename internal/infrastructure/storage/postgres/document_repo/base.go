// Package document_repo provides PostgreSQL repositories for purchases, sales
// and their expenses. A document is a header row plus item rows that reference it.
package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockflow/internal/core/apperror"
	"stockflow/internal/infrastructure/storage/postgres"
)

// baseDocumentRepo stores a header type H and its item type I. Columns come
// from the "db" tags of both types.
type baseDocumentRepo[H any, I any] struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType

	entity      string
	headerTable string
	itemTable   string
	foreignKey  string
	headerCols  []string
	itemCols    []string
}

func newBaseDocumentRepo[H any, I any](txm *postgres.TxManager, entity, headerTable, itemTable, foreignKey string) *baseDocumentRepo[H, I] {
	return &baseDocumentRepo[H, I]{
		txm:         txm,
		builder:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		entity:      entity,
		headerTable: headerTable,
		itemTable:   itemTable,
		foreignKey:  foreignKey,
		headerCols:  postgres.ExtractDBColumns[H](),
		itemCols:    postgres.ExtractDBColumns[I](),
	}
}

// stamps are the generated values of an inserted header row.
type stamps struct {
	ID        int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *baseDocumentRepo[H, I]) insertHeaderQuery(h *H) squirrel.InsertBuilder {
	data := postgres.StructToMap(h)
	for _, generated := range []string{"id", "created_at", "updated_at"} {
		delete(data, generated)
	}
	return r.builder.Insert(r.headerTable).SetMap(data).Suffix("RETURNING id, created_at, updated_at")
}

func (r *baseDocumentRepo[H, I]) insertHeader(ctx context.Context, h *H) (stamps, error) {
	var st stamps
	sql, args, err := r.insertHeaderQuery(h).ToSql()
	if err != nil {
		return st, fmt.Errorf("build insert: %w", err)
	}

	err = r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&st.ID, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return st, postgres.MapError(err, r.entity)
	}
	return st, nil
}

func (r *baseDocumentRepo[H, I]) updateHeaderQuery(id int64, h *H) squirrel.UpdateBuilder {
	data := postgres.StructToMap(h)
	for _, immutable := range []string{"id", "created_at", "created_by", "updated_at"} {
		delete(data, immutable)
	}
	return r.builder.Update(r.headerTable).
		SetMap(data).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id})
}

func (r *baseDocumentRepo[H, I]) updateHeader(ctx context.Context, id int64, h *H) error {
	sql, args, err := r.updateHeaderQuery(id, h).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, r.entity)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound(r.entity, id)
	}
	return nil
}

func (r *baseDocumentRepo[H, I]) getHeader(ctx context.Context, id int64, forUpdate bool) (*H, error) {
	q := r.builder.Select(r.headerCols...).From(r.headerTable).Where(squirrel.Eq{"id": id})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	h := new(H)
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), h, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(r.entity, id)
		}
		return nil, fmt.Errorf("get %s: %w", r.entity, postgres.MapError(err, r.entity))
	}
	return h, nil
}

func (r *baseDocumentRepo[H, I]) listHeaders(ctx context.Context, where squirrel.Sqlizer, limit, offset uint64) ([]H, error) {
	q := r.builder.Select(r.headerCols...).From(r.headerTable).OrderBy("id DESC")
	if where != nil {
		q = q.Where(where)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []H
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.entity, err)
	}
	return out, nil
}

// insertItems writes items for docID in one round trip and returns their ids in order.
func (r *baseDocumentRepo[H, I]) insertItems(ctx context.Context, docID int64, items []I) ([]int64, error) {
	queries, err := r.insertItemQueries(docID, items)
	if err != nil {
		return nil, err
	}
	ids, err := postgres.InsertReturningIDs(ctx, r.txm.GetQuerier(ctx), queries)
	if err != nil {
		return nil, postgres.MapError(err, r.entity+" item")
	}
	return ids, nil
}

func (r *baseDocumentRepo[H, I]) insertItemQueries(docID int64, items []I) ([]postgres.BatchQuery, error) {
	if len(items) == 0 {
		return nil, nil
	}

	var columns []string
	rows := make([][]any, 0, len(items))
	for i := range items {
		data := postgres.StructToMap(&items[i])
		data[r.foreignKey] = docID
		if columns == nil {
			columns = postgres.SortedColumns(data, "id")
		}
		row := make([]any, 0, len(columns))
		for _, col := range columns {
			row = append(row, data[col])
		}
		rows = append(rows, row)
	}
	return postgres.BuildInserts(r.builder, r.itemTable, columns, rows)
}

// itemsOf returns the items of the given documents ordered by id.
func (r *baseDocumentRepo[H, I]) itemsOf(ctx context.Context, docIDs ...int64) ([]I, error) {
	if len(docIDs) == 0 {
		return nil, nil
	}
	sql, args, err := r.builder.Select(r.itemCols...).
		From(r.itemTable).
		Where(squirrel.Eq{r.foreignKey: docIDs}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []I
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list %s items: %w", r.entity, err)
	}
	return out, nil
}

func (r *baseDocumentRepo[H, I]) deleteItems(ctx context.Context, docID int64) error {
	sql, args, err := r.builder.Delete(r.itemTable).Where(squirrel.Eq{r.foreignKey: docID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(err, r.entity+" item")
	}
	return nil
}

// delete removes the header; items and linked rows go with it through ON DELETE CASCADE.
func (r *baseDocumentRepo[H, I]) delete(ctx context.Context, id int64) error {
	sql, args, err := r.builder.Delete(r.headerTable).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, r.entity)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound(r.entity, id)
	}
	return nil
}
