package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// BatchQuery is one statement of a batch.
type BatchQuery struct {
	SQL  string
	Args []any
}

// InsertReturningIDs sends one INSERT ... RETURNING id per query in a single round trip
// and returns the generated ids in query order.
func InsertReturningIDs(ctx context.Context, q Querier, queries []BatchQuery) ([]int64, error) {
	if len(queries) == 0 {
		return nil, nil
	}

	batch := &pgx.Batch{}
	for _, bq := range queries {
		batch.Queue(bq.SQL, bq.Args...)
	}

	results := q.SendBatch(ctx, batch)
	defer results.Close()

	ids := make([]int64, 0, len(queries))
	for i := range queries {
		var id int64
		if err := results.QueryRow().Scan(&id); err != nil {
			return nil, fmt.Errorf("batch insert %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// BuildInserts renders one INSERT ... RETURNING id statement per row.
func BuildInserts(builder squirrel.StatementBuilderType, table string, columns []string, rows [][]any) ([]BatchQuery, error) {
	queries := make([]BatchQuery, 0, len(rows))
	for _, row := range rows {
		sql, args, err := builder.Insert(table).Columns(columns...).Values(row...).Suffix("RETURNING id").ToSql()
		if err != nil {
			return nil, fmt.Errorf("build insert into %s: %w", table, err)
		}
		queries = append(queries, BatchQuery{SQL: sql, Args: args})
	}
	return queries, nil
}
