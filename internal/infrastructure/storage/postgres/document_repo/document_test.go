package document_repo

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/domain/sale"
)

func TestInsertHeaderQuery_SkipsGeneratedColumns(t *testing.T) {
	repo := NewSaleRepo(nil)

	sql, args, err := repo.insertHeaderQuery(&sale.Sale{
		ID:           99,
		CustomerName: "Ama",
		TotalAmount:  decimal.RequireFromString("12.50"),
		CreatedBy:    3,
	}).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"INSERT INTO sales (created_by,customer_name,total_amount) VALUES ($1,$2,$3) RETURNING id, created_at, updated_at",
		sql)
	assert.Equal(t, int64(3), args[0])
	assert.Equal(t, "Ama", args[1])
}

func TestUpdateHeaderQuery(t *testing.T) {
	repo := NewSaleRepo(nil)

	sql, _, err := repo.updateHeaderQuery(4, &sale.Sale{ID: 4, CustomerName: "Kofi"}).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"UPDATE sales SET customer_name = $1, total_amount = $2, updated_at = NOW() WHERE id = $3",
		sql)
}

func TestInsertItemQueries(t *testing.T) {
	repo := NewPurchaseRepo(nil)

	queries, err := repo.insertItemQueries(7, nil)
	require.NoError(t, err)
	assert.Empty(t, queries)

	repoSale := NewSaleRepo(nil)
	queries, err = repoSale.insertItemQueries(7, []sale.Item{
		{ProductID: 1, Quantity: 2, SellingPrice: decimal.NewFromInt(10)},
		{ProductID: 5, Quantity: 1, SellingPrice: decimal.NewFromInt(4)},
	})
	require.NoError(t, err)
	require.Len(t, queries, 2)

	assert.Equal(t,
		"INSERT INTO sale_items (product_id,quantity,sale_id,selling_price) VALUES ($1,$2,$3,$4) RETURNING id",
		queries[0].SQL)
	assert.Equal(t, []any{int64(5), int64(1), int64(7), decimal.NewFromInt(4)}, queries[1].Args)
}

func TestFindAutoQuery(t *testing.T) {
	repo := NewExpenseRepo(nil)

	sql, args, err := repo.findAutoQuery(12).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM expenses WHERE purchase_id = $1 AND is_auto = $2 FOR UPDATE")
	assert.Equal(t, []any{int64(12), true}, args)
}

func TestEnsureCategoryQuery(t *testing.T) {
	repo := NewExpenseRepo(nil)

	sql, _, err := repo.ensureCategoryQuery("Bale Purchase").ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"INSERT INTO expense_categories (name) VALUES ($1) ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id",
		sql)
}
