package catalog_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductRepo_LockQueries(t *testing.T) {
	repo := NewProductRepo(nil)

	tests := []struct {
		name     string
		sql      func() (string, []any, error)
		wantSQL  string
		wantArgs []any
	}{
		{
			name: "single row",
			sql: func() (string, []any, error) {
				return repo.selectByID(7).Suffix("FOR UPDATE").ToSql()
			},
			wantSQL: "SELECT id, name, sku, category_id, cost_price, selling_price, stock, initial_stock, is_active, created_at, updated_at " +
				"FROM products WHERE id = $1 FOR UPDATE",
			wantArgs: []any{int64(7)},
		},
		{
			name: "many rows in id order",
			sql: func() (string, []any, error) {
				return repo.lockMany([]int64{2, 5}).ToSql()
			},
			wantSQL: "SELECT id, name, sku, category_id, cost_price, selling_price, stock, initial_stock, is_active, created_at, updated_at " +
				"FROM products WHERE id IN ($1,$2) ORDER BY id FOR UPDATE",
			wantArgs: []any{int64(2), int64(5)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.sql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
