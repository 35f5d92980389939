package register_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/domain/ledger"
)

func TestMovementRepo_ListQuery(t *testing.T) {
	repo := NewMovementRepo(nil)
	productID := int64(3)
	source := ledger.SourcePurchase
	sourceID := int64(11)

	tests := []struct {
		name      string
		filter    ledger.Filter
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "product history page",
			filter:    ledger.Filter{ProductID: &productID, Limit: 20, Offset: 40},
			wantWhere: " WHERE product_id = $1 ORDER BY id DESC LIMIT 20 OFFSET 40",
			wantArgs:  []any{int64(3)},
		},
		{
			name:      "active movements of a purchase",
			filter:    ledger.Filter{SourceType: &source, SourceID: &sourceID, ActiveOnly: true},
			wantWhere: " WHERE source_type = $1 AND source_id = $2 AND reverses_id IS NULL AND reversed_by_id IS NULL ORDER BY id DESC",
			wantArgs:  []any{ledger.SourcePurchase, int64(11)},
		},
	}

	prefix := "SELECT id, product_id, type, quantity, reason, source_type, source_id, reverses_id, reversed_by_id, notes, created_by, created_at, updated_at FROM stock_movements"
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := repo.listQuery(tt.filter).ToSql()
			require.NoError(t, err)
			assert.Equal(t, prefix+tt.wantWhere, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestLedgerStateRepo_Query(t *testing.T) {
	repo := NewLedgerStateRepo(nil)

	sql, args, err := repo.stateQuery().Where("p.id = ?", int64(5)).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "LEFT JOIN stock_movements m ON m.product_id = p.id")
	assert.Contains(t, sql, "WHERE p.id = $1 GROUP BY p.id ORDER BY p.id")
	assert.Equal(t, []any{int64(5)}, args)
}
