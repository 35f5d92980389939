package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type Stamps struct {
	CreatedAt time.Time `db:"created_at"`
}

type mockItem struct {
	Stamps
	ID       int64    `db:"id"`
	Quantity int64    `db:"quantity"`
	Tags     []string `db:"-"`
	note     string
}

func TestExtractDBColumns(t *testing.T) {
	assert.Equal(t, []string{"created_at", "id", "quantity"}, ExtractDBColumns[mockItem]())
}

func TestStructToMap(t *testing.T) {
	now := time.Now().UTC()
	item := &mockItem{Stamps: Stamps{CreatedAt: now}, ID: 3, Quantity: 9, Tags: []string{"x"}, note: "n"}

	m := StructToMap(item)

	assert.Len(t, m, 3)
	assert.Equal(t, int64(3), m["id"])
	assert.Equal(t, int64(9), m["quantity"])
	assert.Equal(t, now, m["created_at"])
}

func TestSortedColumns(t *testing.T) {
	data := map[string]any{"quantity": 1, "id": 2, "created_at": 3}
	assert.Equal(t, []string{"created_at", "quantity"}, SortedColumns(data, "id"))
}
