package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/apperror"
)

type line struct {
	Quantity int64           `json:"quantity" validate:"gt=0"`
	Price    decimal.Decimal `json:"price" validate:"gte=0"`
}

type order struct {
	Kind  string `json:"kind" validate:"required,oneof=in out"`
	Notes string `json:"notes" validate:"notblank"`
	Lines []line `json:"lines" validate:"required,min=1,dive"`
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	require.Equal(t, apperror.CodeValidation, appErr.Code)
	fields, ok := appErr.Details["fields"].(map[string]string)
	require.True(t, ok)
	return fields
}

func TestStruct_Valid(t *testing.T) {
	err := Struct(order{
		Kind:  "in",
		Notes: "recount",
		Lines: []line{{Quantity: 1, Price: decimal.NewFromInt(0)}},
	})
	assert.NoError(t, err)
}

func TestStruct_FieldMessages(t *testing.T) {
	err := Struct(order{
		Kind:  "sideways",
		Notes: "   ",
		Lines: []line{{Quantity: 0, Price: decimal.NewFromInt(-1)}},
	})

	fields := fieldsOf(t, err)
	assert.Equal(t, "must be one of: in, out", fields["kind"])
	assert.Equal(t, "must not be blank", fields["notes"])
	assert.Equal(t, "must be greater than 0", fields["lines[0].quantity"])
	assert.Equal(t, "must be at least 0", fields["lines[0].price"])
}

func TestStruct_EmptySlice(t *testing.T) {
	err := Struct(order{Kind: "out", Notes: "x", Lines: []line{}})

	fields := fieldsOf(t, err)
	assert.Equal(t, "must contain at least 1 item(s)", fields["lines"])
}

func TestFields_KeepsFirstMessage(t *testing.T) {
	f := Fields{}
	assert.NoError(t, f.Err())

	f.Add("items[0].product_id", "product does not exist")
	f.Add("items[0].product_id", "duplicate")
	assert.Equal(t, "product does not exist", f["items[0].product_id"])
	assert.Error(t, f.Err())
}
