package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInsufficientStock_Details(t *testing.T) {
	err := NewInsufficientStock(7, "Denim Jacket", 3, 1)

	assert.Equal(t, CodeInsufficientStock, err.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, err.HTTPStatus)
	assert.Equal(t, "Denim Jacket", err.Details["product_name"])
	assert.EqualValues(t, 1, err.Details["available"])
	assert.Contains(t, err.Message, "Denim Jacket")
}

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify(nil))

	notFound := NewNotFound("product", int64(1))
	wrapped := fmt.Errorf("get product: %w", notFound)
	assert.Same(t, wrapped, Classify(wrapped))
	assert.True(t, IsNotFound(Classify(wrapped)))

	raw := errors.New("connection reset")
	classified := Classify(raw)
	appErr, ok := AsAppError(classified)
	require.True(t, ok)
	assert.Equal(t, CodeTransactionFailed, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus)
	assert.ErrorIs(t, classified, raw)
	assert.Contains(t, appErr.Message, "connection reset")
}

func TestNewFieldValidation(t *testing.T) {
	err := NewFieldValidation(map[string]string{"notes": "is required"})

	assert.True(t, IsValidation(err))
	assert.Equal(t, map[string]string{"notes": "is required"}, err.Details["fields"])
}
