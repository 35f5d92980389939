package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineTotal(t *testing.T) {
	assert.True(t, LineTotal(10, MustMoney("2")).Equal(MustMoney("20")))
	assert.True(t, LineTotal(3, MustMoney("0.335")).Equal(MustMoney("1.01")))
	assert.True(t, LineTotal(0, MustMoney("9.99")).IsZero())
}

func TestMustMoney(t *testing.T) {
	assert.True(t, MustMoney("0").Equal(Zero()))
	assert.Panics(t, func() { MustMoney("12,50") })
}
