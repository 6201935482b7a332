package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWeight(t *testing.T) {
	t.Run("accepts positive weight", func(t *testing.T) {
		w, err := NewWeightFromFloat(1250.5)
		require.NoError(t, err)
		assert.True(t, w.Pounds().Equal(decimal.NewFromFloat(1250.5)))
	})

	t.Run("rejects negative weight", func(t *testing.T) {
		_, err := NewWeight(decimal.NewFromInt(-1))
		require.Error(t, err)
	})
}

func TestWeightExtend(t *testing.T) {
	// 1000 lb at $0.55/lb = $550.00
	w := MustNewWeight(decimal.NewFromInt(1000))
	rate := NewMoneyCADFromFloat(0.55)

	total := w.Extend(rate)
	assert.True(t, total.Amount().Equal(decimal.NewFromInt(550)))
	assert.Equal(t, CAD, total.Currency())
}

func TestWeightAdd(t *testing.T) {
	a := MustNewWeight(decimal.NewFromInt(100))
	b := MustNewWeight(decimal.NewFromFloat(0.25))
	assert.True(t, a.Add(b).Pounds().Equal(decimal.NewFromFloat(100.25)))
}
