package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with valid currency", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromFloat(12.34), CAD)
		require.NoError(t, err)
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(12.34)))
		assert.Equal(t, CAD, m.Currency())
	})

	t.Run("fails with empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(1), "")
		require.Error(t, err)
	})
}

func TestCurrencyChequeSeries(t *testing.T) {
	assert.Equal(t, "C", CAD.ChequeSeries())
	assert.Equal(t, "U", USD.ChequeSeries())
	assert.True(t, CAD.IsValid())
	assert.True(t, USD.IsValid())
	assert.False(t, Currency("EUR").IsValid())
}

func TestMoneyArithmetic(t *testing.T) {
	t.Run("add same currency", func(t *testing.T) {
		a := NewMoneyCADFromFloat(100.50)
		b := NewMoneyCADFromFloat(49.50)
		sum, err := a.Add(b)
		require.NoError(t, err)
		assert.True(t, sum.Amount().Equal(decimal.NewFromInt(150)))
	})

	t.Run("add mismatched currency fails", func(t *testing.T) {
		a := NewMoneyCADFromFloat(1)
		b, _ := NewMoney(decimal.NewFromInt(1), USD)
		_, err := a.Add(b)
		require.Error(t, err)
	})

	t.Run("subtract can go negative", func(t *testing.T) {
		a := NewMoneyCADFromFloat(10)
		b := NewMoneyCADFromFloat(25)
		diff, err := a.Subtract(b)
		require.NoError(t, err)
		assert.True(t, diff.IsNegative())
	})

	t.Run("multiply by rate", func(t *testing.T) {
		rate := NewMoneyCADFromFloat(0.55)
		total := rate.Multiply(decimal.NewFromInt(1000))
		assert.True(t, total.Amount().Equal(decimal.NewFromInt(550)))
	})

	t.Run("round cents uses banker's rounding", func(t *testing.T) {
		m := NewMoneyCAD(decimal.NewFromFloat(10.125))
		assert.Equal(t, "10.12", m.RoundCents().Amount().StringFixed(2))
		m = NewMoneyCAD(decimal.NewFromFloat(10.135))
		assert.Equal(t, "10.14", m.RoundCents().Amount().StringFixed(2))
	})
}

func TestMoneyComparisons(t *testing.T) {
	a := NewMoneyCADFromFloat(5)
	b := NewMoneyCADFromFloat(7)

	less, err := a.LessThan(b)
	require.NoError(t, err)
	assert.True(t, less)

	greater, err := b.GreaterThan(a)
	require.NoError(t, err)
	assert.True(t, greater)

	usd, _ := NewMoney(decimal.NewFromInt(5), USD)
	_, err = a.LessThan(usd)
	require.Error(t, err)

	assert.True(t, a.Equals(NewMoneyCADFromFloat(5)))
	assert.False(t, a.Equals(usd))
}

func TestMoneyJSON(t *testing.T) {
	m := NewMoneyCADFromFloat(123.45)
	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, m.Equals(decoded))
}

func TestMoneyScan(t *testing.T) {
	t.Run("scans string amount with default currency", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan("42.10"))
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(42.10)))
		assert.Equal(t, DefaultCurrency, m.Currency())
	})

	t.Run("nil scans to zero", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan(nil))
		assert.True(t, m.IsZero())
	})

	t.Run("rejects unsupported type", func(t *testing.T) {
		var m Money
		require.Error(t, m.Scan(42))
	})
}
