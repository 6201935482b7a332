package payment

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func advanceIssuedOn(t *testing.T, number string, amount float64, issued time.Time) *AdvanceCheque {
	a, err := NewAdvanceCheque(number, uuid.New(), "G-1042", valueobject.NewMoneyCADFromFloat(amount), issued, "operator-1")
	require.NoError(t, err)
	return a
}

func TestDeductionService_PlanFIFO(t *testing.T) {
	svc := NewDeductionService()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("consumes oldest advance first", func(t *testing.T) {
		older := advanceIssuedOn(t, "AC-1", 1000, base)
		newer := advanceIssuedOn(t, "AC-2", 1000, base.AddDate(0, 1, 0))

		plans := svc.PlanFIFO(decimal.NewFromInt(600), []*AdvanceCheque{newer, older})
		require.Len(t, plans, 1)
		assert.Equal(t, older.ID, plans[0].AdvanceChequeID)
		assert.True(t, plans[0].Amount.Equal(decimal.NewFromInt(600)))
	})

	t.Run("spills into the next advance partially", func(t *testing.T) {
		older := advanceIssuedOn(t, "AC-1", 1000, base)
		newer := advanceIssuedOn(t, "AC-2", 1000, base.AddDate(0, 1, 0))

		plans := svc.PlanFIFO(decimal.NewFromInt(1400), []*AdvanceCheque{older, newer})
		require.Len(t, plans, 2)
		assert.True(t, plans[0].Amount.Equal(decimal.NewFromInt(1000)))
		assert.Equal(t, newer.ID, plans[1].AdvanceChequeID)
		assert.True(t, plans[1].Amount.Equal(decimal.NewFromInt(400)))
	})

	t.Run("never exceeds the payable amount", func(t *testing.T) {
		a := advanceIssuedOn(t, "AC-1", 5000, base)
		plans := svc.PlanFIFO(decimal.NewFromInt(300), []*AdvanceCheque{a})
		require.Len(t, plans, 1)
		assert.True(t, Total(plans).Equal(decimal.NewFromInt(300)))
	})

	t.Run("stops when advances run out", func(t *testing.T) {
		a := advanceIssuedOn(t, "AC-1", 200, base)
		plans := svc.PlanFIFO(decimal.NewFromInt(900), []*AdvanceCheque{a})
		require.Len(t, plans, 1)
		assert.True(t, Total(plans).Equal(decimal.NewFromInt(200)))
	})

	t.Run("skips advances with no outstanding balance", func(t *testing.T) {
		drained := advanceIssuedOn(t, "AC-1", 500, base)
		require.NoError(t, drained.ApplyDeduction(decimal.NewFromInt(500)))
		open := advanceIssuedOn(t, "AC-2", 500, base.AddDate(0, 1, 0))

		plans := svc.PlanFIFO(decimal.NewFromInt(100), []*AdvanceCheque{drained, open})
		require.Len(t, plans, 1)
		assert.Equal(t, open.ID, plans[0].AdvanceChequeID)
	})

	t.Run("skips cancelled advances", func(t *testing.T) {
		cancelled := advanceIssuedOn(t, "AC-1", 500, base)
		_, err := cancelled.Cancel("operator-1", "error")
		require.NoError(t, err)

		plans := svc.PlanFIFO(decimal.NewFromInt(100), []*AdvanceCheque{cancelled})
		assert.Empty(t, plans)
	})

	t.Run("ties on issued date break by advance number", func(t *testing.T) {
		b := advanceIssuedOn(t, "AC-2", 100, base)
		a := advanceIssuedOn(t, "AC-1", 100, base)

		plans := svc.PlanFIFO(decimal.NewFromInt(150), []*AdvanceCheque{b, a})
		require.Len(t, plans, 2)
		assert.Equal(t, "AC-1", plans[0].AdvanceNumber)
		assert.Equal(t, "AC-2", plans[1].AdvanceNumber)
	})

	t.Run("returns nothing for zero payable", func(t *testing.T) {
		a := advanceIssuedOn(t, "AC-1", 500, base)
		assert.Empty(t, svc.PlanFIFO(decimal.Zero, []*AdvanceCheque{a}))
	})
}

func TestDeductionService_PlanManual(t *testing.T) {
	svc := NewDeductionService()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("accepts a valid drawdown", func(t *testing.T) {
		a := advanceIssuedOn(t, "AC-1", 1000, base)
		plan, err := svc.PlanManual(decimal.NewFromInt(800), a, decimal.NewFromInt(500))
		require.NoError(t, err)
		assert.Equal(t, a.ID, plan.AdvanceChequeID)
		assert.True(t, plan.Amount.Equal(decimal.NewFromInt(500)))
	})

	t.Run("rejects amounts above the outstanding balance", func(t *testing.T) {
		a := advanceIssuedOn(t, "AC-1", 400, base)
		_, err := svc.PlanManual(decimal.NewFromInt(1000), a, decimal.NewFromInt(401))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds outstanding balance")
	})

	t.Run("rejects amounts above the payable amount", func(t *testing.T) {
		a := advanceIssuedOn(t, "AC-1", 1000, base)
		_, err := svc.PlanManual(decimal.NewFromInt(300), a, decimal.NewFromInt(500))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds the payable amount")
	})

	t.Run("rejects drained advances", func(t *testing.T) {
		a := advanceIssuedOn(t, "AC-1", 100, base)
		require.NoError(t, a.ApplyDeduction(decimal.NewFromInt(100)))
		_, err := svc.PlanManual(decimal.NewFromInt(500), a, decimal.NewFromInt(50))
		require.Error(t, err)
	})
}

func TestDeductionService_Apply(t *testing.T) {
	svc := NewDeductionService()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("mutates the advance and records the deduction", func(t *testing.T) {
		a := advanceIssuedOn(t, "AC-1", 1000, base)
		plans := svc.PlanFIFO(decimal.NewFromInt(600), []*AdvanceCheque{a})
		require.Len(t, plans, 1)

		batchID := uuid.New()
		d, err := svc.Apply(plans[0], a, batchID, a.GrowerID, base.AddDate(0, 2, 0), false)
		require.NoError(t, err)
		assert.True(t, a.OutstandingAmount.Equal(decimal.NewFromInt(400)))
		assert.Equal(t, a.ID, d.AdvanceChequeID)
		assert.Equal(t, batchID, d.BatchID)
		assert.True(t, d.Amount.Equal(decimal.NewFromInt(600)))
		assert.False(t, d.Manual)
		assert.True(t, d.IsActive())
	})

	t.Run("rejects a plan aimed at a different advance", func(t *testing.T) {
		a := advanceIssuedOn(t, "AC-1", 1000, base)
		other := advanceIssuedOn(t, "AC-2", 1000, base)
		plans := svc.PlanFIFO(decimal.NewFromInt(100), []*AdvanceCheque{a})
		require.Len(t, plans, 1)

		_, err := svc.Apply(plans[0], other, uuid.New(), a.GrowerID, base, false)
		require.Error(t, err)
	})
}
