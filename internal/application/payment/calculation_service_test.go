package payment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/grower"
	"github.com/harvestpay/backend/internal/domain/payment"
	"github.com/harvestpay/backend/internal/domain/pricing"
	"github.com/harvestpay/backend/internal/domain/shared"
	"github.com/harvestpay/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type calcFixture struct {
	growers    *mockGrowerRepo
	receipts   *mockReceiptRepo
	schedules  *mockScheduleRepo
	priceLocks *mockPriceLockRepo
	allocs     *mockAllocationRepo
	svc        *CalculationService
}

func newCalcFixture() *calcFixture {
	f := &calcFixture{
		growers:    new(mockGrowerRepo),
		receipts:   new(mockReceiptRepo),
		schedules:  new(mockScheduleRepo),
		priceLocks: new(mockPriceLockRepo),
		allocs:     new(mockAllocationRepo),
	}
	f.svc = NewCalculationService(f.growers, f.receipts,
		pricing.NewResolver(f.schedules, nil), f.priceLocks, f.allocs, zap.NewNop())
	return f
}

func testReceipt(growerID uuid.UUID, number string, pounds int64, receiptTime string) grower.Receipt {
	weight, _ := valueobject.NewWeight(decimal.NewFromInt(pounds))
	return grower.Receipt{
		BaseEntity:    shared.NewBaseEntity(),
		ReceiptNumber: number,
		GrowerID:      growerID,
		ProductID:     uuid.New(),
		ProcessID:     uuid.New(),
		DepotID:       uuid.New(),
		CropYear:      2026,
		ReceiptDate:   time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC),
		ReceiptTime:   receiptTime,
		NetWeight:     weight,
	}
}

func testSchedule(r grower.Receipt, advanceNumber int, pricePerLb string) *pricing.PriceSchedule {
	return &pricing.PriceSchedule{
		BaseEntity:         shared.NewBaseEntity(),
		CropYear:           r.CropYear,
		ProductID:          r.ProductID,
		ProcessID:          r.ProcessID,
		AdvanceNumber:      advanceNumber,
		EffectiveFrom:      time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		PricePerLb:         decimal.RequireFromString(pricePerLb),
		PremiumPerLb:       decimal.Zero,
		MarketingRatePerLb: decimal.Zero,
	}
}

func TestCalculateAdvanceBatch(t *testing.T) {
	cutoff := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)

	t.Run("prices eligible receipts", func(t *testing.T) {
		f := newCalcFixture()
		growerID := uuid.New()
		g := activeGrower(growerID, "G-200")
		r := testReceipt(growerID, "R-0001", 1000, "08:30")
		schedule := testSchedule(r, 1, "0.50")
		schedule.MarketingRatePerLb = decimal.RequireFromString("0.01")

		f.receipts.On("GrowersWithEligibleReceipts", mock.Anything, 2026, cutoff, 1, mock.Anything).
			Return([]uuid.UUID{growerID}, nil)
		f.growers.On("FindByID", mock.Anything, growerID).Return(g, nil)
		f.receipts.On("FindEligible", mock.Anything, mock.Anything).Return([]grower.Receipt{r}, nil)
		f.schedules.On("FindEffective", mock.Anything, 2026, r.ProductID, r.ProcessID, 1, r.ReceiptDate).
			Return(schedule, nil)

		payments, err := f.svc.CalculateAdvanceBatch(context.Background(), CalculateRequest{
			CropYear:      2026,
			AdvanceNumber: 1,
			CutoffDate:    cutoff,
		})
		require.NoError(t, err)
		require.Len(t, payments, 1)

		p := payments[0]
		assert.True(t, p.IsValid())
		require.Len(t, p.Details, 1)
		// 1000 lb * 0.50 = 500.00, minus 1000 * 0.01 marketing
		assert.True(t, p.Details[0].Amount.Equal(decimal.RequireFromString("490.00")),
			"got %s", p.Details[0].Amount)
		assert.True(t, p.AdvanceAmount.Equal(decimal.RequireFromString("490.00")))
		assert.True(t, p.MarketingAmount.Equal(decimal.RequireFromString("10.00")))
	})

	t.Run("pays time of day premium before cutoff", func(t *testing.T) {
		f := newCalcFixture()
		growerID := uuid.New()
		g := activeGrower(growerID, "G-201")
		r := testReceipt(growerID, "R-0002", 1000, "07:45")
		schedule := testSchedule(r, 1, "0.50")
		schedule.PremiumCutoff = "12:00"
		schedule.PremiumPerLb = decimal.RequireFromString("0.05")

		f.receipts.On("GrowersWithEligibleReceipts", mock.Anything, 2026, cutoff, 1, mock.Anything).
			Return([]uuid.UUID{growerID}, nil)
		f.growers.On("FindByID", mock.Anything, growerID).Return(g, nil)
		f.receipts.On("FindEligible", mock.Anything, mock.Anything).Return([]grower.Receipt{r}, nil)
		f.schedules.On("FindEffective", mock.Anything, 2026, r.ProductID, r.ProcessID, 1, r.ReceiptDate).
			Return(schedule, nil)

		payments, err := f.svc.CalculateAdvanceBatch(context.Background(), CalculateRequest{
			CropYear:      2026,
			AdvanceNumber: 1,
			CutoffDate:    cutoff,
		})
		require.NoError(t, err)
		require.Len(t, payments, 1)
		assert.True(t, payments[0].PremiumAmount.Equal(decimal.RequireFromString("50.00")))
		assert.True(t, payments[0].AdvanceAmount.Equal(decimal.RequireFromString("550.00")))
	})

	t.Run("flags grower when no price applies", func(t *testing.T) {
		f := newCalcFixture()
		growerID := uuid.New()
		g := activeGrower(growerID, "G-202")
		r := testReceipt(growerID, "R-0003", 500, "09:00")

		f.receipts.On("GrowersWithEligibleReceipts", mock.Anything, 2026, cutoff, 1, mock.Anything).
			Return([]uuid.UUID{growerID}, nil)
		f.growers.On("FindByID", mock.Anything, growerID).Return(g, nil)
		f.receipts.On("FindEligible", mock.Anything, mock.Anything).Return([]grower.Receipt{r}, nil)
		f.schedules.On("FindEffective", mock.Anything, 2026, r.ProductID, r.ProcessID, 1, r.ReceiptDate).
			Return(nil, nil)

		payments, err := f.svc.CalculateAdvanceBatch(context.Background(), CalculateRequest{
			CropYear:      2026,
			AdvanceNumber: 1,
			CutoffDate:    cutoff,
		})
		require.NoError(t, err)
		require.Len(t, payments, 1)
		assert.False(t, payments[0].IsValid())
		assert.Empty(t, payments[0].Details)
	})

	t.Run("flags tier price below posted prior tier", func(t *testing.T) {
		f := newCalcFixture()
		growerID := uuid.New()
		g := activeGrower(growerID, "G-203")
		r := testReceipt(growerID, "R-0004", 1000, "09:00")
		schedule := testSchedule(r, 2, "0.55")
		lock := pricing.NewPriceScheduleLockFromValues(uuid.New(), uuid.New(), 1,
			decimal.RequireFromString("0.60"), "poster")

		f.receipts.On("GrowersWithEligibleReceipts", mock.Anything, 2026, cutoff, 2, mock.Anything).
			Return([]uuid.UUID{growerID}, nil)
		f.growers.On("FindByID", mock.Anything, growerID).Return(g, nil)
		f.receipts.On("FindEligible", mock.Anything, mock.Anything).Return([]grower.Receipt{r}, nil)
		f.schedules.On("FindEffective", mock.Anything, 2026, r.ProductID, r.ProcessID, 2, r.ReceiptDate).
			Return(schedule, nil)
		f.schedules.On("FindTiers", mock.Anything, 2026, r.ProductID, r.ProcessID, 2, r.ReceiptDate).
			Return([]pricing.TierPrice{
				{AdvanceNumber: 1, PricePerLb: decimal.RequireFromString("0.50")},
				{AdvanceNumber: 2, PricePerLb: decimal.RequireFromString("0.55")},
			}, nil)
		f.priceLocks.On("FindLockedPrice", mock.Anything, 2026, r.ProductID, r.ProcessID, 1).
			Return(lock, nil)

		payments, err := f.svc.CalculateAdvanceBatch(context.Background(), CalculateRequest{
			CropYear:      2026,
			AdvanceNumber: 2,
			CutoffDate:    cutoff,
		})
		require.NoError(t, err)
		require.Len(t, payments, 1)
		assert.False(t, payments[0].IsValid())
		assert.Contains(t, payments[0].ValidationErrors[0], "below the posted advance 1 price")
	})

	t.Run("flags a schedule whose tier prices decrease", func(t *testing.T) {
		f := newCalcFixture()
		growerID := uuid.New()
		g := activeGrower(growerID, "G-204")
		r := testReceipt(growerID, "R-0005", 1000, "09:00")
		r2 := r
		r2.ReceiptNumber = "R-0006"
		schedule := testSchedule(r, 2, "0.45")

		f.receipts.On("GrowersWithEligibleReceipts", mock.Anything, 2026, cutoff, 2, mock.Anything).
			Return([]uuid.UUID{growerID}, nil)
		f.growers.On("FindByID", mock.Anything, growerID).Return(g, nil)
		f.receipts.On("FindEligible", mock.Anything, mock.Anything).Return([]grower.Receipt{r, r2}, nil)
		f.schedules.On("FindEffective", mock.Anything, 2026, r.ProductID, r.ProcessID, 2, r.ReceiptDate).
			Return(schedule, nil)
		f.schedules.On("FindTiers", mock.Anything, 2026, r.ProductID, r.ProcessID, 2, r.ReceiptDate).
			Return([]pricing.TierPrice{
				{AdvanceNumber: 1, PricePerLb: decimal.RequireFromString("0.50")},
				{AdvanceNumber: 2, PricePerLb: decimal.RequireFromString("0.45")},
			}, nil)

		payments, err := f.svc.CalculateAdvanceBatch(context.Background(), CalculateRequest{
			CropYear:      2026,
			AdvanceNumber: 2,
			CutoffDate:    cutoff,
		})
		require.NoError(t, err)
		require.Len(t, payments, 1)
		assert.False(t, payments[0].IsValid())
		require.Len(t, payments[0].ValidationErrors, 2)
		assert.Contains(t, payments[0].ValidationErrors[0], "below advance 1 price")
		f.priceLocks.AssertNotCalled(t, "FindLockedPrice",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		// one schedule read covers both receipts of the product/process
		f.schedules.AssertNumberOfCalls(t, "FindTiers", 1)
	})

	t.Run("flags inactive and held growers instead of dropping them", func(t *testing.T) {
		f := newCalcFixture()
		activeID, inactiveID, heldID := uuid.New(), uuid.New(), uuid.New()

		active := activeGrower(activeID, "G-300")
		inactive := activeGrower(inactiveID, "G-301")
		inactive.Active = false
		held := activeGrower(heldID, "G-302")
		held.OnHold = true

		f.receipts.On("GrowersWithEligibleReceipts", mock.Anything, 2026, cutoff, 1, mock.Anything).
			Return([]uuid.UUID{activeID, inactiveID, heldID}, nil)
		f.growers.On("FindByID", mock.Anything, activeID).Return(active, nil)
		f.growers.On("FindByID", mock.Anything, inactiveID).Return(inactive, nil)
		f.growers.On("FindByID", mock.Anything, heldID).Return(held, nil)

		for _, id := range []uuid.UUID{activeID, inactiveID, heldID} {
			r := testReceipt(id, "R-1000", 1000, "09:00")
			growerID := id
			f.receipts.On("FindEligible", mock.Anything, mock.MatchedBy(func(q grower.EligibilityQuery) bool {
				return q.GrowerID == growerID
			})).Return([]grower.Receipt{r}, nil)
			f.schedules.On("FindEffective", mock.Anything, 2026, r.ProductID, r.ProcessID, 1, r.ReceiptDate).
				Return(testSchedule(r, 1, "0.50"), nil)
		}

		payments, err := f.svc.CalculateAdvanceBatch(context.Background(), CalculateRequest{
			CropYear:      2026,
			AdvanceNumber: 1,
			CutoffDate:    cutoff,
		})
		require.NoError(t, err)
		require.Len(t, payments, 3)

		byNumber := make(map[string]*payment.GrowerPayment, len(payments))
		for _, p := range payments {
			byNumber[p.GrowerNumber] = p
		}
		assert.True(t, byNumber["G-300"].IsValid())
		assert.False(t, byNumber["G-301"].IsValid())
		assert.Contains(t, byNumber["G-301"].ValidationErrors[0], "is inactive")
		assert.False(t, byNumber["G-302"].IsValid())
		assert.Contains(t, byNumber["G-302"].ValidationErrors[0], "on payment hold")
		// flagged growers still price their receipts so the preview shows
		// what they would have been paid
		assert.True(t, byNumber["G-301"].AdvanceAmount.Equal(decimal.RequireFromString("500.00")))
	})

	t.Run("rejects advance number below one", func(t *testing.T) {
		f := newCalcFixture()
		_, err := f.svc.CalculateAdvanceBatch(context.Background(), CalculateRequest{
			CropYear:   2026,
			CutoffDate: cutoff,
		})
		assertDomainCode(t, err, "INVALID_ADVANCE_NUMBER")
	})
}

func TestCalculateFinalPayment(t *testing.T) {
	cutoff := time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC)

	run := func(t *testing.T, priorAdvances string) *calcFixture {
		t.Helper()
		f := newCalcFixture()
		growerID := uuid.New()
		g := activeGrower(growerID, "G-300")
		r := testReceipt(growerID, "R-0100", 1000, "10:00")
		schedule := testSchedule(r, pricing.FinalTier, "1.20")

		f.receipts.On("GrowersWithEligibleReceipts", mock.Anything, 2026, cutoff, pricing.FinalTier, mock.Anything).
			Return([]uuid.UUID{growerID}, nil)
		f.growers.On("FindByID", mock.Anything, growerID).Return(g, nil)
		f.receipts.On("FindEligible", mock.Anything, mock.Anything).Return([]grower.Receipt{r}, nil)
		f.schedules.On("FindEffective", mock.Anything, 2026, r.ProductID, r.ProcessID, pricing.FinalTier, r.ReceiptDate).
			Return(schedule, nil)
		f.allocs.On("SumActiveAdvances", mock.Anything, growerID, 2026).
			Return(decimal.RequireFromString(priorAdvances), nil)
		return f
	}

	t.Run("nets out advances already paid", func(t *testing.T) {
		f := run(t, "700.00")
		payments, err := f.svc.CalculateFinalPayment(context.Background(), CalculateRequest{
			CropYear:   2026,
			CutoffDate: cutoff,
		})
		require.NoError(t, err)
		require.Len(t, payments, 1)

		p := payments[0]
		assert.True(t, p.IsValid())
		// 1000 lb * 1.20 = 1200.00 full value; gross keeps the full value,
		// the 700.00 already advanced comes off the payable remainder
		assert.True(t, p.AdvanceAmount.Equal(decimal.RequireFromString("1200.00")))
		assert.True(t, p.PriorAdvances.Equal(decimal.RequireFromString("700.00")))
		assert.True(t, p.PayableAmount().Equal(decimal.RequireFromString("500.00")))
		assert.True(t, p.NetAmount.Equal(decimal.RequireFromString("500.00")))
	})

	t.Run("flags grower overpaid by advances", func(t *testing.T) {
		f := run(t, "1500.00")
		payments, err := f.svc.CalculateFinalPayment(context.Background(), CalculateRequest{
			CropYear:   2026,
			CutoffDate: cutoff,
		})
		require.NoError(t, err)
		require.Len(t, payments, 1)
		assert.False(t, payments[0].IsValid())
		assert.True(t, payments[0].PayableAmount().IsNegative())
	})
}
