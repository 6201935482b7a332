package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PriceScheduleRepository provides read access to the price schedule
type PriceScheduleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PriceSchedule, error)
	// FindEffective returns the row with the latest EffectiveFrom on or
	// before the given date for the product/process/tier, or nil.
	FindEffective(ctx context.Context, cropYear int, productID, processID uuid.UUID, advanceNumber int, date time.Time) (*PriceSchedule, error)
	// FindTiers returns the effective price per tier up to and including
	// maxAdvance, for monotonicity validation.
	FindTiers(ctx context.Context, cropYear int, productID, processID uuid.UUID, maxAdvance int, date time.Time) ([]TierPrice, error)
}

// PriceLockRepository persists and queries price-schedule locks
type PriceLockRepository interface {
	Save(ctx context.Context, lock *PriceScheduleLock) error
	FindByBatch(ctx context.Context, batchID uuid.UUID) ([]PriceScheduleLock, error)
	// FindLockedPrice returns the locked per-pound price a prior advance
	// actually paid for the product/process, or nil if that tier was never
	// posted for it.
	FindLockedPrice(ctx context.Context, cropYear int, productID, processID uuid.UUID, advanceNumber int) (*PriceScheduleLock, error)
	ExistsForBatch(ctx context.Context, batchID, priceScheduleID uuid.UUID) (bool, error)
}
