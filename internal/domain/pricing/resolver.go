package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/shared"
)

// ResolveKey identifies one price lookup. It doubles as the cache key for
// the read-through schedule cache on the calculation hot path.
type ResolveKey struct {
	CropYear      int
	ProductID     uuid.UUID
	ProcessID     uuid.UUID
	AdvanceNumber int
	Date          string // yyyy-mm-dd
}

// String renders the key for cache storage
func (k ResolveKey) String() string {
	return fmt.Sprintf("price:%d:%s:%s:%d:%s", k.CropYear, k.ProductID, k.ProcessID, k.AdvanceNumber, k.Date)
}

// ScheduleCache is a read-through cache over resolved schedule rows.
// Implementations live in infrastructure (Redis in production, in-memory in
// tests); a miss is never an error.
type ScheduleCache interface {
	Get(ctx context.Context, key ResolveKey) (*PriceSchedule, bool)
	Set(ctx context.Context, key ResolveKey, schedule *PriceSchedule)
}

// IsPriceNotFound reports whether err is the missing-price domain error.
// Callers downgrade it to a grower validation message.
func IsPriceNotFound(err error) bool {
	var domainErr *shared.DomainError
	return errors.As(err, &domainErr) && domainErr.Code == "PRICE_NOT_FOUND"
}

// Resolver looks up the price row applicable to a receipt for a payment
// tier. It only reads; locking rows against later edits happens at posting.
type Resolver struct {
	schedules PriceScheduleRepository
	cache     ScheduleCache
}

// NewResolver creates a price resolver. cache may be nil.
func NewResolver(schedules PriceScheduleRepository, cache ScheduleCache) *Resolver {
	return &Resolver{schedules: schedules, cache: cache}
}

// Resolve returns the schedule row in effect for the product/process/tier on
// the given date. Returns ErrPriceNotFound (as a DomainError) when no row
// applies; callers attach that to the grower as a validation message rather
// than failing the whole run.
func (r *Resolver) Resolve(ctx context.Context, cropYear int, productID, processID uuid.UUID, advanceNumber int, date time.Time) (*PriceSchedule, error) {
	key := ResolveKey{
		CropYear:      cropYear,
		ProductID:     productID,
		ProcessID:     processID,
		AdvanceNumber: advanceNumber,
		Date:          date.Format("2006-01-02"),
	}

	if r.cache != nil {
		if cached, ok := r.cache.Get(ctx, key); ok {
			return cached, nil
		}
	}

	schedule, err := r.schedules.FindEffective(ctx, cropYear, productID, processID, advanceNumber, date)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve price: %w", err)
	}
	if schedule == nil {
		return nil, shared.NewDomainError("PRICE_NOT_FOUND",
			fmt.Sprintf("No advance %d price for product %s process %s on %s",
				advanceNumber, productID, processID, key.Date))
	}

	if r.cache != nil {
		r.cache.Set(ctx, key, schedule)
	}
	return schedule, nil
}

// ResolveTiers returns the full tier sequence in effect on a date, used to
// validate monotonicity before a draft is calculated.
func (r *Resolver) ResolveTiers(ctx context.Context, cropYear int, productID, processID uuid.UUID, maxAdvance int, date time.Time) (TierSequence, error) {
	tiers, err := r.schedules.FindTiers(ctx, cropYear, productID, processID, maxAdvance, date)
	if err != nil {
		return TierSequence{}, fmt.Errorf("failed to load tier prices: %w", err)
	}
	return NewTierSequence(tiers), nil
}
