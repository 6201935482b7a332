package grower

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/shared"
)

// GrowerRepository provides read access to grower master data
type GrowerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Grower, error)
	FindByNumber(ctx context.Context, number string) (*Grower, error)
	FindAll(ctx context.Context, filter GrowerFilter, page shared.Filter) ([]Grower, error)
}

// EligibilityQuery selects receipts for a payment run. AdvanceNumber is zero
// for a final payment.
type EligibilityQuery struct {
	GrowerID      uuid.UUID
	CropYear      int
	CutoffDate    time.Time
	AdvanceNumber int
	ProductIDs    []uuid.UUID
	DepotIDs      []uuid.UUID
}

// ReceiptRepository provides read access to receipts, including the
// eligibility filter: receipts dated on or before the cutoff, in the crop
// year, with no active allocation at the requested payment tier. Voided
// allocations do not block re-eligibility.
type ReceiptRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Receipt, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Receipt, error)
	FindEligible(ctx context.Context, q EligibilityQuery) ([]Receipt, error)
	// CountEligible is the cheap re-validation used at approval time to catch
	// receipts consumed by a concurrent batch since the draft was calculated.
	CountEligible(ctx context.Context, q EligibilityQuery) (int64, error)
	// GrowersWithEligibleReceipts lists the distinct growers an advance run
	// would cover, honoring the same eligibility rules.
	GrowersWithEligibleReceipts(ctx context.Context, cropYear int, cutoffDate time.Time, advanceNumber int, payGroup *string) ([]uuid.UUID, error)
}
