package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/grower"
	"github.com/harvestpay/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormReceiptRepository implements ReceiptRepository using GORM
type GormReceiptRepository struct {
	db *gorm.DB
}

// NewGormReceiptRepository creates a new GormReceiptRepository
func NewGormReceiptRepository(db *gorm.DB) *GormReceiptRepository {
	return &GormReceiptRepository{db: db}
}

// FindByID finds a receipt by its ID
func (r *GormReceiptRepository) FindByID(ctx context.Context, id uuid.UUID) (*grower.Receipt, error) {
	var receipt grower.Receipt
	if err := r.db.WithContext(ctx).First(&receipt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &receipt, nil
}

// FindByIDs returns the receipts for the given IDs
func (r *GormReceiptRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]grower.Receipt, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var receipts []grower.Receipt
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&receipts).Error; err != nil {
		return nil, err
	}
	return receipts, nil
}

// FindEligible returns the grower's receipts eligible for the payment tier:
// in the crop year, dated on or before the cutoff, with no active allocation
// at that tier. Voided allocations do not block re-eligibility.
func (r *GormReceiptRepository) FindEligible(ctx context.Context, q grower.EligibilityQuery) ([]grower.Receipt, error) {
	var receipts []grower.Receipt
	if err := r.eligibleQuery(ctx, q).
		Order("receipt_date ASC, receipt_number ASC").
		Find(&receipts).Error; err != nil {
		return nil, err
	}
	return receipts, nil
}

// CountEligible is the cheap re-validation used at approval time to catch
// receipts consumed by a concurrent batch since the draft was calculated
func (r *GormReceiptRepository) CountEligible(ctx context.Context, q grower.EligibilityQuery) (int64, error) {
	var count int64
	if err := r.eligibleQuery(ctx, q).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GrowersWithEligibleReceipts lists the distinct growers an advance run
// would cover, honoring the same eligibility rules. Inactive and on-hold
// growers stay in the list; calculation flags them so the run reports them
// instead of silently dropping them.
func (r *GormReceiptRepository) GrowersWithEligibleReceipts(ctx context.Context, cropYear int, cutoffDate time.Time, advanceNumber int, payGroup *string) ([]uuid.UUID, error) {
	query := r.db.WithContext(ctx).
		Model(&grower.Receipt{}).
		Joins("JOIN growers ON growers.id = receipts.grower_id").
		Where("receipts.crop_year = ? AND receipts.receipt_date <= ?", cropYear, cutoffDate).
		Where(notYetAllocated, advanceNumber)

	if payGroup != nil {
		query = query.Where("growers.pay_group = ?", *payGroup)
	}

	var growerIDs []uuid.UUID
	if err := query.
		Distinct("receipts.grower_id").
		Order("receipts.grower_id").
		Pluck("receipts.grower_id", &growerIDs).Error; err != nil {
		return nil, err
	}
	return growerIDs, nil
}

// notYetAllocated excludes receipts already consumed at the tier. The
// allocation's soft-void column is part of the predicate so a voided batch
// frees its receipts.
const notYetAllocated = `NOT EXISTS (
	SELECT 1 FROM receipt_payment_allocations a
	WHERE a.receipt_id = receipts.id
	  AND a.advance_number = ?
	  AND a.voided_at IS NULL
)`

func (r *GormReceiptRepository) eligibleQuery(ctx context.Context, q grower.EligibilityQuery) *gorm.DB {
	query := r.db.WithContext(ctx).
		Model(&grower.Receipt{}).
		Where("receipts.grower_id = ?", q.GrowerID).
		Where("receipts.crop_year = ? AND receipts.receipt_date <= ?", q.CropYear, q.CutoffDate).
		Where(notYetAllocated, q.AdvanceNumber)

	if len(q.ProductIDs) > 0 {
		query = query.Where("receipts.product_id IN ?", q.ProductIDs)
	}
	if len(q.DepotIDs) > 0 {
		query = query.Where("receipts.depot_id IN ?", q.DepotIDs)
	}
	return query
}
