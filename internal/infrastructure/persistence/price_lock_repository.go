package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/pricing"
	"gorm.io/gorm"
)

// GormPriceLockRepository implements PriceLockRepository using GORM
type GormPriceLockRepository struct {
	db *gorm.DB
}

// NewGormPriceLockRepository creates a new GormPriceLockRepository
func NewGormPriceLockRepository(db *gorm.DB) *GormPriceLockRepository {
	return &GormPriceLockRepository{db: db}
}

// Save persists a price lock. The unique (schedule, batch) index makes a
// double lock from a retried posting a conflict instead of a duplicate.
func (r *GormPriceLockRepository) Save(ctx context.Context, lock *pricing.PriceScheduleLock) error {
	return r.db.WithContext(ctx).Create(lock).Error
}

// FindByBatch returns the locks a batch holds
func (r *GormPriceLockRepository) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]pricing.PriceScheduleLock, error) {
	var locks []pricing.PriceScheduleLock
	if err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("locked_at ASC").
		Find(&locks).Error; err != nil {
		return nil, err
	}
	return locks, nil
}

// FindLockedPrice returns the locked per-pound price a prior advance actually
// paid for the product/process, or nil if that tier was never posted for it.
// The lock row stores only the schedule reference, so the product scope comes
// from joining back to the schedule.
func (r *GormPriceLockRepository) FindLockedPrice(ctx context.Context, cropYear int, productID, processID uuid.UUID, advanceNumber int) (*pricing.PriceScheduleLock, error) {
	var lock pricing.PriceScheduleLock
	err := r.db.WithContext(ctx).
		Joins("JOIN price_schedules ON price_schedules.id = price_schedule_locks.price_schedule_id").
		Where("price_schedules.crop_year = ? AND price_schedules.product_id = ? AND price_schedules.process_id = ?",
			cropYear, productID, processID).
		Where("price_schedule_locks.advance_number = ?", advanceNumber).
		Order("price_schedule_locks.locked_at DESC").
		First(&lock).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lock, nil
}

// ExistsForBatch reports whether the batch already locked the schedule row
func (r *GormPriceLockRepository) ExistsForBatch(ctx context.Context, batchID, priceScheduleID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&pricing.PriceScheduleLock{}).
		Where("batch_id = ? AND price_schedule_id = ?", batchID, priceScheduleID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
