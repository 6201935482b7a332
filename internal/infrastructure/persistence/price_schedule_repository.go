package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/pricing"
	"github.com/harvestpay/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormPriceScheduleRepository implements PriceScheduleRepository using GORM
type GormPriceScheduleRepository struct {
	db *gorm.DB
}

// NewGormPriceScheduleRepository creates a new GormPriceScheduleRepository
func NewGormPriceScheduleRepository(db *gorm.DB) *GormPriceScheduleRepository {
	return &GormPriceScheduleRepository{db: db}
}

// FindByID finds a schedule row by its ID
func (r *GormPriceScheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*pricing.PriceSchedule, error) {
	var schedule pricing.PriceSchedule
	if err := r.db.WithContext(ctx).First(&schedule, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &schedule, nil
}

// FindEffective returns the row with the latest EffectiveFrom on or before
// the given date for the product/process/tier, or nil when no row applies
func (r *GormPriceScheduleRepository) FindEffective(ctx context.Context, cropYear int, productID, processID uuid.UUID, advanceNumber int, date time.Time) (*pricing.PriceSchedule, error) {
	var schedule pricing.PriceSchedule
	err := r.db.WithContext(ctx).
		Where("crop_year = ? AND product_id = ? AND process_id = ? AND advance_number = ?",
			cropYear, productID, processID, advanceNumber).
		Where("effective_from <= ?", date).
		Order("effective_from DESC").
		First(&schedule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// FindTiers returns the effective price per tier up to and including
// maxAdvance, for monotonicity validation. Tier 0 (final) is excluded; only
// advance tiers order against each other.
func (r *GormPriceScheduleRepository) FindTiers(ctx context.Context, cropYear int, productID, processID uuid.UUID, maxAdvance int, date time.Time) ([]pricing.TierPrice, error) {
	// One row per tier: the latest effective_from on or before the date.
	var rows []pricing.PriceSchedule
	if err := r.db.WithContext(ctx).
		Where("crop_year = ? AND product_id = ? AND process_id = ?", cropYear, productID, processID).
		Where("advance_number BETWEEN 1 AND ?", maxAdvance).
		Where("effective_from <= ?", date).
		Order("advance_number ASC, effective_from DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	tiers := make([]pricing.TierPrice, 0, maxAdvance)
	seen := make(map[int]bool, maxAdvance)
	for _, row := range rows {
		if seen[row.AdvanceNumber] {
			continue
		}
		seen[row.AdvanceNumber] = true
		tiers = append(tiers, pricing.TierPrice{
			AdvanceNumber: row.AdvanceNumber,
			PricePerLb:    row.PricePerLb,
		})
	}
	return tiers, nil
}
