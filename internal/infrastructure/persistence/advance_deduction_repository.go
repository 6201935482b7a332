package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/payment"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormAdvanceDeductionRepository implements AdvanceDeductionRepository using GORM
type GormAdvanceDeductionRepository struct {
	db *gorm.DB
}

// NewGormAdvanceDeductionRepository creates a new GormAdvanceDeductionRepository
func NewGormAdvanceDeductionRepository(db *gorm.DB) *GormAdvanceDeductionRepository {
	return &GormAdvanceDeductionRepository{db: db}
}

// Save creates or updates a deduction
func (r *GormAdvanceDeductionRepository) Save(ctx context.Context, deduction *payment.AdvanceDeduction) error {
	return r.db.WithContext(ctx).Save(deduction).Error
}

// SaveAll persists a batch of deductions in one statement
func (r *GormAdvanceDeductionRepository) SaveAll(ctx context.Context, deductions []*payment.AdvanceDeduction) error {
	if len(deductions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Save(deductions).Error
}

// FindByBatch returns all deductions a batch applied, voided ones included
func (r *GormAdvanceDeductionRepository) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]*payment.AdvanceDeduction, error) {
	var deductions []*payment.AdvanceDeduction
	if err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("applied_date ASC, created_at ASC").
		Find(&deductions).Error; err != nil {
		return nil, err
	}
	return deductions, nil
}

// FindActiveByAdvance returns the live drawdowns against one advance
func (r *GormAdvanceDeductionRepository) FindActiveByAdvance(ctx context.Context, advanceChequeID uuid.UUID) ([]*payment.AdvanceDeduction, error) {
	var deductions []*payment.AdvanceDeduction
	if err := r.db.WithContext(ctx).
		Where("advance_cheque_id = ? AND voided_at IS NULL", advanceChequeID).
		Order("applied_date ASC, created_at ASC").
		Find(&deductions).Error; err != nil {
		return nil, err
	}
	return deductions, nil
}

// FindActiveByCheque returns the live deductions netted off one cheque
func (r *GormAdvanceDeductionRepository) FindActiveByCheque(ctx context.Context, chequeID uuid.UUID) ([]*payment.AdvanceDeduction, error) {
	var deductions []*payment.AdvanceDeduction
	if err := r.db.WithContext(ctx).
		Where("cheque_id = ? AND voided_at IS NULL", chequeID).
		Order("applied_date ASC, created_at ASC").
		Find(&deductions).Error; err != nil {
		return nil, err
	}
	return deductions, nil
}

// SumActiveByAdvance recomputes how much of an advance is consumed by active
// deductions, for balance audits
func (r *GormAdvanceDeductionRepository) SumActiveByAdvance(ctx context.Context, advanceChequeID uuid.UUID) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&payment.AdvanceDeduction{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("advance_cheque_id = ? AND voided_at IS NULL", advanceChequeID).
		Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

// FindOrphaned returns active deductions whose advance is cancelled or whose
// batch is voided. A clean ledger returns nothing here.
func (r *GormAdvanceDeductionRepository) FindOrphaned(ctx context.Context) ([]*payment.AdvanceDeduction, error) {
	var deductions []*payment.AdvanceDeduction
	if err := r.db.WithContext(ctx).
		Joins("LEFT JOIN advance_cheques ON advance_cheques.id = advance_deductions.advance_cheque_id").
		Joins("LEFT JOIN payment_batches ON payment_batches.id = advance_deductions.batch_id").
		Where("advance_deductions.voided_at IS NULL").
		Where("advance_cheques.status = ? OR advance_cheques.voided_at IS NOT NULL OR payment_batches.status = ?",
			payment.AdvanceStatusCancelled, payment.BatchStatusVoided).
		Find(&deductions).Error; err != nil {
		return nil, err
	}
	return deductions, nil
}
