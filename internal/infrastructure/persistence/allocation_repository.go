package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/payment"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormAllocationRepository implements AllocationRepository using GORM
type GormAllocationRepository struct {
	db *gorm.DB
}

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// Save creates or updates an allocation
func (r *GormAllocationRepository) Save(ctx context.Context, allocation *payment.ReceiptPaymentAllocation) error {
	return r.db.WithContext(ctx).Save(allocation).Error
}

// SaveAll persists a batch of allocations in one statement
func (r *GormAllocationRepository) SaveAll(ctx context.Context, allocations []*payment.ReceiptPaymentAllocation) error {
	if len(allocations) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Save(allocations).Error
}

// FindByBatch returns all allocations a batch wrote, voided ones included
func (r *GormAllocationRepository) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]*payment.ReceiptPaymentAllocation, error) {
	var allocations []*payment.ReceiptPaymentAllocation
	if err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at ASC").
		Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

// FindActiveByBatch returns the batch's live allocations
func (r *GormAllocationRepository) FindActiveByBatch(ctx context.Context, batchID uuid.UUID) ([]*payment.ReceiptPaymentAllocation, error) {
	var allocations []*payment.ReceiptPaymentAllocation
	if err := r.db.WithContext(ctx).
		Where("batch_id = ? AND voided_at IS NULL", batchID).
		Order("created_at ASC").
		Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

// FindActiveByCheque returns the live allocations behind one cheque
func (r *GormAllocationRepository) FindActiveByCheque(ctx context.Context, chequeID uuid.UUID) ([]*payment.ReceiptPaymentAllocation, error) {
	var allocations []*payment.ReceiptPaymentAllocation
	if err := r.db.WithContext(ctx).
		Where("cheque_id = ? AND voided_at IS NULL", chequeID).
		Order("created_at ASC").
		Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

// FindActiveByReceipt returns the live allocations consuming one receipt
func (r *GormAllocationRepository) FindActiveByReceipt(ctx context.Context, receiptID uuid.UUID) ([]*payment.ReceiptPaymentAllocation, error) {
	var allocations []*payment.ReceiptPaymentAllocation
	if err := r.db.WithContext(ctx).
		Where("receipt_id = ? AND voided_at IS NULL", receiptID).
		Order("advance_number ASC").
		Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

// ExistsActive reports whether the receipt already carries a live allocation
// at the given advance number
func (r *GormAllocationRepository) ExistsActive(ctx context.Context, receiptID uuid.UUID, advanceNumber int) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&payment.ReceiptPaymentAllocation{}).
		Where("receipt_id = ? AND advance_number = ? AND voided_at IS NULL", receiptID, advanceNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SumActiveAdvances sums active advance-tier allocation amounts for the
// grower across the crop year. Final settlement subtracts this stored figure
// rather than re-deriving it from prices.
func (r *GormAllocationRepository) SumActiveAdvances(ctx context.Context, growerID uuid.UUID, cropYear int) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&payment.ReceiptPaymentAllocation{}).
		Select("COALESCE(SUM(receipt_payment_allocations.amount), 0) AS total").
		Joins("JOIN receipts ON receipts.id = receipt_payment_allocations.receipt_id").
		Where("receipt_payment_allocations.grower_id = ?", growerID).
		Where("receipt_payment_allocations.advance_number > 0").
		Where("receipt_payment_allocations.voided_at IS NULL").
		Where("receipts.crop_year = ?", cropYear).
		Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}
