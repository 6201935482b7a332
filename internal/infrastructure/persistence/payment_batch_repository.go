package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/payment"
	"github.com/harvestpay/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormPaymentBatchRepository implements PaymentBatchRepository using GORM
type GormPaymentBatchRepository struct {
	db *gorm.DB
}

// NewGormPaymentBatchRepository creates a new GormPaymentBatchRepository
func NewGormPaymentBatchRepository(db *gorm.DB) *GormPaymentBatchRepository {
	return &GormPaymentBatchRepository{db: db}
}

// Save creates or updates a payment batch
func (r *GormPaymentBatchRepository) Save(ctx context.Context, batch *payment.PaymentBatch) error {
	return r.db.WithContext(ctx).Save(batch).Error
}

// SaveWithLock saves a batch with optimistic locking (version check)
func (r *GormPaymentBatchRepository) SaveWithLock(ctx context.Context, batch *payment.PaymentBatch) error {
	result := r.db.WithContext(ctx).
		Model(&payment.PaymentBatch{}).
		Where("id = ? AND version = ?", batch.ID, batch.Version-1).
		Updates(batch)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("OPTIMISTIC_LOCK_ERROR", "The batch has been modified by another transaction")
	}
	return nil
}

// FindByID finds a batch by its ID
func (r *GormPaymentBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.PaymentBatch, error) {
	var batch payment.PaymentBatch
	if err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// FindByNumber finds a batch by its human-readable batch number
func (r *GormPaymentBatchRepository) FindByNumber(ctx context.Context, batchNumber string) (*payment.PaymentBatch, error) {
	var batch payment.PaymentBatch
	if err := r.db.WithContext(ctx).First(&batch, "batch_number = ?", batchNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// List returns batches matching the filter, newest first
func (r *GormPaymentBatchRepository) List(ctx context.Context, filter payment.BatchFilter) (*shared.Paginated[*payment.PaymentBatch], error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&payment.PaymentBatch{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	sortField := ValidateSortField(filter.SortBy, BatchSortFields, "batch_date")
	sortDir := ValidateSortOrder(filter.SortDir)

	var batches []*payment.PaymentBatch
	if err := query.
		Order(sortField + " " + sortDir + ", batch_number DESC").
		Offset(filter.Offset).
		Limit(pageLimit(filter.Limit)).
		Find(&batches).Error; err != nil {
		return nil, err
	}

	page, pageSize := pageOf(filter.Offset, filter.Limit)
	result := shared.NewPaginated(batches, total, page, pageSize)
	return &result, nil
}

// ExistsPosted reports whether a posted or finalized batch already covers the
// tier for the crop year and pay group. A nil payGroup matches runs over all
// pay groups as well as unscoped runs.
func (r *GormPaymentBatchRepository) ExistsPosted(ctx context.Context, cropYear, advanceNumber int, payGroup *string) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&payment.PaymentBatch{}).
		Where("crop_year = ? AND advance_number = ?", cropYear, advanceNumber).
		Where("status IN ?", []payment.BatchStatus{payment.BatchStatusPosted, payment.BatchStatusFinalized})

	if payGroup != nil {
		query = query.Where("pay_group = ? OR pay_group IS NULL", *payGroup)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByConsolidatedInto returns the source batches a distribution payment absorbed
func (r *GormPaymentBatchRepository) FindByConsolidatedInto(ctx context.Context, distributionNumber string) ([]*payment.PaymentBatch, error) {
	var batches []*payment.PaymentBatch
	if err := r.db.WithContext(ctx).
		Where("consolidated_into = ?", distributionNumber).
		Order("batch_number ASC").
		Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// Delete removes a batch. Only drafts are ever deleted; posted history is
// voided, never removed.
func (r *GormPaymentBatchRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&payment.PaymentBatch{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormPaymentBatchRepository) applyFilter(query *gorm.DB, filter payment.BatchFilter) *gorm.DB {
	if filter.CropYear != nil {
		query = query.Where("crop_year = ?", *filter.CropYear)
	}
	if filter.PaymentType != nil {
		query = query.Where("payment_type = ?", *filter.PaymentType)
	}
	if filter.AdvanceNumber != nil {
		query = query.Where("advance_number = ?", *filter.AdvanceNumber)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.PayGroup != nil {
		query = query.Where("pay_group = ?", *filter.PayGroup)
	}
	if filter.FromDate != nil {
		query = query.Where("batch_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("batch_date <= ?", *filter.ToDate)
	}
	return query
}
