package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/payment"
	"github.com/harvestpay/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormExceptionRepository implements ExceptionRepository using GORM
type GormExceptionRepository struct {
	db *gorm.DB
}

// NewGormExceptionRepository creates a new GormExceptionRepository
func NewGormExceptionRepository(db *gorm.DB) *GormExceptionRepository {
	return &GormExceptionRepository{db: db}
}

// Save creates or updates an exception
func (r *GormExceptionRepository) Save(ctx context.Context, exception *payment.PaymentException) error {
	return r.db.WithContext(ctx).Save(exception).Error
}

// SaveAll persists a batch of exceptions in one statement
func (r *GormExceptionRepository) SaveAll(ctx context.Context, exceptions []*payment.PaymentException) error {
	if len(exceptions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Save(exceptions).Error
}

// FindByID finds an exception by its ID
func (r *GormExceptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.PaymentException, error) {
	var exception payment.PaymentException
	if err := r.db.WithContext(ctx).First(&exception, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &exception, nil
}

// List returns exceptions matching the filter, newest first
func (r *GormExceptionRepository) List(ctx context.Context, filter payment.ExceptionFilter) (*shared.Paginated[*payment.PaymentException], error) {
	query := r.db.WithContext(ctx).Model(&payment.PaymentException{})
	if filter.Severity != nil {
		query = query.Where("severity = ?", *filter.Severity)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.BatchID != nil {
		query = query.Where("batch_id = ?", *filter.BatchID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var exceptions []*payment.PaymentException
	if err := query.
		Order("detected_at DESC").
		Offset(filter.Offset).
		Limit(pageLimit(filter.Limit)).
		Find(&exceptions).Error; err != nil {
		return nil, err
	}

	page, pageSize := pageOf(filter.Offset, filter.Limit)
	result := shared.NewPaginated(exceptions, total, page, pageSize)
	return &result, nil
}
