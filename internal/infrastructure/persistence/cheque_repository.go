package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/payment"
	"github.com/harvestpay/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormChequeRepository implements ChequeRepository using GORM
type GormChequeRepository struct {
	db *gorm.DB
}

// NewGormChequeRepository creates a new GormChequeRepository
func NewGormChequeRepository(db *gorm.DB) *GormChequeRepository {
	return &GormChequeRepository{db: db}
}

// Save creates or updates a cheque
func (r *GormChequeRepository) Save(ctx context.Context, cheque *payment.Cheque) error {
	return r.db.WithContext(ctx).Save(cheque).Error
}

// SaveAll persists a batch of cheques in one statement
func (r *GormChequeRepository) SaveAll(ctx context.Context, cheques []*payment.Cheque) error {
	if len(cheques) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Save(cheques).Error
}

// FindByID finds a cheque by its ID
func (r *GormChequeRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.Cheque, error) {
	var cheque payment.Cheque
	if err := r.db.WithContext(ctx).First(&cheque, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &cheque, nil
}

// FindByReference finds a cheque by its printed series and number
func (r *GormChequeRepository) FindByReference(ctx context.Context, series string, chequeNumber int64) (*payment.Cheque, error) {
	var cheque payment.Cheque
	if err := r.db.WithContext(ctx).
		Where("series = ? AND cheque_number = ?", series, chequeNumber).
		First(&cheque).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &cheque, nil
}

// FindByBatch returns all cheques a batch generated, voided ones included
func (r *GormChequeRepository) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]*payment.Cheque, error) {
	var cheques []*payment.Cheque
	if err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("series ASC, cheque_number ASC").
		Find(&cheques).Error; err != nil {
		return nil, err
	}
	return cheques, nil
}

// List returns cheques matching the filter
func (r *GormChequeRepository) List(ctx context.Context, filter payment.ChequeFilter) (*shared.Paginated[*payment.Cheque], error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&payment.Cheque{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var cheques []*payment.Cheque
	if err := query.
		Order("cheque_date DESC, cheque_number DESC").
		Offset(filter.Offset).
		Limit(pageLimit(filter.Limit)).
		Find(&cheques).Error; err != nil {
		return nil, err
	}

	page, pageSize := pageOf(filter.Offset, filter.Limit)
	result := shared.NewPaginated(cheques, total, page, pageSize)
	return &result, nil
}

func (r *GormChequeRepository) applyFilter(query *gorm.DB, filter payment.ChequeFilter) *gorm.DB {
	if filter.GrowerID != nil {
		query = query.Where("grower_id = ?", *filter.GrowerID)
	}
	if filter.BatchID != nil {
		query = query.Where("batch_id = ?", *filter.BatchID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Series != nil {
		query = query.Where("series = ?", *filter.Series)
	}
	if filter.FromDate != nil {
		query = query.Where("cheque_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("cheque_date <= ?", *filter.ToDate)
	}
	return query
}
