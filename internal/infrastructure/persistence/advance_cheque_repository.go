package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/payment"
	"github.com/harvestpay/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAdvanceChequeRepository implements AdvanceChequeRepository using GORM
type GormAdvanceChequeRepository struct {
	db *gorm.DB
}

// NewGormAdvanceChequeRepository creates a new GormAdvanceChequeRepository
func NewGormAdvanceChequeRepository(db *gorm.DB) *GormAdvanceChequeRepository {
	return &GormAdvanceChequeRepository{db: db}
}

// Save creates or updates an advance cheque
func (r *GormAdvanceChequeRepository) Save(ctx context.Context, advance *payment.AdvanceCheque) error {
	return r.db.WithContext(ctx).Save(advance).Error
}

// SaveWithLock saves an advance with optimistic locking (version check)
func (r *GormAdvanceChequeRepository) SaveWithLock(ctx context.Context, advance *payment.AdvanceCheque) error {
	result := r.db.WithContext(ctx).
		Model(&payment.AdvanceCheque{}).
		Where("id = ? AND version = ?", advance.ID, advance.Version-1).
		Updates(advance)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("OPTIMISTIC_LOCK_ERROR", "The advance has been modified by another transaction")
	}
	return nil
}

// FindByID finds an advance by its ID
func (r *GormAdvanceChequeRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.AdvanceCheque, error) {
	var advance payment.AdvanceCheque
	if err := r.db.WithContext(ctx).First(&advance, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &advance, nil
}

// FindByNumber finds an advance by its human-readable number
func (r *GormAdvanceChequeRepository) FindByNumber(ctx context.Context, advanceNumber string) (*payment.AdvanceCheque, error) {
	var advance payment.AdvanceCheque
	if err := r.db.WithContext(ctx).
		Where("advance_number = ?", advanceNumber).
		First(&advance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &advance, nil
}

// FindOutstandingByGrower returns the grower's advances still carrying a
// balance, oldest first for FIFO drawdown. Rows are locked FOR UPDATE so two
// concurrent postings cannot draw down the same balance.
func (r *GormAdvanceChequeRepository) FindOutstandingByGrower(ctx context.Context, growerID uuid.UUID) ([]*payment.AdvanceCheque, error) {
	var advances []*payment.AdvanceCheque
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("grower_id = ? AND voided_at IS NULL", growerID).
		Where("status IN ?", []payment.AdvanceChequeStatus{payment.AdvanceStatusActive, payment.AdvanceStatusPartiallyDeducted}).
		Where("outstanding_amount > 0").
		Order("issued_date ASC, advance_number ASC").
		Find(&advances).Error; err != nil {
		return nil, err
	}
	return advances, nil
}

// FindByGrower returns all of a grower's advances, newest first
func (r *GormAdvanceChequeRepository) FindByGrower(ctx context.Context, growerID uuid.UUID) ([]*payment.AdvanceCheque, error) {
	var advances []*payment.AdvanceCheque
	if err := r.db.WithContext(ctx).
		Where("grower_id = ?", growerID).
		Order("issued_date DESC, advance_number DESC").
		Find(&advances).Error; err != nil {
		return nil, err
	}
	return advances, nil
}

// FindActive returns all non-cancelled advances, for balance audits
func (r *GormAdvanceChequeRepository) FindActive(ctx context.Context) ([]*payment.AdvanceCheque, error) {
	var advances []*payment.AdvanceCheque
	if err := r.db.WithContext(ctx).
		Where("voided_at IS NULL AND status <> ?", payment.AdvanceStatusCancelled).
		Order("issued_date ASC, advance_number ASC").
		Find(&advances).Error; err != nil {
		return nil, err
	}
	return advances, nil
}
