package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/payment"
	"github.com/harvestpay/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormAccountRepository implements AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// Save creates or updates a ledger entry
func (r *GormAccountRepository) Save(ctx context.Context, entry *payment.AccountEntry) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

// SaveAll persists a batch of ledger entries in one statement
func (r *GormAccountRepository) SaveAll(ctx context.Context, entries []*payment.AccountEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Save(entries).Error
}

// FindByID finds a ledger entry by its ID
func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.AccountEntry, error) {
	var entry payment.AccountEntry
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// FindByBatch returns the ledger entries a batch posted, reversals included
func (r *GormAccountRepository) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]*payment.AccountEntry, error) {
	var entries []*payment.AccountEntry
	if err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("entry_date ASC, created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindByCheque returns the ledger entries attached to one cheque
func (r *GormAccountRepository) FindByCheque(ctx context.Context, chequeID uuid.UUID) ([]*payment.AccountEntry, error) {
	var entries []*payment.AccountEntry
	if err := r.db.WithContext(ctx).
		Where("cheque_id = ?", chequeID).
		Order("entry_date ASC, created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindByGrower returns a grower's ledger entries within the date range
func (r *GormAccountRepository) FindByGrower(ctx context.Context, growerID uuid.UUID, from, to time.Time) ([]*payment.AccountEntry, error) {
	var entries []*payment.AccountEntry
	if err := r.db.WithContext(ctx).
		Where("grower_id = ? AND entry_date >= ? AND entry_date <= ?", growerID, from, to).
		Order("entry_date ASC, created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ActiveBalance sums active entries for a grower
func (r *GormAccountRepository) ActiveBalance(ctx context.Context, growerID uuid.UUID) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&payment.AccountEntry{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("grower_id = ? AND voided_at IS NULL", growerID).
		Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}
