package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/payment"
	"gorm.io/gorm"
)

// GormAuditLogRepository implements AuditLogRepository using GORM
type GormAuditLogRepository struct {
	db *gorm.DB
}

// NewGormAuditLogRepository creates a new GormAuditLogRepository
func NewGormAuditLogRepository(db *gorm.DB) *GormAuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

// Save appends an audit log row. Audit rows are never updated.
func (r *GormAuditLogRepository) Save(ctx context.Context, log *payment.PaymentAuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// FindByEntity returns the audit trail of one entity, oldest first
func (r *GormAuditLogRepository) FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]*payment.PaymentAuditLog, error) {
	var logs []*payment.PaymentAuditLog
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("occurred_at ASC, created_at ASC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// FindByActor returns everything one actor did within the date range
func (r *GormAuditLogRepository) FindByActor(ctx context.Context, actor string, from, to time.Time) ([]*payment.PaymentAuditLog, error) {
	var logs []*payment.PaymentAuditLog
	if err := r.db.WithContext(ctx).
		Where("actor = ? AND occurred_at >= ? AND occurred_at <= ?", actor, from, to).
		Order("occurred_at ASC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
