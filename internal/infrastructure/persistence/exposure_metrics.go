package persistence

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/harvestpay/backend/internal/infrastructure/telemetry"
)

// GormExposureMetricsProvider answers the periodic exposure queries for
// business metrics collection straight from the database.
type GormExposureMetricsProvider struct {
	db *gorm.DB
}

// NewGormExposureMetricsProvider creates an exposure metrics provider
func NewGormExposureMetricsProvider(db *gorm.DB) *GormExposureMetricsProvider {
	return &GormExposureMetricsProvider{db: db}
}

var _ telemetry.ExposureMetricsProvider = (*GormExposureMetricsProvider)(nil)

// GetOutstandingAdvanceTotal sums the outstanding balance of all
// non-cancelled, non-voided advances, in cents
func (p *GormExposureMetricsProvider) GetOutstandingAdvanceTotal(ctx context.Context) (int64, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := p.db.WithContext(ctx).
		Table("advance_cheques").
		Select("COALESCE(SUM(outstanding_amount), 0) AS total").
		Where("voided_at IS NULL AND status <> ?", "CANCELLED").
		Scan(&row).Error
	if err != nil {
		return 0, err
	}
	return row.Total.Mul(decimal.NewFromInt(100)).IntPart(), nil
}

// GetOpenExceptionCount counts open reconciliation exceptions
func (p *GormExposureMetricsProvider) GetOpenExceptionCount(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("payment_exceptions").
		Where("status = ?", "OPEN").
		Count(&count).Error
	return count, err
}
