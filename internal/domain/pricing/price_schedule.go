package pricing

import (
	"time"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// FinalTier is the advance-number value used for final-payment price rows.
const FinalTier = 0

// PriceSchedule is one priced row: the per-pound rate for a product/process
// combination at a given payment tier, effective from a date. Advance tiers
// are numbered 1..N; tier 0 is the final-payment (full value) price.
//
// The payment core reads and locks these rows; editing them belongs to the
// reference-data subsystem.
type PriceSchedule struct {
	shared.BaseEntity
	CropYear      int             `gorm:"not null;index:idx_price_lookup,priority:1"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_price_lookup,priority:2"`
	ProcessID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_price_lookup,priority:3"`
	AdvanceNumber int             `gorm:"not null;index:idx_price_lookup,priority:4"`
	EffectiveFrom time.Time       `gorm:"not null;index:idx_price_lookup,priority:5"`
	PricePerLb    decimal.Decimal `gorm:"type:decimal(10,4);not null"`
	// Time-of-day premium: receipts weighed in before PremiumCutoff (HH:MM)
	// earn PremiumPerLb on top of the base price.
	PremiumCutoff string          `gorm:"type:varchar(5)"`
	PremiumPerLb  decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0"`
	// Marketing deduction withheld per pound.
	MarketingRatePerLb decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (PriceSchedule) TableName() string {
	return "price_schedules"
}

// HasPremium reports whether the row carries a time-of-day premium
func (p *PriceSchedule) HasPremium() bool {
	return p.PremiumCutoff != "" && p.PremiumPerLb.IsPositive()
}

// IsFinal reports whether this is a final-payment price row
func (p *PriceSchedule) IsFinal() bool {
	return p.AdvanceNumber == FinalTier
}
