package grower

import (
	"time"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/shared"
	"github.com/harvestpay/backend/internal/domain/shared/valueobject"
)

// Receipt is a harvested-product delivery weighed in at a depot. The payment
// core treats receipts as read-only input supplied by the receiving subsystem;
// the only payment-owned state about a receipt lives in allocation rows.
type Receipt struct {
	shared.BaseEntity
	ReceiptNumber string             `gorm:"type:varchar(20);not null;uniqueIndex"`
	GrowerID      uuid.UUID          `gorm:"type:uuid;not null;index"`
	ProductID     uuid.UUID          `gorm:"type:uuid;not null"`
	ProcessID     uuid.UUID          `gorm:"type:uuid;not null"`
	DepotID       uuid.UUID          `gorm:"type:uuid;not null"`
	CropYear      int                `gorm:"not null;index"`
	ReceiptDate   time.Time          `gorm:"not null;index"`
	ReceiptTime   string             `gorm:"type:varchar(5);not null"` // HH:MM, plant-local
	NetWeight     valueobject.Weight `gorm:"type:decimal(12,2);not null"`
}

// TableName returns the table name for GORM
func (Receipt) TableName() string {
	return "receipts"
}

// TimeOfDay parses the receipt's HH:MM clock time. A malformed value counts
// as after any premium cutoff rather than failing the calculation.
func (r *Receipt) TimeOfDay() (time.Duration, bool) {
	parsed, err := time.Parse("15:04", r.ReceiptTime)
	if err != nil {
		return 0, false
	}
	return time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute, true
}

// BeforeCutoff reports whether the receipt was weighed in before the given
// premium cutoff clock time (HH:MM).
func (r *Receipt) BeforeCutoff(cutoff string) bool {
	receiptTime, ok := r.TimeOfDay()
	if !ok {
		return false
	}
	cutoffParsed, err := time.Parse("15:04", cutoff)
	if err != nil {
		return false
	}
	cutoffTime := time.Duration(cutoffParsed.Hour())*time.Hour + time.Duration(cutoffParsed.Minute())*time.Minute
	return receiptTime < cutoffTime
}
