package pricing

import (
	"time"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PriceScheduleLock pins the price row a posted batch consumed. Once a lock
// exists, later edits to the schedule cannot silently alter posted history;
// the locked PricePerLb is the number of record for tier-monotonicity checks
// and final-payment math.
type PriceScheduleLock struct {
	shared.BaseEntity
	PriceScheduleID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_price_lock,priority:1"`
	BatchID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_price_lock,priority:2;index"`
	AdvanceNumber    int             `gorm:"not null"`
	LockedPricePerLb decimal.Decimal `gorm:"type:decimal(10,4);not null"`
	LockedAt         time.Time       `gorm:"not null"`
	LockedBy         string          `gorm:"type:varchar(100);not null"`
}

// TableName returns the table name for GORM
func (PriceScheduleLock) TableName() string {
	return "price_schedule_locks"
}

// NewPriceScheduleLock pins a schedule row to a batch
func NewPriceScheduleLock(schedule *PriceSchedule, batchID uuid.UUID, actor string) *PriceScheduleLock {
	return NewPriceScheduleLockFromValues(schedule.ID, batchID, schedule.AdvanceNumber, schedule.PricePerLb, actor)
}

// NewPriceScheduleLockFromValues pins an already-resolved price to a batch,
// used at posting where only the receipt detail survives from calculation.
func NewPriceScheduleLockFromValues(scheduleID, batchID uuid.UUID, advanceNumber int, pricePerLb decimal.Decimal, actor string) *PriceScheduleLock {
	return &PriceScheduleLock{
		BaseEntity:       shared.NewBaseEntity(),
		PriceScheduleID:  scheduleID,
		BatchID:          batchID,
		AdvanceNumber:    advanceNumber,
		LockedPricePerLb: pricePerLb,
		LockedAt:         time.Now(),
		LockedBy:         actor,
	}
}
