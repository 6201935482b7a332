package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AdvanceDeduction records one drawdown of an advance cheque by a later
// payment. Voiding a deduction restores the amount to the advance's
// outstanding balance.
type AdvanceDeduction struct {
	shared.BaseEntity
	shared.Voidable
	AdvanceChequeID uuid.UUID       `gorm:"type:uuid;not null;index"`
	BatchID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	GrowerID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ChequeID        *uuid.UUID      `gorm:"type:uuid"` // the cheque whose net amount the deduction reduced
	Amount          decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	AppliedDate     time.Time       `gorm:"not null"`
	Manual          bool            `gorm:"not null;default:false"` // operator-directed rather than FIFO
}

// TableName returns the table name for GORM
func (AdvanceDeduction) TableName() string {
	return "advance_deductions"
}

// NewAdvanceDeduction creates a deduction record
func NewAdvanceDeduction(
	advanceChequeID, batchID, growerID uuid.UUID,
	amount decimal.Decimal,
	appliedDate time.Time,
	manual bool,
) (*AdvanceDeduction, error) {
	if advanceChequeID == uuid.Nil || batchID == uuid.Nil || growerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Deduction requires advance, batch and grower references")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Deduction amount must be positive")
	}

	return &AdvanceDeduction{
		BaseEntity:      shared.NewBaseEntity(),
		AdvanceChequeID: advanceChequeID,
		BatchID:         batchID,
		GrowerID:        growerID,
		Amount:          amount,
		AppliedDate:     appliedDate,
		Manual:          manual,
	}, nil
}

// AttachCheque links the deduction to the cheque it reduced
func (d *AdvanceDeduction) AttachCheque(chequeID uuid.UUID) {
	d.ChequeID = &chequeID
	d.UpdatedAt = time.Now()
}

// Void marks the deduction reversed. Returns false when already voided.
func (d *AdvanceDeduction) Void(actor, reason string) bool {
	if !d.MarkVoided(actor, reason) {
		return false
	}
	d.UpdatedAt = time.Now()
	return true
}
