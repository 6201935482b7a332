package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ReceiptPaymentAllocation marks a receipt as paid at a given advance tier.
// A receipt can carry at most one active allocation per advance number; a
// voided allocation returns the receipt to the eligible pool for that tier.
type ReceiptPaymentAllocation struct {
	shared.BaseEntity
	shared.Voidable
	ReceiptID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_alloc_receipt_advance"`
	GrowerID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	BatchID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	ChequeID        *uuid.UUID      `gorm:"type:uuid"`
	AdvanceNumber   int             `gorm:"not null;index:idx_alloc_receipt_advance"` // 0 means final payment
	PriceScheduleID uuid.UUID       `gorm:"type:uuid;not null"`
	PricePerLb      decimal.Decimal `gorm:"type:decimal(10,6);not null"`
	NetWeight       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Amount          decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	PremiumAmount   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	MarketingAmount decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	AllocatedDate   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReceiptPaymentAllocation) TableName() string {
	return "receipt_payment_allocations"
}

// NewReceiptPaymentAllocation creates an allocation from a calculated receipt detail
func NewReceiptPaymentAllocation(
	batchID, growerID uuid.UUID,
	detail ReceiptDetail,
	allocatedDate time.Time,
) (*ReceiptPaymentAllocation, error) {
	if batchID == uuid.Nil || growerID == uuid.Nil || detail.ReceiptID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Allocation requires batch, grower and receipt references")
	}
	if detail.PriceScheduleID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Allocation requires the resolved price schedule")
	}

	return &ReceiptPaymentAllocation{
		BaseEntity:      shared.NewBaseEntity(),
		ReceiptID:       detail.ReceiptID,
		GrowerID:        growerID,
		BatchID:         batchID,
		AdvanceNumber:   detail.AdvanceNumber,
		PriceScheduleID: detail.PriceScheduleID,
		PricePerLb:      detail.PricePerLb,
		NetWeight:       detail.NetWeight,
		Amount:          detail.Amount,
		PremiumAmount:   detail.PremiumAmount,
		MarketingAmount: detail.MarketingAmount,
		AllocatedDate:   allocatedDate,
	}, nil
}

// AttachCheque links the allocation to the cheque that paid it
func (a *ReceiptPaymentAllocation) AttachCheque(chequeID uuid.UUID) {
	a.ChequeID = &chequeID
	a.UpdatedAt = time.Now()
}

// Void releases the receipt back to the eligible pool for this advance.
// Returns false when already voided.
func (a *ReceiptPaymentAllocation) Void(actor, reason string) bool {
	if !a.MarkVoided(actor, reason) {
		return false
	}
	a.UpdatedAt = time.Now()
	return true
}
