package payment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/shared"
	"github.com/harvestpay/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// AdvanceCheque is a standalone advance issued outside the batch cycle. It
// carries an outstanding balance that later payments draw down through
// deductions; the sum of active deductions can never exceed the original
// amount.
type AdvanceCheque struct {
	shared.AuditedAggregateRoot
	shared.Voidable
	AdvanceNumber     string               `gorm:"type:varchar(20);not null;uniqueIndex"` // human-readable, e.g. AC-2026-0042
	GrowerID          uuid.UUID            `gorm:"type:uuid;not null;index"`
	GrowerNumber      string               `gorm:"type:varchar(20);not null"`
	ChequeID          *uuid.UUID           `gorm:"type:uuid"` // the physical cheque that paid it out
	Currency          valueobject.Currency `gorm:"type:varchar(3);not null"`
	OriginalAmount    decimal.Decimal      `gorm:"type:decimal(14,2);not null"`
	OutstandingAmount decimal.Decimal      `gorm:"type:decimal(14,2);not null"`
	IssuedDate        time.Time            `gorm:"not null;index"`
	Status            AdvanceChequeStatus  `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	Memo              string               `gorm:"type:varchar(200)"`
}

// TableName returns the table name for GORM
func (AdvanceCheque) TableName() string {
	return "advance_cheques"
}

// NewAdvanceCheque issues a standalone advance
func NewAdvanceCheque(
	advanceNumber string,
	growerID uuid.UUID,
	growerNumber string,
	amount valueobject.Money,
	issuedDate time.Time,
	createdBy string,
) (*AdvanceCheque, error) {
	if advanceNumber == "" {
		return nil, shared.NewDomainError("INVALID_ADVANCE_NUMBER", "Advance number cannot be empty")
	}
	if growerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_GROWER", "Grower ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Advance amount must be positive")
	}
	if issuedDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Issued date is required")
	}
	if createdBy == "" {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Creating actor is required")
	}

	a := &AdvanceCheque{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(createdBy),
		AdvanceNumber:        advanceNumber,
		GrowerID:             growerID,
		GrowerNumber:         growerNumber,
		Currency:             amount.Currency(),
		OriginalAmount:       amount.Amount(),
		OutstandingAmount:    amount.Amount(),
		IssuedDate:           issuedDate,
		Status:               AdvanceStatusActive,
	}

	a.AddDomainEvent(NewAdvanceIssuedEvent(a))
	return a, nil
}

// ApplyDeduction draws down the outstanding balance. Amounts above the
// outstanding balance are rejected, never clamped.
func (a *AdvanceCheque) ApplyDeduction(amount decimal.Decimal) error {
	if !a.Status.HasOutstanding() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot deduct from advance in %s status", a.Status))
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Deduction amount must be positive")
	}
	if amount.GreaterThan(a.OutstandingAmount) {
		return shared.NewDomainError("INSUFFICIENT_BALANCE",
			fmt.Sprintf("Deduction %s exceeds outstanding balance %s on advance %s",
				amount.StringFixed(2), a.OutstandingAmount.StringFixed(2), a.AdvanceNumber))
	}

	a.OutstandingAmount = a.OutstandingAmount.Sub(amount)
	if a.OutstandingAmount.IsZero() {
		a.Status = AdvanceStatusFullyDeducted
	} else {
		a.Status = AdvanceStatusPartiallyDeducted
	}
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	return nil
}

// RestoreAmount returns a voided deduction's amount to the outstanding
// balance. The restored balance can never exceed the original amount.
func (a *AdvanceCheque) RestoreAmount(amount decimal.Decimal) error {
	if a.IsVoided() || a.Status == AdvanceStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Cannot restore balance on a cancelled advance")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Restore amount must be positive")
	}
	restored := a.OutstandingAmount.Add(amount)
	if restored.GreaterThan(a.OriginalAmount) {
		return shared.NewDomainError("RESTORE_EXCEEDS_ORIGINAL",
			fmt.Sprintf("Restoring %s would push advance %s past its original amount",
				amount.StringFixed(2), a.AdvanceNumber))
	}

	a.OutstandingAmount = restored
	if a.OutstandingAmount.Equal(a.OriginalAmount) {
		a.Status = AdvanceStatusActive
	} else {
		a.Status = AdvanceStatusPartiallyDeducted
	}
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	return nil
}

// Cancel voids the advance itself. Deductions already drawn from it are the
// voiding engine's problem; the advance's own balance is simply gone.
// Returns false when already cancelled.
func (a *AdvanceCheque) Cancel(actor, reason string) (bool, error) {
	if a.Status == AdvanceStatusCancelled {
		return false, nil
	}
	if actor == "" {
		return false, shared.NewDomainError("INVALID_ACTOR", "Cancelling actor is required")
	}
	if reason == "" {
		return false, shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	previous := a.Status
	a.Status = AdvanceStatusCancelled
	a.MarkVoided(actor, reason)
	a.OutstandingAmount = decimal.Zero
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	a.AddDomainEvent(NewAdvanceCancelledEvent(a, previous))
	return true, nil
}

// OverwriteOutstanding force-sets the outstanding balance during balance
// reconciliation. Callers must write an audit row alongside.
func (a *AdvanceCheque) OverwriteOutstanding(amount decimal.Decimal) {
	a.OutstandingAmount = amount
	switch {
	case amount.Equal(a.OriginalAmount):
		a.Status = AdvanceStatusActive
	case amount.IsZero():
		a.Status = AdvanceStatusFullyDeducted
	default:
		a.Status = AdvanceStatusPartiallyDeducted
	}
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
}

// DeductedAmount returns how much of the advance has been consumed
func (a *AdvanceCheque) DeductedAmount() decimal.Decimal {
	return a.OriginalAmount.Sub(a.OutstandingAmount)
}

// GetOutstandingMoney returns the outstanding balance as Money
func (a *AdvanceCheque) GetOutstandingMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(a.OutstandingAmount, a.Currency)
	return m
}
