package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/shared"
	"github.com/harvestpay/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// AccountEntry is one line in the grower payment ledger. Entries are
// append-only: a reversal writes an offsetting entry and soft-voids the
// original, nothing is ever rewritten in place.
type AccountEntry struct {
	shared.BaseEntity
	shared.Voidable
	GrowerID     uuid.UUID            `gorm:"type:uuid;not null;index"`
	GrowerNumber string               `gorm:"type:varchar(20);not null"`
	BatchID      *uuid.UUID           `gorm:"type:uuid;index"`
	ChequeID     *uuid.UUID           `gorm:"type:uuid;index"`
	EntryType    AccountEntryType     `gorm:"type:varchar(20);not null;index"`
	Currency     valueobject.Currency `gorm:"type:varchar(3);not null"`
	Amount       decimal.Decimal      `gorm:"type:decimal(14,2);not null"` // signed; deductions post negative
	EntryDate    time.Time            `gorm:"not null;index"`
	Description  string               `gorm:"type:varchar(200);not null"`
	ReversalOfID *uuid.UUID           `gorm:"type:uuid"` // set on offsetting entries
	CreatedBy    string               `gorm:"type:varchar(100);not null"`
}

// TableName returns the table name for GORM
func (AccountEntry) TableName() string {
	return "account_entries"
}

// NewAccountEntry creates a ledger entry
func NewAccountEntry(
	growerID uuid.UUID,
	growerNumber string,
	entryType AccountEntryType,
	amount valueobject.Money,
	entryDate time.Time,
	description string,
	createdBy string,
) (*AccountEntry, error) {
	if growerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_GROWER", "Ledger entry requires a grower")
	}
	if !entryType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ENTRY_TYPE", "Unknown ledger entry type")
	}
	if amount.IsZero() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Ledger entry amount cannot be zero")
	}
	if description == "" {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Ledger entry requires a description")
	}
	if createdBy == "" {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Creating actor is required")
	}

	return &AccountEntry{
		BaseEntity:   shared.NewBaseEntity(),
		GrowerID:     growerID,
		GrowerNumber: growerNumber,
		EntryType:    entryType,
		Currency:     amount.Currency(),
		Amount:       amount.Amount(),
		EntryDate:    entryDate,
		Description:  description,
		CreatedBy:    createdBy,
	}, nil
}

// AttachBatch links the entry to the batch that produced it
func (e *AccountEntry) AttachBatch(batchID uuid.UUID) {
	e.BatchID = &batchID
}

// AttachCheque links the entry to the cheque it settles
func (e *AccountEntry) AttachCheque(chequeID uuid.UUID) {
	e.ChequeID = &chequeID
}

// Reverse builds the offsetting entry and soft-voids the original. Returns
// nil when the original is already voided, so re-running a reversal writes
// nothing twice.
func (e *AccountEntry) Reverse(actor, reason string, entryDate time.Time) *AccountEntry {
	if !e.MarkVoided(actor, reason) {
		return nil
	}
	e.UpdatedAt = time.Now()

	rev := &AccountEntry{
		BaseEntity:   shared.NewBaseEntity(),
		GrowerID:     e.GrowerID,
		GrowerNumber: e.GrowerNumber,
		BatchID:      e.BatchID,
		ChequeID:     e.ChequeID,
		EntryType:    e.EntryType,
		Currency:     e.Currency,
		Amount:       e.Amount.Neg(),
		EntryDate:    entryDate,
		Description:  "Reversal: " + e.Description,
		ReversalOfID: &e.ID,
		CreatedBy:    actor,
	}
	return rev
}

// SignedMoney returns the entry amount as Money
func (e *AccountEntry) SignedMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(e.Amount, e.Currency)
	return m
}

// IsReversal reports whether the entry offsets another entry
func (e *AccountEntry) IsReversal() bool {
	return e.ReversalOfID != nil
}
