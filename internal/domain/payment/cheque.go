package payment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/shared"
	"github.com/harvestpay/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Cheque is a payable instrument generated at posting. Numbers come from a
// per-series monotonic counter and are never reused; (series, number) is
// unique. Document rendering and bank-file encoding happen downstream;
// the core's obligation ends at a correct, immutable record.
type Cheque struct {
	shared.AuditedAggregateRoot
	shared.Voidable
	Series       string               `gorm:"type:varchar(2);not null;uniqueIndex:idx_cheque_number,priority:1"`
	ChequeNumber int64                `gorm:"not null;uniqueIndex:idx_cheque_number,priority:2"`
	GrowerID     uuid.UUID            `gorm:"type:uuid;not null;index"`
	GrowerNumber string               `gorm:"type:varchar(20);not null"` // Denormalized for display
	BatchID      *uuid.UUID           `gorm:"type:uuid;index"`           // nil for standalone advances
	Currency     valueobject.Currency `gorm:"type:varchar(3);not null"`
	Amount       decimal.Decimal      `gorm:"type:decimal(14,2);not null"`
	ChequeDate   time.Time            `gorm:"not null"`
	Status       ChequeStatus         `gorm:"type:varchar(12);not null;default:'GENERATED';index"`
	Memo         string               `gorm:"type:varchar(200)"`
	PrintedAt    *time.Time
	DeliveredAt  *time.Time
}

// TableName returns the table name for GORM
func (Cheque) TableName() string {
	return "cheques"
}

// NewCheque creates a generated cheque against a batch
func NewCheque(
	series string,
	number int64,
	growerID uuid.UUID,
	growerNumber string,
	batchID *uuid.UUID,
	amount valueobject.Money,
	chequeDate time.Time,
	createdBy string,
) (*Cheque, error) {
	if series == "" {
		return nil, shared.NewDomainError("INVALID_SERIES", "Cheque series cannot be empty")
	}
	if number <= 0 {
		return nil, shared.NewDomainError("INVALID_CHEQUE_NUMBER", "Cheque number must be positive")
	}
	if growerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_GROWER", "Grower ID cannot be empty")
	}
	if amount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Cheque amount cannot be negative")
	}
	if chequeDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Cheque date is required")
	}
	if createdBy == "" {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Creating actor is required")
	}

	c := &Cheque{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(createdBy),
		Series:               series,
		ChequeNumber:         number,
		GrowerID:             growerID,
		GrowerNumber:         growerNumber,
		BatchID:              batchID,
		Currency:             amount.Currency(),
		Amount:               amount.Amount(),
		ChequeDate:           chequeDate,
		Status:               ChequeStatusGenerated,
	}

	c.AddDomainEvent(NewChequeGeneratedEvent(c))
	return c, nil
}

// Reference renders the series-qualified cheque number, e.g. "C-000123"
func (c *Cheque) Reference() string {
	return fmt.Sprintf("%s-%06d", c.Series, c.ChequeNumber)
}

// GetAmountMoney returns the amount as Money value object
func (c *Cheque) GetAmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(c.Amount, c.Currency)
	return m
}

// MarkPrinted transitions GENERATED -> PRINTED
func (c *Cheque) MarkPrinted() error {
	if c.Status != ChequeStatusGenerated {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot print cheque in %s status", c.Status))
	}
	now := time.Now()
	c.Status = ChequeStatusPrinted
	c.PrintedAt = &now
	c.UpdatedAt = now
	c.IncrementVersion()
	return nil
}

// MarkDelivered transitions PRINTED -> DELIVERED
func (c *Cheque) MarkDelivered() error {
	if c.Status != ChequeStatusPrinted {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot deliver cheque in %s status", c.Status))
	}
	now := time.Now()
	c.Status = ChequeStatusDelivered
	c.DeliveredAt = &now
	c.UpdatedAt = now
	c.IncrementVersion()
	return nil
}

// Void marks the cheque voided. Returns false when the cheque was already
// void, letting callers keep void paths idempotent without extra reads.
func (c *Cheque) Void(actor, reason string) (bool, error) {
	if c.Status == ChequeStatusVoided {
		return false, nil
	}
	if actor == "" {
		return false, shared.NewDomainError("INVALID_ACTOR", "Voiding actor is required")
	}
	if reason == "" {
		return false, shared.NewDomainError("INVALID_REASON", "Void reason is required")
	}

	previous := c.Status
	c.Status = ChequeStatusVoided
	c.MarkVoided(actor, reason)
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	c.AddDomainEvent(NewChequeVoidedEvent(c, previous))
	return true, nil
}
