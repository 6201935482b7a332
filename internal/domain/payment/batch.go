package payment

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PaymentBatch is the aggregate root for one payment run: an advance number
// or the final settlement, over a crop year, up to a cutoff date.
//
// Lifecycle: DRAFT -> POSTED -> FINALIZED, with DRAFT/POSTED -> VOIDED.
// Totals are provisional while DRAFT, fixed at POSTED, immutable once
// FINALIZED. Every transition records its actor.
type PaymentBatch struct {
	shared.AuditedAggregateRoot
	shared.Voidable
	BatchNumber   string      `gorm:"type:varchar(30);not null;uniqueIndex"`
	PaymentType   PaymentType `gorm:"type:varchar(10);not null"`
	AdvanceNumber int         `gorm:"not null;default:0"` // 0 for FINAL
	CropYear      int         `gorm:"not null;index"`
	BatchDate     time.Time   `gorm:"not null"`
	CutoffDate    time.Time   `gorm:"not null"`
	PayGroup      *string     `gorm:"type:varchar(20)"` // optional filter the run was scoped to
	Status        BatchStatus `gorm:"type:varchar(15);not null;default:'DRAFT';index"`
	AllOrNothing  bool        `gorm:"not null;default:false"` // reject the run if any grower is flagged
	// Product/depot scope the draft was calculated with, replayed at approval.
	FilterScope datatypes.JSON `gorm:"type:jsonb"`

	TotalGrowers  int             `gorm:"not null;default:0"`
	TotalReceipts int             `gorm:"not null;default:0"`
	TotalGross    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	// Final settlements net out what the advance tiers already paid; advance
	// batches leave this zero. Gross - PriorAdvances - Deductions = Net.
	TotalPriorAdvances decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	TotalDeductions    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	TotalNet           decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`

	PostedAt    *time.Time
	PostedBy    string `gorm:"type:varchar(100)"`
	FinalizedAt *time.Time
	FinalizedBy string `gorm:"type:varchar(100)"`

	// A consolidated/distribution payment marks its source batches; voiding
	// the distribution restores this to empty.
	ConsolidatedInto *string `gorm:"type:varchar(30)"`
}

// TableName returns the table name for GORM
func (PaymentBatch) TableName() string {
	return "payment_batches"
}

// NewPaymentBatch creates a draft batch
func NewPaymentBatch(
	batchNumber string,
	paymentType PaymentType,
	advanceNumber int,
	cropYear int,
	batchDate time.Time,
	cutoffDate time.Time,
	createdBy string,
) (*PaymentBatch, error) {
	if batchNumber == "" {
		return nil, shared.NewDomainError("INVALID_BATCH_NUMBER", "Batch number cannot be empty")
	}
	if !paymentType.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_TYPE", "Payment type is not valid")
	}
	if paymentType == PaymentTypeAdvance && advanceNumber < 1 {
		return nil, shared.NewDomainError("INVALID_ADVANCE_NUMBER", "Advance number must be at least 1")
	}
	if paymentType == PaymentTypeFinal && advanceNumber != 0 {
		return nil, shared.NewDomainError("INVALID_ADVANCE_NUMBER", "Final batches carry no advance number")
	}
	if cropYear < 1900 {
		return nil, shared.NewDomainError("INVALID_CROP_YEAR", "Crop year is not valid")
	}
	if batchDate.IsZero() || cutoffDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Batch date and cutoff date are required")
	}
	if createdBy == "" {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Creating actor is required")
	}

	b := &PaymentBatch{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(createdBy),
		BatchNumber:          batchNumber,
		PaymentType:          paymentType,
		AdvanceNumber:        advanceNumber,
		CropYear:             cropYear,
		BatchDate:            batchDate,
		CutoffDate:           cutoffDate,
		Status:               BatchStatusDraft,
		TotalGross:           decimal.Zero,
		TotalPriorAdvances:   decimal.Zero,
		TotalDeductions:      decimal.Zero,
		TotalNet:             decimal.Zero,
	}

	b.AddDomainEvent(NewBatchCreatedEvent(b))
	return b, nil
}

// TypeCode returns the batch's short type code (ADV1.., FINL)
func (b *PaymentBatch) TypeCode() string {
	return TypeCode(b.PaymentType, b.AdvanceNumber)
}

// BatchScope is the product/depot filter a run was calculated with
type BatchScope struct {
	ProductIDs []uuid.UUID `json:"product_ids,omitempty"`
	DepotIDs   []uuid.UUID `json:"depot_ids,omitempty"`
}

// SetScope stores the filter scope on the batch
func (b *PaymentBatch) SetScope(scope BatchScope) error {
	raw, err := json.Marshal(scope)
	if err != nil {
		return fmt.Errorf("failed to encode batch scope: %w", err)
	}
	b.FilterScope = datatypes.JSON(raw)
	return nil
}

// Scope returns the stored filter scope; an absent scope means unfiltered
func (b *PaymentBatch) Scope() (BatchScope, error) {
	var scope BatchScope
	if len(b.FilterScope) == 0 {
		return scope, nil
	}
	if err := json.Unmarshal(b.FilterScope, &scope); err != nil {
		return scope, fmt.Errorf("failed to decode batch scope: %w", err)
	}
	return scope, nil
}

// BatchTotals summarises a calculation or posting run
type BatchTotals struct {
	Growers       int
	Receipts      int
	Gross         decimal.Decimal
	PriorAdvances decimal.Decimal
	Deductions    decimal.Decimal
	Net           decimal.Decimal
}

// SetPreviewTotals records the calculated preview on a draft. Draft totals
// are informational; posting recomputes them from what was actually written.
func (b *PaymentBatch) SetPreviewTotals(totals BatchTotals) error {
	if b.Status != BatchStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot set preview totals on %s batch", b.Status))
	}
	b.applyTotals(totals)
	b.UpdatedAt = time.Now()
	return nil
}

func (b *PaymentBatch) applyTotals(totals BatchTotals) {
	b.TotalGrowers = totals.Growers
	b.TotalReceipts = totals.Receipts
	b.TotalGross = totals.Gross
	b.TotalPriorAdvances = totals.PriorAdvances
	b.TotalDeductions = totals.Deductions
	b.TotalNet = totals.Net
}

// MarkPosted fixes the batch totals and transitions DRAFT -> POSTED
func (b *PaymentBatch) MarkPosted(actor string, totals BatchTotals) error {
	if !b.Status.CanPost() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot post batch in %s status", b.Status))
	}
	if actor == "" {
		return shared.NewDomainError("INVALID_ACTOR", "Posting actor is required")
	}

	now := time.Now()
	b.Status = BatchStatusPosted
	b.applyTotals(totals)
	b.PostedAt = &now
	b.PostedBy = actor
	b.UpdatedAt = now
	b.IncrementVersion()

	b.AddDomainEvent(NewBatchPostedEvent(b))
	return nil
}

// Finalize transitions POSTED -> FINALIZED, closing the batch for edits.
// Nothing structural changes in the ledger.
func (b *PaymentBatch) Finalize(actor string) error {
	if !b.Status.CanFinalize() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot finalize batch in %s status", b.Status))
	}
	if actor == "" {
		return shared.NewDomainError("INVALID_ACTOR", "Finalizing actor is required")
	}

	now := time.Now()
	b.Status = BatchStatusFinalized
	b.FinalizedAt = &now
	b.FinalizedBy = actor
	b.UpdatedAt = now
	b.IncrementVersion()

	b.AddDomainEvent(NewBatchFinalizedEvent(b))
	return nil
}

// MarkRolledBack transitions DRAFT/POSTED -> VOIDED. The voiding engine is
// responsible for having reversed every cheque and allocation first.
func (b *PaymentBatch) MarkRolledBack(actor, reason string) error {
	if b.Status == BatchStatusVoided {
		return nil // idempotent
	}
	if !b.Status.CanVoid() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot void batch in %s status", b.Status))
	}
	if actor == "" {
		return shared.NewDomainError("INVALID_ACTOR", "Voiding actor is required")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Void reason is required")
	}

	previous := b.Status
	b.Status = BatchStatusVoided
	b.MarkVoided(actor, reason)
	b.UpdatedAt = time.Now()
	b.IncrementVersion()

	b.AddDomainEvent(NewBatchVoidedEvent(b, previous))
	return nil
}

// MarkConsolidated records that a distribution payment absorbed this batch
func (b *PaymentBatch) MarkConsolidated(distributionNumber string) error {
	if b.Status != BatchStatusPosted && b.Status != BatchStatusFinalized {
		return shared.NewDomainError("INVALID_STATE", "Only posted batches can be consolidated")
	}
	if b.ConsolidatedInto != nil {
		return shared.NewDomainError("ALREADY_CONSOLIDATED",
			fmt.Sprintf("Batch already consolidated into %s", *b.ConsolidatedInto))
	}
	b.ConsolidatedInto = &distributionNumber
	b.UpdatedAt = time.Now()
	b.IncrementVersion()
	return nil
}

// ClearConsolidation restores the batch after its distribution is voided
func (b *PaymentBatch) ClearConsolidation() {
	if b.ConsolidatedInto == nil {
		return
	}
	b.ConsolidatedInto = nil
	b.UpdatedAt = time.Now()
	b.IncrementVersion()
}

// IsDraft returns true while nothing has been posted
func (b *PaymentBatch) IsDraft() bool {
	return b.Status == BatchStatusDraft
}

// IsPosted returns true once cheques and ledger rows exist
func (b *PaymentBatch) IsPosted() bool {
	return b.Status == BatchStatusPosted
}

// IsVoided returns true after a rollback
func (b *PaymentBatch) IsVoided() bool {
	return b.Status == BatchStatusVoided
}
