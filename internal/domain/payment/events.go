package payment

import (
	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventTypeBatchCreated     = "payment.batch.created"
	EventTypeBatchPosted      = "payment.batch.posted"
	EventTypeBatchFinalized   = "payment.batch.finalized"
	EventTypeBatchVoided      = "payment.batch.voided"
	EventTypeChequeGenerated  = "payment.cheque.generated"
	EventTypeChequeVoided     = "payment.cheque.voided"
	EventTypeAdvanceIssued    = "payment.advance.issued"
	EventTypeAdvanceCancelled = "payment.advance.cancelled"
)

// BatchCreatedEvent is raised when a draft batch is created
type BatchCreatedEvent struct {
	shared.BaseDomainEvent
	BatchNumber   string      `json:"batch_number"`
	PaymentType   PaymentType `json:"payment_type"`
	AdvanceNumber int         `json:"advance_number"`
	CropYear      int         `json:"crop_year"`
	CreatedBy     string      `json:"created_by"`
}

// NewBatchCreatedEvent creates a batch created event
func NewBatchCreatedEvent(b *PaymentBatch) *BatchCreatedEvent {
	return &BatchCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchCreated, b.ID, "PaymentBatch"),
		BatchNumber:     b.BatchNumber,
		PaymentType:     b.PaymentType,
		AdvanceNumber:   b.AdvanceNumber,
		CropYear:        b.CropYear,
		CreatedBy:       b.CreatedBy,
	}
}

// BatchPostedEvent is raised when a batch posts successfully
type BatchPostedEvent struct {
	shared.BaseDomainEvent
	BatchNumber  string          `json:"batch_number"`
	TotalGrowers int             `json:"total_growers"`
	TotalGross   decimal.Decimal `json:"total_gross"`
	TotalNet     decimal.Decimal `json:"total_net"`
	PostedBy     string          `json:"posted_by"`
}

// NewBatchPostedEvent creates a batch posted event
func NewBatchPostedEvent(b *PaymentBatch) *BatchPostedEvent {
	return &BatchPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchPosted, b.ID, "PaymentBatch"),
		BatchNumber:     b.BatchNumber,
		TotalGrowers:    b.TotalGrowers,
		TotalGross:      b.TotalGross,
		TotalNet:        b.TotalNet,
		PostedBy:        b.PostedBy,
	}
}

// BatchFinalizedEvent is raised when a posted batch is locked
type BatchFinalizedEvent struct {
	shared.BaseDomainEvent
	BatchNumber string `json:"batch_number"`
	FinalizedBy string `json:"finalized_by"`
}

// NewBatchFinalizedEvent creates a batch finalized event
func NewBatchFinalizedEvent(b *PaymentBatch) *BatchFinalizedEvent {
	return &BatchFinalizedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchFinalized, b.ID, "PaymentBatch"),
		BatchNumber:     b.BatchNumber,
		FinalizedBy:     b.FinalizedBy,
	}
}

// BatchVoidedEvent is raised when a posted batch is rolled back
type BatchVoidedEvent struct {
	shared.BaseDomainEvent
	BatchNumber    string      `json:"batch_number"`
	PreviousStatus BatchStatus `json:"previous_status"`
	VoidedBy       string      `json:"voided_by"`
	VoidReason     string      `json:"void_reason"`
}

// NewBatchVoidedEvent creates a batch voided event
func NewBatchVoidedEvent(b *PaymentBatch, previous BatchStatus) *BatchVoidedEvent {
	return &BatchVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchVoided, b.ID, "PaymentBatch"),
		BatchNumber:     b.BatchNumber,
		PreviousStatus:  previous,
		VoidedBy:        b.VoidedBy,
		VoidReason:      b.VoidReason,
	}
}

// ChequeGeneratedEvent is raised when a cheque is written during posting
type ChequeGeneratedEvent struct {
	shared.BaseDomainEvent
	Series       string          `json:"series"`
	ChequeNumber int64           `json:"cheque_number"`
	GrowerID     uuid.UUID       `json:"grower_id"`
	Amount       decimal.Decimal `json:"amount"`
}

// NewChequeGeneratedEvent creates a cheque generated event
func NewChequeGeneratedEvent(c *Cheque) *ChequeGeneratedEvent {
	return &ChequeGeneratedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChequeGenerated, c.ID, "Cheque"),
		Series:          c.Series,
		ChequeNumber:    c.ChequeNumber,
		GrowerID:        c.GrowerID,
		Amount:          c.Amount,
	}
}

// ChequeVoidedEvent is raised when a cheque is voided
type ChequeVoidedEvent struct {
	shared.BaseDomainEvent
	Series         string          `json:"series"`
	ChequeNumber   int64           `json:"cheque_number"`
	PreviousStatus ChequeStatus    `json:"previous_status"`
	Amount         decimal.Decimal `json:"amount"`
	VoidedBy       string          `json:"voided_by"`
	VoidReason     string          `json:"void_reason"`
}

// NewChequeVoidedEvent creates a cheque voided event
func NewChequeVoidedEvent(c *Cheque, previous ChequeStatus) *ChequeVoidedEvent {
	return &ChequeVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChequeVoided, c.ID, "Cheque"),
		Series:          c.Series,
		ChequeNumber:    c.ChequeNumber,
		PreviousStatus:  previous,
		Amount:          c.Amount,
		VoidedBy:        c.VoidedBy,
		VoidReason:      c.VoidReason,
	}
}

// AdvanceIssuedEvent is raised when a standalone advance is issued
type AdvanceIssuedEvent struct {
	shared.BaseDomainEvent
	AdvanceNumber string          `json:"advance_number"`
	GrowerID      uuid.UUID       `json:"grower_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// NewAdvanceIssuedEvent creates an advance issued event
func NewAdvanceIssuedEvent(a *AdvanceCheque) *AdvanceIssuedEvent {
	return &AdvanceIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAdvanceIssued, a.ID, "AdvanceCheque"),
		AdvanceNumber:   a.AdvanceNumber,
		GrowerID:        a.GrowerID,
		Amount:          a.OriginalAmount,
	}
}

// AdvanceCancelledEvent is raised when a standalone advance is cancelled
type AdvanceCancelledEvent struct {
	shared.BaseDomainEvent
	AdvanceNumber  string              `json:"advance_number"`
	PreviousStatus AdvanceChequeStatus `json:"previous_status"`
	VoidedBy       string              `json:"voided_by"`
	VoidReason     string              `json:"void_reason"`
}

// NewAdvanceCancelledEvent creates an advance cancelled event
func NewAdvanceCancelledEvent(a *AdvanceCheque, previous AdvanceChequeStatus) *AdvanceCancelledEvent {
	return &AdvanceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAdvanceCancelled, a.ID, "AdvanceCheque"),
		AdvanceNumber:   a.AdvanceNumber,
		PreviousStatus:  previous,
		VoidedBy:        a.VoidedBy,
		VoidReason:      a.VoidReason,
	}
}
