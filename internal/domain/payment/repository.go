package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BatchFilter narrows batch queries
type BatchFilter struct {
	CropYear      *int
	PaymentType   *PaymentType
	AdvanceNumber *int
	Status        *BatchStatus
	PayGroup      *string
	FromDate      *time.Time
	ToDate        *time.Time
	SortBy        string
	SortDir       string
	Offset        int
	Limit         int
}

// PaymentBatchRepository persists payment batches
type PaymentBatchRepository interface {
	Save(ctx context.Context, batch *PaymentBatch) error
	SaveWithLock(ctx context.Context, batch *PaymentBatch) error
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentBatch, error)
	FindByNumber(ctx context.Context, batchNumber string) (*PaymentBatch, error)
	List(ctx context.Context, filter BatchFilter) (*shared.Paginated[*PaymentBatch], error)
	// ExistsPosted reports whether a posted or finalized batch already covers
	// the given tier for the crop year and pay group.
	ExistsPosted(ctx context.Context, cropYear, advanceNumber int, payGroup *string) (bool, error)
	// FindByConsolidatedInto returns the source batches a distribution
	// payment absorbed.
	FindByConsolidatedInto(ctx context.Context, distributionNumber string) ([]*PaymentBatch, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ChequeFilter narrows cheque queries
type ChequeFilter struct {
	GrowerID *uuid.UUID
	BatchID  *uuid.UUID
	Status   *ChequeStatus
	Series   *string
	FromDate *time.Time
	ToDate   *time.Time
	Offset   int
	Limit    int
}

// ChequeRepository persists cheques
type ChequeRepository interface {
	Save(ctx context.Context, cheque *Cheque) error
	SaveAll(ctx context.Context, cheques []*Cheque) error
	FindByID(ctx context.Context, id uuid.UUID) (*Cheque, error)
	FindByReference(ctx context.Context, series string, chequeNumber int64) (*Cheque, error)
	FindByBatch(ctx context.Context, batchID uuid.UUID) ([]*Cheque, error)
	List(ctx context.Context, filter ChequeFilter) (*shared.Paginated[*Cheque], error)
}

// AdvanceChequeRepository persists standalone advances
type AdvanceChequeRepository interface {
	Save(ctx context.Context, advance *AdvanceCheque) error
	SaveWithLock(ctx context.Context, advance *AdvanceCheque) error
	FindByID(ctx context.Context, id uuid.UUID) (*AdvanceCheque, error)
	FindByNumber(ctx context.Context, advanceNumber string) (*AdvanceCheque, error)
	// FindOutstandingByGrower returns advances with an outstanding balance,
	// oldest first, locked FOR UPDATE so concurrent postings cannot draw the
	// same balance twice.
	FindOutstandingByGrower(ctx context.Context, growerID uuid.UUID) ([]*AdvanceCheque, error)
	FindByGrower(ctx context.Context, growerID uuid.UUID) ([]*AdvanceCheque, error)
	// FindActive returns all non-cancelled advances, for balance audits.
	FindActive(ctx context.Context) ([]*AdvanceCheque, error)
}

// AdvanceDeductionRepository persists advance drawdowns
type AdvanceDeductionRepository interface {
	Save(ctx context.Context, deduction *AdvanceDeduction) error
	SaveAll(ctx context.Context, deductions []*AdvanceDeduction) error
	FindByBatch(ctx context.Context, batchID uuid.UUID) ([]*AdvanceDeduction, error)
	FindActiveByAdvance(ctx context.Context, advanceChequeID uuid.UUID) ([]*AdvanceDeduction, error)
	FindActiveByCheque(ctx context.Context, chequeID uuid.UUID) ([]*AdvanceDeduction, error)
	// SumActiveByAdvance recomputes how much of an advance is consumed by
	// active deductions, for balance audits.
	SumActiveByAdvance(ctx context.Context, advanceChequeID uuid.UUID) (decimal.Decimal, error)
	// FindOrphaned returns active deductions whose advance is cancelled or
	// whose batch is voided.
	FindOrphaned(ctx context.Context) ([]*AdvanceDeduction, error)
}

// AllocationRepository persists receipt payment allocations
type AllocationRepository interface {
	Save(ctx context.Context, allocation *ReceiptPaymentAllocation) error
	SaveAll(ctx context.Context, allocations []*ReceiptPaymentAllocation) error
	FindByBatch(ctx context.Context, batchID uuid.UUID) ([]*ReceiptPaymentAllocation, error)
	FindActiveByBatch(ctx context.Context, batchID uuid.UUID) ([]*ReceiptPaymentAllocation, error)
	FindActiveByCheque(ctx context.Context, chequeID uuid.UUID) ([]*ReceiptPaymentAllocation, error)
	FindActiveByReceipt(ctx context.Context, receiptID uuid.UUID) ([]*ReceiptPaymentAllocation, error)
	// ExistsActive reports whether the receipt already carries an active
	// allocation at the given advance number.
	ExistsActive(ctx context.Context, receiptID uuid.UUID, advanceNumber int) (bool, error)
	// SumActiveAdvances sums active advance-tier allocation amounts for the
	// grower across the crop year. Final settlement subtracts this figure as
	// stored, never re-deriving it from prices.
	SumActiveAdvances(ctx context.Context, growerID uuid.UUID, cropYear int) (decimal.Decimal, error)
}

// AccountRepository persists grower ledger entries
type AccountRepository interface {
	Save(ctx context.Context, entry *AccountEntry) error
	SaveAll(ctx context.Context, entries []*AccountEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*AccountEntry, error)
	FindByBatch(ctx context.Context, batchID uuid.UUID) ([]*AccountEntry, error)
	FindByCheque(ctx context.Context, chequeID uuid.UUID) ([]*AccountEntry, error)
	FindByGrower(ctx context.Context, growerID uuid.UUID, from, to time.Time) ([]*AccountEntry, error)
	// ActiveBalance sums active entries for a grower.
	ActiveBalance(ctx context.Context, growerID uuid.UUID) (decimal.Decimal, error)
}

// AuditLogRepository persists audit trail rows
type AuditLogRepository interface {
	Save(ctx context.Context, log *PaymentAuditLog) error
	FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]*PaymentAuditLog, error)
	FindByActor(ctx context.Context, actor string, from, to time.Time) ([]*PaymentAuditLog, error)
}

// ExceptionFilter narrows exception queries
type ExceptionFilter struct {
	Severity *ExceptionSeverity
	Status   *ExceptionStatus
	BatchID  *uuid.UUID
	Offset   int
	Limit    int
}

// ExceptionRepository persists reconciliation exceptions
type ExceptionRepository interface {
	Save(ctx context.Context, exception *PaymentException) error
	SaveAll(ctx context.Context, exceptions []*PaymentException) error
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentException, error)
	List(ctx context.Context, filter ExceptionFilter) (*shared.Paginated[*PaymentException], error)
}

// NumberSequenceRepository hands out gapless sequence values under a row
// lock. One row per sequence name, e.g. "cheque:C", "batch:2026".
type NumberSequenceRepository interface {
	// Next reserves and returns the next value for the named sequence,
	// creating the row at start when it does not exist yet.
	Next(ctx context.Context, name string, start int64) (int64, error)
	// NextRange reserves count consecutive values and returns the first.
	NextRange(ctx context.Context, name string, start int64, count int) (int64, error)
	// Current returns the last handed-out value without reserving.
	Current(ctx context.Context, name string) (int64, error)
}
