package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/shared"
	"gorm.io/datatypes"
)

// AuditAction classifies audit log rows
type AuditAction string

const (
	AuditActionBatchCreated     AuditAction = "BATCH_CREATED"
	AuditActionBatchPosted      AuditAction = "BATCH_POSTED"
	AuditActionBatchFinalized   AuditAction = "BATCH_FINALIZED"
	AuditActionBatchVoided      AuditAction = "BATCH_VOIDED"
	AuditActionBatchRolledBack  AuditAction = "BATCH_ROLLED_BACK"
	AuditActionChequeVoided     AuditAction = "CHEQUE_VOIDED"
	AuditActionAdvanceIssued    AuditAction = "ADVANCE_ISSUED"
	AuditActionAdvanceCancelled AuditAction = "ADVANCE_CANCELLED"
	AuditActionDeductionApplied AuditAction = "DEDUCTION_APPLIED"
	AuditActionBalanceAdjusted  AuditAction = "BALANCE_ADJUSTED"
)

// PaymentAuditLog records who changed what and when, with before/after state
// snapshots for anything money-bearing.
type PaymentAuditLog struct {
	shared.BaseEntity
	EntityType  string         `gorm:"type:varchar(50);not null;index:idx_audit_entity"`
	EntityID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_audit_entity"`
	Action      AuditAction    `gorm:"type:varchar(30);not null;index"`
	Actor       string         `gorm:"type:varchar(100);not null;index"`
	OccurredAt  time.Time      `gorm:"not null;index"`
	BeforeState datatypes.JSON `gorm:"type:jsonb"`
	AfterState  datatypes.JSON `gorm:"type:jsonb"`
	Detail      string         `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (PaymentAuditLog) TableName() string {
	return "payment_audit_logs"
}

// NewPaymentAuditLog creates an audit log entry
func NewPaymentAuditLog(entityType string, entityID uuid.UUID, action AuditAction, actor, detail string) *PaymentAuditLog {
	return &PaymentAuditLog{
		BaseEntity: shared.NewBaseEntity(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Actor:      actor,
		OccurredAt: time.Now(),
		Detail:     detail,
	}
}

// WithStates attaches before/after JSON snapshots
func (l *PaymentAuditLog) WithStates(before, after []byte) *PaymentAuditLog {
	l.BeforeState = datatypes.JSON(before)
	l.AfterState = datatypes.JSON(after)
	return l
}

// ExceptionSeverity grades reconciliation findings
type ExceptionSeverity string

const (
	SeverityWarning  ExceptionSeverity = "WARNING"
	SeverityError    ExceptionSeverity = "ERROR"
	SeverityCritical ExceptionSeverity = "CRITICAL"
)

// ExceptionStatus tracks the exception workflow
type ExceptionStatus string

const (
	ExceptionStatusOpen     ExceptionStatus = "OPEN"
	ExceptionStatusResolved ExceptionStatus = "RESOLVED"
	ExceptionStatusIgnored  ExceptionStatus = "IGNORED"
)

// PaymentException is a reconciliation finding. Reconciliation never mutates
// payment data; it emits exceptions for an operator to work through.
type PaymentException struct {
	shared.BaseEntity
	Code       string            `gorm:"type:varchar(50);not null;index"`
	Severity   ExceptionSeverity `gorm:"type:varchar(10);not null;index"`
	Status     ExceptionStatus   `gorm:"type:varchar(10);not null;default:'OPEN';index"`
	EntityType string            `gorm:"type:varchar(50);not null"`
	EntityID   uuid.UUID         `gorm:"type:uuid;not null;index"`
	BatchID    *uuid.UUID        `gorm:"type:uuid;index"`
	GrowerID   *uuid.UUID        `gorm:"type:uuid;index"`
	Message    string            `gorm:"type:varchar(500);not null"`
	DetectedAt time.Time         `gorm:"not null"`
	ResolvedAt *time.Time
	ResolvedBy string `gorm:"type:varchar(100)"`
	Resolution string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (PaymentException) TableName() string {
	return "payment_exceptions"
}

// NewPaymentException creates an open reconciliation exception
func NewPaymentException(code string, severity ExceptionSeverity, entityType string, entityID uuid.UUID, message string) *PaymentException {
	return &PaymentException{
		BaseEntity: shared.NewBaseEntity(),
		Code:       code,
		Severity:   severity,
		Status:     ExceptionStatusOpen,
		EntityType: entityType,
		EntityID:   entityID,
		Message:    message,
		DetectedAt: time.Now(),
	}
}

// ForBatch scopes the exception to a batch
func (e *PaymentException) ForBatch(batchID uuid.UUID) *PaymentException {
	e.BatchID = &batchID
	return e
}

// ForGrower scopes the exception to a grower
func (e *PaymentException) ForGrower(growerID uuid.UUID) *PaymentException {
	e.GrowerID = &growerID
	return e
}

// Resolve closes the exception with a resolution note
func (e *PaymentException) Resolve(actor, resolution string) error {
	if e.Status != ExceptionStatusOpen {
		return shared.NewDomainError("INVALID_STATE", "Only open exceptions can be resolved")
	}
	if actor == "" || resolution == "" {
		return shared.NewDomainError("INVALID_RESOLUTION", "Resolution requires an actor and a note")
	}
	now := time.Now()
	e.Status = ExceptionStatusResolved
	e.ResolvedAt = &now
	e.ResolvedBy = actor
	e.Resolution = resolution
	e.UpdatedAt = now
	return nil
}

// Ignore closes the exception without action
func (e *PaymentException) Ignore(actor, reason string) error {
	if e.Status != ExceptionStatusOpen {
		return shared.NewDomainError("INVALID_STATE", "Only open exceptions can be ignored")
	}
	now := time.Now()
	e.Status = ExceptionStatusIgnored
	e.ResolvedAt = &now
	e.ResolvedBy = actor
	e.Resolution = reason
	e.UpdatedAt = now
	return nil
}
