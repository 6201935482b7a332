package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/payment"
	"github.com/harvestpay/backend/internal/domain/shared"
	"github.com/harvestpay/backend/internal/domain/shared/valueobject"
	"github.com/harvestpay/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BatchManager drives the batch lifecycle: Draft on creation with a stored
// calculation preview, Posted on approval, Finalized on processing, Voided
// on rollback. Any failed transition leaves the batch exactly where it was.
type BatchManager struct {
	uow         UnitOfWork
	calculation *CalculationService
	posting     *PostingService
	voiding     *VoidingService
	metrics     *telemetry.BusinessMetrics
	policy      BatchPolicy
	logger      *zap.Logger
}

// SetBusinessMetrics sets the business metrics collector
func (m *BatchManager) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	m.metrics = bm
}

// BatchPolicy holds operator-configured batch defaults and limits
type BatchPolicy struct {
	// DefaultAllOrNothing makes new drafts all-or-nothing unless the
	// request says otherwise.
	DefaultAllOrNothing bool
	// MaxGrowersPerBatch caps batch size; 0 means unlimited.
	MaxGrowersPerBatch int
}

// SetPolicy sets the batch policy
func (m *BatchManager) SetPolicy(p BatchPolicy) {
	m.policy = p
}

// NewBatchManager creates a batch manager
func NewBatchManager(
	uow UnitOfWork,
	calculation *CalculationService,
	posting *PostingService,
	voiding *VoidingService,
	logger *zap.Logger,
) *BatchManager {
	return &BatchManager{
		uow:         uow,
		calculation: calculation,
		posting:     posting,
		voiding:     voiding,
		logger:      logger,
	}
}

// CreateBatchRequest describes a new draft run
type CreateBatchRequest struct {
	PaymentType   payment.PaymentType
	AdvanceNumber int
	CropYear      int
	BatchDate     time.Time
	CutoffDate    time.Time
	PayGroup      *string
	ProductIDs    []uuid.UUID
	DepotIDs      []uuid.UUID
	AllOrNothing  bool
	Actor         string
}

// BatchPreview bundles a batch with its calculated grower payments
type BatchPreview struct {
	Batch    *payment.PaymentBatch    `json:"batch"`
	Payments []*payment.GrowerPayment `json:"payments"`
}

// CreateDraft allocates a batch number, runs the calculation and stores the
// preview totals. Nothing financial is written; the draft can be abandoned.
func (m *BatchManager) CreateDraft(ctx context.Context, req CreateBatchRequest) (*BatchPreview, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "batch_manager", "create_draft")
	defer span.End()

	typeCode := payment.TypeCode(req.PaymentType, req.AdvanceNumber)

	var preview *BatchPreview
	err := m.uow.Execute(ctx, func(ctx context.Context, tx TxRepos) error {
		exists, err := tx.Batches().ExistsPosted(ctx, req.CropYear, req.AdvanceNumber, req.PayGroup)
		if err != nil {
			return fmt.Errorf("failed to check existing batches: %w", err)
		}
		if exists {
			return shared.NewDomainError("DUPLICATE_TIER",
				fmt.Sprintf("A %s batch is already posted for crop year %d", typeCode, req.CropYear))
		}

		seq, err := tx.Sequences().Next(ctx, fmt.Sprintf("batch:%s:%d", typeCode, req.CropYear), 0)
		if err != nil {
			return fmt.Errorf("failed to reserve batch number: %w", err)
		}
		batchNumber := fmt.Sprintf("%s-%d-%04d", typeCode, req.CropYear, seq)

		batch, err := payment.NewPaymentBatch(batchNumber, req.PaymentType, req.AdvanceNumber,
			req.CropYear, req.BatchDate, req.CutoffDate, req.Actor)
		if err != nil {
			return err
		}
		batch.PayGroup = req.PayGroup
		batch.AllOrNothing = req.AllOrNothing || m.policy.DefaultAllOrNothing
		if err := batch.SetScope(payment.BatchScope{ProductIDs: req.ProductIDs, DepotIDs: req.DepotIDs}); err != nil {
			return err
		}

		payments, err := m.calculate(ctx, batch)
		if err != nil {
			return err
		}

		if err := batch.SetPreviewTotals(previewTotals(payments)); err != nil {
			return err
		}
		if err := tx.Batches().Save(ctx, batch); err != nil {
			return fmt.Errorf("failed to save batch: %w", err)
		}

		log := payment.NewPaymentAuditLog("PaymentBatch", batch.ID, payment.AuditActionBatchCreated, req.Actor,
			fmt.Sprintf("Draft %s: %d growers", batch.BatchNumber, batch.TotalGrowers))
		if err := tx.AuditLogs().Save(ctx, log); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}

		preview = &BatchPreview{Batch: batch, Payments: payments}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	m.logger.Info("draft batch created",
		zap.String("batch_number", preview.Batch.BatchNumber),
		zap.Int("growers", preview.Batch.TotalGrowers))
	return preview, nil
}

// ApproveBatch posts a draft. The calculation reruns first: a concurrent
// batch may have consumed receipts since the draft preview, and posting must
// only ever allocate what is eligible right now.
func (m *BatchManager) ApproveBatch(ctx context.Context, batchID uuid.UUID, actor string) (*PostingResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "batch_manager", "approve_batch")
	defer span.End()

	var batch *payment.PaymentBatch
	err := m.uow.Execute(ctx, func(ctx context.Context, tx TxRepos) error {
		var err error
		batch, err = tx.Batches().FindByID(ctx, batchID)
		if err != nil {
			return fmt.Errorf("failed to load batch: %w", err)
		}
		if batch == nil {
			return shared.NewDomainError("BATCH_NOT_FOUND", "Payment batch not found")
		}
		if !batch.Status.CanPost() {
			return shared.NewDomainError("INVALID_STATE",
				fmt.Sprintf("Cannot approve batch %s in %s status", batch.BatchNumber, batch.Status))
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	payments, err := m.calculate(ctx, batch)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if len(payments) == 0 {
		return nil, shared.NewDomainError("NOTHING_TO_POST",
			fmt.Sprintf("No eligible receipts remain for batch %s", batch.BatchNumber))
	}

	result, err := m.posting.PostBatch(ctx, batchID, payments, actor)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if m.metrics != nil {
		m.metrics.RecordBatchPosted(ctx, string(batch.PaymentType), batch.CropYear)
		m.metrics.RecordPaidAmount(ctx, string(valueobject.DefaultCurrency), result.Totals.Net)
	}
	return result, nil
}

// ProcessPayments closes a posted batch, Posted -> Finalized. A finalized
// batch can never be voided; cheque printing and delivery continue on the
// individual cheques.
func (m *BatchManager) ProcessPayments(ctx context.Context, batchID uuid.UUID, actor string) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "batch_manager", "process_payments")
	defer span.End()

	err := m.uow.Execute(ctx, func(ctx context.Context, tx TxRepos) error {
		batch, err := tx.Batches().FindByID(ctx, batchID)
		if err != nil {
			return fmt.Errorf("failed to load batch: %w", err)
		}
		if batch == nil {
			return shared.NewDomainError("BATCH_NOT_FOUND", "Payment batch not found")
		}

		before, _ := json.Marshal(batch)
		if err := batch.Finalize(actor); err != nil {
			return err
		}
		if err := tx.Batches().SaveWithLock(ctx, batch); err != nil {
			return fmt.Errorf("failed to save batch: %w", err)
		}

		after, _ := json.Marshal(batch)
		log := payment.NewPaymentAuditLog("PaymentBatch", batch.ID, payment.AuditActionBatchFinalized, actor,
			fmt.Sprintf("Finalized %s", batch.BatchNumber)).WithStates(before, after)
		if err := tx.AuditLogs().Save(ctx, log); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return err
}

// RollbackBatch voids everything the batch posted and marks it Voided
func (m *BatchManager) RollbackBatch(ctx context.Context, batchID uuid.UUID, actor, reason string) (*payment.VoidOutcome, error) {
	outcome, err := m.voiding.Void(ctx, payment.VoidRequest{
		Kind:              payment.VoidTargetBatch,
		TargetID:          batchID,
		Actor:             actor,
		Reason:            reason,
		ReverseAccounting: true,
	})
	if err != nil {
		return nil, err
	}
	if m.metrics != nil && !outcome.AlreadyVoided {
		if batch, err := m.GetBatch(ctx, batchID); err == nil {
			m.metrics.RecordBatchVoided(ctx, string(batch.PaymentType), batch.CropYear)
		}
	}
	return outcome, nil
}

// GetBatch loads a batch by ID
func (m *BatchManager) GetBatch(ctx context.Context, batchID uuid.UUID) (*payment.PaymentBatch, error) {
	var batch *payment.PaymentBatch
	err := m.uow.Execute(ctx, func(ctx context.Context, tx TxRepos) error {
		var err error
		batch, err = tx.Batches().FindByID(ctx, batchID)
		if err != nil {
			return err
		}
		if batch == nil {
			return shared.NewDomainError("BATCH_NOT_FOUND", "Payment batch not found")
		}
		return nil
	})
	return batch, err
}

// ListBatches pages through batches with filters
func (m *BatchManager) ListBatches(ctx context.Context, filter payment.BatchFilter) (*shared.Paginated[*payment.PaymentBatch], error) {
	var page *shared.Paginated[*payment.PaymentBatch]
	err := m.uow.Execute(ctx, func(ctx context.Context, tx TxRepos) error {
		var err error
		page, err = tx.Batches().List(ctx, filter)
		return err
	})
	return page, err
}

func (m *BatchManager) calculate(ctx context.Context, batch *payment.PaymentBatch) ([]*payment.GrowerPayment, error) {
	scope, err := batch.Scope()
	if err != nil {
		return nil, err
	}
	req := CalculateRequest{
		CropYear:      batch.CropYear,
		AdvanceNumber: batch.AdvanceNumber,
		PaymentDate:   batch.BatchDate,
		CutoffDate:    batch.CutoffDate,
		PayGroup:      batch.PayGroup,
		ProductIDs:    scope.ProductIDs,
		DepotIDs:      scope.DepotIDs,
	}
	var payments []*payment.GrowerPayment
	if batch.PaymentType == payment.PaymentTypeFinal {
		payments, err = m.calculation.CalculateFinalPayment(ctx, req)
	} else {
		payments, err = m.calculation.CalculateAdvanceBatch(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	if m.policy.MaxGrowersPerBatch > 0 && len(payments) > m.policy.MaxGrowersPerBatch {
		return nil, shared.NewDomainError("BATCH_REJECTED",
			fmt.Sprintf("Batch would pay %d growers, the configured cap is %d; narrow the scope",
				len(payments), m.policy.MaxGrowersPerBatch))
	}
	return payments, nil
}

func previewTotals(payments []*payment.GrowerPayment) payment.BatchTotals {
	totals := payment.BatchTotals{
		Gross:         decimal.Zero,
		PriorAdvances: decimal.Zero,
		Deductions:    decimal.Zero,
		Net:           decimal.Zero,
	}
	for _, p := range payments {
		if !p.IsValid() {
			continue
		}
		totals.Growers++
		totals.Receipts += len(p.Details)
		totals.Gross = totals.Gross.Add(p.AdvanceAmount)
		totals.PriorAdvances = totals.PriorAdvances.Add(p.PriorAdvances)
		totals.Deductions = totals.Deductions.Add(p.DeductionAmount)
		totals.Net = totals.Net.Add(p.NetAmount)
	}
	return totals
}
