package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/payment"
	"github.com/harvestpay/backend/internal/domain/shared"
	"github.com/harvestpay/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReconciliationService audits posted financial state. The audit operations
// recompute from the allocation and deduction rows and emit exceptions for
// an operator; they never correct anything. ReconcileAdvanceAmounts is the
// single mutating operation and writes an audit row per corrected advance.
type ReconciliationService struct {
	uow    UnitOfWork
	logger *zap.Logger
}

// NewReconciliationService creates a reconciliation service
func NewReconciliationService(uow UnitOfWork, logger *zap.Logger) *ReconciliationService {
	return &ReconciliationService{uow: uow, logger: logger}
}

// ReconciliationReport lists what one run found
type ReconciliationReport struct {
	Checked    int                         `json:"checked"`
	Exceptions []*payment.PaymentException `json:"exceptions"`
}

// ReconcileBatch cross-checks a posted batch: cheque total, active ledger
// total and active allocation total must all agree with the stored batch
// totals.
func (s *ReconciliationService) ReconcileBatch(ctx context.Context, batchID uuid.UUID) (*ReconciliationReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "reconcile_batch")
	defer span.End()

	report := &ReconciliationReport{}
	err := s.uow.Execute(ctx, func(ctx context.Context, tx TxRepos) error {
		batch, err := tx.Batches().FindByID(ctx, batchID)
		if err != nil {
			return fmt.Errorf("failed to load batch: %w", err)
		}
		if batch == nil {
			return shared.NewDomainError("BATCH_NOT_FOUND", "Payment batch not found")
		}
		if batch.IsDraft() {
			return shared.NewDomainError("INVALID_STATE", "Draft batches have nothing to reconcile")
		}

		report.Checked = 1

		cheques, err := tx.Cheques().FindByBatch(ctx, batch.ID)
		if err != nil {
			return fmt.Errorf("failed to load cheques: %w", err)
		}
		chequeTotal := decimal.Zero
		for _, c := range cheques {
			if c.IsActive() {
				chequeTotal = chequeTotal.Add(c.Amount)
			}
		}

		allocations, err := tx.Allocations().FindActiveByBatch(ctx, batch.ID)
		if err != nil {
			return fmt.Errorf("failed to load allocations: %w", err)
		}
		allocTotal := decimal.Zero
		for _, a := range allocations {
			allocTotal = allocTotal.Add(a.Amount)
		}

		if batch.IsVoided() {
			// A voided batch must have released everything.
			if !chequeTotal.IsZero() || !allocTotal.IsZero() {
				ex := payment.NewPaymentException("VOIDED_BATCH_RESIDUE", payment.SeverityCritical,
					"PaymentBatch", batch.ID,
					fmt.Sprintf("Voided batch %s still carries %s in cheques and %s in allocations",
						batch.BatchNumber, chequeTotal.StringFixed(2), allocTotal.StringFixed(2))).
					ForBatch(batch.ID)
				report.Exceptions = append(report.Exceptions, ex)
			}
		} else {
			if !chequeTotal.Equal(batch.TotalNet) {
				ex := payment.NewPaymentException("CHEQUE_TOTAL_MISMATCH", payment.SeverityError,
					"PaymentBatch", batch.ID,
					fmt.Sprintf("Batch %s cheques sum to %s, batch net is %s",
						batch.BatchNumber, chequeTotal.StringFixed(2), batch.TotalNet.StringFixed(2))).
					ForBatch(batch.ID)
				report.Exceptions = append(report.Exceptions, ex)
			}
			if !allocTotal.Equal(batch.TotalGross) {
				ex := payment.NewPaymentException("ALLOCATION_TOTAL_MISMATCH", payment.SeverityError,
					"PaymentBatch", batch.ID,
					fmt.Sprintf("Batch %s allocations sum to %s, batch gross is %s",
						batch.BatchNumber, allocTotal.StringFixed(2), batch.TotalGross.StringFixed(2))).
					ForBatch(batch.ID)
				report.Exceptions = append(report.Exceptions, ex)
			}
		}

		if len(report.Exceptions) > 0 {
			if err := tx.Exceptions().SaveAll(ctx, report.Exceptions); err != nil {
				return fmt.Errorf("failed to save exceptions: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return report, nil
}

// ReconcileDistribution cross-checks a consolidated distribution payment
// against the source batches it absorbed. The sum of the sources' net
// amounts must equal the distribution's gross, no absorbed source may be
// voided, and a voided distribution must have released all of its sources.
func (s *ReconciliationService) ReconcileDistribution(ctx context.Context, batchID uuid.UUID) (*ReconciliationReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "reconcile_distribution")
	defer span.End()

	report := &ReconciliationReport{}
	err := s.uow.Execute(ctx, func(ctx context.Context, tx TxRepos) error {
		dist, err := tx.Batches().FindByID(ctx, batchID)
		if err != nil {
			return fmt.Errorf("failed to load distribution batch: %w", err)
		}
		if dist == nil {
			return shared.NewDomainError("BATCH_NOT_FOUND", "Distribution batch not found")
		}
		if dist.IsDraft() {
			return shared.NewDomainError("INVALID_STATE", "Draft batches have nothing to reconcile")
		}

		sources, err := tx.Batches().FindByConsolidatedInto(ctx, dist.BatchNumber)
		if err != nil {
			return fmt.Errorf("failed to load source batches: %w", err)
		}
		report.Checked = 1 + len(sources)

		if dist.IsVoided() {
			// Voiding the distribution clears ConsolidatedInto on every
			// source; a lingering link means the restore did not finish.
			for _, src := range sources {
				ex := payment.NewPaymentException("CONSOLIDATION_NOT_RELEASED", payment.SeverityCritical,
					"PaymentBatch", src.ID,
					fmt.Sprintf("Batch %s still marked consolidated into voided distribution %s",
						src.BatchNumber, dist.BatchNumber)).
					ForBatch(dist.ID)
				report.Exceptions = append(report.Exceptions, ex)
			}
		} else {
			sourceTotal := decimal.Zero
			for _, src := range sources {
				if src.IsVoided() {
					ex := payment.NewPaymentException("CONSOLIDATED_SOURCE_VOIDED", payment.SeverityCritical,
						"PaymentBatch", src.ID,
						fmt.Sprintf("Batch %s was absorbed by distribution %s but has been voided",
							src.BatchNumber, dist.BatchNumber)).
						ForBatch(dist.ID)
					report.Exceptions = append(report.Exceptions, ex)
					continue
				}
				sourceTotal = sourceTotal.Add(src.TotalNet)
			}
			if !sourceTotal.Equal(dist.TotalGross) {
				ex := payment.NewPaymentException("DISTRIBUTION_TOTAL_MISMATCH", payment.SeverityError,
					"PaymentBatch", dist.ID,
					fmt.Sprintf("Distribution %s absorbed %s across %d batches, its gross is %s",
						dist.BatchNumber, sourceTotal.StringFixed(2), len(sources), dist.TotalGross.StringFixed(2))).
					ForBatch(dist.ID)
				report.Exceptions = append(report.Exceptions, ex)
			}
		}

		if len(report.Exceptions) > 0 {
			if err := tx.Exceptions().SaveAll(ctx, report.Exceptions); err != nil {
				return fmt.Errorf("failed to save exceptions: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return report, nil
}

// ValidateAdvanceBalances recomputes every non-cancelled advance's consumed
// amount from its active deductions and flags stored balances that disagree.
func (s *ReconciliationService) ValidateAdvanceBalances(ctx context.Context) (*ReconciliationReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "validate_advance_balances")
	defer span.End()

	report := &ReconciliationReport{}
	err := s.uow.Execute(ctx, func(ctx context.Context, tx TxRepos) error {
		advances, err := tx.Advances().FindActive(ctx)
		if err != nil {
			return fmt.Errorf("failed to load advances: %w", err)
		}

		for _, a := range advances {
			if err := ctx.Err(); err != nil {
				return err
			}
			report.Checked++

			consumed, err := tx.Deductions().SumActiveByAdvance(ctx, a.ID)
			if err != nil {
				return fmt.Errorf("failed to sum deductions for advance %s: %w", a.AdvanceNumber, err)
			}
			expected := a.OriginalAmount.Sub(consumed)
			if !a.OutstandingAmount.Equal(expected) {
				ex := payment.NewPaymentException("ADVANCE_BALANCE_MISMATCH", payment.SeverityCritical,
					"AdvanceCheque", a.ID,
					fmt.Sprintf("Advance %s outstanding is %s, deductions imply %s",
						a.AdvanceNumber, a.OutstandingAmount.StringFixed(2), expected.StringFixed(2))).
					ForGrower(a.GrowerID)
				report.Exceptions = append(report.Exceptions, ex)
			}
		}

		if len(report.Exceptions) > 0 {
			if err := tx.Exceptions().SaveAll(ctx, report.Exceptions); err != nil {
				return fmt.Errorf("failed to save exceptions: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return report, nil
}

// FindOrphanedDeductions flags active deductions whose advance is cancelled
// or whose batch is voided; either way the drawdown no longer has a living
// parent and an operator must decide what it means.
func (s *ReconciliationService) FindOrphanedDeductions(ctx context.Context) (*ReconciliationReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "find_orphaned_deductions")
	defer span.End()

	report := &ReconciliationReport{}
	err := s.uow.Execute(ctx, func(ctx context.Context, tx TxRepos) error {
		orphans, err := tx.Deductions().FindOrphaned(ctx)
		if err != nil {
			return fmt.Errorf("failed to find orphaned deductions: %w", err)
		}
		report.Checked = len(orphans)

		for _, d := range orphans {
			ex := payment.NewPaymentException("ORPHANED_DEDUCTION", payment.SeverityWarning,
				"AdvanceDeduction", d.ID,
				fmt.Sprintf("Active deduction of %s references a cancelled advance or voided batch",
					d.Amount.StringFixed(2))).
				ForBatch(d.BatchID).ForGrower(d.GrowerID)
			report.Exceptions = append(report.Exceptions, ex)
		}

		if len(report.Exceptions) > 0 {
			if err := tx.Exceptions().SaveAll(ctx, report.Exceptions); err != nil {
				return fmt.Errorf("failed to save exceptions: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return report, nil
}

// CorrectedAdvance reports one balance overwrite
type CorrectedAdvance struct {
	AdvanceNumber string          `json:"advance_number"`
	StoredBalance decimal.Decimal `json:"stored_balance"`
	TrueBalance   decimal.Decimal `json:"true_balance"`
}

// ReconcileAdvanceAmounts recomputes and overwrites outstanding balances
// from the active deduction rows. Every overwrite leaves an audit row with
// the before and after state.
func (s *ReconciliationService) ReconcileAdvanceAmounts(ctx context.Context, growerID uuid.UUID, actor string) ([]CorrectedAdvance, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "reconcile_advance_amounts")
	defer span.End()

	if actor == "" {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Reconciling actor is required")
	}

	var corrected []CorrectedAdvance
	err := s.uow.Execute(ctx, func(ctx context.Context, tx TxRepos) error {
		advances, err := tx.Advances().FindByGrower(ctx, growerID)
		if err != nil {
			return fmt.Errorf("failed to load advances: %w", err)
		}

		for _, a := range advances {
			if a.IsVoided() {
				continue
			}
			consumed, err := tx.Deductions().SumActiveByAdvance(ctx, a.ID)
			if err != nil {
				return fmt.Errorf("failed to sum deductions: %w", err)
			}
			expected := a.OriginalAmount.Sub(consumed)
			if a.OutstandingAmount.Equal(expected) {
				continue
			}

			before, _ := json.Marshal(a)
			stored := a.OutstandingAmount
			a.OverwriteOutstanding(expected)
			if err := tx.Advances().SaveWithLock(ctx, a); err != nil {
				return fmt.Errorf("failed to save advance %s: %w", a.AdvanceNumber, err)
			}

			after, _ := json.Marshal(a)
			log := payment.NewPaymentAuditLog("AdvanceCheque", a.ID, payment.AuditActionBalanceAdjusted, actor,
				fmt.Sprintf("Outstanding corrected from %s to %s", stored.StringFixed(2), expected.StringFixed(2))).
				WithStates(before, after)
			if err := tx.AuditLogs().Save(ctx, log); err != nil {
				return fmt.Errorf("failed to write audit log: %w", err)
			}

			corrected = append(corrected, CorrectedAdvance{
				AdvanceNumber: a.AdvanceNumber,
				StoredBalance: stored,
				TrueBalance:   expected,
			})
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if len(corrected) > 0 {
		s.logger.Warn("advance balances corrected",
			zap.String("grower_id", growerID.String()),
			zap.Int("count", len(corrected)))
	}
	return corrected, nil
}

// ListExceptions pages through recorded reconciliation exceptions
func (s *ReconciliationService) ListExceptions(ctx context.Context, filter payment.ExceptionFilter) (*shared.Paginated[*payment.PaymentException], error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "list_exceptions")
	defer span.End()

	var page *shared.Paginated[*payment.PaymentException]
	err := s.uow.Execute(ctx, func(ctx context.Context, tx TxRepos) error {
		var err error
		page, err = tx.Exceptions().List(ctx, filter)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return page, nil
}

// ResolveException closes an open exception with a resolution note
func (s *ReconciliationService) ResolveException(ctx context.Context, exceptionID uuid.UUID, actor, resolution string) (*payment.PaymentException, error) {
	return s.closeException(ctx, exceptionID, "resolve_exception", func(e *payment.PaymentException) error {
		return e.Resolve(actor, resolution)
	})
}

// IgnoreException closes an open exception without corrective action
func (s *ReconciliationService) IgnoreException(ctx context.Context, exceptionID uuid.UUID, actor, reason string) (*payment.PaymentException, error) {
	return s.closeException(ctx, exceptionID, "ignore_exception", func(e *payment.PaymentException) error {
		return e.Ignore(actor, reason)
	})
}

func (s *ReconciliationService) closeException(ctx context.Context, exceptionID uuid.UUID, op string, fn func(*payment.PaymentException) error) (*payment.PaymentException, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", op)
	defer span.End()

	var exception *payment.PaymentException
	err := s.uow.Execute(ctx, func(ctx context.Context, tx TxRepos) error {
		var err error
		exception, err = tx.Exceptions().FindByID(ctx, exceptionID)
		if err != nil {
			return fmt.Errorf("failed to load exception: %w", err)
		}
		if exception == nil {
			return shared.NewDomainError("EXCEPTION_NOT_FOUND", "Reconciliation exception not found")
		}
		if err := fn(exception); err != nil {
			return err
		}
		return tx.Exceptions().Save(ctx, exception)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return exception, nil
}

// AuditTrail returns the audit rows recorded against one entity, newest first
func (s *ReconciliationService) AuditTrail(ctx context.Context, entityType string, entityID uuid.UUID) ([]*payment.PaymentAuditLog, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "audit_trail")
	defer span.End()

	var logs []*payment.PaymentAuditLog
	err := s.uow.Execute(ctx, func(ctx context.Context, tx TxRepos) error {
		var err error
		logs, err = tx.AuditLogs().FindByEntity(ctx, entityType, entityID)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return logs, nil
}
