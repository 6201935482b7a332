package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/harvestpay/backend/internal/domain/payment"
	"github.com/harvestpay/backend/internal/domain/shared"
	"github.com/harvestpay/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// VoidingService is the single entry point for reversals: cheques,
// standalone advances, batches and distribution payments all funnel through
// Void. Every path is idempotent (voiding the already-void is a no-op
// success) and re-entrant: the ledger is re-checked row by row, so a retry
// after a partial crash finishes exactly the remaining work.
type VoidingService struct {
	uow    UnitOfWork
	logger *zap.Logger
}

// NewVoidingService creates a voiding service
func NewVoidingService(uow UnitOfWork, logger *zap.Logger) *VoidingService {
	return &VoidingService{uow: uow, logger: logger}
}

// Void reverses the target named by the request. When ReverseAccounting is
// false the ledger entries stay; allocations and deductions are always
// released so the receipts and advance balances return to the payable pool.
func (s *VoidingService) Void(ctx context.Context, req payment.VoidRequest) (*payment.VoidOutcome, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "voiding", "void",
		telemetry.WithAttribute("void_kind", string(req.Kind)),
		telemetry.WithAttribute("target_id", req.TargetID))
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	var outcome *payment.VoidOutcome
	err := s.uow.Execute(ctx, func(ctx context.Context, tx TxRepos) error {
		var err error
		switch req.Kind {
		case payment.VoidTargetCheque:
			outcome, err = s.voidCheque(ctx, tx, req)
		case payment.VoidTargetAdvanceCheque:
			outcome, err = s.voidAdvance(ctx, tx, req)
		case payment.VoidTargetBatch:
			outcome, err = s.voidBatch(ctx, tx, req)
		case payment.VoidTargetDistribution:
			outcome, err = s.voidDistribution(ctx, tx, req)
		default:
			err = shared.NewDomainError("INVALID_VOID_TARGET", "Unknown void target kind")
		}
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("void completed",
		zap.String("kind", string(req.Kind)),
		zap.String("target", req.TargetID.String()),
		zap.Bool("already_voided", outcome.AlreadyVoided),
		zap.Int("cheques", outcome.ChequesVoided),
		zap.Int("allocations", outcome.AllocationsReleased),
		zap.Int("deductions", outcome.DeductionsReversed),
		zap.Int("entries", outcome.EntriesReversed))
	return outcome, nil
}

func (s *VoidingService) voidCheque(ctx context.Context, tx TxRepos, req payment.VoidRequest) (*payment.VoidOutcome, error) {
	cheque, err := tx.Cheques().FindByID(ctx, req.TargetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cheque: %w", err)
	}
	if cheque == nil {
		return nil, shared.NewDomainError("CHEQUE_NOT_FOUND", "Cheque not found")
	}

	outcome := &payment.VoidOutcome{Kind: req.Kind, TargetID: req.TargetID}
	before, _ := json.Marshal(cheque)

	changed, err := cheque.Void(req.Actor, req.Reason)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := tx.Cheques().Save(ctx, cheque); err != nil {
			return nil, fmt.Errorf("failed to save cheque: %w", err)
		}
		outcome.ChequesVoided++
	} else {
		outcome.AlreadyVoided = true
	}

	// Ledger, allocations and deductions are re-checked independently of the
	// cheque's own status: a crash between reversing rows and marking the
	// cheque leaves re-runnable work, not corruption.
	if err := s.releaseChequeEffects(ctx, tx, cheque, req, outcome); err != nil {
		return nil, err
	}

	if changed || outcome.Changed() {
		after, _ := json.Marshal(cheque)
		log := payment.NewPaymentAuditLog("Cheque", cheque.ID, payment.AuditActionChequeVoided, req.Actor, req.Reason).
			WithStates(before, after)
		if err := tx.AuditLogs().Save(ctx, log); err != nil {
			return nil, fmt.Errorf("failed to write audit log: %w", err)
		}
	}
	return outcome, nil
}

func (s *VoidingService) releaseChequeEffects(ctx context.Context, tx TxRepos, cheque *payment.Cheque, req payment.VoidRequest, outcome *payment.VoidOutcome) error {
	if req.ReverseAccounting {
		entries, err := tx.Accounts().FindByCheque(ctx, cheque.ID)
		if err != nil {
			return fmt.Errorf("failed to load ledger entries: %w", err)
		}
		if err := s.reverseEntries(ctx, tx, entries, req, outcome); err != nil {
			return err
		}
	}

	allocations, err := tx.Allocations().FindActiveByCheque(ctx, cheque.ID)
	if err != nil {
		return fmt.Errorf("failed to load allocations: %w", err)
	}
	for _, a := range allocations {
		if a.Void(req.Actor, req.Reason) {
			if err := tx.Allocations().Save(ctx, a); err != nil {
				return fmt.Errorf("failed to save allocation: %w", err)
			}
			outcome.AllocationsReleased++
		}
	}

	deductions, err := tx.Deductions().FindActiveByCheque(ctx, cheque.ID)
	if err != nil {
		return fmt.Errorf("failed to load deductions: %w", err)
	}
	return s.reverseDeductions(ctx, tx, deductions, req, outcome)
}

// reverseDeductions voids deduction rows and restores their amounts to the
// parent advances' outstanding balances.
func (s *VoidingService) reverseDeductions(ctx context.Context, tx TxRepos, deductions []*payment.AdvanceDeduction, req payment.VoidRequest, outcome *payment.VoidOutcome) error {
	for _, d := range deductions {
		if !d.Void(req.Actor, req.Reason) {
			continue
		}
		advance, err := tx.Advances().FindByID(ctx, d.AdvanceChequeID)
		if err != nil {
			return fmt.Errorf("failed to load advance: %w", err)
		}
		if advance == nil {
			return shared.NewDomainError("ADVANCE_NOT_FOUND", "Deduction references a missing advance")
		}
		if advance.IsActive() {
			if err := advance.RestoreAmount(d.Amount); err != nil {
				return err
			}
			if err := tx.Advances().SaveWithLock(ctx, advance); err != nil {
				return fmt.Errorf("failed to save advance: %w", err)
			}
		}
		if err := tx.Deductions().Save(ctx, d); err != nil {
			return fmt.Errorf("failed to save deduction: %w", err)
		}
		outcome.DeductionsReversed++
	}
	return nil
}

func (s *VoidingService) reverseEntries(ctx context.Context, tx TxRepos, entries []*payment.AccountEntry, req payment.VoidRequest, outcome *payment.VoidOutcome) error {
	for _, e := range entries {
		if e.IsReversal() {
			continue // offsetting rows are never themselves reversed
		}
		rev := e.Reverse(req.Actor, req.Reason, e.EntryDate)
		if rev == nil {
			continue // already reversed on an earlier attempt
		}
		if err := tx.Accounts().Save(ctx, e); err != nil {
			return fmt.Errorf("failed to save voided entry: %w", err)
		}
		if err := tx.Accounts().Save(ctx, rev); err != nil {
			return fmt.Errorf("failed to save reversal entry: %w", err)
		}
		outcome.EntriesReversed++
	}
	return nil
}

func (s *VoidingService) voidAdvance(ctx context.Context, tx TxRepos, req payment.VoidRequest) (*payment.VoidOutcome, error) {
	advance, err := tx.Advances().FindByID(ctx, req.TargetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load advance: %w", err)
	}
	if advance == nil {
		return nil, shared.NewDomainError("ADVANCE_NOT_FOUND", "Advance cheque not found")
	}

	outcome := &payment.VoidOutcome{Kind: req.Kind, TargetID: req.TargetID}
	before, _ := json.Marshal(advance)

	changed, err := advance.Cancel(req.Actor, req.Reason)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := tx.Advances().SaveWithLock(ctx, advance); err != nil {
			return nil, fmt.Errorf("failed to save advance: %w", err)
		}
	} else {
		outcome.AlreadyVoided = true
	}

	// Deductions drawn from the cancelled advance are voided. Their amounts
	// are not restored here: the advance no longer exists to owe against.
	deductions, err := tx.Deductions().FindActiveByAdvance(ctx, advance.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load deductions: %w", err)
	}
	for _, d := range deductions {
		if !d.Void(req.Actor, req.Reason) {
			continue
		}
		if err := tx.Deductions().Save(ctx, d); err != nil {
			return nil, fmt.Errorf("failed to save deduction: %w", err)
		}
		outcome.DeductionsReversed++
	}

	if req.ReverseAccounting && advance.ChequeID != nil {
		entries, err := tx.Accounts().FindByCheque(ctx, *advance.ChequeID)
		if err != nil {
			return nil, fmt.Errorf("failed to load ledger entries: %w", err)
		}
		if err := s.reverseEntries(ctx, tx, entries, req, outcome); err != nil {
			return nil, err
		}
	}

	if changed || outcome.Changed() {
		after, _ := json.Marshal(advance)
		log := payment.NewPaymentAuditLog("AdvanceCheque", advance.ID, payment.AuditActionAdvanceCancelled, req.Actor, req.Reason).
			WithStates(before, after)
		if err := tx.AuditLogs().Save(ctx, log); err != nil {
			return nil, fmt.Errorf("failed to write audit log: %w", err)
		}
	}
	return outcome, nil
}

func (s *VoidingService) voidBatch(ctx context.Context, tx TxRepos, req payment.VoidRequest) (*payment.VoidOutcome, error) {
	batch, err := tx.Batches().FindByID(ctx, req.TargetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}
	if batch == nil {
		return nil, shared.NewDomainError("BATCH_NOT_FOUND", "Payment batch not found")
	}
	if batch.Status == payment.BatchStatusFinalized {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot void finalized batch %s", batch.BatchNumber))
	}

	outcome := &payment.VoidOutcome{Kind: req.Kind, TargetID: req.TargetID}
	before, _ := json.Marshal(batch)
	wasVoided := batch.IsVoided()

	// Cascade cheque by cheque: each cheque's effects release through the
	// same path a direct cheque void uses.
	cheques, err := tx.Cheques().FindByBatch(ctx, batch.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch cheques: %w", err)
	}
	for _, c := range cheques {
		changed, err := c.Void(req.Actor, req.Reason)
		if err != nil {
			return nil, err
		}
		if changed {
			if err := tx.Cheques().Save(ctx, c); err != nil {
				return nil, fmt.Errorf("failed to save cheque: %w", err)
			}
			outcome.ChequesVoided++
		}
		if err := s.releaseChequeEffects(ctx, tx, c, req, outcome); err != nil {
			return nil, err
		}
	}

	// Net-zero growers left allocations, deductions and entries with no
	// cheque behind them; sweep the batch-linked remainder.
	allocations, err := tx.Allocations().FindActiveByBatch(ctx, batch.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch allocations: %w", err)
	}
	for _, a := range allocations {
		if a.Void(req.Actor, req.Reason) {
			if err := tx.Allocations().Save(ctx, a); err != nil {
				return nil, fmt.Errorf("failed to save allocation: %w", err)
			}
			outcome.AllocationsReleased++
		}
	}

	deductions, err := tx.Deductions().FindByBatch(ctx, batch.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch deductions: %w", err)
	}
	active := deductions[:0]
	for _, d := range deductions {
		if d.IsActive() {
			active = append(active, d)
		}
	}
	if err := s.reverseDeductions(ctx, tx, active, req, outcome); err != nil {
		return nil, err
	}

	if req.ReverseAccounting {
		entries, err := tx.Accounts().FindByBatch(ctx, batch.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load batch entries: %w", err)
		}
		if err := s.reverseEntries(ctx, tx, entries, req, outcome); err != nil {
			return nil, err
		}
	}

	if err := batch.MarkRolledBack(req.Actor, req.Reason); err != nil {
		return nil, err
	}
	if !wasVoided {
		if err := tx.Batches().SaveWithLock(ctx, batch); err != nil {
			return nil, fmt.Errorf("failed to save batch: %w", err)
		}
	} else {
		outcome.AlreadyVoided = true
	}

	if !wasVoided || outcome.Changed() {
		after, _ := json.Marshal(batch)
		log := payment.NewPaymentAuditLog("PaymentBatch", batch.ID, payment.AuditActionBatchVoided, req.Actor, req.Reason).
			WithStates(before, after)
		if err := tx.AuditLogs().Save(ctx, log); err != nil {
			return nil, fmt.Errorf("failed to write audit log: %w", err)
		}
	}
	return outcome, nil
}

// voidDistribution reverses a consolidated distribution payment: the
// distribution batch itself is voided, and every source batch it absorbed is
// restored to its pre-consolidation status.
func (s *VoidingService) voidDistribution(ctx context.Context, tx TxRepos, req payment.VoidRequest) (*payment.VoidOutcome, error) {
	dist, err := tx.Batches().FindByID(ctx, req.TargetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load distribution batch: %w", err)
	}
	if dist == nil {
		return nil, shared.NewDomainError("BATCH_NOT_FOUND", "Distribution batch not found")
	}

	outcome, err := s.voidBatch(ctx, tx, req)
	if err != nil {
		return nil, err
	}
	outcome.Kind = payment.VoidTargetDistribution

	sources, err := tx.Batches().FindByConsolidatedInto(ctx, dist.BatchNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to load source batches: %w", err)
	}
	for _, src := range sources {
		src.ClearConsolidation()
		if err := tx.Batches().SaveWithLock(ctx, src); err != nil {
			return nil, fmt.Errorf("failed to restore source batch %s: %w", src.BatchNumber, err)
		}
	}
	return outcome, nil
}
