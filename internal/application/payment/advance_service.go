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

// AdvanceService issues and queries standalone advance cheques, money paid
// out ahead of any batch run and recovered later through posting deductions.
type AdvanceService struct {
	uow        UnitOfWork
	deductions *payment.DeductionService
	logger     *zap.Logger
}

// NewAdvanceService creates an advance service
func NewAdvanceService(uow UnitOfWork, deductions *payment.DeductionService, logger *zap.Logger) *AdvanceService {
	return &AdvanceService{uow: uow, deductions: deductions, logger: logger}
}

// IssueAdvanceRequest describes an advance payout
type IssueAdvanceRequest struct {
	GrowerID   uuid.UUID       `json:"grower_id" binding:"required"`
	CropYear   int             `json:"crop_year" binding:"required"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
	Currency   string          `json:"currency" binding:"required"`
	IssuedDate time.Time       `json:"issued_date"`
	Memo       string          `json:"memo"`
	Actor      string          `json:"-"`
}

// IssueAdvanceResult reports the issued advance and its cheque
type IssueAdvanceResult struct {
	AdvanceID       uuid.UUID       `json:"advance_id"`
	AdvanceNumber   string          `json:"advance_number"`
	ChequeID        uuid.UUID       `json:"cheque_id"`
	ChequeReference string          `json:"cheque_reference"`
	Amount          decimal.Decimal `json:"amount"`
}

// IssueAdvance pays a grower outside any batch run. It writes the advance,
// a physical cheque and an ADVANCE ledger entry in one transaction.
func (s *AdvanceService) IssueAdvance(ctx context.Context, req IssueAdvanceRequest) (*IssueAdvanceResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "advance", "issue_advance")
	defer span.End()

	if req.Actor == "" {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Issuing actor is required")
	}
	if !req.Amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Advance amount must be positive")
	}
	currency := valueobject.Currency(req.Currency)
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	amount, err := valueobject.NewMoney(req.Amount, currency)
	if err != nil {
		return nil, err
	}
	issuedDate := req.IssuedDate
	if issuedDate.IsZero() {
		issuedDate = time.Now()
	}

	var result *IssueAdvanceResult
	err = s.uow.Execute(ctx, func(ctx context.Context, tx TxRepos) error {
		grower, err := tx.Growers().FindByID(ctx, req.GrowerID)
		if err != nil {
			return fmt.Errorf("failed to load grower: %w", err)
		}
		if grower == nil {
			return shared.NewDomainError("GROWER_NOT_FOUND", "Grower not found")
		}
		if err := grower.CanBePaid(); err != nil {
			return err
		}

		seq, err := tx.Sequences().Next(ctx, fmt.Sprintf("advance:%d", req.CropYear), 0)
		if err != nil {
			return fmt.Errorf("failed to reserve advance number: %w", err)
		}
		advanceNumber := fmt.Sprintf("AC-%d-%04d", req.CropYear, seq)

		advance, err := payment.NewAdvanceCheque(advanceNumber, req.GrowerID, grower.Number,
			amount, issuedDate, req.Actor)
		if err != nil {
			return err
		}
		advance.Memo = req.Memo

		series := currency.ChequeSeries()
		chequeNumber, err := tx.Sequences().Next(ctx, "cheque:"+series, chequeSequenceStart)
		if err != nil {
			return fmt.Errorf("failed to reserve cheque number: %w", err)
		}
		cheque, err := payment.NewCheque(series, chequeNumber, req.GrowerID, grower.Number,
			nil, amount, issuedDate, req.Actor)
		if err != nil {
			return err
		}
		advance.ChequeID = &cheque.ID

		entry, err := payment.NewAccountEntry(req.GrowerID, grower.Number,
			payment.EntryTypeAdvance, amount, issuedDate,
			fmt.Sprintf("Advance %s", advanceNumber), req.Actor)
		if err != nil {
			return err
		}
		entry.AttachCheque(cheque.ID)

		if err := tx.Cheques().Save(ctx, cheque); err != nil {
			return fmt.Errorf("failed to save cheque: %w", err)
		}
		if err := tx.Advances().Save(ctx, advance); err != nil {
			return fmt.Errorf("failed to save advance: %w", err)
		}
		if err := tx.Accounts().Save(ctx, entry); err != nil {
			return fmt.Errorf("failed to save ledger entry: %w", err)
		}

		after, _ := json.Marshal(advance)
		log := payment.NewPaymentAuditLog("AdvanceCheque", advance.ID, payment.AuditActionAdvanceIssued,
			req.Actor, fmt.Sprintf("Issued %s %s to grower %s", req.Amount.StringFixed(2), currency, grower.Number)).
			WithStates(nil, after)
		if err := tx.AuditLogs().Save(ctx, log); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}

		result = &IssueAdvanceResult{
			AdvanceID:       advance.ID,
			AdvanceNumber:   advance.AdvanceNumber,
			ChequeID:        cheque.ID,
			ChequeReference: cheque.Reference(),
			Amount:          req.Amount,
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("advance issued",
		zap.String("advance_number", result.AdvanceNumber),
		zap.String("grower_id", req.GrowerID.String()),
		zap.String("amount", req.Amount.StringFixed(2)))
	return result, nil
}

// CancelAdvance voids an advance and its drawdown history. Reason is shown
// on grower statements.
func (s *AdvanceService) CancelAdvance(ctx context.Context, advanceID uuid.UUID, actor, reason string, reverseAccounting bool) (*payment.VoidOutcome, error) {
	voiding := NewVoidingService(s.uow, s.logger)
	return voiding.Void(ctx, payment.VoidRequest{
		Kind:              payment.VoidTargetAdvanceCheque,
		TargetID:          advanceID,
		Actor:             actor,
		Reason:            reason,
		ReverseAccounting: reverseAccounting,
	})
}

// ApplyManualDeductionRequest directs an explicit drawdown of one advance
// against a posted batch.
type ApplyManualDeductionRequest struct {
	AdvanceID   uuid.UUID       `json:"-"`
	BatchID     uuid.UUID       `json:"batch_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	AppliedDate time.Time       `json:"applied_date"`
	Actor       string          `json:"-"`
}

// ApplyManualDeduction draws an operator-chosen amount from one advance
// against a posted batch, recovering balance the FIFO pass left standing.
// The amount is capped by the grower's active allocations in the batch less
// deductions already applied there, and over-deduction is rejected rather
// than clamped.
func (s *AdvanceService) ApplyManualDeduction(ctx context.Context, req ApplyManualDeductionRequest) (*payment.AdvanceDeduction, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "advance", "apply_manual_deduction")
	defer span.End()

	if req.Actor == "" {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Deducting actor is required")
	}
	appliedDate := req.AppliedDate
	if appliedDate.IsZero() {
		appliedDate = time.Now()
	}

	var record *payment.AdvanceDeduction
	err := s.uow.Execute(ctx, func(ctx context.Context, tx TxRepos) error {
		advance, err := tx.Advances().FindByID(ctx, req.AdvanceID)
		if err != nil {
			return fmt.Errorf("failed to load advance: %w", err)
		}
		if advance == nil {
			return shared.NewDomainError("ADVANCE_NOT_FOUND", "Advance cheque not found")
		}
		batch, err := tx.Batches().FindByID(ctx, req.BatchID)
		if err != nil {
			return fmt.Errorf("failed to load batch: %w", err)
		}
		if batch == nil {
			return shared.NewDomainError("BATCH_NOT_FOUND", "Payment batch not found")
		}
		if !batch.IsPosted() {
			return shared.NewDomainError("INVALID_STATE",
				fmt.Sprintf("Manual deductions apply to posted batches, batch %s is %s", batch.BatchNumber, batch.Status))
		}

		payable, err := s.remainingPayable(ctx, tx, batch.ID, advance.GrowerID)
		if err != nil {
			return err
		}
		plan, err := s.deductions.PlanManual(payable, advance, req.Amount)
		if err != nil {
			return err
		}
		record, err = s.deductions.Apply(plan, advance, batch.ID, advance.GrowerID, appliedDate, true)
		if err != nil {
			return err
		}

		if err := tx.Advances().SaveWithLock(ctx, advance); err != nil {
			return fmt.Errorf("failed to save advance %s: %w", advance.AdvanceNumber, err)
		}
		if err := tx.Deductions().Save(ctx, record); err != nil {
			return fmt.Errorf("failed to save deduction: %w", err)
		}

		money, err := valueobject.NewMoney(plan.Amount.Neg(), advance.Currency)
		if err != nil {
			return err
		}
		entry, err := payment.NewAccountEntry(advance.GrowerID, advance.GrowerNumber,
			payment.EntryTypeDeduction, money, appliedDate,
			fmt.Sprintf("Manual drawdown of advance %s", advance.AdvanceNumber), req.Actor)
		if err != nil {
			return err
		}
		entry.AttachBatch(batch.ID)
		if err := tx.Accounts().Save(ctx, entry); err != nil {
			return fmt.Errorf("failed to save deduction entry: %w", err)
		}

		after, _ := json.Marshal(record)
		log := payment.NewPaymentAuditLog("AdvanceCheque", advance.ID, payment.AuditActionDeductionApplied,
			req.Actor, fmt.Sprintf("Manual deduction of %s from advance %s against batch %s",
				req.Amount.StringFixed(2), advance.AdvanceNumber, batch.BatchNumber)).
			WithStates(nil, after)
		if err := tx.AuditLogs().Save(ctx, log); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("manual deduction applied",
		zap.String("advance_id", req.AdvanceID.String()),
		zap.String("batch_id", req.BatchID.String()),
		zap.String("amount", req.Amount.StringFixed(2)))
	return record, nil
}

// remainingPayable is the grower's active allocation total in the batch
// minus deductions already applied there. A manual drawdown may not push
// total deductions past what the batch paid the grower.
func (s *AdvanceService) remainingPayable(ctx context.Context, tx TxRepos, batchID, growerID uuid.UUID) (decimal.Decimal, error) {
	allocations, err := tx.Allocations().FindActiveByBatch(ctx, batchID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load allocations: %w", err)
	}
	payable := decimal.Zero
	for _, a := range allocations {
		if a.GrowerID == growerID {
			payable = payable.Add(a.Amount)
		}
	}
	deductions, err := tx.Deductions().FindByBatch(ctx, batchID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load deductions: %w", err)
	}
	for _, d := range deductions {
		if d.GrowerID == growerID && !d.IsVoided() {
			payable = payable.Sub(d.Amount)
		}
	}
	return payable, nil
}

// GrowerAdvanceSummary is an advance with its recomputed consumption
type GrowerAdvanceSummary struct {
	Advance   *payment.AdvanceCheque `json:"advance"`
	Deducted  decimal.Decimal        `json:"deducted"`
	Remaining decimal.Decimal        `json:"remaining"`
}

// ListGrowerAdvances returns a grower's advances with their balances
func (s *AdvanceService) ListGrowerAdvances(ctx context.Context, growerID uuid.UUID) ([]GrowerAdvanceSummary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "advance", "list_grower_advances")
	defer span.End()

	var summaries []GrowerAdvanceSummary
	err := s.uow.Execute(ctx, func(ctx context.Context, tx TxRepos) error {
		advances, err := tx.Advances().FindByGrower(ctx, growerID)
		if err != nil {
			return fmt.Errorf("failed to load advances: %w", err)
		}
		for _, a := range advances {
			summaries = append(summaries, GrowerAdvanceSummary{
				Advance:   a,
				Deducted:  a.DeductedAmount(),
				Remaining: a.OutstandingAmount,
			})
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return summaries, nil
}

// GetAdvance loads one advance with its drawdown rows
func (s *AdvanceService) GetAdvance(ctx context.Context, advanceID uuid.UUID) (*payment.AdvanceCheque, []*payment.AdvanceDeduction, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "advance", "get_advance")
	defer span.End()

	var advance *payment.AdvanceCheque
	var deductions []*payment.AdvanceDeduction
	err := s.uow.Execute(ctx, func(ctx context.Context, tx TxRepos) error {
		var err error
		advance, err = tx.Advances().FindByID(ctx, advanceID)
		if err != nil {
			return fmt.Errorf("failed to load advance: %w", err)
		}
		if advance == nil {
			return shared.NewDomainError("ADVANCE_NOT_FOUND", "Advance cheque not found")
		}
		deductions, err = tx.Deductions().FindActiveByAdvance(ctx, advanceID)
		if err != nil {
			return fmt.Errorf("failed to load deductions: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, nil, err
	}
	return advance, deductions, nil
}
