package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/payment"
	"github.com/harvestpay/backend/internal/domain/pricing"
	"github.com/harvestpay/backend/internal/domain/shared"
	"github.com/harvestpay/backend/internal/domain/shared/valueobject"
	"github.com/harvestpay/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// chequeSequenceStart seeds a series counter the first time it is used
const chequeSequenceStart = 100000

// SkippedGrower reports a grower posting left out
type SkippedGrower struct {
	GrowerID     uuid.UUID `json:"grower_id"`
	GrowerNumber string    `json:"grower_number"`
	Reasons      []string  `json:"reasons"`
}

// PostingResult summarises one posting run
type PostingResult struct {
	BatchID            uuid.UUID           `json:"batch_id"`
	BatchNumber        string              `json:"batch_number"`
	ChequesGenerated   int                 `json:"cheques_generated"`
	EntriesCreated     int                 `json:"entries_created"`
	AllocationsCreated int                 `json:"allocations_created"`
	DeductionsApplied  int                 `json:"deductions_applied"`
	PricesLocked       int                 `json:"prices_locked"`
	Skipped            []SkippedGrower     `json:"skipped,omitempty"`
	Totals             payment.BatchTotals `json:"totals"`
}

// PostingService turns calculated grower payments into cheques, ledger
// entries, allocations and price locks. The whole batch posts inside one
// transaction; each grower runs in a savepoint so a business-rule rejection
// rolls back only that grower, while an infrastructure failure aborts the
// batch and leaves it Draft.
type PostingService struct {
	uow        UnitOfWork
	deductions *payment.DeductionService
	logger     *zap.Logger
}

// NewPostingService creates a posting service
func NewPostingService(uow UnitOfWork, deductions *payment.DeductionService, logger *zap.Logger) *PostingService {
	return &PostingService{uow: uow, deductions: deductions, logger: logger}
}

// PostBatch posts the calculated payments under the given batch. Flagged
// growers are skipped and reported, unless the batch is all-or-nothing, in
// which case the first flag aborts the run.
func (s *PostingService) PostBatch(ctx context.Context, batchID uuid.UUID, payments []*payment.GrowerPayment, actor string) (*PostingResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "posting", "post_batch",
		telemetry.WithAttribute(telemetry.SpanAttrBatchID, batchID))
	defer span.End()

	if actor == "" {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Posting actor is required")
	}

	var result *PostingResult
	err := s.uow.Execute(ctx, func(ctx context.Context, tx TxRepos) error {
		batch, err := tx.Batches().FindByID(ctx, batchID)
		if err != nil {
			return fmt.Errorf("failed to load batch: %w", err)
		}
		if batch == nil {
			return shared.NewDomainError("BATCH_NOT_FOUND", "Payment batch not found")
		}
		if !batch.Status.CanPost() {
			return shared.NewDomainError("INVALID_STATE",
				fmt.Sprintf("Cannot post batch %s in %s status", batch.BatchNumber, batch.Status))
		}

		r := &PostingResult{
			BatchID:     batch.ID,
			BatchNumber: batch.BatchNumber,
			Totals: payment.BatchTotals{
				Gross:         decimal.Zero,
				PriorAdvances: decimal.Zero,
				Deductions:    decimal.Zero,
				Net:           decimal.Zero,
			},
		}

		for _, p := range payments {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !p.IsValid() {
				if batch.AllOrNothing {
					return shared.NewDomainError("BATCH_REJECTED",
						fmt.Sprintf("All-or-nothing batch rejected: grower %s flagged: %v", p.GrowerNumber, p.ValidationErrors))
				}
				r.Skipped = append(r.Skipped, SkippedGrower{GrowerID: p.GrowerID, GrowerNumber: p.GrowerNumber, Reasons: p.ValidationErrors})
				continue
			}
			if !p.HasPayableAmount() {
				continue
			}

			var tally growerTally
			if err := tx.Savepoint(ctx, func(sp TxRepos) error {
				var err error
				tally, err = s.postGrower(ctx, sp, batch, p, actor)
				return err
			}); err != nil {
				// A business-rule rejection rolled back just this grower's
				// savepoint; the rest of the batch keeps posting. Anything
				// else aborts the whole transaction.
				var domainErr *shared.DomainError
				if !errors.As(err, &domainErr) {
					return fmt.Errorf("posting grower %s: %w", p.GrowerNumber, err)
				}
				if batch.AllOrNothing {
					return shared.NewDomainError("BATCH_REJECTED",
						fmt.Sprintf("All-or-nothing batch rejected: grower %s: %s", p.GrowerNumber, domainErr.Message))
				}
				r.Skipped = append(r.Skipped, SkippedGrower{
					GrowerID:     p.GrowerID,
					GrowerNumber: p.GrowerNumber,
					Reasons:      []string{domainErr.Message},
				})
				continue
			}

			r.ChequesGenerated += tally.cheques
			r.DeductionsApplied += tally.deductions
			r.EntriesCreated += tally.entries
			r.AllocationsCreated += tally.allocations
			r.PricesLocked += tally.locks
			r.Totals.Growers++
			r.Totals.Receipts += len(p.Details)
			r.Totals.Gross = r.Totals.Gross.Add(p.AdvanceAmount)
			r.Totals.PriorAdvances = r.Totals.PriorAdvances.Add(p.PriorAdvances)
			r.Totals.Deductions = r.Totals.Deductions.Add(p.DeductionAmount)
			r.Totals.Net = r.Totals.Net.Add(p.NetAmount)
		}

		if err := batch.MarkPosted(actor, r.Totals); err != nil {
			return err
		}
		if err := tx.Batches().SaveWithLock(ctx, batch); err != nil {
			return fmt.Errorf("failed to save batch: %w", err)
		}

		after, _ := json.Marshal(batch)
		log := payment.NewPaymentAuditLog("PaymentBatch", batch.ID, payment.AuditActionBatchPosted, actor,
			fmt.Sprintf("Posted %s: %d cheques, %d growers skipped", batch.BatchNumber, r.ChequesGenerated, len(r.Skipped))).
			WithStates(nil, after)
		if err := tx.AuditLogs().Save(ctx, log); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}

		result = r
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrBatchNumber, result.BatchNumber,
		"cheques_generated", result.ChequesGenerated,
		"growers_skipped", len(result.Skipped))

	s.logger.Info("batch posted",
		zap.String("batch_number", result.BatchNumber),
		zap.Int("cheques", result.ChequesGenerated),
		zap.Int("skipped", len(result.Skipped)),
		zap.String("net", result.Totals.Net.StringFixed(2)))
	return result, nil
}

// growerTally counts one grower's writes. It merges into the batch result
// only after the savepoint commits, so a rolled-back grower leaves no trace
// in the summary.
type growerTally struct {
	cheques     int
	deductions  int
	entries     int
	allocations int
	locks       int
}

func (s *PostingService) postGrower(ctx context.Context, tx TxRepos, batch *payment.PaymentBatch, p *payment.GrowerPayment, actor string) (growerTally, error) {
	var tally growerTally

	// Outstanding advances are loaded FOR UPDATE so two concurrent postings
	// cannot draw the same balance twice.
	advances, err := tx.Advances().FindOutstandingByGrower(ctx, p.GrowerID)
	if err != nil {
		return tally, fmt.Errorf("failed to load outstanding advances: %w", err)
	}
	byID := make(map[uuid.UUID]*payment.AdvanceCheque, len(advances))
	for _, a := range advances {
		byID[a.ID] = a
	}

	plans := s.deductions.PlanFIFO(p.PayableAmount(), advances)
	p.ApplyDeductions(payment.Total(plans))

	// Net-zero payments write ledger rows and allocations but no cheque.
	var cheque *payment.Cheque
	if p.NetAmount.IsPositive() {
		cheque, err = s.writeCheque(ctx, tx, batch, p, actor)
		if err != nil {
			return tally, err
		}
		tally.cheques++
	}

	deductionRecords, err := s.applyDeductions(ctx, tx, batch, p, plans, byID, cheque, actor)
	if err != nil {
		return tally, err
	}
	tally.deductions = len(deductionRecords)

	entries, allocations, err := s.writeDetails(ctx, tx, batch, p, cheque, actor)
	if err != nil {
		return tally, err
	}
	tally.entries = entries + len(deductionRecords)
	tally.allocations = allocations

	locked, err := s.lockPrices(ctx, tx, batch, p, actor)
	if err != nil {
		return tally, err
	}
	tally.locks = locked
	return tally, nil
}

func (s *PostingService) writeCheque(ctx context.Context, tx TxRepos, batch *payment.PaymentBatch, p *payment.GrowerPayment, actor string) (*payment.Cheque, error) {
	series := p.Currency.ChequeSeries()
	number, err := tx.Sequences().Next(ctx, "cheque:"+series, chequeSequenceStart)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve cheque number: %w", err)
	}

	amount, err := valueobject.NewMoney(p.NetAmount, p.Currency)
	if err != nil {
		return nil, err
	}
	cheque, err := payment.NewCheque(series, number, p.GrowerID, p.GrowerNumber, &batch.ID, amount, batch.BatchDate, actor)
	if err != nil {
		return nil, err
	}
	if err := tx.Cheques().Save(ctx, cheque); err != nil {
		return nil, fmt.Errorf("failed to save cheque: %w", err)
	}
	return cheque, nil
}

func (s *PostingService) applyDeductions(
	ctx context.Context,
	tx TxRepos,
	batch *payment.PaymentBatch,
	p *payment.GrowerPayment,
	plans []payment.DeductionPlan,
	byID map[uuid.UUID]*payment.AdvanceCheque,
	cheque *payment.Cheque,
	actor string,
) ([]*payment.AdvanceDeduction, error) {
	records := make([]*payment.AdvanceDeduction, 0, len(plans))
	for _, plan := range plans {
		advance := byID[plan.AdvanceChequeID]
		if advance == nil {
			return nil, shared.NewDomainError("PLAN_MISMATCH", "Deduction plan references an unloaded advance")
		}
		d, err := s.deductions.Apply(plan, advance, batch.ID, p.GrowerID, batch.BatchDate, false)
		if err != nil {
			return nil, err
		}
		if cheque != nil {
			d.AttachCheque(cheque.ID)
		}
		if err := tx.Advances().SaveWithLock(ctx, advance); err != nil {
			return nil, fmt.Errorf("failed to save advance %s: %w", advance.AdvanceNumber, err)
		}
		if err := tx.Deductions().Save(ctx, d); err != nil {
			return nil, fmt.Errorf("failed to save deduction: %w", err)
		}

		money, merr := valueobject.NewMoney(plan.Amount.Neg(), p.Currency)
		if merr != nil {
			return nil, merr
		}
		entry, err := payment.NewAccountEntry(p.GrowerID, p.GrowerNumber, payment.EntryTypeDeduction, money,
			batch.BatchDate, fmt.Sprintf("Drawdown of advance %s", advance.AdvanceNumber), actor)
		if err != nil {
			return nil, err
		}
		entry.AttachBatch(batch.ID)
		if cheque != nil {
			entry.AttachCheque(cheque.ID)
		}
		if err := tx.Accounts().Save(ctx, entry); err != nil {
			return nil, fmt.Errorf("failed to save deduction entry: %w", err)
		}
		records = append(records, d)
	}
	return records, nil
}

func (s *PostingService) writeDetails(ctx context.Context, tx TxRepos, batch *payment.PaymentBatch, p *payment.GrowerPayment, cheque *payment.Cheque, actor string) (entries, allocations int, err error) {
	entryType := payment.EntryTypeAdvance
	if batch.PaymentType == payment.PaymentTypeFinal {
		entryType = payment.EntryTypeFinal
	}

	for _, d := range p.Details {
		money, merr := valueobject.NewMoney(d.Amount, p.Currency)
		if merr != nil {
			return entries, allocations, merr
		}
		entry, eerr := payment.NewAccountEntry(p.GrowerID, p.GrowerNumber, entryType, money, batch.BatchDate,
			fmt.Sprintf("%s receipt %s", batch.TypeCode(), d.ReceiptNumber), actor)
		if eerr != nil {
			return entries, allocations, eerr
		}
		entry.AttachBatch(batch.ID)
		if cheque != nil {
			entry.AttachCheque(cheque.ID)
		}
		if err := tx.Accounts().Save(ctx, entry); err != nil {
			return entries, allocations, fmt.Errorf("failed to save ledger entry: %w", err)
		}
		entries++

		alloc, aerr := payment.NewReceiptPaymentAllocation(batch.ID, p.GrowerID, d, batch.BatchDate)
		if aerr != nil {
			return entries, allocations, aerr
		}
		if cheque != nil {
			alloc.AttachCheque(cheque.ID)
		}
		if err := tx.Allocations().Save(ctx, alloc); err != nil {
			return entries, allocations, fmt.Errorf("failed to save allocation: %w", err)
		}
		allocations++
	}
	return entries, allocations, nil
}

func (s *PostingService) lockPrices(ctx context.Context, tx TxRepos, batch *payment.PaymentBatch, p *payment.GrowerPayment, actor string) (int, error) {
	locked := 0
	seen := make(map[uuid.UUID]bool)
	for _, d := range p.Details {
		if seen[d.PriceScheduleID] {
			continue
		}
		seen[d.PriceScheduleID] = true

		exists, err := tx.PriceLocks().ExistsForBatch(ctx, batch.ID, d.PriceScheduleID)
		if err != nil {
			return locked, fmt.Errorf("failed to check price lock: %w", err)
		}
		if exists {
			continue
		}
		lock := pricing.NewPriceScheduleLockFromValues(d.PriceScheduleID, batch.ID, d.AdvanceNumber, d.PricePerLb, actor)
		if err := tx.PriceLocks().Save(ctx, lock); err != nil {
			return locked, fmt.Errorf("failed to save price lock: %w", err)
		}
		telemetry.AddEvent(trace.SpanFromContext(ctx), "price_locked",
			telemetry.SpanAttrScheduleID, d.PriceScheduleID,
			telemetry.SpanAttrAdvanceNumber, d.AdvanceNumber)
		locked++
	}
	return locked, nil
}
