package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/grower"
	"github.com/harvestpay/backend/internal/domain/payment"
	"github.com/harvestpay/backend/internal/domain/pricing"
	"github.com/harvestpay/backend/internal/domain/shared"
	"github.com/harvestpay/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CalculationService computes grower payment previews. It never mutates:
// price lookups, eligibility and tier checks all happen here, and problems
// surface as validation messages on the grower rather than run failures.
type CalculationService struct {
	growers     grower.GrowerRepository
	receipts    grower.ReceiptRepository
	resolver    *pricing.Resolver
	priceLocks  pricing.PriceLockRepository
	allocations payment.AllocationRepository
	logger      *zap.Logger
}

// NewCalculationService creates a calculation service
func NewCalculationService(
	growers grower.GrowerRepository,
	receipts grower.ReceiptRepository,
	resolver *pricing.Resolver,
	priceLocks pricing.PriceLockRepository,
	allocations payment.AllocationRepository,
	logger *zap.Logger,
) *CalculationService {
	return &CalculationService{
		growers:     growers,
		receipts:    receipts,
		resolver:    resolver,
		priceLocks:  priceLocks,
		allocations: allocations,
		logger:      logger,
	}
}

// CalculateRequest scopes one payment run
type CalculateRequest struct {
	CropYear      int
	AdvanceNumber int // payment.FinalTier semantics: 0 means final
	PaymentDate   time.Time
	CutoffDate    time.Time
	PayGroup      *string
	ProductIDs    []uuid.UUID
	DepotIDs      []uuid.UUID
}

// CalculateAdvanceBatch previews an advance run. Every eligible grower comes
// back, valid or flagged; cancellation is honored between growers so an
// abandoned preview does not keep grinding through the whole grower list.
func (s *CalculationService) CalculateAdvanceBatch(ctx context.Context, req CalculateRequest) ([]*payment.GrowerPayment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "calculation", "calculate_advance_batch",
		telemetry.WithAttribute(telemetry.SpanAttrCropYear, req.CropYear),
		telemetry.WithAttribute(telemetry.SpanAttrAdvanceNumber, req.AdvanceNumber))
	defer span.End()

	if req.AdvanceNumber < 1 {
		return nil, shared.NewDomainError("INVALID_ADVANCE_NUMBER", "Advance number must be at least 1")
	}
	return s.calculate(ctx, req)
}

// CalculateFinalPayment previews the settling payment: full receipt value
// across the crop year minus advances already paid, by their stored amounts.
func (s *CalculationService) CalculateFinalPayment(ctx context.Context, req CalculateRequest) ([]*payment.GrowerPayment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "calculation", "calculate_final_payment")
	defer span.End()

	req.AdvanceNumber = pricing.FinalTier
	return s.calculate(ctx, req)
}

func (s *CalculationService) calculate(ctx context.Context, req CalculateRequest) ([]*payment.GrowerPayment, error) {
	growerIDs, err := s.receipts.GrowersWithEligibleReceipts(ctx, req.CropYear, req.CutoffDate, req.AdvanceNumber, req.PayGroup)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible growers: %w", err)
	}

	tiers := newTierScheduleCheck(s.resolver)
	payments := make([]*payment.GrowerPayment, 0, len(growerIDs))
	for _, growerID := range growerIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := s.calculateGrower(ctx, growerID, req, tiers)
		if err != nil {
			return nil, err
		}
		if p != nil {
			payments = append(payments, p)
		}
	}

	s.logger.Info("payment calculation completed",
		zap.Int("crop_year", req.CropYear),
		zap.Int("advance_number", req.AdvanceNumber),
		zap.Int("growers", len(payments)))
	return payments, nil
}

// tierScheduleCheck validates, once per product/process in a run, that the
// live schedule's tier prices never decrease through the tier being paid.
// The verdict is memoized so a thousand receipts of one product cost one
// schedule read.
type tierScheduleCheck struct {
	resolver *pricing.Resolver
	verdicts map[tierCheckKey]*shared.DomainError
}

type tierCheckKey struct {
	productID uuid.UUID
	processID uuid.UUID
}

func newTierScheduleCheck(resolver *pricing.Resolver) *tierScheduleCheck {
	return &tierScheduleCheck{resolver: resolver, verdicts: make(map[tierCheckKey]*shared.DomainError)}
}

func (c *tierScheduleCheck) validate(ctx context.Context, cropYear int, productID, processID uuid.UUID, maxAdvance int, date time.Time) error {
	key := tierCheckKey{productID: productID, processID: processID}
	if verdict, ok := c.verdicts[key]; ok {
		if verdict != nil {
			return verdict
		}
		return nil
	}

	seq, err := c.resolver.ResolveTiers(ctx, cropYear, productID, processID, maxAdvance, date)
	if err != nil {
		return err
	}
	err = seq.ValidateMonotonic()
	var domainErr *shared.DomainError
	if err == nil {
		c.verdicts[key] = nil
	} else if errors.As(err, &domainErr) {
		c.verdicts[key] = domainErr
	}
	return err
}

func (s *CalculationService) calculateGrower(ctx context.Context, growerID uuid.UUID, req CalculateRequest, tiers *tierScheduleCheck) (*payment.GrowerPayment, error) {
	g, err := s.growers.FindByID(ctx, growerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load grower %s: %w", growerID, err)
	}
	if g == nil {
		return nil, fmt.Errorf("grower %s has eligible receipts but no master record", growerID)
	}

	p := payment.NewGrowerPayment(g.ID, g.Number, g.Name, g.Currency)
	if err := g.CanBePaid(); err != nil {
		p.Flag(err.Error())
	}

	receipts, err := s.receipts.FindEligible(ctx, grower.EligibilityQuery{
		GrowerID:      growerID,
		CropYear:      req.CropYear,
		CutoffDate:    req.CutoffDate,
		AdvanceNumber: req.AdvanceNumber,
		ProductIDs:    req.ProductIDs,
		DepotIDs:      req.DepotIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load receipts for grower %s: %w", g.Number, err)
	}
	if len(receipts) == 0 {
		return nil, nil
	}

	for i := range receipts {
		if err := s.calculateReceipt(ctx, p, &receipts[i], req, tiers); err != nil {
			return nil, err
		}
	}

	if req.AdvanceNumber == pricing.FinalTier {
		if err := s.subtractPriorAdvances(ctx, p, req.CropYear); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (s *CalculationService) calculateReceipt(ctx context.Context, p *payment.GrowerPayment, r *grower.Receipt, req CalculateRequest, tiers *tierScheduleCheck) error {
	schedule, err := s.resolver.Resolve(ctx, req.CropYear, r.ProductID, r.ProcessID, req.AdvanceNumber, r.ReceiptDate)
	if err != nil {
		if pricing.IsPriceNotFound(err) {
			p.Flag(fmt.Sprintf("Receipt %s: %s", r.ReceiptNumber, err.Error()))
			return nil
		}
		return err
	}

	// Tier monotonicity, asserted two ways for tiers past the first: the
	// live schedule sequence must never decrease through this tier, and the
	// price paid must not fall below the locked price a prior posted tier
	// actually paid for the same product/process. No lock means no prior
	// tier posted, nothing to assert there.
	if req.AdvanceNumber > 1 {
		if err := tiers.validate(ctx, req.CropYear, r.ProductID, r.ProcessID, req.AdvanceNumber, r.ReceiptDate); err != nil {
			var domainErr *shared.DomainError
			if !errors.As(err, &domainErr) {
				return err
			}
			p.Flag(fmt.Sprintf("Receipt %s: %s", r.ReceiptNumber, domainErr.Message))
			return nil
		}

		lock, err := s.priceLocks.FindLockedPrice(ctx, req.CropYear, r.ProductID, r.ProcessID, req.AdvanceNumber-1)
		if err != nil {
			return fmt.Errorf("failed to load prior tier lock: %w", err)
		}
		if lock != nil {
			if err := pricing.ValidateAgainstPrior(req.AdvanceNumber, schedule.PricePerLb, lock.LockedPricePerLb); err != nil {
				p.Flag(fmt.Sprintf("Receipt %s: %s", r.ReceiptNumber, err.Error()))
				return nil
			}
		}
	}

	weight := r.NetWeight.Pounds()
	base := weight.Mul(schedule.PricePerLb).RoundBank(2)

	premium := decimal.Zero
	if schedule.HasPremium() && r.BeforeCutoff(schedule.PremiumCutoff) {
		premium = weight.Mul(schedule.PremiumPerLb).RoundBank(2)
	}
	marketing := weight.Mul(schedule.MarketingRatePerLb).RoundBank(2)

	p.AddDetail(payment.ReceiptDetail{
		ReceiptID:       r.ID,
		ReceiptNumber:   r.ReceiptNumber,
		ReceiptDate:     r.ReceiptDate,
		ProductID:       r.ProductID,
		ProcessID:       r.ProcessID,
		NetWeight:       weight,
		PriceScheduleID: schedule.ID,
		PricePerLb:      schedule.PricePerLb,
		PremiumAmount:   premium,
		MarketingAmount: marketing,
		Amount:          base.Add(premium).Sub(marketing),
		AdvanceNumber:   req.AdvanceNumber,
	})
	return nil
}

// subtractPriorAdvances nets out what the advance tiers already paid, using
// the stored allocation amounts. Posted history is never re-derived from
// today's prices.
func (s *CalculationService) subtractPriorAdvances(ctx context.Context, p *payment.GrowerPayment, cropYear int) error {
	paid, err := s.allocations.SumActiveAdvances(ctx, p.GrowerID, cropYear)
	if err != nil {
		return fmt.Errorf("failed to sum prior advances for grower %s: %w", p.GrowerNumber, err)
	}
	p.SubtractPriorAdvances(paid)
	return nil
}
