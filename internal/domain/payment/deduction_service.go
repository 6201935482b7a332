package payment

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DeductionPlan is one planned drawdown against an advance. Plans are pure
// calculation output; nothing is persisted until posting applies them.
type DeductionPlan struct {
	AdvanceChequeID uuid.UUID
	AdvanceNumber   string
	Amount          decimal.Decimal
}

// DeductionService plans advance drawdowns against a grower's payable
// amount. FIFO order is by issued date, oldest first, ties broken by
// advance number so a replanned run lands on the same sequence.
type DeductionService struct{}

// NewDeductionService creates a deduction service
func NewDeductionService() *DeductionService {
	return &DeductionService{}
}

// PlanFIFO consumes the payable amount against outstanding advances oldest
// first. The last advance touched is drawn down partially; the payment's net
// never goes below zero and an advance's outstanding never goes negative.
func (s *DeductionService) PlanFIFO(payable decimal.Decimal, advances []*AdvanceCheque) []DeductionPlan {
	if payable.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	open := make([]*AdvanceCheque, 0, len(advances))
	for _, a := range advances {
		if a.Status.HasOutstanding() && a.OutstandingAmount.GreaterThan(decimal.Zero) {
			open = append(open, a)
		}
	}
	sort.Slice(open, func(i, j int) bool {
		if !open[i].IssuedDate.Equal(open[j].IssuedDate) {
			return open[i].IssuedDate.Before(open[j].IssuedDate)
		}
		return open[i].AdvanceNumber < open[j].AdvanceNumber
	})

	var plans []DeductionPlan
	remaining := payable
	for _, a := range open {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		take := decimal.Min(remaining, a.OutstandingAmount)
		plans = append(plans, DeductionPlan{
			AdvanceChequeID: a.ID,
			AdvanceNumber:   a.AdvanceNumber,
			Amount:          take,
		})
		remaining = remaining.Sub(take)
	}
	return plans
}

// PlanManual validates an operator-directed drawdown against a single
// advance. Over-deduction is rejected, not clamped.
func (s *DeductionService) PlanManual(payable decimal.Decimal, advance *AdvanceCheque, amount decimal.Decimal) (DeductionPlan, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return DeductionPlan{}, shared.NewDomainError("INVALID_AMOUNT", "Deduction amount must be positive")
	}
	if !advance.Status.HasOutstanding() {
		return DeductionPlan{}, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Advance %s has no outstanding balance", advance.AdvanceNumber))
	}
	if amount.GreaterThan(advance.OutstandingAmount) {
		return DeductionPlan{}, shared.NewDomainError("INSUFFICIENT_BALANCE",
			fmt.Sprintf("Deduction %s exceeds outstanding balance %s on advance %s",
				amount.StringFixed(2), advance.OutstandingAmount.StringFixed(2), advance.AdvanceNumber))
	}
	if amount.GreaterThan(payable) {
		return DeductionPlan{}, shared.NewDomainError("DEDUCTION_EXCEEDS_PAYMENT",
			fmt.Sprintf("Deduction %s exceeds the payable amount %s",
				amount.StringFixed(2), payable.StringFixed(2)))
	}
	return DeductionPlan{
		AdvanceChequeID: advance.ID,
		AdvanceNumber:   advance.AdvanceNumber,
		Amount:          amount,
	}, nil
}

// Total sums a set of plans
func Total(plans []DeductionPlan) decimal.Decimal {
	total := decimal.Zero
	for _, p := range plans {
		total = total.Add(p.Amount)
	}
	return total
}

// Apply executes a plan against its advance and returns the deduction
// record. The advance mutation and the record must land in one transaction.
func (s *DeductionService) Apply(plan DeductionPlan, advance *AdvanceCheque, batchID, growerID uuid.UUID, appliedDate time.Time, manual bool) (*AdvanceDeduction, error) {
	if advance.ID != plan.AdvanceChequeID {
		return nil, shared.NewDomainError("PLAN_MISMATCH", "Deduction plan does not match the advance")
	}
	if err := advance.ApplyDeduction(plan.Amount); err != nil {
		return nil, err
	}
	return NewAdvanceDeduction(advance.ID, batchID, growerID, plan.Amount, appliedDate, manual)
}
