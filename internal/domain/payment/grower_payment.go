package payment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ReceiptDetail is one receipt's line in a calculated payment: the price
// resolved for it, the premium earned, the marketing deduction withheld,
// and the resulting amount. Immutable once its batch posts.
type ReceiptDetail struct {
	ReceiptID       uuid.UUID       `json:"receipt_id"`
	ReceiptNumber   string          `json:"receipt_number"`
	ReceiptDate     time.Time       `json:"receipt_date"`
	ProductID       uuid.UUID       `json:"product_id"`
	ProcessID       uuid.UUID       `json:"process_id"`
	NetWeight       decimal.Decimal `json:"net_weight"`
	PriceScheduleID uuid.UUID       `json:"price_schedule_id"`
	PricePerLb      decimal.Decimal `json:"price_per_lb"`
	PremiumAmount   decimal.Decimal `json:"premium_amount"`
	MarketingAmount decimal.Decimal `json:"marketing_amount"`
	Amount          decimal.Decimal `json:"amount"`         // (price * weight) + premium - marketing
	AdvanceNumber   int             `json:"advance_number"` // 0 for final
}

// GrowerPayment is the calculation result for one grower: the receipt
// breakdown and the amounts that posting would turn into a cheque and
// ledger rows. It is a preview value, not a persisted aggregate; validation
// problems attach as messages instead of failing the run.
type GrowerPayment struct {
	GrowerID         uuid.UUID            `json:"grower_id"`
	GrowerNumber     string               `json:"grower_number"`
	GrowerName       string               `json:"grower_name"`
	Currency         valueobject.Currency `json:"currency"`
	Details          []ReceiptDetail      `json:"details"`
	AdvanceAmount    decimal.Decimal      `json:"advance_amount"` // gross: always the sum of detail amounts
	PremiumAmount    decimal.Decimal      `json:"premium_amount"` // informational subtotal
	MarketingAmount  decimal.Decimal      `json:"marketing_amount"`
	PriorAdvances    decimal.Decimal      `json:"prior_advances"`   // stored amounts netted out at final settlement
	DeductionAmount  decimal.Decimal      `json:"deduction_amount"` // outstanding advances drawn down (set at posting)
	NetAmount        decimal.Decimal      `json:"net_amount"`       // advance - prior advances - deductions
	ValidationErrors []string             `json:"validation_errors,omitempty"`
}

// NewGrowerPayment creates an empty payment for a grower
func NewGrowerPayment(growerID uuid.UUID, growerNumber, growerName string, currency valueobject.Currency) *GrowerPayment {
	return &GrowerPayment{
		GrowerID:        growerID,
		GrowerNumber:    growerNumber,
		GrowerName:      growerName,
		Currency:        currency,
		Details:         make([]ReceiptDetail, 0),
		AdvanceAmount:   decimal.Zero,
		PriorAdvances:   decimal.Zero,
		PremiumAmount:   decimal.Zero,
		MarketingAmount: decimal.Zero,
		DeductionAmount: decimal.Zero,
		NetAmount:       decimal.Zero,
	}
}

// AddDetail appends a receipt line and accumulates the totals
func (p *GrowerPayment) AddDetail(d ReceiptDetail) {
	p.Details = append(p.Details, d)
	p.AdvanceAmount = p.AdvanceAmount.Add(d.Amount)
	p.PremiumAmount = p.PremiumAmount.Add(d.PremiumAmount)
	p.MarketingAmount = p.MarketingAmount.Add(d.MarketingAmount)
	p.NetAmount = p.PayableAmount().Sub(p.DeductionAmount)
}

// PayableAmount is the amount still owed before advance drawdowns: the gross
// receipt value minus what prior advances already paid. Deductions plan
// against this, never against gross.
func (p *GrowerPayment) PayableAmount() decimal.Decimal {
	return p.AdvanceAmount.Sub(p.PriorAdvances)
}

// Flag attaches a non-fatal validation message. A flagged grower is skipped
// at posting and surfaces as a warning, not a failure.
func (p *GrowerPayment) Flag(message string) {
	p.ValidationErrors = append(p.ValidationErrors, message)
}

// IsValid reports whether the grower can be posted
func (p *GrowerPayment) IsValid() bool {
	return len(p.ValidationErrors) == 0
}

// HasPayableAmount reports whether there is anything to post. A grower whose
// payment is fully absorbed by deductions still posts (net zero cheque is
// suppressed but ledger rows are written), so this only guards empty runs.
func (p *GrowerPayment) HasPayableAmount() bool {
	return len(p.Details) > 0
}

// ApplyDeductions records the drawdown computed by the deduction service
func (p *GrowerPayment) ApplyDeductions(total decimal.Decimal) {
	p.DeductionAmount = total
	p.NetAmount = p.PayableAmount().Sub(total)
}

// SubtractPriorAdvances nets out advances already paid, by their stored
// amounts. Used only for final settlement. Gross stays the sum of detail
// amounts, matching the allocation rows the batch will write; only the
// payable remainder shrinks. A negative remainder flags the grower instead
// of generating a negative payment.
func (p *GrowerPayment) SubtractPriorAdvances(paid decimal.Decimal) {
	p.PriorAdvances = paid
	p.NetAmount = p.PayableAmount().Sub(p.DeductionAmount)
	if p.PayableAmount().IsNegative() {
		p.Flag(fmt.Sprintf("Prior advances %s exceed the final payment value", paid.StringFixed(2)))
	}
}
