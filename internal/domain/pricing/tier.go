package pricing

import (
	"fmt"
	"sort"

	"github.com/harvestpay/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// TierPrice is one advance tier's effective per-pound price for a
// product/process combination within a crop year.
type TierPrice struct {
	AdvanceNumber int
	PricePerLb    decimal.Decimal
}

// TierSequence is the ordered sequence of advance tiers for one
// product/process in a crop year. Advance numbering is open-ended (1..N);
// the sequence, not any hardcoded field, owns the rule that tier prices
// never decrease.
type TierSequence struct {
	tiers []TierPrice
}

// NewTierSequence builds a sequence from tier prices in any order
func NewTierSequence(tiers []TierPrice) TierSequence {
	sorted := make([]TierPrice, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].AdvanceNumber < sorted[j].AdvanceNumber
	})
	return TierSequence{tiers: sorted}
}

// Price returns the price for a tier, if present
func (s TierSequence) Price(advanceNumber int) (decimal.Decimal, bool) {
	for _, t := range s.tiers {
		if t.AdvanceNumber == advanceNumber {
			return t.PricePerLb, true
		}
	}
	return decimal.Zero, false
}

// ValidateMonotonic checks that no tier pays less per pound than the tier
// before it. A violation is a business-rule error, never silently clamped.
func (s TierSequence) ValidateMonotonic() error {
	for i := 1; i < len(s.tiers); i++ {
		prev, cur := s.tiers[i-1], s.tiers[i]
		if cur.PricePerLb.LessThan(prev.PricePerLb) {
			return shared.NewDomainError("TIER_PRICE_DECREASED",
				fmt.Sprintf("Advance %d price %s/lb is below advance %d price %s/lb",
					cur.AdvanceNumber, cur.PricePerLb.String(),
					prev.AdvanceNumber, prev.PricePerLb.String()))
		}
	}
	return nil
}

// ValidateAgainstPrior checks a candidate tier price against the stored
// (locked) price of the preceding tier. Used during calculation, where the
// prior tier's number of record comes from its price lock rather than the
// live schedule.
func ValidateAgainstPrior(advanceNumber int, price, priorLockedPrice decimal.Decimal) error {
	if advanceNumber <= 1 {
		return nil
	}
	if price.LessThan(priorLockedPrice) {
		return shared.NewDomainError("TIER_PRICE_DECREASED",
			fmt.Sprintf("Advance %d price %s/lb is below the posted advance %d price %s/lb",
				advanceNumber, price.String(), advanceNumber-1, priorLockedPrice.String()))
	}
	return nil
}
