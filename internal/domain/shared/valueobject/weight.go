package valueobject

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Weight is a value object for a receipt's net weight in pounds.
// Prices, premiums and marketing rates are all quoted per pound.
type Weight struct {
	pounds decimal.Decimal
}

// NewWeight creates a Weight from a decimal pound value
func NewWeight(pounds decimal.Decimal) (Weight, error) {
	if pounds.IsNegative() {
		return Weight{}, errors.New("weight cannot be negative")
	}
	return Weight{pounds: pounds}, nil
}

// NewWeightFromFloat creates a Weight from a float64 pound value
func NewWeightFromFloat(pounds float64) (Weight, error) {
	return NewWeight(decimal.NewFromFloat(pounds))
}

// MustNewWeight creates a Weight, panicking on a negative value
func MustNewWeight(pounds decimal.Decimal) Weight {
	w, err := NewWeight(pounds)
	if err != nil {
		panic(err)
	}
	return w
}

// ZeroWeight returns a zero Weight
func ZeroWeight() Weight {
	return Weight{pounds: decimal.Zero}
}

// Pounds returns the decimal pound value
func (w Weight) Pounds() decimal.Decimal {
	return w.pounds
}

// IsZero returns true if the weight is zero
func (w Weight) IsZero() bool {
	return w.pounds.IsZero()
}

// Add returns the sum of two weights
func (w Weight) Add(other Weight) Weight {
	return Weight{pounds: w.pounds.Add(other.pounds)}
}

// Extend multiplies the weight by a per-pound rate, yielding a Money amount
func (w Weight) Extend(ratePerPound Money) Money {
	return ratePerPound.Multiply(w.pounds)
}

// String returns the weight formatted to two decimal places
func (w Weight) String() string {
	return fmt.Sprintf("%s lb", w.pounds.StringFixed(2))
}

// Value implements driver.Valuer for database storage
func (w Weight) Value() (driver.Value, error) {
	return w.pounds.String(), nil
}

// Scan implements sql.Scanner for database retrieval
func (w *Weight) Scan(value any) error {
	if value == nil {
		w.pounds = decimal.Zero
		return nil
	}
	var strVal string
	switch v := value.(type) {
	case string:
		strVal = v
	case []byte:
		strVal = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Weight", value)
	}
	pounds, err := decimal.NewFromString(strVal)
	if err != nil {
		return fmt.Errorf("invalid decimal value: %w", err)
	}
	w.pounds = pounds
	return nil
}
