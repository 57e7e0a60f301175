package library

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a monetary value in cents.
type Amount int64

// MaxAmount is the largest representable amount. Fines saturate here.
const MaxAmount = Amount(math.MaxInt64)

// Dollars builds an Amount from a whole currency unit count.
func Dollars(n int64) Amount { return Amount(n * 100) }

// ParseAmount parses a decimal string such as "3", "2.5" or "$1.25",
// rounding to two decimals.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}
	return amountFromFloat(f)
}

func amountFromFloat(f float64) (Amount, error) {
	// 2^63 is exactly representable, so this also rejects values that
	// would overflow the conversion.
	if math.IsNaN(f) || math.Abs(f*100) >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %v out of range", ErrInvalidAmount, f)
	}
	return Amount(math.Round(f * 100)), nil
}

// plus adds b to a, saturating at MaxAmount.
func (a Amount) plus(b Amount) Amount {
	if b > 0 && a > MaxAmount-b {
		return MaxAmount
	}
	return a + b
}

func (a Amount) String() string {
	sign := ""
	if a < 0 {
		sign = "-"
		a = -a
	}
	return fmt.Sprintf("%s%d.%02d", sign, a/100, a%100)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("amount must be a number: %w", err)
	}
	v, err := amountFromFloat(f)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
