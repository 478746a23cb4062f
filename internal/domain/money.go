package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	MinAmount = decimal.RequireFromString("1.00")
	MaxAmount = decimal.RequireFromString("10000.00")
)

// plainAmount admits digits with an optional sign and fraction; no exponents or
// grouping separators.
var plainAmount = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

var (
	ErrAmountFormat    = errors.New("amount must be a decimal number")
	ErrAmountPrecision = errors.New("amount must have at most 2 decimal places")
	ErrAmountRange     = fmt.Errorf("amount must be between %s and %s", MinAmount.StringFixed(2), MaxAmount.StringFixed(2))
)

// Money is a transfer amount in a settlement currency, as handed to the network.
type Money struct {
	Amount   decimal.Decimal
	Currency string // ISO 4217
}

func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{
		Amount:   amount,
		Currency: currency,
	}
}

// ParseAmount parses a customer supplied amount and enforces precision and bounds.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if !IsPlainAmount(raw) {
		return decimal.Zero, ErrAmountFormat
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, ErrAmountFormat
	}
	if !d.Round(2).Equal(d) {
		return decimal.Zero, ErrAmountPrecision
	}
	if d.LessThan(MinAmount) || d.GreaterThan(MaxAmount) {
		return decimal.Zero, ErrAmountRange
	}
	return d.Round(2), nil
}

// IsPlainAmount reports whether raw is written as a plain decimal number.
func IsPlainAmount(raw string) bool {
	return plainAmount.MatchString(strings.TrimSpace(raw))
}

// String renders the amount with two decimals followed by the currency code.
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(2), m.Currency)
}
