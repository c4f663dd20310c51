package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an amount in a single ISO 4217 currency.
// Persisted as two columns via gorm's embedded prefix, e.g. amount_value/amount_currency.
type Money struct {
	Value    decimal.Decimal `gorm:"column:value;type:decimal(18,4);not null;default:0" json:"value"`
	Currency string          `gorm:"column:currency;type:char(3)" json:"currency"`
}

// NewMoney builds a Money from a decimal and currency code
func NewMoney(value decimal.Decimal, currency string) Money {
	return Money{Value: value, Currency: currency}
}

// Zero returns a zero amount in the currency
func Zero(currency string) Money {
	return Money{Value: decimal.Zero, Currency: currency}
}

// IsZero reports whether the amount is zero
func (m Money) IsZero() bool {
	return m.Value.IsZero()
}

// IsNegative reports whether the amount is below zero
func (m Money) IsNegative() bool {
	return m.Value.IsNegative()
}

// Add sums two amounts of the same currency.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.Currency, other.Currency)
	}
	return Money{Value: m.Value.Add(other.Value), Currency: m.Currency}, nil
}

// Convert applies an exchange rate quoted as units of target per one unit of m.Currency,
// rounding to the target currency's decimal places.
func (m Money) Convert(rate decimal.Decimal, target string, places int32) Money {
	if m.Currency == target {
		return Money{Value: m.Value.Round(places), Currency: target}
	}
	return Money{Value: m.Value.Mul(rate).Round(places), Currency: target}
}

func (m Money) String() string {
	return m.Value.StringFixed(2) + " " + m.Currency
}

// PercentOf returns base × rate / 100 rounded to places
func PercentOf(base, rate decimal.Decimal, places int32) decimal.Decimal {
	return base.Mul(rate).Div(decimal.NewFromInt(100)).Round(places)
}
