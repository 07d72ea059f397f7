package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Money is an immutable amount of a single currency.
type Money struct {
	Amount   decimal.Decimal
	Currency currency.Unit
}

// NewMoney creates Money, rejecting negative amounts.
func NewMoney(amount decimal.Decimal, unit currency.Unit) (Money, error) {
	if amount.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s", ErrNegativeAmount, amount.String())
	}
	return Money{Amount: amount, Currency: unit}, nil
}

// ParseMoney builds Money from a decimal string and an ISO 4217 code.
func ParseMoney(amount, code string) (Money, error) {
	unit, err := ParseCurrency(code)
	if err != nil {
		return Money{}, err
	}
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("parsing amount %q: %w", amount, err)
	}
	return NewMoney(value, unit)
}

// MoneyOf is a shorthand for whole-unit amounts. It panics on negative values.
func MoneyOf(units int64, unit currency.Unit) Money {
	m, err := NewMoney(decimal.NewFromInt(units), unit)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseCurrency resolves an ISO 4217 currency code.
func ParseCurrency(code string) (currency.Unit, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return currency.Unit{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	return unit, nil
}

// SameCurrency reports whether both amounts use the same currency code.
func (m Money) SameCurrency(other Money) bool {
	return m.Currency.String() == other.Currency.String()
}

// Equal compares amounts numerically (60 == 60.00) and currencies by code.
func (m Money) Equal(other Money) bool {
	return m.SameCurrency(other) && m.Amount.Equal(other.Amount)
}

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m.Amount.IsPositive()
}

func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + m.Currency.String()
}
