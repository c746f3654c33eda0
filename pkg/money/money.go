// Package money parses receipt amounts and renders them for display.
// Parsing goes through shopspring/decimal and display through go-money so
// float noise from OCR or spreadsheet cells never reaches output.
package money

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency codes used for display defaults.
const (
	USD = "USD"
	EUR = "EUR"
	CAD = "CAD"
	JPY = "JPY" // no minor unit
)

// Money is an amount held in the currency's minor unit.
type Money struct {
	m *money.Money
}

// New creates Money from minor units.
func New(minor int64, currencyCode string) *Money {
	return &Money{m: money.New(minor, currencyCode)}
}

// NewFromFloat rounds amount to the currency's minor unit. Unknown
// currency codes fall back to USD.
func NewFromFloat(amount float64, currencyCode string) *Money {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currencyCode = USD
		currency = money.GetCurrency(USD)
	}

	minor := decimal.NewFromFloat(amount).Shift(int32(currency.Fraction)).Round(0).IntPart()
	return New(minor, currencyCode)
}

// Amount returns the value in minor units.
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 code.
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

// Display renders the amount with symbol and separators, e.g. "$1,250.00".
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return "$0.00"
	}
	return m.m.Display()
}

// String renders the plain decimal amount, e.g. "1250.00".
func (m *Money) String() string {
	if m == nil || m.m == nil {
		return "0.00"
	}
	fraction := int32(m.m.Currency().Fraction)
	return decimal.New(m.m.Amount(), -fraction).StringFixed(fraction)
}

// Format renders a record amount in the given currency.
func Format(amount float64, currencyCode string) string {
	return NewFromFloat(amount, currencyCode).Display()
}
