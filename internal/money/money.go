// Package money provides the minor-unit amount type used for all prices.
//
// Amounts are stored as integer minor units (cents) so arithmetic never
// touches floating point. Formatting goes through x/text so display strings
// carry the correct currency symbol.
package money

import (
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CurrencyCode is the stable currency every price in the system is
// denominated in. Payments record it explicitly so historic rows stay
// correct if this ever changes.
const CurrencyCode = "KES"

// Amount is a monetary value in minor units (cents).
type Amount int64

// Mul returns the amount multiplied by a unit count.
func (a Amount) Mul(n int) Amount {
	return a * Amount(n)
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a == 0
}

var printer = message.NewPrinter(language.English)

// String formats the amount with the currency symbol, e.g. "KES 500.00".
func (a Amount) String() string {
	unit, err := currency.ParseISO(CurrencyCode)
	if err != nil {
		return printer.Sprintf("%.2f", float64(a)/100)
	}
	return printer.Sprint(currency.Symbol(unit.Amount(float64(a) / 100)))
}
