// Package money formats prices. The API quotes every amount in minor units
// (paise for INR); the storefront shows them in one currency and locale.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Formatter struct {
	unit    currency.Unit
	printer *message.Printer
	scale   int32
}

func New(locale, code string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("money: locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("money: currency %q: %w", code, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return &Formatter{
		unit:    unit,
		printer: message.NewPrinter(tag),
		scale:   int32(scale),
	}, nil
}

// Major converts minor units to the currency's major unit without rounding.
func (f *Formatter) Major(minor int64) decimal.Decimal {
	return decimal.New(minor, -f.scale)
}

// exactLimit bounds the amounts that go through the locale formatter, which
// takes a float64. Below it the float is exact to the minor unit.
const exactLimit = 1_000_000_000_000

// Format renders minor units with the currency symbol and locale grouping.
// Amounts at or beyond exactLimit are written exactly as "<ISO code> <major>".
func (f *Formatter) Format(minor int64) string {
	if minor <= -exactLimit || minor >= exactLimit {
		return f.unit.String() + " " + f.Major(minor).StringFixed(f.scale)
	}
	return f.printer.Sprint(currency.Symbol(f.unit.Amount(f.Major(minor).InexactFloat64())))
}

func (f *Formatter) Currency() string { return f.unit.String() }
