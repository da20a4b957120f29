// Package money provides fixed-point-safe helpers for currency amounts.
package money

import (
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Supported currency codes.
const (
	INR = "INR"
	USD = "USD"
)

// DefaultUSDToINRRate is used when no rate has been configured.
const DefaultUSDToINRRate = 85.0

// Round2 rounds an amount to two decimal places, half away from zero.
// The value goes through a decimal representation so binary float drift
// cannot flip a midpoint the wrong way.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// IsFinite reports whether v is a usable monetary value.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Symbol returns the display symbol for a currency code.
func Symbol(currency string) string {
	if currency == USD {
		return "$"
	}
	return "₹"
}

var printers = map[string]*message.Printer{
	INR: message.NewPrinter(language.MustParse("en-IN")),
	USD: message.NewPrinter(language.MustParse("en-US")),
}

// Format renders an amount with its currency symbol and locale digit
// grouping: ₹1,00,000.00 for INR, $100,000.00 for USD. Unknown currencies
// fall back to INR formatting.
func Format(amount float64, currency string) string {
	p, ok := printers[currency]
	if !ok {
		p = printers[INR]
	}
	return Symbol(currency) + p.Sprint(number.Decimal(
		Round2(amount),
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2),
	))
}

// ToINR converts an amount into INR using the supplied USD rate. Amounts
// already in INR pass through unchanged. A non-positive rate falls back
// to the default.
func ToINR(amount float64, currency string, usdToINR float64) float64 {
	if currency != USD {
		return Round2(amount)
	}
	if usdToINR <= 0 {
		usdToINR = DefaultUSDToINRRate
	}
	return Round2(amount * usdToINR)
}
