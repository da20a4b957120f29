package billing

import (
	"errors"
	"fmt"

	"github.com/billfold/billfold/internal/money"
)

// ErrInvalidInput rejects malformed or out-of-range numeric input to the
// calculation functions. Zero values never trigger it.
var ErrInvalidInput = errors.New("billing: invalid input")

// Standard Indian tax defaults.
const (
	DefaultGSTRate = 18.0
	DefaultTDSRate = 10.0

	// TDS is suggested automatically for INR invoices whose subtotal is
	// strictly above this threshold.
	TDSAutoEnableThreshold = 30000.0
)

// TaxInput is the raw input to CalculateTax. Rates are taken literally:
// defaults, if any, are applied by the caller.
type TaxInput struct {
	Subtotal      float64
	TaxPercentage float64
	GSTRegistered bool
	GSTRate       float64
	TDSApplicable bool
	TDSRate       float64
}

// TaxBreakdown is the computed financial summary of an invoice. All
// amounts are rounded to two decimals.
type TaxBreakdown struct {
	Subtotal      float64 `json:"subtotal"`
	Tax           float64 `json:"tax"`
	GSTAmount     float64 `json:"gst_amount"`
	TDSAmount     float64 `json:"tds_amount"`
	Total         float64 `json:"total"`
	AmountPayable float64 `json:"amount_payable"`
}

// CalculateTax derives tax, total and amount payable from a subtotal.
// GST takes precedence over the generic tax when both apply. TDS is
// always computed on the pre-tax subtotal and deducted from the total.
func CalculateTax(in TaxInput) (TaxBreakdown, error) {
	if err := checkAmount("subtotal", in.Subtotal); err != nil {
		return TaxBreakdown{}, err
	}
	if err := checkRate("tax percentage", in.TaxPercentage); err != nil {
		return TaxBreakdown{}, err
	}
	if err := checkRate("gst rate", in.GSTRate); err != nil {
		return TaxBreakdown{}, err
	}
	if err := checkRate("tds rate", in.TDSRate); err != nil {
		return TaxBreakdown{}, err
	}

	subtotal := money.Round2(in.Subtotal)

	var tax, gstAmount float64
	switch {
	case in.GSTRegistered && in.GSTRate > 0:
		tax = money.Round2(subtotal * in.GSTRate / 100)
		gstAmount = tax
	case in.TaxPercentage > 0:
		tax = money.Round2(subtotal * in.TaxPercentage / 100)
	}

	total := money.Round2(subtotal + tax)

	var tdsAmount float64
	payable := total
	if in.TDSApplicable && in.TDSRate > 0 {
		tdsAmount = money.Round2(subtotal * in.TDSRate / 100)
		payable = money.Round2(total - tdsAmount)
	}

	return TaxBreakdown{
		Subtotal:      subtotal,
		Tax:           tax,
		GSTAmount:     gstAmount,
		TDSAmount:     tdsAmount,
		Total:         total,
		AmountPayable: payable,
	}, nil
}

func checkAmount(field string, v float64) error {
	if !money.IsFinite(v) {
		return fmt.Errorf("%w: %s is not a finite number", ErrInvalidInput, field)
	}
	if v < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidInput, field)
	}
	return nil
}

func checkRate(field string, v float64) error {
	if !money.IsFinite(v) {
		return fmt.Errorf("%w: %s is not a finite number", ErrInvalidInput, field)
	}
	if v < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidInput, field)
	}
	return nil
}
