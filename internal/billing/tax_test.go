package billing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculateTaxNoTax(t *testing.T) {
	got, err := CalculateTax(TaxInput{Subtotal: 1000})
	require.NoError(t, err)
	require.Equal(t, TaxBreakdown{
		Subtotal:      1000,
		Total:         1000,
		AmountPayable: 1000,
	}, got)
}

func TestCalculateTaxGST(t *testing.T) {
	got, err := CalculateTax(TaxInput{Subtotal: 100000, GSTRegistered: true, GSTRate: 18})
	require.NoError(t, err)
	require.InDelta(t, 18000, got.Tax, 1e-9)
	require.InDelta(t, 18000, got.GSTAmount, 1e-9)
	require.InDelta(t, 118000, got.Total, 1e-9)
	require.InDelta(t, 118000, got.AmountPayable, 1e-9)
}

func TestCalculateTaxGenericTax(t *testing.T) {
	got, err := CalculateTax(TaxInput{Subtotal: 2000, TaxPercentage: 5})
	require.NoError(t, err)
	require.InDelta(t, 100, got.Tax, 1e-9)
	require.Zero(t, got.GSTAmount)
	require.InDelta(t, 2100, got.Total, 1e-9)
}

// GST wins when both GST and a generic percentage are supplied.
func TestCalculateTaxGSTPrecedence(t *testing.T) {
	got, err := CalculateTax(TaxInput{
		Subtotal:      10000,
		TaxPercentage: 5,
		GSTRegistered: true,
		GSTRate:       18,
	})
	require.NoError(t, err)
	require.InDelta(t, 1800, got.Tax, 1e-9)
	require.InDelta(t, 1800, got.GSTAmount, 1e-9)
}

// TDS is computed on the pre-tax subtotal, never on the taxed total.
func TestCalculateTaxTDSBase(t *testing.T) {
	got, err := CalculateTax(TaxInput{
		Subtotal:      100000,
		GSTRegistered: true,
		GSTRate:       18,
		TDSApplicable: true,
		TDSRate:       10,
	})
	require.NoError(t, err)
	require.InDelta(t, 18000, got.Tax, 1e-9)
	require.InDelta(t, 118000, got.Total, 1e-9)
	require.InDelta(t, 10000, got.TDSAmount, 1e-9)
	require.InDelta(t, 108000, got.AmountPayable, 1e-9)
}

func TestCalculateTaxTDSWithoutOtherTax(t *testing.T) {
	got, err := CalculateTax(TaxInput{Subtotal: 50000, TDSApplicable: true, TDSRate: 10})
	require.NoError(t, err)
	require.InDelta(t, 50000, got.Total, 1e-9)
	require.InDelta(t, 5000, got.TDSAmount, 1e-9)
	require.InDelta(t, 45000, got.AmountPayable, 1e-9)
}

// Feeding a computed total back in with no tax settings must leave it
// unchanged: amounts are 2-decimal stable.
func TestCalculateTaxRoundingIdempotent(t *testing.T) {
	first, err := CalculateTax(TaxInput{Subtotal: 33333.335, GSTRegistered: true, GSTRate: 18})
	require.NoError(t, err)

	second, err := CalculateTax(TaxInput{Subtotal: first.Total})
	require.NoError(t, err)
	require.Equal(t, first.Total, second.Subtotal)
	require.Equal(t, first.Total, second.Total)
	require.Equal(t, first.Total, second.AmountPayable)
}

func TestCalculateTaxRejectsBadInput(t *testing.T) {
	cases := map[string]TaxInput{
		"negative subtotal": {Subtotal: -1},
		"negative gst rate": {Subtotal: 100, GSTRegistered: true, GSTRate: -18},
		"negative tds rate": {Subtotal: 100, TDSApplicable: true, TDSRate: -10},
		"negative tax pct":  {Subtotal: 100, TaxPercentage: -5},
		"nan subtotal":      {Subtotal: math.NaN()},
		"inf subtotal":      {Subtotal: math.Inf(1)},
	}
	for name, in := range cases {
		_, err := CalculateTax(in)
		require.ErrorIs(t, err, ErrInvalidInput, name)
	}
}

func TestCalculateTaxZeroValuesNeverError(t *testing.T) {
	got, err := CalculateTax(TaxInput{})
	require.NoError(t, err)
	require.Zero(t, got.Total)
	require.Zero(t, got.AmountPayable)
}
