package billing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/billfold/billfold/internal/money"
)

func boolPtr(v bool) *bool { return &v }

// Each engagement type reads only its own data source.
func TestResolveTotalsEngagementSelection(t *testing.T) {
	items := []LineItem{{Description: "Design", Quantity: 2, Rate: 500, Amount: 1000}}
	milestones := []Milestone{{Name: "Phase 1", Amount: 5000}}

	service, err := ResolveTotals(TotalsInput{Payload: ServiceItems(items), Currency: money.INR, Tax: NoTax()})
	require.NoError(t, err)
	require.InDelta(t, 1000, service.Subtotal, 1e-9)

	staged, err := ResolveTotals(TotalsInput{Payload: Milestones(milestones), Currency: money.INR, Tax: NoTax()})
	require.NoError(t, err)
	require.InDelta(t, 5000, staged.Subtotal, 1e-9)
}

func TestResolveTotalsServiceSumsQuantityTimesRate(t *testing.T) {
	items := []LineItem{
		{Quantity: 2, Rate: 500},
		{Quantity: 1.5, Rate: 1000},
	}
	got, err := ResolveTotals(TotalsInput{Payload: ServiceItems(items), Currency: money.INR, Tax: NoTax()})
	require.NoError(t, err)
	require.InDelta(t, 2500, got.Subtotal, 1e-9)
}

// Project and retainer engagements bill the first item's amount and
// ignore quantity.
func TestResolveTotalsFixedFee(t *testing.T) {
	fee := LineItem{Description: "Monthly retainer", Quantity: 1, Amount: 40000}

	project, err := ResolveTotals(TotalsInput{Payload: ProjectFee(fee), Currency: money.USD, Tax: NoTax()})
	require.NoError(t, err)
	require.InDelta(t, 40000, project.Subtotal, 1e-9)

	retainer, err := ResolveTotals(TotalsInput{Payload: RetainerFee(fee), Currency: money.USD, Tax: NoTax()})
	require.NoError(t, err)
	require.InDelta(t, 40000, retainer.Subtotal, 1e-9)
}

// The auto-TDS boundary is strictly greater-than ₹30,000, INR only, and
// only while the user has not made an explicit choice.
func TestResolveTotalsAutoTDS(t *testing.T) {
	draft := func(amount float64, currency string, choice *bool) TotalsInput {
		return TotalsInput{
			Payload:   ProjectFee(LineItem{Amount: amount}),
			Currency:  currency,
			Tax:       NoTax(),
			TDSChoice: choice,
		}
	}

	above, err := ResolveTotals(draft(30001, money.INR, nil))
	require.NoError(t, err)
	require.InDelta(t, 3000.10, above.TDSAmount, 1e-9)
	require.InDelta(t, 27000.90, above.AmountPayable, 1e-9)

	atBoundary, err := ResolveTotals(draft(30000, money.INR, nil))
	require.NoError(t, err)
	require.Zero(t, atBoundary.TDSAmount)

	usd, err := ResolveTotals(draft(50000, money.USD, nil))
	require.NoError(t, err)
	require.Zero(t, usd.TDSAmount)

	optedOut, err := ResolveTotals(draft(50000, money.INR, boolPtr(false)))
	require.NoError(t, err)
	require.Zero(t, optedOut.TDSAmount)

	optedIn, err := ResolveTotals(draft(1000, money.INR, boolPtr(true)))
	require.NoError(t, err)
	require.InDelta(t, 100, optedIn.TDSAmount, 1e-9)
}

func TestResolveTotalsAutoTDSHonorsSuppliedRate(t *testing.T) {
	got, err := ResolveTotals(TotalsInput{
		Payload:  ProjectFee(LineItem{Amount: 40000}),
		Currency: money.INR,
		TDSRate:  2,
	})
	require.NoError(t, err)
	require.InDelta(t, 800, got.TDSAmount, 1e-9)
}

func TestResolveTotalsGSTDefaultRate(t *testing.T) {
	got, err := ResolveTotals(TotalsInput{
		Payload:   ProjectFee(LineItem{Amount: 1000}),
		Currency:  money.USD,
		Tax:       GST(0),
		TDSChoice: boolPtr(false),
	})
	require.NoError(t, err)
	require.InDelta(t, 180, got.Tax, 1e-9)
}

func TestResolveTotalsRejectsNegativeInputs(t *testing.T) {
	_, err := ResolveTotals(TotalsInput{
		Payload:  ServiceItems([]LineItem{{Quantity: -1, Rate: 100}}),
		Currency: money.INR,
	})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = ResolveTotals(TotalsInput{
		Payload:  Milestones([]Milestone{{Amount: -5}}),
		Currency: money.INR,
	})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestResolveTotalsEmptyPayloads(t *testing.T) {
	got, err := ResolveTotals(TotalsInput{Payload: ServiceItems(nil), Currency: money.INR})
	require.NoError(t, err)
	require.Zero(t, got.Total)

	got, err = ResolveTotals(TotalsInput{Payload: ProjectFee(LineItem{}), Currency: money.INR})
	require.NoError(t, err)
	require.Zero(t, got.Total)
}

func TestNormalizeItems(t *testing.T) {
	items := NormalizeItems([]LineItem{
		{Quantity: 3, Rate: 33.335, Amount: 999},
		{Quantity: 0, Rate: 100},
	})
	require.InDelta(t, 100.01, items[0].Amount, 1e-9)
	require.Zero(t, items[1].Amount)
}
