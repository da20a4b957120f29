package billing

import (
	"fmt"
	"math"

	"github.com/billfold/billfold/internal/money"
)

// TotalsInput is the full draft state ResolveTotals works from. Callers
// must re-resolve after every edit that can affect the subtotal; stale
// totals shown to a user are a correctness bug.
type TotalsInput struct {
	Payload  EngagementPayload
	Currency string
	Tax      TaxMode

	// TDSChoice nil means the user has not touched the TDS control and
	// the INR threshold rule may decide for this computation.
	TDSChoice *bool
	// TDSRate zero means the default rate when TDS ends up applicable.
	TDSRate float64
}

// ResolveTotals derives the subtotal for the draft's engagement type and
// delegates to CalculateTax. It is pure: no stored state is mutated, the
// auto-TDS rule only shapes this computation's result.
func ResolveTotals(in TotalsInput) (TaxBreakdown, error) {
	subtotal, err := subtotalFor(in.Payload)
	if err != nil {
		return TaxBreakdown{}, err
	}

	tdsRate := in.TDSRate
	if tdsRate <= 0 {
		tdsRate = DefaultTDSRate
	}

	var tdsApplicable bool
	if in.TDSChoice != nil {
		tdsApplicable = *in.TDSChoice
	} else {
		tdsApplicable = in.Currency == money.INR && subtotal > TDSAutoEnableThreshold
	}

	return CalculateTax(TaxInput{
		Subtotal:      subtotal,
		TaxPercentage: genericRate(in.Tax),
		GSTRegistered: in.Tax.IsGST(),
		GSTRate:       gstRate(in.Tax),
		TDSApplicable: tdsApplicable,
		TDSRate:       tdsRate,
	})
}

func genericRate(m TaxMode) float64 {
	if m.IsGST() {
		return 0
	}
	return m.Rate()
}

func gstRate(m TaxMode) float64 {
	if !m.IsGST() {
		return 0
	}
	return m.Rate()
}

// subtotalFor reads only the data source owned by the payload's
// engagement type.
func subtotalFor(p EngagementPayload) (float64, error) {
	switch p.Engagement() {
	case EngagementMilestone:
		var sum float64
		for i, m := range p.MilestoneList() {
			amount := m.Amount
			if math.IsNaN(amount) {
				// A milestone without a usable amount counts as zero.
				amount = 0
			}
			if !money.IsFinite(amount) {
				return 0, fmt.Errorf("%w: milestone %d amount is not finite", ErrInvalidInput, i)
			}
			if amount < 0 {
				return 0, fmt.Errorf("%w: milestone %d amount must not be negative", ErrInvalidInput, i)
			}
			sum += amount
		}
		return sum, nil
	case EngagementProject, EngagementRetainer:
		items := p.Items()
		if len(items) == 0 {
			return 0, nil
		}
		// Fixed-fee engagements bill the single first item's amount;
		// quantity is pinned to 1 and ignored.
		fee := items[0].Amount
		if !money.IsFinite(fee) {
			return 0, fmt.Errorf("%w: fee amount is not finite", ErrInvalidInput)
		}
		if fee < 0 {
			return 0, fmt.Errorf("%w: fee amount must not be negative", ErrInvalidInput)
		}
		return fee, nil
	default:
		var sum float64
		for i, item := range p.Items() {
			if !money.IsFinite(item.Quantity) || !money.IsFinite(item.Rate) {
				return 0, fmt.Errorf("%w: item %d quantity/rate is not finite", ErrInvalidInput, i)
			}
			if item.Quantity < 0 {
				return 0, fmt.Errorf("%w: item %d quantity must not be negative", ErrInvalidInput, i)
			}
			if item.Rate < 0 {
				return 0, fmt.Errorf("%w: item %d rate must not be negative", ErrInvalidInput, i)
			}
			sum += item.Quantity * item.Rate
		}
		return sum, nil
	}
}

// NormalizeItems recomputes each item's amount from quantity × rate.
// Callers apply it on every quantity or rate edit so the stored amount
// stays consistent with its inputs.
func NormalizeItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	for i, item := range items {
		item.Amount = money.Round2(item.Quantity * item.Rate)
		out[i] = item
	}
	return out
}
