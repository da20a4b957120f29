package reports

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/billfold/billfold/internal/money"
)

// ErrInvalidPeriod indicates a report request with a reversed or empty
// date range.
var ErrInvalidPeriod = errors.New("reports: invalid period")

// RepositoryPort defines the aggregate queries behind the report.
type RepositoryPort interface {
	// RevenueByMonth returns per-month per-currency invoiced, collected
	// and outstanding amounts for invoices issued in [from, to].
	RevenueByMonth(ctx context.Context, userID int64, from, to time.Time) ([]MonthRevenue, error)
	// ExpenseTotals returns per-currency expense totals for the period.
	ExpenseTotals(ctx context.Context, userID int64, from, to time.Time) (map[string]float64, error)
}

// Service computes cached, consolidated revenue summaries.
type Service struct {
	repo    RepositoryPort
	cache   *Cache
	usdRate float64
	group   singleflight.Group
	now     func() time.Time
}

// NewService builds a Service instance. usdRate converts USD figures
// into INR for consolidation; non-positive falls back to the default.
func NewService(repo RepositoryPort, cache *Cache, usdRate float64) *Service {
	if usdRate <= 0 {
		usdRate = money.DefaultUSDToINRRate
	}
	return &Service{repo: repo, cache: cache, usdRate: usdRate, now: time.Now}
}

// WithClock overrides the service clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RevenueSummary returns the consolidated report for the period,
// serving from cache when possible. Identical concurrent requests
// share one computation.
func (s *Service) RevenueSummary(ctx context.Context, userID int64, from, to time.Time) (*RevenueSummary, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidPeriod)
	}
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return nil, fmt.Errorf("%w: from must not be after to", ErrInvalidPeriod)
	}

	key, err := s.cache.Key(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	ch := s.group.DoChan(key, func() (any, error) {
		return s.cache.Fetch(ctx, key, func(ctx context.Context) (*RevenueSummary, error) {
			return s.build(ctx, userID, from, to)
		})
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*RevenueSummary), nil
	}
}

// Invalidate drops all cached summaries after a billing write.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) build(ctx context.Context, userID int64, from, to time.Time) (*RevenueSummary, error) {
	months, err := s.repo.RevenueByMonth(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("reports: revenue by month: %w", err)
	}
	expenses, err := s.repo.ExpenseTotals(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("reports: expense totals: %w", err)
	}

	summary := &RevenueSummary{
		UserID:      userID,
		From:        from,
		To:          to,
		USDRate:     s.usdRate,
		Months:      months,
		GeneratedAt: s.now(),
	}

	invoiced := map[string]float64{}
	for _, m := range months {
		invoiced[m.Currency] += m.Invoiced
		summary.TotalInvoicedINR += money.ToINR(m.Invoiced, m.Currency, s.usdRate)
		summary.TotalCollectedINR += money.ToINR(m.Collected, m.Currency, s.usdRate)
		summary.TotalOutstandingINR += money.ToINR(m.Outstanding, m.Currency, s.usdRate)
	}
	summary.Invoiced = currencyTotals(invoiced, s.usdRate)

	summary.Expenses = currencyTotals(expenses, s.usdRate)
	for currency, amount := range expenses {
		summary.TotalExpensesINR += money.ToINR(amount, currency, s.usdRate)
	}

	summary.TotalInvoicedINR = money.Round2(summary.TotalInvoicedINR)
	summary.TotalCollectedINR = money.Round2(summary.TotalCollectedINR)
	summary.TotalOutstandingINR = money.Round2(summary.TotalOutstandingINR)
	summary.TotalExpensesINR = money.Round2(summary.TotalExpensesINR)
	summary.NetINR = money.Round2(summary.TotalCollectedINR - summary.TotalExpensesINR)
	return summary, nil
}

func currencyTotals(byCurrency map[string]float64, usdRate float64) []CurrencyTotal {
	out := make([]CurrencyTotal, 0, len(byCurrency))
	for currency, amount := range byCurrency {
		out = append(out, CurrencyTotal{
			Currency: currency,
			Amount:   money.Round2(amount),
			INR:      money.ToINR(amount, currency, usdRate),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out
}
