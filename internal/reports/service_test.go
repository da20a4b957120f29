package reports

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	months       []MonthRevenue
	expenses     map[string]float64
	revenueCalls int
}

func (m *mockRepo) RevenueByMonth(ctx context.Context, userID int64, from, to time.Time) ([]MonthRevenue, error) {
	m.revenueCalls++
	return m.months, nil
}

func (m *mockRepo) ExpenseTotals(ctx context.Context, userID int64, from, to time.Time) (map[string]float64, error) {
	return m.expenses, nil
}

func newTestService(t *testing.T, repo *mockRepo) (*Service, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	svc := NewService(repo, cache, 85)
	return svc, func() {
		_ = client.Close()
		mr.Close()
	}
}

func period() (time.Time, time.Time) {
	return time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC)
}

func TestRevenueSummaryConsolidatesToINR(t *testing.T) {
	repo := &mockRepo{
		months: []MonthRevenue{
			{Month: "2025-01", Currency: "INR", Invoiced: 100000, Collected: 60000, Outstanding: 40000},
			{Month: "2025-01", Currency: "USD", Invoiced: 1000, Collected: 1000, Outstanding: 0},
		},
		expenses: map[string]float64{"INR": 20000, "USD": 100},
	}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()
	from, to := period()

	summary, err := svc.RevenueSummary(context.Background(), 1, from, to)
	require.NoError(t, err)

	// USD converts at 85: 1000 USD = 85,000 INR invoiced and collected.
	require.Equal(t, 185000.0, summary.TotalInvoicedINR)
	require.Equal(t, 145000.0, summary.TotalCollectedINR)
	require.Equal(t, 40000.0, summary.TotalOutstandingINR)
	require.Equal(t, 28500.0, summary.TotalExpensesINR)
	require.Equal(t, 116500.0, summary.NetINR)

	require.Len(t, summary.Invoiced, 2)
	require.Equal(t, "INR", summary.Invoiced[0].Currency)
	require.Equal(t, 100000.0, summary.Invoiced[0].Amount)
	require.Equal(t, "USD", summary.Invoiced[1].Currency)
	require.Equal(t, 85000.0, summary.Invoiced[1].INR)
}

func TestRevenueSummaryCaches(t *testing.T) {
	repo := &mockRepo{
		months:   []MonthRevenue{{Month: "2025-03", Currency: "INR", Invoiced: 5000}},
		expenses: map[string]float64{},
	}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()
	from, to := period()

	_, err := svc.RevenueSummary(context.Background(), 1, from, to)
	require.NoError(t, err)
	_, err = svc.RevenueSummary(context.Background(), 1, from, to)
	require.NoError(t, err)
	require.Equal(t, 1, repo.revenueCalls)

	// Invalidation bumps the version, so the next read recomputes.
	require.NoError(t, svc.Invalidate(context.Background()))
	_, err = svc.RevenueSummary(context.Background(), 1, from, to)
	require.NoError(t, err)
	require.Equal(t, 2, repo.revenueCalls)
}

func TestRevenueSummaryRejectsBadPeriod(t *testing.T) {
	svc, cleanup := newTestService(t, &mockRepo{expenses: map[string]float64{}})
	defer cleanup()
	from, to := period()

	_, err := svc.RevenueSummary(context.Background(), 0, from, to)
	require.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = svc.RevenueSummary(context.Background(), 1, to, from)
	require.ErrorIs(t, err, ErrInvalidPeriod)
}
