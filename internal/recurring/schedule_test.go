package recurring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestNextAfter(t *testing.T) {
	cases := []struct {
		name string
		from time.Time
		freq Frequency
		want time.Time
	}{
		{"weekly", d(2025, time.January, 6), Weekly, d(2025, time.January, 13)},
		{"monthly", d(2025, time.March, 15), Monthly, d(2025, time.April, 15)},
		{"monthly overflow non-leap", d(2025, time.January, 31), Monthly, d(2025, time.February, 28)},
		{"monthly overflow leap", d(2024, time.January, 31), Monthly, d(2024, time.February, 29)},
		{"monthly 30th into february", d(2025, time.March, 30), Monthly, d(2025, time.April, 30)},
		{"quarterly", d(2025, time.January, 15), Quarterly, d(2025, time.April, 15)},
		{"quarterly overflow", d(2025, time.November, 30), Quarterly, d(2026, time.February, 28)},
		{"yearly", d(2025, time.May, 1), Yearly, d(2026, time.May, 1)},
		{"yearly from leap day", d(2024, time.February, 29), Yearly, d(2025, time.February, 28)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, NextAfter(tc.from, tc.freq))
		})
	}
}

func TestNextAfterMonotonic(t *testing.T) {
	// A clamped date keeps stepping forward, never repeats.
	cur := d(2025, time.January, 31)
	for i := 0; i < 12; i++ {
		next := NextAfter(cur, Monthly)
		require.True(t, next.After(cur), "step %d: %v -> %v", i, cur, next)
		cur = next
	}
}
