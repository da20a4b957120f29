package money

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRound2HalfAwayFromZero(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{2.675, 2.68},
		{-2.675, -2.68},
		{1.005, 1.01},
		{10.344, 10.34},
		{10.345, 10.35},
		{0, 0},
		{118000.0, 118000.0},
	}
	for _, tc := range cases {
		require.InDelta(t, tc.want, Round2(tc.in), 1e-9, "Round2(%v)", tc.in)
	}
}

func TestRound2Stable(t *testing.T) {
	v := Round2(33333.335)
	require.Equal(t, v, Round2(v))
}

func TestIsFinite(t *testing.T) {
	require.True(t, IsFinite(42.5))
	require.False(t, IsFinite(math.NaN()))
	require.False(t, IsFinite(math.Inf(1)))
	require.False(t, IsFinite(math.Inf(-1)))
}

func TestFormat(t *testing.T) {
	require.Equal(t, "₹1,234.50", Format(1234.5, INR))
	require.Equal(t, "$1,234.50", Format(1234.5, USD))
	// Indian digit grouping kicks in past the first thousand separator.
	require.Equal(t, "₹1,00,000.00", Format(100000, INR))
	require.Equal(t, "$100,000.00", Format(100000, USD))
}

func TestToINR(t *testing.T) {
	require.InDelta(t, 8500.0, ToINR(100, USD, 85), 1e-9)
	require.InDelta(t, 100.0, ToINR(100, INR, 85), 1e-9)
	// Non-positive rate falls back to the default.
	require.InDelta(t, 8500.0, ToINR(100, USD, 0), 1e-9)
}
