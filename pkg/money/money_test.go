package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCeilRatio(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		ratio  string
		want   int64
	}{
		{name: "exact", amount: 100, ratio: "0.10", want: 10},
		{name: "rounds_up", amount: 101, ratio: "0.10", want: 11},
		{name: "zero_amount", amount: 0, ratio: "0.10", want: 0},
		{name: "zero_ratio", amount: 500, ratio: "0", want: 0},
		{name: "full_ratio", amount: 777, ratio: "1", want: 777},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, CeilRatio(tc.amount, decimal.RequireFromString(tc.ratio)))
		})
	}
}

func TestRoundRatio(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		ratio  string
		want   int64
	}{
		{name: "exact", amount: 500, ratio: "0.05", want: 25},
		{name: "half_rounds_up", amount: 10, ratio: "0.05", want: 1},
		{name: "below_half_rounds_down", amount: 9, ratio: "0.05", want: 0},
		{name: "negative_ratio", amount: 100, ratio: "-0.1", want: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, RoundRatio(tc.amount, decimal.RequireFromString(tc.ratio)))
		})
	}
}

func TestValidRatio(t *testing.T) {
	require.True(t, ValidRatio(decimal.Zero))
	require.True(t, ValidRatio(decimal.RequireFromString("0.35")))
	require.True(t, ValidRatio(decimal.NewFromInt(1)))
	require.False(t, ValidRatio(decimal.RequireFromString("1.01")))
	require.False(t, ValidRatio(decimal.RequireFromString("-0.01")))
}
