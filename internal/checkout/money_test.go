package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToMinorUnits(t *testing.T) {
	cases := []struct {
		amount string
		want   int64
	}{
		{"19.99", 1999},
		{"0.01", 1},
		{"10", 1000},
		{"10.005", 1001}, // round half-up
		{"10.004", 1000},
		{"0", 0},
	}

	for _, tc := range cases {
		got := ToMinorUnits(decimal.RequireFromString(tc.amount))
		assert.Equal(t, tc.want, got, "amount %s", tc.amount)
	}
}

func TestFixedRateProvider(t *testing.T) {
	p := NewFixedRateProvider()

	rate, err := p.Rate("USD", "USD")
	assert.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))

	rate, err = p.Rate("USD", "BRL")
	assert.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(5)))

	_, err = p.Rate("USD", "XYZ")
	assert.Error(t, err)
}
