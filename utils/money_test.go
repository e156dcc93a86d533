package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestVatFromGoods(t *testing.T) {
	tests := []struct {
		goods, rate, want string
	}{
		{"100", "20", "20"},
		{"0.01", "20", "0"},
		{"0.03", "20", "0.01"},
		{"33.33", "20", "6.67"},
		{"-100", "20", "-20"},
		{"-0.03", "20", "-0.01"}, // half away from zero, both directions
		{"100", "0", "0"},
	}
	for _, tt := range tests {
		got := VatFromGoods(d(tt.goods), d(tt.rate))
		assert.True(t, d(tt.want).Equal(got), "vat of %s at %s%%: want %s got %s", tt.goods, tt.rate, tt.want, got)
	}
}

func TestBetween(t *testing.T) {
	tests := []struct {
		v, bound string
		want     bool
	}{
		{"0", "0", true},
		{"0.01", "0", false},
		{"-0.01", "0", false},
		{"0", "100", true},
		{"100", "100", true},
		{"50", "100", true},
		{"100.01", "100", false},
		{"-1", "100", false},
		{"0", "-100", true},
		{"-100", "-100", true},
		{"-50", "-100", true},
		{"-100.01", "-100", false},
		{"1", "-100", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Between(d(tt.v), d(tt.bound)), "Between(%s, %s)", tt.v, tt.bound)
	}
}
