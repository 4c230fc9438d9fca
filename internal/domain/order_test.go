package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatOrderNumber(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		year   int
		seq    int
		want   string
	}{
		{name: "first of the year", prefix: "FO", year: 2026, seq: 1, want: "FO-2026-000001"},
		{name: "zero padding holds", prefix: "FO", year: 2026, seq: 42, want: "FO-2026-000042"},
		{name: "large sequence", prefix: "FO", year: 2027, seq: 1234567, want: "FO-2027-1234567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatOrderNumber(tt.prefix, tt.year, tt.seq))
		})
	}
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   int64
	}{
		{name: "exact", amount: "100.00", want: 10000},
		{name: "cents preserved", amount: "19.99", want: 1999},
		{name: "half up at third decimal", amount: "99.995", want: 10000},
		{name: "truncates below half", amount: "100.004", want: 10000},
		{name: "zero", amount: "0", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MinorUnits(decimal.RequireFromString(tt.amount)))
		})
	}
}
