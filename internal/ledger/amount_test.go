package ledger

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"plain", "400", 400},
		{"grouping comma", "1,000", 1000},
		{"arabic indic digits", "٢٠٠", 200},
		{"extended arabic indic digits", "۱۲۵۰", 1250},
		{"arabic comma", "١،٥٠٠", 1500},
		{"spaces", " 12 500 ", 12500},
		{"non-breaking space", "3\u00a0000", 3000},
		{"decimal", "12.75", 12.75},
		{"negative", "-15", -15},
		{"leading plus", "+8", 8},
		{"exponent", "1e3", 1000},
		{"float", 42.5, 42.5},
		{"int", 7, 7},
		{"int64", int64(9), 9},
		{"json number", json.Number("3.5"), 3.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseAmount(tt.in)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	for name, in := range map[string]any{
		"empty":       "",
		"only spaces": "   ",
		"letters":     "abc",
		"mixed":       "12abc",
		"two dots":    "1.2.3",
		"nil":         nil,
		"bool":        true,
		"slice":       []any{1},
		"object":      map[string]any{"amount": 1},
		"nan":         math.NaN(),
		"inf":         math.Inf(1),
		"overflow":    "1e400",
		"infinity":    "Infinity",
	} {
		t.Run(name, func(t *testing.T) {
			got, ok := ParseAmount(in)
			assert.False(t, ok)
			assert.True(t, math.IsNaN(got))
		})
	}
}

func TestDecimalArithmetic(t *testing.T) {
	assert.Equal(t, 0.3, Add(0.1, 0.2))
	assert.Equal(t, 0.1, Sub(0.3, 0.2))
	assert.Equal(t, 0.6, Sum(0.1, 0.2, 0.3))
	assert.Equal(t, 0.0, Sum())
}
