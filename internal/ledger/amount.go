// Package ledger holds the pure record rules shared by every storage tier:
// amount parsing, record normalization, numeric clamping and the audit trail.
package ledger

import (
	"encoding/json"
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

const (
	arabicIndicZero    = '٠'
	extArabicIndicZero = '۰'
	arabicComma        = '،'
)

// amountText folds Arabic-Indic and Extended Arabic-Indic digits to ASCII and
// drops grouping separators. Chains keep state, so build one per call.
func amountText() transform.Transformer {
	return transform.Chain(
		runes.Map(func(r rune) rune {
			switch {
			case r >= arabicIndicZero && r <= arabicIndicZero+9:
				return '0' + (r - arabicIndicZero)
			case r >= extArabicIndicZero && r <= extArabicIndicZero+9:
				return '0' + (r - extArabicIndicZero)
			}
			return r
		}),
		runes.Remove(runes.Predicate(func(r rune) bool {
			return r == ',' || r == arabicComma || unicode.IsSpace(r)
		})),
	)
}

// ParseAmount converts loosely formatted user or stored input into a finite
// number. It never panics; on failure it returns NaN and false.
func ParseAmount(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return finite(x)
	case float32:
		return finite(float64(x))
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case json.Number:
		return parseAmountString(x.String())
	case string:
		return parseAmountString(x)
	case decimal.Decimal:
		return finite(x.InexactFloat64())
	default:
		return math.NaN(), false
	}
}

func parseAmountString(s string) (float64, bool) {
	clean, _, err := transform.String(amountText(), s)
	if err != nil {
		return math.NaN(), false
	}
	clean = strings.TrimPrefix(clean, "+")
	if clean == "" {
		return math.NaN(), false
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return math.NaN(), false
	}
	return finite(d.InexactFloat64())
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return math.NaN(), false
	}
	return f, true
}

// Add returns a+b computed in decimal to keep repeated fractions from drifting.
func Add(a, b float64) float64 {
	return decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).InexactFloat64()
}

func Sub(a, b float64) float64 {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).InexactFloat64()
}

func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.InexactFloat64()
}
