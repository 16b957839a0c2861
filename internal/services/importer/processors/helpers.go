package processors

import (
	"strings"
	"unicode"
)

// headerKey folds a column header so "Total Amount", "total_amount" and
// "TotalAmount" compare equal.
func headerKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsSpace(r) || r == '_' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// rowGetter returns a lookup that yields the first non-empty value among the
// given header aliases.
func rowGetter(row map[string]string) func(aliases ...string) string {
	folded := make(map[string]string, len(row))
	for k, v := range row {
		folded[headerKey(k)] = strings.TrimSpace(v)
	}
	return func(aliases ...string) string {
		for _, a := range aliases {
			if v := folded[headerKey(a)]; v != "" {
				return v
			}
		}
		return ""
	}
}
