package ledger

import (
	"math"

	"gold_debts/internal/models"
)

// Clamp restores 0 <= Remaining <= TotalAmount. Non-finite values become 0.
func Clamp(d *models.Debt) {
	d.TotalAmount = nonNegative(d.TotalAmount)
	d.Remaining = nonNegative(d.Remaining)
	if d.Remaining > d.TotalAmount {
		d.Remaining = d.TotalAmount
	}
}

func nonNegative(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}
