package models

import "time"

type Debt struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Phone       string       `json:"phone"`
	Address     string       `json:"address"`
	Notes       string       `json:"notes"`
	TotalAmount float64      `json:"totalAmount"`
	Remaining   float64      `json:"remaining"`
	CreatedAt   time.Time    `json:"createdAt"`
	Payments    []Movement   `json:"payments"`
	Additions   []Movement   `json:"additions"`
	AuditLog    []AuditEntry `json:"auditLog"`
}

// FindDebt returns the index of the debt with the given id, or -1.
func FindDebt(debts []Debt, id string) int {
	for i := range debts {
		if debts[i].ID == id {
			return i
		}
	}
	return -1
}
