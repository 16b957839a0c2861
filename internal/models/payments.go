package models

import "time"

// Movement is a single payment or addition recorded against a debt.
type Movement struct {
	ID     string    `json:"id"`
	Amount float64   `json:"amount"`
	Date   time.Time `json:"date"`
}

func FindMovement(list []Movement, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
