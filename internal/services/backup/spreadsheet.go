package backup

import (
	"bytes"
	"fmt"
	"time"

	"gold_debts/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	debtsSheet     = "Debts"
	paymentsSheet  = "Payments"
	additionsSheet = "Additions"
)

var (
	debtsHeader    = []any{"ID", "Name", "Phone", "Address", "Notes", "Total", "Remaining", "Created"}
	movementHeader = []any{"Debt ID", "Name", "Movement ID", "Amount", "Date"}
)

// Spreadsheet renders the collection as a workbook with one sheet for debts
// and one each for payments and additions.
func Spreadsheet(debts []models.Debt) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", debtsSheet); err != nil {
		return nil, err
	}
	for _, name := range []string{paymentsSheet, additionsSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	if err := writeRow(f, debtsSheet, 1, debtsHeader); err != nil {
		return nil, err
	}
	if err := writeRow(f, paymentsSheet, 1, movementHeader); err != nil {
		return nil, err
	}
	if err := writeRow(f, additionsSheet, 1, movementHeader); err != nil {
		return nil, err
	}

	payRow, addRow := 2, 2
	for i, d := range debts {
		err := writeRow(f, debtsSheet, i+2, []any{
			d.ID, d.Name, d.Phone, d.Address, d.Notes,
			d.TotalAmount, d.Remaining, d.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return nil, err
		}
		for _, m := range d.Payments {
			if err := writeRow(f, paymentsSheet, payRow, movementRow(d, m)); err != nil {
				return nil, err
			}
			payRow++
		}
		for _, m := range d.Additions {
			if err := writeRow(f, additionsSheet, addRow, movementRow(d, m)); err != nil {
				return nil, err
			}
			addRow++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render spreadsheet: %w", err)
	}
	return buf, nil
}

func movementRow(d models.Debt, m models.Movement) []any {
	return []any{d.ID, d.Name, m.ID, m.Amount, m.Date.Format(time.RFC3339)}
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
