package ledger

import (
	"time"

	"gold_debts/internal/models"
)

const MaxAuditEntries = 200

// Record appends an audit entry to d and evicts the oldest entries beyond
// MaxAuditEntries.
func Record(d *models.Debt, action models.Action, payload map[string]any) models.AuditEntry {
	e := models.AuditEntry{
		ID:      NewShortID(),
		Action:  action,
		At:      time.Now().UTC(),
		Payload: payload,
	}
	d.AuditLog = append(d.AuditLog, e)
	d.AuditLog = trimAudit(d.AuditLog)
	return e
}

func trimAudit(log []models.AuditEntry) []models.AuditEntry {
	if n := len(log); n > MaxAuditEntries {
		return append([]models.AuditEntry(nil), log[n-MaxAuditEntries:]...)
	}
	return log
}
