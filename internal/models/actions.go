package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type Action string

const (
	ActionCreateDebt     Action = "CREATE_DEBT"
	ActionAddDebt        Action = "ADD_DEBT"
	ActionPay            Action = "PAY"
	ActionEditPayment    Action = "EDIT_PAYMENT"
	ActionDeletePayment  Action = "DELETE_PAYMENT"
	ActionEditAddition   Action = "EDIT_ADDITION"
	ActionDeleteAddition Action = "DELETE_ADDITION"
	ActionEditCustomer   Action = "EDIT_CUSTOMER"
	ActionRestore        Action = "RESTORE"
	ActionSyncError      Action = "SYNC_ERROR"
)

// AuditEntry is stored flat on the wire: {id, action, at, ...payload}.
type AuditEntry struct {
	ID      string
	Action  Action
	At      time.Time
	Payload map[string]any
}

func (a AuditEntry) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(a.Payload)+3)
	for k, v := range a.Payload {
		m[k] = v
	}
	m["id"] = a.ID
	m["action"] = a.Action
	m["at"] = a.At
	return json.Marshal(m)
}

func (a *AuditEntry) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("audit entry: expected object")
	}

	*a = AuditEntry{}
	if v, ok := m["id"].(string); ok {
		a.ID = v
	}
	if v, ok := m["action"].(string); ok {
		a.Action = Action(v)
	}
	if v, ok := m["at"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			a.At = t.UTC()
		}
	}
	delete(m, "id")
	delete(m, "action")
	delete(m, "at")
	if len(m) > 0 {
		a.Payload = m
	}
	return nil
}
