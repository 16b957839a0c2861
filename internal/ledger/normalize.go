package ledger

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"gold_debts/internal/models"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"02.01.2006 15:04:05",
	"02.01.2006",
	"2006-01-02",
}

// NormalizeDebts repairs a stored collection: every element is normalized
// and clamped. Elements that are not objects become empty-shaped debts.
func NormalizeDebts(raw []any) []models.Debt {
	out := make([]models.Debt, 0, len(raw))
	for _, v := range raw {
		d := NormalizeDebt(v)
		Clamp(&d)
		out = append(out, d)
	}
	return out
}

// NormalizeDebt fills defaults into a loosely shaped debt record. The input
// is never modified.
func NormalizeDebt(v any) models.Debt {
	obj := asObject(v)

	total, ok := ParseAmount(obj["totalAmount"])
	if !ok {
		total = 0
	}
	remaining, ok := ParseAmount(obj["remaining"])
	if !ok {
		remaining = 0
	}

	id := idString(obj["id"])
	if id == "" {
		id = NewDebtID()
	}

	return models.Debt{
		ID:          id,
		Name:        text(obj["name"]),
		Phone:       text(obj["phone"]),
		Address:     text(obj["address"]),
		Notes:       text(obj["notes"]),
		TotalAmount: total,
		Remaining:   remaining,
		CreatedAt:   timestamp(obj["createdAt"]),
		Payments:    normalizeMovements(obj["payments"]),
		Additions:   normalizeMovements(obj["additions"]),
		AuditLog:    normalizeAudit(obj["auditLog"]),
	}
}

func NormalizeMovement(v any) models.Movement {
	obj := asObject(v)

	amount, ok := ParseAmount(obj["amount"])
	if !ok {
		amount = 0
	}
	id := idString(obj["id"])
	if id == "" {
		id = NewShortID()
	}
	return models.Movement{ID: id, Amount: amount, Date: timestamp(obj["date"])}
}

func normalizeMovements(v any) []models.Movement {
	list, _ := v.([]any)
	out := make([]models.Movement, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for _, item := range list {
		m := NormalizeMovement(item)
		if _, dup := seen[m.ID]; dup {
			m.ID = NewShortID()
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}

func normalizeAudit(v any) []models.AuditEntry {
	list, _ := v.([]any)
	out := make([]models.AuditEntry, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		e := models.AuditEntry{
			ID:     idString(obj["id"]),
			Action: models.Action(text(obj["action"])),
			At:     timestamp(obj["at"]),
		}
		if e.ID == "" {
			e.ID = NewShortID()
		}
		for k, val := range obj {
			if k == "id" || k == "action" || k == "at" {
				continue
			}
			if e.Payload == nil {
				e.Payload = make(map[string]any, len(obj))
			}
			e.Payload[k] = val
		}
		out = append(out, e)
	}
	return trimAudit(out)
}

// ToGeneric converts v to its plain JSON value form (maps, slices, float64,
// strings). It returns nil when v cannot be encoded.
func ToGeneric(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}

func asObject(v any) map[string]any {
	switch x := v.(type) {
	case map[string]any:
		return x
	case nil, string, float64, bool, []any:
		return map[string]any{}
	default:
		if m, ok := ToGeneric(x).(map[string]any); ok {
			return m
		}
		return map[string]any{}
	}
}

func idString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		if x == 0 {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case int64:
		if x == 0 {
			return ""
		}
		return strconv.FormatInt(x, 10)
	}
	return ""
}

func text(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "true"
		}
	}
	return ""
}

// maxEpochMillis is the last millisecond of year 9999, the largest instant
// time.Time can encode as JSON.
var maxEpochMillis = time.Date(9999, time.December, 31, 23, 59, 59, 999e6, time.UTC).UnixMilli()

func timestamp(v any) time.Time {
	switch x := v.(type) {
	case time.Time:
		if !x.IsZero() && encodable(x) {
			return x.UTC()
		}
	case string:
		s := strings.TrimSpace(x)
		for _, l := range timeLayouts {
			if t, err := time.ParseInLocation(l, s, time.UTC); err == nil && encodable(t) {
				return t.UTC()
			}
		}
	case float64:
		if t, ok := epochMillis(x); ok {
			return t
		}
	case json.Number:
		if f, err := x.Float64(); err == nil {
			if t, ok := epochMillis(f); ok {
				return t
			}
		}
	}
	return time.Now().UTC()
}

func epochMillis(ms float64) (time.Time, bool) {
	if !(ms > 0 && ms <= float64(maxEpochMillis)) {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)).UTC(), true
}

func encodable(t time.Time) bool {
	y := t.UTC().Year()
	return y >= 0 && y <= 9999
}
