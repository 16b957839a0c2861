// Package state implements the remote source of truth: the whole debt
// collection stored as one document under a fixed key.
package state

import (
	"encoding/json"
	"fmt"

	"gold_debts/internal/models"
	"gold_debts/internal/ports"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultStateID = "debts_state_v1"

var tracer = otel.Tracer("state")

// decodeDebts turns the JSON bytes of a stored "debts" value into raw elements.
func decodeDebts(b []byte) ([]any, error) {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode remote debts: %w", err)
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: debts field is not an array", ports.ErrStateNotFound)
	}
	return list, nil
}

// plainDebts converts debts to plain maps so every backend stores the same
// camelCase shape that the local cache uses. A collection that cannot be
// encoded is an error; storing an empty list in its place would wipe the
// remote.
func plainDebts(debts []models.Debt) ([]any, error) {
	if debts == nil {
		return []any{}, nil
	}
	b, err := json.Marshal(debts)
	if err != nil {
		return nil, fmt.Errorf("encode remote debts: %w", err)
	}
	var list []any
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("encode remote debts: %w", err)
	}
	if list == nil {
		list = []any{}
	}
	return list, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
