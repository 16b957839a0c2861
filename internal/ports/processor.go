package ports

import "context"

type ctxKey string

const CtxImportSource ctxKey = "import_source"

// Processor consumes spreadsheet rows keyed by header name.
type Processor interface {
	Type() string
	ProcessBatch(ctx context.Context, batch []map[string]string) error
}
