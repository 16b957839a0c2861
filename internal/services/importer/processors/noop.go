package processors

import (
	"context"

	"gold_debts/internal/ports"
)

// NoopProcessor reads a file without writing anything; useful to check that a
// source parses before importing it.
type NoopProcessor struct{}

func (NoopProcessor) Type() string { return "noop" }

func (NoopProcessor) ProcessBatch(ctx context.Context, batch []map[string]string) error {
	return nil
}

func DefaultRegistry(procs ...ports.Processor) map[string]ports.Processor {
	reg := map[string]ports.Processor{
		"noop": NoopProcessor{},
	}
	for _, p := range procs {
		reg[p.Type()] = p
	}
	return reg
}
