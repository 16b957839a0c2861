package processors

import (
	"context"
	"fmt"

	"gold_debts/internal/models"
	"gold_debts/internal/ports"
	"gold_debts/internal/services/debts"

	"go.uber.org/zap"
)

type BulkCreator interface {
	CreateMany(ctx context.Context, inputs []debts.CreateDebtInput) ([]models.Debt, []debts.RowError, error)
}

// DebtsProcessor turns spreadsheet rows into new debts. Rows that fail
// validation are logged and skipped; the rest of the batch is committed.
type DebtsProcessor struct {
	Creator BulkCreator
	Logger  *zap.Logger
}

func (p DebtsProcessor) Type() string { return "debts" }

func (p DebtsProcessor) ProcessBatch(ctx context.Context, batch []map[string]string) error {
	if p.Creator == nil {
		return fmt.Errorf("debts processor: no creator configured")
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	source, _ := ctx.Value(ports.CtxImportSource).(string)

	inputs := make([]debts.CreateDebtInput, 0, len(batch))
	for _, m := range batch {
		v := rowGetter(m)
		inputs = append(inputs, debts.CreateDebtInput{
			Name:        v("name", "customer", "customername", "الاسم", "اسمالزبون"),
			Phone:       v("phone", "mobile", "الهاتف", "رقمالهاتف"),
			Address:     v("address", "العنوان"),
			Notes:       v("notes", "note", "ملاحظات"),
			TotalAmount: v("totalamount", "total", "amount", "المبلغ", "المبلغالكلي"),
			Remaining:   v("remaining", "balance", "الباقي"),
		})
	}

	created, rejects, err := p.Creator.CreateMany(ctx, inputs)
	if err != nil {
		return fmt.Errorf("create debts: %w", err)
	}
	for _, r := range rejects {
		logger.Warn("import row rejected",
			zap.String("source", source),
			zap.Int("batch_row", r.Row),
			zap.String("name", inputs[r.Row].Name),
			zap.String("error", r.Err),
		)
	}
	logger.Info("import batch committed",
		zap.String("source", source),
		zap.Int("rows", len(batch)),
		zap.Int("created", len(created)),
		zap.Int("rejected", len(rejects)),
	)
	return nil
}
