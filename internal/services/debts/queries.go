package debts

import (
	"context"
	"time"

	"gold_debts/internal/ledger"
	"gold_debts/internal/models"

	"go.uber.org/zap"
)

const restoreNote = "Restored from backup"

func (s *Service) List(ctx context.Context) []models.Debt {
	return s.store.LoadCollection(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (models.Debt, error) {
	debts := s.store.LoadCollection(ctx)
	idx := models.FindDebt(debts, id)
	if idx < 0 {
		return models.Debt{}, models.NewNotFoundError("debt", id)
	}
	return debts[idx], nil
}

// LateDebts returns unpaid debts created more than the configured number of
// whole days ago.
func (s *Service) LateDebts(ctx context.Context) []models.Debt {
	now := s.now()
	late := []models.Debt{}
	for _, d := range s.store.LoadCollection(ctx) {
		days := int(now.Sub(d.CreatedAt) / (24 * time.Hour))
		if days > s.lateDays && d.Remaining > 0 {
			late = append(late, d)
		}
	}
	return late
}

func (s *Service) TotalRemaining(ctx context.Context) float64 {
	debts := s.store.LoadCollection(ctx)
	values := make([]float64, 0, len(debts))
	for _, d := range debts {
		values = append(values, d.Remaining)
	}
	return ledger.Sum(values...)
}

// RestoreList accepts a bare array or an object wrapping one under "debts".
func RestoreList(payload any) ([]any, error) {
	switch v := payload.(type) {
	case []any:
		return v, nil
	case map[string]any:
		if list, ok := v["debts"].([]any); ok {
			return list, nil
		}
	}
	return nil, models.NewValidationError("debts", "backup must be an array or an object with a debts array")
}

// Restore replaces the whole collection with the repaired backup contents.
func (s *Service) Restore(ctx context.Context, payload any) (int, error) {
	list, err := RestoreList(payload)
	if err != nil {
		s.metrics.Mutation(string(models.ActionRestore), "invalid")
		return 0, err
	}

	restored := ledger.NormalizeDebts(list)
	for i := range restored {
		ledger.Record(&restored[i], models.ActionRestore, map[string]any{"note": restoreNote})
	}

	_, err = s.store.Update(ctx, func([]models.Debt) ([]models.Debt, string, error) {
		return restored, "", nil
	})
	if err != nil {
		s.metrics.Mutation(string(models.ActionRestore), outcome(err))
		return 0, err
	}
	s.metrics.Mutation(string(models.ActionRestore), "ok")
	s.logger.Info("collection restored from backup", zap.Int("debts", len(restored)))
	return len(restored), nil
}

// Sync pushes the current collection to the remote and reports any failure.
func (s *Service) Sync(ctx context.Context) (int, error) {
	debts, err := s.store.SyncCurrent(ctx)
	if err != nil {
		s.logger.Warn("force sync failed", zap.Error(err))
		return 0, err
	}
	return len(debts), nil
}
