// Package debts implements the ledger operations on top of the sync
// orchestrator: every mutation loads the collection, validates, applies one
// change to one debt, clamps, audits and commits.
package debts

import (
	"context"
	"errors"
	"strings"
	"time"

	"gold_debts/internal/ledger"
	"gold_debts/internal/models"
	"gold_debts/internal/observability"
	"gold_debts/internal/services/syncer"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// DefaultLateAfterDays is how many whole days an unpaid debt may age before
// it is reported late.
const DefaultLateAfterDays = 30

// Store is the persistence the service needs; *syncer.Orchestrator implements it.
type Store interface {
	LoadCollection(ctx context.Context) []models.Debt
	Update(ctx context.Context, fn syncer.MutateFunc) ([]models.Debt, error)
	SyncCurrent(ctx context.Context) ([]models.Debt, error)
}

type Service struct {
	store    Store
	logger   *zap.Logger
	metrics  *observability.Metrics
	lateDays int
	validate *validator.Validate
	now      func() time.Time
}

func NewService(store Store, logger *zap.Logger, metrics *observability.Metrics, lateDays int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lateDays <= 0 {
		lateDays = DefaultLateAfterDays
	}
	return &Service{
		store:    store,
		logger:   logger,
		metrics:  metrics,
		lateDays: lateDays,
		validate: newValidator(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type CreateDebtInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	Phone       string `json:"phone" validate:"max=50"`
	Address     string `json:"address" validate:"max=500"`
	Notes       string `json:"notes" validate:"max=5000"`
	TotalAmount any    `json:"totalAmount"`
	Remaining   any    `json:"remaining"`
}

type AmountInput struct {
	Amount any `json:"amount"`
}

// UpdateCustomerInput changes only the fields that are present.
type UpdateCustomerInput struct {
	Name    *string `json:"name" validate:"omitempty,min=2,max=200"`
	Phone   *string `json:"phone" validate:"omitempty,max=50"`
	Address *string `json:"address" validate:"omitempty,max=500"`
	Notes   *string `json:"notes" validate:"omitempty,max=5000"`
}

type DeleteDebtInput struct {
	ConfirmName string `json:"confirmName"`
}

// mutate runs fn against the debt with the given id inside one orchestrator
// update and returns that debt as committed.
func (s *Service) mutate(ctx context.Context, action models.Action, id string, fn func(d *models.Debt) error) (models.Debt, error) {
	out, err := s.store.Update(ctx, func(debts []models.Debt) ([]models.Debt, string, error) {
		idx := models.FindDebt(debts, id)
		if idx < 0 {
			return nil, "", models.NewNotFoundError("debt", id)
		}
		if err := fn(&debts[idx]); err != nil {
			return nil, "", err
		}
		return debts, id, nil
	})
	return s.result(action, id, out, err)
}

func (s *Service) result(action models.Action, id string, out []models.Debt, err error) (models.Debt, error) {
	if err != nil {
		s.metrics.Mutation(string(action), outcome(err))
		return models.Debt{}, err
	}
	s.metrics.Mutation(string(action), "ok")

	idx := models.FindDebt(out, id)
	if idx < 0 {
		return models.Debt{}, models.NewNotFoundError("debt", id)
	}
	s.logger.Debug("debt mutated", zap.String("action", string(action)), zap.String("debt_id", id))
	return out[idx], nil
}

func outcome(err error) string {
	var ve *models.ValidationError
	var nf *models.NotFoundError
	switch {
	case errors.As(err, &ve):
		return "invalid"
	case errors.As(err, &nf):
		return "not_found"
	default:
		return "error"
	}
}

func (s *Service) Create(ctx context.Context, in CreateDebtInput) (models.Debt, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	in.Notes = strings.TrimSpace(in.Notes)
	if err := s.check(in); err != nil {
		return models.Debt{}, err
	}
	if blank(in.TotalAmount) {
		return models.Debt{}, models.NewValidationError("totalAmount", "is required")
	}
	total, err := positiveAmount("totalAmount", in.TotalAmount)
	if err != nil {
		return models.Debt{}, err
	}

	remaining := total
	if !blank(in.Remaining) {
		r, ok := ledger.ParseAmount(in.Remaining)
		if !ok || r < 0 {
			return models.Debt{}, models.NewValidationError("remaining", "must be a number of at least 0")
		}
		remaining = r
	}

	d := s.newDebt(in, total, remaining)
	out, err := s.store.Update(ctx, func(debts []models.Debt) ([]models.Debt, string, error) {
		return append(debts, d), d.ID, nil
	})
	return s.result(models.ActionCreateDebt, d.ID, out, err)
}

func (s *Service) newDebt(in CreateDebtInput, total, remaining float64) models.Debt {
	d := models.Debt{
		ID:          ledger.NewDebtID(),
		Name:        in.Name,
		Phone:       in.Phone,
		Address:     in.Address,
		Notes:       in.Notes,
		TotalAmount: total,
		Remaining:   remaining,
		CreatedAt:   s.now(),
		Payments:    []models.Movement{},
		Additions:   []models.Movement{},
		AuditLog:    []models.AuditEntry{},
	}
	ledger.Clamp(&d)
	ledger.Record(&d, models.ActionCreateDebt, map[string]any{
		"totalAmount": d.TotalAmount,
		"remaining":   d.Remaining,
	})
	return d
}

// RowError describes one rejected entry of a bulk create.
type RowError struct {
	Row int    `json:"row"`
	Err string `json:"error"`
}

// CreateMany validates every input and commits the valid ones in a single
// write. Invalid entries are reported and skipped.
func (s *Service) CreateMany(ctx context.Context, inputs []CreateDebtInput) ([]models.Debt, []RowError, error) {
	var (
		created []models.Debt
		rejects []RowError
	)
	for i, in := range inputs {
		in.Name = strings.TrimSpace(in.Name)
		in.Phone = strings.TrimSpace(in.Phone)
		in.Address = strings.TrimSpace(in.Address)
		in.Notes = strings.TrimSpace(in.Notes)
		if err := s.check(in); err != nil {
			rejects = append(rejects, RowError{Row: i, Err: err.Error()})
			continue
		}
		total, err := positiveAmount("totalAmount", in.TotalAmount)
		if err != nil {
			rejects = append(rejects, RowError{Row: i, Err: err.Error()})
			continue
		}
		remaining := total
		if !blank(in.Remaining) {
			r, ok := ledger.ParseAmount(in.Remaining)
			if !ok || r < 0 {
				rejects = append(rejects, RowError{Row: i, Err: "remaining: must be a number of at least 0"})
				continue
			}
			remaining = r
		}
		created = append(created, s.newDebt(in, total, remaining))
	}
	if len(created) == 0 {
		return nil, rejects, nil
	}

	_, err := s.store.Update(ctx, func(debts []models.Debt) ([]models.Debt, string, error) {
		return append(debts, created...), "", nil
	})
	if err != nil {
		s.metrics.Mutation(string(models.ActionCreateDebt), outcome(err))
		return nil, rejects, err
	}
	s.metrics.Mutation(string(models.ActionCreateDebt), "ok")
	return created, rejects, nil
}

func (s *Service) AddDebt(ctx context.Context, id string, in AmountInput) (models.Debt, error) {
	amount, err := positiveAmount("amount", in.Amount)
	if err != nil {
		return models.Debt{}, err
	}
	return s.mutate(ctx, models.ActionAddDebt, id, func(d *models.Debt) error {
		mov := models.Movement{ID: ledger.NewShortID(), Amount: amount, Date: s.now()}
		d.Additions = append(d.Additions, mov)
		d.TotalAmount = ledger.Add(d.TotalAmount, amount)
		d.Remaining = ledger.Add(d.Remaining, amount)
		ledger.Clamp(d)
		ledger.Record(d, models.ActionAddDebt, map[string]any{"itemId": mov.ID, "amount": amount})
		return nil
	})
}

func (s *Service) Pay(ctx context.Context, id string, in AmountInput) (models.Debt, error) {
	amount, err := positiveAmount("amount", in.Amount)
	if err != nil {
		return models.Debt{}, err
	}
	return s.mutate(ctx, models.ActionPay, id, func(d *models.Debt) error {
		if d.Remaining <= 0 {
			return models.NewValidationError("amount", "debt is already fully paid")
		}
		if amount > d.Remaining {
			return models.NewValidationError("amount", "payment exceeds the remaining balance")
		}
		mov := models.Movement{ID: ledger.NewShortID(), Amount: amount, Date: s.now()}
		d.Payments = append(d.Payments, mov)
		d.Remaining = ledger.Sub(d.Remaining, amount)
		ledger.Clamp(d)
		ledger.Record(d, models.ActionPay, map[string]any{"itemId": mov.ID, "amount": amount})
		return nil
	})
}

// EditPayment reverses the old amount speculatively. The restored balance is
// capped at the total before the new amount is checked against it, and
// nothing is changed when the check fails.
func (s *Service) EditPayment(ctx context.Context, id, paymentID string, in AmountInput) (models.Debt, error) {
	newAmount, err := positiveAmount("amount", in.Amount)
	if err != nil {
		return models.Debt{}, err
	}
	return s.mutate(ctx, models.ActionEditPayment, id, func(d *models.Debt) error {
		idx := models.FindMovement(d.Payments, paymentID)
		if idx < 0 {
			return models.NewNotFoundError("payment", paymentID)
		}
		oldAmount := d.Payments[idx].Amount

		restored := ledger.Add(d.Remaining, oldAmount)
		if restored > d.TotalAmount {
			restored = d.TotalAmount
		}
		if newAmount > restored {
			return models.NewValidationError("amount", "new amount exceeds the remaining balance after reversal")
		}

		d.Remaining = ledger.Sub(restored, newAmount)
		d.Payments[idx].Amount = newAmount
		ledger.Clamp(d)
		ledger.Record(d, models.ActionEditPayment, map[string]any{
			"itemId":    paymentID,
			"oldAmount": oldAmount,
			"newAmount": newAmount,
		})
		return nil
	})
}

func (s *Service) DeletePayment(ctx context.Context, id, paymentID string) (models.Debt, error) {
	return s.mutate(ctx, models.ActionDeletePayment, id, func(d *models.Debt) error {
		idx := models.FindMovement(d.Payments, paymentID)
		if idx < 0 {
			return models.NewNotFoundError("payment", paymentID)
		}
		oldAmount := d.Payments[idx].Amount
		d.Payments = append(d.Payments[:idx], d.Payments[idx+1:]...)
		d.Remaining = ledger.Add(d.Remaining, oldAmount)
		ledger.Clamp(d)
		ledger.Record(d, models.ActionDeletePayment, map[string]any{"itemId": paymentID, "oldAmount": oldAmount})
		return nil
	})
}

func (s *Service) EditAddition(ctx context.Context, id, additionID string, in AmountInput) (models.Debt, error) {
	newAmount, err := positiveAmount("amount", in.Amount)
	if err != nil {
		return models.Debt{}, err
	}
	return s.mutate(ctx, models.ActionEditAddition, id, func(d *models.Debt) error {
		idx := models.FindMovement(d.Additions, additionID)
		if idx < 0 {
			return models.NewNotFoundError("addition", additionID)
		}
		oldAmount := d.Additions[idx].Amount
		delta := ledger.Sub(newAmount, oldAmount)

		d.TotalAmount = ledger.Add(d.TotalAmount, delta)
		d.Remaining = ledger.Add(d.Remaining, delta)
		d.Additions[idx].Amount = newAmount
		ledger.Clamp(d)
		ledger.Record(d, models.ActionEditAddition, map[string]any{
			"itemId":    additionID,
			"oldAmount": oldAmount,
			"newAmount": newAmount,
		})
		return nil
	})
}

func (s *Service) DeleteAddition(ctx context.Context, id, additionID string) (models.Debt, error) {
	return s.mutate(ctx, models.ActionDeleteAddition, id, func(d *models.Debt) error {
		idx := models.FindMovement(d.Additions, additionID)
		if idx < 0 {
			return models.NewNotFoundError("addition", additionID)
		}
		oldAmount := d.Additions[idx].Amount
		d.Additions = append(d.Additions[:idx], d.Additions[idx+1:]...)
		d.TotalAmount = ledger.Sub(d.TotalAmount, oldAmount)
		d.Remaining = ledger.Sub(d.Remaining, oldAmount)
		ledger.Clamp(d)
		ledger.Record(d, models.ActionDeleteAddition, map[string]any{"itemId": additionID, "oldAmount": oldAmount})
		return nil
	})
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, in UpdateCustomerInput) (models.Debt, error) {
	in.Name = trimmed(in.Name)
	in.Phone = trimmed(in.Phone)
	in.Address = trimmed(in.Address)
	in.Notes = trimmed(in.Notes)
	if in.Name != nil && *in.Name == "" {
		return models.Debt{}, models.NewValidationError("name", "is required")
	}
	if err := s.check(in); err != nil {
		return models.Debt{}, err
	}

	return s.mutate(ctx, models.ActionEditCustomer, id, func(d *models.Debt) error {
		old := customerFields(d)
		if in.Name != nil {
			d.Name = *in.Name
		}
		if in.Phone != nil {
			d.Phone = *in.Phone
		}
		if in.Address != nil {
			d.Address = *in.Address
		}
		if in.Notes != nil {
			d.Notes = *in.Notes
		}
		ledger.Record(d, models.ActionEditCustomer, map[string]any{
			"old":     old,
			"updated": customerFields(d),
		})
		return nil
	})
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

func customerFields(d *models.Debt) map[string]any {
	return map[string]any{
		"name":    d.Name,
		"phone":   d.Phone,
		"address": d.Address,
		"notes":   d.Notes,
	}
}

// Delete removes a debt once the caller confirms it by typing its name.
func (s *Service) Delete(ctx context.Context, id string, in DeleteDebtInput) error {
	confirm := strings.TrimSpace(in.ConfirmName)

	_, err := s.store.Update(ctx, func(debts []models.Debt) ([]models.Debt, string, error) {
		idx := models.FindDebt(debts, id)
		if idx < 0 {
			return nil, "", models.NewNotFoundError("debt", id)
		}
		if confirm == "" || confirm != strings.TrimSpace(debts[idx].Name) {
			return nil, "", models.NewValidationError("confirmName", "does not match the customer name")
		}
		return append(debts[:idx], debts[idx+1:]...), "", nil
	})
	if err != nil {
		s.metrics.Mutation("DELETE_DEBT", outcome(err))
		return err
	}
	s.metrics.Mutation("DELETE_DEBT", "ok")
	s.logger.Info("debt deleted", zap.String("debt_id", id))
	return nil
}
