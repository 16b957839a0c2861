package handlers

import (
	"net/http"

	"gold_debts/internal/models"
	"gold_debts/internal/services/debts"

	"github.com/go-chi/chi/v5"
)

func (h *Handlers) ListDebts(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, h.Debts.List(r.Context()))
}

func (h *Handlers) GetDebt(w http.ResponseWriter, r *http.Request) {
	d, err := h.Debts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, d)
}

func (h *Handlers) CreateDebt(w http.ResponseWriter, r *http.Request) {
	var in debts.CreateDebtInput
	if !h.decode(w, r, &in) {
		return
	}
	d, err := h.Debts.Create(r.Context(), in)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.logChange(r, models.ActionCreateDebt, d.ID)
	h.JSON(w, http.StatusOK, d)
}

func (h *Handlers) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var in debts.UpdateCustomerInput
	if !h.decode(w, r, &in) {
		return
	}
	d, err := h.Debts.UpdateCustomer(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.logChange(r, models.ActionEditCustomer, d.ID)
	h.JSON(w, http.StatusOK, d)
}

func (h *Handlers) DeleteDebt(w http.ResponseWriter, r *http.Request) {
	var in debts.DeleteDebtInput
	if !h.decode(w, r, &in) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.Debts.Delete(r.Context(), id, in); err != nil {
		h.Error(w, r, err)
		return
	}
	h.logChange(r, actionDeleteDebt, id)
	h.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handlers) AddDebt(w http.ResponseWriter, r *http.Request) {
	h.amountMutation(w, r, models.ActionAddDebt, func(in debts.AmountInput) (models.Debt, error) {
		return h.Debts.AddDebt(r.Context(), chi.URLParam(r, "id"), in)
	})
}

func (h *Handlers) Pay(w http.ResponseWriter, r *http.Request) {
	h.amountMutation(w, r, models.ActionPay, func(in debts.AmountInput) (models.Debt, error) {
		return h.Debts.Pay(r.Context(), chi.URLParam(r, "id"), in)
	})
}

func (h *Handlers) EditPayment(w http.ResponseWriter, r *http.Request) {
	h.amountMutation(w, r, models.ActionEditPayment, func(in debts.AmountInput) (models.Debt, error) {
		return h.Debts.EditPayment(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "pid"), in)
	})
}

func (h *Handlers) DeletePayment(w http.ResponseWriter, r *http.Request) {
	d, err := h.Debts.DeletePayment(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "pid"))
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.logChange(r, models.ActionDeletePayment, d.ID)
	h.JSON(w, http.StatusOK, d)
}

func (h *Handlers) EditAddition(w http.ResponseWriter, r *http.Request) {
	h.amountMutation(w, r, models.ActionEditAddition, func(in debts.AmountInput) (models.Debt, error) {
		return h.Debts.EditAddition(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "aid"), in)
	})
}

func (h *Handlers) DeleteAddition(w http.ResponseWriter, r *http.Request) {
	d, err := h.Debts.DeleteAddition(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "aid"))
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.logChange(r, models.ActionDeleteAddition, d.ID)
	h.JSON(w, http.StatusOK, d)
}

func (h *Handlers) LateDebts(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, h.Debts.LateDebts(r.Context()))
}

func (h *Handlers) TotalDebt(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, map[string]any{"total": h.Debts.TotalRemaining(r.Context())})
}

func (h *Handlers) Sync(w http.ResponseWriter, r *http.Request) {
	n, err := h.Debts.Sync(r.Context())
	if err != nil {
		h.JSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	h.JSON(w, http.StatusOK, map[string]any{"ok": true, "count": n})
}

// actionDeleteDebt has no audit entry since the debt is gone; it only labels
// the change log line.
const actionDeleteDebt models.Action = "DELETE_DEBT"

func (h *Handlers) amountMutation(w http.ResponseWriter, r *http.Request, action models.Action, run func(debts.AmountInput) (models.Debt, error)) {
	var in debts.AmountInput
	if !h.decode(w, r, &in) {
		return
	}
	d, err := run(in)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.logChange(r, action, d.ID)
	h.JSON(w, http.StatusOK, d)
}
