package handlers

import (
	"context"
	"errors"
	"net/http"

	"gold_debts/internal/models"

	"go.uber.org/zap"
)

// Error writes err with the status its type maps to.
func (h *Handlers) Error(w http.ResponseWriter, r *http.Request, err error) {
	var ve *models.ValidationError
	var nf *models.NotFoundError
	switch {
	case errors.As(err, &ve):
		h.JSON(w, http.StatusBadRequest, errorBody(ve.Error()))
	case errors.As(err, &nf):
		h.JSON(w, http.StatusNotFound, errorBody(nf.Error()))
	case errors.Is(err, context.DeadlineExceeded):
		h.JSON(w, http.StatusGatewayTimeout, errorBody("request timed out"))
	default:
		h.Logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		h.JSON(w, http.StatusInternalServerError, errorBody(err.Error()))
	}
}
