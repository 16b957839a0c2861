package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"gold_debts/internal/models"
	"gold_debts/internal/services/backup"
	"gold_debts/internal/services/debts"
	"gold_debts/internal/services/importer"
	"gold_debts/internal/transport/auth"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// MaxBodyBytes bounds JSON request bodies.
const MaxBodyBytes = 5 << 20

// HealthChecker pings the configured backing services.
type HealthChecker interface {
	CheckConnections(ctx context.Context) error
}

type Handlers struct {
	Debts    *debts.Service
	Backup   *backup.Service
	Importer *importer.Service
	Uploads  backup.ObjectPutter
	Bucket   string
	Checker  HealthChecker

	// RemoteName is reported by Health; empty when running local-only.
	RemoteName string

	Logger *zap.Logger

	imports sync.WaitGroup
}

type Deps struct {
	Debts      *debts.Service
	Backup     *backup.Service
	Importer   *importer.Service
	Uploads    backup.ObjectPutter
	Bucket     string
	Checker    HealthChecker
	RemoteName string
	Logger     *zap.Logger
}

func New(d Deps) *Handlers {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		Debts:    d.Debts,
		Backup:   d.Backup,
		Importer: d.Importer,
		Uploads:  d.Uploads,
		Bucket:   d.Bucket,
		Checker:  d.Checker,
		Logger:   logger,

		RemoteName: d.RemoteName,
	}
}

// WaitImports blocks until background imports started by Import finish.
func (h *Handlers) WaitImports() { h.imports.Wait() }

func (h *Handlers) JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.JSON(w, http.StatusRequestEntityTooLarge, errorBody("request body too large"))
			return false
		}
		h.JSON(w, http.StatusBadRequest, errorBody("bad JSON: "+err.Error()))
		return false
	}
	return true
}

func errorBody(msg string) map[string]any {
	return map[string]any{"error": msg}
}

// logChange records who committed a change. Requests that reached the handler
// without the auth middleware are logged as anonymous.
func (h *Handlers) logChange(r *http.Request, action models.Action, debtID string) {
	user, err := auth.GetUser(r.Context())
	if err != nil {
		user = "anonymous"
	}
	h.Logger.Info("debt collection changed",
		zap.String("user", user),
		zap.String("action", string(action)),
		zap.String("debt_id", debtID),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	)
}
