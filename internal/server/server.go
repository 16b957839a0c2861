package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"gold_debts/internal/handlers"
	"gold_debts/internal/observability"
	"gold_debts/internal/transport/auth"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Options struct {
	Port      string
	StaticDir string
	Auth      auth.Credentials
	Registry  *prometheus.Registry
	Logger    *zap.Logger
}

type Server struct {
	httpServer *http.Server
	handlers   *handlers.Handlers
	logger     *zap.Logger
}

func NewServer(h *handlers.Handlers, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%s", opts.Port),
			Handler:      NewRouter(h, opts),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		handlers: h,
		logger:   logger,
	}
}

// NewRouter mounts the API. Health, metrics and static files are public;
// everything else sits behind basic auth.
func NewRouter(h *handlers.Handlers, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)
	if opts.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.BasicAuthMiddleware(opts.Auth, logger))

		r.Route("/debts", func(r chi.Router) {
			r.Get("/", h.ListDebts)
			r.Post("/", h.CreateDebt)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetDebt)
				r.Put("/", h.UpdateCustomer)
				r.Delete("/", h.DeleteDebt)
				r.Post("/add", h.AddDebt)
				r.Post("/pay", h.Pay)
				r.Put("/payments/{pid}", h.EditPayment)
				r.Delete("/payments/{pid}", h.DeletePayment)
				r.Put("/additions/{aid}", h.EditAddition)
				r.Delete("/additions/{aid}", h.DeleteAddition)
			})
		})
		r.Get("/late-debts", h.LateDebts)
		r.Get("/total-debt", h.TotalDebt)

		r.Get("/backup", h.ExportBackup)
		r.Get("/backup.xlsx", h.ExportXLSX)
		r.Post("/backup/archive", h.ArchiveBackup)
		r.Post("/restore", h.Restore)
		r.Post("/restore/remote", h.RestoreRemote)
		r.Post("/import", h.Import)
		r.Post("/import/upload", h.Upload)
		r.Post("/sync", h.Sync)
	})

	if opts.StaticDir != "" {
		if st, err := os.Stat(opts.StaticDir); err == nil && st.IsDir() {
			r.Handle("/*", http.FileServer(http.Dir(opts.StaticDir)))
		} else {
			logger.Warn("static dir not found, serving API only", zap.String("dir", opts.StaticDir))
		}
	}

	return r
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := s.httpServer.Shutdown(shCtx)
		if s.handlers != nil {
			s.handlers.WaitImports()
		}
		return err
	case err := <-errCh:
		return err
	}
}
