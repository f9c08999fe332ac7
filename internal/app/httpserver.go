package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/campusconnect/backend/internal/config"
	"github.com/campusconnect/backend/internal/logging"
	"github.com/campusconnect/backend/internal/metrics"
	"github.com/campusconnect/backend/internal/parentaccess"
	"github.com/go-chi/chi/v5"
)

type Server struct {
	srv     *http.Server
	cfg     *config.Config
	db      *sql.DB
	log     *logging.Log
	limiter *parentaccess.AttemptLimiter
}

func New(cfg *config.Config, database *sql.DB, log *logging.Log) *Server {
	s := &Server{
		cfg: cfg,
		db:  database,
		log: log,
		// 20 failed token lookups per IP per 10 minutes
		limiter: parentaccess.NewAttemptLimiter(20, 10*time.Minute),
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.MaxBytesHandler(next, 1<<20) // 1 MB
	})

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", metrics.Handler())

	r.Post("/api/webhooks/stripe", s.handleStripeWebhook)

	r.Route("/parent/{token}", func(r chi.Router) {
		r.Use(s.requireParentToken)
		r.Get("/student", s.handleParentStudent)
		r.Get("/fees", s.handleParentFees)
		r.Get("/payments", s.handleParentPayments)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(s.requireAdminToken)
		r.Post("/students/{id}/access-token", s.handleIssueToken)
		r.Delete("/students/{id}/access-token", s.handleRevokeToken)
		r.Post("/payments", s.handleManualPayment)
		r.Get("/students/{id}/fees", s.handleAdminFees)
		r.Get("/students/{id}/statement.xlsx", s.handleStatementExport)
	})

	s.srv = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Limiter() *parentaccess.AttemptLimiter { return s.limiter }

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Sugar.Errorw("http server stopped", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shCtx)
	}()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
	defer cancel()
	t0 := time.Now()
	if err := s.db.PingContext(ctx); err != nil {
		http.Error(w, "db not ok: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	metrics.ObserveDBPing(time.Since(t0))
	_, _ = w.Write([]byte("ok"))
}
