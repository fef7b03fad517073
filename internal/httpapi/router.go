// Package httpapi wires the HTTP surface of the ledger service.
// It keeps handlers thin, delegating business rules to the service layer.
package httpapi

import (
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tinoosan/spendlog/internal/events"
	"github.com/tinoosan/spendlog/internal/service/transaction"
)

// Server wires handlers and middleware using Chi.
type Server struct {
	svc   transaction.Service
	ready ReadyChecker
	log   *slog.Logger
	rt    *chi.Mux
}

// New constructs the HTTP server with routes and middleware. If repo also
// implements ReadyChecker it backs /readyz. opts configure the transaction service.
func New(repo transaction.Repo, writer transaction.Writer, pub events.Publisher, logger *slog.Logger, opts ...transaction.Option) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)

	s := &Server{
		svc: transaction.New(repo, writer, pub, logger, opts...),
		log: logger,
		rt:  r,
	}
	if rc, ok := repo.(ReadyChecker); ok {
		s.ready = rc
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
	s.rt.Route("/transactions", func(r chi.Router) {
		r.With(s.validatePostTransaction()).Post("/", s.postTransaction)
		r.Get("/", s.listTransactions)
		r.Get("/total_income", s.totalIncome)
		r.Get("/total_spending", s.totalSpending)
		r.Get("/balance", s.balance)
		r.Get("/summary", s.summary)
		r.With(s.parseTransactionID()).Get("/{id}", s.getTransaction)
		r.With(s.parseTransactionID()).Delete("/{id}", s.deleteTransaction)
	})
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Method(http.MethodGet, "/metrics", metricsHandler())
}
