package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/genfin/internal/adapter/http/handler"
	"github.com/iho/genfin/internal/adapter/http/middleware"
	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/infrastructure/metrics"
	"github.com/iho/genfin/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	Logger                zerolog.Logger
	Metrics               *metrics.Metrics
	MetricsGatherer       prometheus.Gatherer
	RateLimiter           *middleware.RateLimiter
	IdempotencyStore      usecase.IdempotencyStore
	IdempotencyTTL        time.Duration
	Auth                  middleware.TokenVerifier
	AccountHandler        *handler.AccountHandler
	JournalHandler        *handler.JournalHandler
	InvoiceHandler        *handler.InvoiceHandler
	BillHandler           *handler.BillHandler
	CheckHandler          *handler.CheckHandler
	BankHandler           *handler.BankHandler
	TransferHandler       *handler.TransferHandler
	ReconciliationHandler *handler.ReconciliationHandler
	HealthHandler         *handler.HealthHandler
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	if cfg.MetricsGatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Without a verifier the API is open and reopen is not role-gated.
	adminOnly := func(next http.Handler) http.Handler { return next }

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Auth != nil {
			r.Use(middleware.Authenticate(cfg.Auth))
			r.Use(middleware.RequireRoleForWrites(domain.RoleAccountant))
			adminOnly = middleware.RequireRole(domain.RoleAdmin)
		}

		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL).Wrap)
		}

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.Create)
			r.Get("/", cfg.AccountHandler.List)
			r.Get("/{id}", cfg.AccountHandler.Get)
			r.Get("/{id}/balance", cfg.AccountHandler.Balance)
			r.Get("/{id}/entries", cfg.AccountHandler.Entries)
		})

		r.Route("/journal-entries", func(r chi.Router) {
			r.Post("/", cfg.JournalHandler.Post)
			r.Get("/{id}", cfg.JournalHandler.Get)
			r.Post("/{id}/reverse", cfg.JournalHandler.Reverse)
		})
		r.Get("/ledger/consistency", cfg.JournalHandler.CheckConsistency)

		r.Route("/invoices", func(r chi.Router) {
			r.Post("/", cfg.InvoiceHandler.Create)
			r.Get("/", cfg.InvoiceHandler.List)
			r.Get("/{id}", cfg.InvoiceHandler.Get)
			r.Post("/{id}/send", cfg.InvoiceHandler.Send)
			r.Post("/{id}/void", cfg.InvoiceHandler.Void)
			r.Post("/{id}/payments", cfg.InvoiceHandler.Pay)
			r.Get("/{id}/payments", cfg.InvoiceHandler.Payments)
			r.Post("/{id}/credits", cfg.InvoiceHandler.ApplyCredit)
		})

		r.Route("/customer-credits", func(r chi.Router) {
			r.Post("/", cfg.InvoiceHandler.CreateCredit)
			r.Get("/{id}", cfg.InvoiceHandler.GetCredit)
			r.Post("/{id}/void", cfg.InvoiceHandler.VoidCredit)
		})

		r.Route("/bills", func(r chi.Router) {
			r.Post("/", cfg.BillHandler.Create)
			r.Get("/", cfg.BillHandler.List)
			r.Get("/{id}", cfg.BillHandler.Get)
			r.Post("/{id}/post", cfg.BillHandler.Post)
			r.Post("/{id}/void", cfg.BillHandler.Void)
			r.Post("/{id}/payments", cfg.BillHandler.Pay)
			r.Get("/{id}/payments", cfg.BillHandler.Payments)
			r.Post("/{id}/credits", cfg.BillHandler.ApplyCredit)
		})

		r.Route("/vendor-credits", func(r chi.Router) {
			r.Post("/", cfg.BillHandler.CreateCredit)
			r.Get("/{id}", cfg.BillHandler.GetCredit)
			r.Post("/{id}/void", cfg.BillHandler.VoidCredit)
		})

		r.Route("/purchase-orders", func(r chi.Router) {
			r.Post("/", cfg.BillHandler.CreatePurchaseOrder)
			r.Get("/{id}", cfg.BillHandler.GetPurchaseOrder)
			r.Post("/{id}/approve", cfg.BillHandler.ApprovePurchaseOrder)
			r.Post("/{id}/cancel", cfg.BillHandler.CancelPurchaseOrder)
			r.Post("/{id}/receive", cfg.BillHandler.ReceivePurchaseOrder)
		})

		r.Route("/checks", func(r chi.Router) {
			r.Post("/", cfg.CheckHandler.Create)
			r.Post("/print", cfg.CheckHandler.Print)
			r.Get("/{id}", cfg.CheckHandler.Get)
			r.Post("/{id}/void", cfg.CheckHandler.Void)
		})

		r.Route("/bank-accounts", func(r chi.Router) {
			r.Post("/", cfg.BankHandler.Create)
			r.Get("/", cfg.BankHandler.List)
			r.Get("/{id}", cfg.BankHandler.Get)
			r.Get("/{id}/transactions", cfg.BankHandler.Transactions)
			r.Post("/{id}/transactions", cfg.BankHandler.RecordTransaction)
			r.Get("/{id}/register-balance", cfg.BankHandler.RegisterBalance)
			r.Get("/{id}/checks", cfg.CheckHandler.ListByBankAccount)
		})
		r.Get("/bank-transactions/{id}", cfg.BankHandler.GetTransaction)

		r.Route("/transfers", func(r chi.Router) {
			r.Post("/", cfg.TransferHandler.Create)
			r.Get("/{id}", cfg.TransferHandler.Get)
		})

		r.Route("/reconciliations", func(r chi.Router) {
			r.Post("/", cfg.ReconciliationHandler.Start)
			r.Get("/{id}", cfg.ReconciliationHandler.Get)
			r.Get("/{id}/cleared", cfg.ReconciliationHandler.Cleared)
			r.Post("/{id}/cleared", cfg.ReconciliationHandler.MarkCleared)
			r.Post("/{id}/complete", cfg.ReconciliationHandler.Complete)
			r.With(adminOnly).Post("/{id}/reopen", cfg.ReconciliationHandler.Reopen)
		})
	})

	return r
}
