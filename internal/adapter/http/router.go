package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/gymledger/internal/adapter/http/handler"
	"github.com/iho/gymledger/internal/adapter/http/middleware"
	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/infrastructure/metrics"
	"github.com/iho/gymledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	RegisterHandler       *handler.RegisterHandler
	ReceivableHandler     *handler.AccountHandler
	PayableHandler        *handler.AccountHandler
	EnrollmentHandler     *handler.EnrollmentHandler
	CatalogHandler        *handler.CatalogHandler
	UserHandler           *handler.UserHandler
	JobHandler            *handler.JobHandler
	ReconciliationHandler *handler.ReconciliationHandler
	HealthHandler         *handler.HealthHandler
	// AuthHandler is nil when authentication is disabled; login routes are then absent.
	AuthHandler *handler.AuthHandler

	// Authenticate attaches tenant and user to API requests.
	Authenticate func(http.Handler) http.Handler

	Logger           zerolog.Logger
	Metrics          *metrics.Metrics
	MetricsHandler   http.Handler
	RateLimiter      *middleware.RateLimiter
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery)
	if cfg.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(cfg.Metrics).Wrap)
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health/live", cfg.HealthHandler.Liveness)
	r.Get("/health/ready", cfg.HealthHandler.Readiness)

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	staff := middleware.RequireRole(domain.RoleStaff)
	manager := middleware.RequireRole(domain.RoleManager)
	admin := middleware.RequireRole(domain.RoleAdmin)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.AuthHandler != nil {
			r.Post("/auth/login", cfg.AuthHandler.Login)
		}

		r.Group(func(r chi.Router) {
			authenticate := cfg.Authenticate
			if authenticate == nil {
				authenticate = middleware.StaticTenant("default")
			}
			r.Use(authenticate)
			r.Use(staff)

			// Idempotency middleware for mutating requests
			if cfg.IdempotencyStore != nil {
				idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger)
				r.Use(idempotencyMiddleware.Wrap)
			}

			if cfg.AuthHandler != nil {
				r.Get("/auth/me", cfg.AuthHandler.GetCurrentUser)
			}

			// Cash registers
			r.Route("/registers", func(r chi.Router) {
				r.Get("/", cfg.RegisterHandler.List)
				r.Get("/open", cfg.RegisterHandler.GetOpen)
				r.Get("/{id}", cfg.RegisterHandler.Get)
				r.Get("/{id}/report", cfg.RegisterHandler.Report)
				r.Post("/{id}/movements", cfg.RegisterHandler.RecordMovement)

				r.Group(func(r chi.Router) {
					r.Use(manager)
					r.Post("/", cfg.RegisterHandler.Open)
					r.Get("/{id}/reconcile", cfg.RegisterHandler.Reconcile)
					r.Delete("/{id}/movements/{movementID}", cfg.RegisterHandler.RemoveMovement)
					r.Post("/{id}/withdrawals", cfg.RegisterHandler.Withdraw)
					r.Post("/{id}/replenishments", cfg.RegisterHandler.Replenish)
					r.Post("/{id}/close", cfg.RegisterHandler.Close)
				})
			})

			// Obligations
			r.Route("/receivables", func(r chi.Router) {
				accountRoutes(r, cfg.ReceivableHandler, manager)
			})
			r.Route("/payables", func(r chi.Router) {
				r.Post("/installments", cfg.PayableHandler.CreateInstallments)
				accountRoutes(r, cfg.PayableHandler, manager)
			})

			// Enrollments
			r.Route("/enrollments", func(r chi.Router) {
				r.Post("/", cfg.EnrollmentHandler.Create)
				r.Get("/", cfg.EnrollmentHandler.List)
				r.Get("/{id}", cfg.EnrollmentHandler.Get)
				r.Patch("/{id}", cfg.EnrollmentHandler.Update)

				r.Group(func(r chi.Router) {
					r.Use(manager)
					r.Post("/{id}/inactivate", cfg.EnrollmentHandler.Inactivate)
					r.Post("/{id}/reactivate", cfg.EnrollmentHandler.Reactivate)
					r.Delete("/{id}", cfg.EnrollmentHandler.Delete)
				})
			})

			// Catalog
			r.Route("/plans", func(r chi.Router) {
				r.Get("/", cfg.CatalogHandler.ListPlans)
				r.Get("/{id}", cfg.CatalogHandler.GetPlan)
				r.With(manager).Post("/", cfg.CatalogHandler.CreatePlan)
				r.With(manager).Patch("/{id}/status", cfg.CatalogHandler.SetPlanActive)
			})
			r.Route("/discounts", func(r chi.Router) {
				r.Get("/", cfg.CatalogHandler.ListDiscounts)
				r.Get("/{id}", cfg.CatalogHandler.GetDiscount)
				r.With(manager).Post("/", cfg.CatalogHandler.CreateDiscount)
				r.With(manager).Patch("/{id}/status", cfg.CatalogHandler.SetDiscountActive)
			})
			r.Route("/students", func(r chi.Router) {
				r.Post("/", cfg.CatalogHandler.CreateStudent)
				r.Get("/", cfg.CatalogHandler.ListStudents)
				r.Get("/{id}", cfg.CatalogHandler.GetStudent)
			})
			r.Route("/employees", func(r chi.Router) {
				r.Get("/", cfg.CatalogHandler.ListEmployees)
				r.Get("/{id}", cfg.CatalogHandler.GetEmployee)
				r.With(manager).Post("/", cfg.CatalogHandler.CreateEmployee)
			})
			r.Route("/classes", func(r chi.Router) {
				r.Get("/", cfg.CatalogHandler.ListClasses)
				r.Get("/{id}", cfg.CatalogHandler.GetClass)
				r.With(manager).Post("/", cfg.CatalogHandler.CreateClass)
			})

			r.With(manager).Get("/reconciliation/accounts", cfg.ReconciliationHandler.Accounts)

			// Admin only
			r.Group(func(r chi.Router) {
				r.Use(admin)
				r.Post("/jobs/billing", cfg.JobHandler.RunBilling)
				r.Post("/jobs/overdue-sweep", cfg.JobHandler.SweepOverdue)

				r.Route("/users", func(r chi.Router) {
					r.Post("/", cfg.UserHandler.Create)
					r.Get("/", cfg.UserHandler.List)
					r.Get("/{id}", cfg.UserHandler.Get)
					r.Patch("/{id}", cfg.UserHandler.Update)
				})
			})
		})
	})

	return r
}

// accountRoutes mounts the routes shared by receivables and payables.
func accountRoutes(r chi.Router, h *handler.AccountHandler, manager func(http.Handler) http.Handler) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/totals", h.Totals)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Update)
	r.Post("/{id}/payments", h.Pay)

	r.Group(func(r chi.Router) {
		r.Use(manager)
		r.Post("/{id}/cancel", h.Cancel)
		r.Delete("/{id}", h.Delete)
	})
}
