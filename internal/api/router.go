package api

import (
	"net/http"

	"github.com/ayo6706/swift-remit/internal/api/handler"
	"github.com/ayo6706/swift-remit/internal/api/middleware"
	"github.com/ayo6706/swift-remit/internal/api/openapi"
	"github.com/ayo6706/swift-remit/internal/config"
	"github.com/ayo6706/swift-remit/internal/domain"
	"github.com/ayo6706/swift-remit/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// Services bundles the core services the HTTP surface delegates to.
type Services struct {
	Transactions *service.TransactionService
	Verification *service.VerificationService
	Views        *service.ViewService
	Audit        *service.AuditService
	Settlement   *service.SettlementService
	Webhooks     *service.WebhookService
}

type Router struct {
	cfg         *config.Config
	logger      *zap.Logger
	store       handler.Pinger
	idempotency middleware.ReplayStore
	redis       redis.Cmdable
	svc         Services
}

// NewRouter wires handlers onto the core services. idem and redisClient may be nil
// when the process runs without Postgres or redis.
func NewRouter(cfg *config.Config, logger *zap.Logger, store handler.Pinger, idem middleware.ReplayStore, redisClient redis.Cmdable, svc Services) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		idempotency: idem,
		redis:       redisClient,
		svc:         svc,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   api.cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", middleware.CSRFHeader, "X-Trace-ID"},
		ExposedHeaders:   []string{"X-Trace-ID", "X-Idempotent-Replay"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Handlers
	healthHandler := handler.NewHealthHandler(api.store, api.redis)
	transactionHandler := handler.NewTransactionHandler(api.svc.Transactions, api.svc.Verification, api.svc.Views, api.svc.Audit)
	viewHandler := handler.NewViewHandler(api.svc.Views)
	settlementHandler := handler.NewSettlementHandler(api.svc.Settlement)
	webhookHandler := handler.NewWebhookHandler(api.svc.Webhooks)

	// Operational routes
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", openapi.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	// Public routes
	r.With(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS)).
		Post("/v1/webhooks/settlement", webhookHandler.HandleSettlementWebhook)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))
		r.Use(middleware.CSRFMiddleware(api.cfg.CSRFCookieName))
		r.Use(middleware.IdempotencyMiddleware(api.idempotency, api.logger))

		customer := middleware.RequireRole(domain.RoleCustomer)
		employee := middleware.RequireRole(domain.RoleEmployee)

		// Customer
		r.With(customer).Post("/v1/transactions", transactionHandler.Submit)
		r.With(customer).Get("/v1/me/transactions", viewHandler.MyTransactions)
		r.With(customer).Get("/v1/me/invoices", viewHandler.MyInvoices)

		// Owner or employee
		r.Get("/v1/transactions/{id}", transactionHandler.Get)
		r.Get("/v1/transactions/{id}/invoice", transactionHandler.Invoice)
		r.Get("/v1/customers/{id}/invoices", viewHandler.CustomerInvoices)

		// Employee
		r.With(employee).Get("/v1/transactions", viewHandler.AllTransactions)
		r.With(employee).Get("/v1/transactions/{id}/audit", transactionHandler.Audit)
		r.With(employee).Post("/v1/transactions/{id}/verify", transactionHandler.Verify)
		r.With(employee).Get("/v1/queues/pending", viewHandler.PendingQueue)
		r.With(employee).Get("/v1/queues/verified", viewHandler.VerifiedQueue)
		r.With(employee).Get("/v1/archive/accepted", viewHandler.AcceptedArchive)
		r.With(employee).Post("/v1/settlement/batches", settlementHandler.SubmitBatch)
	})

	return r
}
