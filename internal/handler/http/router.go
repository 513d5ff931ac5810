package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"github.com/redis/go-redis/v9"
)

type RouterConfig struct {
	AllowedOrigins []string
	IdempotencyTTL time.Duration
}

func NewRouter(
	logger *slog.Logger,
	cfg RouterConfig,
	JWTService jwt.Service,
	rdb *redis.Client,
	payrollHandler PayrollHandler,
	ledgerHandler LedgerHandler,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.IdempotencyHeader},
		ExposedHeaders:   []string{middleware.IdempotencyReplayHeader},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	idempotent := middleware.Idempotency(rdb, cfg.IdempotencyTTL)

	r.Route("/api/v1", func(r chi.Router) {
		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService))

			r.Route("/payroll", func(r chi.Router) {
				r.Use(middleware.RequireCompany)

				r.Route("/batches", func(r chi.Router) {
					r.Get("/", payrollHandler.ListBatches)
					r.With(middleware.RequireManager).Post("/", payrollHandler.CreateBatch)

					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", payrollHandler.GetBatch)
						r.Get("/summary", payrollHandler.GetBatchSummary)
						r.Get("/items", payrollHandler.GetBatchItems)
						r.Get("/salaries", payrollHandler.CalculateSalaries)

						// Manager or owner
						r.Group(func(r chi.Router) {
							r.Use(middleware.RequireManager)
							r.Post("/cancel", payrollHandler.CancelBatch)
							r.With(idempotent).Post("/process", payrollHandler.ProcessBatch)
						})
					})
				})

				r.Route("/items/{id}", func(r chi.Router) {
					r.Use(middleware.RequireManager)
					r.Post("/retry", payrollHandler.RetryItem)
					r.With(idempotent).Post("/reprocess", payrollHandler.ReprocessItem)
				})
			})

			r.Route("/ledger", func(r chi.Router) {
				r.Use(middleware.RequireCompany)

				r.Route("/accounts/{id}", func(r chi.Router) {
					r.Get("/balance", ledgerHandler.GetBalance)
					r.Get("/sufficient", ledgerHandler.HasSufficientBalance)
					r.Get("/transactions", ledgerHandler.ListAccountTransactions)
				})

				r.Get("/transactions", ledgerHandler.GetTransactionByReference)
				r.Route("/transactions/{id}", func(r chi.Router) {
					r.Get("/", ledgerHandler.GetTransaction)
					r.With(middleware.RequireOwner).Post("/reverse", ledgerHandler.ReverseTransaction)
				})

				// Owner only
				r.With(middleware.RequireOwner, idempotent).Post("/transfers", ledgerHandler.Transfer)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Route not found")
	})

	return r
}
