// Package httpserver exposes the Echo REST API over chi.
package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ArDnath/echo/internal/service"
)

// Deps are the services behind the HTTP API.
type Deps struct {
	Payments service.PaymentAuthService
	Ledger   service.LedgerService
	Markups  service.MarkupService
	Grants   service.GrantService
	Tokens   service.TokenService
	Admin    service.AdminService
	Access   service.AccessService

	// Readiness probes; nil entries report "not configured".
	DB    HealthChecker
	Cache HealthChecker

	// Gatherer backs /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer
}

// Handler serves every HTTP route.
type Handler struct {
	payments service.PaymentAuthService
	ledger   service.LedgerService
	markups  service.MarkupService
	grants   service.GrantService
	tokens   service.TokenService
	admin    service.AdminService
	access   service.AccessService
	health   *HealthHandler
	gatherer prometheus.Gatherer
	log      *zap.Logger
	now      func() time.Time
}

// New constructs a Handler.
func New(d Deps, log *zap.Logger) *Handler {
	g := d.Gatherer
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return &Handler{
		payments: d.Payments,
		ledger:   d.Ledger,
		markups:  d.Markups,
		grants:   d.Grants,
		tokens:   d.Tokens,
		admin:    d.Admin,
		access:   d.Access,
		health:   NewHealthHandler(d.DB, d.Cache),
		gatherer: g,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Router builds the chi route tree.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(RequestID)
	r.Use(Logger(h.log))
	r.Use(Recoverer(h.log))

	r.Get("/healthz", h.health.Healthz)
	r.Get("/readyz", h.health.Readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	r.Post("/oauth/token", h.Token)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/payments", func(r chi.Router) {
			r.With(h.OptionalBearer).Post("/authenticate", h.AuthenticatePayment)
			r.With(h.RequireBearer).Post("/transactions", h.RecordTransaction)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.RequireBearer)

			r.Route("/me", func(r chi.Router) {
				r.Get("/balance", h.MyBalance)
				r.Get("/earnings", h.MyEarnings)
				r.Get("/spending", h.MySpending)
				r.Get("/transactions", h.MyTransactions)
				r.Get("/transactions/totals", h.MyTransactionTotals)
			})

			r.Post("/credits/redeem", h.Redeem)

			r.Route("/apps/{appID}", func(r chi.Router) {
				r.Use(h.RequireAppAccess)
				r.Get("/markup", h.CurrentMarkup)
				r.Post("/markup", h.SetMarkup)
				r.Get("/markup/history", h.MarkupHistory)
				r.Get("/earnings", h.AppEarnings)
				r.Get("/spending", h.AppSpending)
				r.Get("/transactions", h.AppTransactions)
				r.Get("/transactions/totals", h.AppTransactionTotals)
			})
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(h.RequireBearer)
		r.Use(h.RequireAdmin)

		r.Get("/users", h.ListUsers)
		r.Get("/users/export", h.ExportUsers)
		r.Get("/users/{userID}/apps", h.ListUserApps)

		r.Post("/credits/mint", h.MintCredits)
		r.Delete("/sessions/{sessionID}", h.RevokeSession)

		r.Post("/grants", h.CreateGrant)
		r.Get("/grants", h.ListGrants)
		// {ref} is the grant code on reads and the grant id on PATCH.
		r.Get("/grants/{ref}", h.GetGrant)
		r.Get("/grants/{ref}/usages", h.GrantUsages)
		r.Patch("/grants/{ref}", h.UpdateGrant)

		r.Get("/earnings", h.PlatformEarnings)
		r.Get("/spending", h.PlatformSpending)
		r.Get("/apps/{appID}/earnings/users", h.AppEarningsByUser)
		r.Get("/apps/{appID}/spending/users", h.AppSpendingByUser)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "resource not found", Code: "not_found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed", Code: "method_not_allowed"})
	})
	return r
}
