package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	analytichttp "github.com/dtauto/dtauto/internal/analytics/http"
	"github.com/dtauto/dtauto/internal/audit"
	"github.com/dtauto/dtauto/internal/auth"
	"github.com/dtauto/dtauto/internal/costs"
	"github.com/dtauto/dtauto/internal/fleet"
	"github.com/dtauto/dtauto/internal/ledger"
	"github.com/dtauto/dtauto/internal/observability"
	"github.com/dtauto/dtauto/internal/payments"
	"github.com/dtauto/dtauto/internal/shared"
	"github.com/dtauto/dtauto/internal/shipments"
	"github.com/dtauto/dtauto/internal/users"
	"github.com/dtauto/dtauto/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Pool           *pgxpool.Pool
	Metrics        *observability.Metrics

	AuthHandler      *auth.Handler
	UsersHandler     *users.Handler
	FleetHandler     *fleet.Handler
	ShipmentsHandler *shipments.Handler
	CostsHandler     *costs.Handler
	PaymentsHandler  *payments.Handler
	LedgerHandler    *ledger.Handler
	AnalyticsHandler *analytichttp.Handler
	AuditHandler     *audit.Handler
	JobsHandler      *jobs.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Clients fetch the CSRF token here before issuing mutating requests.
	r.Get("/csrf", func(w http.ResponseWriter, req *http.Request) {
		sess := shared.SessionFromContext(req.Context())
		token, err := params.CSRFManager.EnsureToken(req.Context(), sess)
		if err != nil {
			params.Logger.Error("issue csrf token", slog.Any("error", err))
			shared.RespondError(w, http.StatusInternalServerError, "internal error")
			return
		}
		shared.RespondJSON(w, http.StatusOK, map[string]string{"csrf_token": token})
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/api", func(r chi.Router) {
		r.Use(RequireAuth)

		r.Route("/vehicles", params.FleetHandler.MountRoutes)
		r.Route("/shipments", params.ShipmentsHandler.MountRoutes)
		r.Route("/costs", params.CostsHandler.MountRoutes)
		r.Route("/payments", params.PaymentsHandler.MountRoutes)
		r.Route("/distributions", params.LedgerHandler.MountRoutes)
		r.Route("/analytics", params.AnalyticsHandler.MountRoutes)
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/audit", params.AuditHandler.MountRoutes)
		}
		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
