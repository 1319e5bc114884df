package analytichttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/dtauto/dtauto/internal/shared"
)

// MountRoutes registers the dashboard endpoints onto the router. Exports
// are heavier than the JSON views and carry their own rate limit.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/dashboard", h.handleDashboard)
	r.Get("/financials", h.handleFinancials)
	r.Get("/projections", h.handleProjections)
	r.Get("/leaderboard", h.handleLeaderboard)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/financials/export.csv", h.handleCSV)
		gr.Get("/financials/export.xlsx", h.handleXLSX)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if actor := shared.ActorFromContext(r.Context()); actor != 0 {
		return "user:" + strconv.FormatInt(actor, 10), nil
	}
	return httprate.KeyByIP(r)
}
