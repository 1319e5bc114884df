package analytichttp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dtauto/dtauto/internal/analytics"
	"github.com/dtauto/dtauto/internal/analytics/export"
	"github.com/dtauto/dtauto/internal/shared"
)

const requestTimeout = 5 * time.Second

// DashboardService defines the data contract used by the handler.
type DashboardService interface {
	Dashboard(ctx context.Context) (analytics.DashboardMetrics, error)
	Financials(ctx context.Context) (analytics.FinancialSummary, error)
	Projections(ctx context.Context) (analytics.Projections, error)
	Leaderboard(ctx context.Context) ([]analytics.PartnerStanding, error)
}

// Handler coordinates HTTP requests for the partner dashboard.
type Handler struct {
	logger  *slog.Logger
	service DashboardService
	bufPool sync.Pool
}

// NewHandler constructs the analytics HTTP handler.
func NewHandler(logger *slog.Logger, service DashboardService) *Handler {
	h := &Handler{logger: logger, service: service}
	h.bufPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	metrics, err := h.service.Dashboard(ctx)
	if err != nil {
		h.fail(w, "dashboard", err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{
		"inventory_by_status":     metrics.InventoryByStatus,
		"vehicles_sold":           metrics.VehiclesSold,
		"total_invested":          metrics.TotalInvested,
		"realized_profit":         metrics.RealizedProfit,
		"cumulative_reinvestment": metrics.CumulativeReinvestment,
		"reinvestment_goal":       metrics.ReinvestmentGoal,
		"reinvestment_phase":      metrics.ReinvestmentPhase,
	})
}

func (h *Handler) handleFinancials(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	summary, err := h.service.Financials(ctx)
	if err != nil {
		h.fail(w, "financials", err)
		return
	}
	rows := make([]map[string]any, 0, len(summary.Rows))
	for _, row := range summary.Rows {
		rows = append(rows, map[string]any{
			"vehicle_id":         row.VehicleID,
			"vehicle":            row.Vehicle,
			"sale_date":          row.SaleDate.Format("2006-01-02"),
			"sale_price":         row.SalePrice,
			"landed_cost":        row.LandedCost,
			"profit":             row.Profit,
			"reinvestment_phase": row.ReinvestmentPhase,
			"dominick_share":     row.DominickShare,
			"tony_share":         row.TonyShare,
			"reinvested":         row.Reinvested,
		})
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{
		"rows":              rows,
		"total_sales":       summary.TotalSales,
		"total_landed_cost": summary.TotalLandedCost,
		"total_profit":      summary.TotalProfit,
		"total_dominick":    summary.TotalDominick,
		"total_tony":        summary.TotalTony,
		"total_reinvested":  summary.TotalReinvested,
	})
}

func (h *Handler) handleProjections(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	projections, err := h.service.Projections(ctx)
	if err != nil {
		h.fail(w, "projections", err)
		return
	}
	rows := make([]map[string]any, 0, len(projections.Rows))
	for _, row := range projections.Rows {
		rows = append(rows, map[string]any{
			"vehicle_id":      row.VehicleID,
			"vehicle":         row.Vehicle,
			"expected_price":  row.ExpectedPrice,
			"landed_cost":     row.LandedCost,
			"expected_profit": row.ExpectedProfit,
			"dominick_share":  row.DominickShare,
			"tony_share":      row.TonyShare,
			"reinvested":      row.Reinvested,
		})
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{
		"rows":                  rows,
		"total_expected_profit": projections.TotalExpectedProfit,
		"reinvestment_phase":    projections.ReinvestmentPhase,
	})
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	standings, err := h.service.Leaderboard(ctx)
	if err != nil {
		h.fail(w, "leaderboard", err)
		return
	}
	rows := make([]map[string]any, 0, len(standings))
	for _, s := range standings {
		rows = append(rows, map[string]any{
			"partner": s.Partner,
			"earned":  s.Earned,
			"paid":    s.Paid,
			"pending": s.Pending,
		})
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"partners": rows})
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	summary, err := h.service.Financials(ctx)
	if err != nil {
		h.fail(w, "financials csv", err)
		return
	}
	buf := h.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer h.bufPool.Put(buf)
	if err := export.WriteFinancialsCSV(buf, summary); err != nil {
		h.fail(w, "financials csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=financials-%s.csv", time.Now().Format("2006-01-02")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handleXLSX(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	summary, err := h.service.Financials(ctx)
	if err != nil {
		h.fail(w, "financials xlsx", err)
		return
	}
	buf := h.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer h.bufPool.Put(buf)
	if err := export.WriteFinancialsXLSX(buf, summary); err != nil {
		h.fail(w, "financials xlsx", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=financials-%s.xlsx", time.Now().Format("2006-01-02")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error("analytics request failed", slog.String("op", op), slog.Any("error", err))
	shared.RespondError(w, http.StatusInternalServerError, "internal error")
}
