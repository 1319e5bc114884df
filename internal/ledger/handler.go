package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dtauto/dtauto/internal/shared"
)

// Handler exposes the distribution ledger over HTTP. Distributions are
// created by the sale flow; the POST route only retries generation for a
// vehicle whose hook failed, and is idempotent.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/vehicle/{vehicleID}", h.showByVehicle)
	r.Post("/vehicle/{vehicleID}/generate", h.generate)
}

type entryResponse struct {
	ID        int64       `json:"id"`
	Partner   Partner     `json:"partner"`
	Amount    float64     `json:"amount"`
	Status    EntryStatus `json:"status"`
	PaymentID *int64      `json:"payment_id,omitempty"`
}

type distributionResponse struct {
	ID                     int64           `json:"id"`
	VehicleID              int64           `json:"vehicle_id"`
	GrossProfit            float64         `json:"gross_profit"`
	TotalCost              float64         `json:"total_cost"`
	SalePrice              float64         `json:"sale_price"`
	ReinvestmentAmount     float64         `json:"reinvestment_amount"`
	ReinvestmentPhase      bool            `json:"reinvestment_phase"`
	CumulativeReinvestment float64         `json:"cumulative_reinvestment"`
	SaleDate               string          `json:"sale_date"`
	Entries                []entryResponse `json:"entries,omitempty"`
}

func toResponse(d Distribution, entries []Entry) distributionResponse {
	resp := distributionResponse{
		ID:                     d.ID,
		VehicleID:              d.VehicleID,
		GrossProfit:            d.GrossProfit,
		TotalCost:              d.TotalCost,
		SalePrice:              d.SalePrice,
		ReinvestmentAmount:     d.ReinvestmentAmount,
		ReinvestmentPhase:      d.ReinvestmentPhase,
		CumulativeReinvestment: d.CumulativeReinvestment,
		SaleDate:               d.SaleDate.Format(time.DateOnly),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, entryResponse{
			ID:        e.ID,
			Partner:   e.Partner,
			Amount:    e.Amount,
			Status:    e.Status,
			PaymentID: e.PaymentID,
		})
	}
	return resp
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListDistributions(r.Context())
	if err != nil {
		h.logger.Error("list distributions", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, "failed to load distributions")
		return
	}
	out := make([]distributionResponse, 0, len(items))
	for _, d := range items {
		out = append(out, toResponse(d, nil))
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"distributions": out})
}

func (h *Handler) showByVehicle(w http.ResponseWriter, r *http.Request) {
	vehicleID, ok := h.parseVehicleID(w, r)
	if !ok {
		return
	}
	dist, entries, err := h.service.DistributionWithEntries(r.Context(), vehicleID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, toResponse(*dist, entries))
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	vehicleID, ok := h.parseVehicleID(w, r)
	if !ok {
		return
	}
	dist, err := h.service.GenerateDistribution(r.Context(), vehicleID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	entries, err := h.service.repo.ListEntries(r.Context(), dist.ID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, toResponse(*dist, entries))
}

func (h *Handler) parseVehicleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "vehicleID"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid vehicle id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		shared.RespondError(w, http.StatusNotFound, "distribution not found")
	case errors.Is(err, ErrNotSold), errors.Is(err, ErrMissingSalePrice):
		shared.RespondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("distribution operation failed", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
