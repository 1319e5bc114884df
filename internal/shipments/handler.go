package shipments

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dtauto/dtauto/internal/costs"
	"github.com/dtauto/dtauto/internal/shared"
)

// Handler wires shipment endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Post("/{id}/status", h.updateStatus)
	r.Post("/{id}/clear-customs", h.clearCustoms)
}

type shipmentRequest struct {
	Reference           string  `json:"reference" validate:"required"`
	Origin              string  `json:"origin" validate:"required"`
	Destination         string  `json:"destination" validate:"required"`
	Carrier             string  `json:"carrier"`
	DepartureDate       string  `json:"departure_date" validate:"omitempty,datetime=2006-01-02"`
	ArrivalDate         string  `json:"arrival_date" validate:"omitempty,datetime=2006-01-02"`
	GroundTransportCost float64 `json:"ground_transport_cost" validate:"gte=0"`
	CustomsBrokerFees   float64 `json:"customs_broker_fees" validate:"gte=0"`
	OceanFreightCost    float64 `json:"ocean_freight_cost" validate:"gte=0"`
	ImportFeesCost      float64 `json:"import_fees_cost" validate:"gte=0"`
	BillOfLadingURL     string  `json:"bill_of_lading_url" validate:"omitempty,url"`
	CustomsDocsURL      string  `json:"customs_docs_url" validate:"omitempty,url"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type shipmentResponse struct {
	ID                  int64   `json:"id"`
	Reference           string  `json:"reference"`
	Origin              string  `json:"origin"`
	Destination         string  `json:"destination"`
	Carrier             string  `json:"carrier,omitempty"`
	Status              Status  `json:"status"`
	DepartureDate       *string `json:"departure_date,omitempty"`
	ArrivalDate         *string `json:"arrival_date,omitempty"`
	GroundTransportCost float64 `json:"ground_transport_cost"`
	CustomsBrokerFees   float64 `json:"customs_broker_fees"`
	OceanFreightCost    float64 `json:"ocean_freight_cost"`
	ImportFeesCost      float64 `json:"import_fees_cost"`
	BillOfLadingURL     string  `json:"bill_of_lading_url,omitempty"`
	CustomsDocsURL      string  `json:"customs_docs_url,omitempty"`
}

func toResponse(s Shipment) shipmentResponse {
	resp := shipmentResponse{
		ID:                  s.ID,
		Reference:           s.Reference,
		Origin:              s.Origin,
		Destination:         s.Destination,
		Carrier:             s.Carrier,
		Status:              s.Status,
		GroundTransportCost: s.GroundTransportCost,
		CustomsBrokerFees:   s.CustomsBrokerFees,
		OceanFreightCost:    s.OceanFreightCost,
		ImportFeesCost:      s.ImportFeesCost,
		BillOfLadingURL:     s.BillOfLadingURL,
		CustomsDocsURL:      s.CustomsDocsURL,
	}
	if s.DepartureDate != nil {
		formatted := s.DepartureDate.Format("2006-01-02")
		resp.DepartureDate = &formatted
	}
	if s.ArrivalDate != nil {
		formatted := s.ArrivalDate.Format("2006-01-02")
		resp.ArrivalDate = &formatted
	}
	return resp
}

func (r shipmentRequest) toInput() Input {
	input := Input{
		Reference:           r.Reference,
		Origin:              r.Origin,
		Destination:         r.Destination,
		Carrier:             r.Carrier,
		GroundTransportCost: r.GroundTransportCost,
		CustomsBrokerFees:   r.CustomsBrokerFees,
		OceanFreightCost:    r.OceanFreightCost,
		ImportFeesCost:      r.ImportFeesCost,
		BillOfLadingURL:     r.BillOfLadingURL,
		CustomsDocsURL:      r.CustomsDocsURL,
	}
	if parsed, err := time.Parse("2006-01-02", r.DepartureDate); err == nil && r.DepartureDate != "" {
		input.DepartureDate = &parsed
	}
	if parsed, err := time.Parse("2006-01-02", r.ArrivalDate); err == nil && r.ArrivalDate != "" {
		input.ArrivalDate = &parsed
	}
	return input
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list shipments", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, "failed to load shipments")
		return
	}
	out := make([]shipmentResponse, 0, len(items))
	for _, s := range items {
		out = append(out, toResponse(s))
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"shipments": out})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	s, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, toResponse(*s))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req shipmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	created, err := h.service.Create(r.Context(), req.toInput())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, toResponse(*created))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req shipmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	updated, err := h.service.Update(r.Context(), id, req.toInput())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, toResponse(*updated))
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !h.decode(w, r, &req) {
		return
	}
	updated, err := h.service.UpdateStatus(r.Context(), id, Status(req.Status))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, toResponse(*updated))
}

func (h *Handler) clearCustoms(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	cleared, err := h.service.ClearCustoms(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, toResponse(*cleared))
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := h.validator.Struct(req); err != nil {
		fields := make(map[string]string)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				fields[fieldErr.Field()] = fieldErr.Tag()
			}
		}
		shared.RespondFieldErrors(w, fields)
		return false
	}
	return true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var locked *costs.LockedError
	switch {
	case errors.Is(err, shared.ErrNotFound):
		shared.RespondError(w, http.StatusNotFound, "shipment not found")
	case errors.As(err, &locked):
		shared.RespondJSON(w, http.StatusConflict, map[string]any{
			"error":       locked.Error(),
			"shipment_id": locked.ShipmentID,
		})
	case errors.Is(err, ErrAlreadyCleared):
		shared.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrClearanceRequired):
		shared.RespondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("shipment operation failed", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
