package costs

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dtauto/dtauto/internal/shared"
)

// Handler wires cost ledger endpoints.
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
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.remove)
}

type costRequest struct {
	Category   string  `json:"category" validate:"required"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
	IncurredAt string  `json:"incurred_at" validate:"omitempty,datetime=2006-01-02"`
	VehicleID  *int64  `json:"vehicle_id"`
	ShipmentID *int64  `json:"shipment_id"`
	ReceiptURL string  `json:"receipt_url" validate:"omitempty,url"`
	Note       string  `json:"note"`
}

type costResponse struct {
	ID         int64   `json:"id"`
	Category   string  `json:"category"`
	Amount     float64 `json:"amount"`
	IncurredAt string  `json:"incurred_at"`
	VehicleID  *int64  `json:"vehicle_id,omitempty"`
	ShipmentID *int64  `json:"shipment_id,omitempty"`
	Source     Source  `json:"source"`
	Locked     bool    `json:"locked"`
	ReceiptURL string  `json:"receipt_url,omitempty"`
	Note       string  `json:"note,omitempty"`
}

func toResponse(c Cost) costResponse {
	return costResponse{
		ID:         c.ID,
		Category:   c.Category,
		Amount:     c.Amount,
		IncurredAt: c.IncurredAt.Format("2006-01-02"),
		VehicleID:  c.VehicleID,
		ShipmentID: c.ShipmentID,
		Source:     c.Source,
		Locked:     c.Locked,
		ReceiptURL: c.ReceiptURL,
		Note:       c.Note,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var filter Filter
	if raw := r.URL.Query().Get("vehicle_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.VehicleID = &id
		}
	}
	if raw := r.URL.Query().Get("shipment_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.ShipmentID = &id
		}
	}
	entries, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list costs", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, "failed to load costs")
		return
	}
	out := make([]costResponse, 0, len(entries))
	for _, c := range entries {
		out = append(out, toResponse(c))
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"costs": out})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decode(w, r)
	if !ok {
		return
	}
	created, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, toResponse(*created))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	input, ok := h.decode(w, r)
	if !ok {
		return
	}
	updated, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, toResponse(*updated))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondServiceError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (CreateInput, bool) {
	var req costRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid JSON body")
		return CreateInput{}, false
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
		return CreateInput{}, false
	}
	input := CreateInput{
		Category:   req.Category,
		Amount:     req.Amount,
		VehicleID:  req.VehicleID,
		ShipmentID: req.ShipmentID,
		ReceiptURL: req.ReceiptURL,
		Note:       req.Note,
	}
	if req.IncurredAt != "" {
		if parsed, err := time.Parse("2006-01-02", req.IncurredAt); err == nil {
			input.IncurredAt = parsed
		}
	}
	return input, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var locked *LockedError
	switch {
	case errors.As(err, &locked):
		shared.RespondJSON(w, http.StatusConflict, map[string]any{
			"error":       "cost ledger locked",
			"shipment_id": locked.ShipmentID,
		})
	case errors.Is(err, ErrAutoManaged):
		shared.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrAmbiguousLink), errors.Is(err, ErrInvalidAmount):
		shared.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrNotFound):
		shared.RespondError(w, http.StatusNotFound, "cost not found")
	default:
		h.logger.Error("cost operation failed", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
