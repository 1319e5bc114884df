package fleet

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

// Handler wires vehicle endpoints.
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
	r.Delete("/{id}", h.remove)
	r.Post("/{id}/status", h.updateStatus)
	r.Post("/{id}/sell", h.sell)
}

type vehicleRequest struct {
	Year          int      `json:"year" validate:"required,gte=1950,lte=2100"`
	Make          string   `json:"make" validate:"required"`
	Model         string   `json:"model" validate:"required"`
	VIN           string   `json:"vin" validate:"required,len=17"`
	PurchasePrice float64  `json:"purchase_price" validate:"gte=0"`
	TargetPrice   *float64 `json:"target_price" validate:"omitempty,gt=0"`
	MinimumPrice  *float64 `json:"minimum_price" validate:"omitempty,gt=0"`
	ShipmentID    *int64   `json:"shipment_id"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type saleRequest struct {
	SalePrice    float64 `json:"sale_price" validate:"required,gt=0"`
	SaleDate     string  `json:"sale_date" validate:"omitempty,datetime=2006-01-02"`
	BuyerName    string  `json:"buyer_name"`
	BuyerContact string  `json:"buyer_contact"`
}

type vehicleResponse struct {
	ID            int64    `json:"id"`
	Year          int      `json:"year"`
	Make          string   `json:"make"`
	Model         string   `json:"model"`
	VIN           string   `json:"vin"`
	PurchasePrice float64  `json:"purchase_price"`
	TargetPrice   *float64 `json:"target_price,omitempty"`
	MinimumPrice  *float64 `json:"minimum_price,omitempty"`
	SalePrice     *float64 `json:"sale_price,omitempty"`
	Status        Status   `json:"status"`
	ShipmentID    *int64   `json:"shipment_id,omitempty"`
	SaleDate      *string  `json:"sale_date,omitempty"`
	BuyerName     string   `json:"buyer_name,omitempty"`
	BuyerContact  string   `json:"buyer_contact,omitempty"`
}

func toResponse(v Vehicle) vehicleResponse {
	resp := vehicleResponse{
		ID:            v.ID,
		Year:          v.Year,
		Make:          v.Make,
		Model:         v.Model,
		VIN:           v.VIN,
		PurchasePrice: v.PurchasePrice,
		TargetPrice:   v.TargetPrice,
		MinimumPrice:  v.MinimumPrice,
		SalePrice:     v.SalePrice,
		Status:        v.Status,
		ShipmentID:    v.ShipmentID,
		BuyerName:     v.BuyerName,
		BuyerContact:  v.BuyerContact,
	}
	if v.SaleDate != nil {
		formatted := v.SaleDate.Format("2006-01-02")
		resp.SaleDate = &formatted
	}
	return resp
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list vehicles", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, "failed to load vehicles")
		return
	}
	out := make([]vehicleResponse, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, toResponse(v))
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"vehicles": out})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	v, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, toResponse(*v))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req vehicleRequest
	if !h.decode(w, r, &req) {
		return
	}
	created, err := h.service.Create(r.Context(), CreateInput{
		Year:          req.Year,
		Make:          req.Make,
		Model:         req.Model,
		VIN:           req.VIN,
		PurchasePrice: req.PurchasePrice,
		TargetPrice:   req.TargetPrice,
		MinimumPrice:  req.MinimumPrice,
		ShipmentID:    req.ShipmentID,
	})
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
	var req vehicleRequest
	if !h.decode(w, r, &req) {
		return
	}
	updated, err := h.service.Update(r.Context(), id, UpdateInput{
		Year:          req.Year,
		Make:          req.Make,
		Model:         req.Model,
		PurchasePrice: req.PurchasePrice,
		TargetPrice:   req.TargetPrice,
		MinimumPrice:  req.MinimumPrice,
		ShipmentID:    req.ShipmentID,
	})
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

func (h *Handler) sell(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req saleRequest
	if !h.decode(w, r, &req) {
		return
	}
	input := SaleInput{
		SalePrice:    req.SalePrice,
		BuyerName:    req.BuyerName,
		BuyerContact: req.BuyerContact,
	}
	if req.SaleDate != "" {
		if parsed, err := time.Parse("2006-01-02", req.SaleDate); err == nil {
			input.SaleDate = parsed
		}
	}
	sold, err := h.service.MarkSold(r.Context(), id, input)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, toResponse(*sold))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondServiceError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusNoContent, nil)
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
	switch {
	case errors.Is(err, shared.ErrNotFound):
		shared.RespondError(w, http.StatusNotFound, "vehicle not found")
	case errors.Is(err, ErrVINExists):
		shared.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrAlreadySold), errors.Is(err, ErrSoldImmutable):
		shared.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrInvalidSalePrice):
		shared.RespondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("vehicle operation failed", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
