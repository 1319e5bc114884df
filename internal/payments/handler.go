package payments

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

// Handler wires payment endpoints.
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
}

type paymentRequest struct {
	EntryID   int64  `json:"entry_id" validate:"required,gt=0"`
	Method    string `json:"method" validate:"required,oneof=cash wire zelle check bank_transfer"`
	Reference string `json:"reference"`
	Note      string `json:"note"`
	PaidAt    string `json:"paid_at" validate:"omitempty,datetime=2006-01-02"`
}

type paymentResponse struct {
	ID        int64   `json:"id"`
	EntryID   int64   `json:"entry_id"`
	Partner   string  `json:"partner"`
	Amount    float64 `json:"amount"`
	Method    Method  `json:"method"`
	Reference string  `json:"reference,omitempty"`
	Note      string  `json:"note,omitempty"`
	PaidAt    string  `json:"paid_at"`
}

func toResponse(p Payment) paymentResponse {
	return paymentResponse{
		ID:        p.ID,
		EntryID:   p.EntryID,
		Partner:   p.Partner,
		Amount:    p.Amount,
		Method:    p.Method,
		Reference: p.Reference,
		Note:      p.Note,
		PaidAt:    p.PaidAt.Format("2006-01-02"),
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	partner := r.URL.Query().Get("partner")
	items, err := h.service.List(r.Context(), partner)
	if err != nil {
		h.logger.Error("list payments", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, "failed to load payments")
		return
	}
	out := make([]paymentResponse, 0, len(items))
	for _, p := range items {
		out = append(out, toResponse(p))
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"payments": out})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, toResponse(*p))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid JSON body")
		return
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
		return
	}
	input := CreateInput{
		EntryID:   req.EntryID,
		Method:    Method(req.Method),
		Reference: req.Reference,
		Note:      req.Note,
	}
	if req.PaidAt != "" {
		if parsed, err := time.Parse("2006-01-02", req.PaidAt); err == nil {
			input.PaidAt = parsed
		}
	}
	created, err := h.service.CreatePayment(r.Context(), input)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, toResponse(*created))
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		shared.RespondError(w, http.StatusNotFound, "payment not found")
	case errors.Is(err, ErrUnknownEntry):
		shared.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrEntryClosed):
		shared.RespondError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("payment operation failed", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
