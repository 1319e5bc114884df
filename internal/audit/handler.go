package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dtauto/dtauto/internal/shared"
)

// Handler exposes the audit trail read endpoint.
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
	r.Get("/", h.timeline)
}

type timelineRowResponse struct {
	At       string         `json:"at"`
	ActorID  int64          `json:"actor_id"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty"`
}

type timelineResponse struct {
	Rows     []timelineRowResponse `json:"rows"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
	HasNext  bool                  `json:"has_next"`
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := timelineResponse{
		Rows:     make([]timelineRowResponse, 0, len(result.Rows)),
		Page:     result.Paging.Page,
		PageSize: result.Paging.PageSize,
		HasNext:  result.Paging.HasNext,
	}
	for _, row := range result.Rows {
		resp.Rows = append(resp.Rows, timelineRowResponse{
			At:       row.At.Format(time.RFC3339),
			ActorID:  row.ActorID,
			Action:   row.Action,
			Entity:   row.Entity,
			EntityID: row.EntityID,
			Meta:     row.Meta,
		})
	}
	shared.RespondJSON(w, http.StatusOK, resp)
}

type badFilterError struct{ field string }

func (e badFilterError) Error() string { return "invalid filter: " + e.field }

func parseFilters(r *http.Request) (TimelineFilters, error) {
	q := r.URL.Query()
	var filters TimelineFilters
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return filters, badFilterError{"from"}
		}
		filters.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return filters, badFilterError{"to"}
		}
		// Inclusive end-of-day bound.
		filters.To = t.AddDate(0, 0, 1)
	}
	if v := q.Get("actor_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filters, badFilterError{"actor_id"}
		}
		filters.ActorID = id
	}
	filters.Entity = q.Get("entity")
	filters.Action = q.Get("action")
	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return filters, badFilterError{"page"}
		}
		filters.Page = page
	}
	if v := q.Get("page_size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 {
			return filters, badFilterError{"page_size"}
		}
		filters.PageSize = size
	}
	return filters, nil
}
