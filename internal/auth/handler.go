package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dtauto/dtauto/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
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

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password, clientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrTooManyAttempts):
			shared.RespondError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
		case errors.Is(err, shared.ErrInvalidCredentials):
			shared.RespondError(w, http.StatusUnauthorized, "invalid email or password")
		default:
			h.logger.Error("login failed", slog.Any("error", err))
			shared.RespondError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		sess, err = h.sessionManager.Load(r.Context(), r)
		if err != nil {
			h.logger.Error("load session", slog.Any("error", err))
			shared.RespondError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}
	sess.SetUserID(user.ID)
	if err := h.sessionManager.Commit(r.Context(), w, r, sess); err != nil {
		h.logger.Error("commit session", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	shared.RespondJSON(w, http.StatusOK, map[string]any{
		"id":      user.ID,
		"email":   user.Email,
		"name":    user.Name,
		"partner": user.Partner,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		h.sessionManager.Destroy(sess)
		if err := h.sessionManager.Commit(r.Context(), w, r, sess); err != nil {
			h.logger.Warn("destroy session", slog.Any("error", err))
		}
	}
	shared.RespondJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == 0 {
		shared.RespondError(w, http.StatusUnauthorized, "not signed in")
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"id": actor})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
