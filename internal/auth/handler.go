package auth

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/identity"
	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/validation"
	"github.com/ovaphlow/pitchfork/service-task-tracker/pkg/utilities"
)

// Handler exposes HTTP endpoints for registration, login and logout.
type Handler struct {
	svc     *Service
	logger  *zap.SugaredLogger
	metrics *Metrics
}

func NewHandler(svc *Service, logger *zap.SugaredLogger, metrics *Metrics) *Handler {
	return &Handler{svc: svc, logger: logger, metrics: metrics}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		h.logger.Debugw("invalid register payload", "err", err)
		utilities.WriteMessage(w, http.StatusBadRequest, "invalid payload")
		return
	}
	cmd, err := req.Command()
	if err != nil {
		h.metrics.observe("register", "invalid")
		validation.WriteHTTP(w, err)
		return
	}
	token, claims, err := h.svc.Register(r.Context(), cmd)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrDuplicateLogin):
			h.metrics.observe("register", "duplicate")
			utilities.WriteMessage(w, http.StatusBadRequest, "login already in use")
		case isValidation(err):
			h.metrics.observe("register", "invalid")
			validation.WriteHTTP(w, err)
		default:
			h.logger.Errorw("register failed", "login", cmd.Identity.Login, "err", err)
			utilities.WriteMessage(w, http.StatusInternalServerError, "server error")
		}
		return
	}
	h.metrics.observe("register", "ok")
	h.logger.Infow("identity registered", "id", claims.UserID, "login", claims.Login)
	utilities.WriteJSON(w, http.StatusCreated, TokenResponse{Message: "registration successful", Token: token})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		utilities.WriteMessage(w, http.StatusBadRequest, "invalid payload")
		return
	}
	token, _, err := h.svc.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.metrics.observe("login", "rejected")
			utilities.WriteMessage(w, http.StatusBadRequest, ErrInvalidCredentials.Error())
			return
		}
		h.logger.Errorw("login failed", "err", err)
		utilities.WriteMessage(w, http.StatusInternalServerError, "server error")
		return
	}
	h.metrics.observe("login", "ok")
	utilities.WriteJSON(w, http.StatusOK, TokenResponse{Message: "login successful", Token: token})
}

// Logout revokes the presented token. Must run behind the gate.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		utilities.WriteMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if err := h.svc.Logout(r.Context(), claims); err != nil {
		h.logger.Errorw("logout failed", "id", claims.UserID, "err", err)
		utilities.WriteMessage(w, http.StatusInternalServerError, "server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the identity asserted by the presented token.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	c, ok := ClaimsFrom(r.Context())
	if !ok {
		utilities.WriteMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, MeView{
		ID:         c.UserID,
		Login:      c.Login,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		MiddleName: c.MiddleName,
		ExpiresAt:  c.ExpiresAtTime(),
	})
}

func isValidation(err error) bool {
	_, ok := validation.As(err)
	return ok
}
