package identity

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/identity/entity"
	"github.com/ovaphlow/pitchfork/service-task-tracker/pkg/utilities"
)

// CallerFunc extracts the authenticated identity id from a request.
type CallerFunc func(r *http.Request) (int64, bool)

// Handler exposes the directory endpoints (managers, users, subordinates).
type Handler struct {
	svc    *Service
	caller CallerFunc
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, caller CallerFunc, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, caller: caller, logger: logger}
}

// Managers lists every root identity. Public: the registration form needs it.
func (h *Handler) Managers(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Managers(r.Context())
	if err != nil {
		h.logger.Errorw("list managers failed", "err", err)
		utilities.WriteMessage(w, http.StatusInternalServerError, "server error")
		return
	}
	out := make([]entity.Profile, 0, len(list))
	for i := range list {
		out = append(out, entity.ProfileOf(&list[i], false))
	}
	utilities.WriteJSON(w, http.StatusOK, out)
}

// User returns the public profile of one identity.
func (h *Handler) User(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utilities.WriteMessage(w, http.StatusNotFound, "user not found")
		return
	}
	u, err := h.svc.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			utilities.WriteMessage(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Errorw("get user failed", "id", id, "err", err)
		utilities.WriteMessage(w, http.StatusInternalServerError, "server error")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, entity.ProfileOf(u, true))
}

// Subordinates lists the direct reports of the caller.
func (h *Handler) Subordinates(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.caller(r)
	if !ok {
		utilities.WriteMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	list, err := h.svc.SubordinatesOf(r.Context(), callerID)
	if err != nil {
		h.logger.Errorw("list subordinates failed", "caller", callerID, "err", err)
		utilities.WriteMessage(w, http.StatusInternalServerError, "server error")
		return
	}
	out := make([]entity.Profile, 0, len(list))
	for i := range list {
		out = append(out, entity.ProfileOf(&list[i], true))
	}
	utilities.WriteJSON(w, http.StatusOK, out)
}
