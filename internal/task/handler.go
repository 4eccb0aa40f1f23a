package task

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/auth"
	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/task/entity"
	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/validation"
	"github.com/ovaphlow/pitchfork/service-task-tracker/pkg/utilities"
)

// Response wraps a single task with a status message.
type Response struct {
	Message string       `json:"message"`
	Task    *entity.Task `json:"task"`
}

// Handler contains dependencies for handling task endpoints. Every route
// must be mounted behind the auth gate.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

// NewHandler constructs a new Handler.
func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// List returns the tasks the caller created or is assigned.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	callerID, ok := auth.CallerID(r)
	if !ok {
		utilities.WriteMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	tasks, err := h.svc.ListForIdentity(r.Context(), callerID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, tasks)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	callerID, ok := auth.CallerID(r)
	if !ok {
		utilities.WriteMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	cmd, ok := h.decode(w, r)
	if !ok {
		return
	}
	t, err := h.svc.Create(r.Context(), callerID, cmd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Debugw("task created", "id", t.ID, "creator", t.CreatorID, "assignee", t.AssigneeID)
	utilities.WriteJSON(w, http.StatusCreated, Response{Message: "task created", Task: t})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	callerID, ok := auth.CallerID(r)
	if !ok {
		utilities.WriteMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utilities.WriteMessage(w, http.StatusNotFound, ErrNotFound.Error())
		return
	}
	cmd, ok := h.decode(w, r)
	if !ok {
		return
	}
	t, err := h.svc.Update(r.Context(), callerID, id, cmd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Debugw("task updated", "id", t.ID, "by", callerID)
	utilities.WriteJSON(w, http.StatusOK, Response{Message: "task updated", Task: t})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (Command, bool) {
	var req Request
	if err := utilities.DecodeJSON(r, &req); err != nil {
		h.logger.Debugw("invalid task payload", "err", err)
		utilities.WriteMessage(w, http.StatusBadRequest, "invalid payload")
		return Command{}, false
	}
	cmd, err := req.Command()
	if err != nil {
		validation.WriteHTTP(w, err)
		return Command{}, false
	}
	return cmd, true
}

// fail maps service errors to status codes; anything unknown is logged
// and reported without detail.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrAssigneeNotFound):
		utilities.WriteMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		utilities.WriteMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		utilities.WriteMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrUnknownCaller):
		utilities.WriteMessage(w, http.StatusUnauthorized, "invalid or expired token")
	default:
		h.logger.Errorw("task request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		utilities.WriteMessage(w, http.StatusInternalServerError, "server error")
	}
}
