package controllers

import (
	"net/http"

	"github.com/toolcrib/toolcrib-backend/api/responses"
	"github.com/toolcrib/toolcrib-backend/api/validators"
	"github.com/toolcrib/toolcrib-backend/internal/notifications"
	"github.com/toolcrib/toolcrib-backend/pkg/logger"
)

// NotificationsController serves broadcast and system-status routes.
type NotificationsController struct {
	svc  notifications.Service
	logg *logger.Logger
}

func NewNotificationsController(svc notifications.Service, logg *logger.Logger) *NotificationsController {
	return &NotificationsController{svc: svc, logg: logg}
}

func (c *NotificationsController) Broadcast(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	var input notifications.BroadcastDTO
	if err := validators.DecodeJSONBody(r, &input); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	result, err := c.svc.Broadcast(r.Context(), actor, input)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, result)
}

func (c *NotificationsController) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status, err := c.svc.SystemStatus(r.Context())
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, status)
}
