package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/toolcrib/toolcrib-backend/api/responses"
	"github.com/toolcrib/toolcrib-backend/api/validators"
	"github.com/toolcrib/toolcrib-backend/internal/maintenance"
	"github.com/toolcrib/toolcrib-backend/pkg/logger"
)

// MaintenanceController serves maintenance task routes.
type MaintenanceController struct {
	svc  maintenance.Service
	logg *logger.Logger
}

func NewMaintenanceController(svc maintenance.Service, logg *logger.Logger) *MaintenanceController {
	return &MaintenanceController{svc: svc, logg: logg}
}

func (c *MaintenanceController) Schedule(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	var input maintenance.ScheduleTaskDTO
	if err := validators.DecodeJSONBody(r, &input); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	dto, err := c.svc.Schedule(r.Context(), actor, input)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, dto)
}

func (c *MaintenanceController) List(w http.ResponseWriter, r *http.Request) {
	page, err := validators.ParsePagination(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	toolID, err := validators.ParseQueryUUID(r, "toolId")
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	assignedTo, err := validators.ParseQueryUUID(r, "assignedTo")
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	result, err := c.svc.List(r.Context(), maintenance.ListParams{
		Page:            page,
		Status:          validators.ParseQueryString(r, "status"),
		MaintenanceType: validators.ParseQueryString(r, "maintenanceType"),
		Priority:        validators.ParseQueryString(r, "priority"),
		ToolID:          toolID,
		AssignedTo:      assignedTo,
	})
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, result)
}

func (c *MaintenanceController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := validators.PathUUID(chi.URLParam(r, "id"))
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	dto, err := c.svc.Get(r.Context(), id)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, dto)
}

func (c *MaintenanceController) Update(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	id, err := validators.PathUUID(chi.URLParam(r, "id"))
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	var patch maintenance.UpdateTaskDTO
	if err := validators.DecodeJSONBody(r, &patch); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	dto, err := c.svc.Update(r.Context(), actor, id, patch)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, dto)
}

func (c *MaintenanceController) Delete(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	id, err := validators.PathUUID(chi.URLParam(r, "id"))
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	if err := c.svc.Delete(r.Context(), actor, id); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, map[string]string{"status": "deleted"})
}

func (c *MaintenanceController) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.svc.Stats(r.Context())
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, stats)
}
