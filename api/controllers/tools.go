package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/toolcrib/toolcrib-backend/api/responses"
	"github.com/toolcrib/toolcrib-backend/api/validators"
	"github.com/toolcrib/toolcrib-backend/internal/tools"
	"github.com/toolcrib/toolcrib-backend/pkg/enums"
	pkgerrors "github.com/toolcrib/toolcrib-backend/pkg/errors"
	"github.com/toolcrib/toolcrib-backend/pkg/logger"
)

// ToolsController serves the tool inventory CRUD and assignment routes.
type ToolsController struct {
	svc  tools.Service
	logg *logger.Logger
}

func NewToolsController(svc tools.Service, logg *logger.Logger) *ToolsController {
	return &ToolsController{svc: svc, logg: logg}
}

func (c *ToolsController) List(w http.ResponseWriter, r *http.Request) {
	page, err := validators.ParsePagination(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	params := tools.ListParams{Page: page, Search: validators.ParseQueryString(r, "search")}

	if raw := validators.ParseQueryString(r, "status"); raw != "" {
		status, err := enums.ParseToolStatus(raw)
		if err != nil {
			responses.WriteError(r.Context(), c.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
			return
		}
		params.Status = &status
	}
	if raw := validators.ParseQueryString(r, "category"); raw != "" {
		category, err := enums.ParseToolCategory(raw)
		if err != nil {
			responses.WriteError(r.Context(), c.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category filter"))
			return
		}
		params.Category = &category
	}
	if raw := validators.ParseQueryString(r, "condition"); raw != "" {
		condition, err := enums.ParseToolCondition(raw)
		if err != nil {
			responses.WriteError(r.Context(), c.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid condition filter"))
			return
		}
		params.Condition = &condition
	}
	assignedTo, err := validators.ParseQueryUUID(r, "assignedTo")
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	params.AssignedTo = assignedTo

	result, err := c.svc.List(r.Context(), params)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, result)
}

func (c *ToolsController) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	var input tools.CreateToolDTO
	if err := validators.DecodeJSONBody(r, &input); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	dto, err := c.svc.Create(r.Context(), actor, input)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, dto)
}

func (c *ToolsController) Get(w http.ResponseWriter, r *http.Request) {
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

func (c *ToolsController) Update(w http.ResponseWriter, r *http.Request) {
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

	var patch tools.UpdateToolDTO
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

func (c *ToolsController) Delete(w http.ResponseWriter, r *http.Request) {
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

type assignToolRequest struct {
	UserID             string     `json:"userId" validate:"required,uuid"`
	ExpectedReturnDate *time.Time `json:"expectedReturnDate"`
}

func (c *ToolsController) Assign(w http.ResponseWriter, r *http.Request) {
	toolID, err := validators.PathUUID(chi.URLParam(r, "id"))
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	var req assignToolRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	userID, err := validators.PathUUID(req.UserID)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	dto, err := c.svc.Assign(r.Context(), toolID, userID, req.ExpectedReturnDate)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, dto)
}
