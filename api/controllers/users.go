package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/toolcrib/toolcrib-backend/api/responses"
	"github.com/toolcrib/toolcrib-backend/api/validators"
	"github.com/toolcrib/toolcrib-backend/internal/tools"
	"github.com/toolcrib/toolcrib-backend/internal/users"
	"github.com/toolcrib/toolcrib-backend/pkg/enums"
	pkgerrors "github.com/toolcrib/toolcrib-backend/pkg/errors"
	"github.com/toolcrib/toolcrib-backend/pkg/logger"
)

// UsersController serves user administration routes.
type UsersController struct {
	svc   users.Service
	tools tools.Service
	logg  *logger.Logger
}

func NewUsersController(svc users.Service, toolSvc tools.Service, logg *logger.Logger) *UsersController {
	return &UsersController{svc: svc, tools: toolSvc, logg: logg}
}

func (c *UsersController) List(w http.ResponseWriter, r *http.Request) {
	page, err := validators.ParsePagination(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	params := users.ListParams{Page: page, Search: validators.ParseQueryString(r, "search")}
	if raw := validators.ParseQueryString(r, "role"); raw != "" {
		role, err := enums.ParseRole(raw)
		if err != nil {
			responses.WriteError(r.Context(), c.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role filter"))
			return
		}
		params.Role = &role
	}
	if raw := validators.ParseQueryString(r, "department"); raw != "" {
		params.Department = &raw
	}
	isActive, err := validators.ParseQueryBool(r, "isActive")
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	params.IsActive = isActive

	result, err := c.svc.List(r.Context(), params)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, result)
}

func (c *UsersController) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	var input users.CreateUserDTO
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

func (c *UsersController) Get(w http.ResponseWriter, r *http.Request) {
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

	dto, err := c.svc.Get(r.Context(), actor, id)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, dto)
}

// Profile returns the user together with their assigned tools.
func (c *UsersController) Profile(w http.ResponseWriter, r *http.Request) {
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

	profile, err := c.svc.Profile(r.Context(), actor, id)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, profile)
}

func (c *UsersController) Update(w http.ResponseWriter, r *http.Request) {
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

	var patch users.UpdateUserDTO
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

// Deactivate is the soft delete behind DELETE /users/{id}.
func (c *UsersController) Deactivate(w http.ResponseWriter, r *http.Request) {
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

	dto, err := c.svc.Deactivate(r.Context(), actor, id)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, dto)
}

func (c *UsersController) Activate(w http.ResponseWriter, r *http.Request) {
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

	dto, err := c.svc.Activate(r.Context(), actor, id)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, dto)
}

func (c *UsersController) PermanentDelete(w http.ResponseWriter, r *http.Request) {
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

	if err := c.svc.PermanentDelete(r.Context(), actor, id); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, map[string]string{"status": "deleted"})
}

type userAssignToolRequest struct {
	UserID             string     `json:"userId" validate:"required,uuid"`
	ToolID             string     `json:"toolId" validate:"required,uuid"`
	ExpectedReturnDate *time.Time `json:"expectedReturnDate"`
}

// AssignTool hands a specific tool to a specific user by id.
func (c *UsersController) AssignTool(w http.ResponseWriter, r *http.Request) {
	var req userAssignToolRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	userID, err := validators.PathUUID(req.UserID)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	toolID, err := validators.PathUUID(req.ToolID)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	dto, err := c.tools.Assign(r.Context(), toolID, userID, req.ExpectedReturnDate)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, dto)
}

func (c *UsersController) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.svc.Stats(r.Context())
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, stats)
}
