package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/toolcrib/toolcrib-backend/api/responses"
	"github.com/toolcrib/toolcrib-backend/api/validators"
	"github.com/toolcrib/toolcrib-backend/internal/additions"
	"github.com/toolcrib/toolcrib-backend/internal/maintenance"
	"github.com/toolcrib/toolcrib-backend/internal/requests"
	"github.com/toolcrib/toolcrib-backend/internal/tools"
	"github.com/toolcrib/toolcrib-backend/internal/users"
	"github.com/toolcrib/toolcrib-backend/pkg/enums"
	pkgerrors "github.com/toolcrib/toolcrib-backend/pkg/errors"
	"github.com/toolcrib/toolcrib-backend/pkg/logger"
	"github.com/toolcrib/toolcrib-backend/pkg/pagination"
)

// QuickActionsController serves the crib-window shortcuts: assign and
// return by name, schedule maintenance by name, combined dashboard
// stats and cross-entity search.
type QuickActionsController struct {
	tools       tools.Service
	users       users.Service
	requests    requests.Service
	additions   additions.Service
	maintenance maintenance.Service
	logg        *logger.Logger
}

func NewQuickActionsController(toolSvc tools.Service, userSvc users.Service, requestSvc requests.Service, additionSvc additions.Service, maintenanceSvc maintenance.Service, logg *logger.Logger) *QuickActionsController {
	return &QuickActionsController{
		tools:       toolSvc,
		users:       userSvc,
		requests:    requestSvc,
		additions:   additionSvc,
		maintenance: maintenanceSvc,
		logg:        logg,
	}
}

type quickAssignRequest struct {
	EmployeeID         string     `json:"employeeId" validate:"required"`
	ToolName           string     `json:"toolName" validate:"required"`
	ExpectedReturnDate *time.Time `json:"expectedReturnDate"`
}

func (c *QuickActionsController) AssignTool(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	var req quickAssignRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	dto, err := c.tools.QuickAssignByName(r.Context(), actor, req.EmployeeID, req.ToolName, req.ExpectedReturnDate)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, dto)
}

type quickReturnRequest struct {
	ToolName  string `json:"toolName" validate:"required"`
	Condition string `json:"condition"`
	Notes     string `json:"notes" validate:"max=2000"`
}

func (c *QuickActionsController) ReturnTool(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	var req quickReturnRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	var condition *enums.ToolCondition
	if req.Condition != "" {
		parsed, err := enums.ParseToolCondition(req.Condition)
		if err != nil {
			responses.WriteError(r.Context(), c.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid condition"))
			return
		}
		condition = &parsed
	}

	dto, err := c.tools.Return(r.Context(), actor, req.ToolName, condition, req.Notes)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, dto)
}

type quickScheduleRequest struct {
	ToolName          string     `json:"toolName" validate:"required"`
	AssignedTo        *uuid.UUID `json:"assignedTo"`
	MaintenanceType   string     `json:"maintenanceType" validate:"required"`
	Priority          string     `json:"priority"`
	ScheduledDate     time.Time  `json:"scheduledDate" validate:"required"`
	EstimatedDuration float64    `json:"estimatedDuration" validate:"required,gte=0.5"`
	Description       string     `json:"description" validate:"required,min=3,max=2000"`
}

func (c *QuickActionsController) ScheduleMaintenance(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	var req quickScheduleRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	dto, err := c.maintenance.QuickScheduleByName(r.Context(), actor, req.ToolName, maintenance.ScheduleTaskDTO{
		AssignedTo:        req.AssignedTo,
		MaintenanceType:   req.MaintenanceType,
		Priority:          req.Priority,
		ScheduledDate:     req.ScheduledDate,
		EstimatedDuration: req.EstimatedDuration,
		Description:       req.Description,
	})
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, dto)
}

type dashboardStats struct {
	Tools        *tools.StatsDTO       `json:"tools"`
	Users        *users.StatsDTO       `json:"users"`
	Requests     *requests.StatsDTO    `json:"requests"`
	Additions    *additions.StatsDTO   `json:"additions"`
	Maintenance  *maintenance.StatsDTO `json:"maintenance"`
	OverdueTools []tools.ToolDTO       `json:"overdueTools"`
}

func (c *QuickActionsController) DashboardStats(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	stats := dashboardStats{}
	if stats.Tools, err = c.tools.Stats(r.Context()); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	if stats.Users, err = c.users.Stats(r.Context()); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	if stats.Requests, err = c.requests.Stats(r.Context(), actor); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	if stats.Additions, err = c.additions.Stats(r.Context(), actor); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	if stats.Maintenance, err = c.maintenance.Stats(r.Context()); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	if stats.OverdueTools, err = c.tools.ListOverdue(r.Context()); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	responses.WriteSuccess(w, stats)
}

type searchResult struct {
	Tools []tools.ToolDTO `json:"tools"`
	Users []users.UserDTO `json:"users"`
}

// Search does a combined name lookup over tools and users for the crib
// window autocomplete.
func (c *QuickActionsController) Search(w http.ResponseWriter, r *http.Request) {
	query := validators.ParseQueryString(r, "q")
	if query == "" {
		responses.WriteError(r.Context(), c.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "query parameter q required"))
		return
	}

	page := pagination.Params{Page: 1, Limit: 10}

	toolResult, err := c.tools.List(r.Context(), tools.ListParams{Page: page, Search: query})
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	userResult, err := c.users.List(r.Context(), users.ListParams{Page: page, Search: query})
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	responses.WriteSuccess(w, searchResult{
		Tools: toolResult.Items,
		Users: userResult.Items,
	})
}
