package policy

import (
	"github.com/google/uuid"

	"github.com/toolcrib/toolcrib-backend/pkg/enums"
	pkgerrors "github.com/toolcrib/toolcrib-backend/pkg/errors"
)

// Actor is the authenticated identity every operation runs as.
type Actor struct {
	ID         uuid.UUID
	Role       enums.Role
	IsActive   bool
	Department *string
}

// Action names every permission-gated operation in the system.
type Action string

const (
	ActionCreateTool          Action = "tool:create"
	ActionUpdateTool          Action = "tool:update"
	ActionDeleteTool          Action = "tool:delete"
	ActionCreateUser          Action = "user:create"
	ActionDeleteUser          Action = "user:delete"
	ActionActivateUser        Action = "user:activate"
	ActionDeactivateUser      Action = "user:deactivate"
	ActionChangeUserRole      Action = "user:change-role"
	ActionReviewRequest       Action = "request:review"
	ActionCancelRequest       Action = "request:cancel"
	ActionViewRequest         Action = "request:view"
	ActionViewUser            Action = "user:view"
	ActionQuickAssign         Action = "quick:assign"
	ActionQuickReturn         Action = "quick:return"
	ActionScheduleMaintenance Action = "maintenance:schedule"
	ActionUpdateMaintenance   Action = "maintenance:update"
	ActionDeleteMaintenance   Action = "maintenance:delete"
	ActionExport              Action = "reports:export"
	ActionBackup              Action = "reports:backup"
	ActionImport              Action = "reports:import"
	ActionBroadcast           Action = "notifications:broadcast"
)

// rule describes who may perform an action. Roles always allow; when
// OwnerAllowed is set the owner of the target resource also passes.
type rule struct {
	Roles        []enums.Role
	OwnerAllowed bool
}

var ruleTable = map[Action]rule{
	ActionCreateTool:          {Roles: []enums.Role{enums.RoleAdmin}},
	ActionUpdateTool:          {Roles: []enums.Role{enums.RoleManager, enums.RoleAdmin}},
	ActionDeleteTool:          {Roles: []enums.Role{enums.RoleManager, enums.RoleAdmin}},
	ActionCreateUser:          {Roles: []enums.Role{enums.RoleAdmin}},
	ActionDeleteUser:          {Roles: []enums.Role{enums.RoleAdmin}},
	ActionActivateUser:        {Roles: []enums.Role{enums.RoleAdmin}},
	ActionDeactivateUser:      {Roles: []enums.Role{enums.RoleAdmin}},
	ActionChangeUserRole:      {Roles: []enums.Role{enums.RoleAdmin}},
	ActionReviewRequest:       {Roles: []enums.Role{enums.RoleManager, enums.RoleAdmin}},
	ActionCancelRequest:       {Roles: []enums.Role{enums.RoleAdmin}, OwnerAllowed: true},
	ActionViewRequest:         {Roles: []enums.Role{enums.RoleManager, enums.RoleAdmin}, OwnerAllowed: true},
	ActionViewUser:            {Roles: []enums.Role{enums.RoleManager, enums.RoleAdmin}, OwnerAllowed: true},
	ActionQuickAssign:         {Roles: []enums.Role{enums.RoleManager, enums.RoleAdmin}},
	ActionQuickReturn:         {Roles: []enums.Role{enums.RoleEmployee, enums.RoleManager, enums.RoleAdmin}},
	ActionScheduleMaintenance: {Roles: []enums.Role{enums.RoleManager, enums.RoleAdmin}},
	ActionUpdateMaintenance:   {Roles: []enums.Role{enums.RoleManager, enums.RoleAdmin}},
	ActionDeleteMaintenance:   {Roles: []enums.Role{enums.RoleManager, enums.RoleAdmin}},
	ActionExport:              {Roles: []enums.Role{enums.RoleManager, enums.RoleAdmin}},
	ActionBackup:              {Roles: []enums.Role{enums.RoleAdmin}},
	ActionImport:              {Roles: []enums.Role{enums.RoleAdmin}},
	ActionBroadcast:           {Roles: []enums.Role{enums.RoleManager, enums.RoleAdmin}},
}

// Authorize checks the rule table for the action. ownerID, when non-nil,
// identifies who owns the target resource; owners pass rules that allow
// them. Denial is a typed Forbidden error, never a silent no-op.
func Authorize(actor Actor, action Action, ownerID *uuid.UUID) error {
	if !actor.IsActive {
		return pkgerrors.New(pkgerrors.CodeForbidden, "inactive account")
	}

	r, ok := ruleTable[action]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "unknown action").
			WithDetails(map[string]any{"action": string(action)})
	}

	for _, role := range r.Roles {
		if actor.Role == role {
			return nil
		}
	}
	if r.OwnerAllowed && ownerID != nil && actor.ID == *ownerID {
		return nil
	}

	return pkgerrors.New(pkgerrors.CodeForbidden, "action not permitted").
		WithDetails(map[string]any{"action": string(action), "role": actor.Role.String()})
}

// CanReturnAnyTool reports whether the actor may return tools assigned to
// other users. Employees are scoped to their own assignment.
func CanReturnAnyTool(actor Actor) bool {
	return actor.Role.IsReviewer()
}
