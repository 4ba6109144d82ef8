package policy

import (
	"testing"

	"github.com/google/uuid"

	"github.com/toolcrib/toolcrib-backend/pkg/enums"
	pkgerrors "github.com/toolcrib/toolcrib-backend/pkg/errors"
)

func actorWithRole(role enums.Role) Actor {
	return Actor{ID: uuid.New(), Role: role, IsActive: true}
}

func TestAdminOnlyActions(t *testing.T) {
	adminOnly := []Action{
		ActionCreateTool,
		ActionCreateUser,
		ActionDeleteUser,
		ActionActivateUser,
		ActionDeactivateUser,
		ActionChangeUserRole,
		ActionBackup,
		ActionImport,
	}

	for _, action := range adminOnly {
		if err := Authorize(actorWithRole(enums.RoleAdmin), action, nil); err != nil {
			t.Errorf("admin denied %s: %v", action, err)
		}
		if err := Authorize(actorWithRole(enums.RoleManager), action, nil); err == nil {
			t.Errorf("manager allowed %s", action)
		}
		if err := Authorize(actorWithRole(enums.RoleEmployee), action, nil); err == nil {
			t.Errorf("employee allowed %s", action)
		}
	}
}

func TestReviewerActions(t *testing.T) {
	reviewer := []Action{
		ActionReviewRequest,
		ActionQuickAssign,
		ActionScheduleMaintenance,
		ActionDeleteMaintenance,
		ActionDeleteTool,
		ActionExport,
	}

	for _, action := range reviewer {
		if err := Authorize(actorWithRole(enums.RoleManager), action, nil); err != nil {
			t.Errorf("manager denied %s: %v", action, err)
		}
		if err := Authorize(actorWithRole(enums.RoleAdmin), action, nil); err != nil {
			t.Errorf("admin denied %s: %v", action, err)
		}
		if err := Authorize(actorWithRole(enums.RoleEmployee), action, nil); err == nil {
			t.Errorf("employee allowed %s", action)
		}
	}
}

func TestCancelOwnRequest(t *testing.T) {
	owner := actorWithRole(enums.RoleEmployee)

	if err := Authorize(owner, ActionCancelRequest, &owner.ID); err != nil {
		t.Fatalf("owner denied cancel: %v", err)
	}

	other := uuid.New()
	err := Authorize(owner, ActionCancelRequest, &other)
	if err == nil {
		t.Fatal("non-owner employee allowed cancel")
	}
	if te := pkgerrors.As(err); te == nil || te.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected Forbidden, got %v", err)
	}

	if err := Authorize(actorWithRole(enums.RoleAdmin), ActionCancelRequest, &other); err != nil {
		t.Fatalf("admin denied cancel of another user's request: %v", err)
	}

	// Managers are not in the cancel rule: they can review, not cancel
	// someone else's request.
	if err := Authorize(actorWithRole(enums.RoleManager), ActionCancelRequest, &other); err == nil {
		t.Fatal("manager allowed cancel of another user's request")
	}
}

func TestViewScoping(t *testing.T) {
	owner := actorWithRole(enums.RoleEmployee)

	if err := Authorize(owner, ActionViewRequest, &owner.ID); err != nil {
		t.Fatalf("owner denied view: %v", err)
	}

	other := uuid.New()
	if err := Authorize(owner, ActionViewRequest, &other); err == nil {
		t.Fatal("employee allowed view of another user's request")
	}
	if err := Authorize(actorWithRole(enums.RoleManager), ActionViewRequest, &other); err != nil {
		t.Fatalf("manager denied view: %v", err)
	}
}

func TestInactiveActorDeniedEverything(t *testing.T) {
	inactive := Actor{ID: uuid.New(), Role: enums.RoleAdmin, IsActive: false}
	if err := Authorize(inactive, ActionViewRequest, &inactive.ID); err == nil {
		t.Fatal("inactive actor allowed")
	}
}

func TestQuickReturnOpenToEmployees(t *testing.T) {
	if err := Authorize(actorWithRole(enums.RoleEmployee), ActionQuickReturn, nil); err != nil {
		t.Fatalf("employee denied quick return: %v", err)
	}
	if CanReturnAnyTool(actorWithRole(enums.RoleEmployee)) {
		t.Fatal("employee should be scoped to own assignment")
	}
	if !CanReturnAnyTool(actorWithRole(enums.RoleManager)) {
		t.Fatal("manager should return any tool")
	}
}
