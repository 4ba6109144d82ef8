package users

import (
	"context"
	"io"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/toolcrib/toolcrib-backend/internal/policy"
	"github.com/toolcrib/toolcrib-backend/pkg/config"
	"github.com/toolcrib/toolcrib-backend/pkg/db/models"
	"github.com/toolcrib/toolcrib-backend/pkg/enums"
	pkgerrors "github.com/toolcrib/toolcrib-backend/pkg/errors"
	"github.com/toolcrib/toolcrib-backend/pkg/events"
	"github.com/toolcrib/toolcrib-backend/pkg/logger"
	"github.com/toolcrib/toolcrib-backend/pkg/security"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]*models.User{}}
}

func (f *fakeUserRepo) WithTx(_ *gorm.DB) Repository { return f }

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) GetByEmployeeID(_ context.Context, employeeID string) (*models.User, error) {
	for _, user := range f.users {
		if user.EmployeeID == employeeID {
			clone := *user
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) List(_ context.Context, params ListUsersParams) ([]models.User, int64, error) {
	var out []models.User
	for _, user := range f.users {
		if params.IsActive != nil && user.IsActive != *params.IsActive {
			continue
		}
		if params.Role != nil && user.Role != *params.Role {
			continue
		}
		out = append(out, *user)
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserRepo) Save(_ context.Context, user *models.User) error {
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	if user, ok := f.users[id]; ok {
		user.LastLoginAt = &at
	}
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) MaxEmployeeNumber(_ context.Context) (int, error) {
	max := 0
	for _, user := range f.users {
		n, err := strconv.Atoi(strings.TrimPrefix(user.EmployeeID, "U"))
		if err == nil && n > max {
			max = n
		}
	}
	return max, nil
}

func (f *fakeUserRepo) CountByRole(_ context.Context) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, user := range f.users {
		counts[user.Role.String()]++
	}
	return counts, nil
}

func (f *fakeUserRepo) CountActive(_ context.Context) (int64, int64, error) {
	var active, inactive int64
	for _, user := range f.users {
		if user.IsActive {
			active++
		} else {
			inactive++
		}
	}
	return active, inactive, nil
}

func (f *fakeUserRepo) ListAll(_ context.Context) ([]models.User, error) {
	out := make([]models.User, 0, len(f.users))
	for _, user := range f.users {
		out = append(out, *user)
	}
	return out, nil
}

type fakeToolReleaser struct {
	assigned map[uuid.UUID][]models.Tool
	released []uuid.UUID
}

func (f *fakeToolReleaser) UnassignAllForUser(_ context.Context, userID uuid.UUID) (int64, error) {
	count := int64(len(f.assigned[userID]))
	delete(f.assigned, userID)
	f.released = append(f.released, userID)
	return count, nil
}

func (f *fakeToolReleaser) ListAssignedToUser(_ context.Context, userID uuid.UUID) ([]models.Tool, error) {
	return f.assigned[userID], nil
}

type fakeSessionRevoker struct {
	revoked []string
}

func (f *fakeSessionRevoker) RevokeUser(_ context.Context, userID string) error {
	f.revoked = append(f.revoked, userID)
	return nil
}

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.events = append(p.events, event)
	return nil
}

func adminActor() policy.Actor {
	return policy.Actor{ID: uuid.New(), Role: enums.RoleAdmin, IsActive: true}
}

func employeeActor(id uuid.UUID) policy.Actor {
	return policy.Actor{ID: id, Role: enums.RoleEmployee, IsActive: true}
}

type testDeps struct {
	repo     *fakeUserRepo
	tools    *fakeToolReleaser
	sessions *fakeSessionRevoker
	pub      *recordingPublisher
}

func newTestService(t *testing.T) (Service, *testDeps) {
	t.Helper()
	deps := &testDeps{
		repo:     newFakeUserRepo(),
		tools:    &fakeToolReleaser{assigned: map[uuid.UUID][]models.Tool{}},
		sessions: &fakeSessionRevoker{},
		pub:      &recordingPublisher{},
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(deps.repo, deps.tools, deps.sessions, deps.pub, logg, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, deps
}

func seedActive(t *testing.T, repo *fakeUserRepo, employeeID string) *models.User {
	t.Helper()
	user := &models.User{
		Email:      employeeID + "@toolcrib.local",
		FirstName:  "Robin",
		LastName:   "Vega",
		Role:       enums.RoleEmployee,
		EmployeeID: employeeID,
		IsActive:   true,
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestCreateUserHashesPasswordAndAssignsEmployeeID(t *testing.T) {
	svc, deps := newTestService(t)
	seedActive(t, deps.repo, "U041")

	dto, err := svc.Create(context.Background(), adminActor(), CreateUserDTO{
		Email:     "New.Hire@ToolCrib.Local",
		FirstName: "Noor",
		LastName:  "Haddad",
		Password:  "first-day-1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if dto.Email != "new.hire@toolcrib.local" {
		t.Errorf("email = %s", dto.Email)
	}
	if dto.EmployeeID != "U042" {
		t.Errorf("employeeId = %s, want U042", dto.EmployeeID)
	}
	if dto.Role != enums.RoleEmployee {
		t.Errorf("role = %s, want %s", dto.Role, enums.RoleEmployee)
	}

	stored, _ := deps.repo.GetByEmail(context.Background(), "new.hire@toolcrib.local")
	if stored == nil {
		t.Fatal("user not persisted")
	}
	if stored.PasswordHash == "first-day-1" || stored.PasswordHash == "" {
		t.Errorf("password stored unhashed")
	}
	if ok, err := security.VerifyPassword("first-day-1", stored.PasswordHash); err != nil || !ok {
		t.Errorf("stored hash does not verify: ok=%v err=%v", ok, err)
	}
}

func TestCreateUserRequiresAdmin(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), employeeActor(uuid.New()), CreateUserDTO{
		Email: "someone@toolcrib.local",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeForbidden, err)
	}
}

func TestGetOwnProfileAllowedForEmployee(t *testing.T) {
	svc, deps := newTestService(t)
	user := seedActive(t, deps.repo, "U010")

	dto, err := svc.Get(context.Background(), employeeActor(user.ID), user.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if dto.ID != user.ID {
		t.Errorf("id = %s, want %s", dto.ID, user.ID)
	}

	// A different employee's record stays hidden.
	other := seedActive(t, deps.repo, "U011")
	_, err = svc.Get(context.Background(), employeeActor(user.ID), other.ID)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeForbidden, err)
	}
}

func TestDeactivateReleasesToolsAndRevokesSessions(t *testing.T) {
	svc, deps := newTestService(t)
	user := seedActive(t, deps.repo, "U020")
	deps.tools.assigned[user.ID] = []models.Tool{{ID: uuid.New(), Name: "Drill"}}

	dto, err := svc.Deactivate(context.Background(), adminActor(), user.ID)
	if err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if dto.IsActive {
		t.Errorf("user still active")
	}
	if len(deps.tools.released) != 1 || deps.tools.released[0] != user.ID {
		t.Errorf("tools not released: %v", deps.tools.released)
	}
	if len(deps.sessions.revoked) != 1 || deps.sessions.revoked[0] != user.ID.String() {
		t.Errorf("sessions not revoked: %v", deps.sessions.revoked)
	}
	if len(deps.pub.events) != 1 || deps.pub.events[0].Name != events.NameUserDeactivated {
		t.Errorf("events = %+v", deps.pub.events)
	}
}

func TestDeactivateTwiceConflicts(t *testing.T) {
	svc, deps := newTestService(t)
	user := seedActive(t, deps.repo, "U021")

	if _, err := svc.Deactivate(context.Background(), adminActor(), user.ID); err != nil {
		t.Fatalf("first deactivate: %v", err)
	}
	_, err := svc.Deactivate(context.Background(), adminActor(), user.ID)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeStateConflict, err)
	}
}

func TestActivateRestoresAccess(t *testing.T) {
	svc, deps := newTestService(t)
	user := seedActive(t, deps.repo, "U022")
	if _, err := svc.Deactivate(context.Background(), adminActor(), user.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	dto, err := svc.Activate(context.Background(), adminActor(), user.ID)
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if !dto.IsActive {
		t.Errorf("user still inactive")
	}
}

func TestPermanentDeleteRefusesSelf(t *testing.T) {
	svc, deps := newTestService(t)
	admin := adminActor()
	user := seedActive(t, deps.repo, "U023")
	user.ID = admin.ID
	deps.repo.users[admin.ID] = user

	err := svc.PermanentDelete(context.Background(), admin, admin.ID)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeValidation, err)
	}
}

func TestPermanentDeleteReleasesToolsFirst(t *testing.T) {
	svc, deps := newTestService(t)
	user := seedActive(t, deps.repo, "U024")
	deps.tools.assigned[user.ID] = []models.Tool{{ID: uuid.New(), Name: "Level"}}

	if err := svc.PermanentDelete(context.Background(), adminActor(), user.ID); err != nil {
		t.Fatalf("PermanentDelete: %v", err)
	}
	if _, ok := deps.repo.users[user.ID]; ok {
		t.Errorf("user still present")
	}
	if len(deps.tools.released) != 1 {
		t.Errorf("tools not released")
	}
}

func TestUpdateRoleAdminOnly(t *testing.T) {
	svc, deps := newTestService(t)
	user := seedActive(t, deps.repo, "U025")

	role := enums.RoleManager
	_, err := svc.Update(context.Background(), employeeActor(user.ID), user.ID, UpdateUserDTO{Role: &role})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeForbidden, err)
	}

	dto, err := svc.Update(context.Background(), adminActor(), user.ID, UpdateUserDTO{Role: &role})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if dto.Role != enums.RoleManager {
		t.Errorf("role = %s, want %s", dto.Role, enums.RoleManager)
	}
}

func TestStats(t *testing.T) {
	svc, deps := newTestService(t)
	seedActive(t, deps.repo, "U030")
	gone := seedActive(t, deps.repo, "U031")
	if _, err := svc.Deactivate(context.Background(), adminActor(), gone.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 2 || stats.Active != 1 || stats.Inactive != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
