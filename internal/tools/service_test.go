package tools

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/toolcrib/toolcrib-backend/internal/policy"
	"github.com/toolcrib/toolcrib-backend/pkg/db/models"
	"github.com/toolcrib/toolcrib-backend/pkg/enums"
	pkgerrors "github.com/toolcrib/toolcrib-backend/pkg/errors"
	"github.com/toolcrib/toolcrib-backend/pkg/events"
	"github.com/toolcrib/toolcrib-backend/pkg/logger"
)

type fakeToolRepo struct {
	tools map[uuid.UUID]*models.Tool
}

func newFakeToolRepo() *fakeToolRepo {
	return &fakeToolRepo{tools: map[uuid.UUID]*models.Tool{}}
}

func (f *fakeToolRepo) WithTx(_ *gorm.DB) Repository { return f }

func (f *fakeToolRepo) Create(_ context.Context, tool *models.Tool) error {
	if tool.ID == uuid.Nil {
		tool.ID = uuid.New()
	}
	tool.CreatedAt = time.Now().UTC()
	tool.UpdatedAt = tool.CreatedAt
	clone := *tool
	f.tools[tool.ID] = &clone
	return nil
}

func (f *fakeToolRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Tool, error) {
	tool, ok := f.tools[id]
	if !ok {
		return nil, nil
	}
	clone := *tool
	return &clone, nil
}

func (f *fakeToolRepo) List(_ context.Context, _ ListToolsParams) ([]models.Tool, int64, error) {
	out := make([]models.Tool, 0, len(f.tools))
	for _, tool := range f.tools {
		out = append(out, *tool)
	}
	return out, int64(len(out)), nil
}

func (f *fakeToolRepo) Save(_ context.Context, tool *models.Tool) error {
	clone := *tool
	f.tools[tool.ID] = &clone
	return nil
}

func (f *fakeToolRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.tools, id)
	return nil
}

func (f *fakeToolRepo) AssignIfAvailable(_ context.Context, toolID, userID uuid.UUID, now time.Time, expectedReturn *time.Time) (bool, error) {
	tool, ok := f.tools[toolID]
	if !ok || tool.Status != enums.ToolStatusAvailable {
		return false, nil
	}
	tool.Status = enums.ToolStatusInUse
	tool.AssignedToID = &userID
	tool.AssignedDate = &now
	tool.ExpectedReturnDate = expectedReturn
	return true, nil
}

func (f *fakeToolRepo) Release(_ context.Context, toolID uuid.UUID, fields map[string]any) (bool, error) {
	tool, ok := f.tools[toolID]
	if !ok || tool.Status != enums.ToolStatusInUse {
		return false, nil
	}
	tool.Status = enums.ToolStatusAvailable
	tool.AssignedToID = nil
	tool.AssignedDate = nil
	tool.ExpectedReturnDate = nil
	if condition, ok := fields["condition"].(enums.ToolCondition); ok {
		tool.Condition = condition
	}
	if notes, ok := fields["notes"].(string); ok {
		tool.Notes = &notes
	}
	return true, nil
}

func (f *fakeToolRepo) UnassignAllForUser(_ context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	for _, tool := range f.tools {
		if tool.AssignedToID != nil && *tool.AssignedToID == userID {
			tool.Status = enums.ToolStatusAvailable
			tool.AssignedToID = nil
			tool.AssignedDate = nil
			tool.ExpectedReturnDate = nil
			count++
		}
	}
	return count, nil
}

func (f *fakeToolRepo) matchByName(pattern string, match func(*models.Tool) bool) *models.Tool {
	var oldest *models.Tool
	for _, tool := range f.tools {
		if !strings.Contains(strings.ToLower(tool.Name), strings.ToLower(pattern)) {
			continue
		}
		if !match(tool) {
			continue
		}
		if oldest == nil || tool.CreatedAt.Before(oldest.CreatedAt) {
			oldest = tool
		}
	}
	if oldest == nil {
		return nil
	}
	clone := *oldest
	return &clone
}

func (f *fakeToolRepo) FirstAvailableByName(_ context.Context, pattern string) (*models.Tool, error) {
	return f.matchByName(pattern, func(t *models.Tool) bool {
		return t.Status == enums.ToolStatusAvailable
	}), nil
}

func (f *fakeToolRepo) FirstInUseByName(_ context.Context, pattern string, assignedTo *uuid.UUID) (*models.Tool, error) {
	return f.matchByName(pattern, func(t *models.Tool) bool {
		if t.Status != enums.ToolStatusInUse {
			return false
		}
		if assignedTo != nil {
			return t.AssignedToID != nil && *t.AssignedToID == *assignedTo
		}
		return true
	}), nil
}

func (f *fakeToolRepo) FirstByName(_ context.Context, pattern string) (*models.Tool, error) {
	return f.matchByName(pattern, func(*models.Tool) bool { return true }), nil
}

func (f *fakeToolRepo) ListAssignedToUser(_ context.Context, userID uuid.UUID) ([]models.Tool, error) {
	var out []models.Tool
	for _, tool := range f.tools {
		if tool.AssignedToID != nil && *tool.AssignedToID == userID {
			out = append(out, *tool)
		}
	}
	return out, nil
}

func (f *fakeToolRepo) ListOverdue(_ context.Context, now time.Time) ([]models.Tool, error) {
	var out []models.Tool
	for _, tool := range f.tools {
		if tool.Status == enums.ToolStatusInUse && tool.ExpectedReturnDate != nil && tool.ExpectedReturnDate.Before(now) {
			out = append(out, *tool)
		}
	}
	return out, nil
}

func (f *fakeToolRepo) CountByField(_ context.Context, field string) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, tool := range f.tools {
		switch field {
		case "status":
			counts[tool.Status.String()]++
		case "category":
			counts[tool.Category.String()]++
		}
	}
	return counts, nil
}

func (f *fakeToolRepo) ListAll(_ context.Context) ([]models.Tool, error) {
	out := make([]models.Tool, 0, len(f.tools))
	for _, tool := range f.tools {
		out = append(out, *tool)
	}
	return out, nil
}

type fakeUserDirectory struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeUserDirectory) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserDirectory) GetByEmployeeID(_ context.Context, employeeID string) (*models.User, error) {
	for _, user := range f.users {
		if user.EmployeeID == employeeID {
			clone := *user
			return &clone, nil
		}
	}
	return nil, nil
}

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.events = append(p.events, event)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func adminActor() policy.Actor {
	return policy.Actor{ID: uuid.New(), Role: enums.RoleAdmin, IsActive: true}
}

func managerActor() policy.Actor {
	return policy.Actor{ID: uuid.New(), Role: enums.RoleManager, IsActive: true}
}

func employeeActor(id uuid.UUID) policy.Actor {
	return policy.Actor{ID: id, Role: enums.RoleEmployee, IsActive: true}
}

func seedUser(dir *fakeUserDirectory, active bool) *models.User {
	user := &models.User{
		ID:         uuid.New(),
		Email:      "worker@toolcrib.local",
		FirstName:  "Sam",
		LastName:   "Okafor",
		Role:       enums.RoleEmployee,
		EmployeeID: "U104",
		IsActive:   active,
	}
	dir.users[user.ID] = user
	return user
}

func newToolsService(t *testing.T, repo Repository, users UserDirectory, pub events.Publisher) Service {
	t.Helper()
	svc, err := NewService(repo, users, pub, testLogger(), nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func seedAvailableTool(t *testing.T, repo *fakeToolRepo, name string) *models.Tool {
	t.Helper()
	tool := &models.Tool{
		Name:      name,
		Category:  enums.ToolCategoryPowerTools,
		Status:    enums.ToolStatusAvailable,
		Condition: enums.ToolConditionGood,
	}
	if err := repo.Create(context.Background(), tool); err != nil {
		t.Fatalf("seed tool: %v", err)
	}
	return tool
}

func TestCreateToolRequiresAdmin(t *testing.T) {
	svc := newToolsService(t, newFakeToolRepo(), &fakeUserDirectory{users: map[uuid.UUID]*models.User{}}, nil)

	_, err := svc.Create(context.Background(), managerActor(), CreateToolDTO{
		Name:     "Impact Driver",
		Category: enums.ToolCategoryPowerTools,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeForbidden, err)
	}
}

func TestCreateToolDefaultsAndBroadcasts(t *testing.T) {
	repo := newFakeToolRepo()
	pub := &recordingPublisher{}
	svc := newToolsService(t, repo, &fakeUserDirectory{users: map[uuid.UUID]*models.User{}}, pub)

	dto, err := svc.Create(context.Background(), adminActor(), CreateToolDTO{
		Name:     "Impact Driver",
		Category: enums.ToolCategoryPowerTools,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if dto.Status != enums.ToolStatusAvailable {
		t.Errorf("status = %s, want %s", dto.Status, enums.ToolStatusAvailable)
	}
	if dto.Condition != enums.ToolConditionGood {
		t.Errorf("condition = %s, want %s", dto.Condition, enums.ToolConditionGood)
	}
	if len(pub.events) != 1 || pub.events[0].Name != events.NameToolCreated {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestAssignMarksToolInUse(t *testing.T) {
	repo := newFakeToolRepo()
	dir := &fakeUserDirectory{users: map[uuid.UUID]*models.User{}}
	user := seedUser(dir, true)
	tool := seedAvailableTool(t, repo, "Angle Grinder")
	pub := &recordingPublisher{}
	svc := newToolsService(t, repo, dir, pub)

	returnBy := time.Now().UTC().AddDate(0, 0, 7)
	dto, err := svc.Assign(context.Background(), tool.ID, user.ID, &returnBy)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if dto.Status != enums.ToolStatusInUse {
		t.Errorf("status = %s, want %s", dto.Status, enums.ToolStatusInUse)
	}
	if dto.AssignedTo == nil || *dto.AssignedTo != user.ID {
		t.Errorf("assignedTo = %v, want %s", dto.AssignedTo, user.ID)
	}
	if len(pub.events) != 1 || pub.events[0].Name != events.NameToolAssigned {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestAssignBusyToolFails(t *testing.T) {
	repo := newFakeToolRepo()
	dir := &fakeUserDirectory{users: map[uuid.UUID]*models.User{}}
	first := seedUser(dir, true)
	second := seedUser(dir, true)
	tool := seedAvailableTool(t, repo, "Angle Grinder")
	svc := newToolsService(t, repo, dir, nil)

	if _, err := svc.Assign(context.Background(), tool.ID, first.ID, nil); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	_, err := svc.Assign(context.Background(), tool.ID, second.ID, nil)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeToolUnavailable {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeToolUnavailable, err)
	}
}

func TestAssignToInactiveUserFails(t *testing.T) {
	repo := newFakeToolRepo()
	dir := &fakeUserDirectory{users: map[uuid.UUID]*models.User{}}
	user := seedUser(dir, false)
	tool := seedAvailableTool(t, repo, "Angle Grinder")
	svc := newToolsService(t, repo, dir, nil)

	_, err := svc.Assign(context.Background(), tool.ID, user.ID, nil)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeUserInactive {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeUserInactive, err)
	}
}

func TestQuickAssignByName(t *testing.T) {
	repo := newFakeToolRepo()
	dir := &fakeUserDirectory{users: map[uuid.UUID]*models.User{}}
	user := seedUser(dir, true)
	seedAvailableTool(t, repo, "Torque Wrench 40Nm")
	svc := newToolsService(t, repo, dir, nil)

	dto, err := svc.QuickAssignByName(context.Background(), managerActor(), user.EmployeeID, "torque wrench", nil)
	if err != nil {
		t.Fatalf("QuickAssignByName: %v", err)
	}
	if dto.AssignedTo == nil || *dto.AssignedTo != user.ID {
		t.Errorf("assignedTo = %v, want %s", dto.AssignedTo, user.ID)
	}
}

func TestQuickAssignUnknownEmployee(t *testing.T) {
	repo := newFakeToolRepo()
	seedAvailableTool(t, repo, "Torque Wrench")
	svc := newToolsService(t, repo, &fakeUserDirectory{users: map[uuid.UUID]*models.User{}}, nil)

	_, err := svc.QuickAssignByName(context.Background(), managerActor(), "U999", "torque", nil)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeNotFound, err)
	}
}

func TestReturnScopedToEmployeeOwnTool(t *testing.T) {
	repo := newFakeToolRepo()
	dir := &fakeUserDirectory{users: map[uuid.UUID]*models.User{}}
	owner := seedUser(dir, true)
	tool := seedAvailableTool(t, repo, "Caliper")
	svc := newToolsService(t, repo, dir, nil)

	if _, err := svc.Assign(context.Background(), tool.ID, owner.ID, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}

	// Someone else's in-use tool looks like it does not exist.
	_, err := svc.Return(context.Background(), employeeActor(uuid.New()), "caliper", nil, "")
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeNotFound, err)
	}

	dto, err := svc.Return(context.Background(), employeeActor(owner.ID), "caliper", nil, "")
	if err != nil {
		t.Fatalf("Return: %v", err)
	}
	if dto.Status != enums.ToolStatusAvailable {
		t.Errorf("status = %s, want %s", dto.Status, enums.ToolStatusAvailable)
	}
	if dto.AssignedTo != nil {
		t.Errorf("assignedTo = %v, want nil", dto.AssignedTo)
	}
}

func TestReturnRecordsConditionAndNotes(t *testing.T) {
	repo := newFakeToolRepo()
	dir := &fakeUserDirectory{users: map[uuid.UUID]*models.User{}}
	user := seedUser(dir, true)
	tool := seedAvailableTool(t, repo, "Drill")
	svc := newToolsService(t, repo, dir, nil)

	if _, err := svc.Assign(context.Background(), tool.ID, user.ID, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}

	condition := enums.ToolConditionFair
	dto, err := svc.Return(context.Background(), managerActor(), "drill", &condition, "chuck sticks")
	if err != nil {
		t.Fatalf("Return: %v", err)
	}
	if dto.Condition != enums.ToolConditionFair {
		t.Errorf("condition = %s, want %s", dto.Condition, enums.ToolConditionFair)
	}
	if dto.Notes == nil || !strings.Contains(*dto.Notes, "chuck sticks") {
		t.Errorf("notes = %v", dto.Notes)
	}
}

func TestUnassignAllForUser(t *testing.T) {
	repo := newFakeToolRepo()
	dir := &fakeUserDirectory{users: map[uuid.UUID]*models.User{}}
	user := seedUser(dir, true)
	svc := newToolsService(t, repo, dir, nil)

	for _, name := range []string{"Hammer", "Level", "Square"} {
		tool := seedAvailableTool(t, repo, name)
		if _, err := svc.Assign(context.Background(), tool.ID, user.ID, nil); err != nil {
			t.Fatalf("assign %s: %v", name, err)
		}
	}

	count, err := svc.UnassignAllForUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("UnassignAllForUser: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestStatsTotalsByStatus(t *testing.T) {
	repo := newFakeToolRepo()
	dir := &fakeUserDirectory{users: map[uuid.UUID]*models.User{}}
	user := seedUser(dir, true)
	svc := newToolsService(t, repo, dir, nil)

	seedAvailableTool(t, repo, "Hammer")
	busy := seedAvailableTool(t, repo, "Drill")
	if _, err := svc.Assign(context.Background(), busy.ID, user.ID, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 2 {
		t.Errorf("total = %d, want 2", stats.Total)
	}
	if stats.ByStatus[enums.ToolStatusAvailable.String()] != 1 || stats.ByStatus[enums.ToolStatusInUse.String()] != 1 {
		t.Errorf("byStatus = %v", stats.ByStatus)
	}
}
