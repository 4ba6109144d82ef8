package maintenance

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/toolcrib/toolcrib-backend/internal/policy"
	"github.com/toolcrib/toolcrib-backend/internal/tools"
	"github.com/toolcrib/toolcrib-backend/pkg/db/models"
	"github.com/toolcrib/toolcrib-backend/pkg/enums"
	pkgerrors "github.com/toolcrib/toolcrib-backend/pkg/errors"
	"github.com/toolcrib/toolcrib-backend/pkg/events"
	"github.com/toolcrib/toolcrib-backend/pkg/logger"
)

type fakeTaskRepo struct {
	byID    map[uuid.UUID]*models.MaintenanceTask
	deleted []uuid.UUID
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{byID: map[uuid.UUID]*models.MaintenanceTask{}}
}

func (f *fakeTaskRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeTaskRepo) Create(_ context.Context, task *models.MaintenanceTask) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	task.CreatedAt = time.Now()
	f.byID[task.ID] = task
	return nil
}

func (f *fakeTaskRepo) GetByID(_ context.Context, id uuid.UUID) (*models.MaintenanceTask, error) {
	task, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	clone := *task
	return &clone, nil
}

func (f *fakeTaskRepo) List(_ context.Context, params ListTasksParams) ([]models.MaintenanceTask, int64, error) {
	var rows []models.MaintenanceTask
	for _, task := range f.byID {
		if params.Status != nil && task.Status != *params.Status {
			continue
		}
		rows = append(rows, *task)
	}
	return rows, int64(len(rows)), nil
}

func (f *fakeTaskRepo) Save(_ context.Context, task *models.MaintenanceTask) error {
	f.byID[task.ID] = task
	return nil
}

func (f *fakeTaskRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeTaskRepo) CountByField(_ context.Context, field string) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, task := range f.byID {
		switch field {
		case "status":
			counts[string(task.Status)]++
		case "maintenance_type":
			counts[string(task.MaintenanceType)]++
		case "priority":
			counts[string(task.Priority)]++
		}
	}
	return counts, nil
}

func (f *fakeTaskRepo) ListAll(_ context.Context) ([]models.MaintenanceTask, error) {
	var rows []models.MaintenanceTask
	for _, task := range f.byID {
		rows = append(rows, *task)
	}
	return rows, nil
}

type fakeToolDirectory struct {
	tool *tools.ToolDTO
}

func (f *fakeToolDirectory) Get(_ context.Context, id uuid.UUID) (*tools.ToolDTO, error) {
	if f.tool == nil || f.tool.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tool not found")
	}
	return f.tool, nil
}

func (f *fakeToolDirectory) FindByName(_ context.Context, name string) (*tools.ToolDTO, error) {
	if f.tool == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no tool matches")
	}
	return f.tool, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestService(t *testing.T, repo Repository, dir ToolDirectory) Service {
	t.Helper()
	svc, err := NewService(repo, dir, events.NopPublisher{}, testLogger(), nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func manager() policy.Actor {
	return policy.Actor{ID: uuid.New(), Role: enums.RoleManager, IsActive: true}
}

func TestScheduleTask(t *testing.T) {
	repo := newFakeTaskRepo()
	dir := &fakeToolDirectory{tool: &tools.ToolDTO{ID: uuid.New(), Name: "Drill Press"}}
	svc := newTestService(t, repo, dir)

	created, err := svc.Schedule(context.Background(), manager(), ScheduleTaskDTO{
		ToolID:            dir.tool.ID,
		MaintenanceType:   "preventive",
		ScheduledDate:     time.Now().Add(48 * time.Hour),
		EstimatedDuration: 2,
		Description:       "quarterly spindle check",
	})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if created.Status != enums.MaintenanceStatusScheduled {
		t.Errorf("status = %s, want scheduled", created.Status)
	}
	if created.Priority != enums.UrgencyMedium {
		t.Errorf("priority = %s, want default medium", created.Priority)
	}
}

func TestScheduleRejectsShortDuration(t *testing.T) {
	repo := newFakeTaskRepo()
	dir := &fakeToolDirectory{tool: &tools.ToolDTO{ID: uuid.New()}}
	svc := newTestService(t, repo, dir)

	_, err := svc.Schedule(context.Background(), manager(), ScheduleTaskDTO{
		ToolID:            dir.tool.ID,
		MaintenanceType:   "inspection",
		ScheduledDate:     time.Now().Add(time.Hour),
		EstimatedDuration: 0.25,
		Description:       "quick look",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeValidation, err)
	}
}

func TestScheduleRequiresReviewerRole(t *testing.T) {
	repo := newFakeTaskRepo()
	dir := &fakeToolDirectory{tool: &tools.ToolDTO{ID: uuid.New()}}
	svc := newTestService(t, repo, dir)

	employee := policy.Actor{ID: uuid.New(), Role: enums.RoleEmployee, IsActive: true}
	_, err := svc.Schedule(context.Background(), employee, ScheduleTaskDTO{
		ToolID:            dir.tool.ID,
		MaintenanceType:   "preventive",
		ScheduledDate:     time.Now().Add(time.Hour),
		EstimatedDuration: 1,
		Description:       "oil change",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeForbidden, err)
	}
}

func TestGetReclassifiesPastDueTask(t *testing.T) {
	repo := newFakeTaskRepo()
	dir := &fakeToolDirectory{tool: &tools.ToolDTO{ID: uuid.New()}}
	svc := newTestService(t, repo, dir)

	task := &models.MaintenanceTask{
		ToolID:            dir.tool.ID,
		ScheduledByID:     uuid.New(),
		MaintenanceType:   enums.MaintenanceTypeCorrective,
		Priority:          enums.UrgencyHigh,
		ScheduledDate:     time.Now().Add(-72 * time.Hour),
		EstimatedDuration: 1,
		Description:       "replace worn belt",
		Status:            enums.MaintenanceStatusScheduled,
	}
	if err := repo.Create(context.Background(), task); err != nil {
		t.Fatalf("seed task: %v", err)
	}

	got, err := svc.Get(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != enums.MaintenanceStatusOverdue {
		t.Errorf("status = %s, want overdue without an explicit update", got.Status)
	}
}

func TestUpdateTaskStatus(t *testing.T) {
	repo := newFakeTaskRepo()
	dir := &fakeToolDirectory{tool: &tools.ToolDTO{ID: uuid.New()}}
	svc := newTestService(t, repo, dir)

	task := &models.MaintenanceTask{
		ToolID:            dir.tool.ID,
		ScheduledByID:     uuid.New(),
		MaintenanceType:   enums.MaintenanceTypePreventive,
		Priority:          enums.UrgencyMedium,
		ScheduledDate:     time.Now().Add(-time.Hour),
		EstimatedDuration: 1,
		Description:       "lubrication",
		Status:            enums.MaintenanceStatusScheduled,
	}
	if err := repo.Create(context.Background(), task); err != nil {
		t.Fatalf("seed task: %v", err)
	}

	status := "completed"
	notes := "done ahead of schedule"
	updated, err := svc.Update(context.Background(), manager(), task.ID, UpdateTaskDTO{
		Status:          &status,
		CompletionNotes: &notes,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != enums.MaintenanceStatusCompleted {
		t.Errorf("status = %s, want completed (terminal beats overdue reclassification)", updated.Status)
	}
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	repo := newFakeTaskRepo()
	dir := &fakeToolDirectory{tool: &tools.ToolDTO{ID: uuid.New()}}
	svc := newTestService(t, repo, dir)

	task := &models.MaintenanceTask{
		ToolID:            dir.tool.ID,
		ScheduledByID:     uuid.New(),
		MaintenanceType:   enums.MaintenanceTypePreventive,
		ScheduledDate:     time.Now().Add(time.Hour),
		EstimatedDuration: 1,
		Description:       "lubrication",
		Status:            enums.MaintenanceStatusScheduled,
	}
	if err := repo.Create(context.Background(), task); err != nil {
		t.Fatalf("seed task: %v", err)
	}

	status := "paused"
	_, err := svc.Update(context.Background(), manager(), task.ID, UpdateTaskDTO{Status: &status})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeValidation, err)
	}
}

func TestStatsCountsOverdueFromLiveDefinition(t *testing.T) {
	repo := newFakeTaskRepo()
	dir := &fakeToolDirectory{tool: &tools.ToolDTO{ID: uuid.New()}}
	svc := newTestService(t, repo, dir)

	pastDue := &models.MaintenanceTask{
		ToolID:            dir.tool.ID,
		ScheduledByID:     uuid.New(),
		MaintenanceType:   enums.MaintenanceTypeInspection,
		ScheduledDate:     time.Now().Add(-time.Hour),
		EstimatedDuration: 1,
		Description:       "guard check",
		Status:            enums.MaintenanceStatusScheduled,
	}
	done := &models.MaintenanceTask{
		ToolID:            dir.tool.ID,
		ScheduledByID:     uuid.New(),
		MaintenanceType:   enums.MaintenanceTypeInspection,
		ScheduledDate:     time.Now().Add(-time.Hour),
		EstimatedDuration: 1,
		Description:       "guard check",
		Status:            enums.MaintenanceStatusCompleted,
	}
	for _, task := range []*models.MaintenanceTask{pastDue, done} {
		if err := repo.Create(context.Background(), task); err != nil {
			t.Fatalf("seed task: %v", err)
		}
	}

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Overdue != 1 {
		t.Errorf("overdue = %d, want 1", stats.Overdue)
	}
	if stats.ByStatus[string(enums.MaintenanceStatusOverdue)] != 1 {
		t.Errorf("byStatus overdue = %d, want 1", stats.ByStatus[string(enums.MaintenanceStatusOverdue)])
	}
	if stats.Total != 2 {
		t.Errorf("total = %d, want 2", stats.Total)
	}
}

func TestDeleteRequiresReviewerRole(t *testing.T) {
	repo := newFakeTaskRepo()
	dir := &fakeToolDirectory{tool: &tools.ToolDTO{ID: uuid.New()}}
	svc := newTestService(t, repo, dir)

	employee := policy.Actor{ID: uuid.New(), Role: enums.RoleEmployee, IsActive: true}
	err := svc.Delete(context.Background(), employee, uuid.New())
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeForbidden, err)
	}
}
