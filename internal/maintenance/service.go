package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/toolcrib/toolcrib-backend/internal/policy"
	"github.com/toolcrib/toolcrib-backend/internal/tools"
	"github.com/toolcrib/toolcrib-backend/pkg/db/models"
	"github.com/toolcrib/toolcrib-backend/pkg/enums"
	pkgerrors "github.com/toolcrib/toolcrib-backend/pkg/errors"
	"github.com/toolcrib/toolcrib-backend/pkg/events"
	"github.com/toolcrib/toolcrib-backend/pkg/logger"
	"github.com/toolcrib/toolcrib-backend/pkg/metrics"
	"github.com/toolcrib/toolcrib-backend/pkg/pagination"
)

// ToolDirectory is the slice of the tools service maintenance needs.
type ToolDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*tools.ToolDTO, error)
	FindByName(ctx context.Context, name string) (*tools.ToolDTO, error)
}

// Service owns maintenance task scheduling.
type Service interface {
	Schedule(ctx context.Context, actor policy.Actor, input ScheduleTaskDTO) (*TaskDTO, error)
	QuickScheduleByName(ctx context.Context, actor policy.Actor, toolName string, input ScheduleTaskDTO) (*TaskDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*TaskDTO, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Update(ctx context.Context, actor policy.Actor, id uuid.UUID, patch UpdateTaskDTO) (*TaskDTO, error)
	Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error
	Stats(ctx context.Context) (*StatsDTO, error)
}

// ListParams filters the maintenance listing.
type ListParams struct {
	Page            pagination.Params
	Status          string
	MaintenanceType string
	Priority        string
	ToolID          *uuid.UUID
	AssignedTo      *uuid.UUID
}

// ListResult is a page of tasks with pagination metadata.
type ListResult struct {
	Tasks []TaskDTO       `json:"tasks"`
	Meta  pagination.Meta `json:"meta"`
}

type serviceImpl struct {
	repo      Repository
	tools     ToolDirectory
	publisher events.Publisher
	logg      *logger.Logger
	lifecycle *metrics.LifecycleMetrics
	now       func() time.Time
}

// NewService wires the maintenance service.
func NewService(repo Repository, toolDir ToolDirectory, publisher events.Publisher, logg *logger.Logger, lifecycle *metrics.LifecycleMetrics) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "maintenance repository required")
	}
	if toolDir == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tool directory required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &serviceImpl{
		repo:      repo,
		tools:     toolDir,
		publisher: publisher,
		logg:      logg,
		lifecycle: lifecycle,
		now:       time.Now,
	}, nil
}

func (s *serviceImpl) Schedule(ctx context.Context, actor policy.Actor, input ScheduleTaskDTO) (*TaskDTO, error) {
	defer s.lifecycle.Timer("maintenance-schedule")()
	if err := policy.Authorize(actor, policy.ActionScheduleMaintenance, nil); err != nil {
		return nil, err
	}
	maintenanceType, err := enums.ParseMaintenanceType(input.MaintenanceType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid maintenance type")
	}
	priority := enums.UrgencyMedium
	if input.Priority != "" {
		priority, err = enums.ParseUrgency(input.Priority)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid priority")
		}
	}
	if input.EstimatedDuration < 0.5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "estimated duration must be at least half an hour")
	}

	if _, err := s.tools.Get(ctx, input.ToolID); err != nil {
		return nil, err
	}

	task := &models.MaintenanceTask{
		ToolID:            input.ToolID,
		ScheduledByID:     actor.ID,
		AssignedToID:      input.AssignedTo,
		MaintenanceType:   maintenanceType,
		Priority:          priority,
		ScheduledDate:     input.ScheduledDate,
		EstimatedDuration: input.EstimatedDuration,
		Description:       input.Description,
		Status:            enums.MaintenanceStatusScheduled,
	}
	task.Status = Reclassify(task, s.now().UTC())
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to schedule maintenance")
	}

	created, err := s.repo.GetByID(ctx, task.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to reload task")
	}
	created.Status = Reclassify(created, s.now().UTC())
	dto := FromModel(created)

	s.lifecycle.IncTransition("maintenance", string(created.Status))
	s.publish(ctx, events.Event{
		Name:     events.NameMaintenanceScheduled,
		Payload:  dto,
		Audience: events.ForRoles(enums.RoleManager.String(), enums.RoleAdmin.String()),
	})
	return dto, nil
}

// QuickScheduleByName resolves the tool by name fragment before
// delegating to Schedule.
func (s *serviceImpl) QuickScheduleByName(ctx context.Context, actor policy.Actor, toolName string, input ScheduleTaskDTO) (*TaskDTO, error) {
	if err := policy.Authorize(actor, policy.ActionScheduleMaintenance, nil); err != nil {
		return nil, err
	}
	tool, err := s.tools.FindByName(ctx, toolName)
	if err != nil {
		return nil, err
	}
	input.ToolID = tool.ID
	return s.Schedule(ctx, actor, input)
}

func (s *serviceImpl) Get(ctx context.Context, id uuid.UUID) (*TaskDTO, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to load task")
	}
	if task == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "maintenance task not found")
	}
	task.Status = Reclassify(task, s.now().UTC())
	return FromModel(task), nil
}

func (s *serviceImpl) List(ctx context.Context, params ListParams) (*ListResult, error) {
	repoParams := ListTasksParams{
		Page:       params.Page,
		ToolID:     params.ToolID,
		AssignedTo: params.AssignedTo,
	}
	if params.Status != "" {
		status, err := enums.ParseMaintenanceStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		repoParams.Status = &status
	}
	if params.MaintenanceType != "" {
		maintenanceType, err := enums.ParseMaintenanceType(params.MaintenanceType)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type filter")
		}
		repoParams.MaintenanceType = &maintenanceType
	}
	if params.Priority != "" {
		priority, err := enums.ParseUrgency(params.Priority)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid priority filter")
		}
		repoParams.Priority = &priority
	}

	rows, total, err := s.repo.List(ctx, repoParams)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to list tasks")
	}
	reclassifyAll(rows, s.now().UTC())
	return &ListResult{
		Tasks: FromModels(rows),
		Meta:  pagination.MetaFor(params.Page, total),
	}, nil
}

func (s *serviceImpl) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, patch UpdateTaskDTO) (*TaskDTO, error) {
	defer s.lifecycle.Timer("maintenance-update")()
	if err := policy.Authorize(actor, policy.ActionUpdateMaintenance, nil); err != nil {
		return nil, err
	}
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to load task")
	}
	if task == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "maintenance task not found")
	}

	if err := applyTaskPatch(task, patch); err != nil {
		return nil, err
	}
	task.Status = Reclassify(task, s.now().UTC())
	if err := s.repo.Save(ctx, task); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to update task")
	}
	dto := FromModel(task)

	s.publish(ctx, events.Event{
		Name:     events.NameMaintenanceUpdated,
		Payload:  dto,
		Audience: events.ForRoles(enums.RoleManager.String(), enums.RoleAdmin.String()),
	})
	return dto, nil
}

func (s *serviceImpl) Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	if err := policy.Authorize(actor, policy.ActionDeleteMaintenance, nil); err != nil {
		return err
	}
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to load task")
	}
	if task == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "maintenance task not found")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to delete task")
	}
	return nil
}

func (s *serviceImpl) Stats(ctx context.Context) (*StatsDTO, error) {
	byStatus, err := s.repo.CountByField(ctx, "status")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to aggregate statuses")
	}
	byType, err := s.repo.CountByField(ctx, "maintenance_type")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to aggregate types")
	}
	byPriority, err := s.repo.CountByField(ctx, "priority")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to aggregate priorities")
	}

	// Persisted statuses underreport overdue work, so recount from the
	// live definition.
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to scan tasks")
	}
	now := s.now().UTC()
	var total, overdue int64
	recounted := make(map[string]int64, len(byStatus))
	for i := range rows {
		status := Reclassify(&rows[i], now)
		recounted[string(status)]++
		if status == enums.MaintenanceStatusOverdue {
			overdue++
		}
		total++
	}

	return &StatsDTO{
		Total:      total,
		ByStatus:   recounted,
		ByType:     byType,
		ByPriority: byPriority,
		Overdue:    overdue,
	}, nil
}

func (s *serviceImpl) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.lifecycle.IncEvent(event.Name, "error")
		s.logg.Warn(ctx, fmt.Sprintf("publishing %s event failed: %v", event.Name, err))
		return
	}
	s.lifecycle.IncEvent(event.Name, "ok")
}

func applyTaskPatch(task *models.MaintenanceTask, patch UpdateTaskDTO) error {
	if patch.MaintenanceType != nil {
		maintenanceType, err := enums.ParseMaintenanceType(*patch.MaintenanceType)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid maintenance type")
		}
		task.MaintenanceType = maintenanceType
	}
	if patch.Priority != nil {
		priority, err := enums.ParseUrgency(*patch.Priority)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid priority")
		}
		task.Priority = priority
	}
	if patch.Status != nil {
		status, err := enums.ParseMaintenanceStatus(*patch.Status)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		task.Status = status
	}
	if patch.AssignedTo != nil {
		task.AssignedToID = patch.AssignedTo
	}
	if patch.ScheduledDate != nil {
		task.ScheduledDate = *patch.ScheduledDate
	}
	if patch.EstimatedDuration != nil {
		if *patch.EstimatedDuration < 0.5 {
			return pkgerrors.New(pkgerrors.CodeValidation, "estimated duration must be at least half an hour")
		}
		task.EstimatedDuration = *patch.EstimatedDuration
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.ActualStartDate != nil {
		task.ActualStartDate = patch.ActualStartDate
	}
	if patch.ActualEndDate != nil {
		task.ActualEndDate = patch.ActualEndDate
	}
	if patch.ActualDuration != nil {
		task.ActualDuration = patch.ActualDuration
	}
	if patch.CompletionNotes != nil {
		task.CompletionNotes = patch.CompletionNotes
	}
	if patch.Cost != nil {
		task.Cost = patch.Cost
	}
	if patch.NextMaintenanceDate != nil {
		task.NextMaintenanceDate = patch.NextMaintenanceDate
	}
	return nil
}
