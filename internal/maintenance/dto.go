package maintenance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/toolcrib/toolcrib-backend/pkg/db/models"
	"github.com/toolcrib/toolcrib-backend/pkg/enums"
)

// TaskDTO is the transport shape of a maintenance task.
type TaskDTO struct {
	ID                  uuid.UUID               `json:"id"`
	ToolID              uuid.UUID               `json:"toolId"`
	Tool                *ToolSummaryDTO         `json:"tool,omitempty"`
	ScheduledBy         uuid.UUID               `json:"scheduledBy"`
	AssignedTo          *uuid.UUID              `json:"assignedTo,omitempty"`
	MaintenanceType     enums.MaintenanceType   `json:"maintenanceType"`
	Priority            enums.Urgency           `json:"priority"`
	ScheduledDate       time.Time               `json:"scheduledDate"`
	EstimatedDuration   float64                 `json:"estimatedDuration"`
	Description         string                  `json:"description"`
	Status              enums.MaintenanceStatus `json:"status"`
	ActualStartDate     *time.Time              `json:"actualStartDate,omitempty"`
	ActualEndDate       *time.Time              `json:"actualEndDate,omitempty"`
	ActualDuration      *float64                `json:"actualDuration,omitempty"`
	CompletionNotes     *string                 `json:"completionNotes,omitempty"`
	Cost                *decimal.Decimal        `json:"cost,omitempty"`
	NextMaintenanceDate *time.Time              `json:"nextMaintenanceDate,omitempty"`
	CreatedAt           time.Time               `json:"createdAt"`
	UpdatedAt           time.Time               `json:"updatedAt"`
}

// ToolSummaryDTO is the embedded summary of the serviced tool.
type ToolSummaryDTO struct {
	ID       uuid.UUID          `json:"id"`
	Name     string             `json:"name"`
	Category enums.ToolCategory `json:"category"`
	Status   enums.ToolStatus   `json:"status"`
	Location *string            `json:"location,omitempty"`
}

// ScheduleTaskDTO creates a new maintenance task.
type ScheduleTaskDTO struct {
	ToolID            uuid.UUID  `json:"toolId" validate:"required"`
	AssignedTo        *uuid.UUID `json:"assignedTo"`
	MaintenanceType   string     `json:"maintenanceType" validate:"required"`
	Priority          string     `json:"priority" validate:"omitempty"`
	ScheduledDate     time.Time  `json:"scheduledDate" validate:"required"`
	EstimatedDuration float64    `json:"estimatedDuration" validate:"required,gte=0.5"`
	Description       string     `json:"description" validate:"required,min=3,max=2000"`
}

// UpdateTaskDTO patches mutable task fields. Nil means leave unchanged.
type UpdateTaskDTO struct {
	AssignedTo          *uuid.UUID       `json:"assignedTo"`
	MaintenanceType     *string          `json:"maintenanceType"`
	Priority            *string          `json:"priority"`
	ScheduledDate       *time.Time       `json:"scheduledDate"`
	EstimatedDuration   *float64         `json:"estimatedDuration" validate:"omitempty,gte=0.5"`
	Description         *string          `json:"description" validate:"omitempty,min=3,max=2000"`
	Status              *string          `json:"status"`
	ActualStartDate     *time.Time       `json:"actualStartDate"`
	ActualEndDate       *time.Time       `json:"actualEndDate"`
	ActualDuration      *float64         `json:"actualDuration"`
	CompletionNotes     *string          `json:"completionNotes"`
	Cost                *decimal.Decimal `json:"cost"`
	NextMaintenanceDate *time.Time       `json:"nextMaintenanceDate"`
}

// StatsDTO summarizes the maintenance queue for dashboards.
type StatsDTO struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"byStatus"`
	ByType     map[string]int64 `json:"byType"`
	ByPriority map[string]int64 `json:"byPriority"`
	Overdue    int64            `json:"overdue"`
}

// FromModel maps a persisted task into its DTO.
func FromModel(task *models.MaintenanceTask) *TaskDTO {
	if task == nil {
		return nil
	}
	dto := &TaskDTO{
		ID:                  task.ID,
		ToolID:              task.ToolID,
		ScheduledBy:         task.ScheduledByID,
		AssignedTo:          task.AssignedToID,
		MaintenanceType:     task.MaintenanceType,
		Priority:            task.Priority,
		ScheduledDate:       task.ScheduledDate,
		EstimatedDuration:   task.EstimatedDuration,
		Description:         task.Description,
		Status:              task.Status,
		ActualStartDate:     task.ActualStartDate,
		ActualEndDate:       task.ActualEndDate,
		ActualDuration:      task.ActualDuration,
		CompletionNotes:     task.CompletionNotes,
		Cost:                task.Cost,
		NextMaintenanceDate: task.NextMaintenanceDate,
		CreatedAt:           task.CreatedAt,
		UpdatedAt:           task.UpdatedAt,
	}
	if task.Tool != nil {
		dto.Tool = &ToolSummaryDTO{
			ID:       task.Tool.ID,
			Name:     task.Tool.Name,
			Category: task.Tool.Category,
			Status:   task.Tool.Status,
			Location: task.Tool.Location,
		}
	}
	return dto
}

// FromModels maps a page of tasks into DTOs.
func FromModels(rows []models.MaintenanceTask) []TaskDTO {
	dtos := make([]TaskDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return dtos
}
