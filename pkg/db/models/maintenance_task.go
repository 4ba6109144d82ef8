package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/toolcrib/toolcrib-backend/pkg/enums"
)

// MaintenanceTask tracks scheduled work on a tool. A non-terminal task
// whose scheduled date has passed is reclassified overdue at write time.
type MaintenanceTask struct {
	ID                  uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ToolID              uuid.UUID               `gorm:"column:tool_id;type:uuid;not null"`
	Tool                *Tool                   `gorm:"foreignKey:ToolID"`
	ScheduledByID       uuid.UUID               `gorm:"column:scheduled_by;type:uuid;not null"`
	ScheduledBy         *User                   `gorm:"foreignKey:ScheduledByID"`
	AssignedToID        *uuid.UUID              `gorm:"column:assigned_to;type:uuid"`
	AssignedTo          *User                   `gorm:"foreignKey:AssignedToID"`
	MaintenanceType     enums.MaintenanceType   `gorm:"column:maintenance_type;not null"`
	Priority            enums.Urgency           `gorm:"column:priority;not null;default:'medium'"`
	ScheduledDate       time.Time               `gorm:"column:scheduled_date;not null"`
	EstimatedDuration   float64                 `gorm:"column:estimated_duration;not null"`
	Description         string                  `gorm:"column:description;not null"`
	Status              enums.MaintenanceStatus `gorm:"column:status;not null;default:'scheduled'"`
	ActualStartDate     *time.Time              `gorm:"column:actual_start_date"`
	ActualEndDate       *time.Time              `gorm:"column:actual_end_date"`
	ActualDuration      *float64                `gorm:"column:actual_duration"`
	CompletionNotes     *string                 `gorm:"column:completion_notes"`
	Cost                *decimal.Decimal        `gorm:"column:cost;type:numeric(12,2)"`
	NextMaintenanceDate *time.Time              `gorm:"column:next_maintenance_date"`
	CreatedAt           time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
