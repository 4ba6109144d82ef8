package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/toolcrib/toolcrib-backend/pkg/enums"
)

// ToolRequest asks for an action on an existing tool. Status only ever
// leaves pending once; approved, rejected and cancelled are terminal.
type ToolRequest struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RequestedByID    uuid.UUID           `gorm:"column:requested_by;type:uuid;not null"`
	RequestedBy      *User               `gorm:"foreignKey:RequestedByID"`
	ToolID           uuid.UUID           `gorm:"column:tool_id;type:uuid;not null"`
	Tool             *Tool               `gorm:"foreignKey:ToolID"`
	RequestType      enums.RequestType   `gorm:"column:request_type;not null"`
	Reason           string              `gorm:"column:reason;not null"`
	Urgency          enums.Urgency       `gorm:"column:urgency;not null;default:'medium'"`
	ExpectedDuration *int                `gorm:"column:expected_duration"`
	Status           enums.RequestStatus `gorm:"column:status;not null;default:'pending'"`
	ReviewedByID     *uuid.UUID          `gorm:"column:reviewed_by;type:uuid"`
	ReviewedBy       *User               `gorm:"foreignKey:ReviewedByID"`
	ReviewedAt       *time.Time          `gorm:"column:reviewed_at"`
	ReviewComments   *string             `gorm:"column:review_comments"`
	ApprovedAt       *time.Time          `gorm:"column:approved_at"`
	CompletedAt      *time.Time          `gorm:"column:completed_at"`
	Department       *string             `gorm:"column:department"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
