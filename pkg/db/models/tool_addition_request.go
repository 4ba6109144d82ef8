package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/toolcrib/toolcrib-backend/pkg/enums"
)

// ToolDraft is the embedded sketch of the tool an addition request asks for.
type ToolDraft struct {
	Name     string             `gorm:"column:tool_name;not null"`
	Category enums.ToolCategory `gorm:"column:tool_category;not null"`
	Location *string            `gorm:"column:tool_location"`
}

// ToolAdditionRequest asks for a brand new tool to be added to inventory.
// Approval materializes a Tool from the draft and links it back.
type ToolAdditionRequest struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RequestedByID      uuid.UUID           `gorm:"column:requested_by;type:uuid;not null"`
	RequestedBy        *User               `gorm:"foreignKey:RequestedByID"`
	ToolData           ToolDraft           `gorm:"embedded"`
	Reason             string              `gorm:"column:reason;not null"`
	Urgency            enums.Urgency       `gorm:"column:urgency;not null;default:'medium'"`
	ExpectedReturnDate *time.Time          `gorm:"column:expected_return_date"`
	Status             enums.RequestStatus `gorm:"column:status;not null;default:'pending'"`
	ReviewedByID       *uuid.UUID          `gorm:"column:reviewed_by;type:uuid"`
	ReviewedBy         *User               `gorm:"foreignKey:ReviewedByID"`
	ReviewedAt         *time.Time          `gorm:"column:reviewed_at"`
	ReviewComments     *string             `gorm:"column:review_comments"`
	ApprovedAt         *time.Time          `gorm:"column:approved_at"`
	CreatedToolID      *uuid.UUID          `gorm:"column:created_tool_id;type:uuid"`
	Department         *string             `gorm:"column:department"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
