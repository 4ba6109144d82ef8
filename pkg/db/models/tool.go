package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/toolcrib/toolcrib-backend/pkg/enums"
)

// Tool represents a tracked inventory item. AssignedToID is set if and
// only if Status is In Use.
type Tool struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                string              `gorm:"column:name;not null"`
	Description         *string             `gorm:"column:description"`
	Category            enums.ToolCategory  `gorm:"column:category;not null"`
	Brand               *string             `gorm:"column:brand"`
	Model               *string             `gorm:"column:model"`
	SerialNumber        *string             `gorm:"column:serial_number;uniqueIndex"`
	Location            *string             `gorm:"column:location"`
	Status              enums.ToolStatus    `gorm:"column:status;not null;default:'Available'"`
	Condition           enums.ToolCondition `gorm:"column:condition;not null;default:'Good'"`
	PurchaseDate        *time.Time          `gorm:"column:purchase_date"`
	PurchasePrice       *decimal.Decimal    `gorm:"column:purchase_price;type:numeric(12,2)"`
	AssignedToID        *uuid.UUID          `gorm:"column:assigned_to;type:uuid"`
	AssignedTo          *User               `gorm:"foreignKey:AssignedToID"`
	AssignedDate        *time.Time          `gorm:"column:assigned_date"`
	ExpectedReturnDate  *time.Time          `gorm:"column:expected_return_date"`
	LastMaintenanceDate *time.Time          `gorm:"column:last_maintenance_date"`
	NextMaintenanceDate *time.Time          `gorm:"column:next_maintenance_date"`
	Notes               *string             `gorm:"column:notes"`
	CreatedByID         *uuid.UUID          `gorm:"column:created_by;type:uuid"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
