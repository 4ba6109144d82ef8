package tools

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/toolcrib/toolcrib-backend/pkg/db/models"
	"github.com/toolcrib/toolcrib-backend/pkg/enums"
)

// AssigneeDTO is the slim user shape embedded in tool payloads.
type AssigneeDTO struct {
	ID         uuid.UUID `json:"id"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	EmployeeID string    `json:"employeeId"`
}

// ToolDTO is the transport shape for a tool. Field names are part of the
// export/import contract and must not change.
type ToolDTO struct {
	ID                  uuid.UUID           `json:"id"`
	Name                string              `json:"name"`
	Description         *string             `json:"description,omitempty"`
	Category            enums.ToolCategory  `json:"category"`
	Brand               *string             `json:"brand,omitempty"`
	Model               *string             `json:"model,omitempty"`
	SerialNumber        *string             `json:"serialNumber,omitempty"`
	Location            *string             `json:"location,omitempty"`
	Status              enums.ToolStatus    `json:"status"`
	Condition           enums.ToolCondition `json:"condition"`
	PurchaseDate        *time.Time          `json:"purchaseDate,omitempty"`
	PurchasePrice       *decimal.Decimal    `json:"purchasePrice,omitempty"`
	AssignedTo          *uuid.UUID          `json:"assignedTo,omitempty"`
	Assignee            *AssigneeDTO        `json:"assignee,omitempty"`
	AssignedDate        *time.Time          `json:"assignedDate,omitempty"`
	ExpectedReturnDate  *time.Time          `json:"expectedReturnDate,omitempty"`
	LastMaintenanceDate *time.Time          `json:"lastMaintenanceDate,omitempty"`
	NextMaintenanceDate *time.Time          `json:"nextMaintenanceDate,omitempty"`
	Notes               *string             `json:"notes,omitempty"`
	CreatedBy           *uuid.UUID          `json:"createdBy,omitempty"`
	CreatedAt           time.Time           `json:"createdAt"`
	UpdatedAt           time.Time           `json:"updatedAt"`
}

// CreateToolDTO holds the data required to persist a new tool.
type CreateToolDTO struct {
	Name          string              `json:"name" validate:"required"`
	Description   *string             `json:"description"`
	Category      enums.ToolCategory  `json:"category" validate:"required"`
	Brand         *string             `json:"brand"`
	Model         *string             `json:"model"`
	SerialNumber  *string             `json:"serialNumber"`
	Location      *string             `json:"location"`
	Condition     enums.ToolCondition `json:"condition"`
	PurchaseDate  *time.Time          `json:"purchaseDate"`
	PurchasePrice *decimal.Decimal    `json:"purchasePrice"`
	Notes         *string             `json:"notes"`
}

// UpdateToolDTO patches mutable tool fields. Nil means leave unchanged.
type UpdateToolDTO struct {
	Name                *string              `json:"name"`
	Description         *string              `json:"description"`
	Category            *enums.ToolCategory  `json:"category"`
	Brand               *string              `json:"brand"`
	Model               *string              `json:"model"`
	SerialNumber        *string              `json:"serialNumber"`
	Location            *string              `json:"location"`
	Status              *enums.ToolStatus    `json:"status"`
	Condition           *enums.ToolCondition `json:"condition"`
	PurchaseDate        *time.Time           `json:"purchaseDate"`
	PurchasePrice       *decimal.Decimal     `json:"purchasePrice"`
	LastMaintenanceDate *time.Time           `json:"lastMaintenanceDate"`
	NextMaintenanceDate *time.Time           `json:"nextMaintenanceDate"`
	Notes               *string              `json:"notes"`
}

// FromModel converts the persistence model into the transport shape.
func FromModel(t *models.Tool) *ToolDTO {
	if t == nil {
		return nil
	}

	dto := &ToolDTO{
		ID:                  t.ID,
		Name:                t.Name,
		Description:         t.Description,
		Category:            t.Category,
		Brand:               t.Brand,
		Model:               t.Model,
		SerialNumber:        t.SerialNumber,
		Location:            t.Location,
		Status:              t.Status,
		Condition:           t.Condition,
		PurchaseDate:        t.PurchaseDate,
		PurchasePrice:       t.PurchasePrice,
		AssignedTo:          t.AssignedToID,
		AssignedDate:        t.AssignedDate,
		ExpectedReturnDate:  t.ExpectedReturnDate,
		LastMaintenanceDate: t.LastMaintenanceDate,
		NextMaintenanceDate: t.NextMaintenanceDate,
		Notes:               t.Notes,
		CreatedBy:           t.CreatedByID,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
	if t.AssignedTo != nil {
		dto.Assignee = &AssigneeDTO{
			ID:         t.AssignedTo.ID,
			FirstName:  t.AssignedTo.FirstName,
			LastName:   t.AssignedTo.LastName,
			EmployeeID: t.AssignedTo.EmployeeID,
		}
	}
	return dto
}

// FromModels maps a slice of tools into DTOs.
func FromModels(rows []models.Tool) []ToolDTO {
	out := make([]ToolDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

func (c CreateToolDTO) toModel(createdBy uuid.UUID) *models.Tool {
	condition := c.Condition
	if condition == "" {
		condition = enums.ToolConditionGood
	}

	return &models.Tool{
		Name:          c.Name,
		Description:   c.Description,
		Category:      c.Category,
		Brand:         c.Brand,
		Model:         c.Model,
		SerialNumber:  c.SerialNumber,
		Location:      c.Location,
		Status:        enums.ToolStatusAvailable,
		Condition:     condition,
		PurchaseDate:  c.PurchaseDate,
		PurchasePrice: c.PurchasePrice,
		Notes:         c.Notes,
		CreatedByID:   &createdBy,
	}
}
