package additions

import (
	"time"

	"github.com/google/uuid"

	"github.com/toolcrib/toolcrib-backend/internal/policy"
	"github.com/toolcrib/toolcrib-backend/pkg/db/models"
	"github.com/toolcrib/toolcrib-backend/pkg/enums"
)

// ToolDraftDTO is the sketch of the tool the request asks for.
type ToolDraftDTO struct {
	Name     string             `json:"name"`
	Category enums.ToolCategory `json:"category"`
	Location *string            `json:"location,omitempty"`
}

// AdditionDTO is the transport shape of an addition request.
type AdditionDTO struct {
	ID                 uuid.UUID           `json:"id"`
	RequestedBy        uuid.UUID           `json:"requestedBy"`
	Requester          *PersonDTO          `json:"requester,omitempty"`
	ToolData           ToolDraftDTO        `json:"toolData"`
	Reason             string              `json:"reason"`
	Urgency            enums.Urgency       `json:"urgency"`
	ExpectedReturnDate *time.Time          `json:"expectedReturnDate,omitempty"`
	Status             enums.RequestStatus `json:"status"`
	ReviewedBy         *uuid.UUID          `json:"reviewedBy,omitempty"`
	Reviewer           *PersonDTO          `json:"reviewer,omitempty"`
	ReviewedAt         *time.Time          `json:"reviewedAt,omitempty"`
	ReviewComments     *string             `json:"reviewComments,omitempty"`
	ApprovedAt         *time.Time          `json:"approvedAt,omitempty"`
	CreatedToolID      *uuid.UUID          `json:"createdToolId,omitempty"`
	Department         *string             `json:"department,omitempty"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

// PersonDTO is the embedded summary of a user on a request.
type PersonDTO struct {
	ID         uuid.UUID `json:"id"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	EmployeeID string    `json:"employeeId"`
}

// CreateAdditionDTO asks for a brand new tool.
type CreateAdditionDTO struct {
	ToolData           ToolDraftInputDTO `json:"toolData" validate:"required"`
	Reason             string            `json:"reason" validate:"required,min=3,max=1000"`
	Urgency            string            `json:"urgency" validate:"omitempty"`
	ExpectedReturnDate *time.Time        `json:"expectedReturnDate"`
}

// ToolDraftInputDTO is the incoming draft payload.
type ToolDraftInputDTO struct {
	Name     string  `json:"name" validate:"required,min=2,max=200"`
	Category string  `json:"category" validate:"required"`
	Location *string `json:"location"`
}

// ReviewAdditionDTO records a reviewer's decision.
type ReviewAdditionDTO struct {
	Decision string  `json:"decision" validate:"required,oneof=approved rejected"`
	Comments *string `json:"comments" validate:"omitempty,max=1000"`
}

// StatsDTO summarizes the addition queue for dashboards.
type StatsDTO struct {
	Total     int64            `json:"total"`
	ByStatus  map[string]int64 `json:"byStatus"`
	ByUrgency map[string]int64 `json:"byUrgency"`
}

// FromModel maps a persisted addition request into its DTO.
func FromModel(request *models.ToolAdditionRequest) *AdditionDTO {
	if request == nil {
		return nil
	}
	dto := &AdditionDTO{
		ID:          request.ID,
		RequestedBy: request.RequestedByID,
		ToolData: ToolDraftDTO{
			Name:     request.ToolData.Name,
			Category: request.ToolData.Category,
			Location: request.ToolData.Location,
		},
		Reason:             request.Reason,
		Urgency:            request.Urgency,
		ExpectedReturnDate: request.ExpectedReturnDate,
		Status:             request.Status,
		ReviewedBy:         request.ReviewedByID,
		ReviewedAt:         request.ReviewedAt,
		ReviewComments:     request.ReviewComments,
		ApprovedAt:         request.ApprovedAt,
		CreatedToolID:      request.CreatedToolID,
		Department:         request.Department,
		CreatedAt:          request.CreatedAt,
		UpdatedAt:          request.UpdatedAt,
	}
	dto.Requester = personFromModel(request.RequestedBy)
	dto.Reviewer = personFromModel(request.ReviewedBy)
	return dto
}

// FromModels maps a page of addition requests into DTOs.
func FromModels(rows []models.ToolAdditionRequest) []AdditionDTO {
	dtos := make([]AdditionDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return dtos
}

func newAdditionModel(actor policy.Actor, input CreateAdditionDTO, category enums.ToolCategory, urgency enums.Urgency) *models.ToolAdditionRequest {
	return &models.ToolAdditionRequest{
		RequestedByID: actor.ID,
		ToolData: models.ToolDraft{
			Name:     input.ToolData.Name,
			Category: category,
			Location: input.ToolData.Location,
		},
		Reason:             input.Reason,
		Urgency:            urgency,
		ExpectedReturnDate: input.ExpectedReturnDate,
		Status:             enums.RequestStatusPending,
		Department:         actor.Department,
	}
}

func personFromModel(user *models.User) *PersonDTO {
	if user == nil {
		return nil
	}
	return &PersonDTO{
		ID:         user.ID,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		EmployeeID: user.EmployeeID,
	}
}
