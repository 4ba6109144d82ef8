package requests

import (
	"time"

	"github.com/google/uuid"

	"github.com/toolcrib/toolcrib-backend/internal/policy"
	"github.com/toolcrib/toolcrib-backend/pkg/db/models"
	"github.com/toolcrib/toolcrib-backend/pkg/enums"
)

// RequestDTO is the transport shape of a tool request.
type RequestDTO struct {
	ID               uuid.UUID           `json:"id"`
	RequestedBy      uuid.UUID           `json:"requestedBy"`
	Requester        *PersonDTO          `json:"requester,omitempty"`
	ToolID           uuid.UUID           `json:"toolId"`
	Tool             *ToolSummaryDTO     `json:"tool,omitempty"`
	RequestType      enums.RequestType   `json:"requestType"`
	Reason           string              `json:"reason"`
	Urgency          enums.Urgency       `json:"urgency"`
	ExpectedDuration *int                `json:"expectedDuration,omitempty"`
	Status           enums.RequestStatus `json:"status"`
	ReviewedBy       *uuid.UUID          `json:"reviewedBy,omitempty"`
	Reviewer         *PersonDTO          `json:"reviewer,omitempty"`
	ReviewedAt       *time.Time          `json:"reviewedAt,omitempty"`
	ReviewComments   *string             `json:"reviewComments,omitempty"`
	ApprovedAt       *time.Time          `json:"approvedAt,omitempty"`
	CompletedAt      *time.Time          `json:"completedAt,omitempty"`
	Department       *string             `json:"department,omitempty"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

// PersonDTO is the embedded summary of a user on a request.
type PersonDTO struct {
	ID         uuid.UUID `json:"id"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	EmployeeID string    `json:"employeeId"`
}

// ToolSummaryDTO is the embedded summary of the requested tool.
type ToolSummaryDTO struct {
	ID       uuid.UUID          `json:"id"`
	Name     string             `json:"name"`
	Category enums.ToolCategory `json:"category"`
	Status   enums.ToolStatus   `json:"status"`
	Location *string            `json:"location,omitempty"`
}

// CreateRequestDTO creates a new tool request on behalf of the caller.
type CreateRequestDTO struct {
	ToolID           uuid.UUID `json:"toolId" validate:"required"`
	RequestType      string    `json:"requestType" validate:"required"`
	Reason           string    `json:"reason" validate:"required,min=3,max=1000"`
	Urgency          string    `json:"urgency" validate:"omitempty"`
	ExpectedDuration *int      `json:"expectedDuration" validate:"omitempty,gt=0"`
}

// ReviewRequestDTO records a reviewer's decision on a pending request.
type ReviewRequestDTO struct {
	Decision string  `json:"decision" validate:"required,oneof=approved rejected"`
	Comments *string `json:"comments" validate:"omitempty,max=1000"`
}

// StatsDTO summarizes the request queue for dashboards.
type StatsDTO struct {
	Total         int64            `json:"total"`
	ByStatus      map[string]int64 `json:"byStatus"`
	ByType        map[string]int64 `json:"byType"`
	ByUrgency     map[string]int64 `json:"byUrgency"`
	RecentPending []RequestDTO     `json:"recentPending"`
}

// FromModel maps a persisted request into its DTO.
func FromModel(request *models.ToolRequest) *RequestDTO {
	if request == nil {
		return nil
	}
	dto := &RequestDTO{
		ID:               request.ID,
		RequestedBy:      request.RequestedByID,
		ToolID:           request.ToolID,
		RequestType:      request.RequestType,
		Reason:           request.Reason,
		Urgency:          request.Urgency,
		ExpectedDuration: request.ExpectedDuration,
		Status:           request.Status,
		ReviewedBy:       request.ReviewedByID,
		ReviewedAt:       request.ReviewedAt,
		ReviewComments:   request.ReviewComments,
		ApprovedAt:       request.ApprovedAt,
		CompletedAt:      request.CompletedAt,
		Department:       request.Department,
		CreatedAt:        request.CreatedAt,
		UpdatedAt:        request.UpdatedAt,
	}
	dto.Requester = personFromModel(request.RequestedBy)
	dto.Reviewer = personFromModel(request.ReviewedBy)
	if request.Tool != nil {
		dto.Tool = &ToolSummaryDTO{
			ID:       request.Tool.ID,
			Name:     request.Tool.Name,
			Category: request.Tool.Category,
			Status:   request.Tool.Status,
			Location: request.Tool.Location,
		}
	}
	return dto
}

// FromModels maps a page of requests into DTOs.
func FromModels(rows []models.ToolRequest) []RequestDTO {
	dtos := make([]RequestDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return dtos
}

func newRequestModel(actor policy.Actor, input CreateRequestDTO, requestType enums.RequestType, urgency enums.Urgency) *models.ToolRequest {
	return &models.ToolRequest{
		RequestedByID:    actor.ID,
		ToolID:           input.ToolID,
		RequestType:      requestType,
		Reason:           input.Reason,
		Urgency:          urgency,
		ExpectedDuration: input.ExpectedDuration,
		Status:           enums.RequestStatusPending,
		Department:       actor.Department,
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
