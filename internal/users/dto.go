package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/toolcrib/toolcrib-backend/pkg/db/models"
	"github.com/toolcrib/toolcrib-backend/pkg/enums"
)

// UserDTO is the transport shape that omits credentials. Field names are
// part of the export/import contract and must not change.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Role        enums.Role `json:"role"`
	EmployeeID  string     `json:"employeeId"`
	Department  *string    `json:"department,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	IsActive    bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CreateUserDTO holds the data required to persist a new user.
type CreateUserDTO struct {
	Email      string     `json:"email" validate:"required,email"`
	Password   string     `json:"password"`
	FirstName  string     `json:"firstName" validate:"required"`
	LastName   string     `json:"lastName" validate:"required"`
	Role       enums.Role `json:"role"`
	EmployeeID string     `json:"employeeId"`
	Department *string    `json:"department"`
	Phone      *string    `json:"phone"`
}

// UpdateUserDTO patches mutable user fields. Nil means leave unchanged.
type UpdateUserDTO struct {
	FirstName  *string     `json:"firstName"`
	LastName   *string     `json:"lastName"`
	Role       *enums.Role `json:"role"`
	Department *string     `json:"department"`
	Phone      *string     `json:"phone"`
}

// ProfileDTO is a user plus their currently assigned tools.
type ProfileDTO struct {
	User          UserDTO           `json:"user"`
	AssignedTools []AssignedToolDTO `json:"assignedTools"`
}

// AssignedToolDTO is the slim tool shape embedded in profiles.
type AssignedToolDTO struct {
	ID                 uuid.UUID        `json:"id"`
	Name               string           `json:"name"`
	Status             enums.ToolStatus `json:"status"`
	AssignedDate       *time.Time       `json:"assignedDate,omitempty"`
	ExpectedReturnDate *time.Time       `json:"expectedReturnDate,omitempty"`
}

// StatsDTO summarizes the user base for dashboards.
type StatsDTO struct {
	Total    int64            `json:"total"`
	Active   int64            `json:"active"`
	Inactive int64            `json:"inactive"`
	ByRole   map[string]int64 `json:"byRole"`
}

// FromModel converts the persistence model into the transport shape.
func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Role:        u.Role,
		EmployeeID:  u.EmployeeID,
		Department:  u.Department,
		Phone:       u.Phone,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// FromModels maps a slice of users into DTOs.
func FromModels(rows []models.User) []UserDTO {
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
