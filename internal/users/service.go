package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/toolcrib/toolcrib-backend/internal/policy"
	"github.com/toolcrib/toolcrib-backend/pkg/config"
	"github.com/toolcrib/toolcrib-backend/pkg/db"
	"github.com/toolcrib/toolcrib-backend/pkg/db/models"
	"github.com/toolcrib/toolcrib-backend/pkg/enums"
	pkgerrors "github.com/toolcrib/toolcrib-backend/pkg/errors"
	"github.com/toolcrib/toolcrib-backend/pkg/events"
	"github.com/toolcrib/toolcrib-backend/pkg/logger"
	"github.com/toolcrib/toolcrib-backend/pkg/pagination"
	"github.com/toolcrib/toolcrib-backend/pkg/security"
)

const tempPasswordLength = 12

// ToolReleaser clears tool assignments when a user leaves.
type ToolReleaser interface {
	UnassignAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	ListAssignedToUser(ctx context.Context, userID uuid.UUID) ([]models.Tool, error)
}

// SessionRevoker tears down server-side sessions.
type SessionRevoker interface {
	RevokeUser(ctx context.Context, userID string) error
}

// Service defines user administration operations.
type Service interface {
	Create(ctx context.Context, actor policy.Actor, input CreateUserDTO) (*UserDTO, error)
	Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*UserDTO, error)
	Profile(ctx context.Context, actor policy.Actor, id uuid.UUID) (*ProfileDTO, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Update(ctx context.Context, actor policy.Actor, id uuid.UUID, patch UpdateUserDTO) (*UserDTO, error)
	Deactivate(ctx context.Context, actor policy.Actor, id uuid.UUID) (*UserDTO, error)
	Activate(ctx context.Context, actor policy.Actor, id uuid.UUID) (*UserDTO, error)
	PermanentDelete(ctx context.Context, actor policy.Actor, id uuid.UUID) error
	Stats(ctx context.Context) (*StatsDTO, error)
}

type service struct {
	repo        Repository
	tools       ToolReleaser
	sessions    SessionRevoker
	publisher   events.Publisher
	logg        *logger.Logger
	passwordCfg config.PasswordConfig
}

// ListParams configures filters and pagination for the user listing.
type ListParams struct {
	Page       pagination.Params
	Role       *enums.Role
	Department *string
	IsActive   *bool
	Search     string
}

// ListResult wraps returned users and the page metadata.
type ListResult struct {
	Items []UserDTO       `json:"items"`
	Meta  pagination.Meta `json:"meta"`
}

// NewService wires user administration dependencies.
func NewService(repo Repository, tools ToolReleaser, sessions SessionRevoker, publisher events.Publisher, logg *logger.Logger, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if tools == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tool releaser required")
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &service{
		repo:        repo,
		tools:       tools,
		sessions:    sessions,
		publisher:   publisher,
		logg:        logg,
		passwordCfg: passwordCfg,
	}, nil
}

func (s *service) Create(ctx context.Context, actor policy.Actor, input CreateUserDTO) (*UserDTO, error) {
	if err := policy.Authorize(actor, policy.ActionCreateUser, nil); err != nil {
		return nil, err
	}

	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	role := input.Role
	if role == "" {
		role = enums.RoleEmployee
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role").
			WithDetails(map[string]any{"role": input.Role})
	}

	password := input.Password
	if password == "" {
		generated, err := security.GenerateTempPassword(tempPasswordLength)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temporary password")
		}
		password = generated
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	employeeID := strings.TrimSpace(input.EmployeeID)
	if employeeID == "" {
		next, err := s.repo.MaxEmployeeNumber(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "allocate employee id")
		}
		employeeID = fmt.Sprintf("U%03d", next+1)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         role,
		EmployeeID:   employeeID,
		Department:   input.Department,
		Phone:        input.Phone,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "idx_users_email") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "email already registered")
		}
		if db.IsUniqueViolation(err, "idx_users_employee_id") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "employee id already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "create user")
	}

	return FromModel(user), nil
}

func (s *service) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*UserDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if err := policy.Authorize(actor, policy.ActionViewUser, &id); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "get user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return FromModel(user), nil
}

func (s *service) Profile(ctx context.Context, actor policy.Actor, id uuid.UUID) (*ProfileDTO, error) {
	user, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	assigned, err := s.tools.ListAssignedToUser(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list assigned tools")
	}

	profile := &ProfileDTO{User: *user, AssignedTools: make([]AssignedToolDTO, 0, len(assigned))}
	for _, tool := range assigned {
		profile.AssignedTools = append(profile.AssignedTools, AssignedToolDTO{
			ID:                 tool.ID,
			Name:               tool.Name,
			Status:             tool.Status,
			AssignedDate:       tool.AssignedDate,
			ExpectedReturnDate: tool.ExpectedReturnDate,
		})
	}
	return profile, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.Role != nil && !params.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role filter")
	}

	rows, total, err := s.repo.List(ctx, ListUsersParams{
		Page:       params.Page,
		Role:       params.Role,
		Department: params.Department,
		IsActive:   params.IsActive,
		Search:     params.Search,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list users")
	}

	return &ListResult{
		Items: FromModels(rows),
		Meta:  pagination.MetaFor(params.Page, total),
	}, nil
}

func (s *service) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, patch UpdateUserDTO) (*UserDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	// Self-service edits are allowed; role changes stay Admin-only.
	if err := policy.Authorize(actor, policy.ActionViewUser, &id); err != nil {
		return nil, err
	}
	if patch.Role != nil {
		if err := policy.Authorize(actor, policy.ActionChangeUserRole, nil); err != nil {
			return nil, err
		}
		if !patch.Role.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
		}
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "get user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	if patch.FirstName != nil {
		user.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		user.LastName = *patch.LastName
	}
	if patch.Role != nil {
		user.Role = *patch.Role
	}
	if patch.Department != nil {
		user.Department = patch.Department
	}
	if patch.Phone != nil {
		user.Phone = patch.Phone
	}

	if err := s.repo.Save(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "update user")
	}
	return FromModel(user), nil
}

// Deactivate soft-disables the account, releases every tool assigned to
// it and revokes any live session.
func (s *service) Deactivate(ctx context.Context, actor policy.Actor, id uuid.UUID) (*UserDTO, error) {
	if err := policy.Authorize(actor, policy.ActionDeactivateUser, nil); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "get user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "user already inactive")
	}

	released, err := s.tools.UnassignAllForUser(ctx, id)
	if err != nil {
		return nil, err
	}

	user.IsActive = false
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "deactivate user")
	}

	if s.sessions != nil {
		if err := s.sessions.RevokeUser(ctx, id.String()); err != nil && s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("revoking sessions for %s failed: %v", id, err))
		}
	}

	s.publish(ctx, events.Event{
		Name: events.NameUserDeactivated,
		Payload: map[string]any{
			"userId":        id,
			"toolsReleased": released,
		},
		Audience: events.ForRoles(enums.RoleManager.String(), enums.RoleAdmin.String()),
	})
	return FromModel(user), nil
}

func (s *service) Activate(ctx context.Context, actor policy.Actor, id uuid.UUID) (*UserDTO, error) {
	if err := policy.Authorize(actor, policy.ActionActivateUser, nil); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "get user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "user already active")
	}

	user.IsActive = true
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "activate user")
	}
	return FromModel(user), nil
}

// PermanentDelete removes the account entirely. Assigned tools are
// released first so no tool is left pointing at a missing user.
func (s *service) PermanentDelete(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	if err := policy.Authorize(actor, policy.ActionDeleteUser, nil); err != nil {
		return err
	}
	if actor.ID == id {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot delete your own account")
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "get user")
	}
	if user == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	if _, err := s.tools.UnassignAllForUser(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "delete user")
	}

	if s.sessions != nil {
		if err := s.sessions.RevokeUser(ctx, id.String()); err != nil && s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("revoking sessions for %s failed: %v", id, err))
		}
	}
	return nil
}

func (s *service) Stats(ctx context.Context) (*StatsDTO, error) {
	byRole, err := s.repo.CountByRole(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "count users by role")
	}
	active, inactive, err := s.repo.CountActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "count active users")
	}
	return &StatsDTO{
		Total:    active + inactive,
		Active:   active,
		Inactive: inactive,
		ByRole:   byRole,
	}, nil
}

func (s *service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil && s.logg != nil {
		s.logg.Warn(ctx, fmt.Sprintf("publishing %s event failed: %v", event.Name, err))
	}
}
