package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/toolcrib/toolcrib-backend/internal/policy"
	"github.com/toolcrib/toolcrib-backend/pkg/db"
	"github.com/toolcrib/toolcrib-backend/pkg/db/models"
	"github.com/toolcrib/toolcrib-backend/pkg/enums"
	pkgerrors "github.com/toolcrib/toolcrib-backend/pkg/errors"
	"github.com/toolcrib/toolcrib-backend/pkg/events"
	"github.com/toolcrib/toolcrib-backend/pkg/logger"
	"github.com/toolcrib/toolcrib-backend/pkg/metrics"
	"github.com/toolcrib/toolcrib-backend/pkg/pagination"
)

// UserDirectory is the slice of the users package needed for assignment.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmployeeID(ctx context.Context, employeeID string) (*models.User, error)
}

// Service defines inventory and assignment operations.
type Service interface {
	Create(ctx context.Context, actor policy.Actor, input CreateToolDTO) (*ToolDTO, error)
	Materialize(ctx context.Context, input CreateToolDTO, createdBy uuid.UUID) (*ToolDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ToolDTO, error)
	FindByName(ctx context.Context, name string) (*ToolDTO, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Update(ctx context.Context, actor policy.Actor, id uuid.UUID, patch UpdateToolDTO) (*ToolDTO, error)
	Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error
	Assign(ctx context.Context, toolID, userID uuid.UUID, expectedReturn *time.Time) (*ToolDTO, error)
	QuickAssignByName(ctx context.Context, actor policy.Actor, employeeID, toolName string, expectedReturn *time.Time) (*ToolDTO, error)
	Return(ctx context.Context, actor policy.Actor, toolName string, condition *enums.ToolCondition, notes string) (*ToolDTO, error)
	UnassignAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	ListAssignedToUser(ctx context.Context, userID uuid.UUID) ([]models.Tool, error)
	ListOverdue(ctx context.Context) ([]ToolDTO, error)
	Stats(ctx context.Context) (*StatsDTO, error)
}

type service struct {
	repo      Repository
	users     UserDirectory
	publisher events.Publisher
	logg      *logger.Logger
	metrics   *metrics.LifecycleMetrics
}

// ListParams configures filters and pagination for the tool listing.
type ListParams struct {
	Page       pagination.Params
	Status     *enums.ToolStatus
	Category   *enums.ToolCategory
	Condition  *enums.ToolCondition
	AssignedTo *uuid.UUID
	Search     string
}

// ListResult wraps returned tools and the page metadata.
type ListResult struct {
	Items []ToolDTO       `json:"items"`
	Meta  pagination.Meta `json:"meta"`
}

// StatsDTO summarizes the inventory for dashboards.
type StatsDTO struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"byStatus"`
	ByCategory map[string]int64 `json:"byCategory"`
}

// NewService wires tool dependencies.
func NewService(repo Repository, users UserDirectory, publisher events.Publisher, logg *logger.Logger, lifecycle *metrics.LifecycleMetrics) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tools repository required")
	}
	if users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user directory required")
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &service{
		repo:      repo,
		users:     users,
		publisher: publisher,
		logg:      logg,
		metrics:   lifecycle,
	}, nil
}

func (s *service) Create(ctx context.Context, actor policy.Actor, input CreateToolDTO) (*ToolDTO, error) {
	if err := policy.Authorize(actor, policy.ActionCreateTool, nil); err != nil {
		return nil, err
	}
	return s.Materialize(ctx, input, actor.ID)
}

// Materialize creates a tool record without a permission check. The
// request lifecycle uses it when an approved addition request turns
// into inventory; the reviewer becomes the creator.
func (s *service) Materialize(ctx context.Context, input CreateToolDTO, createdBy uuid.UUID) (*ToolDTO, error) {
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid tool category").
			WithDetails(map[string]any{"category": input.Category})
	}
	if input.Condition != "" && !input.Condition.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid tool condition").
			WithDetails(map[string]any{"condition": input.Condition})
	}

	tool := input.toModel(createdBy)
	if err := s.repo.Create(ctx, tool); err != nil {
		if db.IsUniqueViolation(err, "idx_tools_serial_number") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDuplicateSerial, err, "serial number already in use").
				WithDetails(map[string]any{"serialNumber": input.SerialNumber})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "create tool")
	}

	s.publish(ctx, events.Event{
		Name:     events.NameToolCreated,
		Payload:  FromModel(tool),
		Audience: events.Broadcast,
	})
	return FromModel(tool), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ToolDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tool id required")
	}
	tool, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "get tool")
	}
	if tool == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tool not found")
	}
	return FromModel(tool), nil
}

// FindByName resolves the oldest tool whose name contains the given
// fragment, regardless of status.
func (s *service) FindByName(ctx context.Context, name string) (*ToolDTO, error) {
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tool name required")
	}
	tool, err := s.repo.FirstByName(ctx, name)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "find tool by name")
	}
	if tool == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no tool matches").
			WithDetails(map[string]any{"toolName": name})
	}
	return FromModel(tool), nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	if params.Category != nil && !params.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category filter")
	}

	rows, total, err := s.repo.List(ctx, ListToolsParams{
		Page:       params.Page,
		Status:     params.Status,
		Category:   params.Category,
		Condition:  params.Condition,
		AssignedTo: params.AssignedTo,
		Search:     params.Search,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list tools")
	}

	return &ListResult{
		Items: FromModels(rows),
		Meta:  pagination.MetaFor(params.Page, total),
	}, nil
}

func (s *service) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, patch UpdateToolDTO) (*ToolDTO, error) {
	if err := policy.Authorize(actor, policy.ActionUpdateTool, nil); err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tool id required")
	}
	if patch.Status != nil && !patch.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid tool status")
	}
	if patch.Condition != nil && !patch.Condition.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid tool condition")
	}
	if patch.Category != nil && !patch.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid tool category")
	}

	tool, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "get tool")
	}
	if tool == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tool not found")
	}

	applyToolPatch(tool, patch)
	if err := s.repo.Save(ctx, tool); err != nil {
		if db.IsUniqueViolation(err, "idx_tools_serial_number") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDuplicateSerial, err, "serial number already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "update tool")
	}
	return FromModel(tool), nil
}

func (s *service) Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	if err := policy.Authorize(actor, policy.ActionDeleteTool, nil); err != nil {
		return err
	}
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tool id required")
	}

	tool, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "get tool")
	}
	if tool == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "tool not found")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "delete tool")
	}
	return nil
}

// Assign hands the tool to the user. The conditional update only
// succeeds while the tool is still Available, so two concurrent assigns
// cannot both win.
func (s *service) Assign(ctx context.Context, toolID, userID uuid.UUID, expectedReturn *time.Time) (*ToolDTO, error) {
	defer s.metrics.Timer("tool-assign")()
	if toolID == uuid.Nil || userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tool id and user id required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "get user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUserInactive, "cannot assign tools to an inactive user")
	}

	tool, err := s.repo.GetByID(ctx, toolID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "get tool")
	}
	if tool == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tool not found")
	}

	assigned, err := s.repo.AssignIfAvailable(ctx, toolID, userID, time.Now().UTC(), expectedReturn)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "assign tool")
	}
	if !assigned {
		return nil, pkgerrors.New(pkgerrors.CodeToolUnavailable, "tool is not available").
			WithDetails(map[string]any{"toolId": toolID, "status": tool.Status})
	}
	s.metrics.IncAssignment("assign")

	updated, err := s.repo.GetByID(ctx, toolID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "reload tool")
	}

	s.publish(ctx, events.Event{
		Name:     events.NameToolAssigned,
		Payload:  FromModel(updated),
		Audience: events.ForUser(userID),
	})
	return FromModel(updated), nil
}

func (s *service) QuickAssignByName(ctx context.Context, actor policy.Actor, employeeID, toolName string, expectedReturn *time.Time) (*ToolDTO, error) {
	if err := policy.Authorize(actor, policy.ActionQuickAssign, nil); err != nil {
		return nil, err
	}
	if employeeID == "" || toolName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "employee id and tool name required")
	}

	user, err := s.users.GetByEmployeeID(ctx, employeeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "get user by employee id")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "employee not found").
			WithDetails(map[string]any{"employeeId": employeeID})
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUserInactive, "cannot assign tools to an inactive user")
	}

	tool, err := s.repo.FirstAvailableByName(ctx, toolName)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "find available tool")
	}
	if tool == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no available tool matches").
			WithDetails(map[string]any{"toolName": toolName})
	}

	return s.Assign(ctx, tool.ID, user.ID, expectedReturn)
}

func (s *service) Return(ctx context.Context, actor policy.Actor, toolName string, condition *enums.ToolCondition, notes string) (*ToolDTO, error) {
	defer s.metrics.Timer("tool-return")()
	if err := policy.Authorize(actor, policy.ActionQuickReturn, nil); err != nil {
		return nil, err
	}
	if toolName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tool name required")
	}
	if condition != nil && !condition.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid tool condition")
	}

	// Employees only see their own assignment; the scoped lookup makes
	// someone else's tool indistinguishable from a missing one.
	var scope *uuid.UUID
	if !policy.CanReturnAnyTool(actor) {
		scope = &actor.ID
	}

	tool, err := s.repo.FirstInUseByName(ctx, toolName, scope)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "find in-use tool")
	}
	if tool == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no matching tool to return").
			WithDetails(map[string]any{"toolName": toolName})
	}

	now := time.Now().UTC()
	fields := map[string]any{"updated_at": now}
	if condition != nil {
		fields["condition"] = *condition
	}
	if notes != "" {
		fields["notes"] = appendReturnNotes(tool.Notes, notes, now)
	}

	released, err := s.repo.Release(ctx, tool.ID, fields)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "return tool")
	}
	if !released {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "tool already returned")
	}
	s.metrics.IncAssignment("return")

	updated, err := s.repo.GetByID(ctx, tool.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "reload tool")
	}

	s.publish(ctx, events.Event{
		Name:     events.NameToolReturned,
		Payload:  FromModel(updated),
		Audience: events.Broadcast,
	})
	return FromModel(updated), nil
}

func (s *service) UnassignAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	count, err := s.repo.UnassignAllForUser(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "unassign tools")
	}
	if count > 0 {
		s.metrics.IncAssignment("unassign")
	}
	return count, nil
}

func (s *service) ListAssignedToUser(ctx context.Context, userID uuid.UUID) ([]models.Tool, error) {
	rows, err := s.repo.ListAssignedToUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list assigned tools")
	}
	return rows, nil
}

func (s *service) ListOverdue(ctx context.Context) ([]ToolDTO, error) {
	rows, err := s.repo.ListOverdue(ctx, time.Now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list overdue tools")
	}
	return FromModels(rows), nil
}

func (s *service) Stats(ctx context.Context) (*StatsDTO, error) {
	byStatus, err := s.repo.CountByField(ctx, "status")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "count tools by status")
	}
	byCategory, err := s.repo.CountByField(ctx, "category")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "count tools by category")
	}

	var total int64
	for _, n := range byStatus {
		total += n
	}
	return &StatsDTO{Total: total, ByStatus: byStatus, ByCategory: byCategory}, nil
}

func (s *service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.metrics.IncEvent(event.Name, "error")
		if s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("publishing %s event failed: %v", event.Name, err))
		}
		return
	}
	s.metrics.IncEvent(event.Name, "ok")
}

func appendReturnNotes(existing *string, notes string, now time.Time) string {
	entry := fmt.Sprintf("[Return Notes %s: %s]", now.Format("2006-01-02 15:04"), notes)
	if existing == nil || *existing == "" {
		return entry
	}
	return *existing + "\n" + entry
}

func applyToolPatch(tool *models.Tool, patch UpdateToolDTO) {
	if patch.Name != nil {
		tool.Name = *patch.Name
	}
	if patch.Description != nil {
		tool.Description = patch.Description
	}
	if patch.Category != nil {
		tool.Category = *patch.Category
	}
	if patch.Brand != nil {
		tool.Brand = patch.Brand
	}
	if patch.Model != nil {
		tool.Model = patch.Model
	}
	if patch.SerialNumber != nil {
		tool.SerialNumber = patch.SerialNumber
	}
	if patch.Location != nil {
		tool.Location = patch.Location
	}
	if patch.Status != nil {
		tool.Status = *patch.Status
	}
	if patch.Condition != nil {
		tool.Condition = *patch.Condition
	}
	if patch.PurchaseDate != nil {
		tool.PurchaseDate = patch.PurchaseDate
	}
	if patch.PurchasePrice != nil {
		tool.PurchasePrice = patch.PurchasePrice
	}
	if patch.LastMaintenanceDate != nil {
		tool.LastMaintenanceDate = patch.LastMaintenanceDate
	}
	if patch.NextMaintenanceDate != nil {
		tool.NextMaintenanceDate = patch.NextMaintenanceDate
	}
	if patch.Notes != nil {
		tool.Notes = patch.Notes
	}
}
