package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/toolcrib/toolcrib-backend/internal/maintenance"
	"github.com/toolcrib/toolcrib-backend/internal/policy"
	"github.com/toolcrib/toolcrib-backend/pkg/db/models"
	"github.com/toolcrib/toolcrib-backend/pkg/enums"
	pkgerrors "github.com/toolcrib/toolcrib-backend/pkg/errors"
	"github.com/toolcrib/toolcrib-backend/pkg/events"
	"github.com/toolcrib/toolcrib-backend/pkg/logger"
)

// ToolCounter exposes the tool counts needed for system status.
type ToolCounter interface {
	CountByField(ctx context.Context, field string) (map[string]int64, error)
}

// UserCounter exposes the user counts needed for system status.
type UserCounter interface {
	CountActive(ctx context.Context) (int64, int64, error)
}

// RequestCounter exposes the request counts needed for system status.
type RequestCounter interface {
	CountByField(ctx context.Context, field string) (map[string]int64, error)
}

// MaintenanceSource exposes tasks so overdue work is counted from the
// live definition rather than persisted statuses.
type MaintenanceSource interface {
	ListAll(ctx context.Context) ([]models.MaintenanceTask, error)
}

// Service broadcasts announcements to the dashboard feed and reports
// live system counts.
type Service interface {
	Broadcast(ctx context.Context, actor policy.Actor, input BroadcastDTO) (*BroadcastResultDTO, error)
	SystemStatus(ctx context.Context) (*SystemStatusDTO, error)
}

// BroadcastDTO is the announcement payload. Empty roles means every
// connected user receives it.
type BroadcastDTO struct {
	Title   string   `json:"title" validate:"required"`
	Message string   `json:"message" validate:"required"`
	Roles   []string `json:"roles"`
}

// BroadcastResultDTO echoes what was published.
type BroadcastResultDTO struct {
	Title   string    `json:"title"`
	Roles   []string  `json:"roles,omitempty"`
	SentAt  time.Time `json:"sentAt"`
	SentBy  string    `json:"sentBy"`
	Message string    `json:"message"`
}

// SystemStatusDTO aggregates live counts for the status endpoint.
type SystemStatusDTO struct {
	Tools              map[string]int64 `json:"tools"`
	ActiveUsers        int64            `json:"activeUsers"`
	InactiveUsers      int64            `json:"inactiveUsers"`
	PendingRequests    int64            `json:"pendingRequests"`
	PendingAdditions   int64            `json:"pendingAdditions"`
	OverdueMaintenance int64            `json:"overdueMaintenance"`
	Timestamp          time.Time        `json:"timestamp"`
}

type service struct {
	tools     ToolCounter
	users     UserCounter
	requests  RequestCounter
	additions RequestCounter
	tasks     MaintenanceSource
	publisher events.Publisher
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires notification dependencies.
func NewService(tools ToolCounter, users UserCounter, requests, additions RequestCounter, tasks MaintenanceSource, publisher events.Publisher, logg *logger.Logger) (Service, error) {
	if tools == nil || users == nil || requests == nil || additions == nil || tasks == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification counters required")
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &service{
		tools:     tools,
		users:     users,
		requests:  requests,
		additions: additions,
		tasks:     tasks,
		publisher: publisher,
		logg:      logg,
		now:       time.Now,
	}, nil
}

func (s *service) Broadcast(ctx context.Context, actor policy.Actor, input BroadcastDTO) (*BroadcastResultDTO, error) {
	if err := policy.Authorize(actor, policy.ActionBroadcast, nil); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	message := strings.TrimSpace(input.Message)
	if title == "" || message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and message required")
	}

	roles := make([]string, 0, len(input.Roles))
	for _, raw := range input.Roles {
		role, err := enums.ParseRole(raw)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown role").
				WithDetails(map[string]any{"role": raw})
		}
		roles = append(roles, role.String())
	}

	audience := events.Broadcast
	if len(roles) > 0 {
		audience = events.ForRoles(roles...)
	}

	now := s.now().UTC()
	result := &BroadcastResultDTO{
		Title:   title,
		Message: message,
		Roles:   roles,
		SentAt:  now,
		SentBy:  actor.ID.String(),
	}

	if err := s.publisher.Publish(ctx, events.Event{
		Name:     events.NameCustomNotification,
		Payload:  result,
		Audience: audience,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish notification")
	}
	return result, nil
}

func (s *service) SystemStatus(ctx context.Context) (*SystemStatusDTO, error) {
	toolCounts, err := s.tools.CountByField(ctx, "status")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "count tools")
	}
	active, inactive, err := s.users.CountActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "count users")
	}
	requestCounts, err := s.requests.CountByField(ctx, "status")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "count requests")
	}
	additionCounts, err := s.additions.CountByField(ctx, "status")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "count addition requests")
	}

	now := s.now().UTC()
	tasks, err := s.tasks.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list maintenance tasks")
	}
	var overdue int64
	for i := range tasks {
		if maintenance.Reclassify(&tasks[i], now) == enums.MaintenanceStatusOverdue {
			overdue++
		}
	}

	if s.logg != nil {
		s.logg.Info(ctx, fmt.Sprintf("system status: %d tools, %d active users", sum(toolCounts), active))
	}

	return &SystemStatusDTO{
		Tools:              toolCounts,
		ActiveUsers:        active,
		InactiveUsers:      inactive,
		PendingRequests:    requestCounts[enums.RequestStatusPending.String()],
		PendingAdditions:   additionCounts[enums.RequestStatusPending.String()],
		OverdueMaintenance: overdue,
		Timestamp:          now,
	}, nil
}

func sum(counts map[string]int64) int64 {
	var total int64
	for _, n := range counts {
		total += n
	}
	return total
}
