package requests

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/toolcrib/toolcrib-backend/internal/policy"
	"github.com/toolcrib/toolcrib-backend/internal/tools"
	"github.com/toolcrib/toolcrib-backend/pkg/enums"
	pkgerrors "github.com/toolcrib/toolcrib-backend/pkg/errors"
	"github.com/toolcrib/toolcrib-backend/pkg/events"
	"github.com/toolcrib/toolcrib-backend/pkg/logger"
	"github.com/toolcrib/toolcrib-backend/pkg/metrics"
	"github.com/toolcrib/toolcrib-backend/pkg/pagination"
)

// ToolDirectory is the slice of the tools service the request
// lifecycle needs: existence checks and the borrow-approval handoff.
type ToolDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*tools.ToolDTO, error)
	Assign(ctx context.Context, toolID, userID uuid.UUID, expectedReturn *time.Time) (*tools.ToolDTO, error)
}

// Service owns the tool request lifecycle.
type Service interface {
	Create(ctx context.Context, actor policy.Actor, input CreateRequestDTO) (*RequestDTO, error)
	Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*RequestDTO, error)
	List(ctx context.Context, actor policy.Actor, params ListParams) (*ListResult, error)
	Review(ctx context.Context, actor policy.Actor, id uuid.UUID, input ReviewRequestDTO) (*RequestDTO, error)
	Cancel(ctx context.Context, actor policy.Actor, id uuid.UUID) (*RequestDTO, error)
	Stats(ctx context.Context, actor policy.Actor) (*StatsDTO, error)
}

// ListParams filters the request listing.
type ListParams struct {
	Page        pagination.Params
	Status      string
	RequestType string
	Urgency     string
	RequestedBy *uuid.UUID
	ToolID      *uuid.UUID
}

// ListResult is a page of requests with pagination metadata.
type ListResult struct {
	Requests []RequestDTO    `json:"requests"`
	Meta     pagination.Meta `json:"meta"`
}

type serviceImpl struct {
	repo      Repository
	tools     ToolDirectory
	publisher events.Publisher
	logg      *logger.Logger
	lifecycle *metrics.LifecycleMetrics
	now       func() time.Time
}

// NewService wires the request lifecycle service.
func NewService(repo Repository, toolDir ToolDirectory, publisher events.Publisher, logg *logger.Logger, lifecycle *metrics.LifecycleMetrics) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "requests repository required")
	}
	if toolDir == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tool directory required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &serviceImpl{
		repo:      repo,
		tools:     toolDir,
		publisher: publisher,
		logg:      logg,
		lifecycle: lifecycle,
		now:       time.Now,
	}, nil
}

func (s *serviceImpl) Create(ctx context.Context, actor policy.Actor, input CreateRequestDTO) (*RequestDTO, error) {
	defer s.lifecycle.Timer("request-create")()
	if !actor.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is deactivated")
	}
	requestType, err := enums.ParseRequestType(input.RequestType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request type")
	}
	if requestType == enums.RequestTypeBorrow && (input.ExpectedDuration == nil || *input.ExpectedDuration <= 0) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expectedDuration is required for borrow requests")
	}
	urgency := enums.UrgencyMedium
	if input.Urgency != "" {
		urgency, err = enums.ParseUrgency(input.Urgency)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid urgency")
		}
	}

	tool, err := s.tools.Get(ctx, input.ToolID)
	if err != nil {
		return nil, err
	}
	if tool == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tool not found")
	}

	open, err := s.repo.HasOpenRequestForTool(ctx, actor.ID, input.ToolID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to check open requests")
	}
	if open {
		return nil, pkgerrors.New(pkgerrors.CodeDuplicateReq, "you already have an open request for this tool").
			WithDetails(map[string]any{"toolId": input.ToolID})
	}

	request := newRequestModel(actor, input, requestType, urgency)
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to create request")
	}

	created, err := s.repo.GetByID(ctx, request.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to reload request")
	}
	dto := FromModel(created)

	s.lifecycle.IncTransition(string(requestType), string(enums.RequestStatusPending))
	s.publish(ctx, events.Event{
		Name:     events.NameRequestCreated,
		Payload:  dto,
		Audience: events.ForRoles(enums.RoleManager.String(), enums.RoleAdmin.String()),
	})
	return dto, nil
}

func (s *serviceImpl) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*RequestDTO, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to load request")
	}
	if request == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
	}
	if err := policy.Authorize(actor, policy.ActionViewRequest, &request.RequestedByID); err != nil {
		return nil, err
	}
	return FromModel(request), nil
}

func (s *serviceImpl) List(ctx context.Context, actor policy.Actor, params ListParams) (*ListResult, error) {
	repoParams := ListRequestsParams{
		Page:        params.Page,
		RequestedBy: params.RequestedBy,
		ToolID:      params.ToolID,
	}
	// Employees only ever see their own requests.
	if !actor.Role.IsReviewer() {
		repoParams.RequestedBy = &actor.ID
	}
	if params.Status != "" {
		status, err := enums.ParseRequestStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		repoParams.Status = &status
	}
	if params.RequestType != "" {
		requestType, err := enums.ParseRequestType(params.RequestType)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request type filter")
		}
		repoParams.RequestType = &requestType
	}
	if params.Urgency != "" {
		urgency, err := enums.ParseUrgency(params.Urgency)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid urgency filter")
		}
		repoParams.Urgency = &urgency
	}

	rows, total, err := s.repo.List(ctx, repoParams)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to list requests")
	}
	return &ListResult{
		Requests: FromModels(rows),
		Meta:     pagination.MetaFor(params.Page, total),
	}, nil
}

func (s *serviceImpl) Review(ctx context.Context, actor policy.Actor, id uuid.UUID, input ReviewRequestDTO) (*RequestDTO, error) {
	defer s.lifecycle.Timer("request-review")()
	if err := policy.Authorize(actor, policy.ActionReviewRequest, nil); err != nil {
		return nil, err
	}
	decision, err := enums.ParseRequestStatus(input.Decision)
	if err != nil || (decision != enums.RequestStatusApproved && decision != enums.RequestStatusRejected) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "decision must be approved or rejected")
	}

	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to load request")
	}
	if request == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
	}
	if request.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "request has already been reviewed").
			WithDetails(map[string]any{"status": request.Status})
	}

	now := s.now().UTC()
	reviewed, err := s.repo.MarkReviewed(ctx, id, ReviewUpdate{
		Status:     decision,
		ReviewerID: actor.ID,
		Comments:   input.Comments,
		Now:        now,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to record review")
	}
	if !reviewed {
		// Lost the race to another reviewer.
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "request has already been reviewed")
	}

	if decision == enums.RequestStatusApproved && request.RequestType == enums.RequestTypeBorrow {
		expectedReturn := expectedReturnDate(request.ExpectedDuration, now)
		if _, err := s.tools.Assign(ctx, request.ToolID, request.RequestedByID, expectedReturn); err != nil {
			// Give the request back to the queue so it can be
			// reviewed again once the tool frees up.
			if revertErr := s.repo.RevertToPending(ctx, id); revertErr != nil {
				s.logg.Error(ctx, "reverting request after assignment failure", revertErr)
			}
			return nil, err
		}
	}

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to reload request")
	}
	dto := FromModel(updated)

	s.lifecycle.IncTransition(string(request.RequestType), string(decision))
	s.publish(ctx, events.Event{
		Name:     events.NameRequestReviewed,
		Payload:  dto,
		Audience: events.ForUser(request.RequestedByID),
	})
	return dto, nil
}

func (s *serviceImpl) Cancel(ctx context.Context, actor policy.Actor, id uuid.UUID) (*RequestDTO, error) {
	defer s.lifecycle.Timer("request-cancel")()
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to load request")
	}
	if request == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
	}
	if err := policy.Authorize(actor, policy.ActionCancelRequest, &request.RequestedByID); err != nil {
		return nil, err
	}
	if request.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only pending requests can be cancelled").
			WithDetails(map[string]any{"status": request.Status})
	}

	cancelled, err := s.repo.MarkCancelled(ctx, id, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to cancel request")
	}
	if !cancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only pending requests can be cancelled")
	}

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to reload request")
	}
	dto := FromModel(updated)

	s.lifecycle.IncTransition(string(request.RequestType), string(enums.RequestStatusCancelled))
	s.publish(ctx, events.Event{
		Name:     events.NameRequestCancelled,
		Payload:  dto,
		Audience: events.ForRoles(enums.RoleManager.String(), enums.RoleAdmin.String()),
	})
	return dto, nil
}

func (s *serviceImpl) Stats(ctx context.Context, actor policy.Actor) (*StatsDTO, error) {
	if err := policy.Authorize(actor, policy.ActionReviewRequest, nil); err != nil {
		return nil, err
	}
	byStatus, err := s.repo.CountByField(ctx, "status")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to aggregate statuses")
	}
	byType, err := s.repo.CountByField(ctx, "request_type")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to aggregate types")
	}
	byUrgency, err := s.repo.CountByField(ctx, "urgency")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to aggregate urgencies")
	}
	recent, err := s.repo.RecentPending(ctx, 5)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to load pending requests")
	}

	var total int64
	for _, count := range byStatus {
		total += count
	}
	return &StatsDTO{
		Total:         total,
		ByStatus:      byStatus,
		ByType:        byType,
		ByUrgency:     byUrgency,
		RecentPending: FromModels(recent),
	}, nil
}

func (s *serviceImpl) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.lifecycle.IncEvent(event.Name, "error")
		s.logg.Warn(ctx, fmt.Sprintf("publishing %s event failed: %v", event.Name, err))
		return
	}
	s.lifecycle.IncEvent(event.Name, "ok")
}

// expectedReturnDate converts the requested duration in days into a
// concrete return date for the assignment.
func expectedReturnDate(durationDays *int, now time.Time) *time.Time {
	if durationDays == nil || *durationDays <= 0 {
		return nil
	}
	due := now.AddDate(0, 0, *durationDays)
	return &due
}
