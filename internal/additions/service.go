package additions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/toolcrib/toolcrib-backend/internal/policy"
	"github.com/toolcrib/toolcrib-backend/internal/tools"
	"github.com/toolcrib/toolcrib-backend/pkg/db/models"
	"github.com/toolcrib/toolcrib-backend/pkg/enums"
	pkgerrors "github.com/toolcrib/toolcrib-backend/pkg/errors"
	"github.com/toolcrib/toolcrib-backend/pkg/events"
	"github.com/toolcrib/toolcrib-backend/pkg/logger"
	"github.com/toolcrib/toolcrib-backend/pkg/metrics"
	"github.com/toolcrib/toolcrib-backend/pkg/pagination"
)

// transitionKind labels addition request transitions in metrics.
const transitionKind = "addition"

// ToolMaterializer turns an approved draft into inventory.
type ToolMaterializer interface {
	Materialize(ctx context.Context, input tools.CreateToolDTO, createdBy uuid.UUID) (*tools.ToolDTO, error)
}

// Service owns the tool addition request lifecycle.
type Service interface {
	Create(ctx context.Context, actor policy.Actor, input CreateAdditionDTO) (*AdditionDTO, error)
	Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*AdditionDTO, error)
	List(ctx context.Context, actor policy.Actor, params ListParams) (*ListResult, error)
	Review(ctx context.Context, actor policy.Actor, id uuid.UUID, input ReviewAdditionDTO) (*AdditionDTO, error)
	Cancel(ctx context.Context, actor policy.Actor, id uuid.UUID) (*AdditionDTO, error)
	Stats(ctx context.Context, actor policy.Actor) (*StatsDTO, error)
}

// ListParams filters the addition request listing.
type ListParams struct {
	Page        pagination.Params
	Status      string
	Urgency     string
	RequestedBy *uuid.UUID
}

// ListResult is a page of addition requests with pagination metadata.
type ListResult struct {
	Requests []AdditionDTO   `json:"requests"`
	Meta     pagination.Meta `json:"meta"`
}

type serviceImpl struct {
	repo      Repository
	tools     ToolMaterializer
	publisher events.Publisher
	logg      *logger.Logger
	lifecycle *metrics.LifecycleMetrics
	now       func() time.Time
}

// NewService wires the addition request service.
func NewService(repo Repository, materializer ToolMaterializer, publisher events.Publisher, logg *logger.Logger, lifecycle *metrics.LifecycleMetrics) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "additions repository required")
	}
	if materializer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tool materializer required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &serviceImpl{
		repo:      repo,
		tools:     materializer,
		publisher: publisher,
		logg:      logg,
		lifecycle: lifecycle,
		now:       time.Now,
	}, nil
}

func (s *serviceImpl) Create(ctx context.Context, actor policy.Actor, input CreateAdditionDTO) (*AdditionDTO, error) {
	defer s.lifecycle.Timer("addition-create")()
	if !actor.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is deactivated")
	}
	category, err := enums.ParseToolCategory(input.ToolData.Category)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tool category")
	}
	urgency := enums.UrgencyMedium
	if input.Urgency != "" {
		urgency, err = enums.ParseUrgency(input.Urgency)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid urgency")
		}
	}

	open, err := s.repo.HasOpenRequestForDraft(ctx, actor.ID, input.ToolData.Name, category)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to check open requests")
	}
	if open {
		return nil, pkgerrors.New(pkgerrors.CodeDuplicateReq, "you already have an open request for this tool").
			WithDetails(map[string]any{"toolName": input.ToolData.Name, "category": category})
	}

	request := newAdditionModel(actor, input, category, urgency)
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to create request")
	}

	created, err := s.repo.GetByID(ctx, request.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to reload request")
	}
	dto := FromModel(created)

	s.lifecycle.IncTransition(transitionKind, string(enums.RequestStatusPending))
	s.publish(ctx, events.Event{
		Name:     events.NameAdditionRequestCreated,
		Payload:  dto,
		Audience: events.ForRoles(enums.RoleManager.String(), enums.RoleAdmin.String()),
	})
	return dto, nil
}

func (s *serviceImpl) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*AdditionDTO, error) {
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
	repoParams := ListAdditionsParams{
		Page:        params.Page,
		RequestedBy: params.RequestedBy,
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

func (s *serviceImpl) Review(ctx context.Context, actor policy.Actor, id uuid.UUID, input ReviewAdditionDTO) (*AdditionDTO, error) {
	defer s.lifecycle.Timer("addition-review")()
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
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "request has already been reviewed")
	}

	if decision == enums.RequestStatusApproved {
		if err := s.materialize(ctx, actor, request, now); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to reload request")
	}
	dto := FromModel(updated)

	s.lifecycle.IncTransition(transitionKind, string(decision))
	s.publish(ctx, events.Event{
		Name:     events.NameRequestReviewed,
		Payload:  dto,
		Audience: events.ForUser(request.RequestedByID),
	})
	return dto, nil
}

// materialize turns an approved draft into a tool and links it back.
// Serial collisions hand the request back to the queue; any other
// creation failure leaves the review persisted as approved so an admin
// can finish the job by hand.
func (s *serviceImpl) materialize(ctx context.Context, actor policy.Actor, request *models.ToolAdditionRequest, now time.Time) error {
	serial := GenerateSerial(request.ToolData.Category, now)
	created, err := s.tools.Materialize(ctx, tools.CreateToolDTO{
		Name:         request.ToolData.Name,
		Category:     request.ToolData.Category,
		Location:     request.ToolData.Location,
		SerialNumber: &serial,
	}, actor.ID)
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeDuplicateSerial {
			if revertErr := s.repo.RevertToPending(ctx, request.ID); revertErr != nil {
				s.logg.Error(ctx, "reverting request after serial collision", revertErr)
			}
			return err
		}
		s.logg.Error(ctx, "materializing tool for approved request", err)
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err,
			"request approved but tool creation failed; create the tool manually").
			WithDetails(map[string]any{"requestId": request.ID})
	}

	if err := s.repo.LinkCreatedTool(ctx, request.ID, created.ID); err != nil {
		s.logg.Error(ctx, "linking created tool to request", err)
	}
	return nil
}

func (s *serviceImpl) Cancel(ctx context.Context, actor policy.Actor, id uuid.UUID) (*AdditionDTO, error) {
	defer s.lifecycle.Timer("addition-cancel")()
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

	s.lifecycle.IncTransition(transitionKind, string(enums.RequestStatusCancelled))
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
	byUrgency, err := s.repo.CountByField(ctx, "urgency")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to aggregate urgencies")
	}

	var total int64
	for _, count := range byStatus {
		total += count
	}
	return &StatsDTO{Total: total, ByStatus: byStatus, ByUrgency: byUrgency}, nil
}

func (s *serviceImpl) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.lifecycle.IncEvent(event.Name, "error")
		s.logg.Warn(ctx, fmt.Sprintf("publishing %s event failed: %v", event.Name, err))
		return
	}
	s.lifecycle.IncEvent(event.Name, "ok")
}
