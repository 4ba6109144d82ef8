package additions

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/toolcrib/toolcrib-backend/internal/policy"
	"github.com/toolcrib/toolcrib-backend/internal/tools"
	"github.com/toolcrib/toolcrib-backend/pkg/db/models"
	"github.com/toolcrib/toolcrib-backend/pkg/enums"
	pkgerrors "github.com/toolcrib/toolcrib-backend/pkg/errors"
	"github.com/toolcrib/toolcrib-backend/pkg/events"
	"github.com/toolcrib/toolcrib-backend/pkg/logger"
)

type fakeAdditionRepo struct {
	byID map[uuid.UUID]*models.ToolAdditionRequest
	open bool
}

func newFakeAdditionRepo() *fakeAdditionRepo {
	return &fakeAdditionRepo{byID: map[uuid.UUID]*models.ToolAdditionRequest{}}
}

func (f *fakeAdditionRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeAdditionRepo) Create(_ context.Context, request *models.ToolAdditionRequest) error {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	request.CreatedAt = time.Now()
	f.byID[request.ID] = request
	return nil
}

func (f *fakeAdditionRepo) GetByID(_ context.Context, id uuid.UUID) (*models.ToolAdditionRequest, error) {
	request, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	clone := *request
	return &clone, nil
}

func (f *fakeAdditionRepo) List(_ context.Context, params ListAdditionsParams) ([]models.ToolAdditionRequest, int64, error) {
	var rows []models.ToolAdditionRequest
	for _, request := range f.byID {
		if params.RequestedBy != nil && request.RequestedByID != *params.RequestedBy {
			continue
		}
		rows = append(rows, *request)
	}
	return rows, int64(len(rows)), nil
}

func (f *fakeAdditionRepo) HasOpenRequestForDraft(_ context.Context, _ uuid.UUID, _ string, _ enums.ToolCategory) (bool, error) {
	return f.open, nil
}

func (f *fakeAdditionRepo) MarkReviewed(_ context.Context, id uuid.UUID, review ReviewUpdate) (bool, error) {
	request, ok := f.byID[id]
	if !ok || request.Status != enums.RequestStatusPending {
		return false, nil
	}
	request.Status = review.Status
	request.ReviewedByID = &review.ReviewerID
	now := review.Now
	request.ReviewedAt = &now
	request.ReviewComments = review.Comments
	if review.Status == enums.RequestStatusApproved {
		request.ApprovedAt = &now
	}
	return true, nil
}

func (f *fakeAdditionRepo) RevertToPending(_ context.Context, id uuid.UUID) error {
	request, ok := f.byID[id]
	if !ok {
		return nil
	}
	request.Status = enums.RequestStatusPending
	request.ReviewedByID = nil
	request.ReviewedAt = nil
	request.ReviewComments = nil
	request.ApprovedAt = nil
	return nil
}

func (f *fakeAdditionRepo) LinkCreatedTool(_ context.Context, id, toolID uuid.UUID) error {
	if request, ok := f.byID[id]; ok {
		request.CreatedToolID = &toolID
	}
	return nil
}

func (f *fakeAdditionRepo) MarkCancelled(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	request, ok := f.byID[id]
	if !ok || request.Status != enums.RequestStatusPending {
		return false, nil
	}
	request.Status = enums.RequestStatusCancelled
	request.UpdatedAt = now
	return true, nil
}

func (f *fakeAdditionRepo) CountByField(_ context.Context, field string) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, request := range f.byID {
		switch field {
		case "status":
			counts[string(request.Status)]++
		case "urgency":
			counts[string(request.Urgency)]++
		}
	}
	return counts, nil
}

func (f *fakeAdditionRepo) ListAll(_ context.Context) ([]models.ToolAdditionRequest, error) {
	var rows []models.ToolAdditionRequest
	for _, request := range f.byID {
		rows = append(rows, *request)
	}
	return rows, nil
}

type fakeMaterializer struct {
	err     error
	created *tools.ToolDTO
	serials []string
}

func (f *fakeMaterializer) Materialize(_ context.Context, input tools.CreateToolDTO, createdBy uuid.UUID) (*tools.ToolDTO, error) {
	if input.SerialNumber != nil {
		f.serials = append(f.serials, *input.SerialNumber)
	}
	if f.err != nil {
		return nil, f.err
	}
	f.created = &tools.ToolDTO{
		ID:           uuid.New(),
		Name:         input.Name,
		Category:     input.Category,
		SerialNumber: input.SerialNumber,
		Status:       enums.ToolStatusAvailable,
		CreatedBy:    &createdBy,
	}
	return f.created, nil
}

type recordingPublisher struct {
	published []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	r.published = append(r.published, event)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestService(t *testing.T, repo Repository, materializer ToolMaterializer) Service {
	t.Helper()
	svc, err := NewService(repo, materializer, &recordingPublisher{}, testLogger(), nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func seedPending(t *testing.T, repo *fakeAdditionRepo, requester uuid.UUID) *models.ToolAdditionRequest {
	t.Helper()
	request := &models.ToolAdditionRequest{
		RequestedByID: requester,
		ToolData: models.ToolDraft{
			Name:     "Angle Grinder",
			Category: enums.ToolCategoryPowerTools,
		},
		Reason:  "the old one burned out",
		Urgency: enums.UrgencyMedium,
		Status:  enums.RequestStatusPending,
	}
	if err := repo.Create(context.Background(), request); err != nil {
		t.Fatalf("seed request: %v", err)
	}
	return request
}

func TestCreateAddition(t *testing.T) {
	repo := newFakeAdditionRepo()
	svc := newTestService(t, repo, &fakeMaterializer{})

	actor := policy.Actor{ID: uuid.New(), Role: enums.RoleEmployee, IsActive: true}
	created, err := svc.Create(context.Background(), actor, CreateAdditionDTO{
		ToolData: ToolDraftInputDTO{Name: "Torque Wrench", Category: "Hand Tools"},
		Reason:   "calibration set incomplete",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != enums.RequestStatusPending {
		t.Errorf("status = %s, want pending", created.Status)
	}
	if created.Urgency != enums.UrgencyMedium {
		t.Errorf("urgency = %s, want default medium", created.Urgency)
	}
}

func TestCreateAdditionRejectsDuplicateDraft(t *testing.T) {
	repo := newFakeAdditionRepo()
	repo.open = true
	svc := newTestService(t, repo, &fakeMaterializer{})

	actor := policy.Actor{ID: uuid.New(), Role: enums.RoleEmployee, IsActive: true}
	_, err := svc.Create(context.Background(), actor, CreateAdditionDTO{
		ToolData: ToolDraftInputDTO{Name: "Torque Wrench", Category: "Hand Tools"},
		Reason:   "calibration set incomplete",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeDuplicateReq {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeDuplicateReq, err)
	}
}

func TestReviewApproveMaterializesTool(t *testing.T) {
	repo := newFakeAdditionRepo()
	materializer := &fakeMaterializer{}
	svc := newTestService(t, repo, materializer)

	request := seedPending(t, repo, uuid.New())
	reviewer := policy.Actor{ID: uuid.New(), Role: enums.RoleManager, IsActive: true}

	reviewed, err := svc.Review(context.Background(), reviewer, request.ID, ReviewAdditionDTO{Decision: "approved"})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if reviewed.Status != enums.RequestStatusApproved {
		t.Errorf("status = %s, want approved", reviewed.Status)
	}
	if reviewed.CreatedToolID == nil {
		t.Fatalf("approved request should link the created tool")
	}
	if materializer.created == nil || *reviewed.CreatedToolID != materializer.created.ID {
		t.Errorf("createdToolId does not match the materialized tool")
	}
	if len(materializer.serials) != 1 || !strings.HasPrefix(materializer.serials[0], "POW-") {
		t.Errorf("serial = %v, want POW- prefix for Power Tools", materializer.serials)
	}
}

func TestReviewApproveSerialCollisionRevertsToPending(t *testing.T) {
	repo := newFakeAdditionRepo()
	materializer := &fakeMaterializer{
		err: pkgerrors.New(pkgerrors.CodeDuplicateSerial, "serial number already in use"),
	}
	svc := newTestService(t, repo, materializer)

	request := seedPending(t, repo, uuid.New())
	reviewer := policy.Actor{ID: uuid.New(), Role: enums.RoleManager, IsActive: true}

	_, err := svc.Review(context.Background(), reviewer, request.ID, ReviewAdditionDTO{Decision: "approved"})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeDuplicateSerial {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeDuplicateSerial, err)
	}
	stored, _ := repo.GetByID(context.Background(), request.ID)
	if stored.Status != enums.RequestStatusPending {
		t.Errorf("status = %s, want pending after serial collision", stored.Status)
	}
}

func TestReviewApproveStorageFailureKeepsApproval(t *testing.T) {
	repo := newFakeAdditionRepo()
	materializer := &fakeMaterializer{
		err: pkgerrors.New(pkgerrors.CodeStorage, "insert failed"),
	}
	svc := newTestService(t, repo, materializer)

	request := seedPending(t, repo, uuid.New())
	reviewer := policy.Actor{ID: uuid.New(), Role: enums.RoleManager, IsActive: true}

	_, err := svc.Review(context.Background(), reviewer, request.ID, ReviewAdditionDTO{Decision: "approved"})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStorage {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeStorage, err)
	}
	stored, _ := repo.GetByID(context.Background(), request.ID)
	if stored.Status != enums.RequestStatusApproved {
		t.Errorf("status = %s, want approved kept for manual remediation", stored.Status)
	}
}

func TestReviewRejectDoesNotMaterialize(t *testing.T) {
	repo := newFakeAdditionRepo()
	materializer := &fakeMaterializer{}
	svc := newTestService(t, repo, materializer)

	request := seedPending(t, repo, uuid.New())
	reviewer := policy.Actor{ID: uuid.New(), Role: enums.RoleAdmin, IsActive: true}

	reviewed, err := svc.Review(context.Background(), reviewer, request.ID, ReviewAdditionDTO{Decision: "rejected"})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if reviewed.Status != enums.RequestStatusRejected {
		t.Errorf("status = %s, want rejected", reviewed.Status)
	}
	if materializer.created != nil {
		t.Errorf("rejected request must not create a tool")
	}
}

func TestCancelApprovedAdditionConflicts(t *testing.T) {
	repo := newFakeAdditionRepo()
	svc := newTestService(t, repo, &fakeMaterializer{})

	requester := uuid.New()
	request := seedPending(t, repo, requester)
	repo.byID[request.ID].Status = enums.RequestStatusApproved

	actor := policy.Actor{ID: requester, Role: enums.RoleEmployee, IsActive: true}
	_, err := svc.Cancel(context.Background(), actor, request.ID)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeStateConflict, err)
	}
}
