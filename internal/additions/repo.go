package additions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/toolcrib/toolcrib-backend/pkg/db/models"
	"github.com/toolcrib/toolcrib-backend/pkg/enums"
	"github.com/toolcrib/toolcrib-backend/pkg/pagination"
)

// Repository persists tool addition requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.ToolAdditionRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ToolAdditionRequest, error)
	List(ctx context.Context, params ListAdditionsParams) ([]models.ToolAdditionRequest, int64, error)
	HasOpenRequestForDraft(ctx context.Context, requesterID uuid.UUID, name string, category enums.ToolCategory) (bool, error)
	MarkReviewed(ctx context.Context, id uuid.UUID, review ReviewUpdate) (bool, error)
	RevertToPending(ctx context.Context, id uuid.UUID) error
	LinkCreatedTool(ctx context.Context, id, toolID uuid.UUID) error
	MarkCancelled(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	CountByField(ctx context.Context, field string) (map[string]int64, error)
	ListAll(ctx context.Context) ([]models.ToolAdditionRequest, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an addition request repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

// ListAdditionsParams filters the addition request listing.
type ListAdditionsParams struct {
	Page        pagination.Params
	Status      *enums.RequestStatus
	Urgency     *enums.Urgency
	RequestedBy *uuid.UUID
}

// ReviewUpdate carries the fields stamped by a review decision.
type ReviewUpdate struct {
	Status     enums.RequestStatus
	ReviewerID uuid.UUID
	Comments   *string
	Now        time.Time
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, request *models.ToolAdditionRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.ToolAdditionRequest, error) {
	var request models.ToolAdditionRequest
	err := r.db.WithContext(ctx).
		Preload("RequestedBy").
		Preload("ReviewedBy").
		First(&request, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

func (r *repositoryImpl) List(ctx context.Context, params ListAdditionsParams) ([]models.ToolAdditionRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ToolAdditionRequest{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Urgency != nil {
		query = query.Where("urgency = ?", *params.Urgency)
	}
	if params.RequestedBy != nil {
		query = query.Where("requested_by = ?", *params.RequestedBy)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := params.Page.Normalize()
	var rows []models.ToolAdditionRequest
	err := query.
		Preload("RequestedBy").
		Preload("ReviewedBy").
		Order("created_at DESC, id DESC").
		Offset(params.Page.Offset()).
		Limit(page.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// HasOpenRequestForDraft reports whether the requester already asked for
// the same tool name and category and the request is still open.
func (r *repositoryImpl) HasOpenRequestForDraft(ctx context.Context, requesterID uuid.UUID, name string, category enums.ToolCategory) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ToolAdditionRequest{}).
		Where("requested_by = ? AND LOWER(tool_name) = ? AND tool_category = ? AND status IN ?",
			requesterID, strings.ToLower(name), category,
			[]enums.RequestStatus{enums.RequestStatusPending, enums.RequestStatusApproved}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkReviewed stamps the decision only while the request is pending.
func (r *repositoryImpl) MarkReviewed(ctx context.Context, id uuid.UUID, review ReviewUpdate) (bool, error) {
	fields := map[string]any{
		"status":          review.Status,
		"reviewed_by":     review.ReviewerID,
		"reviewed_at":     review.Now,
		"review_comments": review.Comments,
		"updated_at":      review.Now,
	}
	if review.Status == enums.RequestStatusApproved {
		fields["approved_at"] = review.Now
	}
	result := r.db.WithContext(ctx).
		Model(&models.ToolAdditionRequest{}).
		Where("id = ? AND status = ?", id, enums.RequestStatusPending).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) RevertToPending(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ToolAdditionRequest{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          enums.RequestStatusPending,
			"reviewed_by":     nil,
			"reviewed_at":     nil,
			"review_comments": nil,
			"approved_at":     nil,
		}).Error
}

func (r *repositoryImpl) LinkCreatedTool(ctx context.Context, id, toolID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ToolAdditionRequest{}).
		Where("id = ?", id).
		Update("created_tool_id", toolID).Error
}

func (r *repositoryImpl) MarkCancelled(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ToolAdditionRequest{}).
		Where("id = ? AND status = ?", id, enums.RequestStatusPending).
		Updates(map[string]any{
			"status":     enums.RequestStatusCancelled,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) CountByField(ctx context.Context, field string) (map[string]int64, error) {
	type bucket struct {
		Key   string
		Count int64
	}
	var buckets []bucket
	err := r.db.WithContext(ctx).
		Model(&models.ToolAdditionRequest{}).
		Select(field+" AS key, COUNT(*) AS count").
		Group(field).
		Scan(&buckets).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(buckets))
	for _, b := range buckets {
		counts[b.Key] = b.Count
	}
	return counts, nil
}

func (r *repositoryImpl) ListAll(ctx context.Context) ([]models.ToolAdditionRequest, error) {
	var rows []models.ToolAdditionRequest
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error
	return rows, err
}
