package requests

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/toolcrib/toolcrib-backend/pkg/db/models"
	"github.com/toolcrib/toolcrib-backend/pkg/enums"
	"github.com/toolcrib/toolcrib-backend/pkg/pagination"
)

// Repository exposes persistence helpers for tool requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.ToolRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ToolRequest, error)
	List(ctx context.Context, params ListRequestsParams) ([]models.ToolRequest, int64, error)
	HasOpenRequestForTool(ctx context.Context, requesterID, toolID uuid.UUID) (bool, error)
	MarkReviewed(ctx context.Context, id uuid.UUID, review ReviewUpdate) (bool, error)
	RevertToPending(ctx context.Context, id uuid.UUID) error
	MarkCancelled(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	CountByField(ctx context.Context, field string) (map[string]int64, error)
	RecentPending(ctx context.Context, limit int) ([]models.ToolRequest, error)
	ListAll(ctx context.Context) ([]models.ToolRequest, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a tool request repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

// ListRequestsParams filters the request listing.
type ListRequestsParams struct {
	Page        pagination.Params
	Status      *enums.RequestStatus
	RequestType *enums.RequestType
	Urgency     *enums.Urgency
	RequestedBy *uuid.UUID
	ToolID      *uuid.UUID
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

func (r *repositoryImpl) Create(ctx context.Context, request *models.ToolRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.ToolRequest, error) {
	var request models.ToolRequest
	err := r.db.WithContext(ctx).
		Preload("RequestedBy").
		Preload("Tool").
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

func (r *repositoryImpl) List(ctx context.Context, params ListRequestsParams) ([]models.ToolRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ToolRequest{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.RequestType != nil {
		query = query.Where("request_type = ?", *params.RequestType)
	}
	if params.Urgency != nil {
		query = query.Where("urgency = ?", *params.Urgency)
	}
	if params.RequestedBy != nil {
		query = query.Where("requested_by = ?", *params.RequestedBy)
	}
	if params.ToolID != nil {
		query = query.Where("tool_id = ?", *params.ToolID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := params.Page.Normalize()
	var rows []models.ToolRequest
	err := query.
		Preload("RequestedBy").
		Preload("Tool").
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

// HasOpenRequestForTool reports whether the requester already has a
// pending or approved request for the same tool.
func (r *repositoryImpl) HasOpenRequestForTool(ctx context.Context, requesterID, toolID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ToolRequest{}).
		Where("requested_by = ? AND tool_id = ? AND status IN ?", requesterID, toolID,
			[]enums.RequestStatus{enums.RequestStatusPending, enums.RequestStatusApproved}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkReviewed stamps the review decision only while the request is
// still pending, so two concurrent reviews cannot both win.
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
		Model(&models.ToolRequest{}).
		Where("id = ? AND status = ?", id, enums.RequestStatusPending).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RevertToPending undoes a review stamp after a downstream failure so
// the request can be reviewed again.
func (r *repositoryImpl) RevertToPending(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ToolRequest{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          enums.RequestStatusPending,
			"reviewed_by":     nil,
			"reviewed_at":     nil,
			"review_comments": nil,
			"approved_at":     nil,
		}).Error
}

func (r *repositoryImpl) MarkCancelled(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ToolRequest{}).
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
		Model(&models.ToolRequest{}).
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

func (r *repositoryImpl) RecentPending(ctx context.Context, limit int) ([]models.ToolRequest, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []models.ToolRequest
	err := r.db.WithContext(ctx).
		Preload("RequestedBy").
		Preload("Tool").
		Where("status = ?", enums.RequestStatusPending).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) ListAll(ctx context.Context) ([]models.ToolRequest, error) {
	var rows []models.ToolRequest
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error
	return rows, err
}
