package maintenance

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/toolcrib/toolcrib-backend/pkg/db/models"
	"github.com/toolcrib/toolcrib-backend/pkg/enums"
	"github.com/toolcrib/toolcrib-backend/pkg/pagination"
)

// Repository persists maintenance tasks.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, task *models.MaintenanceTask) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.MaintenanceTask, error)
	List(ctx context.Context, params ListTasksParams) ([]models.MaintenanceTask, int64, error)
	Save(ctx context.Context, task *models.MaintenanceTask) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByField(ctx context.Context, field string) (map[string]int64, error)
	ListAll(ctx context.Context) ([]models.MaintenanceTask, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a maintenance repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

// ListTasksParams filters the maintenance listing.
type ListTasksParams struct {
	Page            pagination.Params
	Status          *enums.MaintenanceStatus
	MaintenanceType *enums.MaintenanceType
	Priority        *enums.Urgency
	ToolID          *uuid.UUID
	AssignedTo      *uuid.UUID
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, task *models.MaintenanceTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *repositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.MaintenanceTask, error) {
	var task models.MaintenanceTask
	err := r.db.WithContext(ctx).
		Preload("Tool").
		Preload("ScheduledBy").
		Preload("AssignedTo").
		First(&task, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (r *repositoryImpl) List(ctx context.Context, params ListTasksParams) ([]models.MaintenanceTask, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.MaintenanceTask{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.MaintenanceType != nil {
		query = query.Where("maintenance_type = ?", *params.MaintenanceType)
	}
	if params.Priority != nil {
		query = query.Where("priority = ?", *params.Priority)
	}
	if params.ToolID != nil {
		query = query.Where("tool_id = ?", *params.ToolID)
	}
	if params.AssignedTo != nil {
		query = query.Where("assigned_to = ?", *params.AssignedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := params.Page.Normalize()
	var rows []models.MaintenanceTask
	err := query.
		Preload("Tool").
		Preload("ScheduledBy").
		Preload("AssignedTo").
		Order("scheduled_date ASC, id ASC").
		Offset(params.Page.Offset()).
		Limit(page.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repositoryImpl) Save(ctx context.Context, task *models.MaintenanceTask) error {
	return r.db.WithContext(ctx).Save(task).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.MaintenanceTask{}, "id = ?", id).Error
}

func (r *repositoryImpl) CountByField(ctx context.Context, field string) (map[string]int64, error) {
	type bucket struct {
		Key   string
		Count int64
	}
	var buckets []bucket
	err := r.db.WithContext(ctx).
		Model(&models.MaintenanceTask{}).
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

func (r *repositoryImpl) ListAll(ctx context.Context) ([]models.MaintenanceTask, error) {
	var rows []models.MaintenanceTask
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error
	return rows, err
}
