package tools

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

// Repository exposes persistence helpers for tools.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, tool *models.Tool) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tool, error)
	List(ctx context.Context, params ListToolsParams) ([]models.Tool, int64, error)
	Save(ctx context.Context, tool *models.Tool) error
	Delete(ctx context.Context, id uuid.UUID) error
	AssignIfAvailable(ctx context.Context, toolID, userID uuid.UUID, now time.Time, expectedReturn *time.Time) (bool, error)
	Release(ctx context.Context, toolID uuid.UUID, fields map[string]any) (bool, error)
	UnassignAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	FirstAvailableByName(ctx context.Context, pattern string) (*models.Tool, error)
	FirstInUseByName(ctx context.Context, pattern string, assignedTo *uuid.UUID) (*models.Tool, error)
	FirstByName(ctx context.Context, pattern string) (*models.Tool, error)
	ListAssignedToUser(ctx context.Context, userID uuid.UUID) ([]models.Tool, error)
	ListOverdue(ctx context.Context, now time.Time) ([]models.Tool, error)
	CountByField(ctx context.Context, field string) (map[string]int64, error)
	ListAll(ctx context.Context) ([]models.Tool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a tools repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

// ListToolsParams filters the tool listing.
type ListToolsParams struct {
	Page       pagination.Params
	Status     *enums.ToolStatus
	Category   *enums.ToolCategory
	Condition  *enums.ToolCondition
	AssignedTo *uuid.UUID
	Search     string
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, tool *models.Tool) error {
	return r.db.WithContext(ctx).Create(tool).Error
}

func (r *repositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Tool, error) {
	var tool models.Tool
	err := r.db.WithContext(ctx).
		Preload("AssignedTo").
		First(&tool, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tool, nil
}

func (r *repositoryImpl) List(ctx context.Context, params ListToolsParams) ([]models.Tool, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Tool{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Category != nil {
		query = query.Where("category = ?", *params.Category)
	}
	if params.Condition != nil {
		query = query.Where("condition = ?", *params.Condition)
	}
	if params.AssignedTo != nil {
		query = query.Where("assigned_to = ?", *params.AssignedTo)
	}
	if params.Search != "" {
		like := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where(
			"LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(serial_number) LIKE ? OR LOWER(brand) LIKE ?",
			like, like, like, like,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := params.Page.Normalize()
	var rows []models.Tool
	err := query.
		Preload("AssignedTo").
		Order("created_at DESC, id DESC").
		Offset(params.Page.Offset()).
		Limit(page.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repositoryImpl) Save(ctx context.Context, tool *models.Tool) error {
	return r.db.WithContext(ctx).Save(tool).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Tool{}, "id = ?", id).Error
}

// AssignIfAvailable flips the tool to In Use only when it is still
// Available, closing the race between two concurrent assignments.
func (r *repositoryImpl) AssignIfAvailable(ctx context.Context, toolID, userID uuid.UUID, now time.Time, expectedReturn *time.Time) (bool, error) {
	fields := map[string]any{
		"assigned_to":          userID,
		"assigned_date":        now,
		"status":               enums.ToolStatusInUse,
		"expected_return_date": expectedReturn,
		"updated_at":           now,
	}
	result := r.db.WithContext(ctx).
		Model(&models.Tool{}).
		Where("id = ? AND status = ?", toolID, enums.ToolStatusAvailable).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Release clears the assignment fields and applies any extra updates
// (condition, notes) in the same write. Only succeeds while In Use.
func (r *repositoryImpl) Release(ctx context.Context, toolID uuid.UUID, fields map[string]any) (bool, error) {
	updates := map[string]any{
		"assigned_to":          nil,
		"assigned_date":        nil,
		"expected_return_date": nil,
		"status":               enums.ToolStatusAvailable,
	}
	for k, v := range fields {
		updates[k] = v
	}
	result := r.db.WithContext(ctx).
		Model(&models.Tool{}).
		Where("id = ? AND status = ?", toolID, enums.ToolStatusInUse).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) UnassignAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Tool{}).
		Where("assigned_to = ?", userID).
		Updates(map[string]any{
			"assigned_to":          nil,
			"assigned_date":        nil,
			"expected_return_date": nil,
			"status":               enums.ToolStatusAvailable,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// FirstAvailableByName picks the oldest Available tool whose name
// contains the pattern. Ordering by created_at keeps the match stable.
func (r *repositoryImpl) FirstAvailableByName(ctx context.Context, pattern string) (*models.Tool, error) {
	var tool models.Tool
	err := r.db.WithContext(ctx).
		Where("status = ? AND LOWER(name) LIKE ?", enums.ToolStatusAvailable, "%"+strings.ToLower(pattern)+"%").
		Order("created_at ASC, id ASC").
		First(&tool).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tool, nil
}

// FirstByName matches regardless of status; maintenance scheduling can
// target a tool that is out on loan.
func (r *repositoryImpl) FirstByName(ctx context.Context, pattern string) (*models.Tool, error) {
	var tool models.Tool
	err := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE ?", "%"+strings.ToLower(pattern)+"%").
		Order("created_at ASC, id ASC").
		First(&tool).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tool, nil
}

func (r *repositoryImpl) FirstInUseByName(ctx context.Context, pattern string, assignedTo *uuid.UUID) (*models.Tool, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND LOWER(name) LIKE ?", enums.ToolStatusInUse, "%"+strings.ToLower(pattern)+"%")
	if assignedTo != nil {
		query = query.Where("assigned_to = ?", *assignedTo)
	}

	var tool models.Tool
	err := query.Order("created_at ASC, id ASC").First(&tool).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tool, nil
}

func (r *repositoryImpl) ListAssignedToUser(ctx context.Context, userID uuid.UUID) ([]models.Tool, error) {
	var rows []models.Tool
	err := r.db.WithContext(ctx).
		Where("assigned_to = ?", userID).
		Order("assigned_date ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) ListOverdue(ctx context.Context, now time.Time) ([]models.Tool, error) {
	var rows []models.Tool
	err := r.db.WithContext(ctx).
		Preload("AssignedTo").
		Where("status = ? AND expected_return_date IS NOT NULL AND expected_return_date < ?", enums.ToolStatusInUse, now).
		Order("expected_return_date ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) CountByField(ctx context.Context, field string) (map[string]int64, error) {
	type bucket struct {
		Key   string
		Count int64
	}
	var buckets []bucket
	err := r.db.WithContext(ctx).
		Model(&models.Tool{}).
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

func (r *repositoryImpl) ListAll(ctx context.Context) ([]models.Tool, error) {
	var rows []models.Tool
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error
	return rows, err
}
