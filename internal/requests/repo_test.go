package requests

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/toolcrib/toolcrib-backend/pkg/db/models"
	"github.com/toolcrib/toolcrib-backend/pkg/enums"
	"github.com/toolcrib/toolcrib-backend/pkg/pagination"
)

func setupRequestsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'Employee',
  employee_id TEXT NOT NULL UNIQUE,
  department TEXT,
  phone TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	tools := `
CREATE TABLE IF NOT EXISTS tools (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  category TEXT NOT NULL,
  brand TEXT,
  model TEXT,
  serial_number TEXT UNIQUE,
  location TEXT,
  status TEXT NOT NULL DEFAULT 'Available',
  condition TEXT NOT NULL DEFAULT 'Good',
  purchase_date DATETIME,
  purchase_price NUMERIC,
  assigned_to TEXT,
  assigned_date DATETIME,
  expected_return_date DATETIME,
  last_maintenance_date DATETIME,
  next_maintenance_date DATETIME,
  notes TEXT,
  created_by TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	requests := `
CREATE TABLE IF NOT EXISTS tool_requests (
  id TEXT PRIMARY KEY,
  requested_by TEXT NOT NULL,
  tool_id TEXT NOT NULL,
  request_type TEXT NOT NULL,
  reason TEXT NOT NULL,
  urgency TEXT NOT NULL DEFAULT 'medium',
  expected_duration INTEGER,
  status TEXT NOT NULL DEFAULT 'pending',
  reviewed_by TEXT,
  reviewed_at DATETIME,
  review_comments TEXT,
  approved_at DATETIME,
  completed_at DATETIME,
  department TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(users).Error)
	require.NoError(t, db.Exec(tools).Error)
	require.NoError(t, db.Exec(requests).Error)
	require.NoError(t, db.Exec("DELETE FROM tool_requests").Error)
	require.NoError(t, db.Exec("DELETE FROM tools").Error)
	require.NoError(t, db.Exec("DELETE FROM users").Error)
	return db
}

func seedRequester(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := &models.User{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@toolcrib.local",
		PasswordHash: "x",
		FirstName:    "Req",
		LastName:     "User",
		Role:         enums.RoleEmployee,
		EmployeeID:   "U-" + uuid.NewString()[:8],
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedTool(t *testing.T, db *gorm.DB) *models.Tool {
	t.Helper()

	serial := uuid.NewString()
	tool := &models.Tool{
		ID:           uuid.New(),
		Name:         "Angle Grinder",
		Category:     enums.ToolCategoryPowerTools,
		SerialNumber: &serial,
		Status:       enums.ToolStatusAvailable,
		Condition:    enums.ToolConditionGood,
	}
	require.NoError(t, db.Create(tool).Error)
	return tool
}

func seedRequest(t *testing.T, db *gorm.DB, requester *models.User, tool *models.Tool, status enums.RequestStatus, created time.Time) *models.ToolRequest {
	t.Helper()

	duration := 5
	request := &models.ToolRequest{
		ID:               uuid.New(),
		RequestedByID:    requester.ID,
		ToolID:           tool.ID,
		RequestType:      enums.RequestTypeBorrow,
		Reason:           "bench work",
		Urgency:          enums.UrgencyMedium,
		ExpectedDuration: &duration,
		Status:           status,
		CreatedAt:        created,
		UpdatedAt:        created,
	}
	require.NoError(t, db.Create(request).Error)
	return request
}

func TestRepositoryMarkReviewedOnlyOnce(t *testing.T) {
	db := setupRequestsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	requester := seedRequester(t, db)
	tool := seedTool(t, db)
	request := seedRequest(t, db, requester, tool, enums.RequestStatusPending, time.Now().UTC())

	reviewer := uuid.New()
	comments := "approved for the week"
	ok, err := repo.MarkReviewed(ctx, request.ID, ReviewUpdate{
		Status:     enums.RequestStatusApproved,
		ReviewerID: reviewer,
		Comments:   &comments,
		Now:        time.Now().UTC(),
	})
	require.NoError(t, err)
	require.True(t, ok)

	stored, err := repo.GetByID(ctx, request.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, enums.RequestStatusApproved, stored.Status)
	require.NotNil(t, stored.ReviewedByID)
	assert.Equal(t, reviewer, *stored.ReviewedByID)
	assert.NotNil(t, stored.ApprovedAt)

	// The second reviewer finds no pending row to stamp.
	ok, err = repo.MarkReviewed(ctx, request.ID, ReviewUpdate{
		Status:     enums.RequestStatusRejected,
		ReviewerID: uuid.New(),
		Now:        time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepositoryRevertToPendingClearsReviewStamp(t *testing.T) {
	db := setupRequestsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	requester := seedRequester(t, db)
	tool := seedTool(t, db)
	request := seedRequest(t, db, requester, tool, enums.RequestStatusPending, time.Now().UTC())

	ok, err := repo.MarkReviewed(ctx, request.ID, ReviewUpdate{
		Status:     enums.RequestStatusApproved,
		ReviewerID: uuid.New(),
		Now:        time.Now().UTC(),
	})
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, repo.RevertToPending(ctx, request.ID))

	stored, err := repo.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusPending, stored.Status)
	assert.Nil(t, stored.ReviewedByID)
	assert.Nil(t, stored.ReviewedAt)
	assert.Nil(t, stored.ApprovedAt)

	ok, err = repo.MarkReviewed(ctx, request.ID, ReviewUpdate{
		Status:     enums.RequestStatusRejected,
		ReviewerID: uuid.New(),
		Now:        time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRepositoryHasOpenRequestForTool(t *testing.T) {
	db := setupRequestsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	requester := seedRequester(t, db)
	tool := seedTool(t, db)
	seedRequest(t, db, requester, tool, enums.RequestStatusCancelled, time.Now().UTC())

	open, err := repo.HasOpenRequestForTool(ctx, requester.ID, tool.ID)
	require.NoError(t, err)
	assert.False(t, open)

	seedRequest(t, db, requester, tool, enums.RequestStatusPending, time.Now().UTC())
	open, err = repo.HasOpenRequestForTool(ctx, requester.ID, tool.ID)
	require.NoError(t, err)
	assert.True(t, open)
}

func TestRepositoryMarkCancelledOnlyFromPending(t *testing.T) {
	db := setupRequestsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	requester := seedRequester(t, db)
	tool := seedTool(t, db)
	pending := seedRequest(t, db, requester, tool, enums.RequestStatusPending, time.Now().UTC())
	approved := seedRequest(t, db, requester, tool, enums.RequestStatusApproved, time.Now().UTC())

	ok, err := repo.MarkCancelled(ctx, pending.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkCancelled(ctx, approved.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepositoryListScopesToRequester(t *testing.T) {
	db := setupRequestsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	mine := seedRequester(t, db)
	theirs := seedRequester(t, db)
	tool := seedTool(t, db)
	base := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	seedRequest(t, db, mine, tool, enums.RequestStatusPending, base)
	seedRequest(t, db, mine, tool, enums.RequestStatusCancelled, base.Add(time.Minute))
	seedRequest(t, db, theirs, tool, enums.RequestStatusPending, base.Add(2*time.Minute))

	rows, total, err := repo.List(ctx, ListRequestsParams{
		Page:        pagination.Params{Page: 1, Limit: 10},
		RequestedBy: &mine.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, rows, 2)
}
