package tools

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

func setupToolsTestDB(t *testing.T) *gorm.DB {
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
	require.NoError(t, db.Exec(users).Error)
	require.NoError(t, db.Exec(tools).Error)
	require.NoError(t, db.Exec("DELETE FROM tools").Error)
	require.NoError(t, db.Exec("DELETE FROM users").Error)
	return db
}

func newRepoUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "x",
		FirstName:    "Test",
		LastName:     "User",
		Role:         enums.RoleEmployee,
		EmployeeID:   "U-" + uuid.NewString()[:8],
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func newRepoTool(t *testing.T, db *gorm.DB, name string, status enums.ToolStatus, created time.Time) *models.Tool {
	t.Helper()

	serial := uuid.NewString()
	tool := &models.Tool{
		ID:           uuid.New(),
		Name:         name,
		Category:     enums.ToolCategoryHandTools,
		SerialNumber: &serial,
		Status:       status,
		Condition:    enums.ToolConditionGood,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	require.NoError(t, db.Create(tool).Error)
	return tool
}

func TestRepositoryAssignIfAvailable(t *testing.T) {
	db := setupToolsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := newRepoUser(t, db, "assign@toolcrib.local")
	tool := newRepoTool(t, db, "Impact Driver", enums.ToolStatusAvailable, time.Now().UTC())

	now := time.Now().UTC()
	returnBy := now.Add(72 * time.Hour)
	ok, err := repo.AssignIfAvailable(ctx, tool.ID, user.ID, now, &returnBy)
	require.NoError(t, err)
	require.True(t, ok)

	stored, err := repo.GetByID(ctx, tool.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, enums.ToolStatusInUse, stored.Status)
	require.NotNil(t, stored.AssignedToID)
	assert.Equal(t, user.ID, *stored.AssignedToID)
	require.NotNil(t, stored.ExpectedReturnDate)

	// A second caller loses the race: the conditional update matches no row.
	ok, err = repo.AssignIfAvailable(ctx, tool.ID, uuid.New(), now, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepositoryReleaseAppliesExtraFields(t *testing.T) {
	db := setupToolsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := newRepoUser(t, db, "release@toolcrib.local")
	tool := newRepoTool(t, db, "Torque Wrench", enums.ToolStatusAvailable, time.Now().UTC())
	ok, err := repo.AssignIfAvailable(ctx, tool.ID, user.ID, time.Now().UTC(), nil)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.Release(ctx, tool.ID, map[string]any{
		"condition": enums.ToolConditionFair,
		"notes":     "chipped handle",
	})
	require.NoError(t, err)
	require.True(t, ok)

	stored, err := repo.GetByID(ctx, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ToolStatusAvailable, stored.Status)
	assert.Nil(t, stored.AssignedToID)
	assert.Nil(t, stored.AssignedDate)
	assert.Nil(t, stored.ExpectedReturnDate)
	assert.Equal(t, enums.ToolConditionFair, stored.Condition)
	require.NotNil(t, stored.Notes)
	assert.Equal(t, "chipped handle", *stored.Notes)

	// Already released: nothing left In Use to match.
	ok, err = repo.Release(ctx, tool.ID, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepositoryUnassignAllForUser(t *testing.T) {
	db := setupToolsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := newRepoUser(t, db, "bulk@toolcrib.local")
	other := newRepoUser(t, db, "other@toolcrib.local")
	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		tool := newRepoTool(t, db, "Clamp", enums.ToolStatusAvailable, now)
		ok, err := repo.AssignIfAvailable(ctx, tool.ID, user.ID, now, nil)
		require.NoError(t, err)
		require.True(t, ok)
	}
	keep := newRepoTool(t, db, "Keep Clamp", enums.ToolStatusAvailable, now)
	ok, err := repo.AssignIfAvailable(ctx, keep.ID, other.ID, now, nil)
	require.NoError(t, err)
	require.True(t, ok)

	count, err := repo.UnassignAllForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	remaining, err := repo.ListAssignedToUser(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestRepositoryFirstAvailableByName(t *testing.T) {
	db := setupToolsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	older := newRepoTool(t, db, "Cordless Drill", enums.ToolStatusAvailable, base)
	newRepoTool(t, db, "Cordless Drill XL", enums.ToolStatusAvailable, base.Add(time.Hour))
	newRepoTool(t, db, "Hammer Drill", enums.ToolStatusInUse, base.Add(-time.Hour))

	match, err := repo.FirstAvailableByName(ctx, "drill")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, older.ID, match.ID)

	missing, err := repo.FirstAvailableByName(ctx, "laser level")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepositoryListFiltersAndPaginates(t *testing.T) {
	db := setupToolsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		newRepoTool(t, db, "Socket Set", enums.ToolStatusAvailable, base.Add(time.Duration(i)*time.Minute))
	}
	newRepoTool(t, db, "Multimeter", enums.ToolStatusMaintenance, base)

	status := enums.ToolStatusAvailable
	rows, total, err := repo.List(ctx, ListToolsParams{
		Page:   pagination.Params{Page: 1, Limit: 3},
		Status: &status,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, rows, 3)

	rows, total, err = repo.List(ctx, ListToolsParams{
		Page:   pagination.Params{Page: 1, Limit: 10},
		Search: "multi",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
	assert.Equal(t, "Multimeter", rows[0].Name)
}

func TestRepositoryListOverdue(t *testing.T) {
	db := setupToolsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := newRepoUser(t, db, "overdue@toolcrib.local")
	now := time.Now().UTC()

	late := newRepoTool(t, db, "Late Grinder", enums.ToolStatusAvailable, now)
	pastDue := now.Add(-48 * time.Hour)
	ok, err := repo.AssignIfAvailable(ctx, late.ID, user.ID, now.Add(-96*time.Hour), &pastDue)
	require.NoError(t, err)
	require.True(t, ok)

	onTime := newRepoTool(t, db, "Prompt Grinder", enums.ToolStatusAvailable, now)
	futureDue := now.Add(48 * time.Hour)
	ok, err = repo.AssignIfAvailable(ctx, onTime.ID, user.ID, now, &futureDue)
	require.NoError(t, err)
	require.True(t, ok)

	overdue, err := repo.ListOverdue(ctx, now)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ID)
}

func TestRepositoryCountByField(t *testing.T) {
	db := setupToolsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	newRepoTool(t, db, "A", enums.ToolStatusAvailable, now)
	newRepoTool(t, db, "B", enums.ToolStatusAvailable, now)
	newRepoTool(t, db, "C", enums.ToolStatusLost, now)

	counts, err := repo.CountByField(ctx, "status")
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[string(enums.ToolStatusAvailable)])
	assert.Equal(t, int64(1), counts[string(enums.ToolStatusLost)])
}
