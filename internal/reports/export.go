package reports

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/toolcrib/toolcrib-backend/pkg/db/models"
	"github.com/toolcrib/toolcrib-backend/pkg/enums"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Datasets addressable by the export and backup endpoints.
const (
	DatasetTools       = "tools"
	DatasetUsers       = "users"
	DatasetRequests    = "requests"
	DatasetAdditions   = "additions"
	DatasetMaintenance = "maintenance"
)

// ToolExportRecord is the import/export contract for a tool. Every
// enumerated field round-trips verbatim through JSON.
type ToolExportRecord struct {
	ID                  uuid.UUID           `json:"id"`
	Name                string              `json:"name"`
	Description         *string             `json:"description,omitempty"`
	Category            enums.ToolCategory  `json:"category"`
	Brand               *string             `json:"brand,omitempty"`
	Model               *string             `json:"model,omitempty"`
	SerialNumber        *string             `json:"serialNumber,omitempty"`
	Location            *string             `json:"location,omitempty"`
	Status              enums.ToolStatus    `json:"status"`
	Condition           enums.ToolCondition `json:"condition"`
	PurchaseDate        *time.Time          `json:"purchaseDate,omitempty"`
	PurchasePrice       *decimal.Decimal    `json:"purchasePrice,omitempty"`
	AssignedTo          *uuid.UUID          `json:"assignedTo,omitempty"`
	AssignedDate        *time.Time          `json:"assignedDate,omitempty"`
	ExpectedReturnDate  *time.Time          `json:"expectedReturnDate,omitempty"`
	LastMaintenanceDate *time.Time          `json:"lastMaintenanceDate,omitempty"`
	NextMaintenanceDate *time.Time          `json:"nextMaintenanceDate,omitempty"`
	Notes               *string             `json:"notes,omitempty"`
	CreatedBy           *uuid.UUID          `json:"createdBy,omitempty"`
	CreatedAt           time.Time           `json:"createdAt"`
	UpdatedAt           time.Time           `json:"updatedAt"`
}

// UserExportRecord is the export contract for a user. Credentials are
// never exported.
type UserExportRecord struct {
	ID         uuid.UUID  `json:"id"`
	Email      string     `json:"email"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	Role       enums.Role `json:"role"`
	EmployeeID string     `json:"employeeId"`
	Department *string    `json:"department,omitempty"`
	Phone      *string    `json:"phone,omitempty"`
	IsActive   bool       `json:"isActive"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func toolRecordFromModel(tool *models.Tool) ToolExportRecord {
	return ToolExportRecord{
		ID:                  tool.ID,
		Name:                tool.Name,
		Description:         tool.Description,
		Category:            tool.Category,
		Brand:               tool.Brand,
		Model:               tool.Model,
		SerialNumber:        tool.SerialNumber,
		Location:            tool.Location,
		Status:              tool.Status,
		Condition:           tool.Condition,
		PurchaseDate:        tool.PurchaseDate,
		PurchasePrice:       tool.PurchasePrice,
		AssignedTo:          tool.AssignedToID,
		AssignedDate:        tool.AssignedDate,
		ExpectedReturnDate:  tool.ExpectedReturnDate,
		LastMaintenanceDate: tool.LastMaintenanceDate,
		NextMaintenanceDate: tool.NextMaintenanceDate,
		Notes:               tool.Notes,
		CreatedBy:           tool.CreatedByID,
		CreatedAt:           tool.CreatedAt,
		UpdatedAt:           tool.UpdatedAt,
	}
}

func (r ToolExportRecord) toModel() *models.Tool {
	return &models.Tool{
		ID:                  r.ID,
		Name:                r.Name,
		Description:         r.Description,
		Category:            r.Category,
		Brand:               r.Brand,
		Model:               r.Model,
		SerialNumber:        r.SerialNumber,
		Location:            r.Location,
		Status:              r.Status,
		Condition:           r.Condition,
		PurchaseDate:        r.PurchaseDate,
		PurchasePrice:       r.PurchasePrice,
		AssignedToID:        r.AssignedTo,
		AssignedDate:        r.AssignedDate,
		ExpectedReturnDate:  r.ExpectedReturnDate,
		LastMaintenanceDate: r.LastMaintenanceDate,
		NextMaintenanceDate: r.NextMaintenanceDate,
		Notes:               r.Notes,
		CreatedByID:         r.CreatedBy,
	}
}

func userRecordFromModel(user *models.User) UserExportRecord {
	return UserExportRecord{
		ID:         user.ID,
		Email:      user.Email,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Role:       user.Role,
		EmployeeID: user.EmployeeID,
		Department: user.Department,
		Phone:      user.Phone,
		IsActive:   user.IsActive,
		CreatedAt:  user.CreatedAt,
		UpdatedAt:  user.UpdatedAt,
	}
}

func renderJSON(records any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(header); err != nil {
		return nil, err
	}
	if err := writer.WriteAll(rows); err != nil {
		return nil, err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toolCSV(records []ToolExportRecord) ([]byte, error) {
	header := []string{
		"id", "name", "category", "brand", "model", "serialNumber",
		"location", "status", "condition", "assignedTo", "createdAt",
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.ID.String(), r.Name, string(r.Category),
			deref(r.Brand), deref(r.Model), deref(r.SerialNumber),
			deref(r.Location), string(r.Status), string(r.Condition),
			derefUUID(r.AssignedTo), r.CreatedAt.Format(time.RFC3339),
		})
	}
	return renderCSV(header, rows)
}

func userCSV(records []UserExportRecord) ([]byte, error) {
	header := []string{
		"id", "email", "firstName", "lastName", "role", "employeeId",
		"department", "isActive", "createdAt",
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.ID.String(), r.Email, r.FirstName, r.LastName,
			string(r.Role), r.EmployeeID, deref(r.Department),
			fmt.Sprintf("%t", r.IsActive), r.CreatedAt.Format(time.RFC3339),
		})
	}
	return renderCSV(header, rows)
}

func requestCSV(rows []models.ToolRequest) ([]byte, error) {
	header := []string{
		"id", "requestedBy", "toolId", "requestType", "reason", "urgency",
		"status", "reviewedBy", "createdAt",
	}
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.ID.String(), r.RequestedByID.String(), r.ToolID.String(),
			string(r.RequestType), r.Reason, string(r.Urgency),
			string(r.Status), derefUUID(r.ReviewedByID),
			r.CreatedAt.Format(time.RFC3339),
		})
	}
	return renderCSV(header, out)
}

func additionCSV(rows []models.ToolAdditionRequest) ([]byte, error) {
	header := []string{
		"id", "requestedBy", "toolName", "toolCategory", "reason",
		"urgency", "status", "createdToolId", "createdAt",
	}
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.ID.String(), r.RequestedByID.String(), r.ToolData.Name,
			string(r.ToolData.Category), r.Reason, string(r.Urgency),
			string(r.Status), derefUUID(r.CreatedToolID),
			r.CreatedAt.Format(time.RFC3339),
		})
	}
	return renderCSV(header, out)
}

func maintenanceCSV(rows []models.MaintenanceTask) ([]byte, error) {
	header := []string{
		"id", "toolId", "scheduledBy", "maintenanceType", "priority",
		"scheduledDate", "estimatedDuration", "status", "createdAt",
	}
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.ID.String(), r.ToolID.String(), r.ScheduledByID.String(),
			string(r.MaintenanceType), string(r.Priority),
			r.ScheduledDate.Format(time.RFC3339),
			fmt.Sprintf("%g", r.EstimatedDuration), string(r.Status),
			r.CreatedAt.Format(time.RFC3339),
		})
	}
	return renderCSV(header, out)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefUUID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
