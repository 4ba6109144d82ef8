package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/toolcrib/toolcrib-backend/internal/policy"
	"github.com/toolcrib/toolcrib-backend/pkg/db/models"
	pkgerrors "github.com/toolcrib/toolcrib-backend/pkg/errors"
	"github.com/toolcrib/toolcrib-backend/pkg/logger"
)

// ToolStore is the slice of the tools repository the exporter needs.
type ToolStore interface {
	ListAll(ctx context.Context) ([]models.Tool, error)
	Create(ctx context.Context, tool *models.Tool) error
}

// UserSource lists every user for export.
type UserSource interface {
	ListAll(ctx context.Context) ([]models.User, error)
}

// RequestSource lists every tool request for export.
type RequestSource interface {
	ListAll(ctx context.Context) ([]models.ToolRequest, error)
}

// AdditionSource lists every addition request for export.
type AdditionSource interface {
	ListAll(ctx context.Context) ([]models.ToolAdditionRequest, error)
}

// MaintenanceSource lists every maintenance task for export.
type MaintenanceSource interface {
	ListAll(ctx context.Context) ([]models.MaintenanceTask, error)
}

// ExportResult carries rendered bytes plus HTTP metadata.
type ExportResult struct {
	Data        []byte
	ContentType string
	Filename    string
}

// ImportResultDTO reports the outcome of a tool import.
type ImportResultDTO struct {
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// BackupResultDTO reports which datasets a backup run captured.
type BackupResultDTO struct {
	Directory string            `json:"directory"`
	Files     map[string]string `json:"files"`
	TakenAt   time.Time         `json:"takenAt"`
}

// Service owns data export, import and backup.
type Service interface {
	Export(ctx context.Context, actor policy.Actor, dataset, format string) (*ExportResult, error)
	ImportTools(ctx context.Context, actor policy.Actor, payload []byte) (*ImportResultDTO, error)
	Backup(ctx context.Context, actor policy.Actor) (*BackupResultDTO, error)
}

type serviceImpl struct {
	tools       ToolStore
	users       UserSource
	requests    RequestSource
	additions   AdditionSource
	maintenance MaintenanceSource
	archiver    Archiver
	logg        *logger.Logger
	now         func() time.Time
}

// NewService wires the reports service.
func NewService(tools ToolStore, users UserSource, requests RequestSource, additions AdditionSource, maintenance MaintenanceSource, archiver Archiver, logg *logger.Logger) (Service, error) {
	if tools == nil || users == nil || requests == nil || additions == nil || maintenance == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "all data sources required")
	}
	if archiver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "archiver required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &serviceImpl{
		tools:       tools,
		users:       users,
		requests:    requests,
		additions:   additions,
		maintenance: maintenance,
		archiver:    archiver,
		logg:        logg,
		now:         time.Now,
	}, nil
}

func (s *serviceImpl) Export(ctx context.Context, actor policy.Actor, dataset, format string) (*ExportResult, error) {
	if err := policy.Authorize(actor, policy.ActionExport, nil); err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatCSV {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "format must be json or csv").
			WithDetails(map[string]any{"format": format})
	}

	data, err := s.render(ctx, dataset, format)
	if err != nil {
		return nil, err
	}

	contentType := "application/json"
	if format == FormatCSV {
		contentType = "text/csv"
	}
	return &ExportResult{
		Data:        data,
		ContentType: contentType,
		Filename:    fmt.Sprintf("%s-%s.%s", dataset, s.now().UTC().Format("20060102-150405"), format),
	}, nil
}

func (s *serviceImpl) render(ctx context.Context, dataset, format string) ([]byte, error) {
	switch dataset {
	case DatasetTools:
		rows, err := s.tools.ListAll(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to list tools")
		}
		records := make([]ToolExportRecord, 0, len(rows))
		for i := range rows {
			records = append(records, toolRecordFromModel(&rows[i]))
		}
		if format == FormatCSV {
			return toolCSV(records)
		}
		return renderJSON(records)
	case DatasetUsers:
		rows, err := s.users.ListAll(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to list users")
		}
		records := make([]UserExportRecord, 0, len(rows))
		for i := range rows {
			records = append(records, userRecordFromModel(&rows[i]))
		}
		if format == FormatCSV {
			return userCSV(records)
		}
		return renderJSON(records)
	case DatasetRequests:
		rows, err := s.requests.ListAll(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to list requests")
		}
		if format == FormatCSV {
			return requestCSV(rows)
		}
		return renderJSON(rows)
	case DatasetAdditions:
		rows, err := s.additions.ListAll(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to list addition requests")
		}
		if format == FormatCSV {
			return additionCSV(rows)
		}
		return renderJSON(rows)
	case DatasetMaintenance:
		rows, err := s.maintenance.ListAll(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to list maintenance tasks")
		}
		if format == FormatCSV {
			return maintenanceCSV(rows)
		}
		return renderJSON(rows)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown dataset").
			WithDetails(map[string]any{"dataset": dataset})
	}
}

// ImportTools reads a JSON tool export and recreates each record. A bad
// record is reported but does not stop the rest of the batch.
func (s *serviceImpl) ImportTools(ctx context.Context, actor policy.Actor, payload []byte) (*ImportResultDTO, error) {
	if err := policy.Authorize(actor, policy.ActionImport, nil); err != nil {
		return nil, err
	}

	var records []ToolExportRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payload is not a tool export")
	}

	result := &ImportResultDTO{}
	for i, record := range records {
		if record.Name == "" || !record.Category.IsValid() {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("record %d: missing name or invalid category", i))
			continue
		}
		if !record.Status.IsValid() || !record.Condition.IsValid() {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("record %d: invalid status or condition", i))
			continue
		}
		if err := s.tools.Create(ctx, record.toModel()); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("record %d: %v", i, err))
			continue
		}
		result.Imported++
	}
	return result, nil
}

// Backup writes every dataset as JSON into the configured directory.
// Failures are aggregated; a partial backup still reports what it wrote.
func (s *serviceImpl) Backup(ctx context.Context, actor policy.Actor) (*BackupResultDTO, error) {
	if err := policy.Authorize(actor, policy.ActionBackup, nil); err != nil {
		return nil, err
	}

	takenAt := s.now().UTC()
	stamp := takenAt.Format("20060102-150405")
	result := &BackupResultDTO{
		Directory: s.archiver.Dir(),
		Files:     map[string]string{},
		TakenAt:   takenAt,
	}

	var failures error
	for _, dataset := range []string{DatasetTools, DatasetUsers, DatasetRequests, DatasetAdditions, DatasetMaintenance} {
		data, err := s.render(ctx, dataset, FormatJSON)
		if err != nil {
			failures = multierr.Append(failures, fmt.Errorf("%s: %w", dataset, err))
			continue
		}
		name := fmt.Sprintf("%s-%s.json", dataset, stamp)
		if err := s.archiver.Write(name, data); err != nil {
			failures = multierr.Append(failures, fmt.Errorf("%s: %w", dataset, err))
			continue
		}
		result.Files[dataset] = name
	}

	if err := s.archiver.Prune(); err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("pruning old backups failed: %v", err))
	}

	if failures != nil {
		if len(result.Files) == 0 {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, failures, "backup failed")
		}
		return result, pkgerrors.Wrap(pkgerrors.CodeStorage, failures, "backup completed partially").
			WithDetails(map[string]any{"written": len(result.Files)})
	}
	return result, nil
}
