package controllers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/toolcrib/toolcrib-backend/api/responses"
	"github.com/toolcrib/toolcrib-backend/api/validators"
	"github.com/toolcrib/toolcrib-backend/internal/reports"
	pkgerrors "github.com/toolcrib/toolcrib-backend/pkg/errors"
	"github.com/toolcrib/toolcrib-backend/pkg/logger"
)

const maxImportBytes = 10 << 20

// ReportsController serves export, import and backup routes.
type ReportsController struct {
	svc  reports.Service
	logg *logger.Logger
}

func NewReportsController(svc reports.Service, logg *logger.Logger) *ReportsController {
	return &ReportsController{svc: svc, logg: logg}
}

// Export streams a dataset as a JSON or CSV download.
func (c *ReportsController) Export(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	dataset := chi.URLParam(r, "type")
	format := validators.ParseQueryString(r, "format")

	result, err := c.svc.Export(r.Context(), actor, dataset, format)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

type exportRequest struct {
	Dataset string `json:"dataset" validate:"required"`
	Format  string `json:"format"`
}

// ExportPost is the body-driven variant mounted under /users/export.
func (c *ReportsController) ExportPost(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	var req exportRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	result, err := c.svc.Export(r.Context(), actor, req.Dataset, req.Format)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (c *ReportsController) ImportTools(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read import payload"))
		return
	}

	result, err := c.svc.ImportTools(r.Context(), actor, payload)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, result)
}

func (c *ReportsController) Backup(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	result, err := c.svc.Backup(r.Context(), actor)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, result)
}
