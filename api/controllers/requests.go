package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/toolcrib/toolcrib-backend/api/responses"
	"github.com/toolcrib/toolcrib-backend/api/validators"
	"github.com/toolcrib/toolcrib-backend/internal/requests"
	"github.com/toolcrib/toolcrib-backend/pkg/logger"
)

// RequestsController serves the borrow-request lifecycle routes.
type RequestsController struct {
	svc  requests.Service
	logg *logger.Logger
}

func NewRequestsController(svc requests.Service, logg *logger.Logger) *RequestsController {
	return &RequestsController{svc: svc, logg: logg}
}

func (c *RequestsController) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	var input requests.CreateRequestDTO
	if err := validators.DecodeJSONBody(r, &input); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	dto, err := c.svc.Create(r.Context(), actor, input)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, dto)
}

func (c *RequestsController) List(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	page, err := validators.ParsePagination(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	toolID, err := validators.ParseQueryUUID(r, "toolId")
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	result, err := c.svc.List(r.Context(), actor, requests.ListParams{
		Page:        page,
		Status:      validators.ParseQueryString(r, "status"),
		RequestType: validators.ParseQueryString(r, "requestType"),
		Urgency:     validators.ParseQueryString(r, "urgency"),
		ToolID:      toolID,
	})
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, result)
}

func (c *RequestsController) Get(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	id, err := validators.PathUUID(chi.URLParam(r, "id"))
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	dto, err := c.svc.Get(r.Context(), actor, id)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, dto)
}

func (c *RequestsController) Review(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	id, err := validators.PathUUID(chi.URLParam(r, "id"))
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	var input requests.ReviewRequestDTO
	if err := validators.DecodeJSONBody(r, &input); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	dto, err := c.svc.Review(r.Context(), actor, id, input)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, dto)
}

func (c *RequestsController) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	id, err := validators.PathUUID(chi.URLParam(r, "id"))
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	dto, err := c.svc.Cancel(r.Context(), actor, id)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, dto)
}

func (c *RequestsController) Stats(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	stats, err := c.svc.Stats(r.Context(), actor)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, stats)
}
