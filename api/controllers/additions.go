package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/toolcrib/toolcrib-backend/api/responses"
	"github.com/toolcrib/toolcrib-backend/api/validators"
	"github.com/toolcrib/toolcrib-backend/internal/additions"
	"github.com/toolcrib/toolcrib-backend/pkg/logger"
)

// AdditionsController serves the tool-addition-request lifecycle routes.
type AdditionsController struct {
	svc  additions.Service
	logg *logger.Logger
}

func NewAdditionsController(svc additions.Service, logg *logger.Logger) *AdditionsController {
	return &AdditionsController{svc: svc, logg: logg}
}

func (c *AdditionsController) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	var input additions.CreateAdditionDTO
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

func (c *AdditionsController) List(w http.ResponseWriter, r *http.Request) {
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

	result, err := c.svc.List(r.Context(), actor, additions.ListParams{
		Page:    page,
		Status:  validators.ParseQueryString(r, "status"),
		Urgency: validators.ParseQueryString(r, "urgency"),
	})
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, result)
}

func (c *AdditionsController) Get(w http.ResponseWriter, r *http.Request) {
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

func (c *AdditionsController) Review(w http.ResponseWriter, r *http.Request) {
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

	var input additions.ReviewAdditionDTO
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

func (c *AdditionsController) Cancel(w http.ResponseWriter, r *http.Request) {
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

func (c *AdditionsController) Stats(w http.ResponseWriter, r *http.Request) {
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
