package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/toolcrib/toolcrib-backend/api/responses"
	pkgerrors "github.com/toolcrib/toolcrib-backend/pkg/errors"
	"github.com/toolcrib/toolcrib-backend/pkg/logger"
)

// Pinger is anything whose connectivity readiness depends on.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthController serves liveness and readiness probes.
type HealthController struct {
	db    Pinger
	cache Pinger
	logg  *logger.Logger
}

func NewHealthController(db, cache Pinger, logg *logger.Logger) *HealthController {
	return &HealthController{db: db, cache: cache, logg: logg}
}

func (c *HealthController) Live(w http.ResponseWriter, _ *http.Request) {
	responses.WriteSuccess(w, map[string]string{"status": "ok"})
}

// Ready checks the database and redis with a short deadline so a hung
// dependency cannot wedge the probe.
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if c.db != nil {
		if err := c.db.Ping(ctx); err != nil {
			checks["database"] = err.Error()
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	}
	if c.cache != nil {
		if err := c.cache.Ping(ctx); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	if !healthy {
		responses.WriteError(ctx, c.logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependency not ready").
			WithDetails(checks))
		return
	}
	responses.WriteSuccess(w, checks)
}
