package controllers

import (
	"net/http"

	"github.com/toolcrib/toolcrib-backend/api/middleware"
	"github.com/toolcrib/toolcrib-backend/internal/policy"
	pkgerrors "github.com/toolcrib/toolcrib-backend/pkg/errors"
)

// actorFrom pulls the authenticated actor seeded by the auth middleware.
func actorFrom(r *http.Request) (policy.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return policy.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return actor, nil
}
