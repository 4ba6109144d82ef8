package middleware

import (
	"net/http"

	"github.com/toolcrib/toolcrib-backend/api/responses"
	"github.com/toolcrib/toolcrib-backend/pkg/enums"
	pkgerrors "github.com/toolcrib/toolcrib-backend/pkg/errors"
	"github.com/toolcrib/toolcrib-backend/pkg/logger"
)

// RequireReviewer gates routes to Manager and Admin actors. Services
// still authorize individually; this keeps obviously-forbidden traffic
// off them.
func RequireReviewer(logg *logger.Logger) func(http.Handler) http.Handler {
	return requireRole(logg, func(role enums.Role) bool { return role.IsReviewer() })
}

// RequireAdmin gates routes to Admin actors.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return requireRole(logg, func(role enums.Role) bool { return role == enums.RoleAdmin })
}

func requireRole(logg *logger.Logger, allowed func(enums.Role) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			if !actor.IsActive || !allowed(actor.Role) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
