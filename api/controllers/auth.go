package controllers

import (
	"net/http"

	"github.com/toolcrib/toolcrib-backend/api/middleware"
	"github.com/toolcrib/toolcrib-backend/api/responses"
	"github.com/toolcrib/toolcrib-backend/api/validators"
	"github.com/toolcrib/toolcrib-backend/internal/auth"
	pkgerrors "github.com/toolcrib/toolcrib-backend/pkg/errors"
	"github.com/toolcrib/toolcrib-backend/pkg/logger"
)

// AuthController serves login and logout.
type AuthController struct {
	svc  auth.Service
	logg *logger.Logger
}

func NewAuthController(svc auth.Service, logg *logger.Logger) *AuthController {
	return &AuthController{svc: svc, logg: logg}
}

func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	resp, err := c.svc.Login(r.Context(), req)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, resp)
}

func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	accessID := middleware.AccessIDFromContext(r.Context())
	if accessID == "" {
		responses.WriteError(r.Context(), c.logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "no active session"))
		return
	}
	if err := c.svc.Logout(r.Context(), accessID); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, map[string]string{"status": "logged out"})
}
