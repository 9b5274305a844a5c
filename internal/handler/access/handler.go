package access

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/access-api/internal/access"
	"github.com/jwalitptl/access-api/internal/handler"
	"github.com/jwalitptl/access-api/internal/service/login"
	"github.com/jwalitptl/access-api/internal/service/scope"
	"github.com/jwalitptl/access-api/pkg/errors"
	"github.com/jwalitptl/access-api/pkg/httputil"
)

type ScopeResolver interface {
	Resolve(ctx context.Context, pgid string, userID uuid.UUID, s access.Scope) (*scope.Result, error)
}

type LoginAuthorizer interface {
	Authorize(ctx context.Context, attempt login.Attempt) (access.Decision, error)
}

type Handler struct {
	scopes ScopeResolver
	logins LoginAuthorizer
}

func NewHandler(scopes ScopeResolver, logins LoginAuthorizer) *Handler {
	return &Handler{scopes: scopes, logins: logins}
}

type ScopeRequest struct {
	UserID   string `json:"user_id" binding:"required,uuid"`
	Kind     string `json:"kind" binding:"required,oneof=current all_offices office_group"`
	OfficeID string `json:"office_id"`
	GroupID  string `json:"group_id"`
}

type LoginCheckRequest struct {
	Username string `json:"username" binding:"required"`
	SourceIP string `json:"source_ip" binding:"required,ip"`
	// At defaults to the time the request is handled.
	At *time.Time `json:"at"`
}

type LoginCheckResponse struct {
	Allowed bool `json:"allowed"`
}

// RegisterRoutes mounts the access endpoints. loginGuards run in front of
// login-check only.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, loginGuards ...gin.HandlerFunc) {
	acc := r.Group("/access")
	{
		acc.POST("/scope", h.ResolveScope)
		acc.POST("/login-check", append(loginGuards, h.LoginCheck)...)
	}
}

func (h *Handler) ResolveScope(c *gin.Context) {
	var req ScopeRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	s, err := access.ParseScope(req.Kind, req.OfficeID, req.GroupID)
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest(err.Error(), err))
		return
	}

	result, err := h.scopes.Resolve(c.Request.Context(), handler.PGID(c), uuid.MustParse(req.UserID), s)
	if err != nil {
		handler.RespondError(c, "user", err)
		return
	}

	httputil.RespondWithSuccess(c, result)
}

// LoginCheck answers a bare 403 on denial. The reason stays in the logs.
func (h *Handler) LoginCheck(c *gin.Context) {
	var req LoginCheckRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	attempt := login.Attempt{
		PGID:     handler.PGID(c),
		Username: req.Username,
		SourceIP: req.SourceIP,
	}
	if req.At != nil {
		attempt.At = *req.At
	}

	decision, err := h.logins.Authorize(c.Request.Context(), attempt)
	if err != nil {
		handler.RespondError(c, "user", err)
		return
	}
	if !decision.Allowed {
		httputil.RespondWithError(c, errors.Forbidden(nil))
		return
	}

	httputil.RespondWithSuccess(c, LoginCheckResponse{Allowed: true})
}
