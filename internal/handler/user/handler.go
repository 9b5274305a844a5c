package user

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/access-api/internal/access"
	"github.com/jwalitptl/access-api/internal/handler"
	"github.com/jwalitptl/access-api/internal/model"
	"github.com/jwalitptl/access-api/internal/service/user"
	"github.com/jwalitptl/access-api/pkg/errors"
	"github.com/jwalitptl/access-api/pkg/httputil"
)

type Handler struct {
	service user.UserServicer
}

func NewHandler(service user.UserServicer) *Handler {
	return &Handler{service: service}
}

type SecurityGroupRequest struct {
	Code string `json:"code" binding:"required"`
}

type PermittedIPRequest struct {
	Entry string `json:"entry" binding:"required,ipv4entry"`
}

type LoginRestrictionRequest struct {
	Restricted   bool     `json:"restricted"`
	AllowedDays  []string `json:"allowed_days" binding:"required_if=Restricted true,dive,weekday"`
	AllowedFrom  string   `json:"allowed_from" binding:"required_if=Restricted true,omitempty,hhmm"`
	AllowedUntil string   `json:"allowed_until" binding:"required_if=Restricted true,omitempty,hhmm"`
	TimeZone     string   `json:"time_zone" binding:"omitempty,timezone"`
}

// toModel assumes the request passed binding validation.
func (r LoginRestrictionRequest) toModel() model.LoginRestriction {
	if !r.Restricted {
		return model.Unrestricted
	}
	out := model.LoginRestriction{Restricted: true, TimeZone: r.TimeZone}
	for _, d := range r.AllowedDays {
		day, _ := model.ParseWeekday(d)
		if !out.AllowedDays.Contains(day) {
			out.AllowedDays = append(out.AllowedDays, day)
		}
	}
	out.AllowedFrom, _ = model.ParseClockTime(r.AllowedFrom)
	out.AllowedUntil, _ = model.ParseClockTime(r.AllowedUntil)
	return out
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	{
		users.POST("", h.CreateUser)
		users.GET("", h.ListUsers)
		users.GET("/:id", h.GetUser)
		users.PUT("/:id", h.UpdateUser)
		users.DELETE("/:id", h.DeleteUser)
		users.POST("/:id/deactivate", h.DeactivateUser)

		// Office assignment
		users.POST("/:id/offices/:office_id", h.AssignOffice)
		users.DELETE("/:id/offices/:office_id", h.RemoveOffice)
		users.PUT("/:id/home-office/:office_id", h.SetHomeOffice)

		users.POST("/:id/security-groups", h.AddSecurityGroup)
		users.POST("/:id/permitted-ips", h.AddPermittedIP)
		users.PUT("/:id/login-restriction", h.SetLoginRestriction)
		users.GET("/:id/permissions", h.GetPermissions)
	}
}

// decodeUser reads a user payload in either snake_case or camelCase form.
func decodeUser(c *gin.Context) (*model.User, bool) {
	data, err := c.GetRawData()
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("failed to read request body", err))
		return nil, false
	}
	u, err := access.DecodeUserPayload(data)
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid user payload", err))
		return nil, false
	}
	return u, true
}

func (h *Handler) CreateUser(c *gin.Context) {
	u, ok := decodeUser(c)
	if !ok {
		return
	}

	if err := h.service.CreateUser(c.Request.Context(), handler.PGID(c), u); err != nil {
		handler.RespondError(c, "user", err)
		return
	}

	httputil.RespondWithStatus(c, http.StatusCreated, u)
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	u, err := h.service.GetUser(c.Request.Context(), handler.PGID(c), id)
	if err != nil {
		handler.RespondError(c, "user", err)
		return
	}

	httputil.RespondWithSuccess(c, u)
}

func (h *Handler) ListUsers(c *gin.Context) {
	var filters model.UserFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid filters", err))
		return
	}
	filters.PGID = handler.PGID(c)

	users, err := h.service.ListUsers(c.Request.Context(), &filters)
	if err != nil {
		handler.RespondError(c, "user", err)
		return
	}

	httputil.RespondWithSuccess(c, users)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	candidate, ok := decodeUser(c)
	if !ok {
		return
	}

	u, err := h.service.UpdateUser(c.Request.Context(), handler.PGID(c), id, candidate)
	if err != nil {
		handler.RespondError(c, "user", err)
		return
	}

	httputil.RespondWithSuccess(c, u)
}

// DeleteUser answers 409 for users with history; those must be deactivated.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteUser(c.Request.Context(), handler.PGID(c), id); err != nil {
		handler.RespondError(c, "user", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) DeactivateUser(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeactivateUser(c.Request.Context(), handler.PGID(c), id); err != nil {
		handler.RespondError(c, "user", err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"active": false})
}

func (h *Handler) AssignOffice(c *gin.Context) {
	h.changeOffice(c, h.service.AssignOffice)
}

func (h *Handler) RemoveOffice(c *gin.Context) {
	h.changeOffice(c, h.service.RemoveOffice)
}

func (h *Handler) SetHomeOffice(c *gin.Context) {
	h.changeOffice(c, h.service.SetHomeOffice)
}

type officeChange func(ctx context.Context, pgid string, id uuid.UUID, officeID string) (*model.User, error)

func (h *Handler) changeOffice(c *gin.Context, change officeChange) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	u, err := change(c.Request.Context(), handler.PGID(c), id, c.Param("office_id"))
	if err != nil {
		handler.RespondError(c, "user", err)
		return
	}

	httputil.RespondWithSuccess(c, u)
}

func (h *Handler) AddSecurityGroup(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req SecurityGroupRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	u, err := h.service.AddSecurityGroup(c.Request.Context(), handler.PGID(c), id, req.Code)
	if err != nil {
		handler.RespondError(c, "user", err)
		return
	}

	httputil.RespondWithSuccess(c, u)
}

func (h *Handler) AddPermittedIP(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req PermittedIPRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	u, err := h.service.AddPermittedIP(c.Request.Context(), handler.PGID(c), id, req.Entry)
	if err != nil {
		handler.RespondError(c, "user", err)
		return
	}

	httputil.RespondWithSuccess(c, u)
}

func (h *Handler) SetLoginRestriction(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req LoginRestrictionRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	u, err := h.service.SetLoginRestriction(c.Request.Context(), handler.PGID(c), id, req.toModel())
	if err != nil {
		handler.RespondError(c, "user", err)
		return
	}

	httputil.RespondWithSuccess(c, u)
}

func (h *Handler) GetPermissions(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	perms, err := h.service.EffectivePermissions(c.Request.Context(), handler.PGID(c), id)
	if err != nil {
		handler.RespondError(c, "user", err)
		return
	}

	httputil.RespondWithSuccess(c, perms)
}
