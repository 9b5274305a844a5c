package organization

import (
	stderrors "errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/access-api/internal/access"
	"github.com/jwalitptl/access-api/internal/handler"
	"github.com/jwalitptl/access-api/internal/service/office"
	"github.com/jwalitptl/access-api/pkg/httputil"
)

// Handler serves the caller's organization and its office directory.
type Handler struct {
	service office.OfficeServicer
}

func NewHandler(service office.OfficeServicer) *Handler {
	return &Handler{service: service}
}

type OfficeNameResponse struct {
	OfficeID string `json:"office_id"`
	Name     string `json:"name"`
}

type DirectoryCheckResponse struct {
	Consistent bool     `json:"consistent"`
	Problems   []string `json:"problems,omitempty"`
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/organization", h.GetOrganization)

	offices := r.Group("/offices")
	{
		offices.GET("", h.ListOffices)
		offices.GET("/check", h.CheckDirectory)
		offices.GET("/:office_id/name", h.GetOfficeName)
	}

	r.GET("/office-groups/:group_id", h.GetOfficeGroup)
}

func (h *Handler) GetOrganization(c *gin.Context) {
	org, err := h.service.GetOrganization(c.Request.Context(), handler.PGID(c))
	if err != nil {
		handler.RespondError(c, "organization", err)
		return
	}

	httputil.RespondWithSuccess(c, org)
}

func (h *Handler) ListOffices(c *gin.Context) {
	offices, err := h.service.ListOffices(c.Request.Context(), handler.PGID(c))
	if err != nil {
		handler.RespondError(c, "office", err)
		return
	}

	httputil.RespondWithSuccess(c, offices)
}

// GetOfficeName always answers 200; offices missing from the directory get a placeholder name.
func (h *Handler) GetOfficeName(c *gin.Context) {
	officeID := access.NormalizeOfficeID(c.Param("office_id"))

	name, err := h.service.ResolveName(c.Request.Context(), handler.PGID(c), officeID)
	if err != nil {
		handler.RespondError(c, "office", err)
		return
	}

	httputil.RespondWithSuccess(c, OfficeNameResponse{OfficeID: officeID, Name: name})
}

func (h *Handler) GetOfficeGroup(c *gin.Context) {
	group, err := h.service.GetOfficeGroup(c.Request.Context(), handler.PGID(c), c.Param("group_id"))
	if err != nil {
		handler.RespondError(c, "office group", err)
		return
	}

	httputil.RespondWithSuccess(c, group)
}

func (h *Handler) CheckDirectory(c *gin.Context) {
	err := h.service.CheckTenant(c.Request.Context(), handler.PGID(c))
	if err == nil {
		httputil.RespondWithSuccess(c, DirectoryCheckResponse{Consistent: true})
		return
	}
	if !stderrors.Is(err, office.ErrDuplicateOfficeID) && !stderrors.Is(err, office.ErrOIDMismatch) {
		handler.RespondError(c, "office", err)
		return
	}

	httputil.RespondWithSuccess(c, DirectoryCheckResponse{
		Problems: strings.Split(err.Error(), "\n"),
	})
}
