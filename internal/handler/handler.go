package handler

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jwalitptl/access-api/internal/middleware"
	"github.com/jwalitptl/access-api/pkg/errors"
	"github.com/jwalitptl/access-api/pkg/httputil"
)

// PGID is the tenant of the authenticated caller.
func PGID(c *gin.Context) string {
	return c.GetString(middleware.ContextPGID)
}

// ParseID reads a uuid path parameter, responding 400 when it is malformed.
func ParseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid "+param, err))
		return uuid.Nil, false
	}
	return id, true
}

// BindJSON binds the body into req. Field validation failures are attached to
// the context for the Validation middleware; malformed JSON is a 400.
func BindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) {
			_ = c.Error(err).SetType(gin.ErrorTypeBind)
			c.Abort()
			return false
		}
		httputil.RespondWithError(c, errors.BadRequest("invalid request body", err))
		return false
	}
	return true
}
