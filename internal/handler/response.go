package handler

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/access-api/internal/access"
	"github.com/jwalitptl/access-api/internal/repository"
	"github.com/jwalitptl/access-api/internal/service/user"
	"github.com/jwalitptl/access-api/pkg/errors"
	"github.com/jwalitptl/access-api/pkg/httputil"
)

// RespondError maps service errors onto API errors. resource names what was
// looked up for not-found responses.
func RespondError(c *gin.Context, resource string, err error) {
	httputil.RespondWithError(c, ToAppError(resource, err))
}

func ToAppError(resource string, err error) *errors.AppError {
	if appErr, ok := errors.As(err); ok {
		return appErr
	}

	var verrs access.ValidationErrors
	switch {
	case stderrors.As(err, &verrs):
		return errors.NewValidation(verrs, err)
	case stderrors.Is(err, repository.ErrNotFound):
		return errors.NotFound(resource, err)
	case stderrors.Is(err, user.ErrUserHasHistory):
		return errors.NewConflict(user.ErrUserHasHistory.Error(), err)
	case stderrors.Is(err, user.ErrUsernameTaken):
		return errors.NewConflict(user.ErrUsernameTaken.Error(), err)
	case stderrors.Is(err, access.ErrRemoveHomeOffice),
		stderrors.Is(err, access.ErrLastOffice),
		stderrors.Is(err, access.ErrHomeOfficeRequired):
		return errors.NewConflict(err.Error(), err)
	}
	return errors.Internal(err)
}
