package middleware

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/access-api/internal/access"
	"github.com/jwalitptl/access-api/internal/model"
	"github.com/jwalitptl/access-api/pkg/errors"
	"github.com/jwalitptl/access-api/pkg/httputil"
)

// ValidationConfig represents validation middleware configuration
type ValidationConfig struct {
	CustomValidators map[string]validator.Func
	// Reasons maps validator tags onto the reason codes returned to clients.
	Reasons map[string]string
}

func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		CustomValidators: map[string]validator.Func{
			"ipv4entry": validateIPv4Entry,
			"hhmm":      validateClockTime,
			"weekday":   validateWeekday,
		},
		Reasons: map[string]string{
			"required":  access.ReasonRequired,
			"ipv4entry": access.ReasonInvalidIP,
			"ip":        access.ReasonInvalidIP,
			"hhmm":      access.ReasonInvalidWindow,
			"weekday":   access.ReasonInvalidWindow,
			"timezone":  access.ReasonInvalidTimeZone,
		},
	}
}

func validateIPv4Entry(fl validator.FieldLevel) bool {
	_, err := access.ParsePermittedIP(fl.Field().String())
	return err == nil
}

func validateClockTime(fl validator.FieldLevel) bool {
	_, err := model.ParseClockTime(fl.Field().String())
	return err == nil
}

func validateWeekday(fl validator.FieldLevel) bool {
	_, err := model.ParseWeekday(fl.Field().String())
	return err == nil
}

var registerOnce sync.Once

// RegisterValidators installs the custom tags on gin's validator engine.
func RegisterValidators(config ValidationConfig) {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		for tag, fn := range config.CustomValidators {
			if err := v.RegisterValidation(tag, fn); err != nil {
				panic(err)
			}
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
}

// Validation turns binding errors attached by handlers into a 422 listing every field.
func Validation(config ValidationConfig) gin.HandlerFunc {
	RegisterValidators(config)

	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		var fields access.ValidationErrors
		for _, e := range c.Errors {
			var errs validator.ValidationErrors
			if !stderrors.As(e.Err, &errs) {
				continue
			}
			for _, fe := range errs {
				reason := config.Reasons[fe.Tag()]
				if reason == "" {
					reason = fe.Tag()
				}
				fields = append(fields, access.FieldError{Field: fe.Field(), Reason: reason})
			}
		}

		if len(fields) > 0 {
			httputil.RespondWithError(c, errors.NewValidation(fields, fields))
		}
	}
}
