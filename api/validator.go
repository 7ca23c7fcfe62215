package api

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/bitmark-inc/plasmalink-api/bloodgroup"
)

var validatorOnce sync.Once

// registerValidators adds the domain tags to gin's binding validator and
// reports fields by their json names
func registerValidators() {
	validatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		if err := v.RegisterValidation("bloodgroup", func(fl validator.FieldLevel) bool {
			return bloodgroup.Valid(bloodgroup.Normalize(fl.Field().String()))
		}); err != nil {
			panic(err)
		}

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
}

// validationDetails renders binding errors as a field level message
func validationDetails(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}

	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		var msg string
		switch e.Tag() {
		case "required":
			msg = "is required"
		case "email":
			msg = "must be a valid email"
		case "min":
			msg = fmt.Sprintf("must be at least %s characters", e.Param())
		case "max":
			msg = fmt.Sprintf("must be at most %s characters", e.Param())
		case "oneof":
			msg = fmt.Sprintf("must be one of [%s]", e.Param())
		case "bloodgroup":
			msg = fmt.Sprintf("must be one of [%s]", strings.Join(bloodgroup.All, " "))
		default:
			msg = "is invalid"
		}
		messages = append(messages, e.Field()+" "+msg)
	}

	return strings.Join(messages, "; ")
}

// abortWithInvalidParameters answers 1010 with the field level details
func abortWithInvalidParameters(c *gin.Context, err error) {
	resp := errorInvalidParameters
	resp.Details = validationDetails(err)
	abortWithEncoding(c, http.StatusBadRequest, resp, err)
}
