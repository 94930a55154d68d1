package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// FormatValidationError formats validation errors into a readable string.
func FormatValidationError(err error) string {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		messages := make([]string, 0, len(errs))
		for _, e := range errs {
			switch e.Tag() {
			case "required":
				messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
			case "oneof":
				messages = append(messages, fmt.Sprintf("%s must be one of [%s]", e.Field(), e.Param()))
			case "min", "max", "gte", "lte":
				messages = append(messages, fmt.Sprintf("%s must satisfy %s=%s", e.Field(), e.Tag(), e.Param()))
			default:
				messages = append(messages, fmt.Sprintf("%s is invalid (%s)", e.Field(), e.Tag()))
			}
		}
		return strings.Join(messages, ", ")
	}
	return err.Error()
}

// BindAndValidate binds the request body to a struct; gin runs the
// `binding` tags through validator/v10 while binding.
// If binding fails, it sends a BadRequest response and returns false.
func BindAndValidate(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			BadRequest(c, "Validation failed: "+FormatValidationError(err))
			return false
		}
		BadRequest(c, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}
