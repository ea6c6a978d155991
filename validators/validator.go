package validators

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// CustomValidator plugs go-playground/validator into echo's Validate hook.
type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator() *CustomValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("push_provider", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "", "webpush", "fcm":
			return true
		}
		return false
	})
	return &CustomValidator{validator: v}
}

// Validate returns a 400 describing every failed field.
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		msgs := make([]string, 0, len(errs))
		for _, fe := range errs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return echo.NewHTTPError(http.StatusBadRequest, strings.Join(msgs, "; "))
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must be at least " + fe.Param()
	case "max":
		return field + " must be at most " + fe.Param()
	case "gtfield":
		return field + " must be after " + strings.ToLower(fe.Param())
	case "url":
		return field + " must be a valid URL"
	case "oneof", "push_provider":
		return field + " has an unsupported value"
	default:
		return field + " is invalid"
	}
}
