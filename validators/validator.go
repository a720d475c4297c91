package validators

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CustomValidator adapts go-playground/validator to echo.Validator.
type CustomValidator struct {
	validate *validator.Validate
}

// NewValidator returns a validator with the project's custom tags registered:
//
//	objectid  - a 24-character hex MongoDB ObjectID
//	userid    - a non-empty user id usable as a document field name
func NewValidator() *CustomValidator {
	v := validator.New()
	_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		return primitive.IsValidObjectID(fl.Field().String())
	})
	_ = v.RegisterValidation("userid", func(fl validator.FieldLevel) bool {
		return ValidUserID(fl.Field().String())
	})
	return &CustomValidator{validate: v}
}

// Validate implements echo.Validator. Failures become 400s.
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// ValidUserID rejects ids that would break a dotted update path such as
// "unreadCounts.<id>".
func ValidUserID(id string) bool {
	return id != "" && len(id) <= 128 && !strings.ContainsAny(id, ".$ \x00")
}
