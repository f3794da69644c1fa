package handler

import (
    "errors"
    "fmt"
    "net/http"
    "reflect"
    "strings"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/library-reservation/internal/scheduling"
)

// Validator plugs go-playground/validator into echo's c.Validate.
type Validator struct {
    v *validator.Validate
}

// NewValidator registers the "date" tag (YYYY-MM-DD) on top of the
// built-in rules.
func NewValidator() *Validator {
    v := validator.New()
    // report json names, not Go field names
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
        if name == "-" {
            return ""
        }
        return name
    })
    _ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
        _, err := scheduling.ParseDate(fl.Field().String())
        return err == nil
    })
    return &Validator{v: v}
}

func (v *Validator) Validate(i interface{}) error { return v.v.Struct(i) }

// bindValid binds the body into dst and validates it.  When it reports
// false the 400 response has been written and the caller returns err.
func bindValid(c echo.Context, dst interface{}) (bool, error) {
    if err := c.Bind(dst); err != nil {
        return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if err := c.Validate(dst); err != nil {
        return false, c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
    }
    return true, nil
}

func validationMessage(err error) string {
    var ve validator.ValidationErrors
    if !errors.As(err, &ve) {
        return err.Error()
    }
    msgs := make([]string, 0, len(ve))
    for _, fe := range ve {
        field := fe.Field()
        switch fe.Tag() {
        case "required":
            msgs = append(msgs, field+" is required")
        case "email":
            msgs = append(msgs, field+" must be a valid email")
        case "min":
            msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
        case "date":
            msgs = append(msgs, field+" must be a date in YYYY-MM-DD format")
        default:
            msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", field, fe.Tag()))
        }
    }
    return strings.Join(msgs, "; ")
}
