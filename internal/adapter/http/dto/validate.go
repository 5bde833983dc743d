package dto

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iho/genfin/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterValidation("money", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseMoney(fl.Field().String())
		return err == nil
	})

	return v
}

// Validate checks the request's validate tags. Failures are validation errors
// naming each offending JSON field.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domain.NewValidationError("request", err.Error())
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}

	return domain.NewValidationError("request", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "money":
		return field + " must be a decimal string with two fractional digits"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "min":
		return field + " must have at least " + fe.Param() + " item(s)"
	default:
		return field + " failed " + fe.Tag()
	}
}

// Date accepts "2006-01-02" or RFC 3339 timestamps.
type Date struct {
	time.Time
}

// UnmarshalJSON parses either date form.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}

	if t, err := time.Parse(time.DateOnly, s); err == nil {
		d.Time = t
		return nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return domain.NewValidationError("date", "dates must be YYYY-MM-DD or RFC 3339")
	}
	d.Time = t
	return nil
}

// Value returns the wrapped time, zero for a nil date.
func (d *Date) Value() time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}

func parseMoney(s string) (domain.Money, error) {
	if s == "" {
		return 0, nil
	}
	return domain.ParseMoney(s)
}
