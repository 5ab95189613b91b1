package session

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperr "github.com/Hadesalive/smart-attendace-tracking-sub005/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, ok := parseClock(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("method", func(fl validator.FieldLevel) bool {
		return Method(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		return Status(fl.Field().String()).Valid()
	})
	return v
}

var tagMessages = map[string]string{
	"required": "this field is required",
	"notblank": "must not be blank",
	"clock":    "must be HH:MM or HH:MM:SS",
	"datetime": "must be YYYY-MM-DD",
	"method":   "must be one of qr_code, facial_recognition, hybrid",
	"status":   "must be one of scheduled, active, completed, cancelled",
	"gte":      "must not be negative",
}

// validateStruct runs struct-tag validation and reports the first failing field.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	msg, ok := tagMessages[fe.Tag()]
	if !ok {
		msg = "is invalid"
	}
	return apperr.NewValidationError(fe.Field(), msg)
}

// validateWindow rejects sessions whose end time is not after the start time.
func validateWindow(s Session) error {
	start, end, err := Window(s, time.UTC)
	if err != nil {
		return err
	}
	if !end.After(start) {
		return apperr.NewValidationError("end_time", "must be after start_time")
	}
	return nil
}

// ValidateDraft checks a draft before any network call.
func ValidateDraft(d Draft) error {
	if err := validateStruct(d); err != nil {
		return err
	}
	return validateWindow(Session{Date: d.Date, StartTime: d.StartTime, EndTime: d.EndTime})
}
