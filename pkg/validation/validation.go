package validation

import (
	"errors"
	"fmt"
	"medisched/pkg/calendar"
	apperrors "medisched/pkg/errors"
	"medisched/pkg/logger"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Details renders the errors for an AppError details payload.
func (v ValidationErrors) Details() map[string]any {
	fields := make(map[string]string, len(v))
	for _, err := range v {
		fields[err.Field] = err.Message
	}
	return map[string]any{"fields": fields}
}

// AppError reports a validation failure as VALIDATION_ERROR with per-field details.
func AppError(message string, err error) *apperrors.AppError {
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Details())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}

// InvalidInputError reports malformed request input as INVALID_INPUT with the
// same per-field details as AppError.
func InvalidInputError(message string, err error) *apperrors.AppError {
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.InvalidInput(message).WithDetails(verrs.Details())
	}
	return apperrors.InvalidInput(message).WithDetails(map[string]any{"error": err.Error()})
}

// New returns a validator with the scheduling tags registered:
// slot_label, weekday_name, clock_time and clock_end_time.
func New(catalog *calendar.SlotCatalog, log *logger.Logger) *validator.Validate {
	v := validator.New()

	custom := map[string]validator.Func{
		"slot_label": func(fl validator.FieldLevel) bool {
			return catalog.Has(fl.Field().String())
		},
		"weekday_name": func(fl validator.FieldLevel) bool {
			_, err := calendar.ParseWeekday(fl.Field().String())
			return err == nil
		},
		"clock_time": func(fl validator.FieldLevel) bool {
			_, err := calendar.ParseClock(fl.Field().String())
			return err == nil
		},
		"clock_end_time": func(fl validator.FieldLevel) bool {
			_, err := calendar.ParseEndClock(fl.Field().String())
			return err == nil
		},
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatal("Failed to register validator", "tag", tag, "error", err)
		}
	}
	return v
}

// Struct validates s and translates validator errors into ValidationErrors.
func Struct(v *validator.Validate, s any) error {
	if err := v.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return Translate(validationErrs)
		}
		return err
	}
	return nil
}

func Translate(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "slot_label":
			message = fmt.Sprintf("%s must be a known slot label", err.Field())
		case "weekday_name":
			message = fmt.Sprintf("%s must be a day name such as Monday", err.Field())
		case "clock_time", "clock_end_time":
			message = fmt.Sprintf("%s must be a clock time in HH:MM format", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
