package validator

import (
	"errors"
	"medisched/pkg/calendar"
	"medisched/pkg/logger"
	"medisched/pkg/model"
	"medisched/pkg/validation"
	"time"

	"github.com/go-playground/validator/v10"
)

type TimeSlotValidator struct {
	validate *validator.Validate
	clock    *calendar.Clock
}

func NewTimeSlotValidator(catalog *calendar.SlotCatalog, clock *calendar.Clock, log *logger.Logger) *TimeSlotValidator {
	return &TimeSlotValidator{
		validate: validation.New(catalog, log),
		clock:    clock,
	}
}

// Validate checks field formats and the rules that span fields: a label or a
// full clock range, a non-empty range, and an ordered validity window.
func (v *TimeSlotValidator) Validate(req *model.SlotRequest) error {
	var verrs validation.ValidationErrors
	if err := validation.Struct(v.validate, req); err != nil {
		if !errors.As(err, &verrs) {
			return err
		}
	}

	switch {
	case req.SlotLabel != "":
	case req.StartTime == "" && req.EndTime == "":
		verrs = append(verrs, validation.ValidationError{
			Field:   "slot_label",
			Message: "either slot_label or start_time and end_time is required",
		})
	case req.StartTime == "" || req.EndTime == "":
		verrs = append(verrs, validation.ValidationError{
			Field:   "start_time",
			Message: "start_time and end_time must be given together",
		})
	default:
		if _, err := calendar.ParseRange(req.StartTime, req.EndTime); err != nil {
			verrs = append(verrs, validation.ValidationError{Field: "end_time", Message: err.Error()})
		}
	}

	from, fromErr := v.optionalDate(req.ValidFrom)
	if fromErr != nil {
		verrs = append(verrs, validation.ValidationError{Field: "valid_from", Message: fromErr.Error()})
	}
	to, toErr := v.optionalDate(req.ValidTo)
	if toErr != nil {
		verrs = append(verrs, validation.ValidationError{Field: "valid_to", Message: toErr.Error()})
	}
	if from != nil && to != nil && to.Before(*from) {
		verrs = append(verrs, validation.ValidationError{Field: "valid_to", Message: "must not be before valid_from"})
	}

	if len(verrs) > 0 {
		return verrs
	}
	return nil
}

func (v *TimeSlotValidator) optionalDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	d, err := v.clock.ParseDate(value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
