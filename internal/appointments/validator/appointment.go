package validator

import (
	"medisched/pkg/calendar"
	"medisched/pkg/logger"
	"medisched/pkg/model"
	"medisched/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type AppointmentValidator struct {
	validate *validator.Validate
}

func NewAppointmentValidator(catalog *calendar.SlotCatalog, log *logger.Logger) *AppointmentValidator {
	return &AppointmentValidator{
		validate: validation.New(catalog, log),
	}
}

func (v *AppointmentValidator) ValidateBooking(req *model.BookingRequest) error {
	return validation.Struct(v.validate, req)
}

func (v *AppointmentValidator) ValidateUpdate(update *model.AppointmentUpdate) error {
	return validation.Struct(v.validate, update)
}

func (v *AppointmentValidator) ValidateTransition(t *model.StatusTransition) error {
	return validation.Struct(v.validate, t)
}
