package validator

import (
	"medisched/pkg/calendar"
	"medisched/pkg/logger"
	"medisched/pkg/model"
	"medisched/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type DoctorValidator struct {
	validate *validator.Validate
}

func NewDoctorValidator(log *logger.Logger) *DoctorValidator {
	return &DoctorValidator{
		validate: validation.New(calendar.DefaultSlotCatalog(), log),
	}
}

func (v *DoctorValidator) Validate(doctor *model.Doctor) error {
	return validation.Struct(v.validate, doctor)
}

func (v *DoctorValidator) ValidateUpdate(update *model.DoctorUpdate) error {
	return validation.Struct(v.validate, update)
}
