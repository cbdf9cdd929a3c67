package events

import (
	"context"
	"fmt"
	"medisched/pkg/auth"
	apperrors "medisched/pkg/errors"
	"medisched/pkg/kafka"
	"medisched/pkg/logger"
	"medisched/pkg/model"
)

// Completer closes an appointment for a written prescription.
type Completer interface {
	CompleteFromPrescription(ctx context.Context, p *auth.Principal, appointmentID, prescriptionID string) (*model.AppointmentView, error)
}

// PrescriptionActor is the principal prescription events act as.
var PrescriptionActor = auth.System("prescription-service")

// NewPrescriptionHandler completes appointments from prescription.completed
// messages. Domain refusals are business errors and go straight to the DLQ;
// internal failures are retried.
func NewPrescriptionHandler(completer Completer, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		if eventType := msg.EventType(); eventType != "" && eventType != TypePrescriptionCompleted {
			log.Debug("Ignoring unrelated event", "event_type", eventType, "offset", msg.Offset)
			return nil
		}

		var event PrescriptionCompleted
		if err := msg.DecodeValue(&event); err != nil {
			return kafka.NewPermanentError("invalid prescription event payload", err)
		}
		if event.AppointmentID == "" || event.PrescriptionID == "" {
			return kafka.NewPermanentError("prescription event is missing ids", kafka.ErrInvalidMessage)
		}

		view, err := completer.CompleteFromPrescription(ctx, PrescriptionActor, event.AppointmentID, event.PrescriptionID)
		if err != nil {
			return classify(err, event)
		}

		log.Info("Appointment completed from prescription",
			"appointment_id", view.ID,
			"prescription_id", event.PrescriptionID,
			"event_id", msg.EventID(),
		)
		return nil
	}
}

func classify(err error, event PrescriptionCompleted) error {
	message := fmt.Sprintf("cannot complete appointment %s for prescription %s", event.AppointmentID, event.PrescriptionID)

	appErr := apperrors.AsAppError(err)
	if appErr == nil {
		return kafka.NewTransientError(message, err)
	}
	switch appErr.Code {
	case apperrors.CodeInternal, apperrors.CodeTimeout, apperrors.CodeUnavailable:
		return kafka.NewTransientError(message, err)
	}
	return kafka.NewBusinessError(message, err)
}
