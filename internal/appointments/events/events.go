package events

import (
	"time"
)

const (
	TypeBooked        = "appointment.booked"
	TypeRescheduled   = "appointment.rescheduled"
	TypeStatusChanged = "appointment.status_changed"

	TypePrescriptionCompleted = "prescription.completed"

	SchemaVersion = "1"
)

// AppointmentEvent is the payload of every appointment topic message.
type AppointmentEvent struct {
	AppointmentID  string    `json:"appointment_id"`
	DoctorID       string    `json:"doctor_id"`
	PatientID      string    `json:"patient_id"`
	BookedDate     string    `json:"booked_date"`
	DayOfWeek      int       `json:"day_of_week"`
	TimeSlot       string    `json:"time_slot"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	Urgency        string    `json:"urgency"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// PrescriptionCompleted is sent by the prescription service once a
// prescription for an appointment has been written.
type PrescriptionCompleted struct {
	PrescriptionID string    `json:"prescription_id"`
	AppointmentID  string    `json:"appointment_id"`
	DoctorID       string    `json:"doctor_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
