package model

import (
	"medisched/pkg/calendar"
	"time"
)

const (
	StatusBooked    = "booked"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no-show"
)

const (
	UrgencyLow       = "low"
	UrgencyNormal    = "normal"
	UrgencyHigh      = "high"
	UrgencyEmergency = "emergency"
)

const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentWaived  = "waived"
)

var appointmentTransitions = map[string][]string{
	StatusBooked:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
}

// ActiveStatuses are the statuses that hold a doctor's slot.
var ActiveStatuses = []string{StatusBooked, StatusConfirmed}

type Appointment struct {
	ID              string         `json:"id,omitempty" bson:"_id,omitempty"`
	PatientID       string         `json:"patient_id" bson:"patient_id"`
	DoctorID        string         `json:"doctor_id" bson:"doctor_id"`
	BookedDate      time.Time      `json:"booked_date" bson:"booked_date"`
	DayOfWeek       int            `json:"day_of_week" bson:"day_of_week"`
	TimeSlot        string         `json:"time_slot" bson:"time_slot"`
	Reason          string         `json:"reason" bson:"reason"`
	Urgency         string         `json:"urgency" bson:"urgency"`
	Status          string         `json:"status" bson:"status"`
	Active          bool           `json:"-" bson:"active"`
	Notes           string         `json:"notes,omitempty" bson:"notes,omitempty"`
	ConsultationFee float64        `json:"consultation_fee,omitempty" bson:"consultation_fee,omitempty"`
	PaymentStatus   string         `json:"payment_status" bson:"payment_status"`
	PrescriptionID  string         `json:"prescription_id,omitempty" bson:"prescription_id,omitempty"`
	StatusHistory   []StatusChange `json:"status_history,omitempty" bson:"status_history,omitempty"`
	CreatedAt       time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" bson:"updated_at"`
}

type StatusChange struct {
	From      string    `json:"from" bson:"from"`
	To        string    `json:"to" bson:"to"`
	ActorID   string    `json:"actor_id" bson:"actor_id"`
	ActorRole string    `json:"actor_role" bson:"actor_role"`
	At        time.Time `json:"at" bson:"at"`
}

// StampDerived recomputes every stored field that is derived from another one.
// Repositories call it on each write so the copies cannot drift.
func (a *Appointment) StampDerived() {
	a.BookedDate = calendar.Normalize(a.BookedDate)
	a.DayOfWeek = calendar.Weekday(a.BookedDate)
	a.Active = IsActiveStatus(a.Status)
}

func (a *Appointment) IsTerminal() bool {
	return IsTerminalStatus(a.Status)
}

func IsActiveStatus(status string) bool {
	return status == StatusBooked || status == StatusConfirmed
}

func IsTerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusCancelled || status == StatusNoShow
}

func CanTransition(from, to string) bool {
	for _, next := range appointmentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsValidStatus(status string) bool {
	switch status {
	case StatusBooked, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// BookingRequest is the input of a new booking. PatientID is only honoured for
// staff and admins booking on a patient's behalf.
type BookingRequest struct {
	DoctorID  string `json:"doctor_id" validate:"required,mongodb"`
	Date      string `json:"date" validate:"required"`
	TimeSlot  string `json:"time_slot" validate:"required,slot_label"`
	Reason    string `json:"reason" validate:"required,min=2,max=500"`
	Urgency   string `json:"urgency,omitempty" validate:"omitempty,oneof=low normal high emergency"`
	Notes     string `json:"notes,omitempty" validate:"omitempty,max=2000"`
	PatientID string `json:"patient_id,omitempty" validate:"omitempty,mongodb"`
}

type AppointmentUpdate struct {
	Date     *string `json:"date,omitempty"`
	TimeSlot *string `json:"time_slot,omitempty" validate:"omitempty,slot_label"`
	Reason   *string `json:"reason,omitempty" validate:"omitempty,min=2,max=500"`
	Urgency  *string `json:"urgency,omitempty" validate:"omitempty,oneof=low normal high emergency"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

func (u *AppointmentUpdate) IsEmpty() bool {
	return u.Date == nil && u.TimeSlot == nil && u.Reason == nil && u.Urgency == nil && u.Notes == nil
}

type StatusTransition struct {
	Status string `json:"status" validate:"required,oneof=confirmed completed cancelled no-show"`
}

// AppointmentFilter narrows doctor and patient listings.
type AppointmentFilter struct {
	DoctorID  string
	PatientID string
	Date      *time.Time
	Statuses  []string
}

// PersonSummary is display data attached to an appointment view.
type PersonSummary struct {
	ID        string `json:"id" bson:"_id"`
	Name      string `json:"name" bson:"name"`
	Email     string `json:"email,omitempty" bson:"email,omitempty"`
	Specialty string `json:"specialty,omitempty" bson:"specialty,omitempty"`
}

// AppointmentView is an appointment with doctor and patient display data.
type AppointmentView struct {
	Appointment `bson:",inline"`
	Doctor      *PersonSummary `json:"doctor,omitempty" bson:"doctor,omitempty"`
	Patient     *PersonSummary `json:"patient,omitempty" bson:"patient,omitempty"`
}

type StatusCount struct {
	Status string `json:"status" bson:"_id"`
	Count  int64  `json:"count" bson:"count"`
}

type AppointmentStats struct {
	DoctorID string        `json:"doctor_id,omitempty"`
	Total    int64         `json:"total"`
	ByStatus []StatusCount `json:"by_status"`
}
