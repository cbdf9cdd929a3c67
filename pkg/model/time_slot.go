package model

import (
	"medisched/pkg/calendar"
	"time"
)

const (
	SlotRequested   = "requested"
	SlotAvailable   = "available"
	SlotUnavailable = "unavailable"
)

// TimeSlot is a recurring weekly availability entry of a doctor.
type TimeSlot struct {
	ID        string     `json:"id,omitempty" bson:"_id,omitempty"`
	DoctorID  string     `json:"doctor_id" bson:"doctor_id"`
	DayOfWeek int        `json:"day_of_week" bson:"day_of_week"`
	SlotLabel string     `json:"slot_label,omitempty" bson:"slot_label,omitempty"`
	StartTime string     `json:"start_time" bson:"start_time"`
	EndTime   string     `json:"end_time" bson:"end_time"`
	Status    string     `json:"status" bson:"status"`
	ValidFrom *time.Time `json:"valid_from,omitempty" bson:"valid_from,omitempty"`
	ValidTo   *time.Time `json:"valid_to,omitempty" bson:"valid_to,omitempty"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}

func (s *TimeSlot) Window() (calendar.Window, error) {
	return calendar.ParseRange(s.StartTime, s.EndTime)
}

// ValidOn reports whether the entry applies on the given canonical date.
func (s *TimeSlot) ValidOn(day time.Time) bool {
	day = calendar.Normalize(day)
	if s.ValidFrom != nil && day.Before(calendar.Normalize(*s.ValidFrom)) {
		return false
	}
	if s.ValidTo != nil && day.After(calendar.Normalize(*s.ValidTo)) {
		return false
	}
	return true
}

// ValidityIntersects reports whether two entries can ever apply on the same day.
func (s *TimeSlot) ValidityIntersects(other *TimeSlot) bool {
	if s.ValidTo != nil && other.ValidFrom != nil && calendar.Normalize(*s.ValidTo).Before(calendar.Normalize(*other.ValidFrom)) {
		return false
	}
	if other.ValidTo != nil && s.ValidFrom != nil && calendar.Normalize(*other.ValidTo).Before(calendar.Normalize(*s.ValidFrom)) {
		return false
	}
	return true
}

// Serves reports whether an available entry accepts bookings for the label on day.
// A labelled entry serves its own label; an unlabelled one serves every label
// whose window it covers.
func (s *TimeSlot) Serves(label string, labelWindow calendar.Window, day time.Time) bool {
	if s.Status != SlotAvailable || !s.ValidOn(day) {
		return false
	}
	if s.DayOfWeek != calendar.Weekday(day) {
		return false
	}
	if s.SlotLabel != "" && s.SlotLabel == label {
		return true
	}
	w, err := s.Window()
	if err != nil {
		return false
	}
	return w.Covers(labelWindow)
}

// SlotRequest is what a doctor submits to propose weekly availability. Either
// SlotLabel or both StartTime and EndTime must be given.
type SlotRequest struct {
	DoctorID  string   `json:"doctor_id,omitempty" validate:"omitempty,mongodb"`
	Days      []string `json:"days" validate:"required,min=1,max=7,dive,weekday_name"`
	SlotLabel string   `json:"slot_label,omitempty" validate:"omitempty,slot_label"`
	StartTime string   `json:"start_time,omitempty" validate:"omitempty,clock_time"`
	EndTime   string   `json:"end_time,omitempty" validate:"omitempty,clock_end_time"`
	ValidFrom string   `json:"valid_from,omitempty"`
	ValidTo   string   `json:"valid_to,omitempty"`
}

type SlotFilter struct {
	DoctorID  string
	DayOfWeek *int
	Statuses  []string
}
