package auth

import (
	apperrors "medisched/pkg/errors"
)

type Operation string

const (
	BookAppointment         Operation = "appointment.book"
	ViewAppointment         Operation = "appointment.view"
	UpdateAppointment       Operation = "appointment.update"
	CancelAppointment       Operation = "appointment.cancel"
	TransitionAppointment   Operation = "appointment.transition"
	ListOwnAppointments     Operation = "appointment.list_own"
	ListDoctorAppointments  Operation = "appointment.list_doctor"
	ListPatientAppointments Operation = "appointment.list_patient"
	AppointmentStats        Operation = "appointment.stats"

	RequestSlot         Operation = "timeslot.request"
	ApproveSlot         Operation = "timeslot.approve"
	RejectSlot          Operation = "timeslot.reject"
	MarkSlotUnavailable Operation = "timeslot.mark_unavailable"
	ListPendingSlots    Operation = "timeslot.list_pending"
	ViewTemplates       Operation = "timeslot.view"

	ManageDoctors Operation = "doctor.manage"
	ViewDoctors   Operation = "doctor.view"
)

// Ownership describes how the principal relates to the resource being acted on.
// IsPatient means the principal is the patient of the appointment; IsDoctor means
// the principal is the doctor the appointment or template entry belongs to.
type Ownership struct {
	IsPatient bool
	IsDoctor  bool
}

type rule func(p *Principal, own Ownership) bool

func anyone(*Principal, Ownership) bool { return true }

func roles(allowed ...string) rule {
	return func(p *Principal, _ Ownership) bool {
		for _, r := range allowed {
			if p.Role == r {
				return true
			}
		}
		return false
	}
}

var policy = map[Operation]rule{
	BookAppointment: roles(RolePatient, RoleStaff, RoleAdmin),
	ViewAppointment: func(p *Principal, own Ownership) bool {
		return own.IsPatient || own.IsDoctor || p.Role == RoleStaff || p.Role == RoleAdmin
	},
	UpdateAppointment: func(p *Principal, own Ownership) bool {
		return own.IsPatient || p.Role == RoleStaff || p.Role == RoleAdmin
	},
	CancelAppointment: func(p *Principal, own Ownership) bool {
		return own.IsPatient || own.IsDoctor || p.Role == RoleAdmin || p.Role == RoleSystem
	},
	TransitionAppointment: func(p *Principal, own Ownership) bool {
		return own.IsDoctor || p.Role == RoleAdmin || p.Role == RoleSystem
	},
	ListOwnAppointments: roles(RolePatient),
	ListDoctorAppointments: func(p *Principal, own Ownership) bool {
		return own.IsDoctor || p.Role == RoleStaff || p.Role == RoleAdmin
	},
	ListPatientAppointments: func(p *Principal, own Ownership) bool {
		return own.IsPatient || p.Role == RoleStaff || p.Role == RoleAdmin
	},
	AppointmentStats: func(p *Principal, own Ownership) bool {
		return own.IsDoctor || p.Role == RoleAdmin
	},

	RequestSlot: func(p *Principal, own Ownership) bool {
		return (p.Role == RoleDoctor && own.IsDoctor) || p.Role == RoleAdmin
	},
	ApproveSlot:      roles(RoleAdmin),
	RejectSlot:       roles(RoleAdmin),
	ListPendingSlots: roles(RoleAdmin),
	MarkSlotUnavailable: func(p *Principal, own Ownership) bool {
		return (p.Role == RoleDoctor && own.IsDoctor) || p.Role == RoleAdmin
	},
	ViewTemplates: anyone,

	ManageDoctors: roles(RoleAdmin),
	ViewDoctors:   anyone,
}

// Authorize is the single authorization decision point. A nil principal is
// unauthorized; a principal the policy does not allow is forbidden.
func Authorize(p *Principal, op Operation, own Ownership) error {
	if p == nil || p.ID == "" {
		return apperrors.Unauthorized("Authentication required")
	}
	allowed, ok := policy[op]
	if !ok || !allowed(p, own) {
		return apperrors.Forbidden("Not allowed to perform " + string(op))
	}
	return nil
}
