package service

import (
	"context"
	"errors"
	"fmt"
	appointmenterrors "medisched/internal/appointments/errors"
	"medisched/internal/appointments/repository"
	"medisched/internal/appointments/validator"
	"medisched/pkg/auth"
	"medisched/pkg/calendar"
	"medisched/pkg/config"
	apperrors "medisched/pkg/errors"
	"medisched/pkg/metrics"
	"medisched/pkg/model"
	"medisched/pkg/sanitizer"
	"medisched/pkg/validation"
	"sync"
	"time"
)

// DoctorDirectory confirms that a doctor id refers to a registered doctor.
type DoctorDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Availability returns a doctor's bookable template entries for a weekday.
type Availability interface {
	FindAvailable(ctx context.Context, doctorID string, dayOfWeek int) ([]*model.TimeSlot, error)
}

// EventPublisher announces appointment changes to other services.
type EventPublisher interface {
	PublishBooked(ctx context.Context, a *model.Appointment) error
	PublishRescheduled(ctx context.Context, a *model.Appointment) error
	PublishStatusChanged(ctx context.Context, a *model.Appointment, from string) error
}

type AppointmentService interface {
	RequestBooking(ctx context.Context, p *auth.Principal, req *model.BookingRequest) (*model.AppointmentView, error)
	RescheduleOrUpdate(ctx context.Context, p *auth.Principal, id string, patch *model.AppointmentUpdate) (*model.AppointmentView, error)
	TransitionStatus(ctx context.Context, p *auth.Principal, id, status string) (*model.AppointmentView, error)
	Cancel(ctx context.Context, p *auth.Principal, id string) (*model.AppointmentView, error)
	GetByID(ctx context.Context, p *auth.Principal, id string) (*model.AppointmentView, error)
	ListMine(ctx context.Context, p *auth.Principal, filter model.AppointmentFilter, limit int, offset int64) ([]*model.AppointmentView, int64, error)
	ListForDoctor(ctx context.Context, p *auth.Principal, filter model.AppointmentFilter, limit int, offset int64) ([]*model.AppointmentView, int64, error)
	ListByPatient(ctx context.Context, p *auth.Principal, filter model.AppointmentFilter, limit int, offset int64) ([]*model.AppointmentView, int64, error)
	Stats(ctx context.Context, p *auth.Principal, doctorID string) (*model.AppointmentStats, error)
	CompleteFromPrescription(ctx context.Context, p *auth.Principal, appointmentID, prescriptionID string) (*model.AppointmentView, error)
}

type appointmentService struct {
	repo         repository.AppointmentRepository
	validator    *validator.AppointmentValidator
	doctors      DoctorDirectory
	availability Availability
	events       EventPublisher
	catalog      *calendar.SlotCatalog
	clock        *calendar.Clock
	metrics      *metrics.SchedulingMetrics
	cfg          *config.Config
}

func NewAppointmentService(
	repo repository.AppointmentRepository,
	validator *validator.AppointmentValidator,
	doctors DoctorDirectory,
	availability Availability,
	events EventPublisher,
	catalog *calendar.SlotCatalog,
	m *metrics.SchedulingMetrics,
	cfg *config.Config,
) AppointmentService {
	return &appointmentService{
		repo:         repo,
		validator:    validator,
		doctors:      doctors,
		availability: availability,
		events:       events,
		catalog:      catalog,
		clock:        cfg.Clock(),
		metrics:      m,
		cfg:          cfg,
	}
}

// RequestBooking commits a booking when the doctor's approved template serves
// the slot on the requested weekday and no active booking already holds it. The
// unique index on active bookings settles races the pre-check cannot see.
func (s *appointmentService) RequestBooking(ctx context.Context, p *auth.Principal, req *model.BookingRequest) (view *model.AppointmentView, err error) {
	defer func() { s.metrics.ObserveBooking(outcome(err)) }()

	if err := auth.Authorize(p, auth.BookAppointment, auth.Ownership{}); err != nil {
		return nil, err
	}

	s.sanitize(req)
	if req.Urgency == "" {
		req.Urgency = model.UrgencyNormal
	}
	date, err := s.bookableDate(req.Date)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateBooking(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "doctor_id", req.DoctorID, "error", err)
		return nil, validation.InvalidInputError("Booking validation failed", err)
	}

	patientID := req.PatientID
	if p.Is(auth.RolePatient) {
		patientID = p.ID
	}
	if patientID == "" {
		return nil, apperrors.InvalidInput("patient_id is required when booking on behalf of a patient")
	}

	if err := s.checkSlot(ctx, req.DoctorID, date, req.TimeSlot, ""); err != nil {
		return nil, err
	}

	appointment := &model.Appointment{
		PatientID:     patientID,
		DoctorID:      req.DoctorID,
		BookedDate:    date,
		TimeSlot:      req.TimeSlot,
		Reason:        req.Reason,
		Urgency:       req.Urgency,
		Notes:         req.Notes,
		Status:        model.StatusBooked,
		PaymentStatus: model.PaymentPending,
		StatusHistory: []model.StatusChange{{
			To:        model.StatusBooked,
			ActorID:   p.ID,
			ActorRole: p.Role,
			At:        time.Now().UTC().Truncate(time.Millisecond),
		}},
	}

	if err := s.repo.Create(ctx, appointment); err != nil {
		if errors.Is(err, appointmenterrors.ErrSlotTaken) {
			return nil, slotTaken(req.TimeSlot, date)
		}
		s.cfg.Log.Error("Failed to create appointment", "doctor_id", req.DoctorID, "error", err)
		return nil, apperrors.Internal("Failed to create appointment", err)
	}

	s.cfg.Log.Info("Appointment booked",
		"id", appointment.ID,
		"doctor_id", appointment.DoctorID,
		"patient_id", appointment.PatientID,
		"date", appointment.BookedDate.Format(calendar.DateLayout),
		"time_slot", appointment.TimeSlot,
	)
	s.publish(ctx, "booked", appointment, func(ctx context.Context) error {
		return s.events.PublishBooked(ctx, appointment)
	})

	return s.view(ctx, appointment)
}

// RescheduleOrUpdate edits a booking that has not been confirmed yet. A new
// date or slot is checked like a new booking, ignoring the booking itself.
func (s *appointmentService) RescheduleOrUpdate(ctx context.Context, p *auth.Principal, id string, patch *model.AppointmentUpdate) (*model.AppointmentView, error) {
	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(p, auth.UpdateAppointment, ownership(p, existing)); err != nil {
		return nil, err
	}
	if existing.Status != model.StatusBooked {
		return nil, apperrors.InvalidState(fmt.Sprintf("Only booked appointments can be changed, current status is %s", existing.Status))
	}
	if patch == nil || patch.IsEmpty() {
		return nil, apperrors.InvalidInput("No changes provided")
	}

	s.sanitizeUpdate(patch)
	merged := *existing
	moved := false
	if patch.Date != nil {
		date, err := s.bookableDate(*patch.Date)
		if err != nil {
			return nil, err
		}
		moved = moved || !date.Equal(existing.BookedDate)
		merged.BookedDate = date
	}
	if err := s.validator.ValidateUpdate(patch); err != nil {
		s.cfg.Log.Warn("Appointment update validation failed", "id", id, "error", err)
		return nil, validation.InvalidInputError("Invalid update input", err)
	}
	if patch.TimeSlot != nil {
		moved = moved || *patch.TimeSlot != existing.TimeSlot
		merged.TimeSlot = *patch.TimeSlot
	}
	if patch.Reason != nil {
		merged.Reason = *patch.Reason
	}
	if patch.Urgency != nil {
		merged.Urgency = *patch.Urgency
	}
	if patch.Notes != nil {
		merged.Notes = *patch.Notes
	}

	if moved {
		if err := s.checkSlot(ctx, merged.DoctorID, merged.BookedDate, merged.TimeSlot, merged.ID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateDetails(ctx, &merged, model.StatusBooked); err != nil {
		switch {
		case errors.Is(err, appointmenterrors.ErrSlotTaken):
			return nil, slotTaken(merged.TimeSlot, merged.BookedDate)
		case errors.Is(err, appointmenterrors.ErrStatusChanged):
			return nil, apperrors.InvalidState("Appointment status changed concurrently")
		}
		return nil, s.translate(err, id, "Failed to update appointment")
	}

	s.cfg.Log.Info("Appointment updated",
		"id", id,
		"rescheduled", moved,
		"date", merged.BookedDate.Format(calendar.DateLayout),
		"time_slot", merged.TimeSlot,
	)
	if moved {
		s.publish(ctx, "rescheduled", &merged, func(ctx context.Context) error {
			return s.events.PublishRescheduled(ctx, &merged)
		})
	}

	return s.view(ctx, &merged)
}

// TransitionStatus moves an appointment along booked → confirmed → completed,
// or to cancelled or no-show. The write is conditional on the status read, so
// of two concurrent transitions only one wins.
func (s *appointmentService) TransitionStatus(ctx context.Context, p *auth.Principal, id, status string) (*model.AppointmentView, error) {
	if err := s.validator.ValidateTransition(&model.StatusTransition{Status: status}); err != nil {
		return nil, validation.AppError("Invalid status", err)
	}

	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	op := auth.TransitionAppointment
	if status == model.StatusCancelled {
		op = auth.CancelAppointment
	}
	if err := auth.Authorize(p, op, ownership(p, existing)); err != nil {
		return nil, err
	}

	updated, err := s.transition(ctx, p, existing, status, "")
	if err != nil {
		return nil, err
	}
	return s.view(ctx, updated)
}

func (s *appointmentService) Cancel(ctx context.Context, p *auth.Principal, id string) (*model.AppointmentView, error) {
	return s.TransitionStatus(ctx, p, id, model.StatusCancelled)
}

func (s *appointmentService) GetByID(ctx context.Context, p *auth.Principal, id string) (*model.AppointmentView, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Appointment ID cannot be empty")
	}
	view, err := s.repo.FindView(ctx, id)
	if err != nil {
		return nil, s.translate(err, id, "Failed to retrieve appointment")
	}
	if err := auth.Authorize(p, auth.ViewAppointment, ownership(p, &view.Appointment)); err != nil {
		return nil, err
	}
	return view, nil
}

func (s *appointmentService) ListMine(ctx context.Context, p *auth.Principal, filter model.AppointmentFilter, limit int, offset int64) ([]*model.AppointmentView, int64, error) {
	if err := auth.Authorize(p, auth.ListOwnAppointments, auth.Ownership{}); err != nil {
		return nil, 0, err
	}
	filter.PatientID = p.ID
	return s.list(ctx, filter, limit, offset)
}

func (s *appointmentService) ListForDoctor(ctx context.Context, p *auth.Principal, filter model.AppointmentFilter, limit int, offset int64) ([]*model.AppointmentView, int64, error) {
	if filter.DoctorID == "" {
		return nil, 0, apperrors.InvalidInput("Doctor ID cannot be empty")
	}
	own := auth.Ownership{IsDoctor: p != nil && p.DoctorID != "" && p.DoctorID == filter.DoctorID}
	if err := auth.Authorize(p, auth.ListDoctorAppointments, own); err != nil {
		return nil, 0, err
	}
	return s.list(ctx, filter, limit, offset)
}

func (s *appointmentService) ListByPatient(ctx context.Context, p *auth.Principal, filter model.AppointmentFilter, limit int, offset int64) ([]*model.AppointmentView, int64, error) {
	if filter.PatientID == "" {
		return nil, 0, apperrors.InvalidInput("Patient ID cannot be empty")
	}
	own := auth.Ownership{IsPatient: p != nil && p.ID == filter.PatientID}
	if err := auth.Authorize(p, auth.ListPatientAppointments, own); err != nil {
		return nil, 0, err
	}
	return s.list(ctx, filter, limit, offset)
}

// Stats counts appointments by status for one doctor, or for every doctor when
// an admin leaves doctorID empty. Doctors default to their own figures.
func (s *appointmentService) Stats(ctx context.Context, p *auth.Principal, doctorID string) (*model.AppointmentStats, error) {
	if doctorID == "" && p != nil && p.Is(auth.RoleDoctor) {
		doctorID = p.DoctorID
	}
	own := auth.Ownership{IsDoctor: p != nil && p.DoctorID != "" && p.DoctorID == doctorID}
	if err := auth.Authorize(p, auth.AppointmentStats, own); err != nil {
		return nil, err
	}

	counts, err := s.repo.CountByStatus(ctx, doctorID)
	if err != nil {
		s.cfg.Log.Error("Failed to aggregate appointment stats", "doctor_id", doctorID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve appointment stats", err)
	}

	stats := &model.AppointmentStats{DoctorID: doctorID, ByStatus: counts}
	for _, c := range counts {
		stats.Total += c.Count
	}
	return stats, nil
}

// CompleteFromPrescription closes the visit a prescription was written for. A
// booked appointment is confirmed on the way; replays of the same prescription
// are no-ops.
func (s *appointmentService) CompleteFromPrescription(ctx context.Context, p *auth.Principal, appointmentID, prescriptionID string) (*model.AppointmentView, error) {
	if prescriptionID == "" {
		return nil, apperrors.InvalidInput("prescription_id is required")
	}
	existing, err := s.load(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(p, auth.TransitionAppointment, ownership(p, existing)); err != nil {
		return nil, err
	}

	if existing.Status == model.StatusCompleted && existing.PrescriptionID == prescriptionID {
		s.cfg.Log.Debug("Prescription already applied", "id", appointmentID, "prescription_id", prescriptionID)
		return s.view(ctx, existing)
	}

	if existing.Status == model.StatusBooked {
		existing, err = s.transition(ctx, p, existing, model.StatusConfirmed, "")
		if err != nil {
			return nil, err
		}
	}

	completed, err := s.transition(ctx, p, existing, model.StatusCompleted, prescriptionID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, completed)
}

// --- Helpers ---

func (s *appointmentService) transition(ctx context.Context, p *auth.Principal, existing *model.Appointment, to, prescriptionID string) (*model.Appointment, error) {
	if existing.IsTerminal() {
		return nil, apperrors.InvalidState(fmt.Sprintf("Appointment is already %s", existing.Status))
	}
	if !model.CanTransition(existing.Status, to) {
		return nil, apperrors.InvalidState(fmt.Sprintf("Cannot change appointment from %s to %s", existing.Status, to))
	}

	change := model.StatusChange{
		From:      existing.Status,
		To:        to,
		ActorID:   p.ID,
		ActorRole: p.Role,
	}
	updated, err := s.repo.UpdateStatus(ctx, existing.ID, change, prescriptionID)
	if err != nil {
		if errors.Is(err, appointmenterrors.ErrStatusChanged) {
			return nil, apperrors.InvalidState("Appointment status changed concurrently")
		}
		return nil, s.translate(err, existing.ID, "Failed to update appointment status")
	}

	s.metrics.ObserveTransition(change.From, change.To)
	s.cfg.Log.Info("Appointment status changed",
		"id", existing.ID,
		"from", change.From,
		"to", change.To,
		"actor_id", p.ID,
		"actor_role", p.Role,
	)
	s.publish(ctx, "status_changed", updated, func(ctx context.Context) error {
		return s.events.PublishStatusChanged(ctx, updated, change.From)
	})
	return updated, nil
}

// bookableDate parses a civil date in the clinic zone and refuses past days.
func (s *appointmentService) bookableDate(value string) (time.Time, error) {
	date, err := s.clock.ParseDate(value)
	if err != nil {
		return time.Time{}, apperrors.InvalidInput(err.Error())
	}
	if s.clock.IsPast(date) {
		return time.Time{}, apperrors.InvalidInput("Appointments cannot be booked for past dates")
	}
	return date, nil
}

// checkSlot requires the doctor to exist, an available template entry serving
// label on date's weekday, and no other active booking holding the slot.
func (s *appointmentService) checkSlot(ctx context.Context, doctorID string, date time.Time, label, excludeID string) error {
	window, ok := s.catalog.Window(label)
	if !ok {
		return apperrors.InvalidInput("Unknown time slot: " + label)
	}

	exists, err := s.doctors.Exists(ctx, doctorID)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.NotFoundWithID("Doctor", doctorID)
	}

	weekday := calendar.Weekday(date)
	entries, err := s.availability.FindAvailable(ctx, doctorID, weekday)
	if err != nil {
		return err
	}
	served := false
	for _, entry := range entries {
		if entry.Serves(label, window, date) {
			served = true
			break
		}
	}
	if !served {
		return apperrors.DoctorUnavailable(fmt.Sprintf("Doctor is not available on %s in the %s slot", calendar.WeekdayName(weekday), label))
	}

	taken, err := s.repo.ExistsActive(ctx, doctorID, date, label, excludeID)
	if err != nil {
		s.cfg.Log.Error("Failed to check slot occupancy", "doctor_id", doctorID, "error", err)
		return apperrors.Internal("Failed to check slot availability", err)
	}
	if taken {
		return slotTaken(label, date)
	}
	return nil
}

func (s *appointmentService) list(ctx context.Context, filter model.AppointmentFilter, limit int, offset int64) ([]*model.AppointmentView, int64, error) {
	for _, status := range filter.Statuses {
		if !model.IsValidStatus(status) {
			return nil, 0, apperrors.InvalidInput("Unknown appointment status: " + status)
		}
	}
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var views []*model.AppointmentView
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count appointments", "error", errCount)
			errCount = apperrors.Internal("Failed to count appointments", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		views, errFind = s.repo.FindViews(ctx, filter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list appointments", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve appointments", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return views, count, nil
}

// view reloads a with display data. If the lookup fails the bare appointment
// is still returned since the write already succeeded.
func (s *appointmentService) view(ctx context.Context, a *model.Appointment) (*model.AppointmentView, error) {
	view, err := s.repo.FindView(ctx, a.ID)
	if err != nil {
		s.cfg.Log.Warn("Failed to load appointment display data", "id", a.ID, "error", err)
		return &model.AppointmentView{Appointment: *a}, nil
	}
	return view, nil
}

func (s *appointmentService) publish(ctx context.Context, event string, a *model.Appointment, fn func(context.Context) error) {
	if s.events == nil {
		return
	}
	if err := fn(context.WithoutCancel(ctx)); err != nil {
		s.cfg.Log.Error("Failed to publish appointment event",
			"event", event,
			"id", a.ID,
			"error", err,
		)
	}
}

func (s *appointmentService) load(ctx context.Context, id string) (*model.Appointment, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Appointment ID cannot be empty")
	}
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, id, "Failed to retrieve appointment")
	}
	return a, nil
}

func (s *appointmentService) sanitize(req *model.BookingRequest) {
	req.DoctorID = sanitizer.TrimAndNormalize(req.DoctorID)
	req.PatientID = sanitizer.TrimAndNormalize(req.PatientID)
	req.Date = sanitizer.TrimAndNormalize(req.Date)
	req.TimeSlot = sanitizer.TrimAndNormalize(req.TimeSlot)
	req.Reason = sanitizer.NormalizeText(req.Reason)
	req.Urgency = sanitizer.NormalizeSymptom(req.Urgency)
	req.Notes = sanitizer.NormalizeText(req.Notes)
}

func (s *appointmentService) sanitizeUpdate(u *model.AppointmentUpdate) {
	trim := func(v *string, strategy sanitizer.Strategy) {
		if v != nil {
			*v = strategy(*v)
		}
	}
	trim(u.Date, sanitizer.TrimAndNormalize)
	trim(u.TimeSlot, sanitizer.TrimAndNormalize)
	trim(u.Reason, sanitizer.NormalizeText)
	trim(u.Urgency, sanitizer.NormalizeSymptom)
	trim(u.Notes, sanitizer.NormalizeText)
}

func (s *appointmentService) translate(err error, id, message string) error {
	if errors.Is(err, appointmenterrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Appointment", id)
	}
	if errors.Is(err, appointmenterrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid appointment ID format")
	}
	s.cfg.Log.Error(message, "id", id, "error", err)
	return apperrors.Internal(message, err)
}

func ownership(p *auth.Principal, a *model.Appointment) auth.Ownership {
	if p == nil {
		return auth.Ownership{}
	}
	return auth.Ownership{
		IsPatient: p.ID == a.PatientID,
		IsDoctor:  p.DoctorID != "" && p.DoctorID == a.DoctorID,
	}
}

func slotTaken(label string, date time.Time) error {
	return apperrors.SlotAlreadyBooked(fmt.Sprintf("The %s slot on %s is already booked", label, date.Format(calendar.DateLayout)))
}

func outcome(err error) string {
	if err == nil {
		return "booked"
	}
	if appErr := apperrors.AsAppError(err); appErr != nil {
		return appErr.Code
	}
	return apperrors.CodeInternal
}
