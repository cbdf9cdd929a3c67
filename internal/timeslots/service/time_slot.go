package service

import (
	"context"
	"errors"
	"fmt"
	timesloterrors "medisched/internal/timeslots/errors"
	"medisched/internal/timeslots/repository"
	"medisched/internal/timeslots/validator"
	"medisched/pkg/auth"
	"medisched/pkg/calendar"
	"medisched/pkg/config"
	mongodb "medisched/pkg/db/mongo"
	apperrors "medisched/pkg/errors"
	"medisched/pkg/metrics"
	"medisched/pkg/model"
	"medisched/pkg/sanitizer"
	"medisched/pkg/validation"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	reviewApprove     = "approve"
	reviewReject      = "reject"
	reviewUnavailable = "unavailable"
)

// DoctorDirectory confirms that a doctor id refers to a registered doctor.
type DoctorDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type TimeSlotService interface {
	RequestSlots(ctx context.Context, p *auth.Principal, req *model.SlotRequest) ([]*model.TimeSlot, error)
	Approve(ctx context.Context, p *auth.Principal, id string) (*model.TimeSlot, error)
	Reject(ctx context.Context, p *auth.Principal, id string) error
	MarkUnavailable(ctx context.Context, p *auth.Principal, id string) (*model.TimeSlot, error)
	GetByID(ctx context.Context, p *auth.Principal, id string) (*model.TimeSlot, error)
	ListPending(ctx context.Context, p *auth.Principal, limit int, offset int64) ([]*model.TimeSlot, int64, error)
	ListForDoctor(ctx context.Context, p *auth.Principal, filter model.SlotFilter) ([]*model.TimeSlot, error)
	FindAvailable(ctx context.Context, doctorID string, dayOfWeek int) ([]*model.TimeSlot, error)
}

type timeSlotService struct {
	repo      repository.TimeSlotRepository
	validator *validator.TimeSlotValidator
	doctors   DoctorDirectory
	locks     mongodb.LockStore
	catalog   *calendar.SlotCatalog
	metrics   *metrics.SchedulingMetrics
	cfg       *config.Config
}

func NewTimeSlotService(
	repo repository.TimeSlotRepository,
	validator *validator.TimeSlotValidator,
	doctors DoctorDirectory,
	locks mongodb.LockStore,
	catalog *calendar.SlotCatalog,
	m *metrics.SchedulingMetrics,
	cfg *config.Config,
) TimeSlotService {
	return &timeSlotService{
		repo:      repo,
		validator: validator,
		doctors:   doctors,
		locks:     locks,
		catalog:   catalog,
		metrics:   m,
		cfg:       cfg,
	}
}

// RequestSlots records one requested entry per weekday of the request.
func (s *timeSlotService) RequestSlots(ctx context.Context, p *auth.Principal, req *model.SlotRequest) ([]*model.TimeSlot, error) {
	s.sanitize(req)
	if req.DoctorID == "" && p != nil {
		req.DoctorID = p.DoctorID
	}
	if err := auth.Authorize(p, auth.RequestSlot, auth.Ownership{IsDoctor: ownsDoctor(p, req.DoctorID)}); err != nil {
		return nil, err
	}
	if req.DoctorID == "" {
		return nil, apperrors.InvalidInput("doctor_id is required")
	}

	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Time slot request validation failed", "doctor_id", req.DoctorID, "error", err)
		return nil, validation.AppError("Time slot request validation failed", err)
	}

	exists, err := s.doctors.Exists(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.NotFoundWithID("Doctor", req.DoctorID)
	}

	slots, err := s.buildEntries(req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateMany(ctx, slots); err != nil {
		s.cfg.Log.Error("Failed to create time slot requests", "doctor_id", req.DoctorID, "error", err)
		return nil, apperrors.Internal("Failed to create time slot requests", err)
	}

	s.cfg.Log.Info("Time slots requested",
		"doctor_id", req.DoctorID,
		"days", req.Days,
		"count", len(slots),
	)
	return slots, nil
}

// Approve makes a requested entry bookable unless it overlaps another reviewed
// entry of the same doctor and weekday. Reviews of one doctor's weekday are
// serialized by an advisory lock, and the check and the write share a transaction.
func (s *timeSlotService) Approve(ctx context.Context, p *auth.Principal, id string) (*model.TimeSlot, error) {
	if err := auth.Authorize(p, auth.ApproveSlot, auth.Ownership{}); err != nil {
		return nil, err
	}
	slot, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if slot.Status != model.SlotRequested {
		s.metrics.ObserveSlotReview(reviewApprove, apperrors.CodeInvalidState)
		return nil, apperrors.InvalidState(fmt.Sprintf("Only requested time slots can be approved, current status is %s", slot.Status))
	}

	release, err := s.lock(ctx, slot)
	if err != nil {
		s.metrics.ObserveSlotReview(reviewApprove, outcome(err))
		return nil, err
	}
	defer release()

	var approved *model.TimeSlot
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		current, err := s.load(sessCtx, id)
		if err != nil {
			return err
		}
		if current.Status != model.SlotRequested {
			return apperrors.InvalidState("Time slot was reviewed concurrently")
		}
		if err := s.checkOverlap(sessCtx, current); err != nil {
			return err
		}

		approved, err = s.repo.UpdateStatus(sessCtx, id, model.SlotRequested, model.SlotAvailable)
		if err != nil {
			return s.translate(err, id, "Failed to approve time slot")
		}
		return nil
	})
	s.metrics.ObserveSlotReview(reviewApprove, outcome(err))
	if err != nil {
		if !apperrors.IsAppError(err) {
			s.cfg.Log.Error("Failed to approve time slot", "id", id, "error", err)
			return nil, apperrors.Internal("Failed to approve time slot", err)
		}
		return nil, err
	}

	s.cfg.Log.Info("Time slot approved",
		"id", id,
		"doctor_id", approved.DoctorID,
		"day", calendar.WeekdayName(approved.DayOfWeek),
		"range", approved.StartTime+"-"+approved.EndTime,
		"approved_by", p.ID,
	)
	return approved, nil
}

// Reject removes a requested entry. It was never bookable, so nothing else changes.
func (s *timeSlotService) Reject(ctx context.Context, p *auth.Principal, id string) error {
	if err := auth.Authorize(p, auth.RejectSlot, auth.Ownership{}); err != nil {
		return err
	}
	if id == "" {
		return apperrors.InvalidInput("Time slot ID cannot be empty")
	}

	err := s.repo.DeleteWithStatus(ctx, id, model.SlotRequested)
	if err != nil {
		if errors.Is(err, timesloterrors.ErrStatusChanged) {
			err = apperrors.InvalidState("Only requested time slots can be rejected")
		} else {
			err = s.translate(err, id, "Failed to reject time slot")
		}
	}
	s.metrics.ObserveSlotReview(reviewReject, outcome(err))
	if err != nil {
		return err
	}

	s.cfg.Log.Info("Time slot rejected", "id", id, "rejected_by", p.ID)
	return nil
}

// MarkUnavailable withdraws an available entry. The entry keeps its place in
// overlap checks so a conflicting range cannot be approved behind it.
func (s *timeSlotService) MarkUnavailable(ctx context.Context, p *auth.Principal, id string) (*model.TimeSlot, error) {
	slot, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(p, auth.MarkSlotUnavailable, auth.Ownership{IsDoctor: ownsDoctor(p, slot.DoctorID)}); err != nil {
		return nil, err
	}
	if slot.Status != model.SlotAvailable {
		return nil, apperrors.InvalidState(fmt.Sprintf("Only available time slots can be withdrawn, current status is %s", slot.Status))
	}

	updated, err := s.repo.UpdateStatus(ctx, id, model.SlotAvailable, model.SlotUnavailable)
	if err != nil {
		if errors.Is(err, timesloterrors.ErrStatusChanged) {
			err = apperrors.InvalidState("Time slot status changed concurrently")
		} else {
			err = s.translate(err, id, "Failed to update time slot")
		}
	}
	s.metrics.ObserveSlotReview(reviewUnavailable, outcome(err))
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Time slot marked unavailable", "id", id, "doctor_id", updated.DoctorID, "by", p.ID)
	return updated, nil
}

func (s *timeSlotService) GetByID(ctx context.Context, p *auth.Principal, id string) (*model.TimeSlot, error) {
	if err := auth.Authorize(p, auth.ViewTemplates, auth.Ownership{}); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

func (s *timeSlotService) ListPending(ctx context.Context, p *auth.Principal, limit int, offset int64) ([]*model.TimeSlot, int64, error) {
	if err := auth.Authorize(p, auth.ListPendingSlots, auth.Ownership{}); err != nil {
		return nil, 0, err
	}
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)
	filter := model.SlotFilter{Statuses: []string{model.SlotRequested}}

	var count int64
	var slots []*model.TimeSlot
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
	}()

	go func() {
		defer wg.Done()
		slots, errFind = s.repo.Find(ctx, filter, limit, offset)
	}()

	wg.Wait()
	if err := errors.Join(errCount, errFind); err != nil {
		s.cfg.Log.Error("Failed to list pending time slots", "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve pending time slots", err)
	}

	return slots, count, nil
}

func (s *timeSlotService) ListForDoctor(ctx context.Context, p *auth.Principal, filter model.SlotFilter) ([]*model.TimeSlot, error) {
	if err := auth.Authorize(p, auth.ViewTemplates, auth.Ownership{}); err != nil {
		return nil, err
	}
	if filter.DoctorID == "" {
		return nil, apperrors.InvalidInput("Doctor ID cannot be empty")
	}
	for _, status := range filter.Statuses {
		if status != model.SlotRequested && status != model.SlotAvailable && status != model.SlotUnavailable {
			return nil, apperrors.InvalidInput("Unknown time slot status: " + status)
		}
	}

	slots, err := s.repo.Find(ctx, filter, 0, 0)
	if err != nil {
		s.cfg.Log.Error("Failed to list doctor time slots", "doctor_id", filter.DoctorID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve time slots", err)
	}
	return slots, nil
}

// FindAvailable returns the bookable entries of a doctor on a weekday.
func (s *timeSlotService) FindAvailable(ctx context.Context, doctorID string, dayOfWeek int) ([]*model.TimeSlot, error) {
	slots, err := s.repo.Find(ctx, model.SlotFilter{
		DoctorID:  doctorID,
		DayOfWeek: &dayOfWeek,
		Statuses:  []string{model.SlotAvailable},
	}, 0, 0)
	if err != nil {
		s.cfg.Log.Error("Failed to load available time slots",
			"doctor_id", doctorID,
			"day_of_week", dayOfWeek,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve doctor availability", err)
	}
	return slots, nil
}

// --- Helpers ---

func (s *timeSlotService) sanitize(req *model.SlotRequest) {
	req.DoctorID = sanitizer.TrimAndNormalize(req.DoctorID)
	req.Days = sanitizer.NormalizeDays(req.Days)
	req.SlotLabel = sanitizer.TrimAndNormalize(req.SlotLabel)
	req.StartTime = sanitizer.TrimAndNormalize(req.StartTime)
	req.EndTime = sanitizer.TrimAndNormalize(req.EndTime)
	req.ValidFrom = sanitizer.TrimAndNormalize(req.ValidFrom)
	req.ValidTo = sanitizer.TrimAndNormalize(req.ValidTo)
}

// buildEntries expands a validated request. A slot label fills the clock range
// from the catalog; repeated days collapse into one entry.
func (s *timeSlotService) buildEntries(req *model.SlotRequest) ([]*model.TimeSlot, error) {
	start, end := req.StartTime, req.EndTime
	if req.SlotLabel != "" {
		w, ok := s.catalog.Window(req.SlotLabel)
		if !ok {
			return nil, apperrors.InvalidInput("Unknown slot label: " + req.SlotLabel)
		}
		start, end = calendar.FormatClock(w.Start), calendar.FormatClock(w.End)
	}

	clock := s.cfg.Clock()
	validFrom, err := parseOptionalDate(clock, req.ValidFrom)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	validTo, err := parseOptionalDate(clock, req.ValidTo)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	seen := make(map[int]bool, len(req.Days))
	slots := make([]*model.TimeSlot, 0, len(req.Days))
	for _, name := range req.Days {
		day, err := calendar.ParseWeekday(name)
		if err != nil {
			return nil, apperrors.InvalidInput(err.Error())
		}
		if seen[day] {
			continue
		}
		seen[day] = true
		slots = append(slots, &model.TimeSlot{
			DoctorID:  req.DoctorID,
			DayOfWeek: day,
			SlotLabel: req.SlotLabel,
			StartTime: start,
			EndTime:   end,
			Status:    model.SlotRequested,
			ValidFrom: validFrom,
			ValidTo:   validTo,
		})
	}
	return slots, nil
}

func (s *timeSlotService) checkOverlap(ctx context.Context, candidate *model.TimeSlot) error {
	window, err := candidate.Window()
	if err != nil {
		return apperrors.InvalidInput("Stored time slot has an invalid range: " + err.Error())
	}

	reviewed, err := s.repo.FindReviewed(ctx, candidate.DoctorID, candidate.DayOfWeek, candidate.ID)
	if err != nil {
		return apperrors.Internal("Failed to load existing time slots", err)
	}

	for _, other := range reviewed {
		if !candidate.ValidityIntersects(other) {
			continue
		}
		otherWindow, err := other.Window()
		if err != nil {
			s.cfg.Log.Warn("Skipping time slot with invalid range", "id", other.ID, "error", err)
			continue
		}
		if window.Overlaps(otherWindow) {
			msg := fmt.Sprintf("Requested %s overlaps %s on %s", window, otherWindow, calendar.WeekdayName(candidate.DayOfWeek))
			return apperrors.ScheduleConflict(msg).WithDetails(map[string]any{
				"conflicting_id":     other.ID,
				"conflicting_status": other.Status,
				"day":                calendar.WeekdayName(other.DayOfWeek),
				"start_time":         other.StartTime,
				"end_time":           other.EndTime,
			})
		}
	}
	return nil
}

// lock takes the advisory lock of the entry's doctor and weekday and returns
// its release function.
func (s *timeSlotService) lock(ctx context.Context, slot *model.TimeSlot) (func(), error) {
	key := fmt.Sprintf("timeslot:%s:%d", slot.DoctorID, slot.DayOfWeek)
	owner := uuid.NewString()

	if _, err := s.locks.Acquire(ctx, key, owner, s.cfg.SlotLockTTL); err != nil {
		if errors.Is(err, mongodb.ErrLockHeld) {
			return nil, apperrors.Conflict("Another review of this doctor's schedule is in progress, retry shortly")
		}
		s.cfg.Log.Error("Failed to acquire schedule lock", "key", key, "error", err)
		return nil, apperrors.Internal("Failed to acquire schedule lock", err)
	}

	return func() {
		if err := s.locks.Release(context.WithoutCancel(ctx), key, owner); err != nil {
			s.cfg.Log.Warn("Failed to release schedule lock", "key", key, "error", err)
		}
	}, nil
}

func (s *timeSlotService) load(ctx context.Context, id string) (*model.TimeSlot, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Time slot ID cannot be empty")
	}
	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, id, "Failed to retrieve time slot")
	}
	return slot, nil
}

func (s *timeSlotService) translate(err error, id, message string) error {
	if errors.Is(err, timesloterrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Time slot", id)
	}
	if errors.Is(err, timesloterrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid time slot ID format")
	}
	if errors.Is(err, timesloterrors.ErrStatusChanged) {
		return apperrors.InvalidState("Time slot status changed concurrently")
	}
	s.cfg.Log.Error(message, "id", id, "error", err)
	return apperrors.Internal(message, err)
}

func ownsDoctor(p *auth.Principal, doctorID string) bool {
	return p != nil && p.DoctorID != "" && p.DoctorID == doctorID
}

func parseOptionalDate(clock *calendar.Clock, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	d, err := clock.ParseDate(value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if appErr := apperrors.AsAppError(err); appErr != nil {
		return appErr.Code
	}
	return apperrors.CodeInternal
}
