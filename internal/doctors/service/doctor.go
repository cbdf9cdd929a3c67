package service

import (
	"context"
	"errors"
	doctorserrors "medisched/internal/doctors/errors"
	"medisched/internal/doctors/repository"
	"medisched/internal/doctors/validator"
	"medisched/pkg/auth"
	"medisched/pkg/config"
	apperrors "medisched/pkg/errors"
	"medisched/pkg/model"
	"medisched/pkg/sanitizer"
	"medisched/pkg/validation"
	"sync"
)

type DoctorService interface {
	Create(ctx context.Context, p *auth.Principal, doctor *model.Doctor) error
	GetByID(ctx context.Context, p *auth.Principal, id string) (*model.Doctor, error)
	GetAll(ctx context.Context, p *auth.Principal, limit int, offset int64) ([]*model.Doctor, int64, error)
	Update(ctx context.Context, p *auth.Principal, id string, updates *model.DoctorUpdate) error
	SearchBySpecialty(ctx context.Context, p *auth.Principal, specialty string) ([]*model.Doctor, error)
	Exists(ctx context.Context, id string) (bool, error)
}

type doctorService struct {
	repo      repository.DoctorRepository
	validator *validator.DoctorValidator
	cfg       *config.Config
}

func NewDoctorService(
	repo repository.DoctorRepository,
	validator *validator.DoctorValidator,
	cfg *config.Config,
) DoctorService {
	return &doctorService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *doctorService) Create(ctx context.Context, p *auth.Principal, doctor *model.Doctor) error {
	if err := auth.Authorize(p, auth.ManageDoctors, auth.Ownership{}); err != nil {
		return err
	}

	s.sanitize(doctor)
	if err := s.validator.Validate(doctor); err != nil {
		s.cfg.Log.Warn("Doctor validation failed", "user_id", doctor.UserID, "error", err)
		return validation.AppError("Doctor validation failed", err)
	}

	if err := s.repo.Create(ctx, doctor); err != nil {
		if errors.Is(err, doctorserrors.ErrDuplicateUser) {
			return apperrors.Conflict("A doctor profile already exists for this user")
		}
		s.cfg.Log.Error("Failed to create doctor", "user_id", doctor.UserID, "error", err)
		return apperrors.Internal("Failed to create doctor", err)
	}

	s.cfg.Log.Info("Doctor created successfully",
		"id", doctor.ID,
		"user_id", doctor.UserID,
		"specialty", doctor.Specialty,
	)
	return nil
}

func (s *doctorService) GetByID(ctx context.Context, p *auth.Principal, id string) (*model.Doctor, error) {
	if err := auth.Authorize(p, auth.ViewDoctors, auth.Ownership{}); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Doctor ID cannot be empty")
	}

	doctor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, id, "Failed to retrieve doctor")
	}
	return doctor, nil
}

func (s *doctorService) GetAll(ctx context.Context, p *auth.Principal, limit int, offset int64) ([]*model.Doctor, int64, error) {
	if err := auth.Authorize(p, auth.ViewDoctors, auth.Ownership{}); err != nil {
		return nil, 0, err
	}
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var doctors []*model.Doctor
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count doctors", "error", errCount)
			errCount = apperrors.Internal("Failed to count doctors", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		doctors, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list doctors", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve doctors", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return doctors, count, nil
}

func (s *doctorService) Update(ctx context.Context, p *auth.Principal, id string, updates *model.DoctorUpdate) error {
	if err := auth.Authorize(p, auth.ManageDoctors, auth.Ownership{}); err != nil {
		return err
	}
	if id == "" {
		return apperrors.InvalidInput("Doctor ID cannot be empty")
	}

	updates.Name = sanitizer.NormalizeName(updates.Name)
	updates.Email = sanitizer.NormalizeEmail(updates.Email)
	updates.Specialty = sanitizer.NormalizeName(updates.Specialty)
	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Doctor update validation failed", "id", id, "error", err)
		return validation.AppError("Invalid update input", err)
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return s.translate(err, id, "Failed to update doctor")
	}

	s.cfg.Log.Info("Doctor updated successfully", "id", id)
	return nil
}

func (s *doctorService) SearchBySpecialty(ctx context.Context, p *auth.Principal, specialty string) ([]*model.Doctor, error) {
	if err := auth.Authorize(p, auth.ViewDoctors, auth.Ownership{}); err != nil {
		return nil, err
	}
	specialty = sanitizer.NormalizeName(specialty)
	if specialty == "" {
		return nil, apperrors.InvalidInput("Specialty is required")
	}

	doctors, err := s.repo.FindBySpecialty(ctx, specialty)
	if err != nil {
		s.cfg.Log.Error("Failed to search doctors", "specialty", specialty, "error", err)
		return nil, apperrors.Internal("Failed to search doctors", err)
	}

	s.cfg.Log.Debug("Doctor search completed", "specialty", specialty, "count", len(doctors))
	return doctors, nil
}

// Exists is used by other services to confirm a doctor id before acting on it.
// Malformed ids report false rather than an error.
func (s *doctorService) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := s.repo.Exists(ctx, id)
	if err != nil {
		if errors.Is(err, doctorserrors.ErrInvalidID) {
			return false, nil
		}
		return false, apperrors.Internal("Failed to check doctor existence", err)
	}
	return ok, nil
}

// --- Helpers ---

func (s *doctorService) sanitize(d *model.Doctor) {
	d.UserID = sanitizer.TrimAndNormalize(d.UserID)
	d.Name = sanitizer.NormalizeName(d.Name)
	d.Email = sanitizer.NormalizeEmail(d.Email)
	d.Specialty = sanitizer.NormalizeName(d.Specialty)
}

func (s *doctorService) translate(err error, id, message string) error {
	if errors.Is(err, doctorserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Doctor", id)
	}
	if errors.Is(err, doctorserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid doctor ID format")
	}
	s.cfg.Log.Error(message, "id", id, "error", err)
	return apperrors.Internal(message, err)
}
