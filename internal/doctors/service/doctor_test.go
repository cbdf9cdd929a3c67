package service

import (
	"context"
	"errors"
	doctorserrors "medisched/internal/doctors/errors"
	"medisched/internal/doctors/validator"
	"medisched/pkg/auth"
	"medisched/pkg/config"
	apperrors "medisched/pkg/errors"
	"medisched/pkg/logger"
	"medisched/pkg/model"
	"testing"
	"time"
)

type mockDoctorRepository struct {
	createFunc          func(ctx context.Context, doctor *model.Doctor) error
	findByIDFunc        func(ctx context.Context, id string) (*model.Doctor, error)
	findAllFunc         func(ctx context.Context, limit int, offset int64) ([]*model.Doctor, error)
	countFunc           func(ctx context.Context) (int64, error)
	updateFunc          func(ctx context.Context, id string, updates *model.DoctorUpdate) error
	findBySpecialtyFunc func(ctx context.Context, specialty string) ([]*model.Doctor, error)
	existsFunc          func(ctx context.Context, id string) (bool, error)
}

func (m *mockDoctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, doctor)
	}
	doctor.ID = "65f000000000000000000001"
	return nil
}

func (m *mockDoctorRepository) FindByID(ctx context.Context, id string) (*model.Doctor, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, doctorserrors.ErrNotFound
}

func (m *mockDoctorRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Doctor, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx, limit, offset)
	}
	return []*model.Doctor{}, nil
}

func (m *mockDoctorRepository) Count(ctx context.Context) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx)
	}
	return 0, nil
}

func (m *mockDoctorRepository) Update(ctx context.Context, id string, updates *model.DoctorUpdate) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, updates)
	}
	return nil
}

func (m *mockDoctorRepository) FindBySpecialty(ctx context.Context, specialty string) ([]*model.Doctor, error) {
	if m.findBySpecialtyFunc != nil {
		return m.findBySpecialtyFunc(ctx, specialty)
	}
	return []*model.Doctor{}, nil
}

func (m *mockDoctorRepository) Exists(ctx context.Context, id string) (bool, error) {
	if m.existsFunc != nil {
		return m.existsFunc(ctx, id)
	}
	return false, nil
}

var (
	admin   = &auth.Principal{ID: "admin-1", Role: auth.RoleAdmin}
	patient = &auth.Principal{ID: "patient-1", Role: auth.RolePatient}
)

func newTestService(repo *mockDoctorRepository) DoctorService {
	log := logger.Discard()
	cfg := &config.Config{Log: log, ReadTimeout: 5 * time.Second}
	return NewDoctorService(repo, validator.NewDoctorValidator(log), cfg)
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name       string
		principal  *auth.Principal
		doctor     model.Doctor
		repoErr    error
		expectCode string
	}{
		{
			name:      "admin creates doctor",
			principal: admin,
			doctor:    model.Doctor{UserID: "u-1", Name: "  Asha   Rao ", Email: "ASHA@clinic.org", Specialty: "Cardiology"},
		},
		{
			name:       "patient cannot create",
			principal:  patient,
			doctor:     model.Doctor{UserID: "u-1", Name: "Asha Rao", Specialty: "Cardiology"},
			expectCode: apperrors.CodeForbidden,
		},
		{
			name:       "missing principal",
			principal:  nil,
			doctor:     model.Doctor{UserID: "u-1", Name: "Asha Rao", Specialty: "Cardiology"},
			expectCode: apperrors.CodeUnauthorized,
		},
		{
			name:       "missing specialty",
			principal:  admin,
			doctor:     model.Doctor{UserID: "u-1", Name: "Asha Rao"},
			expectCode: apperrors.CodeValidation,
		},
		{
			name:       "duplicate user",
			principal:  admin,
			doctor:     model.Doctor{UserID: "u-1", Name: "Asha Rao", Specialty: "Cardiology"},
			repoErr:    doctorserrors.ErrDuplicateUser,
			expectCode: apperrors.CodeConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockDoctorRepository{}
			if tt.repoErr != nil {
				repo.createFunc = func(context.Context, *model.Doctor) error { return tt.repoErr }
			}
			svc := newTestService(repo)

			doctor := tt.doctor
			err := svc.Create(context.Background(), tt.principal, &doctor)

			if tt.expectCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if doctor.Name != "Asha Rao" || doctor.Email != "asha@clinic.org" {
					t.Errorf("doctor not sanitized: %+v", doctor)
				}
				if doctor.ID == "" {
					t.Error("expected generated id")
				}
				return
			}
			if !apperrors.HasCode(err, tt.expectCode) {
				t.Errorf("expected %s, got %v", tt.expectCode, err)
			}
		})
	}
}

func TestGetByID(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		repoErr    error
		expectCode string
	}{
		{"found", "65f000000000000000000001", nil, ""},
		{"empty id", "", nil, apperrors.CodeInvalidInput},
		{"not found", "65f000000000000000000002", doctorserrors.ErrNotFound, apperrors.CodeNotFound},
		{"bad id", "nope", doctorserrors.ErrInvalidID, apperrors.CodeInvalidInput},
		{"database failure", "65f000000000000000000003", errors.New("connection reset"), apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&mockDoctorRepository{
				findByIDFunc: func(ctx context.Context, id string) (*model.Doctor, error) {
					if tt.repoErr != nil {
						return nil, tt.repoErr
					}
					return &model.Doctor{ID: id, Name: "Asha Rao"}, nil
				},
			})

			doctor, err := svc.GetByID(context.Background(), patient, tt.id)
			if tt.expectCode == "" {
				if err != nil || doctor.ID != tt.id {
					t.Fatalf("got %v, %v", doctor, err)
				}
				return
			}
			if !apperrors.HasCode(err, tt.expectCode) {
				t.Errorf("expected %s, got %v", tt.expectCode, err)
			}
		})
	}
}

func TestGetAll_ConcurrentAccess(t *testing.T) {
	svc := newTestService(&mockDoctorRepository{
		countFunc: func(ctx context.Context) (int64, error) {
			time.Sleep(10 * time.Millisecond)
			return 42, nil
		},
		findAllFunc: func(ctx context.Context, limit int, offset int64) ([]*model.Doctor, error) {
			time.Sleep(10 * time.Millisecond)
			if limit != config.DefaultPaginationLimit {
				t.Errorf("limit not normalized: %d", limit)
			}
			return []*model.Doctor{{ID: "1"}, {ID: "2"}}, nil
		},
	})

	for i := 0; i < 10; i++ {
		doctors, count, err := svc.GetAll(context.Background(), patient, 5000, -1)
		if err != nil {
			t.Fatalf("iteration %d: unexpected error: %v", i, err)
		}
		if count != 42 || len(doctors) != 2 {
			t.Errorf("iteration %d: got %d doctors, count %d", i, len(doctors), count)
		}
	}
}

func TestGetAll_CountFailure(t *testing.T) {
	svc := newTestService(&mockDoctorRepository{
		countFunc: func(context.Context) (int64, error) { return 0, errors.New("boom") },
	})

	_, _, err := svc.GetAll(context.Background(), patient, 10, 0)
	if !apperrors.HasCode(err, apperrors.CodeInternal) {
		t.Errorf("expected internal error, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	var got *model.DoctorUpdate
	svc := newTestService(&mockDoctorRepository{
		updateFunc: func(ctx context.Context, id string, updates *model.DoctorUpdate) error {
			got = updates
			return nil
		},
	})

	err := svc.Update(context.Background(), admin, "65f000000000000000000001", &model.DoctorUpdate{Specialty: "  Pediatrics "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Specialty != "Pediatrics" {
		t.Errorf("specialty = %q", got.Specialty)
	}

	err = svc.Update(context.Background(), admin, "65f000000000000000000001", &model.DoctorUpdate{Email: "not-an-email"})
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}

	err = svc.Update(context.Background(), patient, "65f000000000000000000001", &model.DoctorUpdate{Name: "X Y"})
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestSearchBySpecialty(t *testing.T) {
	var searched string
	svc := newTestService(&mockDoctorRepository{
		findBySpecialtyFunc: func(ctx context.Context, specialty string) ([]*model.Doctor, error) {
			searched = specialty
			return []*model.Doctor{{ID: "1", Specialty: "Cardiology"}}, nil
		},
	})

	doctors, err := svc.SearchBySpecialty(context.Background(), patient, "  cardiology ")
	if err != nil || len(doctors) != 1 {
		t.Fatalf("got %v, %v", doctors, err)
	}
	if searched != "cardiology" {
		t.Errorf("searched %q", searched)
	}

	_, err = svc.SearchBySpecialty(context.Background(), patient, "   ")
	if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestExists(t *testing.T) {
	svc := newTestService(&mockDoctorRepository{
		existsFunc: func(ctx context.Context, id string) (bool, error) {
			switch id {
			case "bad":
				return false, doctorserrors.ErrInvalidID
			case "down":
				return false, errors.New("server selection error")
			}
			return true, nil
		},
	})

	if ok, err := svc.Exists(context.Background(), "65f000000000000000000001"); !ok || err != nil {
		t.Errorf("got %v, %v", ok, err)
	}
	if ok, err := svc.Exists(context.Background(), "bad"); ok || err != nil {
		t.Errorf("malformed id should be absent, got %v, %v", ok, err)
	}
	if _, err := svc.Exists(context.Background(), "down"); !apperrors.HasCode(err, apperrors.CodeInternal) {
		t.Errorf("expected internal error, got %v", err)
	}
}
