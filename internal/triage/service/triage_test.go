package service

import (
	"context"
	"errors"
	triageconfig "medisched/internal/triage/config"
	"medisched/pkg/auth"
	"medisched/pkg/config"
	apperrors "medisched/pkg/errors"
	"medisched/pkg/logger"
	"medisched/pkg/model"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rulesYAML = `
symptoms:
  - Fever
  - Chest pain
  - Palpitations
  - Headache
  - Acne
specialty_matrix:
  fever:
    General Medicine: 0.6
    Pediatrics: 0.2
  chest pain:
    Cardiology: 0.8
    Emergency Medicine: 0.3
  palpitations:
    Cardiology: 0.7
  headache:
    Neurology: 0.3
    General Medicine: 0.2
  acne:
    Dermatology: 0.9
`

type mockDoctorFinder struct {
	doctors map[string][]*model.Doctor
	err     error
	asked   []string
}

func (m *mockDoctorFinder) SearchBySpecialty(ctx context.Context, p *auth.Principal, specialty string) ([]*model.Doctor, error) {
	m.asked = append(m.asked, specialty)
	if m.err != nil {
		return nil, m.err
	}
	return m.doctors[strings.ToLower(specialty)], nil
}

type mockScheduleReader struct {
	findFunc func(ctx context.Context, filter model.SlotFilter, limit int, offset int64) ([]*model.TimeSlot, error)
}

func (m *mockScheduleReader) Find(ctx context.Context, filter model.SlotFilter, limit int, offset int64) ([]*model.TimeSlot, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, filter, limit, offset)
	}
	return nil, nil
}

var patient = &auth.Principal{ID: "p1", Role: auth.RolePatient}

func newTestService(t *testing.T, doctors *mockDoctorFinder, schedules *mockScheduleReader) TriageService {
	t.Helper()
	rules, err := triageconfig.Parse([]byte(rulesYAML))
	require.NoError(t, err)
	return NewTriageService(rules, doctors, schedules, &config.Config{Log: logger.Discard()})
}

func TestSuggest(t *testing.T) {
	svc := newTestService(t, &mockDoctorFinder{}, &mockScheduleReader{})

	tests := []struct {
		query    string
		expected []string
	}{
		{"", []string{}},
		{"c", []string{}},
		{"ch", []string{"Chest pain", "Headache"}},
		{"ches", []string{"Chest pain"}},
		{"  PAIN ", []string{"Chest pain"}},
		{"ac", []string{"Headache", "Acne"}},
		{"zz", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.expected, svc.Suggest(tt.query))
		})
	}
}

func TestRecommend_RanksAndListsDoctors(t *testing.T) {
	cardiologist := &model.Doctor{ID: "d1", Name: "Dr. Rao", Specialty: "Cardiology"}
	doctors := &mockDoctorFinder{doctors: map[string][]*model.Doctor{"cardiology": {cardiologist}}}
	var filter model.SlotFilter
	schedules := &mockScheduleReader{
		findFunc: func(ctx context.Context, f model.SlotFilter, limit int, offset int64) ([]*model.TimeSlot, error) {
			filter = f
			return []*model.TimeSlot{
				{DoctorID: "d1", DayOfWeek: 3, StartTime: "12:00", EndTime: "16:00", SlotLabel: "12-4"},
				{DoctorID: "d1", DayOfWeek: 1, StartTime: "08:00", EndTime: "12:00", SlotLabel: "8-12"},
				{DoctorID: "d1", DayOfWeek: 1, StartTime: "13:00", EndTime: "15:30"},
			}, nil
		},
	}
	svc := newTestService(t, doctors, schedules)

	rec, err := svc.Recommend(context.Background(), patient, []string{"Chest Pain", "palpitations", "fever", "chest pain"})
	require.NoError(t, err)

	assert.Equal(t, []string{"chest pain", "palpitations", "fever"}, rec.SelectedSymptoms)
	assert.Empty(t, rec.UnknownSymptoms)
	assert.Equal(t, "Cardiology", rec.RecommendedSpecialty)
	require.Len(t, rec.SpecialtyScores, 3)
	assert.Equal(t, "Cardiology", rec.SpecialtyScores[0].Specialty)
	assert.InDelta(t, 1.5, rec.SpecialtyScores[0].Score, 1e-9)
	assert.Equal(t, "General Medicine", rec.SpecialtyScores[1].Specialty)

	require.Len(t, rec.Doctors, 1)
	assert.Equal(t, []string{"Monday 8-12", "Monday 13:00-15:30", "Wednesday 12-4"}, rec.Doctors[0].AvailableSlots)
	assert.Equal(t, 3, rec.Doctors[0].TotalAvailableSlots)
	assert.Equal(t, 1, rec.DoctorCount)
	assert.False(t, rec.NoSpecialist)
	assert.Equal(t, "Found 1 doctor(s) for Cardiology", rec.Message)
	assert.Equal(t, model.SlotFilter{DoctorID: "d1", Statuses: []string{model.SlotAvailable}}, filter)
}

func TestRecommend_BelowThresholdFallsBack(t *testing.T) {
	doctors := &mockDoctorFinder{}
	svc := newTestService(t, doctors, &mockScheduleReader{})

	rec, err := svc.Recommend(context.Background(), patient, []string{"Headache"})
	require.NoError(t, err)

	assert.Equal(t, triageconfig.DefaultSpecialty, rec.RecommendedSpecialty)
	assert.Equal(t, []string{triageconfig.DefaultSpecialty}, doctors.asked)
	assert.True(t, rec.NoSpecialist)
	assert.Zero(t, rec.DoctorCount)
	assert.Contains(t, rec.Message, "no General Medicine specialist")
}

func TestRecommend_UnknownSymptomsReported(t *testing.T) {
	svc := newTestService(t, &mockDoctorFinder{}, &mockScheduleReader{})

	rec, err := svc.Recommend(context.Background(), patient, []string{"Acne", "Glowing skin"})
	require.NoError(t, err)

	assert.Equal(t, []string{"glowing skin"}, rec.UnknownSymptoms)
	assert.Equal(t, "Dermatology", rec.RecommendedSpecialty)
	assert.True(t, rec.NoSpecialist)
	assert.Contains(t, rec.Message, "no Dermatology specialist")
}

func TestRecommend_Errors(t *testing.T) {
	t.Run("no symptoms", func(t *testing.T) {
		svc := newTestService(t, &mockDoctorFinder{}, &mockScheduleReader{})
		_, err := svc.Recommend(context.Background(), patient, []string{" ", ""})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
	})

	t.Run("unauthenticated", func(t *testing.T) {
		svc := newTestService(t, &mockDoctorFinder{}, &mockScheduleReader{})
		_, err := svc.Recommend(context.Background(), nil, []string{"fever"})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
	})

	t.Run("schedule lookup fails", func(t *testing.T) {
		doctors := &mockDoctorFinder{doctors: map[string][]*model.Doctor{
			"general medicine": {{ID: "d1"}, {ID: "d2"}},
		}}
		schedules := &mockScheduleReader{
			findFunc: func(ctx context.Context, f model.SlotFilter, limit int, offset int64) ([]*model.TimeSlot, error) {
				if f.DoctorID == "d2" {
					return nil, errors.New("connection reset")
				}
				return nil, nil
			},
		}
		svc := newTestService(t, doctors, schedules)

		_, err := svc.Recommend(context.Background(), patient, []string{"fever"})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
	})
}
