package service

import (
	"context"
	"fmt"
	triageconfig "medisched/internal/triage/config"
	"medisched/pkg/auth"
	"medisched/pkg/calendar"
	"medisched/pkg/config"
	apperrors "medisched/pkg/errors"
	"medisched/pkg/model"
	"medisched/pkg/sanitizer"
	"sort"
	"strings"
	"sync"
)

// MinQueryLength is the shortest query Suggest answers.
const MinQueryLength = 2

// DoctorFinder looks up doctors by specialty.
type DoctorFinder interface {
	SearchBySpecialty(ctx context.Context, p *auth.Principal, specialty string) ([]*model.Doctor, error)
}

// ScheduleReader lists template entries.
type ScheduleReader interface {
	Find(ctx context.Context, filter model.SlotFilter, limit int, offset int64) ([]*model.TimeSlot, error)
}

type SpecialtyScore struct {
	Specialty string  `json:"specialty"`
	Score     float64 `json:"score"`
}

type DoctorMatch struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Email               string   `json:"email,omitempty"`
	Specialty           string   `json:"specialty"`
	AvailableSlots      []string `json:"available_slots"`
	TotalAvailableSlots int      `json:"total_available_slots"`
}

type Recommendation struct {
	SelectedSymptoms     []string         `json:"selected_symptoms"`
	UnknownSymptoms      []string         `json:"unknown_symptoms,omitempty"`
	RecommendedSpecialty string           `json:"recommended_specialty"`
	SpecialtyScores      []SpecialtyScore `json:"specialty_scores"`
	Doctors              []DoctorMatch    `json:"recommended_doctors"`
	DoctorCount          int              `json:"doctor_count"`
	Message              string           `json:"message"`
	NoSpecialist         bool             `json:"no_specialist"`
}

type TriageService interface {
	Suggest(query string) []string
	Recommend(ctx context.Context, p *auth.Principal, symptoms []string) (*Recommendation, error)
}

type triageService struct {
	rules     *triageconfig.Config
	doctors   DoctorFinder
	schedules ScheduleReader
	cfg       *config.Config
}

func NewTriageService(rules *triageconfig.Config, doctors DoctorFinder, schedules ScheduleReader, cfg *config.Config) TriageService {
	return &triageService{
		rules:     rules,
		doctors:   doctors,
		schedules: schedules,
		cfg:       cfg,
	}
}

// Suggest returns configured symptoms containing query, ignoring case.
func (s *triageService) Suggest(query string) []string {
	query = sanitizer.NormalizeSymptom(query)
	suggestions := []string{}
	if len(query) < MinQueryLength {
		return suggestions
	}
	for _, symptom := range s.rules.Symptoms {
		if strings.Contains(strings.ToLower(symptom), query) {
			suggestions = append(suggestions, symptom)
		}
	}
	return suggestions
}

// Recommend scores specialties for the known symptoms and lists bookable
// doctors of the winner with their approved weekly slots.
func (s *triageService) Recommend(ctx context.Context, p *auth.Principal, symptoms []string) (*Recommendation, error) {
	if err := auth.Authorize(p, auth.ViewDoctors, auth.Ownership{}); err != nil {
		return nil, err
	}
	normalized := sanitizer.NormalizeSymptoms(symptoms)
	if len(normalized) == 0 {
		return nil, apperrors.InvalidInput("At least one symptom is required")
	}

	rec := &Recommendation{
		SelectedSymptoms:     normalized,
		RecommendedSpecialty: s.rules.DefaultSpecialty,
	}

	var known []string
	for _, symptom := range normalized {
		if s.rules.Known(symptom) {
			known = append(known, symptom)
		} else {
			rec.UnknownSymptoms = append(rec.UnknownSymptoms, symptom)
		}
	}

	scores := s.score(known)
	ranked := make([]SpecialtyScore, 0, s.rules.RankingDepth)
	for _, sc := range scores {
		if sc.Score >= s.rules.Threshold && len(ranked) < s.rules.RankingDepth {
			ranked = append(ranked, sc)
		}
	}
	if len(ranked) > 0 {
		rec.RecommendedSpecialty = ranked[0].Specialty
	}
	if len(scores) > s.rules.ScoreDepth {
		scores = scores[:s.rules.ScoreDepth]
	}
	rec.SpecialtyScores = scores

	doctors, err := s.bookableDoctors(ctx, p, rec.RecommendedSpecialty)
	if err != nil {
		return nil, err
	}
	rec.Doctors = doctors
	rec.DoctorCount = len(doctors)
	if len(doctors) == 0 {
		rec.NoSpecialist = true
		rec.Message = fmt.Sprintf("There is no %s specialist available right now. Please try %s or contact us for assistance.",
			rec.RecommendedSpecialty, triageconfig.DefaultSpecialty)
	} else {
		rec.Message = fmt.Sprintf("Found %d doctor(s) for %s", len(doctors), rec.RecommendedSpecialty)
	}

	s.cfg.Log.Info("Triage recommendation",
		"symptoms", len(normalized),
		"unknown", len(rec.UnknownSymptoms),
		"specialty", rec.RecommendedSpecialty,
		"doctors", rec.DoctorCount,
	)
	return rec, nil
}

// score sums matrix weights per specialty, highest first. Ties sort by name.
func (s *triageService) score(symptoms []string) []SpecialtyScore {
	totals := map[string]float64{}
	for _, symptom := range symptoms {
		for specialty, w := range s.rules.Matrix[symptom] {
			totals[specialty] += w
		}
	}

	scores := make([]SpecialtyScore, 0, len(totals))
	for specialty, total := range totals {
		scores = append(scores, SpecialtyScore{Specialty: specialty, Score: total})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Specialty < scores[j].Specialty
	})
	return scores
}

func (s *triageService) bookableDoctors(ctx context.Context, p *auth.Principal, specialty string) ([]DoctorMatch, error) {
	doctors, err := s.doctors.SearchBySpecialty(ctx, p, specialty)
	if err != nil {
		return nil, err
	}

	matches := make([]DoctorMatch, len(doctors))
	errs := make([]error, len(doctors))
	var wg sync.WaitGroup

	for i, d := range doctors {
		wg.Add(1)
		go func(i int, d *model.Doctor) {
			defer wg.Done()
			slots, err := s.schedules.Find(ctx, model.SlotFilter{
				DoctorID: d.ID,
				Statuses: []string{model.SlotAvailable},
			}, 0, 0)
			if err != nil {
				s.cfg.Log.Error("Failed to load doctor schedule", "doctor_id", d.ID, "error", err)
				errs[i] = apperrors.Internal("Failed to load doctor schedules", err)
				return
			}
			formatted := FormatSlots(slots)
			matches[i] = DoctorMatch{
				ID:                  d.ID,
				Name:                d.Name,
				Email:               d.Email,
				Specialty:           d.Specialty,
				AvailableSlots:      formatted,
				TotalAvailableSlots: len(formatted),
			}
		}(i, d)
	}

	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return matches, nil
}

// FormatSlots renders entries as "Monday 8-12", ordered by weekday and start.
// Entries without a label show their clock range.
func FormatSlots(slots []*model.TimeSlot) []string {
	sorted := make([]*model.TimeSlot, len(slots))
	copy(sorted, slots)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].DayOfWeek != sorted[j].DayOfWeek {
			return sorted[i].DayOfWeek < sorted[j].DayOfWeek
		}
		return sorted[i].StartTime < sorted[j].StartTime
	})

	out := make([]string, 0, len(sorted))
	for _, slot := range sorted {
		span := slot.SlotLabel
		if span == "" {
			span = slot.StartTime + "-" + slot.EndTime
		}
		out = append(out, calendar.WeekdayName(slot.DayOfWeek)+" "+span)
	}
	return out
}
