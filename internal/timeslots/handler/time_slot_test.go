package handler

import (
	"context"
	"medisched/pkg/auth"
	apperrors "medisched/pkg/errors"
	"medisched/pkg/logger"
	"medisched/pkg/model"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
)

type mockTimeSlotService struct {
	listForDoctorFunc func(ctx context.Context, p *auth.Principal, filter model.SlotFilter) ([]*model.TimeSlot, error)
	approveFunc       func(ctx context.Context, p *auth.Principal, id string) (*model.TimeSlot, error)
}

func (m *mockTimeSlotService) RequestSlots(ctx context.Context, p *auth.Principal, req *model.SlotRequest) ([]*model.TimeSlot, error) {
	return []*model.TimeSlot{{ID: "1", DoctorID: req.DoctorID}}, nil
}

func (m *mockTimeSlotService) Approve(ctx context.Context, p *auth.Principal, id string) (*model.TimeSlot, error) {
	if m.approveFunc != nil {
		return m.approveFunc(ctx, p, id)
	}
	return &model.TimeSlot{ID: id, Status: model.SlotAvailable}, nil
}

func (m *mockTimeSlotService) Reject(ctx context.Context, p *auth.Principal, id string) error {
	return nil
}

func (m *mockTimeSlotService) MarkUnavailable(ctx context.Context, p *auth.Principal, id string) (*model.TimeSlot, error) {
	return &model.TimeSlot{ID: id, Status: model.SlotUnavailable}, nil
}

func (m *mockTimeSlotService) GetByID(ctx context.Context, p *auth.Principal, id string) (*model.TimeSlot, error) {
	return &model.TimeSlot{ID: id}, nil
}

func (m *mockTimeSlotService) ListPending(ctx context.Context, p *auth.Principal, limit int, offset int64) ([]*model.TimeSlot, int64, error) {
	return []*model.TimeSlot{}, 0, nil
}

func (m *mockTimeSlotService) ListForDoctor(ctx context.Context, p *auth.Principal, filter model.SlotFilter) ([]*model.TimeSlot, error) {
	if m.listForDoctorFunc != nil {
		return m.listForDoctorFunc(ctx, p, filter)
	}
	return []*model.TimeSlot{}, nil
}

func (m *mockTimeSlotService) FindAvailable(ctx context.Context, doctorID string, dayOfWeek int) ([]*model.TimeSlot, error) {
	return nil, nil
}

func newRouter(svc *mockTimeSlotService) *httprouter.Router {
	router := httprouter.New()
	NewTimeSlotHandler(svc, logger.Discard()).RegisterRoutes(router)
	return router
}

func TestListForDoctor_QueryFilters(t *testing.T) {
	var received model.SlotFilter
	router := newRouter(&mockTimeSlotService{
		listForDoctorFunc: func(ctx context.Context, p *auth.Principal, filter model.SlotFilter) ([]*model.TimeSlot, error) {
			received = filter
			return []*model.TimeSlot{}, nil
		},
	})
	monday := 1

	tests := []struct {
		name           string
		query          string
		expectHTTPCode int
		expectFilter   model.SlotFilter
	}{
		{"no filters", "", http.StatusOK, model.SlotFilter{DoctorID: "d1"}},
		{"weekday", "?day=Monday", http.StatusOK, model.SlotFilter{DoctorID: "d1", DayOfWeek: &monday}},
		{
			name:           "statuses",
			query:          "?status=available,%20unavailable,",
			expectHTTPCode: http.StatusOK,
			expectFilter:   model.SlotFilter{DoctorID: "d1", Statuses: []string{"available", "unavailable"}},
		},
		{"unknown weekday", "?day=someday", http.StatusBadRequest, model.SlotFilter{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			received = model.SlotFilter{}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/timeslots/doctor/d1"+tt.query, nil))

			if w.Code != tt.expectHTTPCode {
				t.Fatalf("expected %d, got %d: %s", tt.expectHTTPCode, w.Code, w.Body.String())
			}
			if !reflect.DeepEqual(received, tt.expectFilter) {
				t.Errorf("filter = %+v, want %+v", received, tt.expectFilter)
			}
		})
	}
}

func TestApprove_ConflictResponse(t *testing.T) {
	router := newRouter(&mockTimeSlotService{
		approveFunc: func(ctx context.Context, p *auth.Principal, id string) (*model.TimeSlot, error) {
			return nil, apperrors.ScheduleConflict("Requested 09:00-11:00 overlaps 10:00-12:00 on Monday").
				WithDetails(map[string]any{"conflicting_id": "e1"})
		},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/timeslots/id/c1/approve", nil))

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, apperrors.CodeScheduleConflict) || !strings.Contains(body, `"conflicting_id":"e1"`) {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestRoutes(t *testing.T) {
	router := newRouter(&mockTimeSlotService{})

	tests := []struct {
		method string
		path   string
		body   string
		expect int
	}{
		{http.MethodPost, "/api/v1/timeslots/requests", `{"days":["Monday"],"slot_label":"8-12"}`, http.StatusCreated},
		{http.MethodGet, "/api/v1/timeslots/requests/pending", "", http.StatusOK},
		{http.MethodGet, "/api/v1/timeslots/id/c1", "", http.StatusOK},
		{http.MethodPost, "/api/v1/timeslots/id/c1/reject", "", http.StatusNoContent},
		{http.MethodPost, "/api/v1/timeslots/id/c1/unavailable", "", http.StatusOK},
		{http.MethodDelete, "/api/v1/timeslots/id/c1", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))
			if w.Code != tt.expect {
				t.Errorf("expected %d, got %d", tt.expect, w.Code)
			}
		})
	}
}
