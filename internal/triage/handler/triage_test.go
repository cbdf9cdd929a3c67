package handler

import (
	"context"
	"encoding/json"
	"medisched/internal/triage/service"
	"medisched/pkg/auth"
	apperrors "medisched/pkg/errors"
	"medisched/pkg/logger"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
)

type mockTriageService struct {
	suggestFunc   func(query string) []string
	recommendFunc func(ctx context.Context, p *auth.Principal, symptoms []string) (*service.Recommendation, error)
}

func (m *mockTriageService) Suggest(query string) []string {
	if m.suggestFunc != nil {
		return m.suggestFunc(query)
	}
	return []string{}
}

func (m *mockTriageService) Recommend(ctx context.Context, p *auth.Principal, symptoms []string) (*service.Recommendation, error) {
	if m.recommendFunc != nil {
		return m.recommendFunc(ctx, p, symptoms)
	}
	return &service.Recommendation{}, nil
}

func newRouter(svc *mockTriageService) *httprouter.Router {
	router := httprouter.New()
	NewTriageHandler(svc, logger.Discard()).RegisterRoutes(router)
	return router
}

func TestSuggest_PassesQuery(t *testing.T) {
	var received string
	router := newRouter(&mockTriageService{
		suggestFunc: func(query string) []string {
			received = query
			return []string{"chest pain"}
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/triage/suggestions?query=chest", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if received != "chest" {
		t.Errorf("query = %q", received)
	}
	var body struct {
		Data []string `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 1 || body.Data[0] != "chest pain" {
		t.Errorf("data = %v", body.Data)
	}
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		result         *service.Recommendation
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "recommends",
			body:           `{"symptoms":["chest pain"]}`,
			result:         &service.Recommendation{RecommendedSpecialty: "Cardiology"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "malformed body",
			body:           `{"symptoms":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "empty symptoms",
			body:           `{"symptoms":[]}`,
			err:            apperrors.InvalidInput("At least one symptom is required"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   apperrors.CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var received []string
			router := newRouter(&mockTriageService{
				recommendFunc: func(ctx context.Context, p *auth.Principal, symptoms []string) (*service.Recommendation, error) {
					received = symptoms
					return tt.result, tt.err
				},
			})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/triage/recommend", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.expectedStatus, rr.Body.String())
			}
			if tt.expectedCode != "" && !strings.Contains(rr.Body.String(), tt.expectedCode) {
				t.Errorf("body %s missing code %s", rr.Body.String(), tt.expectedCode)
			}
			if tt.expectedStatus == http.StatusOK && (len(received) != 1 || received[0] != "chest pain") {
				t.Errorf("symptoms = %v", received)
			}
		})
	}
}
