package common

import (
	"os"
	"testing"
	"time"

	"medisched/pkg/auth"
	"medisched/pkg/client"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultAppointmentsURL = "http://localhost:8080"
	DefaultTimeSlotsURL    = "http://localhost:8081"
	DefaultDoctorsURL      = "http://localhost:8082"
	TokenTTL               = 30 * time.Minute
	HealthWait             = 5 * time.Second
)

// Suite points at running services and mints tokens with their shared secret.
type Suite struct {
	AppointmentsURL string
	TimeSlotsURL    string
	DoctorsURL      string
	JWTSecret       string
	WebhookSecret   string
}

// NewSuite skips the calling test unless every service answers /health.
func NewSuite(t *testing.T) *Suite {
	t.Helper()

	s := &Suite{
		AppointmentsURL: getEnv("TEST_APPOINTMENTS_URL", DefaultAppointmentsURL),
		TimeSlotsURL:    getEnv("TEST_TIMESLOTS_URL", DefaultTimeSlotsURL),
		DoctorsURL:      getEnv("TEST_DOCTORS_URL", DefaultDoctorsURL),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		WebhookSecret:   os.Getenv("WEBHOOK_SECRET"),
	}
	if s.JWTSecret == "" {
		t.Skip("JWT_SECRET not set, skipping integration tests")
	}

	for _, base := range []string{s.AppointmentsURL, s.TimeSlotsURL, s.DoctorsURL} {
		if err := client.NewHttpClient(base).WaitForHealthy(HealthWait); err != nil {
			t.Skipf("%s not reachable: %v", base, err)
		}
	}
	return s
}

func (s *Suite) Token(t *testing.T, p auth.Principal) string {
	t.Helper()
	token, err := auth.SignToken(p, s.JWTSecret, TokenTTL)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func Admin() auth.Principal {
	return auth.Principal{ID: NewID(), Role: auth.RoleAdmin}
}

func Patient() auth.Principal {
	return auth.Principal{ID: NewID(), Role: auth.RolePatient}
}

func Doctor(doctorID string) auth.Principal {
	return auth.Principal{ID: NewID(), Role: auth.RoleDoctor, DoctorID: doctorID}
}

func NewID() string {
	return primitive.NewObjectID().Hex()
}

// NextWeekday returns a date one to two weeks ahead falling on weekday.
func NextWeekday(weekday time.Weekday) string {
	day := time.Now().UTC().AddDate(0, 0, 7)
	for day.Weekday() != weekday {
		day = day.AddDate(0, 0, 1)
	}
	return day.Format("2006-01-02")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
