package config

import (
	"medisched/pkg/logger"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		MongoURI:                DefaultMongoURI,
		MongoDatabaseName:       DefaultMongoDatabaseName,
		MongoConnTimeout:        DefaultMongoConnTimeout,
		Port:                    DefaultPort,
		JWTSecret:               strings.Repeat("s", MinJWTSecretLength),
		ClinicTimeZone:          "Asia/Kolkata",
		SlotLockTTL:             DefaultSlotLockTTL,
		AppointmentEventsTopic:  DefaultAppointmentEventsTopic,
		PrescriptionEventsTopic: DefaultPrescriptionEventsTopic,
		PrescriptionGroupID:     DefaultPrescriptionGroupID,
		RateLimitRequests:       DefaultRateLimitRequests,
		RateLimitWindow:         DefaultRateLimitWindow,
		RequestTimeout:          DefaultRequestTimeout,
		IdempotencyTTL:          DefaultIdempotencyTTL,
		MaxRequestSize:          DefaultMaxRequestSize,
		ReadTimeout:             DefaultReadTimeout,
		WriteTimeout:            DefaultWriteTimeout,
		IdleTimeout:             DefaultIdleTimeout,
		ShutdownTimeout:         DefaultShutdownTimeout,
		Log:                     logger.Discard(),
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Port = "99999" }, "Port must be between"},
		{"bad mongo uri", func(c *Config) { c.MongoURI = "postgres://x:y@host" }, "MongoURI must start with"},
		{"short jwt secret", func(c *Config) { c.JWTSecret = "short" }, "JWTSecret must be at least"},
		{"unknown zone", func(c *Config) { c.ClinicTimeZone = "Mars/Olympus" }, "ClinicTimeZone"},
		{"zero lock ttl", func(c *Config) { c.SlotLockTTL = 0 }, "SlotLockTTL must be positive"},
		{"kafka without topic", func(c *Config) {
			c.KafkaEnabled = true
			c.AppointmentEventsTopic = ""
		}, "AppointmentEventsTopic"},
		{"negative redis db", func(c *Config) { c.RedisDB = -1 }, "RedisDB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.expectError == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.expectError)
			}
			if !strings.Contains(err.Error(), tt.expectError) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.expectError)
			}
		})
	}
}

func TestValidate_NumbersEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "0"
	cfg.MaxRequestSize = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "1. ") || !strings.Contains(err.Error(), "2. ") {
		t.Errorf("expected numbered list, got %q", err.Error())
	}
}

func TestValidate_ResolvesClinicLocation(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Location == nil || cfg.Location.String() != "Asia/Kolkata" {
		t.Fatalf("Location = %v", cfg.Location)
	}

	clock := cfg.Clock()
	day, err := clock.ParseDate("2030-03-04")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if !day.Equal(time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("day = %s", day)
	}
}

func TestRedactMongoURI(t *testing.T) {
	got := redactMongoURI("mongodb://admin:secret@db:27017/medisched")
	if strings.Contains(got, "secret") {
		t.Errorf("credentials leaked: %s", got)
	}
	if got != "mongodb://***:***@db:27017/medisched" {
		t.Errorf("got %s", got)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("MEDISCHED_TEST_NUM", "42")
	t.Setenv("MEDISCHED_TEST_BAD_NUM", "abc")
	t.Setenv("MEDISCHED_TEST_DUR", "5s")
	t.Setenv("MEDISCHED_TEST_BOOL", "true")

	if getEnvNum("MEDISCHED_TEST_NUM", 1) != 42 {
		t.Error("getEnvNum did not read value")
	}
	if getEnvNum("MEDISCHED_TEST_BAD_NUM", 7) != 7 {
		t.Error("getEnvNum should fall back on parse error")
	}
	if getEnvDuration("MEDISCHED_TEST_DUR", time.Second) != 5*time.Second {
		t.Error("getEnvDuration did not read value")
	}
	if !getEnvBool("MEDISCHED_TEST_BOOL", false) {
		t.Error("getEnvBool did not read value")
	}
	if getEnvStr("MEDISCHED_TEST_MISSING", "fallback") != "fallback" {
		t.Error("getEnvStr should fall back")
	}
}

func TestNormalizePagination(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultPageSize},
		{-3, DefaultPageSize},
		{25, 25},
		{1000, DefaultPaginationLimit},
	}
	for _, tt := range tests {
		if got := NormalizePaginationLimit(tt.in); got != tt.want {
			t.Errorf("NormalizePaginationLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if NormalizeOffset(-5) != 0 {
		t.Error("negative offset should clamp to zero")
	}
}
