package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "medisched"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisDB = 0

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultClinicTimeZone   = "UTC"
	DefaultTriageConfigPath = "configs/triage.yaml"
	DefaultSlotLockTTL      = 30 * time.Second

	DefaultAppointmentEventsTopic  = "appointment-events"
	DefaultPrescriptionEventsTopic = "prescription-events"
	DefaultPrescriptionGroupID     = "appointments-prescriptions"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPageSize        = 10
	DefaultPaginationLimit = 100

	MinJWTSecretLength = 32
)
