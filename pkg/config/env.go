package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvJWTSecret     = "JWT_SECRET"
	EnvWebhookSecret = "WEBHOOK_SECRET"

	EnvClinicTimeZone   = "CLINIC_TIME_ZONE"
	EnvTriageConfigPath = "TRIAGE_CONFIG_PATH"
	EnvSlotLockTTL      = "SLOT_LOCK_TTL"

	EnvKafkaEnabled            = "KAFKA_ENABLED"
	EnvAppointmentEventsTopic  = "APPOINTMENT_EVENTS_TOPIC"
	EnvPrescriptionEventsTopic = "PRESCRIPTION_EVENTS_TOPIC"
	EnvPrescriptionGroupID     = "PRESCRIPTION_CONSUMER_GROUP"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
