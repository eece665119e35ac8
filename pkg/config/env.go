package config

const EnvPrefix = "ECOBRIDGE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv        = "ECOBRIDGE_APP_ENV"
	EnvPort          = "ECOBRIDGE_APP_PORT"
	EnvLogLevel      = "ECOBRIDGE_LOG_LEVEL"
	EnvDBDSN         = "ECOBRIDGE_DB_DSN"
	EnvDBHost        = "ECOBRIDGE_DB_HOST"
	EnvDBPort        = "ECOBRIDGE_DB_PORT"
	EnvDBUser        = "ECOBRIDGE_DB_USER"
	EnvDBPassword    = "ECOBRIDGE_DB_PASSWORD"
	EnvDBName        = "ECOBRIDGE_DB_NAME"
	EnvRedisURL      = "ECOBRIDGE_REDIS_URL"
	EnvSessionSecret = "ECOBRIDGE_SESSION_SECRET"
	EnvSessionTTL    = "ECOBRIDGE_SESSION_TTL_MINUTES"
	EnvGCSBucket     = "ECOBRIDGE_GCS_BUCKET_NAME"
	EnvOutboxRunAPI  = "ECOBRIDGE_OUTBOX_RUN_IN_API"
	EnvMapsAPIKey    = "ECOBRIDGE_GOOGLE_MAPS_API_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
