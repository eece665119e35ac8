package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	Session       SessionConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GoogleMaps    GoogleMapsConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Media         MediaConfig
	Outbox        OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ECOBRIDGE_APP_ENV" required:"true"`
	Port         string `envconfig:"ECOBRIDGE_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"ECOBRIDGE_APP_BASE_URL" default:"http://localhost:3000"`
	LogLevel     string `envconfig:"ECOBRIDGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ECOBRIDGE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"ECOBRIDGE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ECOBRIDGE_DB_DSN"`
	Driver string `envconfig:"ECOBRIDGE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ECOBRIDGE_DB_HOST"`
	LegacyPort     int    `envconfig:"ECOBRIDGE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ECOBRIDGE_DB_USER"`
	LegacyPassword string `envconfig:"ECOBRIDGE_DB_PASSWORD"`
	LegacyName     string `envconfig:"ECOBRIDGE_DB_NAME"`
	LegacySSLMode  string `envconfig:"ECOBRIDGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ECOBRIDGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ECOBRIDGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ECOBRIDGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ECOBRIDGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ECOBRIDGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ECOBRIDGE_REDIS_ADDR"`
	Password     string        `envconfig:"ECOBRIDGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"ECOBRIDGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ECOBRIDGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ECOBRIDGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ECOBRIDGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ECOBRIDGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ECOBRIDGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SessionConfig controls the signed session cookie and its Redis record.
type SessionConfig struct {
	Secret     string `envconfig:"ECOBRIDGE_SESSION_SECRET" required:"true"`
	Issuer     string `envconfig:"ECOBRIDGE_SESSION_ISSUER" default:"ecobridge"`
	TTLMinutes int    `envconfig:"ECOBRIDGE_SESSION_TTL_MINUTES" default:"10080"`
	CookieName string `envconfig:"ECOBRIDGE_SESSION_COOKIE_NAME" default:"ecobridge_session"`
	Secure     bool   `envconfig:"ECOBRIDGE_SESSION_COOKIE_SECURE" default:"false"`
}

// TTL returns the session lifetime; seven days when unset.
func (s SessionConfig) TTL() time.Duration {
	if s.TTLMinutes <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(s.TTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"ECOBRIDGE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"ECOBRIDGE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"ECOBRIDGE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"ECOBRIDGE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"ECOBRIDGE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow         time.Duration `envconfig:"ECOBRIDGE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginUsernameLimit  int           `envconfig:"ECOBRIDGE_AUTH_RATE_LIMIT_LOGIN_USERNAME_LIMIT" default:"5"`
	LoginIPLimit        int           `envconfig:"ECOBRIDGE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	SignupWindow        time.Duration `envconfig:"ECOBRIDGE_AUTH_RATE_LIMIT_SIGNUP_WINDOW" default:"5m"`
	SignupUsernameLimit int           `envconfig:"ECOBRIDGE_AUTH_RATE_LIMIT_SIGNUP_USERNAME_LIMIT" default:"3"`
	SignupIPLimit       int           `envconfig:"ECOBRIDGE_AUTH_RATE_LIMIT_SIGNUP_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ECOBRIDGE_AUTO_MIGRATE" default:"false"`
}

type GoogleMapsConfig struct {
	APIKey  string `envconfig:"ECOBRIDGE_GOOGLE_MAPS_API_KEY"`
	BaseURL string `envconfig:"ECOBRIDGE_GOOGLE_MAPS_BASE_URL"`
	Region  string `envconfig:"ECOBRIDGE_GOOGLE_MAPS_REGION" default:"in"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ECOBRIDGE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ECOBRIDGE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ECOBRIDGE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"ECOBRIDGE_GCS_BUCKET_NAME" required:"true"`
	PublicBaseURL string `envconfig:"ECOBRIDGE_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
	ObjectPrefix  string `envconfig:"ECOBRIDGE_GCS_OBJECT_PREFIX" default:"ecobridge"`
}

type MediaConfig struct {
	MaxUploadMB      int    `envconfig:"ECOBRIDGE_MAX_UPLOAD_MB" default:"10"`
	DefaultAvatarURL string `envconfig:"ECOBRIDGE_DEFAULT_AVATAR_URL" default:"https://photosnow.net/wp-content/uploads/2024/04/no-dp-mood-off_9.jpg"`
}

// MaxUploadBytes returns the multipart size ceiling for image uploads.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(m.MaxUploadMB) << 20
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"ECOBRIDGE_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"ECOBRIDGE_OUTBOX_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"ECOBRIDGE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"ECOBRIDGE_OUTBOX_RETENTION" default:"720h"`
	RunInAPI       bool          `envconfig:"ECOBRIDGE_OUTBOX_RUN_IN_API" default:"true"`
}

// PollInterval returns the drain loop interval.
func (o OutboxConfig) PollInterval() time.Duration {
	if o.PollIntervalMS <= 0 {
		return 0
	}
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
