package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Compliance   ComplianceConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Storage      StorageConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Compliance.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SITECOMPLIANCE_APP_ENV" required:"true"`
	Port         string `envconfig:"SITECOMPLIANCE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SITECOMPLIANCE_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"SITECOMPLIANCE_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"SITECOMPLIANCE_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"SITECOMPLIANCE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SITECOMPLIANCE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SITECOMPLIANCE_DB_DSN"`
	Driver string `envconfig:"SITECOMPLIANCE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SITECOMPLIANCE_DB_HOST"`
	LegacyPort     int    `envconfig:"SITECOMPLIANCE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SITECOMPLIANCE_DB_USER"`
	LegacyPassword string `envconfig:"SITECOMPLIANCE_DB_PASSWORD"`
	LegacyName     string `envconfig:"SITECOMPLIANCE_DB_NAME"`
	LegacySSLMode  string `envconfig:"SITECOMPLIANCE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SITECOMPLIANCE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SITECOMPLIANCE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SITECOMPLIANCE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SITECOMPLIANCE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SITECOMPLIANCE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SITECOMPLIANCE_REDIS_ADDR"`
	Password     string        `envconfig:"SITECOMPLIANCE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SITECOMPLIANCE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SITECOMPLIANCE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SITECOMPLIANCE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SITECOMPLIANCE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SITECOMPLIANCE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SITECOMPLIANCE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool   `envconfig:"SITECOMPLIANCE_USE_SQLITE" default:"false"`
	SQLitePath  string `envconfig:"SITECOMPLIANCE_SQLITE_PATH" default:"sitecompliance.db"`
	AutoMigrate bool   `envconfig:"SITECOMPLIANCE_AUTO_MIGRATE" default:"false"`
}

// ComplianceConfig holds the engine policy knobs.
type ComplianceConfig struct {
	WarningWindowDays   int           `envconfig:"SITECOMPLIANCE_WARNING_WINDOW_DAYS" default:"30"`
	CycleBoundary       string        `envconfig:"SITECOMPLIANCE_CYCLE_BOUNDARY" default:"inclusive"`
	DefaultReminderDays []int         `envconfig:"SITECOMPLIANCE_DEFAULT_REMINDER_DAYS" default:"30,7,1"`
	ConditionalLockTTL  time.Duration `envconfig:"SITECOMPLIANCE_CONDITIONAL_LOCK_TTL" default:"15s"`
	Timezone            string        `envconfig:"SITECOMPLIANCE_TIMEZONE" default:"UTC"`
}

// WarningWindow converts the configured day count into a duration.
func (c ComplianceConfig) WarningWindow() time.Duration {
	return time.Duration(c.WarningWindowDays) * 24 * time.Hour
}

// ExclusiveCycleBoundary reports whether executions exactly on the previous
// cycle boundary are excluded from the current occurrence.
func (c ComplianceConfig) ExclusiveCycleBoundary() bool {
	return strings.EqualFold(strings.TrimSpace(c.CycleBoundary), CycleBoundaryExclusive)
}

// Location resolves the timezone used to decide which calendar day "now" falls on.
func (c ComplianceConfig) Location() *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(c.Timezone))
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c ComplianceConfig) validate() error {
	if _, err := time.LoadLocation(strings.TrimSpace(c.Timezone)); err != nil {
		return fmt.Errorf("%s: %w", EnvTimezone, err)
	}
	if c.WarningWindowDays < 0 {
		return fmt.Errorf("%s must not be negative", EnvWarningWindowDays)
	}
	switch strings.ToLower(strings.TrimSpace(c.CycleBoundary)) {
	case CycleBoundaryInclusive, CycleBoundaryExclusive:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvCycleBoundary, CycleBoundaryInclusive, CycleBoundaryExclusive)
	}
	for _, d := range c.DefaultReminderDays {
		if d < 0 {
			return fmt.Errorf("%s entries must not be negative", EnvDefaultReminderDays)
		}
	}
	return nil
}

type CronConfig struct {
	Interval time.Duration `envconfig:"SITECOMPLIANCE_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"SITECOMPLIANCE_CRON_LOCK_TTL" default:"10m"`
}

type RateLimitConfig struct {
	Window     time.Duration `envconfig:"SITECOMPLIANCE_RATE_LIMIT_WINDOW" default:"1m"`
	WriteLimit int           `envconfig:"SITECOMPLIANCE_RATE_LIMIT_WRITES" default:"120"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"SITECOMPLIANCE_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"SITECOMPLIANCE_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	NoticesTopic string `envconfig:"SITECOMPLIANCE_PUBSUB_NOTICES_TOPIC" default:"sitecompliance-notices"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SITECOMPLIANCE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SITECOMPLIANCE_OUTBOX_PUBLISH_POLL_MS" default:"1000"`
	MaxAttempts    int `envconfig:"SITECOMPLIANCE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"SITECOMPLIANCE_OUTBOX_RETENTION_DAYS" default:"30"`
}

type StorageConfig struct {
	Driver        string        `envconfig:"SITECOMPLIANCE_STORAGE_DRIVER" default:"local"`
	LocalDir      string        `envconfig:"SITECOMPLIANCE_STORAGE_LOCAL_DIR" default:"./storage/attachments"`
	S3Bucket      string        `envconfig:"SITECOMPLIANCE_S3_BUCKET"`
	S3Region      string        `envconfig:"SITECOMPLIANCE_S3_REGION" default:"us-east-1"`
	S3Endpoint    string        `envconfig:"SITECOMPLIANCE_S3_ENDPOINT"`
	S3PathStyle   bool          `envconfig:"SITECOMPLIANCE_S3_FORCE_PATH_STYLE" default:"false"`
	S3AccessKeyID string        `envconfig:"SITECOMPLIANCE_S3_ACCESS_KEY_ID"`
	S3SecretKey   string        `envconfig:"SITECOMPLIANCE_S3_SECRET_ACCESS_KEY"`
	MaxUploadMB   int           `envconfig:"SITECOMPLIANCE_MAX_UPLOAD_MB" default:"25"`
	PresignExpiry time.Duration `envconfig:"SITECOMPLIANCE_S3_PRESIGN_EXPIRY" default:"15m"`
}

// MaxUploadBytes returns the upload ceiling in bytes.
func (s StorageConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

func (s StorageConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Driver)) {
	case StorageDriverLocal:
		if strings.TrimSpace(s.LocalDir) == "" {
			return fmt.Errorf("%s is required for the local storage driver", EnvStorageLocalDir)
		}
	case StorageDriverS3:
		if strings.TrimSpace(s.S3Bucket) == "" {
			return fmt.Errorf("%s is required for the s3 storage driver", EnvS3Bucket)
		}
	default:
		return fmt.Errorf("%s must be %q or %q", EnvStorageDriver, StorageDriverLocal, StorageDriverS3)
	}
	return nil
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
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
