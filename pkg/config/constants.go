package config

const EnvPrefix = "SITECOMPLIANCE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	CycleBoundaryInclusive = "inclusive"
	CycleBoundaryExclusive = "exclusive"

	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

const (
	EnvAppEnv              = "SITECOMPLIANCE_APP_ENV"
	EnvPort                = "SITECOMPLIANCE_APP_PORT"
	EnvDBDSN               = "SITECOMPLIANCE_DB_DSN"
	EnvDBHost              = "SITECOMPLIANCE_DB_HOST"
	EnvDBUser              = "SITECOMPLIANCE_DB_USER"
	EnvDBName              = "SITECOMPLIANCE_DB_NAME"
	EnvDBPassword          = "SITECOMPLIANCE_DB_PASSWORD"
	EnvRedisURL            = "SITECOMPLIANCE_REDIS_URL"
	EnvUseSQLite           = "SITECOMPLIANCE_USE_SQLITE"
	EnvWarningWindowDays   = "SITECOMPLIANCE_WARNING_WINDOW_DAYS"
	EnvCycleBoundary       = "SITECOMPLIANCE_CYCLE_BOUNDARY"
	EnvDefaultReminderDays = "SITECOMPLIANCE_DEFAULT_REMINDER_DAYS"
	EnvTimezone            = "SITECOMPLIANCE_TIMEZONE"
	EnvStorageDriver       = "SITECOMPLIANCE_STORAGE_DRIVER"
	EnvStorageLocalDir     = "SITECOMPLIANCE_STORAGE_LOCAL_DIR"
	EnvS3Bucket            = "SITECOMPLIANCE_S3_BUCKET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
