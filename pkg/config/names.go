package config

// EnvPrefix is passed to envconfig; individual fields carry explicit
// names so the prefix only matters for unannotated fields.
const EnvPrefix = "TOOLCRIB"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv         = "TOOLCRIB_APP_ENV"
	EnvPort           = "TOOLCRIB_APP_PORT"
	EnvDBDSN          = "TOOLCRIB_DB_DSN"
	EnvDBHost         = "TOOLCRIB_DB_HOST"
	EnvDBUser         = "TOOLCRIB_DB_USER"
	EnvDBName         = "TOOLCRIB_DB_NAME"
	EnvRedisURL       = "TOOLCRIB_REDIS_URL"
	EnvJWTSecret      = "TOOLCRIB_JWT_SECRET"
	EnvJWTIssuer      = "TOOLCRIB_JWT_ISSUER"
	EnvJWTExpMins     = "TOOLCRIB_JWT_EXPIRATION_MINUTES"
	EnvSessionTTLMins = "TOOLCRIB_SESSION_TTL_MINUTES"
	EnvGCPProjectID   = "TOOLCRIB_GCP_PROJECT_ID"
	EnvInventoryTopic = "TOOLCRIB_PUBSUB_INVENTORY_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
